// Package insights derives library statistics and reading-habit summaries.
// Statistics and rule-based insight items are computed locally; the prose
// summary comes from the language model and degrades to a fixed fallback
// when the model is unavailable.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise/internal/apperr"
	"github.com/shelfwise/shelfwise/internal/llm"
	"github.com/shelfwise/shelfwise/internal/store"
	"github.com/shelfwise/shelfwise/internal/types"
)

const (
	summaryFallback = "AI insights are currently unavailable."
	habitsFallback  = "User shows consistent reading activity."

	strongCompletionRate = 70.0
	lowCompletionRate    = 40.0
)

// Statistics aggregates a set of books, optionally across all users.
type Statistics struct {
	TotalBooks         int            `json:"totalBooks"`
	TotalUsers         *int           `json:"totalUsers,omitempty"`
	MostPopularGenre   string         `json:"mostPopularGenre"`
	MostActiveUser     *string        `json:"mostActiveUser,omitempty"`
	CompletedBooks     int            `json:"completedBooksCount"`
	InProgressBooks    int            `json:"inProgressBooksCount"`
	GenreDistribution  map[string]int `json:"genreDistribution"`
	StatusDistribution map[string]int `json:"statusDistribution"`
}

// Item is one rule-derived insight.
type Item struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LibraryInsights is the full insights payload.
type LibraryInsights struct {
	Summary     string     `json:"summary"`
	Insights    []Item     `json:"insights"`
	Statistics  Statistics `json:"statistics"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// ReadingHabits summarizes one user's reading behavior.
type ReadingHabits struct {
	UserID          string   `json:"userId"`
	UserName        string   `json:"userName"`
	Summary         string   `json:"summary"`
	PreferredGenres []string `json:"preferredGenres"`
	TotalBooks      int      `json:"totalBooks"`
	CompletedBooks  int      `json:"completedBooks"`
	BooksInProgress int      `json:"booksInProgress"`
	ReadingPattern  string   `json:"readingPattern"`
	Characteristics []string `json:"characteristics"`
}

// Service computes insights over the book store and user directory.
type Service struct {
	books store.BookStore
	users store.UserDirectory
	model llm.Client
}

func NewService(books store.BookStore, users store.UserDirectory, model llm.Client) *Service {
	return &Service{books: books, users: users, model: model}
}

// Library builds insights for the whole library, or for one user when
// scopedUserID is non-empty. Admin accounts carry no reading habits and get
// an empty payload.
func (s *Service) Library(ctx context.Context, scopedUserID string) (*LibraryInsights, error) {
	if scopedUserID != "" {
		user, err := s.users.ByID(ctx, scopedUserID)
		if err == nil && user != nil && user.IsAdmin() {
			return &LibraryInsights{
				Summary:     "Admin users are excluded from reading insights.",
				Insights:    []Item{},
				Statistics:  Statistics{GenreDistribution: map[string]int{}, StatusDistribution: map[string]int{}},
				GeneratedAt: time.Now().UTC(),
			}, nil
		}
	}

	scoped := scopedUserID != ""

	var books []types.Book
	var err error
	if scoped {
		books, err = s.books.ByOwner(ctx, scopedUserID)
	} else {
		books, err = s.books.AllForAdmin(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	members, err := s.memberUsers(ctx)
	if err != nil {
		return nil, err
	}
	books = ownedByAny(books, members)

	stats := calculateStatistics(books, members, scoped)
	items := autoInsights(books, stats)

	question := "Summarize insights for the entire library"
	if scoped {
		question = "Summarize this user's reading habits"
	}
	summary, err := s.model.Explain(ctx, question, statsContext(stats, scoped))
	if err != nil {
		slog.Warn("insight summary generation failed", "error", err)
		summary = summaryFallback
	}

	return &LibraryInsights{
		Summary:     summary,
		Insights:    items,
		Statistics:  stats,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Habits summarizes one user's reading behavior. Admin users have none.
func (s *Service) Habits(ctx context.Context, userID string) (*ReadingHabits, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil || user == nil {
		return nil, apperr.NewNotFound(fmt.Sprintf("user %s not found", userID))
	}
	if user.IsAdmin() {
		return nil, apperr.NewValidation("admin users do not have reading habits")
	}

	books, err := s.books.ByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	var completed, inProgress int
	for _, b := range books {
		switch b.Status {
		case types.StatusCompleted:
			completed++
		case types.StatusReading:
			inProgress++
		}
	}
	genres := preferredGenres(books)

	userCtx := fmt.Sprintf(
		"User: %s\nTotal Books: %d\nCompleted: %d\nIn Progress: %d\nTop Genres: %s",
		user.UserName, len(books), completed, inProgress, strings.Join(genres, ", "),
	)
	summary, err := s.model.Explain(ctx, "Summarize this user's reading habits", userCtx)
	if err != nil {
		summary = habitsFallback
	}

	return &ReadingHabits{
		UserID:          userID,
		UserName:        user.UserName,
		Summary:         summary,
		PreferredGenres: genres,
		TotalBooks:      len(books),
		CompletedBooks:  completed,
		BooksInProgress: inProgress,
		ReadingPattern:  "Derived from activity",
		Characteristics: characteristics(len(books), completed, inProgress, genres),
	}, nil
}

func (s *Service) memberUsers(ctx context.Context) ([]types.User, error) {
	all, err := s.users.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	var members []types.User
	for _, u := range all {
		if !u.IsAdmin() {
			members = append(members, u)
		}
	}
	return members, nil
}

// ownedByAny keeps only books whose owner is among users. Admin-owned
// records never contribute to insights.
func ownedByAny(books []types.Book, users []types.User) []types.Book {
	allowed := map[string]bool{}
	for _, u := range users {
		allowed[u.ID] = true
	}
	var out []types.Book
	for _, b := range books {
		if allowed[b.OwnerID] {
			out = append(out, b)
		}
	}
	return out
}

func calculateStatistics(books []types.Book, users []types.User, scoped bool) Statistics {
	stats := Statistics{
		TotalBooks:         len(books),
		MostPopularGenre:   "N/A",
		GenreDistribution:  map[string]int{},
		StatusDistribution: map[string]int{},
	}
	if !scoped {
		n := len(users)
		stats.TotalUsers = &n
	}

	ownerCounts := map[string]int{}
	var genreOrder, ownerOrder []string
	for _, b := range books {
		genre := strings.TrimSpace(b.Genre)
		if genre == "" {
			genre = "Unknown"
		}
		if _, seen := stats.GenreDistribution[genre]; !seen {
			genreOrder = append(genreOrder, genre)
		}
		stats.GenreDistribution[genre]++
		stats.StatusDistribution[b.Status.String()]++
		if _, seen := ownerCounts[b.OwnerID]; !seen {
			ownerOrder = append(ownerOrder, b.OwnerID)
		}
		ownerCounts[b.OwnerID]++

		switch b.Status {
		case types.StatusCompleted:
			stats.CompletedBooks++
		case types.StatusReading:
			stats.InProgressBooks++
		}
	}

	if len(genreOrder) > 0 {
		sort.SliceStable(genreOrder, func(i, j int) bool {
			return stats.GenreDistribution[genreOrder[i]] > stats.GenreDistribution[genreOrder[j]]
		})
		stats.MostPopularGenre = genreOrder[0]
	}

	if !scoped && len(ownerOrder) > 0 {
		sort.SliceStable(ownerOrder, func(i, j int) bool {
			return ownerCounts[ownerOrder[i]] > ownerCounts[ownerOrder[j]]
		})
		for _, u := range users {
			if u.ID == ownerOrder[0] {
				name := u.UserName
				stats.MostActiveUser = &name
				break
			}
		}
	}

	return stats
}

func autoInsights(books []types.Book, stats Statistics) []Item {
	items := []Item{}
	if len(books) == 0 {
		return items
	}

	items = append(items, Item{
		Type:        "GENRE",
		Title:       "Most Read Genre",
		Description: fmt.Sprintf("%s is the most read genre.", stats.MostPopularGenre),
	})

	if stats.TotalBooks > 0 {
		rate := float64(stats.CompletedBooks) / float64(stats.TotalBooks) * 100
		if rate >= strongCompletionRate {
			items = append(items, Item{
				Type:        "COMPLETION",
				Title:       "Strong Completion Habit",
				Description: "The reader finishes most of the books they start.",
			})
		} else if rate < lowCompletionRate {
			items = append(items, Item{
				Type:        "COMPLETION",
				Title:       "Low Completion Rate",
				Description: "Many books are started but not completed.",
			})
		}
	}

	if stats.InProgressBooks > 1 {
		items = append(items, Item{
			Type:        "COMPLETION",
			Title:       "Multi-Book Reader",
			Description: "Multiple books are being read at the same time.",
		})
	} else if stats.InProgressBooks == 1 {
		items = append(items, Item{
			Type:        "COMPLETION",
			Title:       "Focused Reader",
			Description: "The reader usually focuses on one book at a time.",
		})
	}

	return items
}

func preferredGenres(books []types.Book) []string {
	counts := map[string]int{}
	var order []string
	for _, b := range books {
		if b.Genre == "" {
			continue
		}
		if _, seen := counts[b.Genre]; !seen {
			order = append(order, b.Genre)
		}
		counts[b.Genre]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > 3 {
		order = order[:3]
	}
	return order
}

func characteristics(total, completed, inProgress int, genres []string) []string {
	var out []string
	if total == 0 {
		return out
	}

	rate := float64(completed) / float64(total) * 100
	if rate >= strongCompletionRate {
		out = append(out, "Consistent reader")
	} else if rate < lowCompletionRate {
		out = append(out, "Starts more books than finishes")
	}

	if inProgress == 1 {
		out = append(out, "Focused reader")
	} else if inProgress > 1 {
		out = append(out, "Reads multiple books at once")
	}

	if len(genres) == 1 {
		out = append(out, "Genre-loyal reader")
	} else if len(genres) >= 3 {
		out = append(out, "Explores multiple genres")
	}

	return out
}

func statsContext(stats Statistics, scoped bool) string {
	var sb strings.Builder
	if scoped {
		sb.WriteString("User Library Overview\n")
	} else {
		sb.WriteString("Complete Library Overview\n")
	}
	fmt.Fprintf(&sb, "Total Books: %d\n", stats.TotalBooks)
	fmt.Fprintf(&sb, "Completed: %d\n", stats.CompletedBooks)
	fmt.Fprintf(&sb, "In Progress: %d\n", stats.InProgressBooks)
	fmt.Fprintf(&sb, "Most Popular Genre: %s\n", stats.MostPopularGenre)
	if !scoped {
		if stats.TotalUsers != nil {
			fmt.Fprintf(&sb, "Total Users: %d\n", *stats.TotalUsers)
		}
		if stats.MostActiveUser != nil {
			fmt.Fprintf(&sb, "Most Active User: %s\n", *stats.MostActiveUser)
		}
	}
	return sb.String()
}
