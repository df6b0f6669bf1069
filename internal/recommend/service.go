// Package recommend generates book suggestions from the user's reading
// history via the language model, with a static popular-books fallback for
// empty libraries. Dismissed titles are remembered in the cache for a short
// window so they are not suggested again immediately.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise/internal/books"
	"github.com/shelfwise/shelfwise/internal/cache"
	"github.com/shelfwise/shelfwise/internal/llm"
	"github.com/shelfwise/shelfwise/internal/store"
	"github.com/shelfwise/shelfwise/internal/types"
)

const (
	dismissedPrefix = "dismissed_recommendations:"
	dismissedTTL    = 30 * time.Minute

	// DefaultCount is the number of suggestions when the request does not
	// specify one.
	DefaultCount = 5

	recommendSystemPrompt = "You are a smart book recommendation engine."
)

// Recommendation is one suggested book.
type Recommendation struct {
	Title          string  `json:"title"`
	Author         string  `json:"author"`
	Genre          string  `json:"genre"`
	EstimatedPrice float64 `json:"estimatedPrice"`
	Reason         string  `json:"reason"`
}

// Response is the recommendations payload.
type Response struct {
	Success         bool             `json:"success"`
	Message         string           `json:"message"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Type            string           `json:"recommendationType,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// ActionResponse acknowledges a save or dismiss operation.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service builds recommendations over the book store, model, and cache.
type Service struct {
	store store.BookStore
	model llm.Client
	cache *cache.Bounded
	books *books.Service
}

func NewService(s store.BookStore, model llm.Client, c *cache.Bounded, library *books.Service) *Service {
	return &Service{store: s, model: model, cache: c, books: library}
}

// Recommendations suggests count books for the user. An empty shelf gets
// the static popular list; any pipeline failure degrades to an unsuccessful
// response instead of an error.
func (s *Service) Recommendations(ctx context.Context, userID string, count int) *Response {
	if count <= 0 {
		count = DefaultCount
	}

	owned, err := s.store.ByOwner(ctx, userID)
	if err != nil {
		slog.Error("load books for recommendations failed", "user_id", userID, "error", err)
		return unavailable()
	}

	if len(owned) == 0 {
		return &Response{
			Success:         true,
			Message:         "You dont have any books yet. Here are some popular recommendations:",
			Recommendations: popularBooks(count),
			Type:            "Popular",
			Timestamp:       time.Now().UTC(),
		}
	}

	dismissed := s.dismissedSet(ctx, userID)

	raw, err := s.model.Complete(ctx, recommendSystemPrompt, buildPrompt(owned, dismissed, count))
	if err != nil {
		slog.Error("recommendation generation failed", "user_id", userID, "error", err)
		return unavailable()
	}

	recs := parseModelResponse(raw)
	filtered := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if dismissed[r.Title] {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == count {
			break
		}
	}

	return &Response{
		Success:         true,
		Message:         "Here are personalized recommendations based on your reading history:",
		Recommendations: filtered,
		Type:            "AI-Generated",
		Timestamp:       time.Now().UTC(),
	}
}

// Save adds a recommended book to the user's library as not started.
func (s *Service) Save(ctx context.Context, userID string, rec *Recommendation) (*ActionResponse, error) {
	_, err := s.books.Create(ctx, userID, &books.Input{
		Title:  rec.Title,
		Author: rec.Author,
		Genre:  rec.Genre,
		Price:  rec.EstimatedPrice,
	})
	if err != nil {
		return nil, err
	}
	return &ActionResponse{Success: true, Message: "Book added to your library."}, nil
}

// Dismiss records a title the user does not want suggested again. The
// dismissed set lives in the cache with a fixed TTL; on an unreachable
// cache the dismissal is silently lost, which only means the title may
// reappear.
func (s *Service) Dismiss(ctx context.Context, userID, title string) *ActionResponse {
	key := dismissedPrefix + userID

	dismissed := s.dismissedSet(ctx, userID)
	dismissed[title] = true

	titles := make([]string, 0, len(dismissed))
	for t := range dismissed {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	s.cache.Set(ctx, key, titles, dismissedTTL)

	return &ActionResponse{Success: true, Message: "Book dismissed"}
}

func (s *Service) dismissedSet(ctx context.Context, userID string) map[string]bool {
	var titles []string
	s.cache.Get(ctx, dismissedPrefix+userID, &titles)
	set := make(map[string]bool, len(titles))
	for _, t := range titles {
		set[t] = true
	}
	return set
}

func buildPrompt(owned []types.Book, dismissed map[string]bool, count int) string {
	genreCounts := map[string]int{}
	var genreOrder []string
	for _, b := range owned {
		if _, seen := genreCounts[b.Genre]; !seen {
			genreOrder = append(genreOrder, b.Genre)
		}
		genreCounts[b.Genre]++
	}
	genres := make([]string, 0, len(genreOrder))
	for _, g := range genreOrder {
		genres = append(genres, fmt.Sprintf("%s: %d books", g, genreCounts[g]))
	}

	var completed []string
	for _, b := range owned {
		if b.Status == types.StatusCompleted {
			completed = append(completed, b.Title)
			if len(completed) == 10 {
				break
			}
		}
	}

	dismissedTitles := make([]string, 0, len(dismissed))
	for t := range dismissed {
		dismissedTitles = append(dismissedTitles, t)
	}
	sort.Strings(dismissedTitles)

	return fmt.Sprintf(`User reading history analysis:
- Genres owned: %s
- Completed books: %s

Recommend %d books the user has NOT read.
Mix genres proportionally based on the user's reading habits.
Do NOT repeat any owned books or dismissed books:
%s

Return ONLY valid JSON in this format:
{
  "recommendations": [
    {
      "title": "",
      "author": "",
      "genre": "",
      "estimatedPrice": 0,
      "reason": ""
    }
  ]
}`,
		strings.Join(genres, ", "),
		strings.Join(completed, ", "),
		count,
		strings.Join(dismissedTitles, ", "),
	)
}

func parseModelResponse(raw string) []Recommendation {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, "```json", ""), "```", ""))

	var parsed struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		slog.Error("recommendation response undecodable", "raw", raw, "error", err)
		return nil
	}
	return parsed.Recommendations
}

func unavailable() *Response {
	return &Response{
		Success:   false,
		Message:   "Unable to generate recommendations at this time.",
		Timestamp: time.Now().UTC(),
	}
}

func popularBooks(count int) []Recommendation {
	popular := []Recommendation{
		{Title: "1984", Author: "George Orwell", Genre: "Dystopian", EstimatedPrice: 15.99, Reason: "A universally acclaimed classic."},
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", Genre: "Fantasy", EstimatedPrice: 19.99, Reason: "A timeless fantasy adventure."},
		{Title: "To Kill a Mockingbird", Author: "Harper Lee", Genre: "Classic", EstimatedPrice: 14.99, Reason: "A beloved literary masterpiece."},
		{Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", EstimatedPrice: 18.99, Reason: "One of the most influential sci-fi novels ever written."},
	}
	if count < len(popular) {
		return popular[:count]
	}
	return popular
}
