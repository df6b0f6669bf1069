package insights

import (
	"context"
	"errors"
	"testing"

	"github.com/shelfwise/shelfwise/internal/apperr"
	"github.com/shelfwise/shelfwise/internal/store"
	"github.com/shelfwise/shelfwise/internal/types"
)

type fakeBooks struct {
	books []types.Book
}

func (f *fakeBooks) ByID(ctx context.Context, id string) (*types.Book, error) {
	return nil, store.ErrNotFound
}

func (f *fakeBooks) ByOwner(ctx context.Context, ownerID string) ([]types.Book, error) {
	var out []types.Book
	for _, b := range f.books {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBooks) ByOwnerAndGenre(ctx context.Context, ownerID, genre string) ([]types.Book, error) {
	return f.ByOwner(ctx, ownerID)
}

func (f *fakeBooks) ByOwnerAndStatus(ctx context.Context, ownerID string, status types.ReadingStatus) ([]types.Book, error) {
	return f.ByOwner(ctx, ownerID)
}

func (f *fakeBooks) AllForAdmin(ctx context.Context) ([]types.Book, error) {
	return f.books, nil
}

func (f *fakeBooks) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	owned, _ := f.ByOwner(ctx, ownerID)
	return len(owned), nil
}

func (f *fakeBooks) Search(ctx context.Context, ownerID, term string) ([]types.Book, error) {
	return f.ByOwner(ctx, ownerID)
}

func (f *fakeBooks) Create(ctx context.Context, book *types.Book) error { return nil }
func (f *fakeBooks) Update(ctx context.Context, book *types.Book) error { return nil }
func (f *fakeBooks) Delete(ctx context.Context, id string) error        { return nil }

type fakeUsers struct {
	users []types.User
}

func (f *fakeUsers) ByID(ctx context.Context, id string) (*types.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) All(ctx context.Context) ([]types.User, error) {
	return f.users, nil
}

type fakeModel struct {
	out string
	err error
}

func (m *fakeModel) Interpret(ctx context.Context, q, c string) (string, error) {
	return m.out, m.err
}

func (m *fakeModel) Explain(ctx context.Context, q, d string) (string, error) {
	return m.out, m.err
}

func (m *fakeModel) Complete(ctx context.Context, s, u string) (string, error) {
	return m.out, m.err
}

func b(owner, genre string, status types.ReadingStatus) types.Book {
	return types.Book{OwnerID: owner, Title: "t", Author: "a", Genre: genre, Status: status}
}

func TestLibraryInsightsForWholeLibrary(t *testing.T) {
	books := &fakeBooks{books: []types.Book{
		b("u1", "Fiction", types.StatusCompleted),
		b("u1", "Fiction", types.StatusCompleted),
		b("u2", "Mystery", types.StatusReading),
		b("admin1", "Manuals", types.StatusReading),
	}}
	users := &fakeUsers{users: []types.User{
		{ID: "u1", UserName: "alice", Role: types.RoleMember},
		{ID: "u2", UserName: "bob", Role: types.RoleMember},
		{ID: "admin1", UserName: "root", Role: types.RoleAdmin},
	}}
	svc := NewService(books, users, &fakeModel{out: "A summary."})

	got, err := svc.Library(context.Background(), "")
	if err != nil {
		t.Fatalf("Library() error = %v", err)
	}
	if got.Summary != "A summary." {
		t.Errorf("Summary = %q", got.Summary)
	}
	if got.Statistics.TotalBooks != 3 {
		t.Errorf("TotalBooks = %d, want 3 (admin books excluded)", got.Statistics.TotalBooks)
	}
	if got.Statistics.TotalUsers == nil || *got.Statistics.TotalUsers != 2 {
		t.Errorf("TotalUsers = %v, want 2 members", got.Statistics.TotalUsers)
	}
	if got.Statistics.MostPopularGenre != "Fiction" {
		t.Errorf("MostPopularGenre = %q", got.Statistics.MostPopularGenre)
	}
	if got.Statistics.MostActiveUser == nil || *got.Statistics.MostActiveUser != "alice" {
		t.Errorf("MostActiveUser = %v, want alice", got.Statistics.MostActiveUser)
	}
	if got.Statistics.GenreDistribution["Fiction"] != 2 {
		t.Errorf("GenreDistribution = %v", got.Statistics.GenreDistribution)
	}
}

func TestLibraryInsightsScopedToUser(t *testing.T) {
	books := &fakeBooks{books: []types.Book{
		b("u1", "Fiction", types.StatusCompleted),
		b("u2", "Mystery", types.StatusReading),
	}}
	users := &fakeUsers{users: []types.User{
		{ID: "u1", UserName: "alice", Role: types.RoleMember},
		{ID: "u2", UserName: "bob", Role: types.RoleMember},
	}}
	svc := NewService(books, users, &fakeModel{out: "A summary."})

	got, err := svc.Library(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Library() error = %v", err)
	}
	if got.Statistics.TotalBooks != 1 {
		t.Errorf("TotalBooks = %d, want 1", got.Statistics.TotalBooks)
	}
	if got.Statistics.TotalUsers != nil {
		t.Error("TotalUsers set for a user-scoped view")
	}
	if got.Statistics.MostActiveUser != nil {
		t.Error("MostActiveUser set for a user-scoped view")
	}
}

func TestLibraryInsightsExcludesAdmins(t *testing.T) {
	users := &fakeUsers{users: []types.User{
		{ID: "admin1", UserName: "root", Role: types.RoleAdmin},
	}}
	svc := NewService(&fakeBooks{}, users, &fakeModel{out: "unused"})

	got, err := svc.Library(context.Background(), "admin1")
	if err != nil {
		t.Fatalf("Library() error = %v", err)
	}
	if got.Summary != "Admin users are excluded from reading insights." {
		t.Errorf("Summary = %q", got.Summary)
	}
	if len(got.Insights) != 0 {
		t.Errorf("Insights = %v, want empty", got.Insights)
	}
}

func TestLibrarySummaryFallsBackWhenModelFails(t *testing.T) {
	books := &fakeBooks{books: []types.Book{b("u1", "Fiction", types.StatusCompleted)}}
	users := &fakeUsers{users: []types.User{{ID: "u1", UserName: "alice", Role: types.RoleMember}}}
	svc := NewService(books, users, &fakeModel{err: errors.New("provider down")})

	got, err := svc.Library(context.Background(), "")
	if err != nil {
		t.Fatalf("Library() error = %v", err)
	}
	if got.Summary != summaryFallback {
		t.Errorf("Summary = %q, want fallback", got.Summary)
	}
	if got.Statistics.TotalBooks != 1 {
		t.Error("statistics missing despite model failure")
	}
}

func TestAutoInsightThresholds(t *testing.T) {
	cases := []struct {
		name       string
		books      []types.Book
		wantTitles []string
	}{
		{
			name:       "empty library has no insights",
			books:      nil,
			wantTitles: []string{},
		},
		{
			name: "strong completion",
			books: []types.Book{
				b("u1", "Fiction", types.StatusCompleted),
				b("u1", "Fiction", types.StatusCompleted),
				b("u1", "Fiction", types.StatusCompleted),
				b("u1", "Fiction", types.StatusNotStarted),
			},
			wantTitles: []string{"Most Read Genre", "Strong Completion Habit"},
		},
		{
			name: "low completion and multi-book",
			books: []types.Book{
				b("u1", "Fiction", types.StatusReading),
				b("u1", "Fiction", types.StatusReading),
				b("u1", "Fiction", types.StatusNotStarted),
			},
			wantTitles: []string{"Most Read Genre", "Low Completion Rate", "Multi-Book Reader"},
		},
		{
			name: "focused reader",
			books: []types.Book{
				b("u1", "Fiction", types.StatusReading),
				b("u1", "Fiction", types.StatusCompleted),
			},
			wantTitles: []string{"Most Read Genre", "Focused Reader"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stats := calculateStatistics(tc.books, nil, true)
			items := autoInsights(tc.books, stats)

			if len(items) != len(tc.wantTitles) {
				t.Fatalf("items = %v, want titles %v", items, tc.wantTitles)
			}
			for i, title := range tc.wantTitles {
				if items[i].Title != title {
					t.Errorf("item %d = %q, want %q", i, items[i].Title, title)
				}
			}
		})
	}
}

func TestHabits(t *testing.T) {
	books := &fakeBooks{books: []types.Book{
		b("u1", "Fiction", types.StatusCompleted),
		b("u1", "Fiction", types.StatusCompleted),
		b("u1", "Mystery", types.StatusReading),
		b("u1", "SciFi", types.StatusNotStarted),
	}}
	users := &fakeUsers{users: []types.User{
		{ID: "u1", UserName: "alice", Role: types.RoleMember},
		{ID: "admin1", UserName: "root", Role: types.RoleAdmin},
	}}
	svc := NewService(books, users, &fakeModel{out: "Reads a lot."})

	t.Run("member habits", func(t *testing.T) {
		got, err := svc.Habits(context.Background(), "u1")
		if err != nil {
			t.Fatalf("Habits() error = %v", err)
		}
		if got.TotalBooks != 4 || got.CompletedBooks != 2 || got.BooksInProgress != 1 {
			t.Errorf("counts = %+v", got)
		}
		if len(got.PreferredGenres) != 3 || got.PreferredGenres[0] != "Fiction" {
			t.Errorf("PreferredGenres = %v", got.PreferredGenres)
		}
		wantChars := []string{"Focused reader", "Explores multiple genres"}
		if len(got.Characteristics) != len(wantChars) {
			t.Fatalf("Characteristics = %v, want %v", got.Characteristics, wantChars)
		}
		for i, c := range wantChars {
			if got.Characteristics[i] != c {
				t.Errorf("characteristic %d = %q, want %q", i, got.Characteristics[i], c)
			}
		}
	})

	t.Run("admin has no habits", func(t *testing.T) {
		_, err := svc.Habits(context.Background(), "admin1")
		if !apperr.IsValidation(err) {
			t.Errorf("Habits() error = %v, want ValidationError", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Habits(context.Background(), "ghost")
		if !apperr.IsNotFound(err) {
			t.Errorf("Habits() error = %v, want NotFoundError", err)
		}
	})

	t.Run("model failure falls back", func(t *testing.T) {
		svc := NewService(books, users, &fakeModel{err: errors.New("down")})
		got, err := svc.Habits(context.Background(), "u1")
		if err != nil {
			t.Fatalf("Habits() error = %v", err)
		}
		if got.Summary != habitsFallback {
			t.Errorf("Summary = %q, want fallback", got.Summary)
		}
	})
}
