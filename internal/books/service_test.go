package books

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shelfwise/shelfwise/internal/apperr"
	"github.com/shelfwise/shelfwise/internal/assistant"
	"github.com/shelfwise/shelfwise/internal/cache"
	"github.com/shelfwise/shelfwise/internal/store"
	"github.com/shelfwise/shelfwise/internal/types"
)

type fakeStore struct {
	books map[string]types.Book
}

func newFakeStore(books ...types.Book) *fakeStore {
	m := map[string]types.Book{}
	for _, b := range books {
		m[b.ID] = b
	}
	return &fakeStore{books: m}
}

func (f *fakeStore) ByID(ctx context.Context, id string) (*types.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (f *fakeStore) ByOwner(ctx context.Context, ownerID string) ([]types.Book, error) {
	var out []types.Book
	for _, b := range f.books {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ByOwnerAndGenre(ctx context.Context, ownerID, genre string) ([]types.Book, error) {
	return f.ByOwner(ctx, ownerID)
}

func (f *fakeStore) ByOwnerAndStatus(ctx context.Context, ownerID string, status types.ReadingStatus) ([]types.Book, error) {
	return f.ByOwner(ctx, ownerID)
}

func (f *fakeStore) AllForAdmin(ctx context.Context) ([]types.Book, error) {
	var out []types.Book
	for _, b := range f.books {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	owned, _ := f.ByOwner(ctx, ownerID)
	return len(owned), nil
}

func (f *fakeStore) Search(ctx context.Context, ownerID, term string) ([]types.Book, error) {
	return f.ByOwner(ctx, ownerID)
}

func (f *fakeStore) Create(ctx context.Context, book *types.Book) error {
	f.books[book.ID] = *book
	return nil
}

func (f *fakeStore) Update(ctx context.Context, book *types.Book) error {
	if _, ok := f.books[book.ID]; !ok {
		return store.ErrNotFound
	}
	f.books[book.ID] = *book
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.books[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.books, id)
	return nil
}

func noopBroadcaster() *assistant.Broadcaster {
	return assistant.NewBroadcaster(cache.New(nil, 0, nil), nil)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newFakeStore(), noopBroadcaster())

	cases := []struct {
		name string
		in   Input
	}{
		{"missing title", Input{Author: "Herbert"}},
		{"missing author", Input{Title: "Dune"}},
		{"negative price", Input{Title: "Dune", Author: "Herbert", Price: -1}},
		{"bad status", Input{Title: "Dune", Author: "Herbert", Status: "paused"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u1", &tc.in)
			if !apperr.IsValidation(err) {
				t.Errorf("Create() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestCreateDefaultsStatus(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, noopBroadcaster())

	book, err := svc.Create(context.Background(), "u1", &Input{Title: "Dune", Author: "Herbert", Price: 12.5})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if book.Status != types.StatusNotStarted {
		t.Errorf("Status = %q, want NotStarted default", book.Status)
	}
	if book.ID == "" {
		t.Error("ID not assigned")
	}
	if book.OwnerID != "u1" {
		t.Errorf("OwnerID = %q", book.OwnerID)
	}
	if _, ok := fs.books[book.ID]; !ok {
		t.Error("book not persisted")
	}
}

func TestMemberCannotTouchForeignBook(t *testing.T) {
	fs := newFakeStore(types.Book{ID: "b1", OwnerID: "u2", Title: "Dune", Author: "Herbert"})
	svc := NewService(fs, noopBroadcaster())
	member := Caller("u1", false)

	if _, err := svc.Get(context.Background(), member, "b1"); !apperr.IsNotFound(err) {
		t.Errorf("Get() error = %v, want NotFoundError (no existence probe)", err)
	}
	if _, err := svc.Update(context.Background(), member, "b1", &Input{Title: "X", Author: "Y"}); !apperr.IsNotFound(err) {
		t.Errorf("Update() error = %v, want NotFoundError", err)
	}
	if err := svc.Delete(context.Background(), member, "b1"); !apperr.IsNotFound(err) {
		t.Errorf("Delete() error = %v, want NotFoundError", err)
	}
	if _, ok := fs.books["b1"]; !ok {
		t.Error("foreign book was deleted")
	}
}

func TestAdminCanTouchAnyBook(t *testing.T) {
	fs := newFakeStore(types.Book{ID: "b1", OwnerID: "u2", Title: "Dune", Author: "Herbert", CreatedAt: time.Now()})
	svc := NewService(fs, noopBroadcaster())
	admin := Caller("a1", true)

	updated, err := svc.Update(context.Background(), admin, "b1", &Input{Title: "Dune", Author: "Herbert", Status: "Completed"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.OwnerID != "u2" {
		t.Errorf("OwnerID = %q, ownership must not change on update", updated.OwnerID)
	}
	if updated.Status != types.StatusCompleted {
		t.Errorf("Status = %q", updated.Status)
	}
	if updated.UpdatedAt == nil {
		t.Error("UpdatedAt not set")
	}

	if err := svc.Delete(context.Background(), admin, "b1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestListAllRequiresAdmin(t *testing.T) {
	svc := NewService(newFakeStore(), noopBroadcaster())

	if _, err := svc.ListAll(context.Background(), Caller("u1", false)); !apperr.IsPermission(err) {
		t.Errorf("ListAll() error = %v, want PermissionError", err)
	}
	if _, err := svc.ListAll(context.Background(), Caller("a1", true)); err != nil {
		t.Errorf("ListAll() admin error = %v", err)
	}
}

func TestSearchRequiresTerm(t *testing.T) {
	svc := NewService(newFakeStore(), noopBroadcaster())

	if _, err := svc.Search(context.Background(), "u1", "  "); !apperr.IsValidation(err) {
		t.Errorf("Search() error = %v, want ValidationError", err)
	}
}

func TestMutationsInvalidateCachedQueries(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	c := cache.New(rdb, time.Second, nil)

	fs := newFakeStore()
	svc := NewService(fs, assistant.NewBroadcaster(c, nil))

	mr.Set("aiquery:u1:abc123", `{}`)
	mr.Set("aiquery:admin:def456", `{}`)

	if _, err := svc.Create(context.Background(), "u1", &Input{Title: "Dune", Author: "Herbert"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !mr.Exists("aiquery:u1:abc123") && !mr.Exists("aiquery:admin:def456") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("cached query entries survived a mutation")
}
