package assistant

import (
	"context"
	"sync"

	"github.com/shelfwise/shelfwise/internal/store"
	"github.com/shelfwise/shelfwise/internal/types"
)

// memBooks is an in-memory BookStore that mirrors the SQL ordering
// contracts closely enough for handler tests: slices are returned in
// insertion order, so tests control ordering by fixture order.
type memBooks struct {
	mu    sync.Mutex
	books []types.Book
	calls int
	err   error
}

func (m *memBooks) snapshot() []types.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := make([]types.Book, len(m.books))
	copy(out, m.books)
	return out
}

func (m *memBooks) ByID(ctx context.Context, id string) (*types.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, b := range m.snapshot() {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memBooks) ByOwner(ctx context.Context, ownerID string) ([]types.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []types.Book
	for _, b := range m.snapshot() {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBooks) ByOwnerAndGenre(ctx context.Context, ownerID, genre string) ([]types.Book, error) {
	owned, err := m.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return filterByGenre(owned, genre), nil
}

func (m *memBooks) ByOwnerAndStatus(ctx context.Context, ownerID string, status types.ReadingStatus) ([]types.Book, error) {
	owned, err := m.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return filterByStatus(owned, status), nil
}

func (m *memBooks) AllForAdmin(ctx context.Context) ([]types.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot(), nil
}

func (m *memBooks) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	owned, err := m.ByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return len(owned), nil
}

func (m *memBooks) Search(ctx context.Context, ownerID, term string) ([]types.Book, error) {
	owned, err := m.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var out []types.Book
	for _, b := range owned {
		if containsFold(b.Title, term) || containsFold(b.Author, term) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBooks) Create(ctx context.Context, book *types.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books = append(m.books, *book)
	return nil
}

func (m *memBooks) Update(ctx context.Context, book *types.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.books {
		if m.books[i].ID == book.ID {
			m.books[i] = *book
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memBooks) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.books {
		if m.books[i].ID == id {
			m.books = append(m.books[:i], m.books[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memBooks) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type memUsers struct {
	users map[string]types.User
}

func (m *memUsers) ByID(ctx context.Context, id string) (*types.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) All(ctx context.Context) ([]types.User, error) {
	var out []types.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

// stubModel scripts the two model calls and counts invocations.
type stubModel struct {
	mu            sync.Mutex
	interpretOut  string
	interpretErr  error
	explainOut    string
	explainErr    error
	interpretN    int
	explainN      int
	onInterpret   func() // optional hook, runs inside Interpret
	lastDataJSON  string
	lastUserCtx   string
	lastQuestions []string
}

func (s *stubModel) Interpret(ctx context.Context, question, userContext string) (string, error) {
	s.mu.Lock()
	s.interpretN++
	s.lastUserCtx = userContext
	s.lastQuestions = append(s.lastQuestions, question)
	hook := s.onInterpret
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return s.interpretOut, s.interpretErr
}

func (s *stubModel) Explain(ctx context.Context, question, dataJSON string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explainN++
	s.lastDataJSON = dataJSON
	return s.explainOut, s.explainErr
}

func (s *stubModel) Complete(ctx context.Context, system, user string) (string, error) {
	return "", nil
}

func (s *stubModel) interpretCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interpretN
}

func (s *stubModel) explainCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.explainN
}
