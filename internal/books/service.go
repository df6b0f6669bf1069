// Package books implements library management: CRUD over the book store
// with ownership enforcement and cached-query invalidation on every write.
package books

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise/internal/apperr"
	"github.com/shelfwise/shelfwise/internal/assistant"
	"github.com/shelfwise/shelfwise/internal/store"
	"github.com/shelfwise/shelfwise/internal/types"
)

// Input carries the writable fields of a book.
type Input struct {
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Genre  string  `json:"genre"`
	Price  float64 `json:"price"`
	Status string  `json:"status"`
}

// Service wraps the book store with authorization and invalidation. Every
// successful mutation broadcasts an eviction for the owner's cached
// assistant queries.
type Service struct {
	store       store.BookStore
	broadcaster *assistant.Broadcaster
}

func NewService(s store.BookStore, b *assistant.Broadcaster) *Service {
	return &Service{store: s, broadcaster: b}
}

func (in *Input) validate() (*types.Book, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.NewValidation("title is required")
	}
	if strings.TrimSpace(in.Author) == "" {
		return nil, apperr.NewValidation("author is required")
	}
	if in.Price < 0 {
		return nil, apperr.NewValidation("price cannot be negative")
	}
	status := types.StatusNotStarted
	if in.Status != "" {
		parsed, ok := types.ParseReadingStatus(in.Status)
		if !ok {
			return nil, apperr.NewValidation(fmt.Sprintf("invalid reading status: %s", in.Status))
		}
		status = parsed
	}
	return &types.Book{
		Title:  strings.TrimSpace(in.Title),
		Author: strings.TrimSpace(in.Author),
		Genre:  strings.TrimSpace(in.Genre),
		Price:  in.Price,
		Status: status,
	}, nil
}

// Create adds a book to the caller's shelf.
func (s *Service) Create(ctx context.Context, ownerID string, in *Input) (*types.Book, error) {
	book, err := in.validate()
	if err != nil {
		return nil, err
	}
	book.ID = uuid.NewString()
	book.OwnerID = ownerID
	book.CreatedAt = time.Now().UTC()

	if err := s.store.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	slog.Info("book created", "book_id", book.ID, "owner_id", ownerID)
	s.broadcaster.Invalidate(ctx, ownerID)
	return book, nil
}

// Get returns a single book. Members can only read their own records.
func (s *Service) Get(ctx context.Context, caller *callerInfo, id string) (*types.Book, error) {
	book, err := s.fetchAuthorized(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Update replaces a book's writable fields. The owner never changes.
func (s *Service) Update(ctx context.Context, caller *callerInfo, id string, in *Input) (*types.Book, error) {
	existing, err := s.fetchAuthorized(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	updated, err := in.validate()
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	now := time.Now().UTC()
	updated.UpdatedAt = &now

	if err := s.store.Update(ctx, updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NewNotFound("book not found")
		}
		return nil, fmt.Errorf("update book: %w", err)
	}

	slog.Info("book updated", "book_id", id, "owner_id", existing.OwnerID)
	s.broadcaster.Invalidate(ctx, existing.OwnerID)
	return updated, nil
}

// Delete removes a book.
func (s *Service) Delete(ctx context.Context, caller *callerInfo, id string) error {
	existing, err := s.fetchAuthorized(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NewNotFound("book not found")
		}
		return fmt.Errorf("delete book: %w", err)
	}

	slog.Info("book deleted", "book_id", id, "owner_id", existing.OwnerID)
	s.broadcaster.Invalidate(ctx, existing.OwnerID)
	return nil
}

// List returns the caller's shelf.
func (s *Service) List(ctx context.Context, ownerID string) ([]types.Book, error) {
	books, err := s.store.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// ListAll returns every book. Admin only.
func (s *Service) ListAll(ctx context.Context, caller *callerInfo) ([]types.Book, error) {
	if !caller.admin {
		return nil, apperr.NewPermission("only admins can list all books")
	}
	books, err := s.store.AllForAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all books: %w", err)
	}
	return books, nil
}

// Search matches the caller's books by title or author substring.
func (s *Service) Search(ctx context.Context, ownerID, term string) ([]types.Book, error) {
	if strings.TrimSpace(term) == "" {
		return nil, apperr.NewValidation("search term is required")
	}
	books, err := s.store.Search(ctx, ownerID, term)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

// Count returns the size of the caller's shelf.
func (s *Service) Count(ctx context.Context, ownerID string) (int, error) {
	count, err := s.store.CountByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

// callerInfo is the identity slice the service needs for authorization.
type callerInfo struct {
	userID string
	admin  bool
}

// Caller builds the service's view of the authenticated principal.
func Caller(userID string, admin bool) *callerInfo {
	return &callerInfo{userID: userID, admin: admin}
}

func (s *Service) fetchAuthorized(ctx context.Context, caller *callerInfo, id string) (*types.Book, error) {
	book, err := s.store.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NewNotFound("book not found")
		}
		return nil, fmt.Errorf("load book: %w", err)
	}
	if !caller.admin && book.OwnerID != caller.userID {
		// Report foreign records as missing so members cannot probe for
		// other users' book IDs.
		return nil, apperr.NewNotFound("book not found")
	}
	return book, nil
}
