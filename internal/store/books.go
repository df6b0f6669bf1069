// Package store holds the PostgreSQL-backed persistence for books and the
// user directory. Read paths used by the assistant are plain filtered
// retrievals; all aggregation happens in the dispatch handlers.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfwise/shelfwise/internal/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// BookStore exposes filtered, ordered retrieval of book records plus the
// CRUD operations the REST surface needs.
type BookStore interface {
	ByID(ctx context.Context, id string) (*types.Book, error)
	ByOwner(ctx context.Context, ownerID string) ([]types.Book, error)
	ByOwnerAndGenre(ctx context.Context, ownerID, genre string) ([]types.Book, error)
	ByOwnerAndStatus(ctx context.Context, ownerID string, status types.ReadingStatus) ([]types.Book, error)
	AllForAdmin(ctx context.Context) ([]types.Book, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Search(ctx context.Context, ownerID, term string) ([]types.Book, error)

	Create(ctx context.Context, book *types.Book) error
	Update(ctx context.Context, book *types.Book) error
	Delete(ctx context.Context, id string) error
}

// PGBookStore implements BookStore over a pgx pool.
type PGBookStore struct {
	db *pgxpool.Pool
}

func NewPGBookStore(db *pgxpool.Pool) *PGBookStore {
	return &PGBookStore{db: db}
}

const bookColumns = `id, owner_id, title, author, genre, price, status, created_at, updated_at`

func scanBook(row pgx.Row) (*types.Book, error) {
	var b types.Book
	err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Genre, &b.Price, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func collectBooks(rows pgx.Rows) ([]types.Book, error) {
	defer rows.Close()
	var books []types.Book
	for rows.Next() {
		var b types.Book
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Genre, &b.Price, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *PGBookStore) ByID(ctx context.Context, id string) (*types.Book, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("query book by id: %w", err)
	}
	return book, nil
}

func (s *PGBookStore) ByOwner(ctx context.Context, ownerID string) ([]types.Book, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query books by owner: %w", err)
	}
	return collectBooks(rows)
}

func (s *PGBookStore) ByOwnerAndGenre(ctx context.Context, ownerID, genre string) ([]types.Book, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE owner_id = $1 AND genre ILIKE '%' || $2 || '%'
		ORDER BY title ASC
	`, ownerID, genre)
	if err != nil {
		return nil, fmt.Errorf("query books by genre: %w", err)
	}
	return collectBooks(rows)
}

func (s *PGBookStore) ByOwnerAndStatus(ctx context.Context, ownerID string, status types.ReadingStatus) ([]types.Book, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE owner_id = $1 AND status = $2
		ORDER BY COALESCE(updated_at, created_at) DESC
	`, ownerID, status)
	if err != nil {
		return nil, fmt.Errorf("query books by status: %w", err)
	}
	return collectBooks(rows)
}

func (s *PGBookStore) AllForAdmin(ctx context.Context) ([]types.Book, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookColumns+` FROM books
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all books: %w", err)
	}
	return collectBooks(rows)
}

func (s *PGBookStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM books WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count books by owner: %w", err)
	}
	return count, nil
}

func (s *PGBookStore) Search(ctx context.Context, ownerID, term string) ([]types.Book, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE owner_id = $1
		  AND (title ILIKE '%' || $2 || '%' OR author ILIKE '%' || $2 || '%')
		ORDER BY title ASC
	`, ownerID, term)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return collectBooks(rows)
}

func (s *PGBookStore) Create(ctx context.Context, book *types.Book) error {
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO books (id, owner_id, title, author, genre, price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, book.ID, book.OwnerID, book.Title, book.Author, book.Genre, book.Price, book.Status, book.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (s *PGBookStore) Update(ctx context.Context, book *types.Book) error {
	now := time.Now().UTC()
	book.UpdatedAt = &now
	tag, err := s.db.Exec(ctx, `
		UPDATE books
		SET title = $2, author = $3, genre = $4, price = $5, status = $6, updated_at = $7
		WHERE id = $1
	`, book.ID, book.Title, book.Author, book.Genre, book.Price, book.Status, book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGBookStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
