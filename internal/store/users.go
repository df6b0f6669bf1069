package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfwise/shelfwise/internal/types"
)

// UserDirectory looks up principals by id. Lookups are read-only from this
// subsystem's perspective.
type UserDirectory interface {
	ByID(ctx context.Context, id string) (*types.User, error)
	All(ctx context.Context) ([]types.User, error)
}

// PGUserDirectory implements UserDirectory over a pgx pool.
type PGUserDirectory struct {
	db *pgxpool.Pool
}

func NewPGUserDirectory(db *pgxpool.Pool) *PGUserDirectory {
	return &PGUserDirectory{db: db}
}

func (d *PGUserDirectory) ByID(ctx context.Context, id string) (*types.User, error) {
	var u types.User
	err := d.db.QueryRow(ctx, `
		SELECT id, user_name, role FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.UserName, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return &u, nil
}

func (d *PGUserDirectory) All(ctx context.Context) ([]types.User, error) {
	rows, err := d.db.Query(ctx, `SELECT id, user_name, role FROM users ORDER BY user_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.UserName, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
