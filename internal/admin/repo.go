package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larkspur-bakery/storefront/internal/platform/db"
	"github.com/larkspur-bakery/storefront/internal/shared"
)

// Repository defines persistence operations for admin accounts.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	RecordLogin(ctx context.Context, id int64, at time.Time) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches an admin by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT id, email, password_hash, is_active, last_login_at, created_at, updated_at
FROM admin_users WHERE lower(email) = lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("admin: find by email: %w", err)
	}
	return &u, nil
}

// RecordLogin stamps the last successful login.
func (r *PGRepository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE admin_users SET last_login_at = $1 WHERE id = $2`, at.UTC(), id)
	return err
}

var _ Repository = (*PGRepository)(nil)
