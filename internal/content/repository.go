package content

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larkspur-bakery/storefront/internal/platform/db"
)

// Repository reads published posts.
type Repository interface {
	ListPublished(ctx context.Context, limit, offset int) ([]Post, error)
	CountPublished(ctx context.Context) (int, error)
	GetPublished(ctx context.Context, slug string) (Post, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

func (r *PGRepository) ListPublished(ctx context.Context, limit, offset int) ([]Post, error) {
	rows, err := r.db.Query(ctx, `SELECT id, slug, title, excerpt, published_at FROM posts
WHERE is_published AND published_at <= now() ORDER BY published_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("content: list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]Post, 0, limit)
	for rows.Next() {
		p := Post{IsPublished: true}
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.PublishedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *PGRepository) CountPublished(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM posts WHERE is_published AND published_at <= now()`).Scan(&total); err != nil {
		return 0, fmt.Errorf("content: count posts: %w", err)
	}
	return total, nil
}

func (r *PGRepository) GetPublished(ctx context.Context, slug string) (Post, error) {
	p := Post{IsPublished: true}
	err := r.db.QueryRow(ctx, `SELECT id, slug, title, excerpt, body_markdown, published_at FROM posts
WHERE slug = $1 AND is_published AND published_at <= now()`, slug).
		Scan(&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.BodyMarkdown, &p.PublishedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("content: get post: %w", err)
	}
	return p, nil
}

var _ Repository = (*PGRepository)(nil)
