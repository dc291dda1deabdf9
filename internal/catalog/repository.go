package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larkspur-bakery/storefront/internal/platform/db"
)

// Repository defines persistence operations for the catalog.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	GetByID(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) (Product, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const productColumns = `id, slug, name, kind, description, price_cents, currency, image_url, tags, is_active, created_at, updated_at`

func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	where, args := buildWhere(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY kind, name`
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0, filter.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *PGRepository) GetBySlug(ctx context.Context, slug string) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	return scanOne(row)
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanOne(row)
}

func (r *PGRepository) Create(ctx context.Context, p Product) (Product, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO products (slug, name, kind, description, price_cents, currency, image_url, tags, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10) RETURNING id`
	err := r.db.QueryRow(ctx, query, p.Slug, p.Name, string(p.Kind), p.Description, p.PriceCents, p.Currency, p.ImageURL, p.Tags, p.IsActive, now).Scan(&p.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Product{}, ErrDuplicateSlug
		}
		return Product{}, fmt.Errorf("catalog: insert product: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *PGRepository) Update(ctx context.Context, id int64, p Product) (Product, error) {
	const query = `UPDATE products SET slug = $1, name = $2, kind = $3, description = $4, price_cents = $5, currency = $6,
image_url = $7, tags = $8, is_active = $9, updated_at = $10 WHERE id = $11 RETURNING ` + productColumns
	row := r.db.QueryRow(ctx, query, p.Slug, p.Name, string(p.Kind), p.Description, p.PriceCents, p.Currency, p.ImageURL, p.Tags, p.IsActive, time.Now().UTC(), id)
	updated, err := scanOne(row)
	if err != nil && db.IsUniqueViolation(err) {
		return Product{}, ErrDuplicateSlug
	}
	return updated, err
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func buildWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active")
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		clauses = append(clauses, "kind = $"+strconv.Itoa(len(args)))
	}
	if filter.Tag != "" {
		args = append(args, strings.ToLower(filter.Tag))
		clauses = append(clauses, "$"+strconv.Itoa(len(args))+" = ANY(tags)")
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanOne(row pgx.Row) (Product, error) {
	p, err := scanProduct(row)
	if db.IsNoRows(err) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var kind string
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &kind, &p.Description, &p.PriceCents, &p.Currency, &p.ImageURL, &p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Kind = Kind(kind)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, nil
}

var _ Repository = (*PGRepository)(nil)
