package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larkspur-bakery/storefront/internal/platform/db"
)

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByNumber(ctx context.Context, number string) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, number string, from, to Status, actor string) (Order, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const orderColumns = `id, public_id, number, customer_name, customer_email, customer_phone,
delivery_date, notes, status, currency, total_cents, created_at, updated_at`

// Create inserts the order and its lines in one transaction, filling in the
// generated ID and timestamps.
func (r *PGRepository) Create(ctx context.Context, order *Order) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO orders (public_id, number, customer_name, customer_email, customer_phone,
delivery_date, notes, status, currency, total_cents)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id, created_at, updated_at`,
			order.PublicID, order.Number, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
			order.DeliveryDate, order.Notes, string(order.Status), order.Currency, order.TotalCents,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateNumber
			}
			return fmt.Errorf("orders: insert order: %w", err)
		}

		batch := &pgx.Batch{}
		for _, line := range order.Lines {
			batch.Queue(`INSERT INTO order_lines (order_id, product_id, product_slug, product_name, unit_price_cents, quantity, line_total_cents)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				order.ID, line.ProductID, line.ProductSlug, line.ProductName, line.UnitPriceCents, line.Quantity, line.LineTotalCents)
		}
		br := tx.SendBatch(ctx, batch)
		for range order.Lines {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("orders: insert line: %w", err)
			}
		}
		return br.Close()
	})
}

// GetByNumber loads an order and its lines.
func (r *PGRepository) GetByNumber(ctx context.Context, number string) (Order, error) {
	return getByNumber(ctx, r.pool, number)
}

func getByNumber(ctx context.Context, q db.Querier, number string) (Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1`, number))
	if err != nil {
		if db.IsNoRows(err) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("orders: get order: %w", err)
	}
	rows, err := q.Query(ctx, `SELECT product_id, product_slug, product_name, unit_price_cents, quantity, line_total_cents
FROM order_lines WHERE order_id = $1 ORDER BY id`, order.ID)
	if err != nil {
		return Order{}, fmt.Errorf("orders: get lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ProductID, &line.ProductSlug, &line.ProductName, &line.UnitPriceCents, &line.Quantity, &line.LineTotalCents); err != nil {
			return Order{}, err
		}
		order.Lines = append(order.Lines, line)
	}
	return order, rows.Err()
}

// List returns orders newest first without their lines.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	filter = filter.Normalize()
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("orders: count: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("orders: list: %w", err)
	}
	defer rows.Close()

	items := make([]Order, 0, filter.Limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, order)
	}
	return items, total, rows.Err()
}

// UpdateStatus moves the order from one status to another and records the
// change. ErrStatusChanged is returned when the stored status is not from.
func (r *PGRepository) UpdateStatus(ctx context.Context, number string, from, to Status, actor string) (Order, error) {
	var updated Order
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `UPDATE orders SET status = $1, updated_at = now()
WHERE number = $2 AND status = $3 RETURNING id`, string(to), number, string(from)).Scan(&id)
		if err != nil {
			if db.IsNoRows(err) {
				return ErrStatusChanged
			}
			return fmt.Errorf("orders: update status: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO order_status_events (order_id, from_status, to_status, changed_by)
VALUES ($1,$2,$3,$4)`, id, string(from), string(to), actor); err != nil {
			return fmt.Errorf("orders: record status event: %w", err)
		}
		updated, err = getByNumber(ctx, tx, number)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	return updated, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(&o.ID, &o.PublicID, &o.Number, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.DeliveryDate, &o.Notes, &status, &o.Currency, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	o.Status = Status(status)
	return o, err
}

var _ Repository = (*PGRepository)(nil)
