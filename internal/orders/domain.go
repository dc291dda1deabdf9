// Package orders implements checkout intake and order fulfilment tracking.
package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/larkspur-bakery/storefront/internal/shared"
)

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidCheckout wraps checkout payload problems.
	ErrInvalidCheckout = errors.New("invalid checkout")
	// ErrDuplicateCheckout indicates the idempotency key was already used.
	ErrDuplicateCheckout = errors.New("checkout already submitted")
	// ErrInvalidTransition indicates a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDuplicateNumber is returned by repositories on order number collision.
	ErrDuplicateNumber = errors.New("order number already exists")
	// ErrStatusChanged is returned by repositories when the stored status no
	// longer matches the expected one.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusInPreparation  Status = "in_preparation"
	StatusReady          Status = "ready"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusInPreparation, StatusCancelled},
	StatusInPreparation:  {StatusReady, StatusCancelled},
	StatusReady:          {StatusCompleted, StatusCancelled},
}

// ParseStatus validates a status name.
func ParseStatus(v string) (Status, error) {
	switch s := Status(v); s {
	case StatusPendingPayment, StatusPaid, StatusInPreparation, StatusReady, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, v)
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a customer order.
type Order struct {
	ID            int64     `json:"-"`
	PublicID      uuid.UUID `json:"public_id"`
	Number        string    `json:"number"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	DeliveryDate  time.Time `json:"delivery_date"`
	Notes         string    `json:"notes,omitempty"`
	Status        Status    `json:"status"`
	Currency      string    `json:"currency"`
	TotalCents    int64     `json:"total_cents"`
	Lines         []Line    `json:"lines"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Line is one product on an order, priced at checkout time.
type Line struct {
	ProductID      int64  `json:"product_id"`
	ProductSlug    string `json:"product_slug"`
	ProductName    string `json:"product_name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// Customer identifies who placed the order.
type Customer struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// CheckoutItem is a requested product and quantity.
type CheckoutItem struct {
	ProductSlug string `json:"product_slug" validate:"required,slug"`
	Quantity    int    `json:"quantity" validate:"required,min=1,max=50"`
}

// CheckoutRequest is the payload of POST /api/orders.
type CheckoutRequest struct {
	Customer       Customer       `json:"customer"`
	Items          []CheckoutItem `json:"items" validate:"required,min=1,max=20,unique=ProductSlug,dive"`
	DeliveryDate   string         `json:"delivery_date" validate:"required,datetime=2006-01-02"`
	Notes          string         `json:"notes" validate:"max=500"`
	IdempotencyKey string         `json:"idempotency_key" validate:"omitempty,max=128"`
}

// ListFilter narrows the admin order listing.
type ListFilter struct {
	Status Status
	Page   int
	Limit  int
}

// Normalize applies paging defaults.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 25
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}

// OrderPage is a page of orders.
type OrderPage struct {
	Items []Order `json:"items"`
	shared.Pagination
}
