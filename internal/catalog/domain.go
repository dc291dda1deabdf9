// Package catalog serves the bakery's cakes and gift hampers.
package catalog

import (
	"errors"
	"time"

	"github.com/larkspur-bakery/storefront/internal/shared"
)

// Kind classifies a product.
type Kind string

const (
	KindCake   Kind = "cake"
	KindHamper Kind = "hamper"
)

// DefaultCurrency is used when a product is created without one.
const DefaultCurrency = "GBP"

var (
	// ErrNotFound indicates the product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateSlug indicates another product already uses the slug.
	ErrDuplicateSlug = errors.New("product slug already in use")
	// ErrInvalidProduct wraps payload validation failures.
	ErrInvalidProduct = errors.New("invalid product")
)

// Product is a sellable catalog item.
type Product struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Kind        Kind      `json:"kind"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	ImageURL    string    `json:"image_url,omitempty"`
	Tags        []string  `json:"tags"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Slug        string   `json:"slug" validate:"required,max=120,slug"`
	Name        string   `json:"name" validate:"required,max=200"`
	Kind        Kind     `json:"kind" validate:"required,oneof=cake hamper"`
	Description string   `json:"description" validate:"max=4000"`
	PriceCents  int64    `json:"price_cents" validate:"gt=0"`
	Currency    string   `json:"currency" validate:"omitempty,len=3,uppercase"`
	ImageURL    string   `json:"image_url" validate:"omitempty,url"`
	Tags        []string `json:"tags" validate:"max=20,dive,required,max=40"`
	IsActive    bool     `json:"is_active"`
}

// ListFilter narrows catalog listings.
type ListFilter struct {
	Kind       Kind
	Tag        string
	Page       int
	Limit      int
	ActiveOnly bool
}

// ProductPage is a paginated listing.
type ProductPage struct {
	Items []Product `json:"items"`
	shared.Pagination
}

// Normalize clamps pagination into sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 24
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}

func (in ProductInput) toProduct() Product {
	currency := in.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	return Product{
		Slug:        in.Slug,
		Name:        in.Name,
		Kind:        in.Kind,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Currency:    currency,
		ImageURL:    in.ImageURL,
		Tags:        tags,
		IsActive:    in.IsActive,
	}
}
