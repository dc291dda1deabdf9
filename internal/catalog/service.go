package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/larkspur-bakery/storefront/internal/platform/cache"
	"github.com/larkspur-bakery/storefront/internal/platform/validate"
	"github.com/larkspur-bakery/storefront/internal/shared"
)

// Service wraps catalog business rules and the read-through cache.
type Service struct {
	repo      Repository
	cache     *cache.Versioned
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService constructs a Service. A nil cache disables caching.
func NewService(repo Repository, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, validator: validate.New(), logger: logger}
}

// List returns active products for the storefront.
func (s *Service) List(ctx context.Context, filter ListFilter) (ProductPage, error) {
	filter = filter.Normalize()
	filter.ActiveOnly = true
	filter.Tag = strings.ToLower(strings.TrimSpace(filter.Tag))
	if filter.Kind != "" && filter.Kind != KindCake && filter.Kind != KindHamper {
		return ProductPage{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidProduct, filter.Kind)
	}
	return cached(ctx, s, listKeyParts(filter), func(ctx context.Context) (ProductPage, error) {
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return ProductPage{}, err
		}
		return ProductPage{Items: items, Pagination: shared.NewPagination(filter.Page, filter.Limit, total)}, nil
	})
}

// ListAll returns every product, including inactive ones, for admins.
func (s *Service) ListAll(ctx context.Context, filter ListFilter) (ProductPage, error) {
	filter = filter.Normalize()
	filter.ActiveOnly = false
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ProductPage{}, err
	}
	return ProductPage{Items: items, Pagination: shared.NewPagination(filter.Page, filter.Limit, total)}, nil
}

// GetBySlug returns an active product.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Product, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return Product{}, ErrNotFound
	}
	p, err := cached(ctx, s, productKeyParts(slug), func(ctx context.Context) (Product, error) {
		return s.repo.GetBySlug(ctx, slug)
	})
	if err != nil {
		return Product{}, err
	}
	if !p.IsActive {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// GetByID returns a product regardless of status.
func (s *Service) GetByID(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	if err := s.validator.Struct(in); err != nil {
		return Product{}, fmt.Errorf("%w: %s", ErrInvalidProduct, validate.Summary(err))
	}
	created, err := s.repo.Create(ctx, in.toProduct())
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Update replaces an existing product.
func (s *Service) Update(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	if err := s.validator.Struct(in); err != nil {
		return Product{}, fmt.Errorf("%w: %s", ErrInvalidProduct, validate.Summary(err))
	}
	updated, err := s.repo.Update(ctx, id, in.toProduct())
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("catalog cache bump", slog.Any("error", err))
	}
}

// cached serves loader through the cache. Cache failures fall back to the
// loader; loader failures are returned unchanged and never cached.
func cached[T any](ctx context.Context, s *Service, parts []string, loader func(context.Context) (T, error)) (T, error) {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("catalog cache key", slog.Any("error", err))
		return loader(ctx)
	}
	var out T
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err == nil {
		return out, nil
	}
	var loaderErr *cache.LoaderError
	if errors.As(err, &loaderErr) {
		return out, loaderErr.Err
	}
	s.logger.Warn("catalog cache fetch", slog.String("key", key), slog.Any("error", err))
	return loader(ctx)
}
