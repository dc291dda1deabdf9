package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/larkspur-bakery/storefront/internal/catalog"
	"github.com/larkspur-bakery/storefront/internal/observability"
	"github.com/larkspur-bakery/storefront/internal/platform/validate"
	"github.com/larkspur-bakery/storefront/internal/shared"
	"github.com/larkspur-bakery/storefront/jobs"
)

// IdempotencyModule namespaces checkout keys in the idempotency store.
const IdempotencyModule = "checkout"

const maxNumberAttempts = 3

// ProductLookup resolves public products by slug.
type ProductLookup interface {
	GetBySlug(ctx context.Context, slug string) (catalog.Product, error)
}

// IdempotencyClaimer guards against duplicate submissions.
type IdempotencyClaimer interface {
	Claim(ctx context.Context, module, key string) error
	Release(ctx context.Context, module, key string) error
}

// Notifier schedules customer emails.
type Notifier interface {
	EnqueueOrderConfirmation(ctx context.Context, payload jobs.OrderConfirmationPayload) error
}

// ServiceDeps collects Service dependencies.
type ServiceDeps struct {
	Repo        Repository
	Products    ProductLookup
	Idempotency IdempotencyClaimer
	Notifier    Notifier
	Metrics     *observability.Metrics
	Logger      *slog.Logger
	Numbers     *NumberGenerator
	Now         func() time.Time
}

// Service implements checkout and order management.
type Service struct {
	repo        Repository
	products    ProductLookup
	idempotency IdempotencyClaimer
	notifier    Notifier
	metrics     *observability.Metrics
	logger      *slog.Logger
	numbers     *NumberGenerator
	now         func() time.Time
	validator   *validator.Validate
}

// NewService constructs a Service.
func NewService(deps ServiceDeps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Numbers == nil {
		deps.Numbers = NewNumberGenerator(deps.Now, nil)
	}
	return &Service{
		repo:        deps.Repo,
		products:    deps.Products,
		idempotency: deps.Idempotency,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		numbers:     deps.Numbers,
		now:         deps.Now,
		validator:   validate.New(),
	}
}

// Checkout validates the request, prices it against the catalog and stores
// a new order awaiting payment.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (Order, error) {
	req.Customer.Email = strings.ToLower(strings.TrimSpace(req.Customer.Email))
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	if err := s.validator.Struct(req); err != nil {
		return Order{}, fmt.Errorf("%w: %s", ErrInvalidCheckout, validate.Summary(err))
	}
	delivery, err := time.Parse("2006-01-02", req.DeliveryDate)
	if err != nil {
		return Order{}, fmt.Errorf("%w: delivery_date: %v", ErrInvalidCheckout, err)
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if delivery.Before(today) {
		return Order{}, fmt.Errorf("%w: delivery_date must not be in the past", ErrInvalidCheckout)
	}

	order := Order{
		PublicID:      uuid.New(),
		CustomerName:  req.Customer.Name,
		CustomerEmail: req.Customer.Email,
		CustomerPhone: strings.TrimSpace(req.Customer.Phone),
		DeliveryDate:  delivery,
		Notes:         strings.TrimSpace(req.Notes),
		Status:        StatusPendingPayment,
	}
	if err := s.price(ctx, &order, req.Items); err != nil {
		return Order{}, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	if err := s.idempotency.Claim(ctx, IdempotencyModule, key); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return Order{}, ErrDuplicateCheckout
		}
		return Order{}, fmt.Errorf("orders: claim idempotency key: %w", err)
	}

	if err := s.persist(ctx, &order); err != nil {
		if relErr := s.idempotency.Release(context.WithoutCancel(ctx), IdempotencyModule, key); relErr != nil {
			s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", relErr))
		}
		return Order{}, err
	}

	s.metrics.OrderCreated(order.Currency)
	s.logger.Info("order created",
		slog.String("order", order.Number),
		slog.Int64("total_cents", order.TotalCents),
		slog.Int("lines", len(order.Lines)),
	)
	s.notify(ctx, order)
	return order, nil
}

func (s *Service) price(ctx context.Context, order *Order, items []CheckoutItem) error {
	order.Lines = make([]Line, 0, len(items))
	for _, item := range items {
		product, err := s.products.GetBySlug(ctx, item.ProductSlug)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("%w: unknown product %q", ErrInvalidCheckout, item.ProductSlug)
			}
			return fmt.Errorf("orders: resolve product %q: %w", item.ProductSlug, err)
		}
		if order.Currency == "" {
			order.Currency = product.Currency
		} else if product.Currency != order.Currency {
			return fmt.Errorf("%w: mixed currencies %s and %s", ErrInvalidCheckout, order.Currency, product.Currency)
		}
		line := Line{
			ProductID:      product.ID,
			ProductSlug:    product.Slug,
			ProductName:    product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: product.PriceCents * int64(item.Quantity),
		}
		order.TotalCents += line.LineTotalCents
		order.Lines = append(order.Lines, line)
	}
	return nil
}

func (s *Service) persist(ctx context.Context, order *Order) error {
	for attempt := 1; ; attempt++ {
		number, err := s.numbers.Next()
		if err != nil {
			return err
		}
		order.Number = number
		err = s.repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateNumber) || attempt == maxNumberAttempts {
			return err
		}
		s.logger.Warn("order number collision", slog.String("order", number), slog.Int("attempt", attempt))
	}
}

func (s *Service) notify(ctx context.Context, order Order) {
	if s.notifier == nil {
		return
	}
	payload := jobs.OrderConfirmationPayload{
		OrderNumber:   order.Number,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		DeliveryDate:  order.DeliveryDate,
		Currency:      order.Currency,
		TotalCents:    order.TotalCents,
	}
	for _, line := range order.Lines {
		payload.Lines = append(payload.Lines, jobs.OrderLine{
			Name:           line.ProductName,
			Quantity:       line.Quantity,
			LineTotalCents: line.LineTotalCents,
		})
	}
	if err := s.notifier.EnqueueOrderConfirmation(ctx, payload); err != nil {
		s.logger.Error("enqueue order confirmation", slog.String("order", order.Number), slog.Any("error", err))
	}
}

// Lookup returns the order only when email matches the one it was placed
// with. Mismatches are reported as ErrNotFound.
func (s *Service) Lookup(ctx context.Context, number, email string) (Order, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Order{}, ErrNotFound
	}
	order, err := s.repo.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return Order{}, err
	}
	if !strings.EqualFold(order.CustomerEmail, email) {
		return Order{}, ErrNotFound
	}
	return order, nil
}

// Get returns an order by number.
func (s *Service) Get(ctx context.Context, number string) (Order, error) {
	return s.repo.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
}

// List returns a page of orders.
func (s *Service) List(ctx context.Context, filter ListFilter) (OrderPage, error) {
	filter = filter.Normalize()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return OrderPage{}, err
	}
	return OrderPage{Items: items, Pagination: shared.NewPagination(filter.Page, filter.Limit, total)}, nil
}

// UpdateStatus applies a status transition on behalf of actor.
func (s *Service) UpdateStatus(ctx context.Context, number string, next Status, actor string) (Order, error) {
	if _, err := ParseStatus(string(next)); err != nil {
		return Order{}, err
	}
	current, err := s.Get(ctx, number)
	if err != nil {
		return Order{}, err
	}
	if current.Status.Terminal() {
		return Order{}, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, current.Status)
	}
	if !current.Status.CanTransitionTo(next) {
		return Order{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, next)
	}
	updated, err := s.repo.UpdateStatus(ctx, current.Number, current.Status, next, actor)
	if err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return Order{}, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		return Order{}, err
	}
	s.logger.Info("order status changed",
		slog.String("order", updated.Number),
		slog.String("from", string(current.Status)),
		slog.String("to", string(next)),
		slog.String("actor", actor),
	)
	return updated, nil
}
