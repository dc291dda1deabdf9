package orders_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/larkspur-bakery/storefront/internal/catalog"
	"github.com/larkspur-bakery/storefront/internal/orders"
	"github.com/larkspur-bakery/storefront/internal/shared"
	"github.com/larkspur-bakery/storefront/jobs"
)

type memRepo struct {
	mu         sync.Mutex
	orders     map[string]orders.Order
	nextID     int64
	createErrs []error
	events     []string
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]orders.Order{}}
}

func (m *memRepo) Create(ctx context.Context, order *orders.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, exists := m.orders[order.Number]; exists {
		return orders.ErrDuplicateNumber
	}
	m.nextID++
	order.ID = m.nextID
	order.CreatedAt = time.Date(2026, 4, 12, 10, 0, 0, 0, time.UTC)
	order.UpdatedAt = order.CreatedAt
	m.orders[order.Number] = *order
	return nil
}

func (m *memRepo) GetByNumber(ctx context.Context, number string) (orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[number]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (m *memRepo) List(ctx context.Context, filter orders.ListFilter) ([]orders.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []orders.Order
	for _, o := range m.orders {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) UpdateStatus(ctx context.Context, number string, from, to orders.Status, actor string) (orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[number]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	if o.Status != from {
		return orders.Order{}, orders.ErrStatusChanged
	}
	o.Status = to
	m.orders[number] = o
	m.events = append(m.events, string(from)+">"+string(to)+"@"+actor)
	return o, nil
}

type stubProducts map[string]catalog.Product

func (s stubProducts) GetBySlug(ctx context.Context, slug string) (catalog.Product, error) {
	p, ok := s[strings.ToLower(slug)]
	if !ok || !p.IsActive {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func bakeryProducts() stubProducts {
	return stubProducts{
		"lemon-drizzle":        {ID: 1, Slug: "lemon-drizzle", Name: "Lemon Drizzle", Kind: catalog.KindCake, PriceCents: 1500, Currency: "GBP", IsActive: true},
		"afternoon-tea-hamper": {ID: 2, Slug: "afternoon-tea-hamper", Name: "Afternoon Tea Hamper", Kind: catalog.KindHamper, PriceCents: 4500, Currency: "GBP", IsActive: true},
		"sachertorte":          {ID: 3, Slug: "sachertorte", Name: "Sachertorte", Kind: catalog.KindCake, PriceCents: 3200, Currency: "EUR", IsActive: true},
		"retired-roulade":      {ID: 4, Slug: "retired-roulade", Name: "Retired Roulade", Kind: catalog.KindCake, PriceCents: 1800, Currency: "GBP", IsActive: false},
	}
}

type memIdempotency struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{claimed: map[string]bool{}}
}

func (m *memIdempotency) Claim(ctx context.Context, module, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[module+"/"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.claimed[module+"/"+key] = true
	return nil
}

func (m *memIdempotency) Release(ctx context.Context, module, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, module+"/"+key)
	m.released = append(m.released, key)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []jobs.OrderConfirmationPayload
	err      error
}

func (r *recordingNotifier) EnqueueOrderConfirmation(ctx context.Context, payload jobs.OrderConfirmationPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return r.err
}
