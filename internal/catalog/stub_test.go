package catalog_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/larkspur-bakery/storefront/internal/catalog"
)

type stubRepo struct {
	mu        sync.Mutex
	products  map[int64]catalog.Product
	nextID    int64
	listCalls int
	slugCalls int
	listErr   error
	listDelay time.Duration
}

func newStubRepo(seed ...catalog.Product) *stubRepo {
	r := &stubRepo{products: make(map[int64]catalog.Product), nextID: 1}
	for _, p := range seed {
		p.ID = r.nextID
		r.nextID++
		r.products[p.ID] = p
	}
	return r
}

func (r *stubRepo) List(ctx context.Context, f catalog.ListFilter) ([]catalog.Product, int, error) {
	time.Sleep(r.listDelay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var out []catalog.Product
	for _, p := range r.products {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if f.Kind != "" && p.Kind != f.Kind {
			continue
		}
		if f.Tag != "" && !hasTag(p.Tags, f.Tag) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (r *stubRepo) GetBySlug(ctx context.Context, slug string) (catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slugCalls++
	for _, p := range r.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (r *stubRepo) GetByID(ctx context.Context, id int64) (catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (r *stubRepo) Create(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.products {
		if existing.Slug == p.Slug {
			return catalog.Product{}, catalog.ErrDuplicateSlug
		}
	}
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.products[p.ID] = p
	return p, nil
}

func (r *stubRepo) Update(ctx context.Context, id int64, p catalog.Product) (catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	p.ID = id
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	r.products[id] = p
	return p, nil
}

func (r *stubRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sampleProducts() []catalog.Product {
	return []catalog.Product{
		{Slug: "lemon-drizzle", Name: "Lemon Drizzle", Kind: catalog.KindCake, PriceCents: 2800, Currency: "GBP", Tags: []string{"citrus"}, IsActive: true},
		{Slug: "black-forest", Name: "Black Forest Gateau", Kind: catalog.KindCake, PriceCents: 3600, Currency: "GBP", Tags: []string{"chocolate"}, IsActive: true},
		{Slug: "afternoon-tea-hamper", Name: "Afternoon Tea Hamper", Kind: catalog.KindHamper, PriceCents: 5500, Currency: "GBP", Tags: []string{"gift"}, IsActive: true},
		{Slug: "retired-roulade", Name: "Retired Roulade", Kind: catalog.KindCake, PriceCents: 2000, Currency: "GBP", IsActive: false},
	}
}
