package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukahq/storefront-backend/pkg/config"
	"github.com/dukahq/storefront-backend/pkg/logger"
	"github.com/dukahq/storefront-backend/pkg/pagination"
)

// Snapshot is an immutable view of the catalog at one fetch. The pricing core
// only ever reads a snapshot; refreshes swap in a new one.
type Snapshot struct {
	products  map[string]Product
	order     []string
	fetchedAt time.Time
}

// Product looks up a product by id.
func (s *Snapshot) Product(id string) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	p, ok := s.products[id]
	return p, ok
}

// Products returns all products in upstream listing order.
func (s *Snapshot) Products() []Product {
	if s == nil {
		return nil
	}
	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out
}

// Page returns products after the cursor id, plus the cursor for the next
// page ("" when this is the last page).
func (s *Snapshot) Page(afterID string, limit int) ([]Product, string) {
	all := s.Products()
	limit = pagination.NormalizeLimit(limit)

	start := 0
	if afterID != "" {
		for i, p := range all {
			if p.ID == afterID {
				start = i + 1
				break
			}
		}
	}
	if start >= len(all) {
		return []Product{}, ""
	}

	end := start + limit
	if end >= len(all) {
		return all[start:], ""
	}
	page := all[start:end]
	return page, pagination.EncodeCursor(page[len(page)-1].ID)
}

// Len reports the number of products in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// FetchedAt reports when the snapshot was taken.
func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

// NewSnapshot builds a snapshot directly from typed products. Intended for
// tests and for callers that already hold coerced data.
func NewSnapshot(products []Product) *Snapshot {
	snap := &Snapshot{
		products:  make(map[string]Product, len(products)),
		order:     make([]string, 0, len(products)),
		fetchedAt: time.Now(),
	}
	for _, p := range products {
		if _, exists := snap.products[p.ID]; exists {
			continue
		}
		snap.products[p.ID] = p
		snap.order = append(snap.order, p.ID)
	}
	return snap
}

type fetcher interface {
	Products(ctx context.Context) ([]rawProduct, error)
}

// Service keeps a TTL-refreshed snapshot behind an atomic pointer. Reads never
// block on a refresh already holding the latest data; concurrent refreshes
// collapse into one upstream fetch.
type Service struct {
	client fetcher
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time

	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
}

// NewService builds the snapshot service.
func NewService(client *Client, cfg config.CatalogConfig, logg *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, errors.New("catalog client is required")
	}
	if logg == nil {
		return nil, errCatalogLoggerRequired
	}
	ttl := cfg.SnapshotTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		client: client,
		ttl:    ttl,
		logger: logg,
		now:    time.Now,
	}, nil
}

// Snapshot returns the current snapshot, refreshing from upstream when the
// cached one is missing or older than the TTL. A failed refresh falls back to
// the stale snapshot when one exists.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil && s.now().Sub(snap.fetchedAt) < s.ttl {
		return snap, nil
	}

	snap, err := s.Refresh(ctx)
	if err != nil {
		if stale := s.current.Load(); stale != nil {
			s.logger.Error(ctx, "catalog refresh failed, serving stale snapshot", err)
			return stale, nil
		}
		return nil, err
	}
	return snap, nil
}

// Refresh fetches the catalog and swaps in a fresh snapshot.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// another caller may have refreshed while we waited on the lock
	if snap := s.current.Load(); snap != nil && s.now().Sub(snap.fetchedAt) < s.ttl {
		return snap, nil
	}

	raws, err := s.client.Products(ctx)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(raws))
	for _, raw := range raws {
		p, diags := coerceProduct(raw)
		if p.ID == "" {
			s.logger.Error(ctx, "skipping catalog record without id", diags)
			continue
		}
		if diags != nil {
			s.logger.Error(ctx, "catalog record coerced with defaults", diags)
		}
		products = append(products, p)
	}

	snap := NewSnapshot(products)
	snap.fetchedAt = s.now()
	s.current.Store(snap)
	s.logger.Info(s.logger.WithField(ctx, "products", snap.Len()), "catalog snapshot refreshed")
	return snap, nil
}
