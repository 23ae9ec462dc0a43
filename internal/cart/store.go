package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dukahq/storefront-backend/pkg/config"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/logger"
	"github.com/dukahq/storefront-backend/pkg/redis"
)

// Entry is one product's requested quantity in a cart.
type Entry struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Store persists carts in redis keyed by session id. Entries keep insertion
// order; adding an existing product merges quantities, and a merge that lands
// at zero or below removes the entry.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

var (
	errRedisRequired     = errors.New("cart store requires a redis client")
	errCartLoggerMissing = errors.New("cart store requires a logger")
)

// NewStore builds the cart store.
func NewStore(client *redis.Client, cfg config.CartConfig, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, errRedisRequired
	}
	if logg == nil {
		return nil, errCartLoggerMissing
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &Store{client: client, ttl: ttl, logger: logg}, nil
}

// Snapshot returns the cart's entries in insertion order. A missing cart is an
// empty cart, not an error.
func (s *Store) Snapshot(ctx context.Context, sessionID string) ([]Entry, error) {
	entries, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Add merges delta into the product's quantity, appending a new entry for an
// unseen product. The resulting entries are returned.
func (s *Store) Add(ctx context.Context, sessionID, productID string, delta int) ([]Entry, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	entries, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	found := false
	next := make([]Entry, 0, len(entries)+1)
	for _, e := range entries {
		if e.ProductID == productID {
			found = true
			e.Quantity += delta
			if e.Quantity <= 0 {
				continue
			}
		}
		next = append(next, e)
	}
	if !found && delta > 0 {
		next = append(next, Entry{ProductID: productID, Quantity: delta})
	}

	if err := s.save(ctx, sessionID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Remove drops the product from the cart regardless of quantity.
func (s *Store) Remove(ctx context.Context, sessionID, productID string) ([]Entry, error) {
	entries, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ProductID == productID {
			continue
		}
		next = append(next, e)
	}

	if err := s.save(ctx, sessionID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Clear deletes the whole cart.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.client.CartKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

func (s *Store) load(ctx context.Context, sessionID string) ([]Entry, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(sessionID))
	if err != nil {
		if redis.IsNil(err) {
			return []Entry{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// a corrupt cart should not wedge the session; start fresh
		s.logger.Error(ctx, "discarding unreadable cart payload", err)
		return []Entry{}, nil
	}

	valid := entries[:0]
	for _, e := range entries {
		if e.ProductID == "" || e.Quantity <= 0 {
			continue
		}
		valid = append(valid, e)
	}
	return valid, nil
}

func (s *Store) save(ctx context.Context, sessionID string, entries []Entry) error {
	key := s.client.CartKey(sessionID)
	if len(entries) == 0 {
		if err := s.client.Del(ctx, key); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart")
		}
		return nil
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart")
	}
	if err := s.client.Set(ctx, key, string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart")
	}
	return nil
}
