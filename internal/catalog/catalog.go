// Package catalog caches the product listing for the TUI.
package catalog

import (
	"context"
	"sync"

	"tienda/internal/api"
)

// Backend is the slice of the API client the catalog needs.
type Backend interface {
	ListProducts(ctx context.Context) ([]api.Product, error)
}

// Store holds the last-seen product list.
type Store struct {
	mu       sync.RWMutex
	products []api.Product
	backend  Backend
}

// NewStore creates a catalog store.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Refresh fetches the catalog. No authentication required.
func (s *Store) Refresh(ctx context.Context) ([]api.Product, error) {
	products, err := s.backend.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.products = products
	s.mu.Unlock()
	return append([]api.Product(nil), products...), nil
}

// Products returns the cached listing.
func (s *Store) Products() []api.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Product(nil), s.products...)
}

// Get looks a product up in the cache by id.
func (s *Store) Get(productID int64) (api.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == productID {
			return p, true
		}
	}
	return api.Product{}, false
}
