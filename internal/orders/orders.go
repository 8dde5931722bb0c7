// Package orders confirms checkouts and lists order history.
package orders

import (
	"context"
	"fmt"
	"sync"

	"tienda/internal/api"
	"tienda/internal/logging"
)

// Backend is the slice of the API client the orders store needs.
type Backend interface {
	ConfirmOrder(ctx context.Context, req api.ConfirmOrderRequest) (*api.OrderConfirmation, error)
	ListOrders(ctx context.Context) ([]api.Order, error)
}

// CartClearer empties the cart store after a confirmed order.
type CartClearer interface {
	Clear(ctx context.Context) error
}

// Store drives checkout and order history.
type Store struct {
	mu      sync.RWMutex
	history []api.Order
	backend Backend
	cart    CartClearer
}

// NewStore creates an orders store. cart may be nil for read-only use.
func NewStore(backend Backend, cart CartClearer) *Store {
	return &Store{backend: backend, cart: cart}
}

// Confirm places the order and clears the cart on success. A cart
// clear failure does not undo the order; the backend already accepted
// it and a reload will reconcile.
func (s *Store) Confirm(ctx context.Context, req api.ConfirmOrderRequest) (*api.OrderConfirmation, error) {
	if req.MetodoPago == "" {
		return nil, fmt.Errorf("payment method required")
	}
	if req.DireccionEnvio == "" {
		return nil, fmt.Errorf("shipping address required")
	}

	conf, err := s.backend.ConfirmOrder(ctx, req)
	if err != nil {
		logging.OrdersError("confirm failed: %v", err)
		return nil, err
	}
	logging.Orders("order confirmed: %s", conf.Reference())

	if s.cart != nil {
		if err := s.cart.Clear(ctx); err != nil {
			logging.OrdersError("cart clear after confirm failed: %v", err)
		}
	}
	return conf, nil
}

// List fetches the order history.
func (s *Store) List(ctx context.Context) ([]api.Order, error) {
	orders, err := s.backend.ListOrders(ctx)
	if err != nil {
		logging.OrdersError("list failed: %v", err)
		return nil, err
	}
	s.mu.Lock()
	s.history = orders
	s.mu.Unlock()
	return orders, nil
}

// History returns the last-fetched order list.
func (s *Store) History() []api.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Order(nil), s.history...)
}
