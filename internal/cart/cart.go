// Package cart owns the shopping cart state and keeps it reconciled
// with the remote cart resource. All mutations go through the backend
// first; local state is then replaced wholesale by a reload, so the
// server stays the single authority on line ids and coalescing.
package cart

import (
	"context"
	"errors"
	"sync"

	"tienda/internal/api"
	"tienda/internal/logging"
	"tienda/internal/session"
)

// ErrNotLoggedIn is returned by mutating operations when there is no
// session with a server identity. The UI surfaces it as a warning.
var ErrNotLoggedIn = errors.New("debes iniciar sesión")

// State is the cart as consumers see it. TotalItems and TotalPrice are
// always derived from Items, never stored independently.
type State struct {
	Items      []api.CartItem
	TotalItems int
	TotalPrice float64
	Loading    bool
	Err        string
}

// Backend is the slice of the API client the cart store needs.
type Backend interface {
	GetCart(ctx context.Context) ([]api.CartItem, error)
	AddCartItem(ctx context.Context, productID int64, cantidad int) (*api.CartItem, error)
	UpdateCartItem(ctx context.Context, itemID int64, cantidad int) error
	RemoveCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

// Store owns the cart state.
type Store struct {
	mu      sync.Mutex
	state   State
	backend Backend
	session func() session.State

	// Reload ordering: a reload response older than the last applied
	// one is discarded instead of overwriting newer state.
	loadSeq     uint64
	appliedLoad uint64

	// Per-item in-flight tokens: a quantity change superseded by a
	// newer change on the same item is discarded entirely.
	itemSeq map[int64]uint64

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// NewStore creates a cart store. sessionFn supplies the current
// session state; it gates every operation.
func NewStore(backend Backend, sessionFn func() session.State) *Store {
	return &Store{
		backend: backend,
		session: sessionFn,
		itemSeq: make(map[int64]uint64),
		subs:    make(map[int]func(State)),
	}
}

// Subscribe registers a callback invoked after every state change.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notify() {
	state := s.Current()
	s.subsMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Current returns a copy of the cart state.
func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	state.Items = append([]api.CartItem(nil), s.state.Items...)
	return state
}

// recompute derives the totals from a set of items. This is the single
// source of truth for totals; missing prices and quantities count as 0.
func recompute(items []api.CartItem) (totalItems int, totalPrice float64) {
	for _, item := range items {
		if item.Cantidad > 0 {
			totalItems += item.Cantidad
			totalPrice += item.UnitPrice() * float64(item.Cantidad)
		}
	}
	return totalItems, totalPrice
}

func (s *Store) setLoading() {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()
	s.notify()
}

func (s *Store) setError(err error) {
	s.mu.Lock()
	s.state.Loading = false
	s.state.Err = err.Error()
	s.mu.Unlock()
	s.notify()
}

// reset replaces the state with an empty cart.
func (s *Store) reset() {
	s.mu.Lock()
	s.state = State{}
	s.appliedLoad = s.loadSeq
	s.mu.Unlock()
	s.notify()
}

// HandleSessionChange synchronizes the cart with a session transition:
// a session with a server identity loads the remote cart, anything
// else resets to empty.
func (s *Store) HandleSessionChange(ctx context.Context, st session.State) {
	if st.HasServerIdentity() {
		if err := s.Load(ctx); err != nil {
			logging.CartError("load on login failed: %v", err)
		}
		return
	}
	logging.Cart("session gone, resetting cart")
	s.reset()
}

// Load fetches the full cart from the backend and replaces local items
// wholesale. Without a server identity it resets to empty, without
// error and without touching the network.
func (s *Store) Load(ctx context.Context) error {
	if !s.session().HasServerIdentity() {
		s.reset()
		return nil
	}

	s.mu.Lock()
	s.loadSeq++
	token := s.loadSeq
	s.state.Loading = true
	s.mu.Unlock()
	s.notify()

	items, err := s.backend.GetCart(ctx)
	if err != nil {
		s.mu.Lock()
		superseded := token <= s.appliedLoad
		s.mu.Unlock()
		if superseded {
			logging.CartDebug("discarding superseded reload failure %d", token)
			return nil
		}
		logging.CartError("load failed: %v", err)
		s.setError(err)
		return err
	}

	s.applyLoad(token, items)
	return nil
}

// applyLoad installs a reload result unless a newer reload, or a reset,
// already won. Loading is cleared either way. The comparison is
// inclusive: reset stamps appliedLoad with the latest issued token, so
// a reload in flight across a logout compares equal and is discarded.
func (s *Store) applyLoad(token uint64, items []api.CartItem) {
	s.mu.Lock()
	if token <= s.appliedLoad {
		s.state.Loading = false
		s.mu.Unlock()
		logging.CartDebug("discarding superseded reload %d", token)
		s.notify()
		return
	}
	s.appliedLoad = token
	s.state.Items = items
	s.state.TotalItems, s.state.TotalPrice = recompute(items)
	s.state.Loading = false
	s.state.Err = ""
	s.mu.Unlock()

	logging.Cart("cart loaded: %d lines", len(items))
	s.notify()
}

// AddToCart posts a new line and reconciles with a full reload. The
// returned item is never merged locally: the server may coalesce by
// productId, and only a reload carries the authoritative ids.
func (s *Store) AddToCart(ctx context.Context, product api.Product, cantidad int) error {
	if !s.session().HasServerIdentity() {
		return ErrNotLoggedIn
	}
	if cantidad < 1 {
		cantidad = 1
	}

	s.setLoading()
	if _, err := s.backend.AddCartItem(ctx, product.ID, cantidad); err != nil {
		logging.CartError("add failed for product %d: %v", product.ID, err)
		s.setError(err)
		return err
	}

	logging.Cart("added product %d x%d", product.ID, cantidad)
	return s.Load(ctx)
}

// UpdateQuantity sets a line's quantity. Zero or less removes the
// line. A change superseded by a newer change on the same line is
// discarded, including its reload.
func (s *Store) UpdateQuantity(ctx context.Context, itemID int64, cantidad int) error {
	if !s.session().HasServerIdentity() {
		return ErrNotLoggedIn
	}
	if cantidad <= 0 {
		return s.RemoveFromCart(ctx, itemID)
	}

	s.mu.Lock()
	s.itemSeq[itemID]++
	token := s.itemSeq[itemID]
	s.state.Loading = true
	s.mu.Unlock()
	s.notify()

	err := s.backend.UpdateCartItem(ctx, itemID, cantidad)

	s.mu.Lock()
	superseded := s.itemSeq[itemID] != token
	if superseded {
		s.state.Loading = false
	}
	s.mu.Unlock()

	if superseded {
		logging.CartDebug("discarding superseded quantity change for item %d", itemID)
		s.notify()
		return nil
	}
	if err != nil {
		logging.CartError("update failed for item %d: %v", itemID, err)
		s.setError(err)
		return err
	}

	logging.Cart("item %d quantity -> %d", itemID, cantidad)
	return s.Load(ctx)
}

// RemoveFromCart deletes a line and reconciles with a full reload.
func (s *Store) RemoveFromCart(ctx context.Context, itemID int64) error {
	if !s.session().HasServerIdentity() {
		return ErrNotLoggedIn
	}

	s.mu.Lock()
	s.itemSeq[itemID]++
	s.state.Loading = true
	s.mu.Unlock()
	s.notify()

	if err := s.backend.RemoveCartItem(ctx, itemID); err != nil {
		logging.CartError("remove failed for item %d: %v", itemID, err)
		s.setError(err)
		return err
	}

	logging.Cart("removed item %d", itemID)
	return s.Load(ctx)
}

// Clear deletes the whole cart resource and resets local state.
func (s *Store) Clear(ctx context.Context) error {
	if !s.session().HasServerIdentity() {
		return ErrNotLoggedIn
	}

	s.setLoading()
	if err := s.backend.ClearCart(ctx); err != nil {
		logging.CartError("clear failed: %v", err)
		s.setError(err)
		return err
	}

	logging.Cart("cart cleared")
	s.reset()
	return nil
}

// GetItem returns the line for a product, if present. Pure local
// lookup; identity for "already in the cart" is productId.
func (s *Store) GetItem(productID int64) (api.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.state.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return api.CartItem{}, false
}

// IsInCart reports whether a product has a line in the cart.
func (s *Store) IsInCart(productID int64) bool {
	_, ok := s.GetItem(productID)
	return ok
}
