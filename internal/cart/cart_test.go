package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"tienda/internal/api"
	"tienda/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBackend is an in-memory cart that coalesces adds by productId,
// the way the real backend does.
type fakeBackend struct {
	mu     sync.Mutex
	items  []api.CartItem
	nextID int64

	getCalls int
	failNext error

	// Optional hooks let tests block individual calls.
	beforeGet    func()
	beforeUpdate func()
}

func (f *fakeBackend) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeBackend) GetCart(ctx context.Context) ([]api.CartItem, error) {
	if f.beforeGet != nil {
		f.beforeGet()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	return append([]api.CartItem(nil), f.items...), nil
}

func (f *fakeBackend) AddCartItem(ctx context.Context, productID int64, cantidad int) (*api.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	for i := range f.items {
		if f.items[i].ProductID == productID {
			f.items[i].Cantidad += cantidad
			item := f.items[i]
			return &item, nil
		}
	}
	f.nextID++
	item := api.CartItem{ID: f.nextID, ProductID: productID, Cantidad: cantidad}
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeBackend) UpdateCartItem(ctx context.Context, itemID int64, cantidad int) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items[i].Cantidad = cantidad
			return nil
		}
	}
	return errors.New("item not found")
}

func (f *fakeBackend) RemoveCartItem(ctx context.Context, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	kept := f.items[:0]
	for _, item := range f.items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return nil
}

func (f *fakeBackend) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.items = nil
	return nil
}

func (f *fakeBackend) seed(items ...api.CartItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]api.CartItem(nil), items...)
	for _, item := range items {
		if item.ID > f.nextID {
			f.nextID = item.ID
		}
	}
}

func loggedIn() session.State {
	return session.State{Logged: true, Token: "t", User: api.User{UserID: 1}}
}

func newTestStore(backend *fakeBackend, st session.State) *Store {
	return NewStore(backend, func() session.State { return st })
}

func TestLoadReplacesItemsAndRecomputesTotals(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(
		api.CartItem{ID: 1, ProductID: 10, Cantidad: 2, ProductMonto: 10},
		api.CartItem{ID: 2, ProductID: 20, Cantidad: 1, ProductMonto: 5.5},
	)
	s := newTestStore(backend, loggedIn())

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	st := s.Current()
	if st.TotalItems != 3 {
		t.Fatalf("totalItems = %d, want 3", st.TotalItems)
	}
	if st.TotalPrice != 25.5 {
		t.Fatalf("totalPrice = %v, want 25.5", st.TotalPrice)
	}
	if st.Loading || st.Err != "" {
		t.Fatalf("expected clean state, got %+v", st)
	}
}

func TestLoadWithoutServerIdentityResetsWithoutError(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 10, Cantidad: 2})

	// Logged in, but the login response carried no server id
	s := newTestStore(backend, session.State{Logged: true, Token: "t"})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load must not error without identity: %v", err)
	}

	st := s.Current()
	if len(st.Items) != 0 || st.TotalItems != 0 || st.Err != "" {
		t.Fatalf("expected empty cart, got %+v", st)
	}
	if backend.getCalls != 0 {
		t.Fatal("must never hit the backend without a server identity")
	}
}

func TestAddReloadsInsteadOfMerging(t *testing.T) {
	// One line productId=1 x2 at 10; adding 1 more of the same product
	// is coalesced by the server; reload shows x3, totals 3/30.
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 1, Cantidad: 2, ProductMonto: 10})
	s := newTestStore(backend, loggedIn())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	if err := s.AddToCart(context.Background(), api.Product{ID: 1, Monto: 10}, 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	st := s.Current()
	if len(st.Items) != 1 {
		t.Fatalf("server coalesces by productId; want 1 line, got %d", len(st.Items))
	}
	if st.Items[0].Cantidad != 3 {
		t.Fatalf("quantity = %d, want 3", st.Items[0].Cantidad)
	}
	if st.TotalItems != 3 || st.TotalPrice != 30 {
		t.Fatalf("totals = %d/%v, want 3/30", st.TotalItems, st.TotalPrice)
	}
}

func TestAddDefaultsQuantityToOne(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(backend, loggedIn())

	if err := s.AddToCart(context.Background(), api.Product{ID: 7}, 0); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if st := s.Current(); st.TotalItems != 1 {
		t.Fatalf("totalItems = %d, want 1", st.TotalItems)
	}
}

func TestMutationsRequireSession(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(backend, session.State{})

	ctx := context.Background()
	if err := s.AddToCart(ctx, api.Product{ID: 1}, 1); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("add: want ErrNotLoggedIn, got %v", err)
	}
	if err := s.UpdateQuantity(ctx, 1, 2); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("update: want ErrNotLoggedIn, got %v", err)
	}
	if err := s.RemoveFromCart(ctx, 1); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("remove: want ErrNotLoggedIn, got %v", err)
	}
	if err := s.Clear(ctx); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("clear: want ErrNotLoggedIn, got %v", err)
	}
}

func TestUpdateQuantityZeroIsRemoval(t *testing.T) {
	run := func(t *testing.T, op func(*Store) error) State {
		backend := &fakeBackend{}
		backend.seed(
			api.CartItem{ID: 5, ProductID: 1, Cantidad: 2, ProductMonto: 4},
			api.CartItem{ID: 6, ProductID: 2, Cantidad: 1, ProductMonto: 3},
		)
		s := newTestStore(backend, loggedIn())
		if err := s.Load(context.Background()); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if err := op(s); err != nil {
			t.Fatalf("operation failed: %v", err)
		}
		return s.Current()
	}

	viaUpdate := run(t, func(s *Store) error {
		return s.UpdateQuantity(context.Background(), 5, 0)
	})
	viaRemove := run(t, func(s *Store) error {
		return s.RemoveFromCart(context.Background(), 5)
	})

	for _, st := range []State{viaUpdate, viaRemove} {
		if len(st.Items) != 1 || st.Items[0].ID != 6 {
			t.Fatalf("item 5 should be gone, got %+v", st.Items)
		}
		if st.TotalItems != 1 || st.TotalPrice != 3 {
			t.Fatalf("totals = %d/%v, want 1/3", st.TotalItems, st.TotalPrice)
		}
	}
}

func TestUpdateQuantityNegativeIsRemoval(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 5, ProductID: 1, Cantidad: 2})
	s := newTestStore(backend, loggedIn())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if err := s.UpdateQuantity(context.Background(), 5, -3); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if st := s.Current(); len(st.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", st.Items)
	}
}

func TestFailureLeavesItemsIntactAndClearsLoading(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 10, Cantidad: 2, ProductMonto: 10})
	s := newTestStore(backend, loggedIn())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	backend.failNext = errors.New("backend down")
	if err := s.UpdateQuantity(context.Background(), 1, 5); err == nil {
		t.Fatal("expected error")
	}

	st := s.Current()
	if st.Loading {
		t.Fatal("loading must be cleared on failure")
	}
	if st.Err == "" {
		t.Fatal("error must be surfaced in state")
	}
	if len(st.Items) != 1 || st.Items[0].Cantidad != 2 {
		t.Fatalf("prior items must stay intact, got %+v", st.Items)
	}
	if st.TotalItems != 2 || st.TotalPrice != 20 {
		t.Fatalf("totals must still match prior items: %d/%v", st.TotalItems, st.TotalPrice)
	}
}

func TestLoadingClearedOnEveryPath(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 10, Cantidad: 1})
	s := newTestStore(backend, loggedIn())
	ctx := context.Background()

	ops := []func() error{
		func() error { return s.Load(ctx) },
		func() error { return s.AddToCart(ctx, api.Product{ID: 11}, 1) },
		func() error { return s.UpdateQuantity(ctx, 1, 4) },
		func() error { return s.RemoveFromCart(ctx, 1) },
		func() error { return s.Clear(ctx) },
	}
	for i, op := range ops {
		_ = op()
		if s.Current().Loading {
			t.Fatalf("op %d left loading set", i)
		}
	}

	// And on the failure path of every op
	for i, op := range ops {
		backend.failNext = errors.New("boom")
		_ = op()
		if s.Current().Loading {
			t.Fatalf("failing op %d left loading set", i)
		}
	}
}

func TestClearResetsState(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 10, Cantidad: 3, ProductMonto: 2})
	s := newTestStore(backend, loggedIn())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	st := s.Current()
	if len(st.Items) != 0 || st.TotalItems != 0 || st.TotalPrice != 0 {
		t.Fatalf("expected empty state, got %+v", st)
	}
}

func TestSessionTransitions(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 10, Cantidad: 2, ProductMonto: 10})

	current := loggedIn()
	s := NewStore(backend, func() session.State { return current })

	s.HandleSessionChange(context.Background(), current)
	if st := s.Current(); st.TotalItems != 2 {
		t.Fatalf("login must load the cart, got %+v", st)
	}

	// Logout always resets, regardless of prior content
	current = session.State{}
	s.HandleSessionChange(context.Background(), current)
	if st := s.Current(); len(st.Items) != 0 || st.TotalItems != 0 {
		t.Fatalf("logout must reset the cart, got %+v", st)
	}

	// Login without a server id leaves the cart empty, no network
	before := backend.getCalls
	current = session.State{Logged: true, Token: "t"}
	s.HandleSessionChange(context.Background(), current)
	if backend.getCalls != before {
		t.Fatal("no-identity login must not trigger a load")
	}
	if st := s.Current(); len(st.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", st)
	}
}

func TestLocalLookups(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 10, Cantidad: 2})
	s := newTestStore(backend, loggedIn())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	before := backend.getCalls

	if !s.IsInCart(10) {
		t.Fatal("product 10 should be in the cart")
	}
	if s.IsInCart(99) {
		t.Fatal("product 99 should not be in the cart")
	}
	item, ok := s.GetItem(10)
	if !ok || item.ID != 1 {
		t.Fatalf("GetItem(10) = %+v, %v", item, ok)
	}
	if backend.getCalls != before {
		t.Fatal("lookups must be purely local")
	}
}

func TestRecomputeIsIdempotentAndOrderIndependent(t *testing.T) {
	items := []api.CartItem{
		{ID: 1, ProductID: 1, Cantidad: 2, ProductMonto: 10},
		{ID: 2, ProductID: 2, Cantidad: 3, Producto: &api.Product{Monto: 4}},
		{ID: 3, ProductID: 3, Cantidad: 1}, // no price anywhere: counts as 0
	}
	reversed := []api.CartItem{items[2], items[1], items[0]}

	n1, p1 := recompute(items)
	n2, p2 := recompute(items)
	n3, p3 := recompute(reversed)

	if n1 != 6 || p1 != 32 {
		t.Fatalf("totals = %d/%v, want 6/32", n1, p1)
	}
	if n1 != n2 || p1 != p2 {
		t.Fatal("recompute must be idempotent")
	}
	if n1 != n3 || p1 != p3 {
		t.Fatal("recompute must be order-independent")
	}
}

func TestSupersededQuantityChangeIsDiscarded(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 5, ProductID: 1, Cantidad: 1, ProductMonto: 10})
	s := newTestStore(backend, loggedIn())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	firstEntered := make(chan struct{})
	release := make(chan struct{})
	// Only the first caller may block; later calls must pass through.
	var blockFirst atomic.Bool
	blockFirst.Store(true)
	backend.beforeUpdate = func() {
		if blockFirst.CompareAndSwap(true, false) {
			close(firstEntered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- s.UpdateQuantity(context.Background(), 5, 2)
	}()

	<-firstEntered

	// A newer change on the same line supersedes the blocked one
	if err := s.UpdateQuantity(context.Background(), 5, 7); err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("superseded update must not report an error: %v", err)
	}

	st := s.Current()
	if st.Loading {
		t.Fatal("loading must be cleared after a discarded response")
	}
	if len(st.Items) != 1 || st.Items[0].Cantidad != 7 {
		t.Fatalf("newest edit must win locally, got %+v", st.Items)
	}
	if st.TotalItems != 7 || st.TotalPrice != 70 {
		t.Fatalf("totals = %d/%v, want 7/70", st.TotalItems, st.TotalPrice)
	}
}

func TestStaleReloadIsDiscarded(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 1, Cantidad: 9, ProductMonto: 1})
	s := newTestStore(backend, loggedIn())

	firstEntered := make(chan struct{})
	release := make(chan struct{})
	// Only the first caller may block; later calls must pass through.
	var blockFirst atomic.Bool
	blockFirst.Store(true)
	backend.beforeGet = func() {
		if blockFirst.CompareAndSwap(true, false) {
			close(firstEntered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Load(context.Background())
	}()
	<-firstEntered

	// A second reload finishes first and sees fresher data
	backend.seed(api.CartItem{ID: 1, ProductID: 1, Cantidad: 2, ProductMonto: 1})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("second load failed: %v", err)
	}

	// The stale response will observe old-looking data again; it must
	// not overwrite the fresher reload.
	backend.seed(api.CartItem{ID: 1, ProductID: 1, Cantidad: 9, ProductMonto: 1})
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	st := s.Current()
	if st.Loading {
		t.Fatal("loading must be cleared")
	}
	if st.TotalItems != 2 {
		t.Fatalf("stale reload overwrote fresher state: %+v", st)
	}
}

func TestLogoutDuringReloadStaysEmpty(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 1, Cantidad: 4, ProductMonto: 5})

	current := loggedIn()
	s := NewStore(backend, func() session.State { return current })

	firstEntered := make(chan struct{})
	release := make(chan struct{})
	var blockFirst atomic.Bool
	blockFirst.Store(true)
	backend.beforeGet = func() {
		if blockFirst.CompareAndSwap(true, false) {
			close(firstEntered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Load(context.Background())
	}()
	<-firstEntered

	// Logout while the reload is parked in the backend
	current = session.State{}
	s.HandleSessionChange(context.Background(), current)

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("load failed: %v", err)
	}

	st := s.Current()
	if len(st.Items) != 0 || st.TotalItems != 0 || st.TotalPrice != 0 {
		t.Fatalf("reload finishing after logout must be discarded, got %+v", st)
	}
	if st.Loading {
		t.Fatal("loading must be cleared")
	}
}

func TestStaleReloadFailureDoesNotSurface(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 1, Cantidad: 2, ProductMonto: 5})
	s := newTestStore(backend, loggedIn())

	firstEntered := make(chan struct{})
	release := make(chan struct{})
	var blockFirst atomic.Bool
	blockFirst.Store(true)
	backend.beforeGet = func() {
		if blockFirst.CompareAndSwap(true, false) {
			close(firstEntered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Load(context.Background())
	}()
	<-firstEntered

	// A second reload wins while the first is parked
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("second load failed: %v", err)
	}

	// The parked reload now fails; being superseded, the failure must
	// vanish instead of clobbering the fresher state.
	backend.mu.Lock()
	backend.failNext = errors.New("backend down")
	backend.mu.Unlock()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("superseded reload failure must not be reported: %v", err)
	}

	st := s.Current()
	if st.Err != "" {
		t.Fatalf("superseded failure leaked into state: %q", st.Err)
	}
	if st.TotalItems != 2 || st.TotalPrice != 10 {
		t.Fatalf("totals = %d/%v, want 2/10", st.TotalItems, st.TotalPrice)
	}
}

func TestSubscribeSeesTotals(t *testing.T) {
	backend := &fakeBackend{}
	backend.seed(api.CartItem{ID: 1, ProductID: 1, Cantidad: 2, ProductMonto: 5})
	s := newTestStore(backend, loggedIn())

	var mu sync.Mutex
	var last State
	cancel := s.Subscribe(func(st State) {
		mu.Lock()
		last = st
		mu.Unlock()
	})
	defer cancel()

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if last.TotalItems != 2 || last.TotalPrice != 10 {
		t.Fatalf("subscriber saw %d/%v, want 2/10", last.TotalItems, last.TotalPrice)
	}
}

// Guards against reloads hanging forever when a context dies mid-flight.
func TestLoadHonorsContext(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(backend, loggedIn())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	// The fake never blocks on ctx, so this simply must not deadlock.
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}
}
