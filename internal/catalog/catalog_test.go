package catalog

import (
	"context"
	"errors"
	"testing"

	"tienda/internal/api"
)

type fakeBackend struct {
	products []api.Product
	err      error
}

func (f *fakeBackend) ListProducts(ctx context.Context) ([]api.Product, error) {
	return f.products, f.err
}

func TestRefreshAndLookup(t *testing.T) {
	s := NewStore(&fakeBackend{products: []api.Product{
		{ID: 1, Descripcion: "Café", Monto: 25},
		{ID: 2, Descripcion: "Té", Monto: 18},
	}})

	products, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	p, ok := s.Get(2)
	if !ok || p.Descripcion != "Té" {
		t.Fatalf("Get(2) = %+v, %v", p, ok)
	}
	if _, ok := s.Get(99); ok {
		t.Fatal("Get(99) should miss")
	}
}

func TestRefreshErrorKeepsCache(t *testing.T) {
	backend := &fakeBackend{products: []api.Product{{ID: 1}}}
	s := NewStore(backend)
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	backend.err = errors.New("backend down")
	if _, err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(s.Products()) != 1 {
		t.Fatal("cache must survive a failed refresh")
	}
}
