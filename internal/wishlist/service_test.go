package wishlist

import (
	"context"
	"testing"

	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	"github.com/sofiaduarte/threadline-backend/pkg/kv"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Store: kv.NewMemory()})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func product(id string) *catalog.Product {
	return &catalog.Product{ID: id, Title: "Item " + id, PriceCents: 1500}
}

func TestToggleSavesAndRemoves(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.Toggle(ctx, "user_1", product("p1"))
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !saved {
		t.Fatal("first toggle must save")
	}
	has, err := svc.Has(ctx, "user_1", "p1")
	if err != nil {
		t.Fatalf("Has() error = %v", err)
	}
	if !has {
		t.Fatal("Has() = false after save")
	}

	saved, err = svc.Toggle(ctx, "user_1", product("p1"))
	if err != nil {
		t.Fatalf("second Toggle() error = %v", err)
	}
	if saved {
		t.Fatal("second toggle must remove")
	}
	has, err = svc.Has(ctx, "user_1", "p1")
	if err != nil {
		t.Fatalf("Has() error = %v", err)
	}
	if has {
		t.Fatal("Has() = true after removal")
	}
}

func TestProductsKeepSaveOrder(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"p3", "p1", "p2"} {
		if _, err := svc.Toggle(ctx, "user_1", product(id)); err != nil {
			t.Fatalf("Toggle(%s) error = %v", id, err)
		}
	}
	saved, err := svc.Products(ctx, "user_1")
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	got := make([]string, 0, len(saved))
	for _, p := range saved {
		got = append(got, p.ID)
	}
	want := []string{"p3", "p1", "p2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, "user_1", product("p1")); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	has, err := svc.Has(ctx, "user_2", "p1")
	if err != nil {
		t.Fatalf("Has() error = %v", err)
	}
	if has {
		t.Fatal("user_2 sees user_1's wishlist")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, "user_1", product("p1")); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if err := svc.Clear(ctx, "user_1"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	saved, err := svc.Products(ctx, "user_1")
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(saved) != 0 {
		t.Fatalf("products after clear = %+v, want empty", saved)
	}
}
