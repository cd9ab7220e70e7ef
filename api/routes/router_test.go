package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sofiaduarte/threadline-backend/internal/cart"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	"github.com/sofiaduarte/threadline-backend/internal/guest"
	"github.com/sofiaduarte/threadline-backend/internal/wishlist"
	"github.com/sofiaduarte/threadline-backend/pkg/config"
	"github.com/sofiaduarte/threadline-backend/pkg/kv"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubCatalog struct{}

func (stubCatalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	return &catalog.Product{ID: id, PriceCents: 1000}, nil
}

func (stubCatalog) ListProducts(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	return nil, nil
}

func (stubCatalog) InvalidateListCache() {}

type noopCartStore struct{}

func (noopCartStore) GetCart(ctx context.Context, sessionKey string) ([]cart.LineItem, error) {
	return nil, nil
}

func (noopCartStore) AddItem(ctx context.Context, sessionKey string, item cart.LineItem) ([]cart.LineItem, error) {
	return []cart.LineItem{item}, nil
}

func (noopCartStore) UpdateItem(ctx context.Context, sessionKey, itemID string, quantity int) ([]cart.LineItem, error) {
	return nil, nil
}

func (noopCartStore) RemoveItem(ctx context.Context, sessionKey, itemID string) error { return nil }

func (noopCartStore) ClearCart(ctx context.Context, sessionKey string) error { return nil }

func (noopCartStore) ApplyCoupon(ctx context.Context, sessionKey, code string) (int64, error) {
	return 0, nil
}

func (noopCartStore) RemoveCoupon(ctx context.Context, sessionKey string) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	mgr, err := cart.NewManager(cart.ManagerParams{Store: noopCartStore{}})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	bridge, err := guest.NewBridge(guest.BridgeParams{Store: kv.NewMemory()})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	wl, err := wishlist.NewService(wishlist.ServiceParams{Store: kv.NewMemory()})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	cfg := &config.Config{}
	cfg.App.Env = "test"

	return NewRouter(Params{
		Config:      cfg,
		Logger:      nil,
		DB:          stubPinger{},
		Catalog:     stubCatalog{},
		CartManager: mgr,
		GuestBridge: bridge,
		Wishlist:    wl,
		Registry:    prometheus.NewRegistry(),
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, resp.Code)
		}
		var envelope struct {
			Data map[string]string `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("%s decode: %v", path, err)
		}
		if envelope.Data["status"] == "" {
			t.Fatalf("%s missing status field", path)
		}
	}
}

func TestMetricsEndpointRegistered(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", resp.Code)
	}
}

func TestCartRequiresSessionKey(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without session key", resp.Code)
	}
}

func TestGuestCartRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/guest/cart", nil)
	req.Header.Set("X-Guest-Id", "guest_1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
}
