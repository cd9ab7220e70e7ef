package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sofiaduarte/threadline-backend/api/middleware"
	"github.com/sofiaduarte/threadline-backend/internal/cart"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	"github.com/sofiaduarte/threadline-backend/internal/guest"
	"github.com/sofiaduarte/threadline-backend/pkg/kv"
)

// memCartStore is an in-memory cart store with the server's upsert-by-tuple
// contract.
type memCartStore struct {
	mu     sync.Mutex
	items  []cart.LineItem
	nextID int
	addErr error
}

func (s *memCartStore) GetCart(ctx context.Context, sessionKey string) ([]cart.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cart.LineItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *memCartStore) AddItem(ctx context.Context, sessionKey string, item cart.LineItem) ([]cart.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return nil, s.addErr
	}
	for i := range s.items {
		if s.items[i].Tuple() == item.Tuple() {
			s.items[i].Quantity = item.Quantity
			return s.snapshot(), nil
		}
	}
	s.nextID++
	item.ID = fmt.Sprintf("li_%d", s.nextID)
	s.items = append(s.items, item)
	return s.snapshot(), nil
}

func (s *memCartStore) UpdateItem(ctx context.Context, sessionKey, itemID string, quantity int) ([]cart.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].Quantity = quantity
		}
	}
	return s.snapshot(), nil
}

func (s *memCartStore) RemoveItem(ctx context.Context, sessionKey, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memCartStore) ClearCart(ctx context.Context, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

func (s *memCartStore) ApplyCoupon(ctx context.Context, sessionKey, code string) (int64, error) {
	return 300, nil
}

func (s *memCartStore) RemoveCoupon(ctx context.Context, sessionKey string) error {
	return nil
}

func (s *memCartStore) snapshot() []cart.LineItem {
	out := make([]cart.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

type stubCatalog struct {
	products map[string]catalog.Product
}

func (s stubCatalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s not found", id)
	}
	return &p, nil
}

func (s stubCatalog) ListProducts(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s stubCatalog) InvalidateListCache() {}

func testCatalog() stubCatalog {
	return stubCatalog{products: map[string]catalog.Product{
		"prod_1": {
			ID:         "prod_1",
			Title:      "Boxy Tee",
			PriceCents: 2500,
			Sizes: []catalog.Variant{
				{Kind: catalog.VariantStocked, Name: "S", Stock: 4},
				{Kind: catalog.VariantStocked, Name: "L", Stock: 9},
			},
			Colors: []string{"black"},
		},
	}}
}

func newTestManager(t *testing.T) *cart.Manager {
	t.Helper()
	mgr, err := cart.NewManager(cart.ManagerParams{Store: &memCartStore{}})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr
}

func withSession(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithSessionKey(r.Context(), "sess_1"))
}

func TestCartAddItemSuccess(t *testing.T) {
	mgr := newTestManager(t)
	handler := CartAddItem(mgr, testCatalog(), nil)

	body := `{"product_id":"prod_1","size":"L","color":"black","quantity":2}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("items = %+v, want one line", envelope.Data.Items)
	}
	item := envelope.Data.Items[0]
	if item.Quantity != 2 || item.UnitPriceCents != 2500 || item.LineTotalCents != 5000 {
		t.Fatalf("line = %+v, want qty 2 at 2500", item)
	}
	if envelope.Data.Totals.TotalPriceCents != 5000 {
		t.Fatalf("total price = %d, want 5000", envelope.Data.Totals.TotalPriceCents)
	}
	if envelope.Data.Totals.ShippingCents != 0 {
		t.Fatalf("shipping = %d, want free above threshold", envelope.Data.Totals.ShippingCents)
	}
}

func TestCartAddItemRejectsOversell(t *testing.T) {
	mgr := newTestManager(t)
	handler := CartAddItem(mgr, testCatalog(), nil)

	body := `{"product_id":"prod_1","size":"S","color":"black","quantity":7}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != "INSUFFICIENT_STOCK" {
		t.Fatalf("code = %q, want INSUFFICIENT_STOCK", envelope.Error.Code)
	}
	if got := envelope.Error.Details["max_quantity"]; got != float64(4) {
		t.Fatalf("max_quantity = %v, want 4", got)
	}
}

func TestCartAddItemRequiresSession(t *testing.T) {
	mgr := newTestManager(t)
	handler := CartAddItem(mgr, testCatalog(), nil)

	body := `{"product_id":"prod_1","quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestCartAddItemValidatesBody(t *testing.T) {
	mgr := newTestManager(t)
	handler := CartAddItem(mgr, testCatalog(), nil)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"quantity":1}`)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", resp.Code, resp.Body.String())
	}
}

func TestCartMergeGuestKeepsGuestCartOnFailure(t *testing.T) {
	store := &memCartStore{addErr: errors.New("session store down")}
	mgr, err := cart.NewManager(cart.ManagerParams{Store: store})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	bridge, err := guest.NewBridge(guest.BridgeParams{Store: kv.NewMemory()})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	ctx := context.Background()

	prod := testCatalog().products["prod_1"]
	if _, err := bridge.Add(ctx, "guest_1", &prod, 2, "L", "black"); err != nil {
		t.Fatalf("guest Add() error = %v", err)
	}

	handler := CartMergeGuest(mgr, bridge, testCatalog(), nil)
	mergeReq := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", nil)
		req = req.WithContext(middleware.WithGuestID(middleware.WithSessionKey(req.Context(), "sess_1"), "guest_1"))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	if resp := mergeReq(); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503: %s", resp.Code, resp.Body.String())
	}
	// The failed merge must leave the guest cart intact for a retry.
	left, err := bridge.Items(ctx, "guest_1")
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if len(left) != 1 || left[0].Quantity != 2 {
		t.Fatalf("guest items after failed merge = %+v, want the original line", left)
	}

	store.mu.Lock()
	store.addErr = nil
	store.mu.Unlock()

	if resp := mergeReq(); resp.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	merged, err := store.GetCart(ctx, "sess_1")
	if err != nil {
		t.Fatalf("GetCart() error = %v", err)
	}
	if len(merged) != 1 || merged[0].Quantity != 2 {
		t.Fatalf("session items after merge = %+v, want the guest line", merged)
	}
	left, err = bridge.Items(ctx, "guest_1")
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("guest items after merge = %+v, want empty", left)
	}
}

func TestCartGetEmpty(t *testing.T) {
	mgr := newTestManager(t)
	handler := CartGet(mgr, nil)

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 0 {
		t.Fatalf("items = %+v, want empty", envelope.Data.Items)
	}
	if envelope.Data.Totals.GrandTotalCents != 0 {
		t.Fatalf("grand total = %d, want 0", envelope.Data.Totals.GrandTotalCents)
	}
}
