package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sofiaduarte/threadline-backend/api/middleware"
	"github.com/sofiaduarte/threadline-backend/api/responses"
	"github.com/sofiaduarte/threadline-backend/api/validators"
	"github.com/sofiaduarte/threadline-backend/internal/cart"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	"github.com/sofiaduarte/threadline-backend/internal/guest"
	"github.com/sofiaduarte/threadline-backend/internal/pricing"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
)

type lineItemResponse struct {
	ID             string          `json:"id"`
	Product        catalog.Product `json:"product"`
	Quantity       int             `json:"quantity"`
	Size           string          `json:"size,omitempty"`
	Color          string          `json:"color,omitempty"`
	UnitPriceCents int64           `json:"unit_price_cents"`
	LineTotalCents int64           `json:"line_total_cents"`
	Pending        bool            `json:"pending"`
	AddedAt        time.Time       `json:"added_at"`
}

type cartResponse struct {
	Items      []lineItemResponse `json:"items"`
	Totals     pricing.Totals     `json:"totals"`
	CouponCode string             `json:"coupon_code,omitempty"`
}

func newLineItemResponse(item cart.LineItem) lineItemResponse {
	unit := item.Product.UnitPriceCents()
	return lineItemResponse{
		ID:             item.ID,
		Product:        item.Product,
		Quantity:       item.Quantity,
		Size:           item.Size,
		Color:          item.Color,
		UnitPriceCents: unit,
		LineTotalCents: unit * int64(item.Quantity),
		Pending:        item.Optimistic(),
		AddedAt:        item.AddedAt,
	}
}

func newCartResponse(items []cart.LineItem, totals pricing.Totals, couponCode string) cartResponse {
	out := make([]lineItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newLineItemResponse(item))
	}
	return cartResponse{Items: out, Totals: totals, CouponCode: couponCode}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

func sessionEngine(r *http.Request, mgr *cart.Manager) (*cart.Engine, error) {
	key := middleware.SessionKeyFromContext(r.Context())
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session key is required")
	}
	return mgr.Engine(r.Context(), key)
}

// CartGet returns the session's cart with derived totals.
func CartGet(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		eng, err := sessionEngine(r, mgr)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(eng.Items(), eng.Totals(), eng.CouponCode()))
	}
}

// CartAddItem validates the selection against live stock and adds it to the
// session cart.
func CartAddItem(mgr *cart.Manager, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := catalogSvc.GetProduct(ctx, payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		eng, err := sessionEngine(r, mgr)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := eng.AddItem(ctx, product, payload.Quantity, payload.Size, payload.Color); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(eng.Items(), eng.Totals(), eng.CouponCode()))
	}
}

// CartUpdateItem sets a line item's quantity.
func CartUpdateItem(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		eng, err := sessionEngine(r, mgr)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := eng.UpdateQuantity(ctx, chi.URLParam(r, "itemID"), payload.Quantity); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(eng.Items(), eng.Totals(), eng.CouponCode()))
	}
}

// CartRemoveItem removes a line item.
func CartRemoveItem(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		eng, err := sessionEngine(r, mgr)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := eng.RemoveItem(ctx, chi.URLParam(r, "itemID")); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(eng.Items(), eng.Totals(), eng.CouponCode()))
	}
}

// CartClear empties the cart and zeroes its totals.
func CartClear(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		eng, err := sessionEngine(r, mgr)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := eng.Clear(ctx); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(eng.Items(), eng.Totals(), eng.CouponCode()))
	}
}

// CartApplyCoupon applies a coupon to the session cart.
func CartApplyCoupon(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		eng, err := sessionEngine(r, mgr)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := eng.ApplyCoupon(ctx, payload.Code); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(eng.Items(), eng.Totals(), eng.CouponCode()))
	}
}

// CartRemoveCoupon drops the applied coupon.
func CartRemoveCoupon(mgr *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		eng, err := sessionEngine(r, mgr)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := eng.RemoveCoupon(ctx); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(eng.Items(), eng.Totals(), eng.CouponCode()))
	}
}

// CartMergeGuest folds the caller's guest cart into the session cart.
// Runs once per session; a retried call is a no-op. The guest cart is
// cleared only after the merge lands, so a failed merge leaves it intact
// for a retry.
func CartMergeGuest(mgr *cart.Manager, bridge *guest.Bridge, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionKey := middleware.SessionKeyFromContext(ctx)
		if sessionKey == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session key is required"))
			return
		}
		guestID := middleware.GuestIDFromContext(ctx)
		if guestID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "guest id is required"))
			return
		}

		guestItems, err := bridge.Items(ctx, guestID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		stockFor := func(item cart.LineItem) int {
			product, err := catalogSvc.GetProduct(ctx, item.Product.ID)
			if err != nil {
				// Fall back to the snapshot when the catalog is
				// unreachable; the server re-validates at checkout.
				product = &item.Product
			}
			if item.Size != "" {
				return catalog.VariantStock(product, item.Size)
			}
			return catalog.TotalStock(product)
		}

		if err := mgr.MergeGuestItems(ctx, sessionKey, guestItems, stockFor); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := bridge.Clear(ctx, guestID); err != nil {
			// The merge itself is recorded; a retry no-ops it and only
			// repeats this clear.
			responses.WriteError(ctx, logg, w, err)
			return
		}

		eng, err := mgr.Engine(ctx, sessionKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(eng.Items(), eng.Totals(), eng.CouponCode()))
	}
}
