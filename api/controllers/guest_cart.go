package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sofiaduarte/threadline-backend/api/middleware"
	"github.com/sofiaduarte/threadline-backend/api/responses"
	"github.com/sofiaduarte/threadline-backend/api/validators"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	"github.com/sofiaduarte/threadline-backend/internal/guest"
	"github.com/sofiaduarte/threadline-backend/internal/pricing"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
)

func guestID(r *http.Request) (string, error) {
	id := middleware.GuestIDFromContext(r.Context())
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "guest id is required")
	}
	return id, nil
}

// GuestCartGet returns the guest's cart with derived totals.
func GuestCartGet(bridge *guest.Bridge, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := guestID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := bridge.Items(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		totals, err := bridge.Totals(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(items, totals, ""))
	}
}

// GuestCartAddItem validates the selection and adds it to the guest cart.
func GuestCartAddItem(bridge *guest.Bridge, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := guestID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

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

		items, err := bridge.Add(ctx, id, product, payload.Quantity, payload.Size, payload.Color)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		totals, err := bridge.Totals(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(items, totals, ""))
	}
}

// GuestCartUpdateItem sets a guest line item's quantity.
func GuestCartUpdateItem(bridge *guest.Bridge, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := guestID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := bridge.UpdateQuantity(ctx, id, chi.URLParam(r, "itemID"), payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		totals, err := bridge.Totals(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(items, totals, ""))
	}
}

// GuestCartRemoveItem removes a guest line item.
func GuestCartRemoveItem(bridge *guest.Bridge, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := guestID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := bridge.Remove(ctx, id, chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		totals, err := bridge.Totals(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(items, totals, ""))
	}
}

// GuestCartClear empties the guest cart.
func GuestCartClear(bridge *guest.Bridge, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := guestID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := bridge.Clear(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(nil, pricing.Totals{}, ""))
	}
}
