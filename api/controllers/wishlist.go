package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sofiaduarte/threadline-backend/api/middleware"
	"github.com/sofiaduarte/threadline-backend/api/responses"
	"github.com/sofiaduarte/threadline-backend/api/validators"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	"github.com/sofiaduarte/threadline-backend/internal/wishlist"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
)

type toggleWishlistRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

func wishlistOwner(r *http.Request) (string, error) {
	if key := middleware.SessionKeyFromContext(r.Context()); key != "" {
		return key, nil
	}
	if id := middleware.GuestIDFromContext(r.Context()); id != "" {
		return id, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "session key or guest id is required")
}

// WishlistList returns the owner's saved products with current stock status.
func WishlistList(svc *wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		owner, err := wishlistOwner(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		products, err := svc.Products(ctx, owner)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]productResponse, 0, len(products))
		for _, p := range products {
			out = append(out, newProductResponse(p))
		}
		responses.WriteSuccess(w, out)
	}
}

// WishlistToggle saves a product, or removes it when already saved.
func WishlistToggle(svc *wishlist.Service, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		owner, err := wishlistOwner(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload toggleWishlistRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := catalogSvc.GetProduct(ctx, payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		saved, err := svc.Toggle(ctx, owner, product)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"product_id": product.ID, "saved": saved})
	}
}

// WishlistHas reports whether a product is saved.
func WishlistHas(svc *wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		owner, err := wishlistOwner(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productID := chi.URLParam(r, "productID")
		has, err := svc.Has(ctx, owner, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"product_id": productID, "saved": has})
	}
}

// WishlistClear removes every saved product for the owner.
func WishlistClear(svc *wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		owner, err := wishlistOwner(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Clear(ctx, owner); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"cleared": true})
	}
}
