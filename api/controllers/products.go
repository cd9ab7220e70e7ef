package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sofiaduarte/threadline-backend/api/responses"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
)

type productResponse struct {
	catalog.Product
	StockStatus    string `json:"stock_status"`
	PurchasableQty int    `json:"purchasable_qty"`
}

func newProductResponse(p catalog.Product) productResponse {
	return productResponse{
		Product:        p,
		StockStatus:    string(catalog.Status(&p)),
		PurchasableQty: catalog.TotalStock(&p),
	}
}

// ProductsList returns catalog products, optionally filtered by category or
// free-text query.
func ProductsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		filter := catalog.Filter{
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		}
		products, err := svc.ListProducts(ctx, filter)
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

// ProductGet returns a single product with its resolved stock status.
func ProductGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID := chi.URLParam(r, "productID")
		if productID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		product, err := svc.GetProduct(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(*product))
	}
}
