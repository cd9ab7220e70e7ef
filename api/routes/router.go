package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sofiaduarte/threadline-backend/api/controllers"
	"github.com/sofiaduarte/threadline-backend/api/middleware"
	"github.com/sofiaduarte/threadline-backend/internal/cart"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	"github.com/sofiaduarte/threadline-backend/internal/guest"
	"github.com/sofiaduarte/threadline-backend/internal/wishlist"
	"github.com/sofiaduarte/threadline-backend/pkg/config"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
)

// Params carries every dependency the router wires into handlers.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Catalog     catalog.Service
	CartManager *cart.Manager
	GuestBridge *guest.Bridge
	Wishlist    *wishlist.Service
	Registry    *prometheus.Registry
}

func NewRouter(p Params) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.Session(p.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DB))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(p.Catalog, p.Logger))
		r.Get("/{productID}", controllers.ProductGet(p.Catalog, p.Logger))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", controllers.CartGet(p.CartManager, p.Logger))
		r.Delete("/", controllers.CartClear(p.CartManager, p.Logger))
		r.Post("/items", controllers.CartAddItem(p.CartManager, p.Catalog, p.Logger))
		r.Patch("/items/{itemID}", controllers.CartUpdateItem(p.CartManager, p.Logger))
		r.Delete("/items/{itemID}", controllers.CartRemoveItem(p.CartManager, p.Logger))
		r.Post("/coupon", controllers.CartApplyCoupon(p.CartManager, p.Logger))
		r.Delete("/coupon", controllers.CartRemoveCoupon(p.CartManager, p.Logger))
		r.Post("/merge", controllers.CartMergeGuest(p.CartManager, p.GuestBridge, p.Catalog, p.Logger))
	})

	r.Route("/api/v1/guest/cart", func(r chi.Router) {
		r.Get("/", controllers.GuestCartGet(p.GuestBridge, p.Logger))
		r.Delete("/", controllers.GuestCartClear(p.GuestBridge, p.Logger))
		r.Post("/items", controllers.GuestCartAddItem(p.GuestBridge, p.Catalog, p.Logger))
		r.Patch("/items/{itemID}", controllers.GuestCartUpdateItem(p.GuestBridge, p.Logger))
		r.Delete("/items/{itemID}", controllers.GuestCartRemoveItem(p.GuestBridge, p.Logger))
	})

	r.Route("/api/v1/wishlist", func(r chi.Router) {
		r.Get("/", controllers.WishlistList(p.Wishlist, p.Logger))
		r.Delete("/", controllers.WishlistClear(p.Wishlist, p.Logger))
		r.Post("/toggle", controllers.WishlistToggle(p.Wishlist, p.Catalog, p.Logger))
		r.Get("/{productID}", controllers.WishlistHas(p.Wishlist, p.Logger))
	})

	return r
}
