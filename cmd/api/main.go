package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/sofiaduarte/threadline-backend/api/routes"
	"github.com/sofiaduarte/threadline-backend/internal/cart"
	"github.com/sofiaduarte/threadline-backend/internal/cartstore"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	"github.com/sofiaduarte/threadline-backend/internal/guest"
	"github.com/sofiaduarte/threadline-backend/internal/pricing"
	"github.com/sofiaduarte/threadline-backend/internal/wishlist"
	"github.com/sofiaduarte/threadline-backend/pkg/config"
	"github.com/sofiaduarte/threadline-backend/pkg/db"
	"github.com/sofiaduarte/threadline-backend/pkg/kv"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
	"github.com/sofiaduarte/threadline-backend/pkg/metrics"
	"github.com/sofiaduarte/threadline-backend/pkg/migrate"
)

// defaultCoupons is the accepted code table until coupons move to their own
// admin surface.
var defaultCoupons = map[string]int64{
	"WELCOME10": 1000,
	"FREESHIP":  100,
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	localStore, err := kv.OpenBadger(cfg.Local)
	if err != nil {
		logg.Error(context.Background(), "failed to open local store", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(registry)

	catalogClient, err := catalog.NewClient(cfg.Catalog)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog client", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Store:        catalogClient,
		ListCacheTTL: cfg.Catalog.ListCacheTTL,
		Metrics:      cartMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	rules := pricing.Rules{
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		FlatShippingFee:       cfg.Pricing.FlatShippingFee,
		TaxRateBps:            cfg.Pricing.TaxRateBps,
	}

	cartRepo, err := cartstore.NewRepository(cartstore.RepositoryParams{
		DB:      dbClient.DB(),
		Logger:  logg,
		Coupons: defaultCoupons,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart repository", err)
		os.Exit(1)
	}
	cartManager, err := cart.NewManager(cart.ManagerParams{
		Store:   cartRepo,
		Rules:   rules,
		Logger:  logg,
		Metrics: cartMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart manager", err)
		os.Exit(1)
	}
	guestBridge, err := guest.NewBridge(guest.BridgeParams{
		Store:  localStore,
		Rules:  rules,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create guest cart bridge", err)
		os.Exit(1)
	}
	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Store:  localStore,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Catalog:     catalogService,
			CartManager: cartManager,
			GuestBridge: guestBridge,
			Wishlist:    wishlistService,
			Registry:    registry,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	closeErr := multierr.Combine(
		localStore.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(ctx, "error closing resources", closeErr)
		os.Exit(1)
	}
}
