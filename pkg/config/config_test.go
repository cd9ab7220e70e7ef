package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}

	if cfg.Pricing.FreeShippingThreshold != 1000 {
		t.Fatalf("unexpected free shipping threshold %d", cfg.Pricing.FreeShippingThreshold)
	}
	if cfg.Pricing.FlatShippingFee != 100 {
		t.Fatalf("unexpected flat fee %d", cfg.Pricing.FlatShippingFee)
	}
	if cfg.Pricing.TaxRateBps != 1800 {
		t.Fatalf("unexpected tax rate %d", cfg.Pricing.TaxRateBps)
	}
	if cfg.Pricing.DefaultLowStock != 10 {
		t.Fatalf("unexpected low stock default %d", cfg.Pricing.DefaultLowStock)
	}

	if got := cfg.Catalog.ListCacheTTL; got != time.Minute {
		t.Fatalf("expected list cache ttl 1m, got %v", got)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("THREADLINE_DB_DRIVER", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected unsupported driver to return an error")
	}
}

func TestLoad_RejectsBadTaxRate(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("THREADLINE_PRICING_TAX_RATE_BPS", "20000")

	if _, err := Load(); err == nil {
		t.Fatal("expected out-of-range tax rate to return an error")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvDBDSN, "file:threadline.db?cache=shared")
	t.Setenv(EnvCatalogBaseURL, "http://localhost:9090")
}
