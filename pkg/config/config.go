package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv         = "THREADLINE_APP_ENV"
	EnvPort           = "THREADLINE_APP_PORT"
	EnvDBDSN          = "THREADLINE_DB_DSN"
	EnvCatalogBaseURL = "THREADLINE_CATALOG_BASE_URL"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Pricing PricingConfig
	Catalog CatalogConfig
	Local   LocalStoreConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"THREADLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"THREADLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THREADLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THREADLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"THREADLINE_DB_DSN" required:"true"`
	Driver string `envconfig:"THREADLINE_DB_DRIVER" default:"sqlite"`

	MaxOpenConns    int           `envconfig:"THREADLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THREADLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THREADLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THREADLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) validate() error {
	switch strings.ToLower(db.Driver) {
	case "sqlite", "postgres":
		return nil
	}
	return fmt.Errorf("unsupported db driver %q", db.Driver)
}

// PricingConfig carries the storefront pricing rules. Amounts are integer
// minor currency units and the tax rate is expressed in basis points.
type PricingConfig struct {
	FreeShippingThreshold int64 `envconfig:"THREADLINE_PRICING_FREE_SHIPPING_THRESHOLD" default:"1000"`
	FlatShippingFee       int64 `envconfig:"THREADLINE_PRICING_FLAT_SHIPPING_FEE" default:"100"`
	TaxRateBps            int64 `envconfig:"THREADLINE_PRICING_TAX_RATE_BPS" default:"1800"`
	DefaultLowStock       int   `envconfig:"THREADLINE_PRICING_DEFAULT_LOW_STOCK" default:"10"`
}

func (p PricingConfig) validate() error {
	if p.FreeShippingThreshold < 0 || p.FlatShippingFee < 0 {
		return fmt.Errorf("shipping amounts must be non-negative")
	}
	if p.TaxRateBps < 0 || p.TaxRateBps > 10000 {
		return fmt.Errorf("tax rate must be between 0 and 10000 bps")
	}
	return nil
}

type CatalogConfig struct {
	BaseURL        string        `envconfig:"THREADLINE_CATALOG_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"THREADLINE_CATALOG_REQUEST_TIMEOUT" default:"5s"`
	ListCacheTTL   time.Duration `envconfig:"THREADLINE_CATALOG_LIST_CACHE_TTL" default:"1m"`
}

// LocalStoreConfig configures the embedded store backing guest carts and
// wishlists.
type LocalStoreConfig struct {
	Path     string `envconfig:"THREADLINE_LOCAL_STORE_PATH" default:"./data/local"`
	InMemory bool   `envconfig:"THREADLINE_LOCAL_STORE_IN_MEMORY" default:"false"`
}
