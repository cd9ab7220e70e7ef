package catalog

import (
	"context"
	"time"

	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
	"github.com/sofiaduarte/threadline-backend/pkg/metrics"
)

// Service fronts the catalog store with the unfiltered-list cache.
type Service interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, filter Filter) ([]Product, error)
	// InvalidateListCache drops the cached unfiltered list. Call after any
	// mutation affecting catalog data.
	InvalidateListCache()
}

type service struct {
	store   Store
	cache   *listCache
	metrics *metrics.CartMetrics
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Store        Store
	ListCacheTTL time.Duration
	Metrics      *metrics.CartMetrics
}

// NewService builds a catalog service backed by the provided store.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog store is required")
	}
	return &service{
		store:   params.Store,
		cache:   newListCache(params.ListCacheTTL),
		metrics: params.Metrics,
	}, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, filter Filter) ([]Product, error) {
	if !filter.IsEmpty() {
		return s.store.ListProducts(ctx, filter)
	}

	if cached, ok := s.cache.get(); ok {
		s.metrics.IncCacheHit()
		return cached, nil
	}
	s.metrics.IncCacheMiss()

	products, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.cache.set(products)
	return products, nil
}

func (s *service) InvalidateListCache() {
	s.cache.invalidate()
}
