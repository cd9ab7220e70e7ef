package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records reconciliation engine activity.
type CartMetrics struct {
	mutations  *prometheus.CounterVec
	rollbacks  *prometheus.CounterVec
	staleDrops prometheus.Counter
	cacheHits  prometheus.Counter
	cacheMiss  prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and outcome.",
	}, []string{"op", "outcome"})
	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_rollbacks_total",
		Help: "Optimistic mutations rolled back after a store failure.",
	}, []string{"op"})
	staleDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_stale_responses_dropped_total",
		Help: "Store responses discarded because a newer mutation was applied.",
	})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_list_cache_hits_total",
		Help: "Catalog list cache hits.",
	})
	cacheMiss := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_list_cache_misses_total",
		Help: "Catalog list cache misses.",
	})
	reg.MustRegister(mutations, rollbacks, staleDrops, cacheHits, cacheMiss)
	return &CartMetrics{
		mutations:  mutations,
		rollbacks:  rollbacks,
		staleDrops: staleDrops,
		cacheHits:  cacheHits,
		cacheMiss:  cacheMiss,
	}
}

// IncMutation records a mutation outcome for the named operation.
func (c *CartMetrics) IncMutation(op, outcome string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// IncRollback records a rollback for the named operation.
func (c *CartMetrics) IncRollback(op string) {
	if c == nil || c.rollbacks == nil {
		return
	}
	c.rollbacks.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncStaleDrop records a discarded out-of-order store response.
func (c *CartMetrics) IncStaleDrop() {
	if c == nil || c.staleDrops == nil {
		return
	}
	c.staleDrops.Inc()
}

// IncCacheHit records a catalog list cache hit.
func (c *CartMetrics) IncCacheHit() {
	if c == nil || c.cacheHits == nil {
		return
	}
	c.cacheHits.Inc()
}

// IncCacheMiss records a catalog list cache miss.
func (c *CartMetrics) IncCacheMiss() {
	if c == nil || c.cacheMiss == nil {
		return
	}
	c.cacheMiss.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
