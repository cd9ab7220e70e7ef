package catalog

import (
	"sync"
	"time"
)

// listCache holds the most recent unfiltered product list with an explicit
// value/timestamp/ttl triple. It only serves the empty filter; filtered
// listings always hit the catalog service.
type listCache struct {
	mu        sync.Mutex
	value     []Product
	timestamp time.Time
	ttl       time.Duration
	now       func() time.Time
}

func newListCache(ttl time.Duration) *listCache {
	return &listCache{ttl: ttl, now: time.Now}
}

func (c *listCache) get() ([]Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil || c.ttl <= 0 {
		return nil, false
	}
	if c.now().Sub(c.timestamp) > c.ttl {
		c.value = nil
		return nil, false
	}
	out := make([]Product, len(c.value))
	copy(out, c.value)
	return out, true
}

func (c *listCache) set(products []Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]Product, len(products))
	copy(cp, products)
	c.value = cp
	c.timestamp = c.now()
}

func (c *listCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.timestamp = time.Time{}
}
