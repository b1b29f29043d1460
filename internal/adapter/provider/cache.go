package provider

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/airlens/aqi-service/internal/domain"
	"github.com/airlens/aqi-service/internal/observability"
)

// CachedSource wraps a MeasurementSource with an in-memory TTL cache keyed by
// location. Repeated refreshes inside the TTL window reuse the previous fetch
// instead of hitting the upstream API again.
type CachedSource struct {
	inner   MeasurementSource
	cache   *ttlCache
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a measurement source.
func NewCachedSource(inner MeasurementSource, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newTTLCache(maxEntries, ttl),
		metrics: metrics,
	}
}

func (c *CachedSource) Name() string {
	return c.inner.Name()
}

func (c *CachedSource) Measurements(ctx context.Context, loc domain.Location) ([]domain.RawMeasurement, error) {
	key := c.inner.Name() + "|" + loc.Key()
	if raws, ok := c.cache.get(key); ok {
		c.metrics.ProviderCache.WithLabelValues(c.inner.Name(), "hit").Inc()
		return raws, nil
	}
	c.metrics.ProviderCache.WithLabelValues(c.inner.Name(), "miss").Inc()

	raws, err := c.inner.Measurements(ctx, loc)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so a transient station outage can be
	// retried on the next refresh.
	if len(raws) > 0 {
		c.cache.put(key, raws)
	}
	return raws, nil
}

// SetClock replaces the cache clock. Passing nil restores the real clock.
// Intended for tests.
func (c *CachedSource) SetClock(clk clockwork.Clock) {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	c.cache.clock = clk
}

// ttlCache is a thread-safe LRU cache whose entries expire after a fixed TTL.
type ttlCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*cacheEntry
	head    *cacheEntry // most recently used
	tail    *cacheEntry // least recently used
}

type cacheEntry struct {
	key       string
	value     []domain.RawMeasurement
	expiresAt time.Time
	prev      *cacheEntry
	next      *cacheEntry
}

func newTTLCache(maxEntries int, ttl time.Duration) *ttlCache {
	return &ttlCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clockwork.NewRealClock(),
		entries:    make(map[string]*cacheEntry),
	}
}

func (c *ttlCache) get(key string) ([]domain.RawMeasurement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *ttlCache) put(key string, value []domain.RawMeasurement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &cacheEntry{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *ttlCache) moveToFront(e *cacheEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *ttlCache) addToFront(e *cacheEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *ttlCache) remove(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *ttlCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
