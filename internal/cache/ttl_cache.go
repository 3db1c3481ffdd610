package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock returns the current time. Tests inject a fixed or manually advanced clock.
type Clock func() time.Time

// LoadFunc fetches a value on a cache miss.
type LoadFunc[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// pendingLoad отмечает загрузку, с которой пересекся Evict.
type pendingLoad struct {
	evicted bool
}

// TTLCache is a concurrency-safe key -> (value, expiry) map.
// Concurrent misses for the same key share one LoadFunc call.
type TTLCache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	// pending holds only loads in flight, so a load that raced with an
	// eviction does not repopulate the cache with a stale value.
	pending map[string]*pendingLoad
	ttl     time.Duration
	now     Clock
	flight  singleflight.Group
}

// NewTTLCache creates a cache. A nil clock means time.Now.
func NewTTLCache[V any](ttl time.Duration, clock Clock) *TTLCache[V] {
	if clock == nil {
		clock = time.Now
	}
	return &TTLCache[V]{
		entries: make(map[string]entry[V]),
		pending: make(map[string]*pendingLoad),
		ttl:     ttl,
		now:     clock,
	}
}

// Get returns a live entry.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value with the configured TTL.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Evict drops the key. Loads already in flight for it will not be cached.
func (c *TTLCache[V]) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	if p, ok := c.pending[key]; ok {
		p.evicted = true
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrLoad returns the cached value or calls load once for all concurrent
// callers of the same key. Errors are not cached. The bool reports a cache hit.
// The shared load ignores cancellation of any single caller; a caller whose
// ctx is done stops waiting and gets ctx.Err().
func (c *TTLCache[V]) GetOrLoad(ctx context.Context, key string, load LoadFunc[V]) (V, bool, error) {
	var zero V
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		p := &pendingLoad{}
		c.mu.Lock()
		c.pending[key] = p
		c.mu.Unlock()

		v, err := load(loadCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.pending, key)
		if err != nil {
			return nil, err
		}
		if !p.evicted {
			c.entries[key] = entry[V]{value: v, expiresAt: c.now().Add(c.ttl)}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(V), false, nil
	}
}
