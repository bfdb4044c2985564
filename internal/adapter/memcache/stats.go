// Package memcache provides an in-process TTL cache for the pool stats.
// It is the default backend; deployments with several instances can swap
// in the Redis adapter so invalidations are shared.
package memcache

import (
	"context"
	"sync"
	"time"

	"github.com/soukhub/vitrine/internal/domain"
)

// StatsCache implements domain.StatsCache with a mutex-guarded value and
// expiry.
type StatsCache struct {
	ttl time.Duration

	mu      sync.Mutex
	stats   domain.Stats
	expires time.Time
	valid   bool
}

// Compile-time check: StatsCache implements domain.StatsCache.
var _ domain.StatsCache = (*StatsCache)(nil)

// New creates a cache holding stats for the given TTL.
func New(ttl time.Duration) *StatsCache {
	return &StatsCache{ttl: ttl}
}

func (c *StatsCache) Get(_ context.Context) (domain.Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || time.Now().After(c.expires) {
		return domain.Stats{}, false
	}
	return c.stats, true
}

func (c *StatsCache) Set(_ context.Context, stats domain.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats = stats
	c.expires = time.Now().Add(c.ttl)
	c.valid = true
}

func (c *StatsCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
}
