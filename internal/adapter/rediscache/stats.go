// Package rediscache provides a Redis-backed stats cache for deployments
// running more than one instance, where an in-process cache would miss
// invalidations from the other writers.
package rediscache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soukhub/vitrine/internal/domain"
)

const statsKey = "vitrine:stats"

// StatsCache implements domain.StatsCache over a Redis key with TTL.
// Cache failures degrade to misses; the aggregator falls back to the
// store, so Redis being down never breaks the stats endpoint.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// Compile-time check: StatsCache implements domain.StatsCache.
var _ domain.StatsCache = (*StatsCache)(nil)

// New creates a cache over the given client.
func New(client *redis.Client, ttl time.Duration, log *slog.Logger) *StatsCache {
	if log == nil {
		log = slog.Default()
	}
	return &StatsCache{client: client, ttl: ttl, log: log}
}

func (c *StatsCache) Get(ctx context.Context) (domain.Stats, bool) {
	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if err == redis.Nil {
		return domain.Stats{}, false
	}
	if err != nil {
		c.log.WarnContext(ctx, "stats cache read failed", "error", err)
		return domain.Stats{}, false
	}

	var stats domain.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.log.WarnContext(ctx, "stats cache entry corrupt", "error", err)
		return domain.Stats{}, false
	}
	return stats, true
}

func (c *StatsCache) Set(ctx context.Context, stats domain.Stats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsKey, raw, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "stats cache write failed", "error", err)
	}
}

func (c *StatsCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		c.log.WarnContext(ctx, "stats cache invalidation failed", "error", err)
	}
}
