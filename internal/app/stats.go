package app

import (
	"context"

	"github.com/soukhub/vitrine/internal/domain"
)

// StatsAggregator computes the advisory pool counts from the slot store,
// fronted by an injected cache. Results are display-only: a read racing an
// in-flight transition may be one update stale, which is acceptable.
type StatsAggregator struct {
	repo  domain.SlotRepository
	cache domain.StatsCache
}

// NewStatsAggregator creates an aggregator over the given store and cache.
func NewStatsAggregator(repo domain.SlotRepository, cache domain.StatsCache) *StatsAggregator {
	return &StatsAggregator{repo: repo, cache: cache}
}

// Get returns the current counts, serving from cache when fresh.
// total is the fixed pool size; available is whatever is neither live nor
// in maintenance, so the three buckets always sum to the total.
func (a *StatsAggregator) Get(ctx context.Context) (domain.Stats, error) {
	if stats, ok := a.cache.Get(ctx); ok {
		return stats, nil
	}

	counts, err := a.repo.CountByStatus(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{
		Total:       domain.SlotCount,
		Live:        counts.Live,
		Maintenance: counts.Maintenance,
		Available:   domain.SlotCount - counts.Live - counts.Maintenance,
	}
	a.cache.Set(ctx, stats)
	return stats, nil
}

// Invalidate drops the cached counts. Called after every successful
// operational-status mutation.
func (a *StatsAggregator) Invalidate(ctx context.Context) {
	a.cache.Invalidate(ctx)
}
