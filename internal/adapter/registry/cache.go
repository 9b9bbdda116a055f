package registry

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/incident-analytics/internal/analytics"
	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// CachedStore wraps a registry-backed store with a per-collection TTL cache.
// The registry serves full snapshots, so caching whole responses keeps the
// dashboard's concurrent fetches from hitting it three times per render.
// Errors are never cached; a failed refresh leaves the previous entry expired
// so the next call retries.
type CachedStore struct {
	inner   analytics.Store
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu         sync.Mutex
	incidents  cacheEntry[[]domain.IncidentRecord]
	facilities cacheEntry[[]domain.FacilityRecord]
	hotspots   cacheEntry[analytics.ServerHotspots]
}

type cacheEntry[T any] struct {
	value   T
	fetched time.Time
	valid   bool
}

// NewCachedStore creates a TTL cache decorator around a store.
func NewCachedStore(inner analytics.Store, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedStore {
	return &CachedStore{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

// FetchIncidents returns the cached incident snapshot, refreshing it from the
// registry when the entry has expired.
func (c *CachedStore) FetchIncidents(ctx context.Context) ([]domain.IncidentRecord, error) {
	return fetchCached(ctx, c, "incidents", &c.incidents, c.inner.FetchIncidents)
}

// FetchFacilities returns the cached facility snapshot.
func (c *CachedStore) FetchFacilities(ctx context.Context) ([]domain.FacilityRecord, error) {
	return fetchCached(ctx, c, "facilities", &c.facilities, c.inner.FetchFacilities)
}

// FetchServerHotspots returns the cached hotspot probe result. An unsupported
// answer is cached like any other so the probe is not repeated every call.
func (c *CachedStore) FetchServerHotspots(ctx context.Context) (analytics.ServerHotspots, error) {
	return fetchCached(ctx, c, "hotspots", &c.hotspots, c.inner.FetchServerHotspots)
}

// fetchCached serves entry if fresh, otherwise refreshes it via fetch. The
// lock is held across the fetch so concurrent callers wait for one refresh
// instead of issuing duplicate requests.
func fetchCached[T any](ctx context.Context, c *CachedStore, collection string, entry *cacheEntry[T], fetch func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.valid && c.clock.Since(entry.fetched) < c.ttl {
		c.metrics.SnapshotCache.WithLabelValues(collection, "hit").Inc()
		return entry.value, nil
	}
	c.metrics.SnapshotCache.WithLabelValues(collection, "miss").Inc()

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	entry.value = value
	entry.fetched = c.clock.Now()
	entry.valid = true
	return value, nil
}
