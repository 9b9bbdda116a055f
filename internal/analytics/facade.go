// Package analytics composes the pure domain computations into the read API
// consumed by the presentation layer. The façade is the only component that
// performs I/O; it never computes anything itself beyond orchestration.
package analytics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// ErrUnavailable marks a failed external-store fetch. Adapters wrap their
// transport errors with it; the façade surfaces it to the caller unmodified
// and never retries (retry policy belongs to the store collaborator).
var ErrUnavailable = errors.New("incident store unavailable")

// ServerHotspots is the two-variant result of the optional server-side
// hotspot computation. Supported=false is an ordinary outcome, not an error:
// the façade recovers by ranking locally aggregated region rollups.
type ServerHotspots struct {
	Supported bool
	Stats     []domain.RegionStat
}

// Store is the narrow read interface onto the external incident store. All
// methods return point-in-time snapshots; the façade treats them as
// immutable for the duration of one call.
type Store interface {
	FetchIncidents(ctx context.Context) ([]domain.IncidentRecord, error)
	FetchFacilities(ctx context.Context) ([]domain.FacilityRecord, error)
	FetchServerHotspots(ctx context.Context) (ServerHotspots, error)
}

// HotspotView pairs the two ranked hotspot listings.
type HotspotView struct {
	TopRegions       []domain.RegionStat `json:"top_regions"`
	CriticalHotspots []domain.RegionStat `json:"critical_hotspots"`
}

// Dashboard is the composed analytics payload: overall totals, per-region
// rollups, the monthly trend series, and the hotspot listings.
type Dashboard struct {
	Overall  domain.RegionStat    `json:"overall"`
	Regions  []domain.RegionStat  `json:"regions"`
	Trends   []domain.MonthlyStat `json:"trends"`
	Hotspots HotspotView          `json:"hotspots"`
}

// Service orchestrates store fetches and domain computations.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates the analytics façade over a store.
func New(store Store, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{store: store, logger: logger, metrics: metrics}
}

// RegionStatistics returns one rollup per region observed in the incident
// snapshot, sorted by region name. The recency window is anchored to a
// single instant captured at the start of the call.
func (s *Service) RegionStatistics(ctx context.Context) (stats []domain.RegionStat, err error) {
	defer s.observe("regions", time.Now(), &err)

	now := clock.Now()
	records, err := s.store.FetchIncidents(ctx)
	if err != nil {
		return nil, s.fail("regions", err)
	}
	return domain.AggregateByRegion(records, now), nil
}

// MonthlyTrends returns the per-month rollup series in chronological order.
func (s *Service) MonthlyTrends(ctx context.Context) (trends []domain.MonthlyStat, err error) {
	defer s.observe("monthly", time.Now(), &err)

	records, err := s.store.FetchIncidents(ctx)
	if err != nil {
		return nil, s.fail("monthly", err)
	}
	return domain.AggregateByMonth(records), nil
}

// Hotspots returns the ranked hotspot listings, preferring the store's
// precomputed view and falling back to local aggregation when the store
// reports the capability unsupported. Non-positive counts use the domain
// defaults.
func (s *Service) Hotspots(ctx context.Context, topN, criticalTopN int) (view HotspotView, err error) {
	defer s.observe("hotspots", time.Now(), &err)

	server, err := s.store.FetchServerHotspots(ctx)
	if err != nil {
		return HotspotView{}, s.fail("hotspots", err)
	}
	if server.Supported {
		return rankHotspots(server.Stats, topN, criticalTopN), nil
	}

	stats, err := s.RegionStatistics(ctx)
	if err != nil {
		return HotspotView{}, s.fail("hotspots", err)
	}
	s.fellBack()
	return rankHotspots(stats, topN, criticalTopN), nil
}

// NearestFacilities ranks the facility snapshot by distance from ref,
// optionally filtered to radiusKm and truncated to limit.
func (s *Service) NearestFacilities(ctx context.Context, ref domain.Coordinates, radiusKm float64, limit int) (ranked []domain.RankedFacility, err error) {
	defer s.observe("nearest", time.Now(), &err)

	facilities, err := s.store.FetchFacilities(ctx)
	if err != nil {
		return nil, s.fail("nearest", err)
	}
	ranked, err = domain.NearestFacilities(ref, facilities, radiusKm, limit)
	if err != nil {
		return nil, s.fail("nearest", err)
	}
	return ranked, nil
}

// BuildDashboard issues the three read queries concurrently and waits for
// all of them. Any fetch failure fails the whole call; there are no partial
// results. Caller cancellation propagates to all in-flight fetches through
// the group context. An unsupported server-side hotspot computation is
// recovered by ranking the region rollups already computed for the same
// dashboard.
func (s *Service) BuildDashboard(ctx context.Context) (dash Dashboard, err error) {
	defer s.observe("dashboard", time.Now(), &err)

	now := clock.Now()

	var (
		regions []domain.RegionStat
		trends  []domain.MonthlyStat
		server  ServerHotspots
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := s.store.FetchIncidents(gctx)
		if err != nil {
			return err
		}
		regions = domain.AggregateByRegion(records, now)
		return nil
	})
	g.Go(func() error {
		records, err := s.store.FetchIncidents(gctx)
		if err != nil {
			return err
		}
		trends = domain.AggregateByMonth(records)
		return nil
	})
	g.Go(func() error {
		var err error
		server, err = s.store.FetchServerHotspots(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, s.fail("dashboard", err)
	}

	hotspotSource := server.Stats
	if !server.Supported {
		s.fellBack()
		hotspotSource = regions
	}

	return Dashboard{
		Overall:  domain.OverallStats(regions),
		Regions:  regions,
		Trends:   trends,
		Hotspots: rankHotspots(hotspotSource, 0, 0),
	}, nil
}

func rankHotspots(stats []domain.RegionStat, topN, criticalTopN int) HotspotView {
	return HotspotView{
		TopRegions:       domain.TopRegionsByVolume(stats, topN),
		CriticalHotspots: domain.CriticalHotspots(stats, criticalTopN),
	}
}

func (s *Service) observe(query string, start time.Time, err *error) {
	s.metrics.QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	outcome := "success"
	if *err != nil {
		outcome = "error"
	}
	s.metrics.QueriesTotal.WithLabelValues(query, outcome).Inc()
}

func (s *Service) fail(query string, err error) error {
	s.logger.Warn("analytics query failed", "query", query, "error", err)
	return err
}

func (s *Service) fellBack() {
	s.metrics.HotspotFallbacks.Inc()
	s.logger.Debug("server hotspots unsupported, ranking local rollups")
}
