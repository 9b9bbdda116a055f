package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analytics service.
type Metrics struct {
	// Façade query metrics.
	QueriesTotal     *prometheus.CounterVec   // labels: query={regions,monthly,hotspots,nearest,dashboard}, outcome={success,error}
	QueryDuration    *prometheus.HistogramVec // labels: query
	HotspotFallbacks prometheus.Counter

	// External store metrics.
	StoreFetches  *prometheus.CounterVec   // labels: collection={incidents,facilities,hotspots}, outcome={success,error,unsupported}
	FetchDuration *prometheus.HistogramVec // labels: collection
	SnapshotCache *prometheus.CounterVec   // labels: collection, result={hit,miss}

	// Ingest metrics (kafka store mode).
	ReportsIngested prometheus.Counter
	ReportsSkipped  prometheus.Counter
	IngestRunning   prometheus.Gauge
	IngestBatchSize prometheus.Histogram
	SnapshotSize    prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.QueriesTotal,
		m.QueryDuration,
		m.HotspotFallbacks,
		m.StoreFetches,
		m.FetchDuration,
		m.SnapshotCache,
		m.ReportsIngested,
		m.ReportsSkipped,
		m.IngestRunning,
		m.IngestBatchSize,
		m.SnapshotSize,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "queries_total",
			Help:      "Analytics queries by type and outcome.",
		}, []string{"query", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "incident_analytics",
			Name:      "query_duration_seconds",
			Help:      "End-to-end analytics query duration, including store fetches.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"query"}),
		HotspotFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "hotspot_fallbacks_total",
			Help:      "Hotspot queries served by local aggregation because the store reported the capability unsupported.",
		}),
		StoreFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "store_fetches_total",
			Help:      "External store fetches by collection and outcome.",
		}, []string{"collection", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "incident_analytics",
			Name:      "store_fetch_duration_seconds",
			Help:      "External store fetch duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"collection"}),
		SnapshotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "snapshot_cache_total",
			Help:      "Snapshot cache lookups by collection and result.",
		}, []string{"collection", "result"}),
		ReportsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "reports_ingested_total",
			Help:      "Incident reports consumed into the snapshot store.",
		}),
		ReportsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "reports_skipped_total",
			Help:      "Malformed incident reports skipped during ingest.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_analytics",
			Name:      "ingest_running",
			Help:      "1 when the ingest loop is active, 0 when shut down.",
		}),
		IngestBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_analytics",
			Name:      "ingest_batch_size",
			Help:      "Number of reports per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		SnapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_analytics",
			Name:      "snapshot_size",
			Help:      "Incident records currently held in the in-memory snapshot store.",
		}),
	}
}
