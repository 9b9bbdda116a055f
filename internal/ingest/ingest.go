// Package ingest runs the consume-parse-store loop that keeps the in-memory
// incident snapshot current in kafka store mode.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// BatchExtractor reads up to batchSize raw reports from the source topic.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawReport, error)
}

// Sink receives parsed incident records.
type Sink interface {
	UpsertIncidents(records []domain.IncidentRecord)
}

// Ingester orchestrates the consume-parse-store loop.
type Ingester struct {
	extractor BatchExtractor
	sink      Sink
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// New creates an Ingester with the given source, sink, and observability.
func New(e BatchExtractor, sink Sink, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Ingester {
	return &Ingester{
		extractor: e,
		sink:      sink,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once at least one report has been stored, or an
// error describing why the service is not yet ready.
func (g *Ingester) CheckReadiness(_ context.Context) error {
	if !g.ready.Load() {
		return errors.New("ingest has not stored any reports yet")
	}
	return nil
}

// Run executes the ingest loop until the context is cancelled.
func (g *Ingester) Run(ctx context.Context) error {
	g.logger.Info("ingest started", "batch_size", g.batchSize)
	g.metrics.IngestRunning.Set(1)
	defer g.metrics.IngestRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("ingest stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !g.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one consume-parse-store cycle. Returns false if the loop
// should stop.
func (g *Ingester) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	rawBatch, err := g.extractor.ExtractBatch(ctx, g.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		g.logger.Error("extract batch failed", "error", err)
		return g.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	g.metrics.IngestBatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	records := make([]domain.IncidentRecord, 0, len(rawBatch))
	stored := make([]domain.RawReport, 0, len(rawBatch))
	for _, raw := range rawBatch {
		rec, err := domain.ParseIncident(raw)
		if err != nil {
			g.logger.Warn("parse failed, skipping report",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			g.metrics.ReportsSkipped.Inc()
			// Malformed reports never become parseable; commit so they are
			// not re-delivered.
			g.commitOffset(ctx, raw)
			continue
		}
		records = append(records, rec)
		stored = append(stored, raw)
	}

	if len(records) > 0 {
		g.sink.UpsertIncidents(records)
		g.metrics.ReportsIngested.Add(float64(len(records)))
		g.ready.Store(true)
	}

	for _, raw := range stored {
		g.commitOffset(ctx, raw)
	}
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the loop should stop.
func (g *Ingester) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the report offset if a commit function is available.
func (g *Ingester) commitOffset(ctx context.Context, raw domain.RawReport) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		g.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
