package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/ingest"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawReport
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawReport, error) {
	i := int(m.index.Add(1) - 1)
	if m.err != nil && i == 0 {
		return nil, m.err
	}
	if i >= len(m.batches) {
		// Block until cancellation to simulate waiting for messages.
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockSink struct {
	records []domain.IncidentRecord
}

func (m *mockSink) UpsertIncidents(records []domain.IncidentRecord) {
	m.records = append(m.records, records...)
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestIngester_Run_HappyPath(t *testing.T) {
	raw := makeRawReport(t, "inc-1", "Nairobi")

	ext := &mockExtractor{batches: [][]domain.RawReport{{raw}}}
	sink := &mockSink{}

	g := ingest.New(ext, sink, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := g.Run(ctx)
	require.NoError(t, err)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "inc-1", sink.records[0].ID)
	assert.NoError(t, g.CheckReadiness(context.Background()))
}

func TestIngester_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	sink := &mockSink{}

	g := ingest.New(ext, sink, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, sink.records)
}

func TestIngester_Run_SkipsMalformedReports(t *testing.T) {
	bad := domain.RawReport{Value: []byte("not json")}
	badCommitted := false
	bad.Commit = func(context.Context) error {
		badCommitted = true
		return nil
	}
	good := makeRawReport(t, "inc-2", "Mombasa")

	ext := &mockExtractor{batches: [][]domain.RawReport{{bad, good}}}
	sink := &mockSink{}

	g := ingest.New(ext, sink, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := g.Run(ctx)
	require.NoError(t, err)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "inc-2", sink.records[0].ID)
	assert.True(t, badCommitted)
}

func TestIngester_Run_CommitsAfterStore(t *testing.T) {
	committed := false
	raw := makeRawReport(t, "inc-3", "Kisumu")
	raw.Commit = func(context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawReport{{raw}}}
	sink := &mockSink{}

	g := ingest.New(ext, sink, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := g.Run(ctx)
	require.NoError(t, err)
	assert.True(t, committed)
}

func TestIngester_Run_RecoversFromExtractError(t *testing.T) {
	raw := makeRawReport(t, "inc-4", "Nakuru")

	ext := &mockExtractor{
		err:     errors.New("broker down"),
		batches: [][]domain.RawReport{nil, {raw}},
	}
	sink := &mockSink{}

	g := ingest.New(ext, sink, discardLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := g.Run(ctx)
	require.NoError(t, err)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "inc-4", sink.records[0].ID)
}

func TestIngester_NotReadyBeforeFirstStore(t *testing.T) {
	g := ingest.New(&mockExtractor{}, &mockSink{}, discardLogger(), newTestMetrics(), 50)
	assert.Error(t, g.CheckReadiness(context.Background()))
}

// --- helpers ---

func makeRawReport(t *testing.T, id, region string) domain.RawReport {
	t.Helper()
	data, err := json.Marshal(domain.IncidentRecord{
		ID:        id,
		Region:    region,
		Severity:  domain.SeverityHigh,
		Status:    domain.StatusSubmitted,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return domain.RawReport{
		Key:   []byte(id),
		Value: data,
	}
}
