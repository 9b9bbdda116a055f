package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/incident-analytics/internal/adapter/http"
	"github.com/couchcryptid/incident-analytics/internal/analytics"
	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

var serverNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type stubStore struct {
	incidents  []domain.IncidentRecord
	facilities []domain.FacilityRecord
	hotspots   analytics.ServerHotspots
	err        error
}

func (s *stubStore) FetchIncidents(context.Context) ([]domain.IncidentRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.incidents, nil
}

func (s *stubStore) FetchFacilities(context.Context) ([]domain.FacilityRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.facilities, nil
}

func (s *stubStore) FetchServerHotspots(context.Context) (analytics.ServerHotspots, error) {
	if s.err != nil {
		return analytics.ServerHotspots{}, s.err
	}
	return s.hotspots, nil
}

func newTestServer(t *testing.T, store analytics.Store, readyErr error) *httpadapter.Server {
	t.Helper()
	analytics.SetClock(clockwork.NewFakeClockAt(serverNow))
	t.Cleanup(func() { analytics.SetClock(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := analytics.New(store, logger, observability.NewMetricsForTesting())
	return httpadapter.NewServer(":0", svc, &mockReadiness{err: readyErr}, logger)
}

func populatedStore() *stubStore {
	return &stubStore{
		incidents: []domain.IncidentRecord{
			{ID: "i1", Region: "Nairobi", Severity: domain.SeverityCritical, Status: domain.StatusSubmitted, CreatedAt: serverNow.Add(-time.Hour)},
			{ID: "i2", Region: "Nairobi", Severity: domain.SeverityLow, Status: domain.StatusResolved, CreatedAt: serverNow.Add(-48 * time.Hour)},
			{ID: "i3", Region: "Mombasa", Severity: domain.SeverityHigh, Status: domain.StatusUnderReview, CreatedAt: serverNow.Add(-40 * 24 * time.Hour)},
		},
		facilities: []domain.FacilityRecord{
			{ID: "f1", Name: "Central Station", Region: "Nairobi", Coordinates: domain.Coordinates{Lat: -1.2696, Lon: 36.8219}},
			{ID: "f2", Name: "Kilimani Station", Region: "Nairobi", Coordinates: domain.Coordinates{Lat: -1.2543, Lon: 36.8219}},
		},
		hotspots: analytics.ServerHotspots{Supported: false},
	}
}

func get(srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	srv.ServeHTTP(rec, req)
	return rec
}

func TestRegionStats(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/api/v1/stats/regions")

	require.Equal(t, http.StatusOK, rec.Code)

	var body []struct {
		Region         string `json:"region"`
		Total          int    `json:"total"`
		RiskLevel      string `json:"risk_level"`
		ResolutionRate int    `json:"resolution_rate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body, 2)
	assert.Equal(t, "Mombasa", body[0].Region)
	assert.Equal(t, "Nairobi", body[1].Region)
	assert.Equal(t, 2, body[1].Total)
	assert.Equal(t, "Low", body[1].RiskLevel)
	assert.Equal(t, 50, body[1].ResolutionRate)
}

func TestMonthlyStats(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/api/v1/stats/monthly")

	require.Equal(t, http.StatusOK, rec.Code)

	var body []domain.MonthlyStat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body, 2)
	assert.Equal(t, "2026-02", body[0].Period)
	assert.Equal(t, "2026-03", body[1].Period)
}

func TestHotspots(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/api/v1/hotspots?top=1")

	require.Equal(t, http.StatusOK, rec.Code)

	var body analytics.HotspotView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body.TopRegions, 1)
	assert.Equal(t, "Nairobi", body.TopRegions[0].Region)
}

func TestHotspots_InvalidParam(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/api/v1/hotspots?top=abc")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNearestFacilities(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/api/v1/facilities/nearest?lat=-1.2921&lon=36.8219&limit=1")

	require.Equal(t, http.StatusOK, rec.Code)

	var body []domain.RankedFacility
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body, 1)
	assert.Equal(t, "Central Station", body[0].Name)
	assert.Equal(t, 2.5, body[0].DistanceKm)
}

func TestNearestFacilities_MissingCoordinates(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/api/v1/facilities/nearest")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNearestFacilities_OutOfRangeCoordinates(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/api/v1/facilities/nearest?lat=91&lon=0")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/api/v1/dashboard")

	require.Equal(t, http.StatusOK, rec.Code)

	var body analytics.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 3, body.Overall.Total)
	require.Len(t, body.Regions, 2)
	require.Len(t, body.Trends, 2)
	assert.NotEmpty(t, body.Hotspots.TopRegions)
}

func TestStoreUnavailableReturns503(t *testing.T) {
	srv := newTestServer(t, &stubStore{err: analytics.ErrUnavailable}, nil)
	rec := get(srv, "/api/v1/dashboard")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(t, populatedStore(), fmt.Errorf("not ready yet"))
	rec := get(srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, populatedStore(), nil)
	rec := get(srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
