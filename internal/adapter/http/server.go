// Package http exposes the analytics read API plus health, readiness, and
// metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/incident-analytics/internal/analytics"
	"github.com/couchcryptid/incident-analytics/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the analytics API over HTTP.
type Server struct {
	httpServer *http.Server
	service    *analytics.Service
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the analytics routes plus /healthz,
// /readyz, and /metrics.
func NewServer(addr string, service *analytics.Service, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("GET /api/v1/stats/regions", s.handleRegionStats)
	mux.HandleFunc("GET /api/v1/stats/monthly", s.handleMonthlyStats)
	mux.HandleFunc("GET /api/v1/hotspots", s.handleHotspots)
	mux.HandleFunc("GET /api/v1/facilities/nearest", s.handleNearestFacilities)
	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// regionStatView adds the derived display fields to a region rollup.
type regionStatView struct {
	domain.RegionStat
	RiskLevel      string `json:"risk_level"`
	ResolutionRate int    `json:"resolution_rate"`
}

func toRegionViews(stats []domain.RegionStat) []regionStatView {
	views := make([]regionStatView, len(stats))
	for i, s := range stats {
		views[i] = regionStatView{
			RegionStat:     s,
			RiskLevel:      s.RiskLevel(),
			ResolutionRate: s.ResolutionRate(),
		}
	}
	return views
}

func (s *Server) handleRegionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.RegionStatistics(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRegionViews(stats))
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	trends, err := s.service.MonthlyTrends(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	topN, err := intParam(r, "top", 0)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	criticalTopN, err := intParam(r, "critical", 0)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	view, err := s.service.Hotspots(r.Context(), topN, criticalTopN)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleNearestFacilities(w http.ResponseWriter, r *http.Request) {
	lat, err := floatParam(r, "lat")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	lon, err := floatParam(r, "lon")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	radiusKm := 0.0
	if v := r.URL.Query().Get("radius_km"); v != "" {
		radiusKm, err = strconv.ParseFloat(v, 64)
		if err != nil {
			writeBadRequest(w, errors.New("invalid radius_km"))
			return
		}
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	ranked, err := s.service.NearestFacilities(r.Context(), domain.Coordinates{Lat: lat, Lon: lon}, radiusKm, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.service.BuildDashboard(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// writeError maps service errors to status codes: invalid coordinates are the
// caller's fault, an unavailable store is ours.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinate):
		writeBadRequest(w, err)
	case errors.Is(err, analytics.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "incident store unavailable"})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func floatParam(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, errors.New("missing " + name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
