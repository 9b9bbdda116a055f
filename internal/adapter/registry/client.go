// Package registry implements the analytics.Store interface over the
// incident registry's HTTP read API.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/analytics"
	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// Client fetches incident, facility, and hotspot snapshots from the registry.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a registry client. token may be empty when the registry
// does not require authentication.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// FetchIncidents retrieves the full incident snapshot.
func (c *Client) FetchIncidents(ctx context.Context) ([]domain.IncidentRecord, error) {
	var records []domain.IncidentRecord
	if err := c.getJSON(ctx, "/incidents", "incidents", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchFacilities retrieves the facility directory snapshot.
func (c *Client) FetchFacilities(ctx context.Context) ([]domain.FacilityRecord, error) {
	var facilities []domain.FacilityRecord
	if err := c.getJSON(ctx, "/facilities", "facilities", &facilities); err != nil {
		return nil, err
	}
	return facilities, nil
}

// FetchServerHotspots asks the registry for its precomputed region rollups.
// A 501 response means the registry does not implement the computation; that
// is reported as Supported=false, not as an error.
func (c *Client) FetchServerHotspots(ctx context.Context) (analytics.ServerHotspots, error) {
	start := time.Now()

	resp, err := c.do(ctx, "/hotspots")
	if err != nil {
		c.metrics.StoreFetches.WithLabelValues("hotspots", "error").Inc()
		return analytics.ServerHotspots{}, fmt.Errorf("%w: hotspots: %v", analytics.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	c.metrics.FetchDuration.WithLabelValues("hotspots").Observe(time.Since(start).Seconds())

	if resp.StatusCode == http.StatusNotImplemented {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.metrics.StoreFetches.WithLabelValues("hotspots", "unsupported").Inc()
		return analytics.ServerHotspots{Supported: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.metrics.StoreFetches.WithLabelValues("hotspots", "error").Inc()
		return analytics.ServerHotspots{}, fmt.Errorf("%w: hotspots: status %d: %s", analytics.ErrUnavailable, resp.StatusCode, body)
	}

	var stats []domain.RegionStat
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		c.metrics.StoreFetches.WithLabelValues("hotspots", "error").Inc()
		return analytics.ServerHotspots{}, fmt.Errorf("%w: decode hotspots: %v", analytics.ErrUnavailable, err)
	}

	c.metrics.StoreFetches.WithLabelValues("hotspots", "success").Inc()
	return analytics.ServerHotspots{Supported: true, Stats: stats}, nil
}

func (c *Client) getJSON(ctx context.Context, path, collection string, out any) error {
	start := time.Now()

	resp, err := c.do(ctx, path)
	if err != nil {
		c.metrics.StoreFetches.WithLabelValues(collection, "error").Inc()
		return fmt.Errorf("%w: %s: %v", analytics.ErrUnavailable, collection, err)
	}
	defer resp.Body.Close()
	c.metrics.FetchDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.metrics.StoreFetches.WithLabelValues(collection, "error").Inc()
		return fmt.Errorf("%w: %s: status %d: %s", analytics.ErrUnavailable, collection, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.StoreFetches.WithLabelValues(collection, "error").Inc()
		return fmt.Errorf("%w: decode %s: %v", analytics.ErrUnavailable, collection, err)
	}

	c.metrics.StoreFetches.WithLabelValues(collection, "success").Inc()
	return nil
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1"+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpClient.Do(req)
}
