// Package store provides the in-memory incident snapshot used in kafka store
// mode. The ingest loop writes into it; the analytics façade reads
// point-in-time copies out of it.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/couchcryptid/incident-analytics/internal/analytics"
	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// Memory is a concurrency-safe snapshot of incident and facility records.
// Incidents are keyed by ID, so re-delivered reports overwrite rather than
// duplicate.
type Memory struct {
	mu         sync.RWMutex
	incidents  map[string]domain.IncidentRecord
	facilities []domain.FacilityRecord
	metrics    *observability.Metrics
}

// NewMemory creates an empty snapshot store.
func NewMemory(metrics *observability.Metrics) *Memory {
	return &Memory{
		incidents: make(map[string]domain.IncidentRecord),
		metrics:   metrics,
	}
}

// UpsertIncidents inserts or replaces records by ID.
func (m *Memory) UpsertIncidents(records []domain.IncidentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		m.incidents[rec.ID] = rec
	}
	m.metrics.SnapshotSize.Set(float64(len(m.incidents)))
}

// SetFacilities replaces the facility snapshot.
func (m *Memory) SetFacilities(facilities []domain.FacilityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facilities = append([]domain.FacilityRecord(nil), facilities...)
}

// LoadFacilitiesFile reads a JSON array of facility records from path and
// installs it as the facility snapshot.
func (m *Memory) LoadFacilitiesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read facilities file: %w", err)
	}

	var facilities []domain.FacilityRecord
	if err := json.Unmarshal(data, &facilities); err != nil {
		return fmt.Errorf("parse facilities file %s: %w", path, err)
	}

	m.SetFacilities(facilities)
	return nil
}

// FetchIncidents returns a copy of the incident snapshot sorted by ID.
func (m *Memory) FetchIncidents(_ context.Context) ([]domain.IncidentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]domain.IncidentRecord, 0, len(m.incidents))
	for _, rec := range m.incidents {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// FetchFacilities returns a copy of the facility snapshot.
func (m *Memory) FetchFacilities(_ context.Context) ([]domain.FacilityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.FacilityRecord(nil), m.facilities...), nil
}

// FetchServerHotspots always reports the capability unsupported. The snapshot
// store holds raw records only; ranking happens in the façade.
func (m *Memory) FetchServerHotspots(_ context.Context) (analytics.ServerHotspots, error) {
	return analytics.ServerHotspots{Supported: false}, nil
}

// Len reports the number of incident records currently held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.incidents)
}
