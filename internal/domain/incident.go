package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Severity classifies how serious an incident is.
type Severity string

// Severity values, ordered from least to most serious.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status tracks an incident through its review lifecycle.
type Status string

// Status values.
const (
	StatusSubmitted     Status = "submitted"
	StatusUnderReview   Status = "under_review"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

var (
	validSeverities = map[Severity]bool{
		SeverityLow: true, SeverityMedium: true, SeverityHigh: true, SeverityCritical: true,
	}
	validStatuses = map[Status]bool{
		StatusSubmitted: true, StatusUnderReview: true, StatusInvestigating: true,
		StatusResolved: true, StatusClosed: true,
	}
)

// Coordinates is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IncidentRecord is a read-only copy of an incident report owned by the
// external store.
type IncidentRecord struct {
	ID         string    `json:"id"`
	Region     string    `json:"region"`
	Severity   Severity  `json:"severity"`
	Status     Status    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// FacilityRecord is a read-only copy of a facility directory entry.
type FacilityRecord struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Region      string      `json:"region"`
	Coordinates Coordinates `json:"coordinates"`
	Services    []string    `json:"services,omitempty"`
	Rating      float64     `json:"rating"`
	Hours       string      `json:"hours,omitempty"`
}

// RegionStat is the per-region rollup derived from an incident snapshot.
// Recent counts records created within the trailing 30-day window.
type RegionStat struct {
	Region   string `json:"region"`
	Total    int    `json:"total"`
	Critical int    `json:"critical"`
	Resolved int    `json:"resolved"`
	Recent   int    `json:"recent"`
}

// RiskLevel derives the display label for a region from its critical count.
// Derived on demand, never stored.
func (s RegionStat) RiskLevel() string {
	switch {
	case s.Critical > 5:
		return "High"
	case s.Critical > 2:
		return "Medium"
	default:
		return "Low"
	}
}

// ResolutionRate returns the resolved share as a whole percentage.
// A region with no records has a rate of 0 by policy, not an error.
func (s RegionStat) ResolutionRate() int {
	if s.Total == 0 {
		return 0
	}
	return int(math.Round(float64(s.Resolved) / float64(s.Total) * 100))
}

// MonthlyStat is the per-calendar-month rollup derived from an incident
// snapshot. Period is a sortable "YYYY-MM" key in UTC.
type MonthlyStat struct {
	Period   string `json:"period"`
	Total    int    `json:"total"`
	Critical int    `json:"critical"`
	Resolved int    `json:"resolved"`
}

// RankedFacility pairs a facility with its computed distance from a reference
// point, rounded to one decimal place.
type RankedFacility struct {
	FacilityRecord
	DistanceKm float64 `json:"distance_km"`
}

// RawReport is an unprocessed incident message from the ingest topic.
type RawReport struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ParseIncident deserializes and validates a raw report's value. Records with
// an empty region or an unknown severity or status are rejected before they
// can reach the snapshot store.
func ParseIncident(raw RawReport) (IncidentRecord, error) {
	var rec IncidentRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return IncidentRecord{}, fmt.Errorf("parse incident: %w", err)
	}

	rec.Region = strings.TrimSpace(rec.Region)
	if rec.Region == "" {
		return IncidentRecord{}, fmt.Errorf("parse incident %q: empty region", rec.ID)
	}
	if !validSeverities[rec.Severity] {
		return IncidentRecord{}, fmt.Errorf("parse incident %q: unknown severity %q", rec.ID, rec.Severity)
	}
	if !validStatuses[rec.Status] {
		return IncidentRecord{}, fmt.Errorf("parse incident %q: unknown status %q", rec.ID, rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = raw.Timestamp
	}
	return rec, nil
}
