// Command genmock generates deterministic incident and facility fixtures for
// the test suites. It runs the actual aggregation code over the generated
// records so the printed stats can be pasted into test assertions.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -incidents-out data/mock/incidents.json \
//	  -facilities-out data/mock/facilities.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/domain"
)

// Fixed seed and base time keep the fixtures reproducible across runs.
const seed = 20260315

var baseTime = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

var regions = []string{
	"Nairobi", "Mombasa", "Kisumu", "Nakuru", "Eldoret",
	"Thika", "Machakos", "Nyeri", "Kakamega", "Garissa",
}

var severities = []domain.Severity{
	domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical,
}

var statuses = []domain.Status{
	domain.StatusSubmitted, domain.StatusUnderReview, domain.StatusInvestigating,
	domain.StatusResolved, domain.StatusClosed,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	incidentsOut := flag.String("incidents-out", "", "output path for incident JSON fixture")
	facilitiesOut := flag.String("facilities-out", "", "output path for facility JSON fixture")
	count := flag.Int("count", 500, "number of incident records to generate")
	flag.Parse()

	if *incidentsOut == "" || *facilitiesOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -incidents-out, -facilities-out")
	}

	rng := rand.New(rand.NewSource(seed))

	incidents := generateIncidents(rng, *count)
	facilities := generateFacilities(rng)

	if err := writeJSON(*incidentsOut, incidents); err != nil {
		return fmt.Errorf("writing incident fixture: %w", err)
	}
	log.Printf("wrote incident fixture: %s (%d records)", *incidentsOut, len(incidents))

	if err := writeJSON(*facilitiesOut, facilities); err != nil {
		return fmt.Errorf("writing facility fixture: %w", err)
	}
	log.Printf("wrote facility fixture: %s (%d records)", *facilitiesOut, len(facilities))

	printStats(incidents)
	return nil
}

func generateIncidents(rng *rand.Rand, count int) []domain.IncidentRecord {
	records := make([]domain.IncidentRecord, count)
	for i := range records {
		// Spread creation times over the trailing 90 days so roughly a third
		// land inside the 30-day recency window.
		age := time.Duration(rng.Intn(90*24)) * time.Hour
		created := baseTime.Add(-age)

		records[i] = domain.IncidentRecord{
			ID:         fmt.Sprintf("inc-%04d", i+1),
			Region:     regions[rng.Intn(len(regions))],
			Severity:   severities[rng.Intn(len(severities))],
			Status:     statuses[rng.Intn(len(statuses))],
			OccurredAt: created.Add(-time.Duration(rng.Intn(120)) * time.Minute),
			CreatedAt:  created,
		}
	}
	return records
}

func generateFacilities(rng *rand.Rand) []domain.FacilityRecord {
	services := [][]string{
		{"reporting"},
		{"reporting", "emergency"},
		{"reporting", "emergency", "medical"},
	}
	hours := []string{"24/7", "08:00-17:00", "06:00-22:00"}

	facilities := make([]domain.FacilityRecord, 0, len(regions)*3)
	for _, region := range regions {
		// Anchor each region's facilities around a synthetic center.
		centerLat := -4.5 + rng.Float64()*5.0
		centerLon := 34.0 + rng.Float64()*6.0

		for j := 0; j < 3; j++ {
			facilities = append(facilities, domain.FacilityRecord{
				ID:     fmt.Sprintf("fac-%s-%d", region, j+1),
				Name:   fmt.Sprintf("%s Station %d", region, j+1),
				Region: region,
				Coordinates: domain.Coordinates{
					Lat: centerLat + (rng.Float64()-0.5)*0.2,
					Lon: centerLon + (rng.Float64()-0.5)*0.2,
				},
				Services: services[rng.Intn(len(services))],
				Rating:   2.5 + rng.Float64()*2.5,
				Hours:    hours[rng.Intn(len(hours))],
			})
		}
	}
	return facilities
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(incidents []domain.IncidentRecord) {
	regionStats := domain.AggregateByRegion(incidents, baseTime)
	monthly := domain.AggregateByMonth(incidents)
	overall := domain.OverallStats(regionStats)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d, Critical: %d, Resolved: %d, Recent: %d\n",
		overall.Total, overall.Critical, overall.Resolved, overall.Recent)

	fmt.Println("\nBy region:")
	for _, s := range regionStats {
		fmt.Printf("  %-10s total=%-4d critical=%-3d resolved=%-3d recent=%-3d risk=%s rate=%d%%\n",
			s.Region, s.Total, s.Critical, s.Resolved, s.Recent, s.RiskLevel(), s.ResolutionRate())
	}

	fmt.Println("\nBy month:")
	for _, m := range monthly {
		fmt.Printf("  %s total=%-4d critical=%-3d resolved=%d\n", m.Period, m.Total, m.Critical, m.Resolved)
	}

	fmt.Println("\nTop regions by volume:")
	for _, s := range domain.TopRegionsByVolume(regionStats, 5) {
		fmt.Printf("  %s=%d\n", s.Region, s.Total)
	}

	fmt.Println("\nCritical hotspots:")
	for _, s := range domain.CriticalHotspots(regionStats, 5) {
		fmt.Printf("  %s=%d\n", s.Region, s.Critical)
	}
}
