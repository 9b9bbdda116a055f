package domain

import (
	"sort"
	"time"
)

// RecentWindow is the trailing period that counts toward a region's recent
// activity.
const RecentWindow = 30 * 24 * time.Hour

// AggregateByRegion rolls an incident snapshot up into one RegionStat per
// distinct region observed in the input. Regions absent from the input do not
// appear in the output. The recency cutoff is derived from now exactly once,
// so the window is consistent across the whole pass; callers inject now to
// keep the computation deterministic.
//
// The result is sorted by region name ascending. Rankers impose their own
// order downstream.
func AggregateByRegion(records []IncidentRecord, now time.Time) []RegionStat {
	cutoff := now.UTC().Add(-RecentWindow)

	byRegion := make(map[string]*RegionStat)
	for i := range records {
		rec := &records[i]
		stat, ok := byRegion[rec.Region]
		if !ok {
			stat = &RegionStat{Region: rec.Region}
			byRegion[rec.Region] = stat
		}
		stat.Total++
		if rec.Severity == SeverityCritical {
			stat.Critical++
		}
		if rec.Status == StatusResolved {
			stat.Resolved++
		}
		if rec.CreatedAt.UTC().After(cutoff) {
			stat.Recent++
		}
	}

	stats := make([]RegionStat, 0, len(byRegion))
	for _, stat := range byRegion {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Region < stats[j].Region })
	return stats
}

// AggregateByMonth rolls an incident snapshot up into one MonthlyStat per
// distinct UTC calendar month of CreatedAt, sorted chronologically. The
// "YYYY-MM" period key sorts lexically in time order.
func AggregateByMonth(records []IncidentRecord) []MonthlyStat {
	byMonth := make(map[string]*MonthlyStat)
	for i := range records {
		rec := &records[i]
		key := rec.CreatedAt.UTC().Format("2006-01")
		stat, ok := byMonth[key]
		if !ok {
			stat = &MonthlyStat{Period: key}
			byMonth[key] = stat
		}
		stat.Total++
		if rec.Severity == SeverityCritical {
			stat.Critical++
		}
		if rec.Status == StatusResolved {
			stat.Resolved++
		}
	}

	stats := make([]MonthlyStat, 0, len(byMonth))
	for _, stat := range byMonth {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Period < stats[j].Period })
	return stats
}

// OverallStats sums region rollups into a single nationwide entry for the
// dashboard overview. The Region field is left empty.
func OverallStats(stats []RegionStat) RegionStat {
	var overall RegionStat
	for _, s := range stats {
		overall.Total += s.Total
		overall.Critical += s.Critical
		overall.Resolved += s.Resolved
		overall.Recent += s.Recent
	}
	return overall
}
