package domain

import "sort"

// Default truncation counts for the hotspot listings.
const (
	DefaultTopRegions       = 10
	DefaultCriticalHotspots = 5
)

// TopRegionsByVolume returns the n regions with the most incidents, ordered
// by total descending with ties broken by region name ascending. A
// non-positive n falls back to DefaultTopRegions. The input is not modified.
func TopRegionsByVolume(stats []RegionStat, n int) []RegionStat {
	if n <= 0 {
		n = DefaultTopRegions
	}
	ranked := sortedCopy(stats, func(a, b RegionStat) bool {
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Region < b.Region
	})
	return truncate(ranked, n)
}

// CriticalHotspots returns the n regions with the most critical incidents,
// excluding regions with none, ordered by critical count descending with
// ties broken by region name ascending. A non-positive n falls back to
// DefaultCriticalHotspots. The input is not modified.
func CriticalHotspots(stats []RegionStat, n int) []RegionStat {
	if n <= 0 {
		n = DefaultCriticalHotspots
	}
	hot := make([]RegionStat, 0, len(stats))
	for _, s := range stats {
		if s.Critical > 0 {
			hot = append(hot, s)
		}
	}
	ranked := sortedCopy(hot, func(a, b RegionStat) bool {
		if a.Critical != b.Critical {
			return a.Critical > b.Critical
		}
		return a.Region < b.Region
	})
	return truncate(ranked, n)
}

func sortedCopy(stats []RegionStat, less func(a, b RegionStat) bool) []RegionStat {
	out := make([]RegionStat, len(stats))
	copy(out, stats)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func truncate(stats []RegionStat, n int) []RegionStat {
	if len(stats) > n {
		return stats[:n]
	}
	return stats
}
