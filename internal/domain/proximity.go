package domain

import "sort"

// NearestFacilities ranks facilities by great-circle distance from a
// reference point, ascending, with ties broken by facility name ascending.
// A positive radiusKm drops facilities whose rounded distance exceeds it; a
// radius filter that matches nothing yields an empty slice, not an error.
// A positive limit truncates the result; limit <= 0 returns all matches.
// Invalid coordinates on the reference point or any facility fail the call.
func NearestFacilities(ref Coordinates, facilities []FacilityRecord, radiusKm float64, limit int) ([]RankedFacility, error) {
	// Reject a bad reference point up front, even when there are no
	// facilities to measure against.
	if err := validateCoordinates(ref); err != nil {
		return nil, err
	}

	ranked := make([]RankedFacility, 0, len(facilities))
	for _, f := range facilities {
		dist, err := Distance(ref, f.Coordinates)
		if err != nil {
			return nil, err
		}
		if radiusKm > 0 && dist > radiusKm {
			continue
		}
		ranked = append(ranked, RankedFacility{FacilityRecord: f, DistanceKm: dist})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].DistanceKm != ranked[j].DistanceKm {
			return ranked[i].DistanceKm < ranked[j].DistanceKm
		}
		return ranked[i].Name < ranked[j].Name
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
