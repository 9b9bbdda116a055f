package domain

import (
	"errors"
	"fmt"
	"math"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// ErrInvalidCoordinate reports a latitude or longitude outside its valid
// range. Out-of-range input fails fast and is never clamped.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Distance returns the great-circle distance between two points in
// kilometers, computed with the haversine formula and rounded
// half-away-from-zero to one decimal place. Identical points yield 0.
func Distance(a, b Coordinates) (float64, error) {
	if err := validateCoordinates(a); err != nil {
		return 0, err
	}
	if err := validateCoordinates(b); err != nil {
		return 0, err
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return roundKm(earthRadiusKm * c), nil
}

func validateCoordinates(c Coordinates) error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %g out of range [-90, 90]", ErrInvalidCoordinate, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %g out of range [-180, 180]", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// roundKm rounds to one decimal place, half away from zero.
func roundKm(km float64) float64 {
	return math.Round(km*10) / 10
}
