// Package geo holds the great-circle distance used by every planning and
// monitoring component.
package geo

import (
	"field-route-service/internal/domain"
	"math"
)

const (
	EarthRadiusKm     = 6371.0
	EarthRadiusMeters = EarthRadiusKm * 1000
)

// DistanceKm returns the haversine distance between a and b in kilometers.
func DistanceKm(a, b domain.Coordinates) float64 {
	return EarthRadiusKm * centralAngle(a, b)
}

// DistanceMeters is DistanceKm in meters, used by proximity checks.
func DistanceMeters(a, b domain.Coordinates) float64 {
	return EarthRadiusMeters * centralAngle(a, b)
}

func centralAngle(a, b domain.Coordinates) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Centroid returns the arithmetic mean of the given points.
// It returns false for an empty input.
func Centroid(points []domain.Coordinates) (domain.Coordinates, bool) {
	if len(points) == 0 {
		return domain.Coordinates{}, false
	}

	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return domain.Coordinates{Lat: lat / n, Lng: lng / n}, true
}
