// Package geo computes great-circle distances in kilometres.
package geo

import (
	"fmt"
	"math"

	"give4need/internal/models"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// DistanceFunc returns the distance between two points in kilometres.
type DistanceFunc func(a, b models.GeoPoint) float64

// Formula names accepted by FormulaByName.
const (
	FormulaLegacy    = "legacy"
	FormulaHaversine = "haversine"
)

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// LegacyDistance is the distance the deployed app has always shown. Its first term is
// sin(dLat/2)*sin(dLon/2), not sin²(dLat/2), so a pure north-south offset measures 0 and
// opposite-signed offsets can drive a below zero, yielding NaN.
func LegacyDistance(p1, p2 models.GeoPoint) float64 {
	dLat := toRad(p2.Lat - p1.Lat)
	dLon := toRad(p2.Lng - p1.Lng)

	a := math.Sin(dLat/2)*math.Sin(dLon/2) +
		math.Cos(toRad(p1.Lat))*math.Cos(toRad(p2.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Haversine is the textbook great-circle distance.
func Haversine(p1, p2 models.GeoPoint) float64 {
	dLat := toRad(p2.Lat - p1.Lat)
	dLon := toRad(p2.Lng - p1.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(toRad(p1.Lat))*math.Cos(toRad(p2.Lat))*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// FormulaByName maps a config value to a DistanceFunc.
func FormulaByName(name string) (DistanceFunc, error) {
	switch name {
	case "", FormulaLegacy:
		return LegacyDistance, nil
	case FormulaHaversine:
		return Haversine, nil
	default:
		return nil, fmt.Errorf("unknown distance formula %q", name)
	}
}

// FormatKm renders a distance with one decimal, e.g. "0.0 km away".
func FormatKm(km float64) string {
	return fmt.Sprintf("%.1f km away", km)
}
