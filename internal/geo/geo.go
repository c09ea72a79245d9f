// Package geo provides geographic primitives shared by the discovery
// orchestrators: coordinate validation, great-circle distance, unit
// conversion, and stable cache/limiter key derivation.
package geo

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// KmPerMile converts statute miles to kilometers.
	KmPerMile = 1.60934

	// keyPrecision is the number of decimal places coordinates are rounded
	// to when deriving cache and rate-limit keys (~11m at 4 decimals).
	keyPrecision = 4
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the point lies within valid coordinate ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return fmt.Errorf("coordinates must be numbers")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %.4f out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %.4f out of range [-180, 180]", p.Lon)
	}
	return nil
}

// Key returns a stable string key for the point, with coordinates rounded
// so that nearby queries share cache and rate-limit state.
func (p Point) Key() string {
	return fmt.Sprintf("%.*f,%.*f", keyPrecision, p.Lat, keyPrecision, p.Lon)
}

// Haversine calculates the great-circle distance between two points in
// kilometers.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// MilesToMeters converts a radius in statute miles to meters for upstream
// circle filters.
func MilesToMeters(miles float64) float64 {
	return miles * KmPerMile * 1000
}

// RoundDistance rounds a distance in kilometers to one decimal place, the
// precision venues carry.
func RoundDistance(km float64) float64 {
	return math.Round(km*10) / 10
}
