// Package geo holds the pure distance math used by the proximity engine.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in km between two points
// given in decimal degrees.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	φ1, φ2 := radians(lat1), radians(lat2)
	Δφ := radians(lat2 - lat1)
	Δλ := radians(lng2 - lng1)

	sinΔφ := math.Sin(Δφ / 2)
	sinΔλ := math.Sin(Δλ / 2)
	a := sinΔφ*sinΔφ + math.Cos(φ1)*math.Cos(φ2)*sinΔλ*sinΔλ

	// Rounding can push a slightly past 1 for antipodal points.
	h := math.Sqrt(a)
	if h > 1 {
		h = 1
	} else if h < -1 {
		h = -1
	}
	return 2 * EarthRadiusKm * math.Asin(h)
}

// ValidLatLng reports whether lat/lng are finite WGS84 values.
func ValidLatLng(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func radians(d float64) float64 { return d * math.Pi / 180 }
