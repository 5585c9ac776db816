// Package units holds the geographic conversion constants shared by the
// detection pipeline. All conversions are planar-degree approximations: good
// to well under a percent over the few-kilometre scan regions this system
// operates on, and documented as intentionally non-geodesic.
package units

import "math"

// MetersPerDegreeLat is the metres spanned by one degree of latitude. The
// true value varies by ~0.5% with latitude; a single constant is used
// throughout.
const MetersPerDegreeLat = 111320.0

// EarthRadiusKm is the mean Earth radius used by the spherical area
// approximation.
const EarthRadiusKm = 6371.0

// MetersPerDegreeLon returns the metres spanned by one degree of longitude
// at the given latitude.
func MetersPerDegreeLon(lat float64) float64 {
	return MetersPerDegreeLat * math.Cos(lat*math.Pi/180)
}

// PlanarDistanceM returns the planar-approximation distance in metres
// between two points, including the cos(lat) longitude correction.
func PlanarDistanceM(lat1, lon1, lat2, lon2 float64) float64 {
	midLat := (lat1 + lat2) / 2
	dy := (lat1 - lat2) * MetersPerDegreeLat
	dx := (lon1 - lon2) * MetersPerDegreeLon(midLat)
	return math.Hypot(dx, dy)
}

// AreaKm2 returns the spherical-approximation area of a lat/lon bounding
// box in square kilometres.
func AreaKm2(latMin, lonMin, latMax, lonMax float64) float64 {
	latSpanKm := (latMax - latMin) * MetersPerDegreeLat / 1000
	midLat := (latMin + latMax) / 2
	lonSpanKm := (lonMax - lonMin) * MetersPerDegreeLon(midLat) / 1000
	return math.Abs(latSpanKm * lonSpanKm)
}

// DegreesLatFromMeters converts a north-south distance in metres to degrees
// of latitude.
func DegreesLatFromMeters(m float64) float64 {
	return m / MetersPerDegreeLat
}

// DegreesLonFromMeters converts an east-west distance in metres to degrees
// of longitude at the given latitude.
func DegreesLonFromMeters(m, lat float64) float64 {
	return m / MetersPerDegreeLon(lat)
}
