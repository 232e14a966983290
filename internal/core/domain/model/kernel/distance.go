package kernel

import "math"

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between a and b in kilometres
// using the Haversine formula.
//
// It is pure and symmetric: DistanceKm(a, b) == DistanceKm(b, a), and it is
// zero for coincident points. Unconstructed points are treated as (0, 0).
//
// Example:
//
//	courier := kernel.MustGeoPoint(41.0082, 28.9784)
//	pickup := kernel.MustGeoPoint(41.0090, 28.9790)
//	km := kernel.DistanceKm(courier, pickup) // ≈ 0.1
func DistanceKm(a, b GeoPoint) float64 {
	if a.lat == b.lat && a.lng == b.lng {
		return 0
	}

	lat1 := toRadians(a.lat)
	lat2 := toRadians(b.lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.lng - a.lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, h)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
