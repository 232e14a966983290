// Package kernel provides the value objects shared by the dispatch domain model.
//
// The package includes:
//   - GeoPoint: a validated WGS 84 coordinate pair
//   - Position: a single courier location sample with optional heading, speed and accuracy
//   - DistanceKm: the Haversine great-circle distance between two points
//   - UUID: identifiers for client-side artefacts (claim attempts, request ids)
//
// All values are immutable and safe to share between goroutines. Zero values are
// invalid and are rejected by Validate.
package kernel
