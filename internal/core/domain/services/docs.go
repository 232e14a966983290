// Package services provides domain services that work across several domain
// entities of the dispatch client and do not belong to a single one.
//
// The package includes:
//   - ProximityEvaluator: finds cached ready orders whose pickup is close to the courier
//   - CooldownGate: rate-limits proximity bursts to one per cooldown window
//   - MapPresenter: turns the dispatch state into map markers and a route
//
// All services are deterministic. Time is passed in by the caller, never read
// from the wall clock inside the package.
package services
