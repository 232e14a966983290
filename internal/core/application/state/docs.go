// Package state holds the dispatch client's shared state: online flag,
// position, nearby catalog, selection and the courier's active order.
//
// Sensor callbacks, scheduler ticks and control requests all run on their own
// goroutines and meet only here. The Store serializes their writes, versions
// every change and fans it out to listeners as an immutable Snapshot.
package state
