package state

import "strings"

// Change is a bit set describing what an update touched.
type Change uint16

const (
	// ChangeOnline: the courier went online or offline.
	ChangeOnline Change = 1 << iota
	// ChangePosition: a new location sample replaced the previous one.
	ChangePosition
	// ChangeLocationError: the location watch failed or recovered.
	ChangeLocationError
	// ChangeCatalog: nearby businesses, their orders or the stale flag changed.
	ChangeCatalog
	// ChangeSelection: the selected business or the order detail panel changed.
	ChangeSelection
	// ChangeClaim: the active order or the courier's own orders changed.
	ChangeClaim
	// ChangeReset: the store was cleared.
	ChangeReset
)

// Has reports whether c includes any bit of k.
func (c Change) Has(k Change) bool {
	return c&k != 0
}

func (c Change) String() string {
	names := []struct {
		bit  Change
		name string
	}{
		{ChangeOnline, "online"},
		{ChangePosition, "position"},
		{ChangeLocationError, "location_error"},
		{ChangeCatalog, "catalog"},
		{ChangeSelection, "selection"},
		{ChangeClaim, "claim"},
		{ChangeReset, "reset"},
	}
	var parts []string
	for _, n := range names {
		if c.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
