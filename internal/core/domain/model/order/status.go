package order

import (
	"fmt"
	"strings"

	"dispatch/internal/pkg/errs"
)

// Status is the lifecycle state of an order as seen by this courier.
//
// State transitions:
//
//	Available ──claim──> Assigned ──pickup──> PickedUp ──> OnWay ──> Delivered
//	    │                   ^                    │                     ^
//	    │                   │                    └─────────────────────┘
//	    ├──lost──> ClaimedByOther
//	    └──> ClaimedByMe ──accept──┘
//
//	any non-final status ──> Cancelled
//
// Re-applying the current status is always a no-op, which mirrors the
// server's idempotent-by-status lifecycle endpoints. Delivered, Cancelled and
// ClaimedByOther are final.
type Status int

const (
	// Unknown is the invalid zero value.
	Unknown Status = iota

	// Available orders are ready at the business and can be claimed.
	Available

	// ClaimedByMe orders were granted to this courier but not yet accepted.
	ClaimedByMe

	// Assigned orders belong to this courier and await pickup.
	Assigned

	// PickedUp orders left the business with this courier.
	PickedUp

	// OnWay orders are being driven to the customer.
	OnWay

	// Delivered is final.
	Delivered

	// Cancelled is final.
	Cancelled

	// ClaimedByOther orders were won by a competing courier. Final.
	ClaimedByOther
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:        "unknown",
		Available:      "available",
		ClaimedByMe:    "claimed-by-me",
		Assigned:       "assigned",
		PickedUp:       "picked_up",
		OnWay:          "on_way",
		Delivered:      "delivered",
		Cancelled:      "cancelled",
		ClaimedByOther: "claimed-by-other",
	}
}

// getAllowedTransitions lists the forward edges of the state machine.
// Self transitions are handled separately.
func getAllowedTransitions() map[Status][]Status {
	//nolint:exhaustive // final statuses have no outgoing edges
	return map[Status][]Status{
		Available:   {ClaimedByMe, Assigned, ClaimedByOther, Cancelled},
		ClaimedByMe: {Assigned, Cancelled},
		Assigned:    {PickedUp, Cancelled},
		PickedUp:    {OnWay, Delivered, Cancelled},
		OnWay:       {Delivered, Cancelled},
	}
}

// ParseStatus maps a server status string to a Status. Matching ignores case
// and treats '-' and '_' alike; "ready" and "claimed" are accepted as the
// server's aliases of available and claimed-by-me.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	switch normalized {
	case "available", "ready":
		return Available, nil
	case "claimed_by_me", "claimed":
		return ClaimedByMe, nil
	case "assigned":
		return Assigned, nil
	case "picked_up":
		return PickedUp, nil
	case "on_way":
		return OnWay, nil
	case "delivered":
		return Delivered, nil
	case "cancelled", "canceled":
		return Cancelled, nil
	case "claimed_by_other":
		return ClaimedByOther, nil
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a known status", raw))
}

// Validate rejects Unknown and values outside the enumeration.
func (s Status) Validate() error {
	if s <= Unknown || s > ClaimedByOther {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the status name; the lifecycle names match the server's wire values.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// IsFinal reports whether no further transition is possible.
func (s Status) IsFinal() bool {
	return s == Delivered || s == Cancelled || s == ClaimedByOther
}

// IsClaimable reports whether the order can still be claimed.
func (s Status) IsClaimable() bool {
	return s == Available
}

// IsHeldByCourier reports whether the order is this courier's live work.
func (s Status) IsHeldByCourier() bool {
	return s == ClaimedByMe || s == Assigned || s == PickedUp || s == OnWay
}

// IsPickupConfirmed reports whether the order has left the business.
func (s Status) IsPickupConfirmed() bool {
	return s == PickedUp || s == OnWay
}

// ValidateTransition checks the move from s to target without performing it.
//
// Returns:
//   - nil if target equals s (idempotent re-application) or is a forward edge
//   - ValueIsInvalidError otherwise
func (s Status) ValidateTransition(target Status) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if s == target {
		return nil
	}
	for _, allowed := range getAllowedTransitions()[s] {
		if allowed == target {
			return nil
		}
	}
	return errs.NewValueIsInvalidErrorWithCause(
		"status",
		fmt.Errorf("cannot move from %s to %s", s, target),
	)
}

// TransitionTo returns target if the move is allowed.
func (s Status) TransitionTo(target Status) (Status, error) {
	if err := s.ValidateTransition(target); err != nil {
		return Unknown, err
	}
	return target, nil
}
