// Package ports defines the contracts between the dispatch core and the
// outside world: the dispatch server, the location sensor and the alert
// channels. Adapters under internal/adapters implement them.
package ports

import (
	"context"
	"errors"

	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// ErrClaimConflict is returned by ClaimOrder when another courier won the order.
var ErrClaimConflict = errors.New("order is already claimed by another courier")

// ClaimConflictError carries the server's explanation of a lost claim.
type ClaimConflictError struct {
	OrderID string
	Detail  string
}

func (e *ClaimConflictError) Error() string {
	if e.Detail == "" {
		return ErrClaimConflict.Error() + ": " + e.OrderID
	}
	return ErrClaimConflict.Error() + ": " + e.OrderID + ": " + e.Detail
}

func (e *ClaimConflictError) Unwrap() error {
	return ErrClaimConflict
}

// CatalogClient reads the server's view of what is available to this courier.
type CatalogClient interface {
	// ListNearbyBusinesses returns businesses with ready orders around position.
	// How "nearby" is computed is up to the server.
	ListNearbyBusinesses(ctx context.Context, position kernel.Position, radiusMeters int) ([]*business.Business, error)

	// ListAvailableOrders returns the ready orders of one business.
	ListAvailableOrders(ctx context.Context, businessID string) ([]*order.Order, error)

	// ListMyOrders returns every order currently held by this courier.
	ListMyOrders(ctx context.Context) ([]*order.Order, error)
}

// ClaimClient races other couriers for an order.
type ClaimClient interface {
	// ClaimOrder asks the server to grant orderID to this courier. requestID
	// identifies the attempt in server logs.
	//
	// Returns the granted order on success, an error matching ErrClaimConflict
	// when another courier won, and any other error for transport or server failures.
	ClaimOrder(ctx context.Context, orderID string, requestID kernel.UUID) (*order.Order, error)
}

// LocationPublisher reports the courier's position to the server.
type LocationPublisher interface {
	PushLocation(ctx context.Context, position kernel.Position) error
}

// OrderLifecycleClient moves a held order along its lifecycle. Every call is
// idempotent by status on the server.
type OrderLifecycleClient interface {
	AcceptOrder(ctx context.Context, orderID string) error
	ConfirmPickup(ctx context.Context, orderID string) error
	UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error
}

// DispatchAPI is the whole dispatch server surface used by the client.
type DispatchAPI interface {
	CatalogClient
	ClaimClient
	LocationPublisher
	OrderLifecycleClient
}
