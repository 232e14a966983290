// Package order holds the courier's cached view of server-owned orders.
//
// The package includes:
//   - Order: an order as listed by a business or held by this courier
//   - Item: one order line with a decimal unit price
//   - Status: the client-side lifecycle state machine
//
// Key rules:
//   - Orders need an identifier, a business identifier and a pickup location
//   - Money amounts are decimals and never negative
//   - Status changes are idempotent: re-applying the current status is a no-op
//   - A lost claim moves an order to ClaimedByOther, never to a held status
//
// The server remains the source of truth. Orders are restored from server
// payloads with RestoreOrder and replaced wholesale on every poll.
package order
