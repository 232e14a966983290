// Package claim models claim attempts, the race in which exactly one courier
// wins a ready order.
//
// An Attempt moves from Pending to one of three outcomes:
//   - Success: the server granted the order
//   - Conflict: another courier won; the order is lost, nothing is retried
//   - Failed: transport or server error; local state stays as it was
package claim
