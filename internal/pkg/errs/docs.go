// Package errs provides the typed errors shared across the dispatch client.
//
// Each error type pairs a sentinel (ErrValueIsRequired, ErrValueIsInvalid, ...)
// with a struct carrying the offending parameter and an optional cause.
// Unwrap returns the sentinel, so callers classify failures with errors.Is
// and inspect details with errors.As.
package errs
