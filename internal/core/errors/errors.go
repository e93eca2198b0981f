// Package errors provides centralized error definitions for the application.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors are variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Upstream provider errors.
var (
	// ErrUpstreamTransient indicates a retryable provider failure.
	ErrUpstreamTransient = errors.New("upstream transient failure")

	// ErrUpstreamUnavailable indicates a provider failure after retries were
	// exhausted; the corresponding digest block is replaced by a placeholder.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamOutage indicates every source of a category failed for two
	// consecutive refresh cycles.
	ErrUpstreamOutage = errors.New("upstream outage")
)

// Selection errors.
var (
	// ErrCategoryStarved indicates fewer than five eligible items remained
	// even after the fallback horizon.
	ErrCategoryStarved = errors.New("category starved")
)

// Transport errors.
var (
	// ErrTransportRateLimited indicates the messaging platform throttled us.
	ErrTransportRateLimited = errors.New("transport rate limited")

	// ErrTransportPermanent indicates the chat can no longer be messaged
	// (unauthorized or chat not found); the subscriber must be deactivated.
	ErrTransportPermanent = errors.New("transport permanent failure")

	// ErrPayloadTooLarge indicates the message exceeded the transport limit.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// RateLimitError carries the pause the messaging platform requested before
// the next send. It matches ErrTransportRateLimited under errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("transport rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrTransportRateLimited }

// RetryAfter extracts the requested pause from a rate limited error chain;
// zero when err carries none.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}

	return 0
}

// Lookup errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrCoinNotFound indicates an unknown coin symbol.
	ErrCoinNotFound = errors.New("coin not found")
)

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and
	// requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
