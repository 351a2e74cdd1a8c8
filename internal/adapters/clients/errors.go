// Package clients provides the instrumented HTTP client used to reach
// external catalogues.
package clients

import "errors"

// Transport-level failures. The ACL adapters translate them into domain errors.
var (
	// ErrCircuitOpen means the breaker rejected the call without trying.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrRetryableStatus is the last failure when the catalogue kept
	// answering 429 or 5xx.
	ErrRetryableStatus = errors.New("retryable status")
)
