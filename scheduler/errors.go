package scheduler

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers.

// ErrBudgetExhausted is returned when the scheduler-wide byte ceiling has
// been reached; no transport attempt is made.
var ErrBudgetExhausted = errors.New("scheduler: byte budget exhausted")

// ErrCancelled is returned when caller or group cancellation cuts off a
// fetch that is already running. An operation cancelled while still
// pending in the queue resolves with queue.ErrCancelled instead. A
// predicate that rejects the body is not a cancellation: the result
// carries the headers and no body.
var ErrCancelled = errors.New("scheduler: cancelled")

// ErrStoreUnavailable marks a degraded store interaction. No engine code
// path returns it: store reads degrade to a cache miss and store writes
// are logged and ignored.
var ErrStoreUnavailable = errors.New("scheduler: store unavailable")

// TransportError wraps an IO/connection-level failure surfaced after
// retries are exhausted. Only errors of this kind are retried by the
// scheduler's retry wrapper; HTTP status-level outcomes are not errors at
// this layer (a FetchResult carries the status code).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("scheduler: transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err as a retryable transport-kind failure.
func NewTransportError(err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Err: err}
}
