package resilience

import (
	"context"
	"errors"
	"net"
	"time"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrTimeout is returned when a single attempt exceeds its deadline.
	ErrTimeout = errors.New("resilience: attempt timed out")
)

// Retryable is implemented by errors that know whether repeating the
// request could succeed.
type Retryable interface {
	Retryable() bool
}

// RetryAfterHint is implemented by errors that carry a server-suggested
// delay, such as a Retry-After header on a 429 or 503 response.
type RetryAfterHint interface {
	RetryAfter() time.Duration
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() error   { return e.err }
func (e *permanentError) Retryable() bool { return false }

// Permanent marks err as not worth retrying. Permanent(nil) returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient reports whether err is worth retrying.
//
// Context cancellation, an open circuit and permanent errors are not.
// Errors implementing Retryable decide for themselves; network errors and
// per-attempt timeouts are transient. Anything else is treated as permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// retryAfter extracts a server-suggested delay from err, or zero.
func retryAfter(err error) time.Duration {
	var h RetryAfterHint
	if errors.As(err, &h) {
		return max(h.RetryAfter(), 0)
	}
	return 0
}
