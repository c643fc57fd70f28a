package delivery

import (
	"errors"
	"fmt"
)

// Delivery errors.
var (
	// ErrAckTimeout means one send went unacknowledged within the timeout.
	ErrAckTimeout = errors.New("acknowledgement timed out")

	// ErrRetriesExhausted matches every *RetriesExhaustedError.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrSuperseded means a newer emission for the same event name replaced
	// this one.
	ErrSuperseded = errors.New("superseded by a newer emission")

	// ErrCancelled means the emission was cancelled, explicitly or by a
	// disconnect.
	ErrCancelled = errors.New("emission cancelled")

	// ErrQueueFull means the offline queue is at capacity.
	ErrQueueFull = errors.New("offline queue full")

	// ErrPending is returned by Result before the emission settles.
	ErrPending = errors.New("emission pending")

	// ErrInvalidEvent means the event name cannot be sent.
	ErrInvalidEvent = errors.New("invalid event name")
)

// RetriesExhaustedError rejects an emission whose last retry also timed out.
type RetriesExhaustedError struct {
	Event   string
	Retries int
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("event %s timed out after %d retries", e.Event, e.Retries)
}

// Is reports whether target is ErrRetriesExhausted.
func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// Unwrap returns ErrAckTimeout.
func (e *RetriesExhaustedError) Unwrap() error {
	return ErrAckTimeout
}
