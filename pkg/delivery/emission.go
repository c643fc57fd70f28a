package delivery

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Emission is the completion handle for one Emit call.
type Emission struct {
	id      string
	event   string
	payload any

	done     chan struct{}
	once     sync.Once
	result   any
	err      error
	stopCtx  func() bool
	settleMu sync.Mutex
}

func newEmission(event string, payload any) *Emission {
	return &Emission{
		id:      uuid.New().String(),
		event:   event,
		payload: payload,
		done:    make(chan struct{}),
	}
}

// ID returns the unique emission ID.
func (e *Emission) ID() string { return e.id }

// Event returns the event name.
func (e *Emission) Event() string { return e.event }

// Payload returns the payload being sent.
func (e *Emission) Payload() any { return e.payload }

// Done is closed once the emission resolves or rejects.
func (e *Emission) Done() <-chan struct{} { return e.done }

// Wait blocks until the emission settles or ctx ends. Ending ctx does not
// cancel the emission.
func (e *Emission) Wait(ctx context.Context) (any, error) {
	select {
	case <-e.done:
		return e.result, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome, or ErrPending if the emission has not settled.
func (e *Emission) Result() (any, error) {
	select {
	case <-e.done:
		return e.result, e.err
	default:
		return nil, ErrPending
	}
}

// Cancel rejects the emission with ErrCancelled. Its pending timer is
// released by the tracker. No effect once settled.
func (e *Emission) Cancel() {
	e.reject(ErrCancelled)
}

// settled reports whether the emission has resolved or rejected.
func (e *Emission) settled() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *Emission) resolve(payload any) bool {
	return e.settle(payload, nil)
}

func (e *Emission) reject(err error) bool {
	return e.settle(nil, err)
}

func (e *Emission) settle(payload any, err error) bool {
	won := false
	e.once.Do(func() {
		won = true
		e.result, e.err = payload, err
		close(e.done)
	})
	if won {
		e.settleMu.Lock()
		stop := e.stopCtx
		e.settleMu.Unlock()
		if stop != nil {
			stop()
		}
	}
	return won
}

// bindContext rejects the emission when ctx ends first.
func (e *Emission) bindContext(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}
	stop := context.AfterFunc(ctx, func() {
		e.reject(errors.Join(ErrCancelled, context.Cause(ctx)))
	})
	e.settleMu.Lock()
	e.stopCtx = stop
	e.settleMu.Unlock()
}
