package transport

import (
	"context"
	"time"
)

// AckFunc receives the payload of an Ack frame.
type AckFunc func(payload any)

// EventFunc receives the payload of a pushed Event frame.
type EventFunc func(payload any)

// SubscriptionID identifies one registered EventFunc.
type SubscriptionID uint64

// Handle is the single persistent connection the delivery layer drives.
// Implemented by Client.
type Handle interface {
	// SetReconnection configures the built-in dial retry used by Connect:
	// up to attempts dials, delay apart. Must be called before Connect.
	SetReconnection(attempts int, delay time.Duration)

	// Connect dials the server, retrying per SetReconnection.
	Connect(ctx context.Context) error

	// Disconnect closes the connection. Pending acks are dropped.
	Disconnect() error

	// Emit sends an event. If ack is non-nil it is invoked once when the
	// matching Ack frame arrives. The registration is dropped when ctx ends.
	Emit(ctx context.Context, event string, payload any, ack AckFunc) error

	// On registers fn for pushed events named event.
	On(event string, fn EventFunc) SubscriptionID

	// Off removes a registration made by On.
	Off(event string, id SubscriptionID)

	// OnConnectionLost sets the callback for connection loss not caused by
	// Disconnect.
	OnConnectionLost(fn func(err error))

	// Connected reports whether a connection is established.
	Connected() bool
}

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ Handle          = (*Client)(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
