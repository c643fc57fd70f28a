package log

import (
	"time"

	"github.com/isjust11/easy-order-sub000/pkg/wire"
)

// Event is one trace record captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the transport connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the server address the connection targets.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Delivery    *DeliveryEvent    `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the message encoding layer (decoded CBOR).
	LayerWire Layer = 1
	// LayerDelivery is the reliability layer (tracker, queue, supervisor).
	LayerDelivery Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerDelivery:
		return "DELIVERY"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a frame or decoded message.
	CategoryMessage Category = 0
	// CategoryState indicates a connection state change.
	CategoryState Category = 1
	// CategoryDelivery indicates an emission lifecycle step.
	CategoryDelivery Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryDelivery:
		return "DELIVERY"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including any length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded wire message.
type MessageEvent struct {
	Type      wire.MessageType `cbor:"1,keyasint"`
	MessageID uint32           `cbor:"2,keyasint,omitempty"`
	EventName string           `cbor:"3,keyasint,omitempty"`
	Payload   any              `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures connection lifecycle transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`

	// Attempt is the reconnection attempt number, when reconnecting.
	Attempt int `cbor:"4,keyasint,omitempty"`

	// Delay before the next attempt, when reconnecting.
	Delay time.Duration `cbor:"5,keyasint,omitempty"`
}

// DeliveryAction is one step in an emission's lifecycle.
type DeliveryAction uint8

const (
	DeliveryQueued DeliveryAction = iota
	DeliverySent
	DeliveryAcked
	DeliveryTimedOut
	DeliveryRetrying
	DeliveryRejected
	DeliverySuperseded
	DeliveryCancelled
	DeliveryFlushed
)

// String returns the action name.
func (a DeliveryAction) String() string {
	switch a {
	case DeliveryQueued:
		return "QUEUED"
	case DeliverySent:
		return "SENT"
	case DeliveryAcked:
		return "ACKED"
	case DeliveryTimedOut:
		return "TIMED_OUT"
	case DeliveryRetrying:
		return "RETRYING"
	case DeliveryRejected:
		return "REJECTED"
	case DeliverySuperseded:
		return "SUPERSEDED"
	case DeliveryCancelled:
		return "CANCELLED"
	case DeliveryFlushed:
		return "FLUSHED"
	default:
		return "UNKNOWN"
	}
}

// DeliveryEvent captures one step of a reliable emission.
type DeliveryEvent struct {
	Action     DeliveryAction `cbor:"1,keyasint"`
	EventName  string         `cbor:"2,keyasint"`
	EmissionID string         `cbor:"3,keyasint,omitempty"`
	RetryCount int            `cbor:"4,keyasint,omitempty"`
	Delay      time.Duration  `cbor:"5,keyasint,omitempty"`
	Reason     string         `cbor:"6,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
