package wire

import (
	"errors"
	"fmt"
	"strings"
)

// CBOR map keys for message encoding.
const (
	KeyType    = 1
	KeyID      = 2
	KeyEvent   = 3
	KeyPayload = 4
)

// MaxEventNameLength bounds event names on the wire.
const MaxEventNameLength = 256

// Validation errors.
var (
	ErrInvalidType  = errors.New("invalid message type")
	ErrMissingID    = errors.New("message id is required")
	ErrMissingEvent = errors.New("event name is required")
	ErrEventTooLong = errors.New("event name too long")
)

// MessageType distinguishes the three frame kinds.
type MessageType uint8

const (
	// TypeEmit is an outbound event that expects an acknowledgement.
	TypeEmit MessageType = 1

	// TypeAck acknowledges a previously received Emit.
	TypeAck MessageType = 2

	// TypeEvent is a server push with no acknowledgement.
	TypeEvent MessageType = 3
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case TypeEmit:
		return "EMIT"
	case TypeAck:
		return "ACK"
	case TypeEvent:
		return "EVENT"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether t is a known message type.
func (t MessageType) IsValid() bool {
	return t >= TypeEmit && t <= TypeEvent
}

// Message is one frame on the connection.
type Message struct {
	Type    MessageType `cbor:"1,keyasint"`
	ID      uint32      `cbor:"2,keyasint,omitempty"`
	Event   string      `cbor:"3,keyasint,omitempty"`
	Payload any         `cbor:"4,keyasint,omitempty"`
}

// Validate checks the fields required by the message type.
func (m *Message) Validate() error {
	if !m.Type.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidType, m.Type)
	}
	switch m.Type {
	case TypeEmit:
		if m.ID == 0 {
			return ErrMissingID
		}
		return validateEvent(m.Event)
	case TypeAck:
		if m.ID == 0 {
			return ErrMissingID
		}
	case TypeEvent:
		return validateEvent(m.Event)
	}
	return nil
}

func validateEvent(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrMissingEvent
	}
	if len(name) > MaxEventNameLength {
		return fmt.Errorf("%w: %d > %d", ErrEventTooLong, len(name), MaxEventNameLength)
	}
	return nil
}

// NewEmit builds an Emit frame.
func NewEmit(id uint32, event string, payload any) *Message {
	return &Message{Type: TypeEmit, ID: id, Event: event, Payload: payload}
}

// NewAck builds the Ack frame answering emit id.
func NewAck(id uint32, payload any) *Message {
	return &Message{Type: TypeAck, ID: id, Payload: payload}
}

// NewEvent builds a server push frame.
func NewEvent(event string, payload any) *Message {
	return &Message{Type: TypeEvent, Event: event, Payload: payload}
}
