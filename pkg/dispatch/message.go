package dispatch

import "github.com/isjust11/easy-order-sub000/pkg/transport"

// Message is a control message. The set is closed: only the types in this
// package implement it.
type Message interface {
	controlMessage()
}

// Connect begins the connection lifecycle.
type Connect struct{}

// Disconnect tears the connection down and cancels pending timers.
type Disconnect struct{}

// Emit sends Payload as Event with acknowledgement tracking.
type Emit struct {
	Event   string
	Payload any
}

// Subscribe registers Handler for inbound events named Event.
type Subscribe struct {
	Event   string
	Handler transport.EventFunc
}

// Unsubscribe removes every handler for Event and clears its pending timer.
type Unsubscribe struct {
	Event string
}

func (Connect) controlMessage()     {}
func (Disconnect) controlMessage()  {}
func (Emit) controlMessage()        {}
func (Subscribe) controlMessage()   {}
func (Unsubscribe) controlMessage() {}

// Kind returns the upper-case wire name of a control message.
func Kind(m Message) string {
	switch m.(type) {
	case Connect:
		return "CONNECT"
	case Disconnect:
		return "DISCONNECT"
	case Emit:
		return "EMIT"
	case Subscribe:
		return "SUBSCRIBE"
	case Unsubscribe:
		return "UNSUBSCRIBE"
	default:
		return "UNKNOWN"
	}
}
