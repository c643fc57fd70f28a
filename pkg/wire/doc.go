// Package wire defines the CBOR wire format exchanged with the order server.
//
// Every frame is a single CBOR map with integer keys:
//
//	{
//	  1: type,      // uint8: 1=Emit, 2=Ack, 3=Event
//	  2: id,        // uint32: correlates Emit and Ack (absent for Event)
//	  3: event,     // text: event name (absent for Ack)
//	  4: payload    // any CBOR value (optional)
//	}
//
// # Message Types
//
//   - Emit: client to server, expects an Ack carrying the same id
//   - Ack: server to client, answers exactly one Emit
//   - Event: server to client push (order or table state change)
//
// Payload maps decode as map[string]any so they can be handed to
// application code unchanged.
package wire
