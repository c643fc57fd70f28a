// Package transport provides the persistent, message-framed connection the
// delivery layer sends through.
//
// The transport handles:
//   - Dialing WebSocket (ws://, wss://) or raw TCP (tcp://) endpoints
//   - Length-prefixed framing for TCP
//   - Emit frames acknowledged by Ack frames carrying the same ID
//   - Named inbound event subscriptions
//   - Built-in dial retry with a fixed delay
//   - Ping based liveness on WebSocket connections
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   CBOR Messages (pkg/wire)     │
//	├───────────────┬────────────────┤
//	│ WS binary msg │ 4B len prefix  │
//	├───────────────┼────────────────┤
//	│   HTTP / TLS  │      TCP       │
//	└───────────────┴────────────────┘
//
// Client implements Handle and is the production transport. Peer is a
// development endpoint that acknowledges every emit; it is what the
// easyorder-peer command and the package tests run against.
package transport
