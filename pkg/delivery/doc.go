// Package delivery implements reliable emission of outbound events.
//
// A Tracker wraps each send with an acknowledgement timeout and a bounded
// number of retries:
//
//	send ──ack──▶ resolved
//	  │
//	  └─5s no ack─▶ retry 1 after 2s ─▶ retry 2 after 4s ─▶ retry 3 after 8s
//	                                                          │
//	                                           5s no ack ─────┴─▶ rejected
//
// At most one acknowledgement timer exists per event name. Starting a new
// emission for a name that is still pending replaces the old timer, and the
// old emission settles with ErrSuperseded. The Registry is the single source
// of truth for which emission owns a name; timers consult it before acting.
//
// Emissions made while the connection is down wait in a FIFO Queue and are
// replayed by Flush, in order, once the connection is back.
//
// Every Emit returns an *Emission, a completion handle that resolves with the
// acknowledgement payload or rejects with an error.
//
// Only a *RetriesExhaustedError (matching ErrRetriesExhausted) means the
// server never acknowledged. Two other rejections say nothing about the
// server:
//
//   - ErrSuperseded: a newer Emit of the same event name took over the
//     acknowledgement timer. The newer emission carries the outcome.
//   - ErrCancelled: the emission was abandoned locally by Disconnect, by
//     Unsubscribe of its event name, by Close, or by the end of the Emit
//     context.
//
// Callers that retry on failure should check errors.Is against
// ErrRetriesExhausted rather than treating every rejection alike.
package delivery
