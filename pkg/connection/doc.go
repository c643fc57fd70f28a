// Package connection supervises the lifecycle of the transport connection.
//
// The Supervisor owns the state machine
//
//	DISCONNECTED → CONNECTING → CONNECTED → RECONNECTING → CONNECTED | FAILED
//
// plus CLOSED once the supervisor is shut down.
//
// # Reconnection Strategy
//
// When a connect attempt fails or an established connection is lost, the
// supervisor schedules another attempt with bounded exponential backoff:
//
//  1. Initial delay: 5 seconds
//  2. Each further attempt: previous × 1.5 (7.5s, 11.25s, 16.875s, 25.3125s)
//  3. After 5 failed attempts: FAILED with
//     "unable to reach server after maximum attempts"
//  4. The counter resets to 0 only on a successful connect
//
// FAILED is terminal for automatic recovery. An explicit Connect clears the
// error and makes one more attempt.
//
// Independently of this schedule, each connect request lets the transport
// retry its dial a few times at a short fixed delay before reporting failure.
//
// # Delivery Hooks
//
// On every transition to CONNECTED the supervisor asks its Pipeline to flush
// emissions queued while offline. An explicit Disconnect asks the Pipeline to
// cancel every pending acknowledgement timer.
package connection
