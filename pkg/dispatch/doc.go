// Package dispatch routes the five control messages of the real-time layer.
//
// A Message is one of Connect, Disconnect, Emit, Subscribe or Unsubscribe.
// The Bus matches it by type switch and drives the connection supervisor,
// the emission tracker and the inbound subscription table. Failures never
// surface as panics or errors here; they become status store updates.
//
// Middleware lets the Bus sit in front of an application's own dispatch
// chain. Values that are not control messages pass through unchanged:
//
//	next := bus.Middleware(appDispatch)
//	next(ctx, dispatch.Emit{Event: "orderUpdated", Payload: order})
//	next(ctx, someAppAction) // forwarded to appDispatch
package dispatch
