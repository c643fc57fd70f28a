// Package realtime assembles the reliable event-delivery layer.
//
// A Client owns one transport handle, one connection supervisor, one
// emission tracker, one status store and one dispatch bus. Construct it once
// per process:
//
//	rt := realtime.New(realtime.Config{
//	    Transport: transport.ClientConfig{URL: "ws://orders.local:8080/ws"},
//	})
//	defer rt.Close()
//
//	rt.OnStatus(func(s status.Status) { render(s) })
//	rt.Connect(ctx)
//	em := rt.Emit(ctx, "orderUpdated", order)
//	ack, err := em.Wait(ctx)
package realtime
