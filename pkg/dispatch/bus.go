package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/isjust11/easy-order-sub000/pkg/delivery"
	"github.com/isjust11/easy-order-sub000/pkg/status"
	"github.com/isjust11/easy-order-sub000/pkg/transport"
)

// Lifecycle is the connection side of the bus.
// Implemented by *connection.Supervisor.
type Lifecycle interface {
	Connect(ctx context.Context) error
	Disconnect()
}

// Emitter is the emission side of the bus.
// Implemented by *delivery.Tracker.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any) *delivery.Emission
	Drop(event string) bool
}

// HandlerFunc handles one dispatched value and returns its result, if any.
type HandlerFunc func(ctx context.Context, msg any) any

// Bus routes control messages to the supervisor, the tracker and the
// subscription table.
type Bus struct {
	lifecycle Lifecycle
	emitter   Emitter
	subs      *Subscriptions
	store     *status.Store
	logger    *slog.Logger
}

// NewBus creates a Bus. Subscriptions are registered on handle.
func NewBus(lifecycle Lifecycle, emitter Emitter, handle transport.Handle, store *status.Store, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		lifecycle: lifecycle,
		emitter:   emitter,
		subs:      NewSubscriptions(handle),
		store:     store,
		logger:    logger.With("component", "dispatch"),
	}
}

// Subscriptions returns the inbound subscription table.
func (b *Bus) Subscriptions() *Subscriptions { return b.subs }

// Dispatch handles msg. For Emit it returns the emission handle; for every
// other message it returns nil.
func (b *Bus) Dispatch(ctx context.Context, msg Message) *delivery.Emission {
	b.logger.Debug("dispatch", "kind", Kind(msg))

	switch m := msg.(type) {
	case Connect:
		if err := b.lifecycle.Connect(ctx); err != nil {
			b.logger.Warn("connect rejected", "error", err)
			b.store.SetError(err.Error())
		}

	case Disconnect:
		b.lifecycle.Disconnect()

	case Emit:
		return b.emitter.Emit(ctx, m.Event, m.Payload)

	case Subscribe:
		if m.Event == "" || m.Handler == nil {
			b.logger.Warn("ignoring subscribe", "event", m.Event, "has_handler", m.Handler != nil)
			return nil
		}
		b.subs.Add(m.Event, m.Handler)

	case Unsubscribe:
		n := b.subs.Remove(m.Event)
		dropped := b.emitter.Drop(m.Event)
		b.logger.Debug("unsubscribed", "event", m.Event, "handlers", n, "timer_cleared", dropped)

	default:
		b.store.SetError(fmt.Sprintf("unknown control message %T", msg))
	}
	return nil
}

// Middleware returns a handler that dispatches control messages on the bus
// and forwards every other value to next unchanged. next may be nil.
func (b *Bus) Middleware(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, msg any) any {
		m, ok := msg.(Message)
		if !ok {
			if next == nil {
				return nil
			}
			return next(ctx, msg)
		}
		if em := b.Dispatch(ctx, m); em != nil {
			return em
		}
		return nil
	}
}
