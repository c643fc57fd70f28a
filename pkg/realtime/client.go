package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/isjust11/easy-order-sub000/pkg/connection"
	"github.com/isjust11/easy-order-sub000/pkg/delivery"
	"github.com/isjust11/easy-order-sub000/pkg/dispatch"
	"github.com/isjust11/easy-order-sub000/pkg/log"
	"github.com/isjust11/easy-order-sub000/pkg/status"
	"github.com/isjust11/easy-order-sub000/pkg/transport"
)

// Config configures a Client.
type Config struct {
	// Transport configures the default transport.Client. Ignored when
	// Handle is set.
	Transport transport.ClientConfig

	// Handle overrides the transport (optional).
	Handle transport.Handle

	// Connection configures the supervisor.
	Connection connection.Config

	// Delivery configures the emission tracker.
	Delivery delivery.Config

	// TraceLogger is used by every component whose own TraceLogger is
	// unset (optional).
	TraceLogger log.Logger

	// Logger is used by every component whose own Logger is unset
	// (default: slog.Default()).
	Logger *slog.Logger
}

// Client is the assembled real-time layer.
type Client struct {
	handle     transport.Handle
	store      *status.Store
	supervisor *connection.Supervisor
	tracker    *delivery.Tracker
	bus        *dispatch.Bus

	closeOnce sync.Once
}

// New wires a Client. Nothing connects until Connect.
func New(config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handle := config.Handle
	if handle == nil {
		tc := config.Transport
		if tc.TraceLogger == nil {
			tc.TraceLogger = config.TraceLogger
		}
		if tc.Logger == nil {
			tc.Logger = logger
		}
		handle = transport.NewClient(tc)
	}

	cc := config.Connection
	if cc.TraceLogger == nil {
		cc.TraceLogger = config.TraceLogger
	}
	if cc.Logger == nil {
		cc.Logger = logger
	}

	dc := config.Delivery
	if dc.TraceLogger == nil {
		dc.TraceLogger = config.TraceLogger
	}
	if dc.Logger == nil {
		dc.Logger = logger
	}

	store := status.NewStore(connection.StateDisconnected.String())
	supervisor := connection.NewSupervisor(handle, store, cc)
	tracker := delivery.NewTracker(handle, supervisor, store, dc)
	supervisor.SetPipeline(tracker)

	return &Client{
		handle:     handle,
		store:      store,
		supervisor: supervisor,
		tracker:    tracker,
		bus:        dispatch.NewBus(supervisor, tracker, handle, store, logger),
	}
}

// Connect begins the connection lifecycle.
func (c *Client) Connect(ctx context.Context) {
	c.bus.Dispatch(ctx, dispatch.Connect{})
}

// Disconnect tears the connection down.
func (c *Client) Disconnect() {
	c.bus.Dispatch(context.Background(), dispatch.Disconnect{})
}

// Emit sends payload as event with acknowledgement tracking.
func (c *Client) Emit(ctx context.Context, event string, payload any) *delivery.Emission {
	return c.bus.Dispatch(ctx, dispatch.Emit{Event: event, Payload: payload})
}

// Subscribe registers fn for inbound events named event.
func (c *Client) Subscribe(event string, fn transport.EventFunc) {
	c.bus.Dispatch(context.Background(), dispatch.Subscribe{Event: event, Handler: fn})
}

// Unsubscribe removes every handler for event and clears its pending timer.
func (c *Client) Unsubscribe(event string) {
	c.bus.Dispatch(context.Background(), dispatch.Unsubscribe{Event: event})
}

// Dispatch handles a control message.
func (c *Client) Dispatch(ctx context.Context, msg dispatch.Message) *delivery.Emission {
	return c.bus.Dispatch(ctx, msg)
}

// Middleware puts the bus in front of next.
func (c *Client) Middleware(next dispatch.HandlerFunc) dispatch.HandlerFunc {
	return c.bus.Middleware(next)
}

// Status returns a snapshot of the observable state.
func (c *Client) Status() status.Status { return c.store.Snapshot() }

// OnStatus registers fn for status changes.
func (c *Client) OnStatus(fn status.Listener) (cancel func()) {
	return c.store.Subscribe(fn)
}

// State returns the supervisor state.
func (c *Client) State() connection.State { return c.supervisor.State() }

// Pending returns the emissions awaiting an acknowledgement.
func (c *Client) Pending() []delivery.PendingTimeout { return c.tracker.Registry().Snapshot() }

// Queued returns the emissions held for the next connection.
func (c *Client) Queued() []delivery.QueuedEmission { return c.tracker.Queue().Snapshot() }

// Supervisor returns the connection supervisor.
func (c *Client) Supervisor() *connection.Supervisor { return c.supervisor }

// Tracker returns the emission tracker.
func (c *Client) Tracker() *delivery.Tracker { return c.tracker }

// Close shuts everything down and waits for background work. Emissions
// still pending or queued reject with delivery.ErrCancelled.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.supervisor.Close()
		c.tracker.Close()
		c.bus.Subscriptions().RemoveAll()
	})
}
