package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/isjust11/easy-order-sub000/pkg/log"
	"github.com/isjust11/easy-order-sub000/pkg/wire"
)

// Built-in reconnection defaults.
const (
	DefaultDialAttempts = 5
	DefaultDialDelay    = time.Second
	DefaultDialTimeout  = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// Connection errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrConnectionClosed = errors.New("connection closed")
)

// DialFunc opens a connection. Dial is the default.
type DialFunc func(ctx context.Context, url string, maxSize uint32) (Conn, error)

// ClientConfig configures a Client.
type ClientConfig struct {
	// URL of the server: ws://, wss:// or tcp://host:port.
	URL string

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// DialTimeout bounds each dial attempt (default: 10s).
	DialTimeout time.Duration

	// WriteTimeout bounds each outbound message (default: 10s).
	WriteTimeout time.Duration

	// KeepAlive applies to connections that support ping.
	KeepAlive KeepAliveConfig

	// Dial overrides how connections are opened.
	Dial DialFunc

	// TraceLogger receives frame, message and state trace events (optional).
	TraceLogger log.Logger

	// Logger for operational messages (default: slog.Default()).
	Logger *slog.Logger
}

// Client is the production Handle. It keeps one connection, matches Ack
// frames to Emit callbacks by message ID, and routes pushed events to
// subscribers.
type Client struct {
	config ClientConfig
	logger *slog.Logger
	trace  log.Logger

	mu           sync.Mutex
	conn         Conn
	connID       string
	attempts     int
	delay        time.Duration
	pending      map[uint32]AckFunc
	handlers     map[string]map[SubscriptionID]EventFunc
	onLost       func(error)
	keepAlive    *KeepAlive
	readDone     chan struct{}
	nextSub      SubscriptionID
	nextMsgID    atomic.Uint32
	disconnectCh chan struct{}
}

// NewClient creates a Client. It does not connect.
func NewClient(config ClientConfig) *Client {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.Dial == nil {
		config.Dial = Dial
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:   config,
		logger:   logger.With("component", "transport"),
		trace:    log.OrNoop(config.TraceLogger),
		attempts: DefaultDialAttempts,
		delay:    DefaultDialDelay,
		pending:  make(map[uint32]AckFunc),
		handlers: make(map[string]map[SubscriptionID]EventFunc),
	}
}

// SetReconnection configures the dial retry used by Connect.
func (c *Client) SetReconnection(attempts int, delay time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = attempts
	c.delay = delay
}

// Connect dials the server, trying up to the configured number of times.
// It returns the last dial error when every attempt fails, or the context
// error if ctx ends first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	attempts, delay := c.attempts, c.delay
	disconnectCh := make(chan struct{})
	c.disconnectCh = disconnectCh
	c.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-disconnectCh:
				return ErrConnectionClosed
			case <-time.After(delay):
			}
		}

		dialCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
		conn, err := c.config.Dial(dialCtx, c.config.URL, c.config.MaxMessageSize)
		cancel()
		if err == nil {
			return c.attach(conn, disconnectCh)
		}
		lastErr = err
		c.logger.Debug("dial failed", "url", c.config.URL, "attempt", attempt, "error", err)
	}
	return fmt.Errorf("connect %s after %d attempts: %w", c.config.URL, attempts, lastErr)
}

// attach installs a freshly dialed connection unless Disconnect ran meanwhile.
func (c *Client) attach(conn Conn, disconnectCh chan struct{}) error {
	c.mu.Lock()
	select {
	case <-disconnectCh:
		c.mu.Unlock()
		conn.Close()
		return ErrConnectionClosed
	default:
	}
	if c.conn != nil {
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyConnected
	}

	c.conn = conn
	c.connID = uuid.New().String()
	if sc, ok := conn.(*streamConn); ok {
		sc.framer.SetLogger(c.config.TraceLogger, c.connID, conn.RemoteAddr())
	}
	done := make(chan struct{})
	c.readDone = done
	connID := c.connID

	var ka *KeepAlive
	if p, ok := conn.(Pinger); ok && c.config.KeepAlive.PingInterval > 0 {
		ka = NewKeepAlive(c.config.KeepAlive, p.Ping, func() {
			c.logger.Warn("keep-alive timeout", "conn_id", connID)
			conn.Close()
		})
		c.keepAlive = ka
	}
	c.mu.Unlock()

	c.traceState(connID, conn.RemoteAddr(), "DISCONNECTED", "CONNECTED", "")
	c.logger.Info("connected", "url", c.config.URL, "conn_id", connID)

	go c.readLoop(conn, done)
	if ka != nil {
		ka.Start(context.Background())
	}
	return nil
}

// Disconnect closes the current connection and aborts a Connect in progress.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.disconnectCh != nil {
		close(c.disconnectCh)
		c.disconnectCh = nil
	}
	conn, done, ka := c.conn, c.readDone, c.keepAlive
	c.conn = nil
	c.keepAlive = nil
	clear(c.pending)
	connID := c.connID
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	if ka != nil {
		ka.Stop()
	}
	err := conn.Close()
	<-done

	c.traceState(connID, conn.RemoteAddr(), "CONNECTED", "DISCONNECTED", "disconnect requested")
	return err
}

// Emit encodes and writes an Emit frame. ack, if set, is retained until the
// matching Ack arrives, ctx ends, or the connection ends.
func (c *Client) Emit(ctx context.Context, event string, payload any, ack AckFunc) error {
	id := c.nextMsgID.Add(1)
	if id == 0 {
		id = c.nextMsgID.Add(1)
	}
	msg := wire.NewEmit(id, event, payload)
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn, connID := c.conn, c.connID
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if ack != nil {
		c.pending[id] = ack
	}
	c.mu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, c.config.WriteTimeout)
	defer cancel()
	if err := conn.WriteMessage(writeCtx, data); err != nil {
		c.releaseAck(id)
		return fmt.Errorf("emit %s: %w", event, err)
	}
	c.traceMessage(connID, log.DirectionOut, msg)
	if ack != nil {
		context.AfterFunc(ctx, func() { c.releaseAck(id) })
	}
	return nil
}

func (c *Client) releaseAck(id uint32) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// On registers fn for pushed events named event.
func (c *Client) On(event string, fn EventFunc) SubscriptionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	subs, ok := c.handlers[event]
	if !ok {
		subs = make(map[SubscriptionID]EventFunc)
		c.handlers[event] = subs
	}
	subs[id] = fn
	return id
}

// Off removes a registration made by On.
func (c *Client) Off(event string, id SubscriptionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if subs, ok := c.handlers[event]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(c.handlers, event)
		}
	}
}

// OnConnectionLost sets the callback for unexpected connection loss.
func (c *Client) OnConnectionLost(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLost = fn
}

// Connected reports whether a connection is established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// PendingAcks returns the number of emits awaiting an Ack.
func (c *Client) PendingAcks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) readLoop(conn Conn, done chan struct{}) {
	defer close(done)

	for {
		data, err := conn.ReadMessage(context.Background())
		if err != nil {
			c.handleReadError(conn, err)
			return
		}

		msg, err := wire.Decode(data)
		if err != nil {
			c.logger.Warn("dropping undecodable message", "error", err)
			continue
		}

		c.mu.Lock()
		connID := c.connID
		c.mu.Unlock()
		c.traceMessage(connID, log.DirectionIn, msg)

		switch msg.Type {
		case wire.TypeAck:
			c.mu.Lock()
			ack, ok := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.mu.Unlock()
			if ok {
				ack(msg.Payload)
			}
		case wire.TypeEvent:
			for _, fn := range c.subscribers(msg.Event) {
				fn(msg.Payload)
			}
		default:
			c.logger.Debug("ignoring message", "type", msg.Type)
		}
	}
}

func (c *Client) subscribers(event string) []EventFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.handlers[event]
	fns := make([]EventFunc, 0, len(subs))
	for _, fn := range subs {
		fns = append(fns, fn)
	}
	return fns
}

// handleReadError detaches conn and reports the loss unless Disconnect
// already detached it.
func (c *Client) handleReadError(conn Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	ka := c.keepAlive
	c.keepAlive = nil
	clear(c.pending)
	connID, onLost := c.connID, c.onLost
	c.mu.Unlock()

	if ka != nil {
		go ka.Stop()
	}
	conn.Close()

	c.logger.Warn("connection lost", "conn_id", connID, "error", err)
	c.traceState(connID, conn.RemoteAddr(), "CONNECTED", "DISCONNECTED", err.Error())
	if onLost != nil {
		onLost(err)
	}
}

func (c *Client) traceState(connID, remote, oldState, newState, reason string) {
	c.trace.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   remote,
		StateChange: &log.StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (c *Client) traceMessage(connID string, dir log.Direction, msg *wire.Message) {
	c.trace.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:      msg.Type,
			MessageID: msg.ID,
			EventName: msg.Event,
			Payload:   msg.Payload,
		},
	})
}
