package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/isjust11/easy-order-sub000/pkg/log"
	"github.com/isjust11/easy-order-sub000/pkg/status"
	"github.com/isjust11/easy-order-sub000/pkg/transport"
)

// Supervisor errors.
var (
	// ErrConnectionLost wraps the transport's reason for an unexpected drop.
	ErrConnectionLost = errors.New("connection lost")

	// ErrReconnectExhausted is the terminal error after the last automatic
	// attempt fails. Its text is shown to users.
	ErrReconnectExhausted = errors.New("unable to reach server after maximum attempts")

	// ErrSupervisorClosed is returned by Connect after Close.
	ErrSupervisorClosed = errors.New("supervisor closed")
)

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no connection and no scheduled attempt.
	StateDisconnected State = iota

	// StateConnecting indicates a requested connection is in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateReconnecting indicates an automatic attempt is scheduled or running.
	StateReconnecting

	// StateFailed indicates automatic reconnection gave up.
	StateFailed

	// StateClosed indicates the supervisor has been shut down.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateFailed:
		return "FAILED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Pipeline is the emission side the supervisor drives on transitions.
type Pipeline interface {
	// Flush replays emissions queued while offline.
	Flush()

	// CancelAll cancels every pending acknowledgement timer.
	CancelAll()
}

// Config configures a Supervisor.
type Config struct {
	// Reconnect is the automatic reconnection policy
	// (default: DefaultReconnectPolicy).
	Reconnect BackoffPolicy

	// DialAttempts and DialDelay configure the transport's built-in dial
	// retry for each connect request (default: 5 attempts, 1s apart).
	DialAttempts int
	DialDelay    time.Duration

	// ConnectTimeout bounds a single connect request including its dial
	// retries (default: 60s).
	ConnectTimeout time.Duration

	// TraceLogger receives state change events (optional).
	TraceLogger log.Logger

	// Logger for operational messages (default: slog.Default()).
	Logger *slog.Logger
}

// Supervisor runs the connection state machine over a transport Handle and
// mirrors it into a status Store. It is safe for concurrent use.
type Supervisor struct {
	config Config
	handle transport.Handle
	store  *status.Store
	logger *slog.Logger
	trace  log.Logger

	mu        sync.Mutex
	state     State
	attempts  int
	gen       uint64
	timer     *time.Timer
	scheduled bool
	pipeline  Pipeline

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
}

// NewSupervisor creates a Supervisor in the DISCONNECTED state.
func NewSupervisor(handle transport.Handle, store *status.Store, config Config) *Supervisor {
	if config.Reconnect == (BackoffPolicy{}) {
		config.Reconnect = DefaultReconnectPolicy()
	}
	if config.DialAttempts == 0 {
		config.DialAttempts = transport.DefaultDialAttempts
	}
	if config.DialDelay == 0 {
		config.DialDelay = transport.DefaultDialDelay
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 60 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		config: config,
		handle: handle,
		store:  store,
		logger: logger.With("component", "supervisor"),
		trace:  log.OrNoop(config.TraceLogger),
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
	}
	store.SetState(StateDisconnected.String())
	handle.OnConnectionLost(s.connectionLost)
	return s
}

// SetPipeline installs the emission pipeline. Call before Connect.
func (s *Supervisor) SetPipeline(p Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipeline = p
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether the state is CONNECTED.
func (s *Supervisor) IsConnected() bool {
	return s.State() == StateConnected
}

// ReconnectAttempts returns the automatic attempts made since the last
// successful connect.
func (s *Supervisor) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Connect starts connecting and returns without waiting for the network.
// It is a no-op while already connected or connecting. A scheduled automatic
// attempt is replaced by an immediate one.
func (s *Supervisor) Connect(_ context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrSupervisorClosed
	case StateConnected, StateConnecting:
		s.mu.Unlock()
		return nil
	case StateReconnecting:
		if !s.scheduled {
			// An automatic attempt is already running.
			s.mu.Unlock()
			return nil
		}
		s.stopTimerLocked()
	}

	old := s.state
	s.state = StateConnecting
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if old == StateFailed {
		s.store.SetError("")
	}
	s.transition(old, StateConnecting, "connect requested", 0, 0)

	s.mu.Lock()
	if gen == s.gen {
		s.startAttemptLocked(gen)
	}
	s.mu.Unlock()
	return nil
}

// Disconnect tears the connection down, cancels any scheduled reconnect and
// every pending acknowledgement timer.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.state = StateDisconnected
	s.gen++
	s.stopTimerLocked()
	pipeline := s.pipeline
	s.mu.Unlock()

	if err := s.handle.Disconnect(); err != nil {
		s.logger.Debug("transport disconnect", "error", err)
	}
	if pipeline != nil {
		pipeline.CancelAll()
	}
	s.store.SetConnected(false)

	if old != StateDisconnected {
		s.transition(old, StateDisconnected, "disconnect requested", 0, 0)
		s.notifyDisconnected()
	}
}

// Close shuts the supervisor down and waits for in-flight attempts.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.state = StateClosed
	s.gen++
	s.stopTimerLocked()
	pipeline := s.pipeline
	s.mu.Unlock()

	s.cancel()
	s.handle.Disconnect()
	if pipeline != nil {
		pipeline.CancelAll()
	}
	s.wg.Wait()

	s.store.SetConnected(false)
	s.transition(old, StateClosed, "closed", 0, 0)
}

// startAttemptLocked launches one connect request. Caller holds s.mu.
func (s *Supervisor) startAttemptLocked(gen uint64) {
	s.handle.SetReconnection(s.config.DialAttempts, s.config.DialDelay)
	s.wg.Add(1)
	go s.attempt(gen)
}

func (s *Supervisor) attempt(gen uint64) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.config.ConnectTimeout)
	err := s.handle.Connect(ctx)
	cancel()

	if errors.Is(err, transport.ErrAlreadyConnected) {
		err = nil
	}

	s.mu.Lock()
	if gen != s.gen {
		// Disconnect or Close ran meanwhile. Undo a link they could not see
		// unless a newer attempt owns the transport now.
		stale := err == nil && (s.state == StateDisconnected || s.state == StateClosed)
		s.mu.Unlock()
		if stale {
			s.logger.Debug("dropping connection of superseded attempt")
			if err := s.handle.Disconnect(); err != nil {
				s.logger.Debug("transport disconnect", "error", err)
			}
		}
		return
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.Info("connect failed", "error", err)
		s.fail(gen, err)
		return
	}

	old := s.state
	s.state = StateConnected
	s.attempts = 0
	pipeline := s.pipeline
	s.mu.Unlock()

	s.store.SetConnected(true)
	s.transition(old, StateConnected, "", 0, 0)
	s.notifyConnected()
	if pipeline != nil {
		pipeline.Flush()
	}
}

// connectionLost is the transport's loss callback.
func (s *Supervisor) connectionLost(err error) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.mu.Unlock()

	lost := fmt.Errorf("%w: %v", ErrConnectionLost, err)
	s.logger.Warn("connection lost", "error", err)
	s.store.SetConnected(false)
	s.notifyDisconnected()
	s.fail(gen, lost)
}

// fail schedules the next automatic attempt or enters FAILED.
func (s *Supervisor) fail(gen uint64, reason error) {
	s.mu.Lock()
	if gen != s.gen || s.scheduled {
		s.mu.Unlock()
		return
	}
	switch s.state {
	case StateClosed, StateDisconnected, StateFailed:
		s.mu.Unlock()
		return
	}

	old := s.state
	if s.attempts >= s.config.Reconnect.MaxAttempts {
		s.state = StateFailed
		s.mu.Unlock()

		s.logger.Error("giving up", "attempts", s.config.Reconnect.MaxAttempts, "last_error", reason)
		s.store.SetConnected(false)
		s.store.SetError(ErrReconnectExhausted.Error())
		s.transition(old, StateFailed, reason.Error(), 0, 0)
		return
	}

	s.attempts++
	attempt := s.attempts
	delay := s.config.Reconnect.Delay(attempt - 1)
	s.state = StateReconnecting
	s.scheduled = true
	fn := s.onReconnecting
	s.mu.Unlock()

	s.store.SetReconnectAttempts(uint(attempt))
	s.transition(old, StateReconnecting, reason.Error(), attempt, delay)
	if fn != nil {
		fn(attempt, delay)
	}

	s.mu.Lock()
	if gen == s.gen && s.scheduled {
		s.timer = time.AfterFunc(delay, func() { s.reconnect(gen) })
	}
	s.mu.Unlock()
}

// reconnect fires when a scheduled delay elapses.
func (s *Supervisor) reconnect(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != StateReconnecting || !s.scheduled {
		return
	}
	s.timer = nil
	s.scheduled = false
	s.startAttemptLocked(gen)
}

func (s *Supervisor) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.scheduled = false
}

// transition mirrors a state change into the store, the trace and the
// state change callback.
func (s *Supervisor) transition(old, next State, reason string, attempt int, delay time.Duration) {
	s.store.SetState(next.String())
	s.trace.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerDelivery,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: old.String(),
			NewState: next.String(),
			Reason:   reason,
			Attempt:  attempt,
			Delay:    delay,
		},
	})
	s.logger.Debug("state change", "from", old, "to", next, "attempt", attempt, "delay", delay)

	s.mu.Lock()
	fn := s.onStateChange
	s.mu.Unlock()
	if fn != nil && old != next {
		fn(old, next)
	}
}

func (s *Supervisor) notifyConnected() {
	s.mu.Lock()
	fn := s.onConnected
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Supervisor) notifyDisconnected() {
	s.mu.Lock()
	fn := s.onDisconnected
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// OnStateChange sets a callback for state changes.
func (s *Supervisor) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnConnected sets a callback for successful connection.
func (s *Supervisor) OnConnected(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnected = fn
}

// OnDisconnected sets a callback for loss or teardown of a connection.
func (s *Supervisor) OnDisconnected(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnected = fn
}

// OnReconnecting sets a callback for each scheduled reconnection attempt.
func (s *Supervisor) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReconnecting = fn
}
