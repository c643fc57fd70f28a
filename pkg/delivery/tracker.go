package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/isjust11/easy-order-sub000/pkg/connection"
	"github.com/isjust11/easy-order-sub000/pkg/log"
	"github.com/isjust11/easy-order-sub000/pkg/status"
	"github.com/isjust11/easy-order-sub000/pkg/transport"
	"github.com/isjust11/easy-order-sub000/pkg/wire"
)

// DefaultAckTimeout is how long one send waits for its acknowledgement.
const DefaultAckTimeout = 5 * time.Second

// Connection reports whether sends can go out now.
// Implemented by *connection.Supervisor.
type Connection interface {
	IsConnected() bool
}

// Config configures a Tracker.
type Config struct {
	// AckTimeout bounds the wait for each acknowledgement (default: 5s).
	AckTimeout time.Duration

	// Retry is the per-event retry policy
	// (default: connection.DefaultRetryPolicy).
	Retry connection.BackoffPolicy

	// MaxQueued caps the offline queue (0: unbounded).
	MaxQueued int

	// TraceLogger receives delivery trace events (optional).
	TraceLogger log.Logger

	// Logger for operational messages (default: slog.Default()).
	Logger *slog.Logger
}

// Tracker sends emissions with acknowledgement timeouts and retries, and
// queues them while the connection is down. It is safe for concurrent use.
type Tracker struct {
	config Config
	handle transport.Handle
	conn   Connection
	store  *status.Store
	logger *slog.Logger
	trace  log.Logger

	registry *Registry
	queue    *Queue
	writeMu  sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker creates a Tracker sending through handle.
func NewTracker(handle transport.Handle, conn Connection, store *status.Store, config Config) *Tracker {
	if config.AckTimeout == 0 {
		config.AckTimeout = DefaultAckTimeout
	}
	if config.Retry == (connection.BackoffPolicy{}) {
		config.Retry = connection.DefaultRetryPolicy()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		config:   config,
		handle:   handle,
		conn:     conn,
		store:    store,
		logger:   logger.With("component", "tracker"),
		trace:    log.OrNoop(config.TraceLogger),
		registry: NewRegistry(),
		queue:    NewQueue(config.MaxQueued),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry exposes the pending timeout registry for inspection.
func (t *Tracker) Registry() *Registry { return t.registry }

// Queue exposes the offline queue for inspection.
func (t *Tracker) Queue() *Queue { return t.queue }

// Emit sends payload as event and returns its completion handle. It never
// blocks on the network. Ending ctx before the emission settles cancels it.
func (t *Tracker) Emit(ctx context.Context, event string, payload any) *Emission {
	em := newEmission(event, payload)

	if strings.TrimSpace(event) == "" || len(event) > wire.MaxEventNameLength {
		em.reject(fmt.Errorf("%w: %q", ErrInvalidEvent, event))
		return em
	}
	if t.ctx.Err() != nil {
		em.reject(ErrCancelled)
		return em
	}
	em.bindContext(ctx)

	t.supersede(event)
	t.route(em, false)
	return em
}

// Flush replays queued emissions in FIFO order. Each replay goes through the
// normal path, so a replay made while disconnected is queued again.
func (t *Tracker) Flush() {
	items := t.queue.Drain()
	if len(items) == 0 {
		return
	}
	t.store.SetQueued(t.queue.Len())
	t.logger.Debug("flushing offline queue", "count", len(items))

	for _, item := range items {
		em := item.emission
		if em.settled() {
			continue
		}
		t.traceDelivery(log.DeliveryFlushed, em, 0, 0, "")
		t.supersede(em.event)
		t.route(em, true)
	}
}

// CancelAll rejects every emission awaiting an acknowledgement with
// ErrCancelled and clears every retry record. Queued emissions stay queued.
func (t *Tracker) CancelAll() {
	for _, pt := range t.registry.ClearAll() {
		if pt.emission.reject(ErrCancelled) {
			t.traceDelivery(log.DeliveryCancelled, pt.emission, pt.RetryCount, 0, "disconnect")
		}
	}
	t.store.ClearRetries()
}

// Drop clears the pending timeout for event and rejects its emission with
// ErrCancelled. It reports whether an entry existed.
func (t *Tracker) Drop(event string) bool {
	pt, ok := t.registry.Clear(event)
	if !ok {
		return false
	}
	t.store.ClearRetry(event)
	if pt.emission.reject(ErrCancelled) {
		t.traceDelivery(log.DeliveryCancelled, pt.emission, pt.RetryCount, 0, "unsubscribe")
	}
	return true
}

// Close cancels everything, including queued emissions, and waits for the
// retry loops to exit.
func (t *Tracker) Close() {
	t.cancel()
	t.CancelAll()
	for _, item := range t.queue.Drain() {
		item.emission.reject(ErrCancelled)
	}
	t.store.SetQueued(0)
	t.wg.Wait()
}

// supersede clears the current entry for event and rejects its emission.
func (t *Tracker) supersede(event string) {
	if pt, ok := t.registry.Clear(event); ok {
		if pt.emission.reject(ErrSuperseded) {
			t.traceDelivery(log.DeliverySuperseded, pt.emission, pt.RetryCount, 0, "")
		}
	}
}

// route queues em while disconnected, otherwise registers it as the owner of
// its event name before returning and starts its send loop. With inline set
// the first write also happens before route returns, which keeps flushed
// emissions in order.
func (t *Tracker) route(em *Emission, inline bool) {
	if !t.conn.IsConnected() {
		n, err := t.queue.Enqueue(QueuedEmission{
			Event:      em.event,
			Payload:    em.payload,
			EnqueuedAt: time.Now(),
			emission:   em,
		})
		if err != nil {
			em.reject(err)
			return
		}
		t.store.SetQueued(n)
		t.traceDelivery(log.DeliveryQueued, em, 0, 0, "")
		return
	}

	retry := 0
	if rec, ok := t.store.Snapshot().Retry(em.event); ok {
		retry = int(rec.Count)
	}

	// One ack channel and one send context span every attempt.
	acks := make(chan any, 1)
	sendCtx, release := context.WithCancel(t.ctx)
	t.register(em, retry)

	t.wg.Add(1)
	if inline {
		t.write(sendCtx, em, retry, acks)
		go t.await(sendCtx, release, em, retry, acks)
		return
	}
	go func() {
		t.write(sendCtx, em, retry, acks)
		t.await(sendCtx, release, em, retry, acks)
	}()
}

// register makes em the owner of its event name with a fresh deadline.
func (t *Tracker) register(em *Emission, retry int) {
	pt := &PendingTimeout{
		Event:      em.event,
		EmissionID: em.id,
		RetryCount: retry,
		Deadline:   time.Now().Add(t.config.AckTimeout),
		emission:   em,
	}
	if prev := t.registry.Set(em.event, pt); prev != nil && prev.EmissionID != em.id {
		if prev.emission.reject(ErrSuperseded) {
			t.traceDelivery(log.DeliverySuperseded, prev.emission, prev.RetryCount, 0, "")
		}
	}
}

// write sends one attempt if em still owns its event name. The ownership
// check and the transport write happen under writeMu, so a replaced
// emission never reaches the wire after its replacement. A transport error
// is logged and left to the ack timer.
func (t *Tracker) write(ctx context.Context, em *Emission, retry int, acks chan<- any) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if !t.registry.IsCurrent(em.event, em.id) {
		return
	}
	err := t.handle.Emit(ctx, em.event, em.payload, func(payload any) {
		select {
		case acks <- payload:
		default:
		}
	})
	if err != nil {
		t.logger.Debug("send failed", "event", em.event, "retry", retry, "error", err)
		t.traceDelivery(log.DeliverySent, em, retry, 0, err.Error())
		return
	}
	t.traceDelivery(log.DeliverySent, em, retry, 0, "")
}

// await runs the timeout and retry loop for one emission.
// sendCtx scopes the transport's ack registrations and release ends it.
func (t *Tracker) await(sendCtx context.Context, release context.CancelFunc, em *Emission, retry int, acks chan any) {
	defer t.wg.Done()
	defer release()

	for {
		timer := time.NewTimer(t.config.AckTimeout)
		select {
		case payload := <-acks:
			timer.Stop()
			t.acked(em, retry, payload)
			return
		case <-em.done:
			timer.Stop()
			t.release(em)
			return
		case <-t.ctx.Done():
			timer.Stop()
			em.reject(ErrCancelled)
			t.release(em)
			return
		case <-timer.C:
		}

		// A replaced or cleared entry means this timer is stale.
		if !t.registry.IsCurrent(em.event, em.id) {
			return
		}
		t.traceDelivery(log.DeliveryTimedOut, em, retry, 0, ErrAckTimeout.Error())

		if retry >= t.config.Retry.MaxAttempts {
			t.exhausted(em, retry)
			return
		}

		retry++
		now := time.Now()
		delay := t.config.Retry.Delay(retry)
		if !t.registry.update(em.event, em.id, func(pt *PendingTimeout) {
			pt.RetryCount = retry
			pt.Deadline = now.Add(delay + t.config.AckTimeout)
		}) {
			return
		}
		t.store.SetRetry(em.event, uint(retry), now)
		t.traceDelivery(log.DeliveryRetrying, em, retry, delay, "")

		wait := time.NewTimer(delay)
		select {
		case payload := <-acks:
			// Late acknowledgement of the previous attempt.
			wait.Stop()
			t.acked(em, retry, payload)
			return
		case <-em.done:
			wait.Stop()
			t.release(em)
			return
		case <-t.ctx.Done():
			wait.Stop()
			em.reject(ErrCancelled)
			t.release(em)
			return
		case <-wait.C:
		}

		if !t.registry.IsCurrent(em.event, em.id) {
			return
		}
		t.write(sendCtx, em, retry, acks)
	}
}

func (t *Tracker) acked(em *Emission, retry int, payload any) {
	if t.registry.ClearIf(em.event, em.id) {
		t.store.ClearRetry(em.event)
	}
	if em.resolve(payload) {
		t.traceDelivery(log.DeliveryAcked, em, retry, 0, "")
	}
}

func (t *Tracker) exhausted(em *Emission, retry int) {
	err := &RetriesExhaustedError{Event: em.event, Retries: retry}
	if t.registry.ClearIf(em.event, em.id) {
		t.store.ClearRetry(em.event)
	}
	t.store.SetError(err.Error())
	if em.reject(err) {
		t.logger.Warn("emission rejected", "event", em.event, "retries", retry)
		t.traceDelivery(log.DeliveryRejected, em, retry, 0, err.Error())
	}
}

// release drops the registry entry of an emission settled from outside the
// loop, if it still owns one.
func (t *Tracker) release(em *Emission) {
	if t.registry.ClearIf(em.event, em.id) {
		t.store.ClearRetry(em.event)
		if _, err := em.Result(); err != nil {
			t.traceDelivery(log.DeliveryCancelled, em, 0, 0, err.Error())
		}
	}
}

func (t *Tracker) traceDelivery(action log.DeliveryAction, em *Emission, retry int, delay time.Duration, reason string) {
	t.trace.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionOut,
		Layer:     log.LayerDelivery,
		Category:  log.CategoryDelivery,
		Delivery: &log.DeliveryEvent{
			Action:     action,
			EventName:  em.event,
			EmissionID: em.id,
			RetryCount: retry,
			Delay:      delay,
			Reason:     reason,
		},
	})
}

// Compile-time interface satisfaction checks.
var (
	_ Connection          = (*connection.Supervisor)(nil)
	_ connection.Pipeline = (*Tracker)(nil)
)
