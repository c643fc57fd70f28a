package delivery

import (
	"sync"
	"time"
)

// QueuedEmission is an emission made while disconnected.
type QueuedEmission struct {
	Event      string
	Payload    any
	EnqueuedAt time.Time

	emission *Emission
}

// Queue is a FIFO of QueuedEmission. A zero limit means unbounded.
type Queue struct {
	mu    sync.Mutex
	items []QueuedEmission
	limit int
}

// NewQueue creates a Queue holding at most limit entries (0 for no limit).
func NewQueue(limit int) *Queue {
	return &Queue{limit: limit}
}

// Enqueue appends q and returns the new length.
func (q *Queue) Enqueue(item QueuedEmission) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.items) >= q.limit {
		return len(q.items), ErrQueueFull
	}
	q.items = append(q.items, item)
	return len(q.items), nil
}

// Drain removes and returns every entry in FIFO order.
func (q *Queue) Drain() []QueuedEmission {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Snapshot returns a copy of the queued entries in FIFO order.
func (q *Queue) Snapshot() []QueuedEmission {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]QueuedEmission(nil), q.items...)
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
