// Package status holds the observable connection status read by the UI.
//
// The Store is updated only by the connection and delivery packages. Readers
// take deep-copied snapshots or subscribe to change notifications.
package status

import (
	"maps"
	"sync"
	"time"
)

// RetryRecord tracks one event name that is in a retry cycle.
type RetryRecord struct {
	Count       uint
	LastAttempt time.Time
}

// Status is a point-in-time view of the delivery layer.
type Status struct {
	Connected         bool
	State             string
	Error             string
	ReconnectAttempts uint
	Retries           map[string]RetryRecord
	Queued            int
}

// Retry returns the retry record for event and whether one exists.
func (s Status) Retry(event string) (RetryRecord, bool) {
	r, ok := s.Retries[event]
	return r, ok
}

func (s Status) clone() Status {
	s.Retries = maps.Clone(s.Retries)
	if s.Retries == nil {
		s.Retries = map[string]RetryRecord{}
	}
	return s
}

// Listener receives a snapshot after every change.
type Listener func(Status)

// Store is the single writer-owned status model. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	status    Status
	listeners map[uint64]Listener
	nextID    uint64
}

// NewStore creates a Store in the initial disconnected state.
func NewStore(initialState string) *Store {
	return &Store{
		status: Status{
			State:   initialState,
			Retries: make(map[string]RetryRecord),
		},
		listeners: make(map[uint64]Listener),
	}
}

// Snapshot returns a deep copy of the current status.
func (s *Store) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.clone()
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// update applies fn under the lock and notifies listeners after releasing it.
// fn reports whether it changed anything.
func (s *Store) update(fn func(st *Status) bool) {
	s.mu.Lock()
	if !fn(&s.status) {
		s.mu.Unlock()
		return
	}
	snap := s.status.clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// SetConnected records a successful connect or a disconnect. Both clear every
// retry record; a successful connect also resets the reconnect counter and
// the error.
func (s *Store) SetConnected(connected bool) {
	s.update(func(st *Status) bool {
		st.Connected = connected
		clear(st.Retries)
		if connected {
			st.ReconnectAttempts = 0
			st.Error = ""
		}
		return true
	})
}

// SetState records the supervisor state name.
func (s *Store) SetState(state string) {
	s.update(func(st *Status) bool {
		if st.State == state {
			return false
		}
		st.State = state
		return true
	})
}

// SetError records a user-visible error. An empty string clears it.
func (s *Store) SetError(msg string) {
	s.update(func(st *Status) bool {
		if st.Error == msg {
			return false
		}
		st.Error = msg
		return true
	})
}

// SetReconnectAttempts records the supervisor's reconnect counter.
func (s *Store) SetReconnectAttempts(n uint) {
	s.update(func(st *Status) bool {
		if st.ReconnectAttempts == n {
			return false
		}
		st.ReconnectAttempts = n
		return true
	})
}

// SetRetry records that event is retrying for the count-th time.
func (s *Store) SetRetry(event string, count uint, at time.Time) {
	s.update(func(st *Status) bool {
		st.Retries[event] = RetryRecord{Count: count, LastAttempt: at}
		return true
	})
}

// ClearRetry removes the retry record for event.
func (s *Store) ClearRetry(event string) {
	s.update(func(st *Status) bool {
		if _, ok := st.Retries[event]; !ok {
			return false
		}
		delete(st.Retries, event)
		return true
	})
}

// ClearRetries removes every retry record.
func (s *Store) ClearRetries() {
	s.update(func(st *Status) bool {
		if len(st.Retries) == 0 {
			return false
		}
		clear(st.Retries)
		return true
	})
}

// SetQueued records the offline queue length.
func (s *Store) SetQueued(n int) {
	s.update(func(st *Status) bool {
		if st.Queued == n {
			return false
		}
		st.Queued = n
		return true
	})
}
