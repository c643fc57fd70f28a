package dispatch

import (
	"sort"
	"sync"

	"github.com/isjust11/easy-order-sub000/pkg/transport"
)

// Subscriptions tracks the transport registrations made per event name so
// they can be removed together.
type Subscriptions struct {
	mu     sync.Mutex
	handle transport.Handle
	ids    map[string][]transport.SubscriptionID
}

// NewSubscriptions creates an empty table registering on handle.
func NewSubscriptions(handle transport.Handle) *Subscriptions {
	return &Subscriptions{
		handle: handle,
		ids:    make(map[string][]transport.SubscriptionID),
	}
}

// Add registers fn for event on the transport.
func (s *Subscriptions) Add(event string, fn transport.EventFunc) transport.SubscriptionID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.handle.On(event, fn)
	s.ids[event] = append(s.ids[event], id)
	return id
}

// Remove unregisters every handler for event and returns how many there were.
func (s *Subscriptions) Remove(event string) int {
	s.mu.Lock()
	ids := s.ids[event]
	delete(s.ids, event)
	s.mu.Unlock()

	for _, id := range ids {
		s.handle.Off(event, id)
	}
	return len(ids)
}

// RemoveAll unregisters every handler.
func (s *Subscriptions) RemoveAll() {
	for _, event := range s.Events() {
		s.Remove(event)
	}
}

// Count returns the number of handlers registered for event.
func (s *Subscriptions) Count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids[event])
}

// Events returns the subscribed event names, sorted.
func (s *Subscriptions) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.ids))
	for event := range s.ids {
		out = append(out, event)
	}
	sort.Strings(out)
	return out
}
