package delivery

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// PendingTimeout is the acknowledgement bookkeeping for the emission that
// currently owns an event name.
type PendingTimeout struct {
	Event      string
	EmissionID string
	RetryCount int
	Deadline   time.Time

	emission *Emission
}

// Registry maps event names to their single PendingTimeout. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*PendingTimeout
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*PendingTimeout)}
}

// Set makes pt the current entry for name and returns the entry it replaced.
func (r *Registry) Set(name string, pt *PendingTimeout) (replaced *PendingTimeout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced = r.entries[name]
	r.entries[name] = pt
	return replaced
}

// Clear removes the entry for name and returns it.
func (r *Registry) Clear(name string) (*PendingTimeout, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.entries[name]
	delete(r.entries, name)
	return pt, ok
}

// ClearIf removes the entry for name only if emissionID still owns it.
func (r *Registry) ClearIf(name, emissionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.entries[name]
	if !ok || pt.EmissionID != emissionID {
		return false
	}
	delete(r.entries, name)
	return true
}

// ClearAll removes and returns every entry.
func (r *Registry) ClearAll() []*PendingTimeout {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*PendingTimeout, 0, len(r.entries))
	for _, pt := range r.entries {
		out = append(out, pt)
	}
	clear(r.entries)
	return out
}

// Current returns a copy of the entry for name.
func (r *Registry) Current(name string) (PendingTimeout, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.entries[name]
	if !ok {
		return PendingTimeout{}, false
	}
	return *pt, true
}

// Snapshot returns copies of every entry ordered by event name.
func (r *Registry) Snapshot() []PendingTimeout {
	r.mu.Lock()
	out := make([]PendingTimeout, 0, len(r.entries))
	for _, pt := range r.entries {
		out = append(out, *pt)
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b PendingTimeout) int { return strings.Compare(a.Event, b.Event) })
	return out
}

// IsCurrent reports whether emissionID owns name.
func (r *Registry) IsCurrent(name, emissionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.entries[name]
	return ok && pt.EmissionID == emissionID
}

// update applies fn to the entry for name if emissionID owns it.
func (r *Registry) update(name, emissionID string, fn func(pt *PendingTimeout)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.entries[name]
	if !ok || pt.EmissionID != emissionID {
		return false
	}
	fn(pt)
	return true
}

// Len returns the number of pending entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
