package main

import (
	"context"
	"sync"

	"github.com/isjust11/easy-order-sub000/pkg/transport"
)

// ackPolicy decides which emits the peer acknowledges. It simulates a
// server that is slow to answer: the first dropFirst emits of every event
// name go unanswered, and events listed in withhold are never answered.
type ackPolicy struct {
	withhold  map[string]bool
	dropFirst int

	mu   sync.Mutex
	seen map[string]int
}

func newAckPolicy(withhold []string, dropFirst int) *ackPolicy {
	p := &ackPolicy{
		withhold:  make(map[string]bool, len(withhold)),
		dropFirst: dropFirst,
		seen:      make(map[string]int),
	}
	for _, name := range withhold {
		p.withhold[name] = true
	}
	return p
}

// Respond implements transport.Responder. Acks echo the payload.
func (p *ackPolicy) Respond(ctx context.Context, event string, payload any) (any, bool) {
	if p.withhold[event] {
		return nil, false
	}

	p.mu.Lock()
	p.seen[event]++
	n := p.seen[event]
	p.mu.Unlock()

	if n <= p.dropFirst {
		return nil, false
	}
	return transport.EchoResponder(ctx, event, payload)
}
