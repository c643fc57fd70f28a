package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAckPolicyEchoesByDefault(t *testing.T) {
	p := newAckPolicy(nil, 0)

	ack, ok := p.Respond(context.Background(), "orderUpdated", "payload")
	assert.True(t, ok)
	assert.Equal(t, "payload", ack)
}

func TestAckPolicyWithholds(t *testing.T) {
	p := newAckPolicy([]string{"tableChanged"}, 0)

	for i := 0; i < 5; i++ {
		_, ok := p.Respond(context.Background(), "tableChanged", nil)
		assert.False(t, ok)
	}
	_, ok := p.Respond(context.Background(), "orderUpdated", nil)
	assert.True(t, ok)
}

func TestAckPolicyDropFirstPerEvent(t *testing.T) {
	p := newAckPolicy(nil, 2)
	ctx := context.Background()

	var got []bool
	for i := 0; i < 3; i++ {
		_, ok := p.Respond(ctx, "orderUpdated", nil)
		got = append(got, ok)
	}
	assert.Equal(t, []bool{false, false, true}, got)

	_, ok := p.Respond(ctx, "tableChanged", nil)
	assert.False(t, ok, "counts are kept per event name")
}
