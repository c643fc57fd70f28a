package transport

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeepAliveConfigDetectionDelay(t *testing.T) {
	c := DefaultKeepAliveConfig()
	want := DefaultPingInterval*DefaultMaxMissedPongs + DefaultPongTimeout
	if got := c.DetectionDelay(); got != want {
		t.Errorf("DetectionDelay = %v, want %v", got, want)
	}
}

func TestKeepAliveTimesOutAfterMissedPings(t *testing.T) {
	var pings atomic.Int32
	timedOut := make(chan struct{})

	ka := NewKeepAlive(KeepAliveConfig{
		PingInterval:   10 * time.Millisecond,
		PongTimeout:    5 * time.Millisecond,
		MaxMissedPongs: 3,
	}, func(context.Context) error {
		pings.Add(1)
		return errors.New("no pong")
	}, func() { close(timedOut) })

	ka.Start(context.Background())
	defer ka.Stop()

	select {
	case <-timedOut:
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not time out")
	}
	if got := pings.Load(); got != 3 {
		t.Errorf("pings = %d, want 3", got)
	}
}

func TestKeepAliveHealthyConnection(t *testing.T) {
	var timedOut atomic.Bool
	var pings atomic.Int32

	ka := NewKeepAlive(KeepAliveConfig{
		PingInterval: 5 * time.Millisecond,
		PongTimeout:  5 * time.Millisecond,
	}, func(context.Context) error {
		pings.Add(1)
		return nil
	}, func() { timedOut.Store(true) })

	ka.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	ka.Stop()

	if timedOut.Load() {
		t.Error("healthy connection timed out")
	}
	if pings.Load() == 0 {
		t.Error("no pings sent")
	}
}

func TestKeepAliveStopIsIdempotent(t *testing.T) {
	ka := NewKeepAlive(KeepAliveConfig{PingInterval: time.Hour}, func(context.Context) error { return nil }, nil)
	ka.Stop()
	ka.Start(context.Background())
	ka.Start(context.Background())
	ka.Stop()
	ka.Stop()
}
