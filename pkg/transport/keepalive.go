package transport

import (
	"context"
	"sync"
	"time"
)

// Keep-alive defaults.
const (
	// DefaultPingInterval is the default interval between pings.
	DefaultPingInterval = 25 * time.Second

	// DefaultPongTimeout is the default time a ping may take.
	DefaultPongTimeout = 5 * time.Second

	// DefaultMaxMissedPongs is the number of failed pings before the
	// connection is declared dead.
	DefaultMaxMissedPongs = 2
)

// KeepAliveConfig configures keep-alive behavior. A zero PingInterval
// disables keep-alive.
type KeepAliveConfig struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// DetectionDelay is the longest a dead connection can go unnoticed.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

// KeepAlive pings a connection periodically and reports when too many
// consecutive pings fail.
type KeepAlive struct {
	config    KeepAliveConfig
	ping      func(ctx context.Context) error
	onTimeout func()

	mu      sync.Mutex
	missed  int
	lastRTT time.Duration
	stop    context.CancelFunc
	done    chan struct{}
}

// NewKeepAlive creates a keep-alive monitor. onTimeout runs at most once per
// Start.
func NewKeepAlive(config KeepAliveConfig, ping func(ctx context.Context) error, onTimeout func()) *KeepAlive {
	if config.PongTimeout == 0 {
		config.PongTimeout = DefaultPongTimeout
	}
	if config.MaxMissedPongs == 0 {
		config.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return &KeepAlive{config: config, ping: ping, onTimeout: onTimeout}
}

// Start begins monitoring. It does nothing if already running.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if ka.stop != nil {
		return
	}
	ctx, ka.stop = context.WithCancel(ctx)
	ka.done = make(chan struct{})
	ka.missed = 0
	go ka.loop(ctx, ka.done)
}

// Stop ends monitoring and waits for the loop to exit.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	stop, done := ka.stop, ka.done
	ka.stop = nil
	ka.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// LastRTT returns the round trip of the most recent successful ping.
func (ka *KeepAlive) LastRTT() time.Duration {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.lastRTT
}

func (ka *KeepAlive) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ka.pingOnce(ctx) {
				if ka.onTimeout != nil {
					ka.onTimeout()
				}
				return
			}
		}
	}
}

// pingOnce sends one ping and reports whether the miss budget is exhausted.
func (ka *KeepAlive) pingOnce(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, ka.config.PongTimeout)
	defer cancel()

	start := time.Now()
	err := ka.ping(pingCtx)

	ka.mu.Lock()
	defer ka.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		ka.missed++
		return ka.missed >= ka.config.MaxMissedPongs
	}
	ka.missed = 0
	ka.lastRTT = time.Since(start)
	return false
}
