package connection

import (
	"math"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Default backoff parameters.
const (
	// RetryInitial is the base delay between retries of one event.
	RetryInitial = 1 * time.Second

	// RetryMultiplier grows the event retry delay.
	RetryMultiplier = 2.0

	// RetryMaxAttempts is the number of retries after the first send.
	RetryMaxAttempts = 3

	// ReconnectInitial is the delay before the first reconnection attempt.
	ReconnectInitial = 5 * time.Second

	// ReconnectMultiplier grows the reconnection delay.
	ReconnectMultiplier = 1.5

	// ReconnectMaxAttempts is the number of automatic reconnection attempts.
	ReconnectMaxAttempts = 5
)

// BackoffPolicy describes a bounded exponential backoff. It is a value type;
// callers keep their own attempt counters.
type BackoffPolicy struct {
	Initial     time.Duration `yaml:"initial"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxAttempts int           `yaml:"maxAttempts"`
}

// DefaultRetryPolicy is the per-event retry policy: 1s ×2, 3 retries.
func DefaultRetryPolicy() BackoffPolicy {
	return BackoffPolicy{Initial: RetryInitial, Multiplier: RetryMultiplier, MaxAttempts: RetryMaxAttempts}
}

// DefaultReconnectPolicy is the reconnection policy: 5s ×1.5, 5 attempts.
func DefaultReconnectPolicy() BackoffPolicy {
	return BackoffPolicy{Initial: ReconnectInitial, Multiplier: ReconnectMultiplier, MaxAttempts: ReconnectMaxAttempts}
}

// Delay returns Initial × Multiplier^exp.
func (p BackoffPolicy) Delay(exp int) time.Duration {
	if exp <= 0 {
		return p.Initial
	}
	return time.Duration(float64(p.Initial) * math.Pow(p.Multiplier, float64(exp)))
}

// Sequence returns Delay(first) through Delay(first+MaxAttempts-1).
func (p BackoffPolicy) Sequence(first int) []time.Duration {
	out := make([]time.Duration, 0, p.MaxAttempts)
	for i := 0; i < p.MaxAttempts; i++ {
		out = append(out, p.Delay(first+i))
	}
	return out
}

// Validate checks that the policy describes a usable backoff.
func (p BackoffPolicy) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Initial, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&p.Multiplier, validation.Required, validation.Min(1.0)),
		validation.Field(&p.MaxAttempts, validation.Min(0)),
	)
}
