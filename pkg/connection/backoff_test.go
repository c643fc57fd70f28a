package connection

import (
	"testing"
	"time"
)

func TestDefaultRetrySequence(t *testing.T) {
	p := DefaultRetryPolicy()
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

	got := p.Sequence(1)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("retry %d: got %v, want %v", i+1, got[i], want[i])
		}
	}
}

func TestDefaultReconnectSequence(t *testing.T) {
	p := DefaultReconnectPolicy()
	want := []time.Duration{
		5000 * time.Millisecond,
		7500 * time.Millisecond,
		11250 * time.Millisecond,
		16875 * time.Millisecond,
		25312500 * time.Microsecond,
	}

	got := p.Sequence(0)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attempt %d: got %v, want %v", i+1, got[i], want[i])
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	p := BackoffPolicy{Initial: 100 * time.Millisecond, Multiplier: 3, MaxAttempts: 2}

	tests := []struct {
		exp  int
		want time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 300 * time.Millisecond},
		{2, 900 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.exp); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.exp, got, tt.want)
		}
	}
}

func TestBackoffValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  BackoffPolicy
		wantErr bool
	}{
		{"retry default", DefaultRetryPolicy(), false},
		{"reconnect default", DefaultReconnectPolicy(), false},
		{"no retries", BackoffPolicy{Initial: time.Second, Multiplier: 2}, false},
		{"zero initial", BackoffPolicy{Multiplier: 2, MaxAttempts: 1}, true},
		{"sub-millisecond", BackoffPolicy{Initial: time.Microsecond, Multiplier: 2}, true},
		{"shrinking", BackoffPolicy{Initial: time.Second, Multiplier: 0.5}, true},
		{"negative attempts", BackoffPolicy{Initial: time.Second, Multiplier: 2, MaxAttempts: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
