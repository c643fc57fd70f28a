package config

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Second, cfg.Delivery.AckTimeout)
	assert.Equal(t, time.Second, cfg.Delivery.Retry.Initial)
	assert.Equal(t, 2.0, cfg.Delivery.Retry.Multiplier)
	assert.Equal(t, 3, cfg.Delivery.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Connection.Reconnect.Initial)
	assert.Equal(t, 1.5, cfg.Connection.Reconnect.Multiplier)
	assert.Equal(t, 5, cfg.Connection.Reconnect.MaxAttempts)
	assert.Equal(t, 5, cfg.Connection.DialAttempts)
	assert.Equal(t, time.Second, cfg.Connection.DialDelay)
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
server:
  url: tcp://10.0.0.5:7000
delivery:
  ackTimeout: 2s
  retry:
    maxAttempts: 5
logging:
  level: debug
  format: json
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "tcp://10.0.0.5:7000", cfg.Server.URL)
	assert.Equal(t, 2*time.Second, cfg.Delivery.AckTimeout)
	assert.Equal(t, 5, cfg.Delivery.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Delivery.Retry.Initial, "unset fields keep defaults")
	assert.Equal(t, 2.0, cfg.Delivery.Retry.Multiplier)
	assert.Equal(t, slog.LevelDebug, cfg.Logging.SlogLevel())
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad scheme", "server:\n  url: http://example.com\n"},
		{"missing host", "server:\n  url: ws://\n"},
		{"empty url", "server:\n  url: \"\"\n"},
		{"zero ack timeout", "delivery:\n  ackTimeout: 0s\n"},
		{"multiplier below one", "connection:\n  reconnect:\n    multiplier: 0.5\n"},
		{"negative retries", "delivery:\n  retry:\n    maxAttempts: -1\n"},
		{"no dial attempts", "connection:\n  dialAttempts: 0\n"},
		{"unknown level", "logging:\n  level: verbose\n"},
		{"unknown format", "logging:\n  format: xml\n"},
		{"negative queue", "delivery:\n  maxQueued: -1\n"},
		{"keepalive without pong timeout", "server:\n  pingInterval: 10s\n  pongTimeout: 0s\n"},
		{"discovery without timeout", "discovery:\n  enabled: true\n  timeout: 0s\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			var le *LoadError
			assert.True(t, errors.As(err, &le))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "easyorder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  url: wss://orders.example.com/ws\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://orders.example.com/ws", cfg.Server.URL)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.yaml")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("logging:\n  level: loud\n"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, bad, le.File)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRealtimeConversion(t *testing.T) {
	cfg := Default()
	cfg.Delivery.MaxQueued = 100

	rc := cfg.Realtime(nil, nil)

	assert.Equal(t, cfg.Server.URL, rc.Transport.URL)
	assert.Equal(t, cfg.Server.PingInterval, rc.Transport.KeepAlive.PingInterval)
	assert.Equal(t, cfg.Connection.Reconnect, rc.Connection.Reconnect)
	assert.Equal(t, cfg.Connection.DialAttempts, rc.Connection.DialAttempts)
	assert.Equal(t, cfg.Delivery.Retry, rc.Delivery.Retry)
	assert.Equal(t, 100, rc.Delivery.MaxQueued)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestOpenTrace(t *testing.T) {
	fl, err := LoggingConfig{}.OpenTrace()
	require.NoError(t, err)
	assert.Nil(t, fl)

	path := filepath.Join(t.TempDir(), "trace", "client.elog")
	fl, err = LoggingConfig{TraceFile: path}.OpenTrace()
	require.NoError(t, err)
	require.NotNil(t, fl)
	require.NoError(t, fl.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
