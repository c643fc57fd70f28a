package main

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isjust11/easy-order-sub000/pkg/config"
	"github.com/isjust11/easy-order-sub000/pkg/status"
)

func TestLoadConfigFlagOverrides(t *testing.T) {
	cfg, err := loadConfig(options{
		URL:       "tcp://10.0.0.5:7000",
		Discover:  true,
		Instance:  "Kitchen",
		TraceFile: "/tmp/client.elog",
		LogLevel:  "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "tcp://10.0.0.5:7000", cfg.Server.URL)
	assert.True(t, cfg.Discovery.Enabled)
	assert.Equal(t, "Kitchen", cfg.Discovery.Instance)
	assert.Equal(t, "/tmp/client.elog", cfg.Logging.TraceFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, config.Default().Delivery, cfg.Delivery)
}

func TestLoadConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  url: ws://pos.local:9000/ws\ndelivery:\n  ackTimeout: 2s\n"), 0o644))

	cfg, err := loadConfig(options{ConfigFile: path, LogLevel: "warn"})
	require.NoError(t, err)
	assert.Equal(t, "ws://pos.local:9000/ws", cfg.Server.URL)
	assert.Equal(t, "2s", cfg.Delivery.AckTimeout.String())
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(options{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = loadConfig(options{URL: "http://localhost"})
	var le *config.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "invalid flags", le.Message)

	_, err = loadConfig(options{LogLevel: "verbose"})
	assert.Error(t, err)
}

func TestStatusLoggerReportsChanges(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	fn := statusLogger(logger)

	fn(status.Status{State: "CONNECTING"})
	fn(status.Status{State: "CONNECTING", Queued: 1})
	fn(status.Status{State: "FAILED", Error: "unable to reach server after maximum attempts", ReconnectAttempts: 5})

	out := buf.String()
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("connection state")))
	assert.Contains(t, out, "state=FAILED")
	assert.Contains(t, out, "delivery error")
}
