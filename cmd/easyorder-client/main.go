// Command easyorder-client is an interactive client for the order server.
//
// It connects through the real-time delivery layer and lets an operator emit
// events, watch acknowledgements and retries, and subscribe to pushed events.
//
// Usage:
//
//	easyorder-client [flags]
//
// Examples:
//
//	# Connect to a local development server
//	easyorder-client --url ws://localhost:8080/ws
//
//	# Find the server over mDNS and record a delivery trace
//	easyorder-client --discover --trace /tmp/client.elog
//
//	# Use a configuration file and connect immediately
//	easyorder-client --config /etc/easyorder/client.yaml --connect
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/isjust11/easy-order-sub000/cmd/easyorder-client/interactive"
	"github.com/isjust11/easy-order-sub000/pkg/config"
	"github.com/isjust11/easy-order-sub000/pkg/discovery"
	elog "github.com/isjust11/easy-order-sub000/pkg/log"
	"github.com/isjust11/easy-order-sub000/pkg/realtime"
	"github.com/isjust11/easy-order-sub000/pkg/status"
)

type options struct {
	ConfigFile string
	URL        string
	Discover   bool
	Instance   string
	Connect    bool
	TraceFile  string
	LogLevel   string
}

func parseFlags() options {
	var o options
	flag.StringVarP(&o.ConfigFile, "config", "c", "", "Configuration file path")
	flag.StringVar(&o.URL, "url", "", "Server URL (ws://, wss:// or tcp://), overrides the config file")
	flag.BoolVar(&o.Discover, "discover", false, "Find the server over mDNS")
	flag.StringVar(&o.Instance, "instance", "", "mDNS instance name to look for (default: first found)")
	flag.BoolVar(&o.Connect, "connect", false, "Connect on startup")
	flag.StringVar(&o.TraceFile, "trace", "", "Write a delivery trace to this .elog file")
	flag.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()
	return o
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(o options) (config.Config, error) {
	cfg := config.Default()
	if o.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(o.ConfigFile); err != nil {
			return cfg, err
		}
	}

	if o.URL != "" {
		cfg.Server.URL = o.URL
	}
	if o.Discover {
		cfg.Discovery.Enabled = true
	}
	if o.Instance != "" {
		cfg.Discovery.Instance = o.Instance
	}
	if o.TraceFile != "" {
		cfg.Logging.TraceFile = o.TraceFile
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return cfg, &config.LoadError{File: o.ConfigFile, Message: "invalid flags", Cause: err}
	}
	return cfg, nil
}

// resolveURL replaces the configured URL with a discovered server when
// discovery is enabled.
func resolveURL(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Discovery.Enabled {
		return nil
	}
	browser := discovery.NewBrowser(discovery.BrowserConfig{Timeout: cfg.Discovery.Timeout})
	svc, err := browser.Find(ctx, cfg.Discovery.Instance)
	if err != nil {
		return fmt.Errorf("discover %s: %w", discovery.ServiceType, err)
	}
	cfg.Server.URL = svc.URL()
	logger.Info("discovered server", "instance", svc.Instance, "url", cfg.Server.URL, "restaurant", svc.Restaurant)
	return nil
}

func main() {
	opts := parseFlags()

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := cfg.Logging.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	var trace elog.Logger
	fileLogger, err := cfg.Logging.OpenTrace()
	if err != nil {
		log.Fatalf("Failed to open trace file: %v", err)
	}
	if fileLogger != nil {
		defer fileLogger.Close()
		trace = fileLogger
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := resolveURL(ctx, &cfg, logger); err != nil {
		log.Fatalf("Discovery failed: %v", err)
	}

	client := realtime.New(cfg.Realtime(trace, logger))
	defer client.Close()

	client.OnStatus(statusLogger(logger))

	if opts.Connect {
		client.Connect(ctx)
	}

	if err := interactive.Run(ctx, client, "easyorder> "); err != nil {
		log.Fatalf("Console error: %v", err)
	}
}

// statusLogger logs state and error changes.
func statusLogger(logger *slog.Logger) status.Listener {
	var (
		mu   sync.Mutex
		last status.Status
	)
	return func(st status.Status) {
		mu.Lock()
		defer mu.Unlock()
		if st.State != last.State {
			logger.Info("connection state", "state", st.State, "attempts", st.ReconnectAttempts)
		}
		if st.Error != "" && st.Error != last.Error {
			logger.Warn("delivery error", "error", st.Error)
		}
		last = st
	}
}
