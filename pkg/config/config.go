// Package config loads the YAML configuration shared by the easyorder
// commands.
//
// Every tunable of the delivery layer lives here with its production
// default. A file only needs the values it changes:
//
//	server:
//	  url: ws://orders.local:8080/ws
//	delivery:
//	  ackTimeout: 5s
//	  retry:
//	    initial: 1s
//	    multiplier: 2
//	    maxAttempts: 3
//	logging:
//	  level: debug
//	  traceFile: /var/log/easyorder/client.elog
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/isjust11/easy-order-sub000/pkg/connection"
	"github.com/isjust11/easy-order-sub000/pkg/delivery"
	"github.com/isjust11/easy-order-sub000/pkg/log"
	"github.com/isjust11/easy-order-sub000/pkg/realtime"
	"github.com/isjust11/easy-order-sub000/pkg/transport"
)

// Config is the root of a configuration file.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Connection ConnectionConfig `yaml:"connection"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Logging    LoggingConfig    `yaml:"logging"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
}

// ServerConfig describes the order server endpoint.
type ServerConfig struct {
	// URL is ws://, wss:// or tcp://host:port.
	URL            string        `yaml:"url"`
	MaxMessageSize uint32        `yaml:"maxMessageSize"`
	DialTimeout    time.Duration `yaml:"dialTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`

	// PingInterval of zero disables keep-alive.
	PingInterval   time.Duration `yaml:"pingInterval"`
	PongTimeout    time.Duration `yaml:"pongTimeout"`
	MaxMissedPongs int           `yaml:"maxMissedPongs"`
}

// ConnectionConfig holds the supervisor tunables.
type ConnectionConfig struct {
	Reconnect      connection.BackoffPolicy `yaml:"reconnect"`
	DialAttempts   int                      `yaml:"dialAttempts"`
	DialDelay      time.Duration            `yaml:"dialDelay"`
	ConnectTimeout time.Duration            `yaml:"connectTimeout"`
}

// DeliveryConfig holds the emission tracker tunables.
type DeliveryConfig struct {
	AckTimeout time.Duration            `yaml:"ackTimeout"`
	Retry      connection.BackoffPolicy `yaml:"retry"`
	MaxQueued  int                      `yaml:"maxQueued"`
}

// LoggingConfig selects operational logging and the optional trace file.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	TraceFile string `yaml:"traceFile"`
}

// DiscoveryConfig controls mDNS lookup of the order server.
type DiscoveryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Instance string        `yaml:"instance"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the production configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:            "ws://localhost:8080/ws",
			MaxMessageSize: transport.DefaultMaxMessageSize,
			DialTimeout:    transport.DefaultDialTimeout,
			WriteTimeout:   transport.DefaultWriteTimeout,
			PingInterval:   transport.DefaultPingInterval,
			PongTimeout:    transport.DefaultPongTimeout,
			MaxMissedPongs: transport.DefaultMaxMissedPongs,
		},
		Connection: ConnectionConfig{
			Reconnect:      connection.DefaultReconnectPolicy(),
			DialAttempts:   transport.DefaultDialAttempts,
			DialDelay:      transport.DefaultDialDelay,
			ConnectTimeout: 60 * time.Second,
		},
		Delivery: DeliveryConfig{
			AckTimeout: delivery.DefaultAckTimeout,
			Retry:      connection.DefaultRetryPolicy(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Discovery: DiscoveryConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// LoadError reports a configuration file that could not be used.
type LoadError struct {
	// File is the path of the file, if any.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File == "" {
		return msg
	}
	return e.File + ": " + msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, &LoadError{Message: "invalid configuration", Cause: err}
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Connection),
		validation.Field(&c.Delivery),
		validation.Field(&c.Logging),
		validation.Field(&c.Discovery),
	)
}

// Validate checks the server section.
func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.URL, validation.Required, validation.By(serverURL)),
		validation.Field(&s.MaxMessageSize, validation.Required, validation.Max(uint32(16<<20))),
		validation.Field(&s.DialTimeout, validation.Required),
		validation.Field(&s.WriteTimeout, validation.Required),
		validation.Field(&s.PongTimeout, validation.When(s.PingInterval > 0, validation.Required)),
		validation.Field(&s.MaxMissedPongs, validation.When(s.PingInterval > 0, validation.Required, validation.Min(1))),
	)
}

// Validate checks the connection section.
func (c ConnectionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Reconnect),
		validation.Field(&c.DialAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.DialDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.ConnectTimeout, validation.Required),
	)
}

// Validate checks the delivery section.
func (d DeliveryConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.AckTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&d.Retry),
		validation.Field(&d.MaxQueued, validation.Min(0)),
	)
}

// Validate checks the logging section.
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

// Validate checks the discovery section.
func (d DiscoveryConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Timeout, validation.When(d.Enabled, validation.Required)),
	)
}

func serverURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "ws", "wss", "tcp":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Realtime converts the configuration into a realtime.Config.
func (c Config) Realtime(trace log.Logger, logger *slog.Logger) realtime.Config {
	return realtime.Config{
		Transport: transport.ClientConfig{
			URL:            c.Server.URL,
			MaxMessageSize: c.Server.MaxMessageSize,
			DialTimeout:    c.Server.DialTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			KeepAlive: transport.KeepAliveConfig{
				PingInterval:   c.Server.PingInterval,
				PongTimeout:    c.Server.PongTimeout,
				MaxMissedPongs: c.Server.MaxMissedPongs,
			},
		},
		Connection: connection.Config{
			Reconnect:      c.Connection.Reconnect,
			DialAttempts:   c.Connection.DialAttempts,
			DialDelay:      c.Connection.DialDelay,
			ConnectTimeout: c.Connection.ConnectTimeout,
		},
		Delivery: delivery.Config{
			AckTimeout: c.Delivery.AckTimeout,
			Retry:      c.Delivery.Retry,
			MaxQueued:  c.Delivery.MaxQueued,
		},
		TraceLogger: trace,
		Logger:      logger,
	}
}

// SlogLevel maps Logging.Level to a slog level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the operational logger described by l.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenTrace opens the trace file, or returns nil when none is configured.
// The caller closes the returned logger.
func (l LoggingConfig) OpenTrace() (*log.FileLogger, error) {
	if l.TraceFile == "" {
		return nil, nil
	}
	return log.NewFileLogger(l.TraceFile)
}
