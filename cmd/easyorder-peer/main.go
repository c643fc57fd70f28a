// Command easyorder-peer is a development order server.
//
// It accepts client connections over TCP and WebSocket, acknowledges every
// emit by echoing its payload, and can be told to withhold acks to exercise
// the client's retry path. It optionally advertises itself over mDNS so
// easyorder-client --discover finds it.
//
// Usage:
//
//	easyorder-peer [flags]
//
// Examples:
//
//	# Serve TCP on :7000 and WebSocket on :8080
//	easyorder-peer
//
//	# Never ack tableChanged, and ignore the first two emits of every event
//	easyorder-peer --withhold tableChanged --drop-first 2
//
//	# Push a heartbeat every 10s and advertise on the LAN
//	easyorder-peer --push-event heartbeat --push-interval 10s --advertise
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/isjust11/easy-order-sub000/pkg/config"
	"github.com/isjust11/easy-order-sub000/pkg/discovery"
	elog "github.com/isjust11/easy-order-sub000/pkg/log"
	"github.com/isjust11/easy-order-sub000/pkg/transport"
)

type options struct {
	TCPAddr      string
	WSAddr       string
	Withhold     []string
	DropFirst    int
	PushEvent    string
	PushInterval time.Duration
	Advertise    bool
	Instance     string
	Restaurant   string
	TraceFile    string
	LogLevel     string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.TCPAddr, "tcp", ":7000", "TCP listen address (empty to disable)")
	flag.StringVar(&o.WSAddr, "ws", ":8080", "WebSocket listen address (empty to disable)")
	flag.StringSliceVar(&o.Withhold, "withhold", nil, "Event names whose emits are never acknowledged")
	flag.IntVar(&o.DropFirst, "drop-first", 0, "Ignore the first N emits of every event name")
	flag.StringVar(&o.PushEvent, "push-event", "", "Event name pushed periodically to every session")
	flag.DurationVar(&o.PushInterval, "push-interval", 10*time.Second, "Interval between pushes")
	flag.BoolVar(&o.Advertise, "advertise", false, "Advertise over mDNS")
	flag.StringVar(&o.Instance, "instance", "EasyOrder Dev Server", "mDNS instance name")
	flag.StringVar(&o.Restaurant, "restaurant", "", "Restaurant identifier in the mDNS TXT record")
	flag.StringVar(&o.TraceFile, "trace", "", "Write a delivery trace to this .elog file")
	flag.StringVar(&o.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	logging := config.LoggingConfig{Level: opts.LogLevel, Format: "text", TraceFile: opts.TraceFile}
	if err := logging.Validate(); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}
	logger := logging.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	var trace elog.Logger
	fileLogger, err := logging.OpenTrace()
	if err != nil {
		log.Fatalf("Failed to open trace file: %v", err)
	}
	if fileLogger != nil {
		defer fileLogger.Close()
		trace = fileLogger
	}

	policy := newAckPolicy(opts.Withhold, opts.DropFirst)
	peer := transport.NewPeer(transport.PeerConfig{
		Responder:   policy.Respond,
		TraceLogger: trace,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Advertise {
		adv := discovery.NewAdvertiser(discovery.DefaultAdvertiserConfig())
		info, err := advertisement(opts)
		if err != nil {
			log.Fatalf("Cannot advertise: %v", err)
		}
		if err := adv.Advertise(info); err != nil {
			log.Fatalf("Failed to advertise: %v", err)
		}
		defer adv.Stop()
		logger.Info("advertising", "instance", info.Instance, "scheme", info.Scheme, "port", info.Port)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return peer.ListenAndServe(ctx, opts.TCPAddr, opts.WSAddr) })
	if opts.PushEvent != "" {
		g.Go(func() error {
			pushLoop(ctx, peer, opts.PushEvent, opts.PushInterval, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("stopped")
}

// advertisement prefers the WebSocket listener when both are enabled.
func advertisement(o options) (discovery.ServerInfo, error) {
	info := discovery.ServerInfo{Instance: o.Instance, Restaurant: o.Restaurant}
	addr := o.WSAddr
	info.Scheme = "ws"
	info.Path = "/"
	if addr == "" {
		addr = o.TCPAddr
		info.Scheme = "tcp"
		info.Path = ""
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return info, fmt.Errorf("listen address %q: %w", addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return info, fmt.Errorf("listen port %q: %w", portStr, err)
	}
	info.Port = uint16(port)
	return info, nil
}

func pushLoop(ctx context.Context, peer *transport.Peer, event string, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			seq++
			n, err := peer.Push(ctx, event, map[string]any{"seq": seq, "at": now.UTC().Format(time.RFC3339)})
			if err != nil {
				logger.Warn("push failed", "event", event, "error", err)
				continue
			}
			logger.Debug("pushed", "event", event, "sessions", n)
		}
	}
}
