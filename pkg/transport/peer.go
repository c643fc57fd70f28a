package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	"github.com/isjust11/easy-order-sub000/pkg/log"
	"github.com/isjust11/easy-order-sub000/pkg/version"
	"github.com/isjust11/easy-order-sub000/pkg/wire"
)

// Responder decides the acknowledgement for one received emit. Returning
// ok=false withholds the Ack.
type Responder func(ctx context.Context, event string, payload any) (ack any, ok bool)

// EchoResponder acknowledges every emit with its own payload.
func EchoResponder(_ context.Context, _ string, payload any) (any, bool) {
	return payload, true
}

// PeerConfig configures a Peer.
type PeerConfig struct {
	// Responder computes acks (default: EchoResponder).
	Responder Responder

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// TraceLogger receives message trace events (optional).
	TraceLogger log.Logger

	// Logger for operational messages (default: slog.Default()).
	Logger *slog.Logger
}

// Peer is a development endpoint that speaks the client protocol over
// WebSocket and TCP. It acknowledges emits through its Responder and can push
// events to connected sessions.
type Peer struct {
	config PeerConfig
	logger *slog.Logger
	trace  log.Logger

	mu       sync.Mutex
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

type session struct {
	id   string
	conn Conn
}

// NewPeer creates a Peer.
func NewPeer(config PeerConfig) *Peer {
	if config.Responder == nil {
		config.Responder = EchoResponder
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Peer{
		config:   config,
		logger:   logger.With("component", "peer"),
		trace:    log.OrNoop(config.TraceLogger),
		sessions: make(map[*session]struct{}),
	}
}

// ServeHTTP upgrades the request to a WebSocket session and serves it until
// the connection ends.
func (p *Peer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       version.SupportedSubprotocols(),
		InsecureSkipVerify: true,
	})
	if err != nil {
		p.logger.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c.SetReadLimit(int64(p.config.MaxMessageSize))
	p.serve(r.Context(), &wsConn{conn: c, remote: r.RemoteAddr})
}

// ServeTCP accepts framed TCP sessions on ln until ctx ends.
func (p *Peer) ServeTCP(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
		p.CloseSessions()
	}()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				p.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept error: %w", err)
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.serve(ctx, newStreamConn(c, p.config.MaxMessageSize))
		}()
	}
}

// ListenAndServe serves TCP on tcpAddr and WebSocket on wsAddr until ctx
// ends. Either address may be empty to skip that listener.
func (p *Peer) ListenAndServe(ctx context.Context, tcpAddr, wsAddr string) error {
	if tcpAddr == "" && wsAddr == "" {
		return errors.New("no listen address configured")
	}
	g, ctx := errgroup.WithContext(ctx)

	if tcpAddr != "" {
		ln, err := net.Listen("tcp", tcpAddr)
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		p.logger.Info("serving tcp", "addr", ln.Addr().String())
		g.Go(func() error { return p.ServeTCP(ctx, ln) })
	}

	if wsAddr != "" {
		srv := &http.Server{Addr: wsAddr, Handler: p, ReadHeaderTimeout: 10 * time.Second}
		p.logger.Info("serving websocket", "addr", wsAddr)
		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			p.CloseSessions()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Push sends an Event frame to every connected session and returns how many
// received it.
func (p *Peer) Push(ctx context.Context, event string, payload any) (int, error) {
	msg := wire.NewEvent(event, payload)
	data, err := wire.Encode(msg)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, s := range p.snapshot() {
		if err := s.conn.WriteMessage(ctx, data); err != nil {
			p.logger.Debug("push failed", "session", s.id, "error", err)
			continue
		}
		p.traceMessage(s, log.DirectionOut, msg)
		sent++
	}
	return sent, nil
}

// SessionCount returns the number of connected sessions.
func (p *Peer) SessionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// CloseSessions drops every connected session.
func (p *Peer) CloseSessions() {
	for _, s := range p.snapshot() {
		s.conn.Close()
	}
}

func (p *Peer) snapshot() []*session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*session, 0, len(p.sessions))
	for s := range p.sessions {
		out = append(out, s)
	}
	return out
}

func (p *Peer) serve(ctx context.Context, conn Conn) {
	s := &session{id: uuid.New().String(), conn: conn}
	if sc, ok := conn.(*streamConn); ok {
		sc.framer.SetLogger(p.config.TraceLogger, s.id, conn.RemoteAddr())
	}

	p.mu.Lock()
	p.sessions[s] = struct{}{}
	p.mu.Unlock()
	p.logger.Debug("session opened", "session", s.id, "remote", conn.RemoteAddr())
	if ctx.Err() != nil {
		p.mu.Lock()
		delete(p.sessions, s)
		p.mu.Unlock()
		conn.Close()
		return
	}

	defer func() {
		p.mu.Lock()
		delete(p.sessions, s)
		p.mu.Unlock()
		conn.Close()
		p.logger.Debug("session closed", "session", s.id)
	}()

	for {
		data, err := conn.ReadMessage(ctx)
		if err != nil {
			return
		}
		msg, err := wire.Decode(data)
		if err != nil {
			p.logger.Warn("dropping undecodable message", "session", s.id, "error", err)
			continue
		}
		p.traceMessage(s, log.DirectionIn, msg)
		if msg.Type != wire.TypeEmit {
			continue
		}

		payload, ok := p.config.Responder(ctx, msg.Event, msg.Payload)
		if !ok {
			continue
		}
		ack := wire.NewAck(msg.ID, payload)
		out, err := wire.Encode(ack)
		if err != nil {
			p.logger.Warn("encode ack failed", "error", err)
			continue
		}
		if err := conn.WriteMessage(ctx, out); err != nil {
			return
		}
		p.traceMessage(s, log.DirectionOut, ack)
	}
}

func (p *Peer) traceMessage(s *session, dir log.Direction, msg *wire.Message) {
	p.trace.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		RemoteAddr:   s.conn.RemoteAddr(),
		Message: &log.MessageEvent{
			Type:      msg.Type,
			MessageID: msg.ID,
			EventName: msg.Event,
			Payload:   msg.Payload,
		},
	})
}
