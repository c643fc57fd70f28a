package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/isjust11/easy-order-sub000/pkg/version"
)

// Supported URL schemes.
const (
	SchemeWS  = "ws"
	SchemeWSS = "wss"
	SchemeTCP = "tcp"
)

// ErrUnsupportedScheme is returned for URLs that are neither WebSocket nor TCP.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Conn is one established message-oriented connection.
type Conn interface {
	// ReadMessage blocks until a whole message arrives.
	ReadMessage(ctx context.Context) ([]byte, error)

	// WriteMessage sends one whole message.
	WriteMessage(ctx context.Context, data []byte) error

	// RemoteAddr describes the other end.
	RemoteAddr() string

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Pinger is implemented by connections with a native liveness ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dial connects to rawURL, choosing the framing from its scheme.
func Dial(ctx context.Context, rawURL string, maxSize uint32) (Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}

	switch u.Scheme {
	case SchemeWS, SchemeWSS:
		c, _, err := websocket.Dial(ctx, rawURL, &websocket.DialOptions{
			Subprotocols: version.SupportedSubprotocols(),
		})
		if err != nil {
			return nil, fmt.Errorf("websocket dial failed: %w", err)
		}
		if err := version.CheckSubprotocol(c.Subprotocol()); err != nil {
			c.Close(websocket.StatusProtocolError, "unsupported subprotocol")
			return nil, err
		}
		c.SetReadLimit(int64(maxSize))
		return &wsConn{conn: c, remote: u.Host}, nil

	case SchemeTCP:
		var d net.Dialer
		c, err := d.DialContext(ctx, "tcp", u.Host)
		if err != nil {
			return nil, fmt.Errorf("dial failed: %w", err)
		}
		return newStreamConn(c, maxSize), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// wsConn carries one message per binary WebSocket message.
type wsConn struct {
	conn   *websocket.Conn
	remote string
}

func (c *wsConn) ReadMessage(ctx context.Context) ([]byte, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return nil, ErrConnectionClosed
		}
		return nil, err
	}
	if typ != websocket.MessageBinary {
		return nil, fmt.Errorf("unexpected websocket message type %v", typ)
	}
	return data, nil
}

func (c *wsConn) WriteMessage(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageBinary, data)
}

func (c *wsConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *wsConn) RemoteAddr() string { return c.remote }

func (c *wsConn) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// streamConn frames messages over a byte stream.
type streamConn struct {
	conn      net.Conn
	framer    *Framer
	closeOnce sync.Once
	closeErr  error
}

func newStreamConn(c net.Conn, maxSize uint32) *streamConn {
	return &streamConn{conn: c, framer: NewFramer(c, maxSize)}
}

// ReadMessage ignores ctx; Close unblocks a pending read.
func (c *streamConn) ReadMessage(_ context.Context) ([]byte, error) {
	data, err := c.framer.ReadFrame()
	if err != nil && errors.Is(err, net.ErrClosed) {
		return nil, ErrConnectionClosed
	}
	return data, err
}

func (c *streamConn) WriteMessage(ctx context.Context, data []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return c.framer.WriteFrame(data)
}

func (c *streamConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

func (c *streamConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Compile-time interface satisfaction checks.
var (
	_ Conn   = (*wsConn)(nil)
	_ Pinger = (*wsConn)(nil)
	_ Conn   = (*streamConn)(nil)
)
