package signal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"rtcview/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
)

type state int

const (
	stateIdle state = iota
	stateConnecting
	stateOpen
	stateClosed
)

// Client is a single-use WebSocket signaling channel. It implements
// domain.Channel and never reconnects.
type Client struct {
	log          logging.LeveledLogger
	pingInterval time.Duration
	dialer       *websocket.Dialer

	mu        sync.Mutex // guards conn, state and handlers
	writeMu   sync.Mutex // serializes writes on conn
	conn      *websocket.Conn
	state     state
	onMessage func(string)
	onClose   func(error)

	closeOnce sync.Once
	closed    chan struct{}
}

// Options configures a Client.
type Options struct {
	// PingInterval is the keepalive period. Zero disables pings.
	PingInterval time.Duration

	// LoggerFactory for logging. If nil, uses logging.NewDefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// NewClient creates a signaling client. Call OnMessage before Connect.
func NewClient(opts Options) *Client {
	lf := opts.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	dialer := *websocket.DefaultDialer
	return &Client{
		log:          lf.NewLogger("signal"),
		pingInterval: opts.PingInterval,
		dialer:       &dialer,
		closed:       make(chan struct{}),
	}
}

// OnMessage registers the single handler for inbound text frames. Frames are
// delivered in arrival order from one goroutine.
func (c *Client) OnMessage(fn func(text string)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// OnClose registers a handler invoked once if the connection drops for any
// reason other than a local Close.
func (c *Client) OnClose(fn func(err error)) {
	c.mu.Lock()
	c.onClose = fn
	c.mu.Unlock()
}

// Connect dials the signaling WebSocket and starts the read loop. It returns
// once the handshake completes, or with an error wrapping domain.ErrTimeout
// if it does not complete within timeout.
func (c *Client) Connect(ctx context.Context, url string, timeout time.Duration) error {
	c.mu.Lock()
	if c.state != stateIdle {
		c.mu.Unlock()
		return fmt.Errorf("connect %s: %w", url, domain.ErrClosed)
	}
	c.state = stateConnecting
	c.mu.Unlock()

	c.log.Infof("connecting to %s (timeout %s)", url, timeout)

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, url, nil)
	if err != nil {
		c.Close()
		if isTimeout(dialCtx, err) {
			return fmt.Errorf("connect %s: %w: %v", url, domain.ErrTimeout, err)
		}
		return fmt.Errorf("connect %s: %w: %v", url, domain.ErrClosed, err)
	}

	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		conn.Close()
		return fmt.Errorf("connect %s: %w", url, domain.ErrClosed)
	}
	c.conn = conn
	c.state = stateOpen
	c.mu.Unlock()

	c.log.Infof("connected to %s", url)

	go c.readLoop(conn)
	if c.pingInterval > 0 {
		go c.pingLoop(conn)
	}
	return nil
}

// isTimeout reports whether a failed dial ran out of time. gorilla copies the
// context deadline onto the connection, so the handshake read can fail with
// an i/o timeout before the context itself expires.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Send writes a text frame.
func (c *Client) Send(text string) error {
	c.mu.Lock()
	conn, st := c.conn, c.state
	c.mu.Unlock()

	if st != stateOpen {
		return domain.ErrNotOpen
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.log.Debugf(">>> %s", text)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("write: %w: %v", domain.ErrClosed, err)
	}
	return nil
}

// Close shuts down the WebSocket connection. It is safe to call repeatedly
// and before Connect.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.state = stateClosed
		c.onMessage = nil
		c.onClose = nil
		c.mu.Unlock()

		close(c.closed)
		if conn != nil {
			c.writeMu.Lock()
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			c.writeMu.Unlock()
			conn.Close()
			c.log.Infof("closed")
		}
	})
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return
			default:
			}
			c.log.Warnf("read error: %v", err)

			c.mu.Lock()
			onClose := c.onClose
			c.mu.Unlock()
			c.Close()
			if onClose != nil {
				onClose(fmt.Errorf("read: %w: %v", domain.ErrClosed, err))
			}
			return
		}

		text := strings.ToValidUTF8(string(data), "\uFFFD")
		c.log.Debugf("<<< %s", text)

		c.mu.Lock()
		handler := c.onMessage
		c.mu.Unlock()
		if handler != nil {
			handler(text)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(
				websocket.PingMessage,
				[]byte{},
				time.Now().Add(5*time.Second),
			)
			c.writeMu.Unlock()
			if err != nil {
				select {
				case <-c.closed:
				default:
					c.log.Warnf("ping error: %v", err)
				}
				return
			}
		}
	}
}
