package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// Client maintains one logical connection to the backend event socket.
type Client struct {
	cfg    ClientConfig
	policy Policy
	dialer Dialer
	clock  clockwork.Clock
	header http.Header
	logger *slog.Logger

	handler   Handler
	onState   func(SocketState)
	onMalform func()

	// Write serialization
	writeMu sync.Mutex

	mu      sync.Mutex
	conn    Conn
	state   SocketState
	userID  int64
	started bool
	closed  bool
	done    chan struct{}
	exited  chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the gorilla dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithClock injects the clock used for reconnect waits and keepalives.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithHeader sets the handshake headers (e.g. authorization).
func WithHeader(h http.Header) Option {
	return func(c *Client) {
		c.header = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a realtime client. It does not dial until Connect.
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		policy: cfg.Policy(),
		dialer: GorillaDialer{HandshakeTimeout: cfg.HandshakeTimeout},
		clock:  clockwork.NewRealClock(),
		header: http.Header{},
		logger: slog.Default(),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// OnMessage registers the message handler. Must be called before Connect.
func (c *Client) OnMessage(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// OnStateChange registers a hook invoked after every socket state change.
// The hook runs on the client's goroutine and must not block.
func (c *Client) OnStateChange(f func(SocketState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = f
}

// OnMalformed registers a hook invoked for each dropped malformed frame.
func (c *Client) OnMalformed(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMalform = f
}

// State returns a snapshot of the socket session.
func (c *Client) State() SocketState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed when the supervising goroutine exits.
func (c *Client) Done() <-chan struct{} {
	return c.exited
}

// Connect dials the socket, authenticates as userID and starts the
// supervising goroutine. A network failure on the first dial is handed to
// the reconnect policy; any other initial error, such as a rejected
// handshake, is returned.
func (c *Client) Connect(ctx context.Context, userID int64) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.userID = userID
	c.mu.Unlock()

	conn, err := c.open(ctx)
	if err != nil {
		if !transient(err) || ctx.Err() != nil {
			return err
		}
		c.logger.Warn("initial dial failed, reconnecting", "error", err)
		conn = nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.started = true
	c.mu.Unlock()

	go c.run(ctx, conn)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.exited:
		}
	}()
	return nil
}

// Close closes the socket and stops reconnecting. Safe to call repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)

	conn := c.conn
	c.conn = nil
	c.state.Connected = false
	started := c.started
	c.mu.Unlock()

	if !started {
		close(c.exited)
	}

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		c.clock.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	if err := conn.Close(); err != nil {
		c.logger.Debug("close socket", "error", err)
	}
	return nil
}

// Send writes a JSON frame on the current connection.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return c.write(conn, v)
}

func (c *Client) write(conn Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(c.writeDeadline())
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// open dials, authenticates and publishes the new connection. A successful
// open resets the reconnect attempt counter.
func (c *Client) open(ctx context.Context) (Conn, error) {
	conn, err := c.dialer.Dial(ctx, c.cfg.URL, c.header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	userID := c.userID
	c.mu.Unlock()

	if err := c.write(conn, authenticateMessage{Type: TypeAuthenticate, UserID: userID}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil, ErrAlreadyClosed
	}
	c.conn = conn
	c.state.Connected = true
	c.state.ReconnectAttempts = 0
	c.state.CooldownActive = false
	c.mu.Unlock()

	c.notify()
	c.logger.Debug("socket connected", "url", c.cfg.URL, "user_id", userID)

	return conn, nil
}

// run supervises the connection until Close, ctx cancellation or a normal
// close from the server.
func (c *Client) run(ctx context.Context, conn Conn) {
	defer close(c.exited)

	if conn == nil {
		if conn = c.reconnect(ctx); conn == nil {
			return
		}
	}

	for {
		stop := make(chan struct{})
		if c.cfg.PingInterval > 0 {
			go c.heartbeatLoop(conn, stop)
		}

		err := c.readLoop(conn)
		close(stop)
		conn.Close()

		if c.isClosed() || ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		c.conn = nil
		c.state.Connected = false
		c.mu.Unlock()
		c.notify()

		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			c.logger.Info("socket closed normally by server")
			c.Close()
			return
		}

		c.logger.Warn("socket closed abnormally", "error", err)

		conn = c.reconnect(ctx)
		if conn == nil {
			return
		}
	}
}

// reconnect applies the reconnect policy until a dial succeeds. Returns nil
// if the client was closed or ctx cancelled while waiting.
func (c *Client) reconnect(ctx context.Context) Conn {
	for {
		c.mu.Lock()
		attempts := c.state.ReconnectAttempts
		c.mu.Unlock()

		wait, cooldown := c.policy.Next(attempts)
		if cooldown {
			c.setCooldown(true)
			c.logger.Warn("reconnect attempts exhausted, cooling down",
				"attempts", attempts,
				"cooldown", wait,
			)
			if !c.sleep(ctx, wait) {
				return nil
			}

			c.mu.Lock()
			c.state.ReconnectAttempts = 0
			c.state.CooldownActive = false
			c.mu.Unlock()
			c.notify()

			// The first dial after a cooldown is immediate; a failure
			// re-enters the normal policy from zero attempts.
			conn, err := c.open(ctx)
			if err == nil {
				c.logger.Info("reconnected after cooldown")
				return conn
			}
			if errors.Is(err, ErrAlreadyClosed) {
				return nil
			}
			c.logger.Warn("reconnection after cooldown failed", "error", err)
			continue
		}

		c.mu.Lock()
		c.state.ReconnectAttempts++
		attempts = c.state.ReconnectAttempts
		c.mu.Unlock()
		c.notify()

		if !c.sleep(ctx, wait) {
			return nil
		}

		c.logger.Info("attempting reconnection", "attempt", attempts)

		conn, err := c.open(ctx)
		if err == nil {
			c.logger.Info("reconnected", "attempt", attempts)
			return conn
		}
		if errors.Is(err, ErrAlreadyClosed) {
			return nil
		}

		// A failed dial counts as another abnormal close.
		c.logger.Warn("reconnection failed", "attempt", attempts, "error", err)
	}
}

func (c *Client) setCooldown(active bool) {
	c.mu.Lock()
	c.state.CooldownActive = active
	c.mu.Unlock()
	c.notify()
}

// sleep waits for d on the injected clock. Returns false if interrupted.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	case <-c.clock.After(d):
		return true
	}
}

// readLoop reads frames and dispatches them until the connection fails.
func (c *Client) readLoop(conn Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(data)
	}
}

// dispatch decodes one frame and hands it to the handler. Malformed frames
// are logged and dropped.
func (c *Client) dispatch(data []byte) {
	c.mu.Lock()
	handler := c.handler
	onMalform := c.onMalform
	c.mu.Unlock()

	msg, err := decodeMessage(data)
	if err != nil {
		c.logger.Warn("dropping malformed message", "error", err, "size", len(data))
		if onMalform != nil {
			onMalform()
		}
		return
	}

	if !msg.Known() {
		c.logger.Debug("ignoring message", "type", msg.Type)
		return
	}

	if handler != nil {
		handler(msg)
	}
}

func decodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, ErrMissingType
	}
	return msg, nil
}

// heartbeatLoop pings the server until stop is closed.
func (c *Client) heartbeatLoop(conn Conn, stop <-chan struct{}) {
	ticker := c.clock.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.done:
			return
		case <-ticker.Chan():
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), c.writeDeadline())
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}

// transient reports whether err is a network failure worth retrying.
func transient(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// writeDeadline is zero, meaning no deadline, when WriteTimeout is unset.
func (c *Client) writeDeadline() time.Time {
	if c.cfg.WriteTimeout <= 0 {
		return time.Time{}
	}
	return c.clock.Now().Add(c.cfg.WriteTimeout)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) notify() {
	c.mu.Lock()
	f := c.onState
	st := c.state
	c.mu.Unlock()

	if f != nil {
		f(st)
	}
}
