package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avelichko/couriertrack/internal/event"
)

// State is the client's logical connection state.
type State string

const (
	StateConnecting State = "connecting" // dial in progress
	StateOpen       State = "open"       // connected, subscriptions replayed
	StateBackoff    State = "backoff"    // waiting before the next dial
	StateClosed     State = "closed"     // client-initiated shutdown, terminal
	StateGivenUp    State = "given_up"   // attempt budget exhausted, terminal
)

// Config configures the reconnecting client.
type Config struct {
	URL   string // WebSocket endpoint, e.g. ws://localhost:8080/ws
	Token string // bearer token presented as the token query parameter

	BackoffBase      time.Duration // first retry delay (default 1s)
	BackoffCap       time.Duration // retry delay ceiling (default 30s)
	MaxAttempts      int           // consecutive failures before giving up (default 10)
	HandshakeTimeout time.Duration // dial deadline (default 10s)
	WriteTimeout     time.Duration // per-frame write deadline (default 10s)
	PongTimeout      time.Duration // read deadline granted per server ping (default 60s)
	FrameBuffer      int           // decoded frame channel capacity (default 256)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BackoffBase:      time.Second,
		BackoffCap:       30 * time.Second,
		MaxAttempts:      10,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PongTimeout:      60 * time.Second,
		FrameBuffer:      256,
	}
}

// Backoff returns the delay before retry number attempt (0-based):
// min(base·2^attempt, cap). Pure so the schedule is testable without a
// socket.
func Backoff(attempt int, base, maxWait time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxWait || d <= 0 {
			return maxWait
		}
	}
	if d > maxWait {
		return maxWait
	}
	return d
}

// Stats is a snapshot of client counters.
type Stats struct {
	State          State
	Opens          int64 // successful connections, including the first
	FramesReceived int64
	Subscriptions  int // desired delivery subscriptions
}

// Client maintains one logical always-on connection to the live channel.
// Decoded frames surface on Frames; connection state changes surface through
// the optional OnStateChange callback.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	frames  chan event.Frame
	onState func(State, int)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Desired subscriptions, replayed after every successful dial.
	mu    sync.Mutex
	subs  map[int64]struct{}
	conn  *websocket.Conn
	state State

	// Write serialization for command frames.
	writeMu sync.Mutex

	opens    atomic.Int64
	received atomic.Int64
}

// New creates a client. Zero config fields fall back to DefaultConfig
// values; a nil logger falls back to slog.Default().
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = def.BackoffCap
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = def.PongTimeout
	}
	if cfg.FrameBuffer <= 0 {
		cfg.FrameBuffer = def.FrameBuffer
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		frames: make(chan event.Frame, cfg.FrameBuffer),
		subs:   make(map[int64]struct{}),
		state:  StateClosed,
	}
}

// OnStateChange registers a callback invoked on every state transition with
// the new state and the current consecutive-failure count. Must be set
// before Start; the callback runs on the connection goroutine and must not
// block.
func (c *Client) OnStateChange(fn func(state State, attempt int)) {
	c.onState = fn
}

// Start begins the connect loop. The first dial happens asynchronously;
// watch OnStateChange or Frames for progress.
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.run()

	c.logger.Debug("wsclient started", "url", c.cfg.URL)
	return nil
}

// Stop shuts the client down and closes the frame channel.
func (c *Client) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.closeConn()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frames returns the decoded frame channel. Closed when the client reaches a
// terminal state.
func (c *Client) Frames() <-chan event.Frame {
	return c.frames
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns current counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	subs := len(c.subs)
	state := c.state
	c.mu.Unlock()

	return Stats{
		State:          state,
		Opens:          c.opens.Load(),
		FramesReceived: c.received.Load(),
		Subscriptions:  subs,
	}
}

// Subscribe records interest in a delivery's location stream and, when
// connected, sends the subscribe command. The subscription is replayed after
// every reconnect until Unsubscribe.
func (c *Client) Subscribe(deliveryID int64) error {
	c.mu.Lock()
	c.subs[deliveryID] = struct{}{}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil // sent on next connect
	}
	return c.sendCommand(conn, event.CmdSubscribeDelivery, deliveryID)
}

// Unsubscribe drops a delivery subscription.
func (c *Client) Unsubscribe(deliveryID int64) error {
	c.mu.Lock()
	delete(c.subs, deliveryID)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.sendCommand(conn, event.CmdUnsubscribeDelivery, deliveryID)
}

// run is the connect loop: dial, replay subscriptions, read until the
// connection dies, back off, repeat. attempt counts consecutive failures and
// resets to zero on every successful open.
func (c *Client) run() {
	defer c.wg.Done()
	defer close(c.frames)

	attempt := 0
	for {
		c.setState(StateConnecting, attempt)

		conn, err := c.dial()
		if err == nil {
			attempt = 0
			c.opens.Add(1)
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			c.setState(StateOpen, 0)

			c.resubscribe(conn)
			c.readLoop(conn)

			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			conn.Close()
		} else {
			c.logger.Debug("dial failed", "attempt", attempt, "error", err)
		}

		select {
		case <-c.ctx.Done():
			c.setState(StateClosed, attempt)
			return
		default:
		}

		attempt++
		if attempt >= c.cfg.MaxAttempts {
			c.logger.Warn("giving up", "attempts", attempt)
			c.setState(StateGivenUp, attempt)
			return
		}

		delay := Backoff(attempt-1, c.cfg.BackoffBase, c.cfg.BackoffCap)
		c.setState(StateBackoff, attempt)
		c.logger.Info("reconnecting", "attempt", attempt, "delay", delay)

		select {
		case <-c.ctx.Done():
			c.setState(StateClosed, attempt)
			return
		case <-time.After(delay):
		}
	}
}

// dial opens one connection with the token on the query string.
func (c *Client) dial() (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.cfg.Token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(c.ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data),
			time.Now().Add(c.cfg.WriteTimeout))
	})

	return conn, nil
}

// resubscribe replays every desired subscription on a fresh connection.
func (c *Client) resubscribe(conn *websocket.Conn) {
	c.mu.Lock()
	ids := make([]int64, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		if err := c.sendCommand(conn, event.CmdSubscribeDelivery, id); err != nil {
			c.logger.Warn("resubscribe failed", "delivery_id", id, "error", err)
			return
		}
	}
	if len(ids) > 0 {
		c.logger.Debug("subscriptions replayed", "count", len(ids))
	}
}

// readLoop decodes frames until the socket errors or the client stops.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				c.logger.Debug("connection lost", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))

		frame, err := event.ParseFrame(data)
		if err != nil {
			c.logger.Warn("unparseable frame", "error", err)
			continue
		}
		c.received.Add(1)

		select {
		case c.frames <- frame:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) sendCommand(conn *websocket.Conn, cmdType string, deliveryID int64) error {
	data, err := json.Marshal(event.Command{Type: cmdType, DeliveryID: deliveryID})
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", cmdType, err)
	}
	return nil
}

func (c *Client) setState(s State, attempt int) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed && c.onState != nil {
		c.onState(s, attempt)
	}
}

func (c *Client) closeConn() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
}
