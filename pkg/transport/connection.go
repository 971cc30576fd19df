package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/minimact-dev/minimact/pkg/metrics"
	"github.com/minimact-dev/minimact/pkg/protocol"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateReconnecting:
		return "Reconnecting"
	default:
		return "Unknown"
	}
}

// Connection errors.
var (
	ErrNotConnected      = errors.New("transport: not connected")
	ErrAlreadyStarted    = errors.New("transport: connection is not disconnected")
	ErrConnectionClosed  = errors.New("transport: connection closed")
	ErrHandshake         = errors.New("transport: handshake failed")
	ErrInvocationTimeout = errors.New("transport: invocation timed out")
)

// Connection is a client connection to a minimact server.
type Connection struct {
	url    string
	config *Config
	logger *slog.Logger
	tracer trace.Tracer

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	generation uint64 // bumped per socket; stale loops check it
	stopped    bool
	reconnect  *time.Timer
	sockDone   chan struct{}

	writeMu sync.Mutex

	invocationSeq atomic.Uint64
	pendingMu     sync.Mutex
	pending       map[string]chan *protocol.Completion

	handlersMu sync.Mutex
	handlerSeq uint64
	handlers   map[string][]*handlerEntry

	lifecycleMu    sync.Mutex
	onConnected    []func()
	onDisconnected []func(error)
	onReconnecting []func(attempt int)
	onReconnected  []func()
}

// New creates a connection to the given WebSocket URL. The connection
// is created Disconnected; call Start.
func New(url string, opts ...Option) *Connection {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &Connection{
		url:      url,
		config:   config,
		logger:   config.Logger,
		tracer:   otel.Tracer("minimact/transport"),
		pending:  make(map[string]chan *protocol.Completion),
		handlers: make(map[string][]*handlerEntry),
	}
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setStateLocked transitions state with the mutex held.
func (c *Connection) setStateLocked(s State) {
	c.state = s
	metrics.SetConnectionState(int(s))
}

// Start dials the server, performs the protocol handshake, and
// transitions to Connected. It fails unless the connection is
// Disconnected. The handshake (dial included) is bounded by the
// configured handshake timeout.
func (c *Connection) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.stopped = false
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	conn, rest, err := c.dialAndHandshake(ctx)
	if err != nil {
		c.mu.Lock()
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		return err
	}

	c.adopt(conn)
	c.fireConnected()

	if len(rest) > 0 {
		c.processFrame(rest)
	}
	return nil
}

// adopt installs a freshly handshaken socket and starts its loops.
// A Stop that raced the dial wins: the socket is discarded.
func (c *Connection) adopt(conn *websocket.Conn) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.generation++
	gen := c.generation
	c.sockDone = make(chan struct{})
	done := c.sockDone
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	go c.readLoop(conn, gen)
	go c.keepAliveLoop(done)
}

// dialAndHandshake opens the socket and exchanges the protocol
// handshake. Returns the socket and any regular messages the server
// coalesced into the handshake frame.
func (c *Connection) dialAndHandshake(ctx context.Context) (*websocket.Conn, []byte, error) {
	deadline := time.Now().Add(c.config.HandshakeTimeout)
	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, resp, err := c.config.Dialer.DialContext(dialCtx, c.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: dial %s: %w", c.url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	req, err := protocol.EncodeHandshakeRequest()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%w: write: %v", ErrHandshake, err)
	}

	conn.SetReadDeadline(deadline)
	_, frame, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%w: read: %v", ErrHandshake, err)
	}

	hr, rest, err := protocol.DecodeHandshakeResponse(frame)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if !hr.OK() {
		conn.Close()
		return nil, nil, fmt.Errorf("%w: server rejected: %s", ErrHandshake, hr.Error)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})
	return conn, rest, nil
}

// Stop closes the connection, cancels any scheduled reconnect, and
// rejects pending invocations.
func (c *Connection) Stop() {
	c.mu.Lock()
	c.stopped = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.conn = nil
	c.generation++
	if c.sockDone != nil {
		close(c.sockDone)
		c.sockDone = nil
	}
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	c.rejectPending(ErrConnectionClosed)

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		c.writeMu.Unlock()
		conn.Close()
	}

	c.fireDisconnected(nil)
}

// readLoop pumps frames off one socket generation until it dies.
func (c *Connection) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.handleSocketClose(gen, err)
			return
		}
		c.processFrame(frame)
	}
}

// keepAliveLoop sends periodic protocol pings until the socket dies.
func (c *Connection) keepAliveLoop(done chan struct{}) {
	if c.config.KeepAliveInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.config.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.writeMessage(protocol.NewPing()); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// processFrame splits an inbound frame and handles each message in
// order, synchronously.
func (c *Connection) processFrame(frame []byte) {
	messages, err := protocol.SplitFrame(frame)
	if err != nil {
		c.logger.Error("frame split error", "error", err)
		return
	}
	for _, raw := range messages {
		msg, err := protocol.ParseMessage(raw)
		if err != nil {
			c.logger.Error("message parse error", "error", err)
			continue
		}
		c.handleMessage(msg)
	}
}

// handleMessage dispatches one inbound message by type.
func (c *Connection) handleMessage(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Invocation:
		c.dispatch(m)

	case *protocol.Completion:
		c.complete(m)

	case *protocol.Ping:
		if err := c.writeMessage(protocol.NewPing()); err != nil {
			c.logger.Error("ping reply error", "error", err)
		}

	case *protocol.Close:
		c.handleServerClose(m)

	case *protocol.Raw:
		c.logger.Warn("ignoring message with unknown type", "type", int(m.Type))
	}
}

// handleServerClose processes a type-7 close message.
func (c *Connection) handleServerClose(m *protocol.Close) {
	if m.Error != "" {
		c.logger.Error("server closed connection", "error", m.Error, "allowReconnect", m.AllowReconnect)
	} else {
		c.logger.Info("server closed connection", "allowReconnect", m.AllowReconnect)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	if m.AllowReconnect {
		// Drop the socket; the read loop observes the error and
		// reconnects per policy.
		conn.Close()
		return
	}

	c.Stop()
}

// handleSocketClose reacts to a dead socket: reject pending work, and
// either settle into Disconnected or begin reconnection.
func (c *Connection) handleSocketClose(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		// A newer socket already took over (or Stop ran).
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.generation++
	if c.sockDone != nil {
		close(c.sockDone)
		c.sockDone = nil
	}
	stopped := c.stopped
	clean := isCleanClose(err)
	if stopped || clean {
		c.setStateLocked(StateDisconnected)
	} else {
		c.setStateLocked(StateReconnecting)
	}
	c.mu.Unlock()

	c.rejectPending(ErrConnectionClosed)

	if stopped {
		return
	}
	if clean {
		c.logger.Info("connection closed", "error", err)
		c.fireDisconnected(err)
		return
	}

	c.logger.Warn("connection lost, reconnecting", "error", err)
	c.scheduleReconnect(0)
}

// isCleanClose reports whether the close code rules out reconnection
// (normal closure and going-away).
func isCleanClose(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}

// writeMessage serializes one message onto the socket. Writes are
// serialized so fire-and-forget messages preserve emission order.
func (c *Connection) writeMessage(m protocol.Message) error {
	data, err := protocol.EncodeMessage(m)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}
