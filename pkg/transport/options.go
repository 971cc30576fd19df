package transport

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Defaults.
const (
	DefaultHandshakeTimeout  = 30 * time.Second
	DefaultInvocationTimeout = 30 * time.Second
	DefaultKeepAliveInterval = 15 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
)

// defaultReconnectDelays is the fixed backoff schedule. The final
// entry repeats indefinitely.
var defaultReconnectDelays = []time.Duration{
	0,
	2 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// Config holds connection settings.
type Config struct {
	// HandshakeTimeout bounds dial plus protocol handshake.
	HandshakeTimeout time.Duration

	// InvocationTimeout bounds each blocking invocation.
	InvocationTimeout time.Duration

	// KeepAliveInterval is the outbound ping period.
	KeepAliveInterval time.Duration

	// WriteTimeout bounds each socket write.
	WriteTimeout time.Duration

	// ReconnectDelays is the backoff schedule; the last entry repeats.
	ReconnectDelays []time.Duration

	// ReconnectInterval is accepted for compatibility.
	//
	// Deprecated: the fixed ReconnectDelays schedule is always used;
	// this value is advisory and ignored.
	ReconnectInterval time.Duration

	// Logger receives connection logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Dialer performs the WebSocket dial. Defaults to
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// DefaultConfig returns the default connection settings.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout:  DefaultHandshakeTimeout,
		InvocationTimeout: DefaultInvocationTimeout,
		KeepAliveInterval: DefaultKeepAliveInterval,
		WriteTimeout:      DefaultWriteTimeout,
		ReconnectDelays:   defaultReconnectDelays,
		Logger:            slog.Default(),
		Dialer:            websocket.DefaultDialer,
	}
}

// Option configures a Connection.
type Option func(*Config)

// WithHandshakeTimeout sets the handshake deadline.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) { c.HandshakeTimeout = d }
}

// WithInvocationTimeout sets the per-invocation deadline.
func WithInvocationTimeout(d time.Duration) Option {
	return func(c *Config) { c.InvocationTimeout = d }
}

// WithKeepAliveInterval sets the outbound ping period.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(c *Config) { c.KeepAliveInterval = d }
}

// WithLogger sets the connection logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithDialer sets the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Config) { c.Dialer = d }
}

// WithReconnectDelays overrides the backoff schedule. Intended for
// tests; production connections use the default schedule.
func WithReconnectDelays(delays []time.Duration) Option {
	return func(c *Config) { c.ReconnectDelays = delays }
}

// WithReconnectInterval records a requested reconnect interval.
//
// Deprecated: the fixed backoff schedule is always used; the value is
// stored but never consulted.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *Config) { c.ReconnectInterval = d }
}
