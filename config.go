package minimact

import (
	"log/slog"

	"github.com/minimact-dev/minimact/pkg/metrics"
	"github.com/minimact-dev/minimact/pkg/transport"
)

// Config holds runtime settings.
type Config struct {
	// ServerURL is the WebSocket endpoint of the minimact server.
	ServerURL string

	// Logger receives runtime logs. Defaults to slog.Default().
	Logger *slog.Logger

	// TransportOptions are passed through to the connection.
	TransportOptions []transport.Option

	// EnableMetrics registers the Prometheus collectors on startup.
	EnableMetrics bool

	// MetricsOptions configure collector registration.
	MetricsOptions []metrics.Option

	// TaskQueueSize bounds the runtime loop's pending task queue.
	TaskQueueSize int
}

// defaultConfig returns the default runtime settings.
func defaultConfig(url string) *Config {
	return &Config{
		ServerURL:     url,
		Logger:        slog.Default(),
		TaskQueueSize: 256,
	}
}

// Option configures a Runtime.
type Option func(*Config)

// WithLogger sets the runtime logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithTransportOptions forwards options to the transport connection.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *Config) { c.TransportOptions = append(c.TransportOptions, opts...) }
}

// WithMetrics enables Prometheus metrics registration.
func WithMetrics(opts ...metrics.Option) Option {
	return func(c *Config) {
		c.EnableMetrics = true
		c.MetricsOptions = append(c.MetricsOptions, opts...)
	}
}

// WithTaskQueueSize bounds the runtime loop queue.
func WithTaskQueueSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.TaskQueueSize = n
		}
	}
}
