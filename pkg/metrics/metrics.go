// Package metrics exposes Prometheus instrumentation for the client
// runtime: predictive cache effectiveness, patch throughput, and
// connection health.
//
// Metrics are opt-in. Call Register once (typically at startup) to
// create and register the collectors; every Record* function is a
// no-op until then, so library users who do not care about metrics
// pay nothing.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures metric registration.
type Config struct {
	// Namespace is the metrics namespace (default: "minimact").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures metric registration.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

// collectors holds the registered metric instances.
type collectors struct {
	hintHits        prometheus.Counter
	hintMisses      prometheus.Counter
	hintsQueued     prometheus.Counter
	hintsExpired    prometheus.Counter
	patchesApplied  prometheus.Counter
	patchErrors     prometheus.Counter
	invocations     *prometheus.CounterVec
	invocationFails *prometheus.CounterVec
	reconnects      prometheus.Counter
	connectionState prometheus.Gauge
}

var (
	global     *collectors
	globalOnce sync.Once
)

// Register creates and registers the runtime's collectors. Safe to
// call more than once; only the first call registers.
func Register(opts ...Option) {
	config := Config{
		Namespace: "minimact",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}

	globalOnce.Do(func() {
		factory := promauto.With(config.Registry)

		global = &collectors{
			hintHits: factory.NewCounter(prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Name:        "hint_hits_total",
				Help:        "State changes satisfied by a queued predictive hint",
				ConstLabels: config.ConstLabels,
			}),
			hintMisses: factory.NewCounter(prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Name:        "hint_misses_total",
				Help:        "State changes that fell back to a server round-trip",
				ConstLabels: config.ConstLabels,
			}),
			hintsQueued: factory.NewCounter(prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Name:        "hints_queued_total",
				Help:        "Predictive hints received from the server",
				ConstLabels: config.ConstLabels,
			}),
			hintsExpired: factory.NewCounter(prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Name:        "hints_expired_total",
				Help:        "Hints evicted unconsumed after their TTL",
				ConstLabels: config.ConstLabels,
			}),
			patchesApplied: factory.NewCounter(prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Name:        "patches_applied_total",
				Help:        "DOM patches applied",
				ConstLabels: config.ConstLabels,
			}),
			patchErrors: factory.NewCounter(prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Name:        "patch_errors_total",
				Help:        "Patches skipped due to unresolved targets or apply errors",
				ConstLabels: config.ConstLabels,
			}),
			invocations: factory.NewCounterVec(prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Name:        "invocations_total",
				Help:        "Client-to-server invocations by target",
				ConstLabels: config.ConstLabels,
			}, []string{"target"}),
			invocationFails: factory.NewCounterVec(prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Name:        "invocation_errors_total",
				Help:        "Invocations that completed with an error or timed out",
				ConstLabels: config.ConstLabels,
			}, []string{"target"}),
			reconnects: factory.NewCounter(prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Name:        "reconnects_total",
				Help:        "Successful transport reconnections",
				ConstLabels: config.ConstLabels,
			}),
			connectionState: factory.NewGauge(prometheus.GaugeOpts{
				Namespace:   config.Namespace,
				Name:        "connection_state",
				Help:        "Transport state (0 disconnected, 1 connecting, 2 connected, 3 reconnecting)",
				ConstLabels: config.ConstLabels,
			}),
		}
	})
}

// RecordHintHit records a state change served from the hint queue.
func RecordHintHit() {
	if global != nil {
		global.hintHits.Inc()
	}
}

// RecordHintMiss records a state change that missed the hint queue.
func RecordHintMiss() {
	if global != nil {
		global.hintMisses.Inc()
	}
}

// RecordHintQueued records a hint accepted into the queue.
func RecordHintQueued() {
	if global != nil {
		global.hintsQueued.Inc()
	}
}

// RecordHintsExpired records hints evicted by TTL.
func RecordHintsExpired(n int) {
	if global != nil && n > 0 {
		global.hintsExpired.Add(float64(n))
	}
}

// RecordPatchesApplied records applied patches.
func RecordPatchesApplied(n int) {
	if global != nil && n > 0 {
		global.patchesApplied.Add(float64(n))
	}
}

// RecordPatchErrors records skipped or failed patches.
func RecordPatchErrors(n int) {
	if global != nil && n > 0 {
		global.patchErrors.Add(float64(n))
	}
}

// RecordInvocation records an outbound invocation.
func RecordInvocation(target string) {
	if global != nil {
		global.invocations.WithLabelValues(target).Inc()
	}
}

// RecordInvocationError records a failed invocation.
func RecordInvocationError(target string) {
	if global != nil {
		global.invocationFails.WithLabelValues(target).Inc()
	}
}

// RecordReconnect records a successful reconnection.
func RecordReconnect() {
	if global != nil {
		global.reconnects.Inc()
	}
}

// SetConnectionState records the transport state gauge.
func SetConnectionState(state int) {
	if global != nil {
		global.connectionState.Set(float64(state))
	}
}
