package observe

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the engine's Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "propagate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the engine's Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "propagate",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the engine's collectors.
type Metrics struct {
	passes       prometheus.Counter
	passDuration prometheus.Histogram
	invocations  *prometheus.CounterVec
	faults       *prometheus.CounterVec
	prunes       prometheus.Counter
}

var activeMetrics atomic.Pointer[Metrics]

func currentMetrics() *Metrics {
	return activeMetrics.Load()
}

// EnableMetrics registers the engine's collectors and starts recording.
//
// Metrics collected:
//   - propagate_passes_total: Counter of notification passes
//   - propagate_pass_duration_seconds: Histogram of pass duration
//   - propagate_listener_invocations_total: Counter of listener calls by kind
//   - propagate_listener_faults_total: Counter of recovered listener panics by kind
//   - propagate_weak_prunes_total: Counter of dead weak listeners dropped
//
// Registering twice against the same registry panics, as promauto does.
func EnableMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}

	factory := promauto.With(config.Registry)
	m := &Metrics{
		passes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_total",
			Help:        "Total number of notification passes",
			ConstLabels: config.ConstLabels,
		}),

		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Notification pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listener_invocations_total",
			Help:        "Total number of listener invocations by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		faults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listener_faults_total",
			Help:        "Total number of recovered listener panics by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		prunes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "weak_prunes_total",
			Help:        "Total number of dead weak listeners removed",
			ConstLabels: config.ConstLabels,
		}),
	}
	activeMetrics.Store(m)
	return m
}

// DisableMetrics stops recording. Registered collectors keep their values.
func DisableMetrics() {
	activeMetrics.Store(nil)
}

func (m *Metrics) observePass(d time.Duration) {
	m.passes.Inc()
	m.passDuration.Observe(d.Seconds())
}

func recordInvocation(kind Kind) {
	if m := activeMetrics.Load(); m != nil {
		m.invocations.WithLabelValues(kind.String()).Inc()
	}
}

func recordFault(kind Kind) {
	if m := activeMetrics.Load(); m != nil {
		m.faults.WithLabelValues(kind.String()).Inc()
	}
}

func recordPrune(n int) {
	if m := activeMetrics.Load(); m != nil {
		m.prunes.Add(float64(n))
	}
}
