package propagate

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/propagate/pkg/observe"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the process-wide engine configuration applied by Setup.
type Config struct {
	// Logger is the structured logger faults and debug passes go to.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// FaultPolicy decides what happens to listener and binding faults.
	// Default: FaultLog.
	FaultPolicy FaultPolicy

	// Debug logs every notification pass at debug level.
	// SECURITY: values are not logged, but pass volume can be large.
	Debug bool

	// Metrics enables Prometheus metrics when non-nil.
	Metrics *MetricsConfig

	// Tracing records faults as OpenTelemetry spans when non-nil.
	Tracing *TracingConfig

	// ExtraSinks receive every fault after the policy's own sink.
	ExtraSinks []observe.FaultSink
}

// FaultPolicy selects the base fault sink.
type FaultPolicy int

const (
	// FaultLog logs each fault once at error level.
	FaultLog FaultPolicy = iota

	// FaultIgnore drops faults. Tracing and extra sinks still see them.
	FaultIgnore
)

// String returns the policy name used in propagate.json.
func (p FaultPolicy) String() string {
	switch p {
	case FaultLog:
		return "log"
	case FaultIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}

// ParseFaultPolicy parses "log" or "ignore".
func ParseFaultPolicy(s string) (FaultPolicy, bool) {
	switch s {
	case "log", "":
		return FaultLog, true
	case "ignore":
		return FaultIgnore, true
	default:
		return FaultLog, false
	}
}

// MetricsConfig configures engine metrics.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	// Default: "propagate".
	Namespace string

	// Registry receives the collectors.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// TracingConfig configures fault spans.
type TracingConfig struct {
	// TracerName is the instrumentation name.
	TracerName string

	// Provider creates the tracer.
	// Default: otel.GetTracerProvider().
	Provider trace.TracerProvider
}

// =============================================================================
// Default Configurations
// =============================================================================

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		FaultPolicy: FaultLog,
	}
}

// =============================================================================
// Config Translation
// =============================================================================

// buildFaultSink assembles the sink chain described by cfg.
func buildFaultSink(cfg Config) observe.FaultSink {
	var base observe.FaultSink
	switch cfg.FaultPolicy {
	case FaultIgnore:
		base = observe.FaultSinkFunc(func(observe.Fault) {})
	default:
		base = observe.LogSink{Logger: cfg.Logger}
	}

	if cfg.Tracing != nil {
		var opts []observe.TracingOption
		if cfg.Tracing.TracerName != "" {
			opts = append(opts, observe.WithTracerName(cfg.Tracing.TracerName))
		}
		if cfg.Tracing.Provider != nil {
			opts = append(opts, observe.WithTracerProvider(cfg.Tracing.Provider))
		}
		base = observe.NewTracingSink(base, opts...)
	}

	if len(cfg.ExtraSinks) == 0 {
		return base
	}
	return append(observe.MultiSink{base}, cfg.ExtraSinks...)
}

// buildMetricsOptions converts cfg.Metrics into observe options.
func buildMetricsOptions(m *MetricsConfig) []observe.MetricsOption {
	var opts []observe.MetricsOption
	if m.Namespace != "" {
		opts = append(opts, observe.WithNamespace(m.Namespace))
	}
	if m.Registry != nil {
		opts = append(opts, observe.WithRegistry(m.Registry))
	}
	return opts
}
