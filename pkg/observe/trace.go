package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for fault spans.
const defaultTracerName = "propagate"

// TracingConfig configures a TracingSink.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "propagate").
	TracerName string

	// Provider supplies the tracer.
	// Default: otel.GetTracerProvider()
	Provider trace.TracerProvider
}

// TracingOption configures a TracingSink.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(p trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.Provider = p
	}
}

// TracingSink records every fault as an errored span and then forwards it.
type TracingSink struct {
	tracer trace.Tracer
	next   FaultSink
}

// NewTracingSink wraps next, which may be nil.
func NewTracingSink(next FaultSink, opts ...TracingOption) *TracingSink {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}
	return &TracingSink{
		tracer: config.Provider.Tracer(config.TracerName),
		next:   next,
	}
}

// HandleFault implements FaultSink.
func (s *TracingSink) HandleFault(f Fault) {
	attrs := []attribute.KeyValue{
		attribute.Int64("goroutine", int64(f.Goroutine)),
	}
	var lf *ListenerFault
	if errors.As(f.Err, &lf) {
		attrs = append(attrs, attribute.String("listener.kind", lf.Kind.String()))
	}

	_, span := s.tracer.Start(context.Background(), "propagate.listener_fault",
		trace.WithAttributes(attrs...),
	)
	span.RecordError(f.Err)
	span.SetStatus(codes.Error, f.Err.Error())
	span.End()

	if s.next != nil {
		s.next.HandleFault(f)
	}
}
