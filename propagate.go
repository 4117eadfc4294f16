// Package propagate provides the public API of the propagation engine.
//
// This is the recommended import for most applications:
//
//	import "github.com/vango-dev/propagate"
//
// Usage:
//
//	rt := propagate.Setup(propagate.DefaultConfig())
//	defer rt.Close()
//
//	count := propagate.New(0)
//	mirror := propagate.New(0)
//	link, err := propagate.BindBidirectional(count, mirror)
//
// The packages under pkg/ hold the full API: observe (registry, subjects,
// faults), property, collections, proxy, binding and bridge.
package propagate

import (
	"log/slog"
	"sync"

	"github.com/vango-dev/propagate/pkg/binding"
	"github.com/vango-dev/propagate/pkg/collections"
	"github.com/vango-dev/propagate/pkg/observe"
	"github.com/vango-dev/propagate/pkg/property"
	"github.com/vango-dev/propagate/pkg/proxy"
)

// =============================================================================
// Runtime
// =============================================================================

// Runtime is the engine state installed by Setup.
type Runtime struct {
	// Metrics is nil unless Config.Metrics was set.
	Metrics *observe.Metrics

	logger     *slog.Logger
	prevLogger *slog.Logger
	prevSink   observe.FaultSink
	prevDebug  bool
	closeOnce  sync.Once
}

// Setup installs cfg process-wide: the fault sink chain, debug logging and
// metrics. Close restores the previous sink.
//
// Example:
//
//	rt := propagate.Setup(propagate.Config{
//	    Logger:  logger,
//	    Metrics: &propagate.MetricsConfig{Registry: reg},
//	})
//	defer rt.Close()
func Setup(cfg Config) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Logger = logger

	rt := &Runtime{
		logger:    logger,
		prevDebug: observe.DebugMode,
	}
	rt.prevSink = observe.SetFaultSink(buildFaultSink(cfg))
	rt.prevLogger = observe.SetLogger(logger)
	observe.DebugMode = cfg.Debug

	if cfg.Metrics != nil {
		rt.Metrics = observe.EnableMetrics(buildMetricsOptions(cfg.Metrics)...)
	}

	logger.Debug("propagate: runtime ready",
		"fault_policy", cfg.FaultPolicy.String(),
		"metrics", cfg.Metrics != nil,
		"tracing", cfg.Tracing != nil)
	return rt
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Close stops metric recording and restores the fault sink and debug flag
// that were active before Setup. It is safe to call more than once.
func (rt *Runtime) Close() {
	rt.closeOnce.Do(func() {
		if rt.Metrics != nil {
			observe.DisableMetrics()
		}
		observe.DebugMode = rt.prevDebug
		observe.SetLogger(rt.prevLogger)
		observe.SetFaultSink(rt.prevSink)
	})
}

// =============================================================================
// Properties (re-export from pkg/property)
// =============================================================================

// Property is an observable value.
type Property[T any] = property.Property[T]

// SetProperty holds an observable set.
type SetProperty[E comparable] = property.SetProperty[E]

// ListProperty holds an observable list.
type ListProperty[E any] = property.ListProperty[E]

// Readable is a read-only observable value.
type Readable[T any] = property.Readable[T]

// New creates a property holding initial.
//
// Example:
//
//	count := propagate.New(0)
//	count.Set(1)
//	value := count.Value() // 1
func New[T any](initial T, opts ...property.Option[T]) *Property[T] {
	return property.New(initial, opts...)
}

// NewSetProperty creates a property holding a set.
func NewSetProperty[E comparable](initial *Set[E]) *SetProperty[E] {
	return property.NewSetProperty(initial)
}

// NewListProperty creates a property holding a list.
func NewListProperty[E any](initial *List[E]) *ListProperty[E] {
	return property.NewListProperty(initial)
}

// =============================================================================
// Collections (re-export from pkg/collections)
// =============================================================================

// Set is an observable set.
type Set[E comparable] = collections.Set[E]

// List is an observable list.
type List[E any] = collections.List[E]

// SetOf creates a set holding items.
func SetOf[E comparable](items ...E) *Set[E] {
	return collections.SetOf(items...)
}

// ListOf creates a list holding items.
func ListOf[E any](items ...E) *List[E] {
	return collections.ListOf(items...)
}

// SetFrom creates a set holding items with the given collection options.
func SetFrom[E comparable](items []E, opts ...CollectionOption) *Set[E] {
	return collections.SetFrom(items, opts...)
}

// ListFrom creates a list holding items with the given collection options.
func ListFrom[E any](items []E, opts ...CollectionOption) *List[E] {
	return collections.ListFrom(items, opts...)
}

// CollectionOption configures a Set or List.
type CollectionOption = collections.Option

// ContentionPolicy decides what a collection mutation does while a guard
// is held.
type ContentionPolicy = collections.ContentionPolicy

// Contention policies.
const (
	Block    = collections.Block
	FailFast = collections.FailFast
)

// WithPolicy sets a collection's contention policy.
func WithPolicy(p ContentionPolicy) CollectionOption {
	return collections.WithPolicy(p)
}

// =============================================================================
// Proxies and bindings
// =============================================================================

// Proxy mirrors a swappable peer.
type Proxy[T any] = proxy.Value[T]

// NewProxy creates a proxy pointed at peer, which may be nil.
func NewProxy[T any](peer proxy.Source[T]) *Proxy[T] {
	return proxy.New(peer)
}

// Select returns a proxy following the observable sel picks out of src's
// value. Selections chain into property paths.
func Select[T, U any](src proxy.Source[T], sel func(T) proxy.Source[U]) *Proxy[U] {
	return proxy.Select(src, sel)
}

// Link is a bidirectional binding.
type Link = binding.Link

// BindBidirectional keeps a and b equal. a starts from b's value.
func BindBidirectional[T any](a, b *Property[T]) (*Link, error) {
	return binding.BindBidirectional(a, b)
}

// Unbind removes the link between a and b, in either order.
var Unbind = binding.Unbind

// BindSetContent makes target mirror source's elements.
func BindSetContent[E comparable](target, source *Set[E]) (*Link, error) {
	return binding.BindSetContent(target, source)
}

// BindListContent makes target mirror source's elements in order.
func BindListContent[E any](target, source *List[E]) (*Link, error) {
	return binding.BindListContent(target, source)
}

// =============================================================================
// Listeners (re-export from pkg/observe)
// =============================================================================

// Observable is anything listeners can be registered on.
type Observable = observe.Observable

// OnInvalidated adapts fn to an invalidation listener.
var OnInvalidated = observe.OnInvalidated

// OnChanged adapts fn to a change listener.
func OnChanged[T any](fn func(src Observable, old, new T)) observe.ChangeListener[T] {
	return observe.OnChanged(fn)
}

// Errors
var (
	ErrSelfBinding  = binding.ErrSelfBinding
	ErrNilEndpoint  = binding.ErrNilEndpoint
	ErrNilConverter = binding.ErrNilConverter
	ErrAlreadyBound = binding.ErrAlreadyBound
	ErrBound        = property.ErrBound
	ErrContention   = collections.ErrContention
)
