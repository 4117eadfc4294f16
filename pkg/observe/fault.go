package observe

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
)

// Fault is one failure reported to the process-wide sink.
type Fault struct {
	// Goroutine is the id of the goroutine the failure happened on.
	Goroutine uint64

	// Err describes the failure. Listener panics arrive as *ListenerFault.
	Err error
}

// FaultSink receives faults that must neither be dropped nor propagated
// back to the code that mutated an observable.
type FaultSink interface {
	HandleFault(f Fault)
}

// FaultSinkFunc adapts a function into a FaultSink.
type FaultSinkFunc func(f Fault)

// HandleFault calls fn(f).
func (fn FaultSinkFunc) HandleFault(f Fault) { fn(f) }

// ListenerFault is a recovered listener panic.
type ListenerFault struct {
	Kind     Kind
	Listener any

	// Value is what the listener panicked with.
	Value any

	// Stack is the stack of the panicking goroutine.
	Stack []byte
}

// Error implements the error interface.
func (f *ListenerFault) Error() string {
	return fmt.Sprintf("propagate: %s listener %T panicked: %v", f.Kind, f.Listener, f.Value)
}

// Unwrap exposes ErrListenerPanic and, when the listener panicked with an
// error, that error.
func (f *ListenerFault) Unwrap() []error {
	if err, ok := f.Value.(error); ok {
		return []error{ErrListenerPanic, err}
	}
	return []error{ErrListenerPanic}
}

// LogSink logs every fault once at error level.
type LogSink struct {
	// Logger is the structured logger to write to.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// HandleFault implements FaultSink.
func (s LogSink) HandleFault(f Fault) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"goroutine", f.Goroutine, "error", f.Err}
	var lf *ListenerFault
	if errors.As(f.Err, &lf) {
		attrs = append(attrs, "kind", lf.Kind.String(), "stack", string(lf.Stack))
	}
	logger.Error("propagate: fault", attrs...)
}

// MultiSink fans a fault out to several sinks in order.
type MultiSink []FaultSink

// HandleFault implements FaultSink.
func (m MultiSink) HandleFault(f Fault) {
	for _, s := range m {
		if s != nil {
			s.HandleFault(f)
		}
	}
}

type sinkHolder struct {
	sink FaultSink
}

var faultSink atomic.Pointer[sinkHolder]

func init() {
	faultSink.Store(&sinkHolder{sink: LogSink{}})
}

// SetFaultSink installs the process-wide fault sink and returns the
// previous one. A nil sink restores the default LogSink.
func SetFaultSink(s FaultSink) FaultSink {
	if s == nil {
		s = LogSink{}
	}
	prev := faultSink.Swap(&sinkHolder{sink: s})
	return prev.sink
}

// CurrentFaultSink returns the installed fault sink.
func CurrentFaultSink() FaultSink {
	return faultSink.Load().sink
}

// ReportFault hands err to the process-wide sink, tagged with the calling
// goroutine. A sink that panics is logged and otherwise ignored.
func ReportFault(err error) {
	if err == nil {
		return
	}
	f := Fault{Goroutine: GoroutineID(), Err: err}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("propagate: fault sink panicked", "panic", r, "error", err)
		}
	}()
	CurrentFaultSink().HandleFault(f)
}

// recoverListener is deferred around every listener call.
func recoverListener(kind Kind, l any) {
	r := recover()
	if r == nil {
		return
	}
	recordFault(kind)
	ReportFault(&ListenerFault{
		Kind:     kind,
		Listener: l,
		Value:    r,
		Stack:    debug.Stack(),
	})
}

// reportMismatch reports a listener that cannot receive this notification.
func reportMismatch(kind Kind, l any) {
	recordFault(kind)
	ReportFault(fmt.Errorf("%w: %s listener %T", ErrListenerType, kind, l))
}
