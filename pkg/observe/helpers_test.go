package observe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// recorder collects calls in order. Safe for concurrent use.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(format string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// faultLog is a FaultSink that keeps every fault.
type faultLog struct {
	mu     sync.Mutex
	faults []Fault
}

func (f *faultLog) HandleFault(fault Fault) {
	f.mu.Lock()
	f.faults = append(f.faults, fault)
	f.mu.Unlock()
}

func (f *faultLog) get() []Fault {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Fault, len(f.faults))
	copy(out, f.faults)
	return out
}

// captureFaults installs a fresh faultLog for the duration of the test.
func captureFaults(t *testing.T) *faultLog {
	t.Helper()
	log := &faultLog{}
	prev := SetFaultSink(log)
	t.Cleanup(func() { SetFaultSink(prev) })
	return log
}

// switchWeak is a weak change listener whose liveness the test controls.
type switchWeak struct {
	dead  atomic.Bool
	calls atomic.Int32
}

func (w *switchWeak) Alive() bool { return !w.dead.Load() }

func (w *switchWeak) Changed(src Observable, old, new int) { w.calls.Add(1) }

// keyedListener compares equal to any keyedListener with the same key.
type keyedListener struct {
	key string
}

func (k *keyedListener) Invalidated(src Observable) {}

func (k *keyedListener) ListenerEqual(other any) bool {
	o, ok := other.(*keyedListener)
	return ok && o.key == k.key
}

// sliceListener is a non-comparable listener value.
type sliceListener struct {
	tags []string
}

func (s sliceListener) Invalidated(src Observable) {}
