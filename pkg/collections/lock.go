package collections

import (
	"iter"
	"runtime"
	"sync"
	"sync/atomic"

	perrors "github.com/vango-dev/propagate/internal/errors"
)

// ErrContention is returned by mutations of a FailFast collection while a
// Guard is held. Plain reads and other writers are waited for.
var ErrContention error = perrors.New("E301")

// ErrIndexOutOfRange is returned by list operations given a bad index.
var ErrIndexOutOfRange error = perrors.New("E302")

// ErrBadDelta is returned by List.Apply for an unordered delta or a
// permutation that does not rearrange its span.
var ErrBadDelta error = perrors.New("E303")

// ContentionPolicy decides what a mutation does while the collection is
// locked for reading.
type ContentionPolicy uint8

const (
	// Block makes writers wait until every guard is released.
	Block ContentionPolicy = iota

	// FailFast makes writers return ErrContention instead of waiting for a
	// held Guard.
	FailFast
)

// String returns the policy name.
func (p ContentionPolicy) String() string {
	switch p {
	case Block:
		return "block"
	case FailFast:
		return "fail_fast"
	default:
		return "unknown"
	}
}

// Option configures a collection.
type Option func(*options)

type options struct {
	policy ContentionPolicy
}

// WithPolicy sets the contention policy. The default is Block.
func WithPolicy(p ContentionPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// rwLock is the lock shared by Set and List.
//
// guards counts the Guards currently held. Plain reads (Len, Values,
// diffing) take the read lock too but are not guards: under FailFast a
// writer waits out those short reads and fails only while a Guard is held.
type rwLock struct {
	mu     sync.RWMutex
	policy ContentionPolicy
	guards atomic.Int32
}

// lockWrite acquires the write lock according to the policy.
func (l *rwLock) lockWrite() error {
	if l.policy != FailFast {
		l.mu.Lock()
		return nil
	}
	for !l.mu.TryLock() {
		if l.guards.Load() > 0 {
			return ErrContention
		}
		runtime.Gosched()
	}
	return nil
}

func (l *rwLock) unlockWrite() {
	l.mu.Unlock()
}

// lockGuard takes the read lock on behalf of a Guard and returns its
// release function.
func (l *rwLock) lockGuard() func() {
	l.mu.RLock()
	l.guards.Add(1)
	return func() {
		l.guards.Add(-1)
		l.mu.RUnlock()
	}
}

// Guard is a read view of a locked collection. The collection cannot be
// mutated until Release is called. A Guard must not be used from more than
// one goroutine.
type Guard[E any] struct {
	released atomic.Bool
	unlock   func()

	len      func() int
	all      func(yield func(E) bool)
	contains func(e E) bool
}

// All iterates over the elements. A released guard yields nothing.
func (g *Guard[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		if g.released.Load() {
			return
		}
		g.all(yield)
	}
}

// Len returns the number of elements, or 0 once released.
func (g *Guard[E]) Len() int {
	if g.released.Load() {
		return 0
	}
	return g.len()
}

// Contains reports whether e is an element. A released guard contains
// nothing.
func (g *Guard[E]) Contains(e E) bool {
	if g.released.Load() {
		return false
	}
	return g.contains(e)
}

// Release unlocks the collection. Calling it more than once is safe.
func (g *Guard[E]) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.unlock()
	}
}
