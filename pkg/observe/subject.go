package observe

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DebugMode enables debug logging of every notification pass.
// This should be set at startup and not changed during runtime.
var DebugMode bool

var debugLogger atomic.Pointer[slog.Logger]

// SetLogger sets the logger debug passes are written to and returns the
// previous one. nil means slog.Default().
func SetLogger(l *slog.Logger) *slog.Logger {
	return debugLogger.Swap(l)
}

func logger() *slog.Logger {
	if l := debugLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Subject owns the listener registry of one observable and fires its
// changes.
//
// T is the value type; E is the element type of collection-shaped
// observables (None otherwise). All methods are safe for concurrent use.
// Listeners run synchronously on the goroutine that fires.
type Subject[T, E any] struct {
	src   Observable
	equal func(a, b T) bool
	diff  func(old, new T) Delta[E]

	// mu serializes registry mutations and snapshot bookkeeping. It is
	// never held while a listener runs.
	mu  sync.Mutex
	reg atomic.Pointer[Registry]
}

// NewSubject creates a subject firing on behalf of src.
//
// equal decides whether a value change is real; nil means Equal. diff
// derives a collection delta when a whole container is replaced; nil means
// collection listeners only hear incremental deltas.
func NewSubject[T, E any](src Observable, equal func(a, b T) bool, diff func(old, new T) Delta[E]) *Subject[T, E] {
	if src == nil {
		panic(ErrNilObservable)
	}
	if equal == nil {
		equal = Equal[T]
	}
	return &Subject[T, E]{src: src, equal: equal, diff: diff}
}

// Source returns the observable the subject fires for.
func (s *Subject[T, E]) Source() Observable {
	return s.src
}

// Registry returns the currently published registry. The returned value
// must be treated as read-only.
func (s *Subject[T, E]) Registry() *Registry {
	return s.reg.Load()
}

// State reports the storage shape of the registry.
func (s *Subject[T, E]) State() State {
	return s.reg.Load().State()
}

// Len returns the number of registered listeners.
func (s *Subject[T, E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Load().Len()
}

// Count returns the number of registered listeners of one kind.
func (s *Subject[T, E]) Count(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Load().Count(kind)
}

// Contains reports whether l is registered as kind.
func (s *Subject[T, E]) Contains(kind Kind, l any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Load().Contains(kind, l)
}

// Listeners returns a copy of the listeners registered as kind.
func (s *Subject[T, E]) Listeners(kind Kind) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Load().Listeners(kind)
}

func (s *Subject[T, E]) add(kind Kind, l any) {
	if l == nil {
		panic(ErrNilListener)
	}
	s.mu.Lock()
	s.reg.Store(s.reg.Load().Add(kind, l))
	s.mu.Unlock()
}

func (s *Subject[T, E]) remove(kind Kind, l any) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.reg.Store(s.reg.Load().Remove(kind, l))
	s.mu.Unlock()
}

// AddInvalidationListener registers l. It panics if l is nil.
func (s *Subject[T, E]) AddInvalidationListener(l InvalidationListener) {
	s.add(KindInvalidation, l)
}

// RemoveInvalidationListener unregisters the first registration equal to l.
func (s *Subject[T, E]) RemoveInvalidationListener(l InvalidationListener) {
	s.remove(KindInvalidation, l)
}

// AddSubInvalidationListener registers l. It panics if l is nil.
func (s *Subject[T, E]) AddSubInvalidationListener(l SubInvalidationListener) {
	s.add(KindSubInvalidation, l)
}

// RemoveSubInvalidationListener unregisters the first registration equal to l.
func (s *Subject[T, E]) RemoveSubInvalidationListener(l SubInvalidationListener) {
	s.remove(KindSubInvalidation, l)
}

// AddChangeListener registers l. It panics if l is nil.
func (s *Subject[T, E]) AddChangeListener(l ChangeListener[T]) {
	s.add(KindChange, l)
}

// RemoveChangeListener unregisters the first registration equal to l.
func (s *Subject[T, E]) RemoveChangeListener(l ChangeListener[T]) {
	s.remove(KindChange, l)
}

// AddSubChangeListener registers l. It panics if l is nil.
func (s *Subject[T, E]) AddSubChangeListener(l SubChangeListener[T]) {
	s.add(KindSubChange, l)
}

// RemoveSubChangeListener unregisters the first registration equal to l.
func (s *Subject[T, E]) RemoveSubChangeListener(l SubChangeListener[T]) {
	s.remove(KindSubChange, l)
}

// AddCollectionListener registers l. It panics if l is nil.
func (s *Subject[T, E]) AddCollectionListener(l CollectionListener[E]) {
	s.add(KindCollection, l)
}

// RemoveCollectionListener unregisters the first registration equal to l.
func (s *Subject[T, E]) RemoveCollectionListener(l CollectionListener[E]) {
	s.remove(KindCollection, l)
}

// FireInvalidation notifies invalidation and sub-invalidation listeners
// that something changed.
func (s *Subject[T, E]) FireInvalidation() {
	s.Fire(Change[T, E]{Kind: ChangeInvalidation}, false)
}

// FireValue notifies that the value went from old to new.
func (s *Subject[T, E]) FireValue(old, new T) {
	s.Fire(Change[T, E]{Kind: ChangeValue, Old: old, New: new}, false)
}

// FireSub notifies that something contained in value changed.
func (s *Subject[T, E]) FireSub(value T) {
	s.Fire(Change[T, E]{Kind: ChangeValue, Old: value, New: value}, true)
}

// FireDelta notifies an incremental mutation of container.
func (s *Subject[T, E]) FireDelta(container T, d Delta[E]) {
	if d.Empty() {
		return
	}
	s.Fire(Change[T, E]{Kind: ChangeCollection, Old: container, New: container, Delta: d}, false)
}

// Fire runs one notification pass for c.
func (s *Subject[T, E]) Fire(c Change[T, E], sub bool) {
	s.mu.Lock()
	r := s.reg.Load()
	if r == nil {
		s.mu.Unlock()
		return
	}
	snap := r.acquire()
	s.mu.Unlock()

	dead := s.dispatch(&snap, c, sub)

	s.mu.Lock()
	snap.release()
	cur := s.reg.Load()
	if cur != nil {
		if dead > 0 {
			cur.stale = true
		}
		if cur.stale && cur.locked == 0 {
			s.reg.Store(cur.prune())
		}
	}
	s.mu.Unlock()
}

// dispatch invokes the snapshot's listeners in kind order and returns the
// number of dead weak listeners it skipped.
func (s *Subject[T, E]) dispatch(snap *snapshot, c Change[T, E], sub bool) (dead int) {
	m := currentMetrics()
	if m != nil {
		start := time.Now()
		defer func() { m.observePass(time.Since(start)) }()
	}
	if DebugMode {
		logger().Debug("propagate: pass", "source", s.src.ID(), "change", c.Kind, "sub", sub)
	}

	src := s.src

	if !sub {
		for _, l := range snap.listeners(KindInvalidation) {
			if isDead(l) {
				dead++
				continue
			}
			invokeInvalidation(l, src)
		}
	}

	for _, l := range snap.listeners(KindSubInvalidation) {
		if isDead(l) {
			dead++
			continue
		}
		invokeSubInvalidation(l, src, sub)
	}

	if c.Kind == ChangeInvalidation {
		return dead
	}

	changed := c.Kind == ChangeCollection || !s.equal(c.Old, c.New)
	if !sub && !changed {
		return dead
	}

	if !sub {
		for _, l := range snap.listeners(KindChange) {
			if isDead(l) {
				dead++
				continue
			}
			invokeChange(l, src, c.Old, c.New)
		}

		if snap.has(KindCollection) {
			d, ok := s.delta(c)
			if ok {
				for _, l := range snap.listeners(KindCollection) {
					if isDead(l) {
						dead++
						continue
					}
					invokeCollection(l, src, d)
				}
			}
		}
	}

	for _, l := range snap.listeners(KindSubChange) {
		if isDead(l) {
			dead++
			continue
		}
		invokeSubChange(l, src, c.Old, c.New, sub)
	}
	return dead
}

// delta returns the structural delta carried by c, deriving it with the
// subject's differ for whole-container swaps.
func (s *Subject[T, E]) delta(c Change[T, E]) (Delta[E], bool) {
	if c.Kind == ChangeCollection {
		return c.Delta, !c.Delta.Empty()
	}
	if s.diff == nil {
		return Delta[E]{}, false
	}
	d := s.diff(c.Old, c.New)
	return d, !d.Empty()
}

func invokeInvalidation(l any, src Observable) {
	defer recoverListener(KindInvalidation, l)
	recordInvocation(KindInvalidation)
	il, ok := l.(InvalidationListener)
	if !ok {
		reportMismatch(KindInvalidation, l)
		return
	}
	il.Invalidated(src)
}

func invokeSubInvalidation(l any, src Observable, sub bool) {
	defer recoverListener(KindSubInvalidation, l)
	recordInvocation(KindSubInvalidation)
	sl, ok := l.(SubInvalidationListener)
	if !ok {
		reportMismatch(KindSubInvalidation, l)
		return
	}
	sl.SubInvalidated(src, sub)
}

func invokeChange[T any](l any, src Observable, old, new T) {
	defer recoverListener(KindChange, l)
	recordInvocation(KindChange)
	cl, ok := l.(ChangeListener[T])
	if !ok {
		reportMismatch(KindChange, l)
		return
	}
	cl.Changed(src, old, new)
}

func invokeCollection[E any](l any, src Observable, d Delta[E]) {
	defer recoverListener(KindCollection, l)
	recordInvocation(KindCollection)
	cl, ok := l.(CollectionListener[E])
	if !ok {
		reportMismatch(KindCollection, l)
		return
	}
	cl.CollectionChanged(src, d)
}

func invokeSubChange[T any](l any, src Observable, old, new T, sub bool) {
	defer recoverListener(KindSubChange, l)
	recordInvocation(KindSubChange)
	sl, ok := l.(SubChangeListener[T])
	if !ok {
		reportMismatch(KindSubChange, l)
		return
	}
	sl.SubChanged(src, old, new, sub)
}
