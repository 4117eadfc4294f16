package observe

// Observable is anything that can be subscribed to. Identity matters more
// than value: two observables holding equal values are still distinct.
type Observable interface {
	ID() uint64
}

// InvalidationListener is told that src changed, without a value.
type InvalidationListener interface {
	Invalidated(src Observable)
}

// SubInvalidationListener is told that src changed. sub is true when the
// change came from a value contained in src rather than from src itself.
type SubInvalidationListener interface {
	SubInvalidated(src Observable, sub bool)
}

// ChangeListener receives the old and new value of a real change.
type ChangeListener[T any] interface {
	Changed(src Observable, old, new T)
}

// SubChangeListener receives old and new values, including sub-changes
// where old and new may be equal.
type SubChangeListener[T any] interface {
	SubChanged(src Observable, old, new T, sub bool)
}

// CollectionListener receives structural deltas of a collection.
type CollectionListener[E any] interface {
	CollectionChanged(src Observable, d Delta[E])
}

// SubObservable is implemented by values that report changes of their own
// contents. Owners holding such a value re-fire those reports as
// sub-changes.
type SubObservable interface {
	AddSubInvalidationListener(l SubInvalidationListener)
	RemoveSubInvalidationListener(l SubInvalidationListener)
}

// Equaler lets a listener define structural equality for removal. Without
// it listeners are compared with ==.
type Equaler interface {
	ListenerEqual(other any) bool
}

// Weak is implemented by listeners that do not keep their logical owner
// alive. Once Alive returns false the listener is never invoked again and
// is dropped from the registry during the next pass.
type Weak interface {
	Alive() bool
}

// sameListener reports whether a and b identify the same registration.
func sameListener(a, b any) (same bool) {
	if e, ok := a.(Equaler); ok {
		return e.ListenerEqual(b)
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// isDead reports whether l is a weak listener whose owner is gone.
func isDead(l any) bool {
	w, ok := l.(Weak)
	return ok && !w.Alive()
}

// =============================================================================
// Function adapters
// =============================================================================

// Each adapter returns a pointer so the listener has an identity that can
// be removed later.

type invalidationFunc struct {
	fn func(src Observable)
}

func (f *invalidationFunc) Invalidated(src Observable) { f.fn(src) }

// OnInvalidated adapts fn into an InvalidationListener.
func OnInvalidated(fn func(src Observable)) InvalidationListener {
	return &invalidationFunc{fn: fn}
}

type subInvalidationFunc struct {
	fn func(src Observable, sub bool)
}

func (f *subInvalidationFunc) SubInvalidated(src Observable, sub bool) { f.fn(src, sub) }

// OnSubInvalidated adapts fn into a SubInvalidationListener.
func OnSubInvalidated(fn func(src Observable, sub bool)) SubInvalidationListener {
	return &subInvalidationFunc{fn: fn}
}

type changeFunc[T any] struct {
	fn func(src Observable, old, new T)
}

func (f *changeFunc[T]) Changed(src Observable, old, new T) { f.fn(src, old, new) }

// OnChanged adapts fn into a ChangeListener.
func OnChanged[T any](fn func(src Observable, old, new T)) ChangeListener[T] {
	return &changeFunc[T]{fn: fn}
}

type subChangeFunc[T any] struct {
	fn func(src Observable, old, new T, sub bool)
}

func (f *subChangeFunc[T]) SubChanged(src Observable, old, new T, sub bool) { f.fn(src, old, new, sub) }

// OnSubChanged adapts fn into a SubChangeListener.
func OnSubChanged[T any](fn func(src Observable, old, new T, sub bool)) SubChangeListener[T] {
	return &subChangeFunc[T]{fn: fn}
}

type collectionFunc[E any] struct {
	fn func(src Observable, d Delta[E])
}

func (f *collectionFunc[E]) CollectionChanged(src Observable, d Delta[E]) { f.fn(src, d) }

// OnCollectionChanged adapts fn into a CollectionListener.
func OnCollectionChanged[E any](fn func(src Observable, d Delta[E])) CollectionListener[E] {
	return &collectionFunc[E]{fn: fn}
}
