package observe

import "weak"

// The Weak* constructors bind a callback to an owner without keeping the
// owner alive. fn receives the owner on every call and must not capture it
// itself, otherwise the owner stays reachable through the listener.

type weakInvalidation[O any] struct {
	owner weak.Pointer[O]
	fn    func(o *O, src Observable)
}

// WeakInvalidation returns an InvalidationListener bound weakly to owner.
func WeakInvalidation[O any](owner *O, fn func(o *O, src Observable)) InvalidationListener {
	return &weakInvalidation[O]{owner: weak.Make(owner), fn: fn}
}

func (w *weakInvalidation[O]) Alive() bool { return w.owner.Value() != nil }

func (w *weakInvalidation[O]) Invalidated(src Observable) {
	if o := w.owner.Value(); o != nil {
		w.fn(o, src)
	}
}

type weakChange[O, T any] struct {
	owner weak.Pointer[O]
	fn    func(o *O, src Observable, old, new T)
}

// WeakChange returns a ChangeListener bound weakly to owner.
func WeakChange[O, T any](owner *O, fn func(o *O, src Observable, old, new T)) ChangeListener[T] {
	return &weakChange[O, T]{owner: weak.Make(owner), fn: fn}
}

func (w *weakChange[O, T]) Alive() bool { return w.owner.Value() != nil }

func (w *weakChange[O, T]) Changed(src Observable, old, new T) {
	if o := w.owner.Value(); o != nil {
		w.fn(o, src, old, new)
	}
}

type weakSubChange[O, T any] struct {
	owner weak.Pointer[O]
	fn    func(o *O, src Observable, old, new T, sub bool)
}

// WeakSubChange returns a SubChangeListener bound weakly to owner.
func WeakSubChange[O, T any](owner *O, fn func(o *O, src Observable, old, new T, sub bool)) SubChangeListener[T] {
	return &weakSubChange[O, T]{owner: weak.Make(owner), fn: fn}
}

func (w *weakSubChange[O, T]) Alive() bool { return w.owner.Value() != nil }

func (w *weakSubChange[O, T]) SubChanged(src Observable, old, new T, sub bool) {
	if o := w.owner.Value(); o != nil {
		w.fn(o, src, old, new, sub)
	}
}

type weakCollection[O, E any] struct {
	owner weak.Pointer[O]
	fn    func(o *O, src Observable, d Delta[E])
}

// WeakCollection returns a CollectionListener bound weakly to owner.
func WeakCollection[O, E any](owner *O, fn func(o *O, src Observable, d Delta[E])) CollectionListener[E] {
	return &weakCollection[O, E]{owner: weak.Make(owner), fn: fn}
}

func (w *weakCollection[O, E]) Alive() bool { return w.owner.Value() != nil }

func (w *weakCollection[O, E]) CollectionChanged(src Observable, d Delta[E]) {
	if o := w.owner.Value(); o != nil {
		w.fn(o, src, d)
	}
}
