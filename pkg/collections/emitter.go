package collections

import "github.com/vango-dev/propagate/pkg/observe"

// emitter exposes the listener surface of a collection C with elements E.
type emitter[C comparable, E any] struct {
	subj *observe.Subject[C, E]
}

func newEmitter[C comparable, E any](src observe.Observable) emitter[C, E] {
	return emitter[C, E]{subj: observe.NewSubject[C, E](src, observe.Same[C], nil)}
}

// AddInvalidationListener registers l.
func (e emitter[C, E]) AddInvalidationListener(l observe.InvalidationListener) {
	e.subj.AddInvalidationListener(l)
}

// RemoveInvalidationListener unregisters l.
func (e emitter[C, E]) RemoveInvalidationListener(l observe.InvalidationListener) {
	e.subj.RemoveInvalidationListener(l)
}

// AddSubInvalidationListener registers l. Owners holding the collection use
// it to re-fire content changes as sub-changes.
func (e emitter[C, E]) AddSubInvalidationListener(l observe.SubInvalidationListener) {
	e.subj.AddSubInvalidationListener(l)
}

// RemoveSubInvalidationListener unregisters l.
func (e emitter[C, E]) RemoveSubInvalidationListener(l observe.SubInvalidationListener) {
	e.subj.RemoveSubInvalidationListener(l)
}

// AddCollectionListener registers l.
func (e emitter[C, E]) AddCollectionListener(l observe.CollectionListener[E]) {
	e.subj.AddCollectionListener(l)
}

// RemoveCollectionListener unregisters l.
func (e emitter[C, E]) RemoveCollectionListener(l observe.CollectionListener[E]) {
	e.subj.RemoveCollectionListener(l)
}

// ListenerCount returns the number of registered listeners.
func (e emitter[C, E]) ListenerCount() int {
	return e.subj.Len()
}
