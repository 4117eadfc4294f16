package property

import "github.com/vango-dev/propagate/pkg/observe"

// Property is an observable scalar value.
//
// Writes that do not change the value (per the property's equality
// function) fire nothing. If the value implements observe.SubObservable,
// its invalidations are re-fired as sub-changes of the property.
// Property is safe for concurrent use; callers that need a total order of
// writes must serialize them.
type Property[T any] struct {
	core[T, observe.None]
}

// New creates a property holding initial.
//
// Example:
//
//	name := property.New("untitled")
//	name.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new string) {
//	    log.Printf("renamed %q -> %q", old, new)
//	}))
//	_ = name.Set("report.txt")
func New[T any](initial T, opts ...Option[T]) *Property[T] {
	p := &Property[T]{}
	p.Identity = observe.NewIdentity()
	p.init(p, initial, applyOptions(opts), nil, nil)
	return p
}

// Update sets the value to fn(current). The read and the write are not
// atomic with respect to concurrent writers.
func (p *Property[T]) Update(fn func(T) T) error {
	return p.Set(fn(p.Value()))
}

// ReadOnly returns a view of p without the setter.
func (p *Property[T]) ReadOnly() *ReadOnly[T] {
	return &ReadOnly[T]{p: p}
}

// ReadOnly is a read-only view of a Property. It has the same identity as
// the property it views.
type ReadOnly[T any] struct {
	p *Property[T]
}

// ID returns the viewed property's identifier.
func (r *ReadOnly[T]) ID() uint64 { return r.p.ID() }

// Value returns the current value.
func (r *ReadOnly[T]) Value() T { return r.p.Value() }

// AddInvalidationListener registers l.
func (r *ReadOnly[T]) AddInvalidationListener(l observe.InvalidationListener) {
	r.p.AddInvalidationListener(l)
}

// RemoveInvalidationListener unregisters l.
func (r *ReadOnly[T]) RemoveInvalidationListener(l observe.InvalidationListener) {
	r.p.RemoveInvalidationListener(l)
}

// AddSubInvalidationListener registers l.
func (r *ReadOnly[T]) AddSubInvalidationListener(l observe.SubInvalidationListener) {
	r.p.AddSubInvalidationListener(l)
}

// RemoveSubInvalidationListener unregisters l.
func (r *ReadOnly[T]) RemoveSubInvalidationListener(l observe.SubInvalidationListener) {
	r.p.RemoveSubInvalidationListener(l)
}

// AddChangeListener registers l.
func (r *ReadOnly[T]) AddChangeListener(l observe.ChangeListener[T]) {
	r.p.AddChangeListener(l)
}

// RemoveChangeListener unregisters l.
func (r *ReadOnly[T]) RemoveChangeListener(l observe.ChangeListener[T]) {
	r.p.RemoveChangeListener(l)
}

// AddSubChangeListener registers l.
func (r *ReadOnly[T]) AddSubChangeListener(l observe.SubChangeListener[T]) {
	r.p.AddSubChangeListener(l)
}

// RemoveSubChangeListener unregisters l.
func (r *ReadOnly[T]) RemoveSubChangeListener(l observe.SubChangeListener[T]) {
	r.p.RemoveSubChangeListener(l)
}
