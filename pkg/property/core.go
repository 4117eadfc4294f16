package property

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/propagate/pkg/observe"
)

// Readable is an observable value that can be read and listened to.
// Property, ReadOnly, SetProperty and ListProperty implement it.
type Readable[T any] interface {
	observe.Observable
	Value() T

	AddInvalidationListener(l observe.InvalidationListener)
	RemoveInvalidationListener(l observe.InvalidationListener)
	AddSubInvalidationListener(l observe.SubInvalidationListener)
	RemoveSubInvalidationListener(l observe.SubInvalidationListener)
	AddChangeListener(l observe.ChangeListener[T])
	RemoveChangeListener(l observe.ChangeListener[T])
	AddSubChangeListener(l observe.SubChangeListener[T])
	RemoveSubChangeListener(l observe.SubChangeListener[T])
}

// content moves a container property's listeners between containers.
type content[T any] interface {
	attach(v T)
	detach(v T)
}

// core is the state shared by every property kind.
type core[T, E any] struct {
	observe.Identity
	subj *observe.Subject[T, E]

	// mu protects value, bound and the listeners attached to value.
	mu        sync.RWMutex
	value     T
	equal     func(a, b T) bool
	validator func(v T) error

	// watcher is registered on values implementing observe.SubObservable.
	watcher observe.SubInvalidationListener
	// nestedOnly ignores the value's own (non-sub) invalidations; container
	// properties get those through content instead.
	nestedOnly bool
	content    content[T]

	bound    Readable[T]
	follower observe.ChangeListener[T]

	links atomic.Int32
}

func (c *core[T, E]) init(self observe.Observable, initial T, o options[T], equal func(a, b T) bool, diff func(old, new T) observe.Delta[E]) {
	if o.equal != nil {
		equal = o.equal
	}
	if equal == nil {
		equal = observe.Equal[T]
	}
	c.equal = equal
	c.validator = o.validator
	c.subj = observe.NewSubject[T, E](self, equal, diff)
	c.watcher = observe.OnSubInvalidated(c.subInvalidated)
	c.follower = observe.OnChanged(c.followed)
	c.value = initial
	c.attach(initial)
}

// Value returns the current value.
func (c *core[T, E]) Value() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set stores v and fires a change if v differs from the current value.
// It returns ErrBound while the property follows another observable, and
// the validator's error if v is rejected.
func (c *core[T, E]) Set(v T) error {
	c.mu.RLock()
	bound := c.bound != nil
	c.mu.RUnlock()
	if bound {
		return ErrBound
	}
	return c.set(v)
}

func (c *core[T, E]) set(v T) error {
	if c.validator != nil {
		if err := c.validator(v); err != nil {
			return err
		}
	}

	c.mu.Lock()
	old := c.value
	if c.equal(old, v) {
		c.mu.Unlock()
		return nil
	}
	c.value = v
	c.detach(old)
	c.attach(v)
	c.mu.Unlock()

	c.subj.FireValue(old, v)
	return nil
}

// FireSubChange reports that something inside the current value changed.
// Sub-invalidation and sub-change listeners are notified even though the
// value itself is the same.
func (c *core[T, E]) FireSubChange() {
	c.subj.FireSub(c.Value())
}

func (c *core[T, E]) subInvalidated(src observe.Observable, sub bool) {
	if c.nestedOnly && !sub {
		return
	}
	c.subj.FireSub(c.Value())
}

// attach and detach run with mu held. They only touch registries, never
// user code.
func (c *core[T, E]) attach(v T) {
	if isNil(v) {
		return
	}
	if so, ok := any(v).(observe.SubObservable); ok {
		so.AddSubInvalidationListener(c.watcher)
	}
	if c.content != nil {
		c.content.attach(v)
	}
}

func (c *core[T, E]) detach(v T) {
	if isNil(v) {
		return
	}
	if so, ok := any(v).(observe.SubObservable); ok {
		so.RemoveSubInvalidationListener(c.watcher)
	}
	if c.content != nil {
		c.content.detach(v)
	}
}

// Bind makes the property follow src: it takes src's value now and on every
// change until Unbind. While bound, Set returns ErrBound.
func (c *core[T, E]) Bind(src Readable[T]) error {
	if src == nil || isNil(src) {
		return ErrNilSource
	}
	if src.ID() == c.ID() {
		return ErrSelfBound
	}

	c.mu.Lock()
	prev := c.bound
	c.bound = src
	c.mu.Unlock()

	if prev != nil {
		prev.RemoveChangeListener(c.follower)
	}
	src.AddChangeListener(c.follower)
	return c.set(src.Value())
}

// Unbind stops following. Calling it on an unbound property is a no-op.
func (c *core[T, E]) Unbind() {
	c.mu.Lock()
	prev := c.bound
	c.bound = nil
	c.mu.Unlock()

	if prev != nil {
		prev.RemoveChangeListener(c.follower)
	}
}

// IsBound reports whether the property follows another observable.
func (c *core[T, E]) IsBound() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bound != nil
}

func (c *core[T, E]) followed(src observe.Observable, old, new T) {
	if err := c.set(new); err != nil {
		observe.ReportFault(err)
	}
}

// HasBidirectionalLinks reports whether the property is an endpoint of at
// least one bidirectional link.
func (c *core[T, E]) HasBidirectionalLinks() bool {
	return c.links.Load() > 0
}

// AdjustLinks changes the bidirectional link count. It is called by package
// binding.
func (c *core[T, E]) AdjustLinks(delta int) {
	c.links.Add(int32(delta))
}

// AddInvalidationListener registers l.
func (c *core[T, E]) AddInvalidationListener(l observe.InvalidationListener) {
	c.subj.AddInvalidationListener(l)
}

// RemoveInvalidationListener unregisters l.
func (c *core[T, E]) RemoveInvalidationListener(l observe.InvalidationListener) {
	c.subj.RemoveInvalidationListener(l)
}

// AddSubInvalidationListener registers l.
func (c *core[T, E]) AddSubInvalidationListener(l observe.SubInvalidationListener) {
	c.subj.AddSubInvalidationListener(l)
}

// RemoveSubInvalidationListener unregisters l.
func (c *core[T, E]) RemoveSubInvalidationListener(l observe.SubInvalidationListener) {
	c.subj.RemoveSubInvalidationListener(l)
}

// AddChangeListener registers l.
func (c *core[T, E]) AddChangeListener(l observe.ChangeListener[T]) {
	c.subj.AddChangeListener(l)
}

// RemoveChangeListener unregisters l.
func (c *core[T, E]) RemoveChangeListener(l observe.ChangeListener[T]) {
	c.subj.RemoveChangeListener(l)
}

// AddSubChangeListener registers l.
func (c *core[T, E]) AddSubChangeListener(l observe.SubChangeListener[T]) {
	c.subj.AddSubChangeListener(l)
}

// RemoveSubChangeListener unregisters l.
func (c *core[T, E]) RemoveSubChangeListener(l observe.SubChangeListener[T]) {
	c.subj.RemoveSubChangeListener(l)
}

// ListenerCount returns the number of registered listeners.
func (c *core[T, E]) ListenerCount() int {
	return c.subj.Len()
}

// isNil reports whether v is nil or a typed nil pointer, map, slice, func,
// channel or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
