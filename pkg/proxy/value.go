// Package proxy provides observables whose upstream source can be swapped
// at runtime without touching their listeners.
//
// A proxy never hands outer listeners to its peer. It registers its own
// forwarding listener on the peer, one per listener kind that has at least
// one outer registration, and moves those forwarders when the peer changes.
// Swapping the peer fires one change comparing the last value outer
// listeners saw with the new peer's value.
package proxy

import (
	"reflect"
	"sync"

	"github.com/vango-dev/propagate/pkg/observe"
	"github.com/vango-dev/propagate/pkg/property"
)

// link ties one listener kind of the proxy to the peer.
type link[T any] struct {
	kind observe.Kind

	// count returns the number of outer registrations of kind.
	count func() int
	// build creates the forwarder registered on the peer.
	build  func() any
	attach func(peer Source[T], fwd any)
	detach func(peer Source[T], fwd any)
	// swap fires kind's outer listeners for a peer swap.
	swap func(old, new T)

	// fwd is non-nil while kind has outer registrations.
	fwd any
}

// Option configures a proxy.
type Option[T any] func(*base[T])

// WithEqual sets the equality function that decides whether a peer swap is
// a change.
func WithEqual[T any](fn func(a, b T) bool) Option[T] {
	return func(v *base[T]) {
		v.equal = fn
	}
}

// WithFallback sets the value the proxy reports while it has no peer.
func WithFallback[T any](v T) Option[T] {
	return func(p *base[T]) {
		p.fallback = v
	}
}

// Source is a peer a proxy can point at.
type Source[T any] interface {
	property.Readable[T]
}

// base is the peer plumbing shared by Value and Set.
type base[T any] struct {
	observe.Identity

	invalidation    *observe.Subject[T, observe.None]
	subInvalidation *observe.Subject[T, observe.None]
	change          *observe.Subject[T, observe.None]
	subChange       *observe.Subject[T, observe.None]

	equal    func(a, b T) bool
	fallback T

	// mu protects peer, last and the forwarders of links.
	mu    sync.Mutex
	peer  Source[T]
	last  T
	links []*link[T]
}

// Value is an observable that mirrors whatever peer it is pointed at.
type Value[T any] struct {
	base[T]

	// path keeps the source of a Select alive as long as the proxy.
	path any
}

// New creates a proxy pointed at peer, which may be nil.
func New[T any](peer Source[T], opts ...Option[T]) *Value[T] {
	v := &Value[T]{}
	v.init(v, opts)
	v.SetPeer(peer)
	return v
}

// SetPeer points the proxy at peer, which may be nil. Forwarders move from
// the old peer to the new one, then outer listeners are notified once if
// the new peer's value differs from the last value they saw.
func (v *Value[T]) SetPeer(peer Source[T]) {
	if peer != nil && isNil(peer) {
		peer = nil
	}
	v.setPeer(peer)
}

func (v *base[T]) init(self observe.Observable, opts []Option[T]) {
	v.Identity = observe.NewIdentity()
	for _, opt := range opts {
		opt(v)
	}
	if v.equal == nil {
		v.equal = observe.Equal[T]
	}
	v.last = v.fallback

	v.invalidation = observe.NewSubject[T, observe.None](self, v.equal, nil)
	v.subInvalidation = observe.NewSubject[T, observe.None](self, v.equal, nil)
	v.change = observe.NewSubject[T, observe.None](self, v.equal, nil)
	v.subChange = observe.NewSubject[T, observe.None](self, v.equal, nil)

	v.links = []*link[T]{
		{
			kind:  observe.KindInvalidation,
			count: v.invalidation.Len,
			build: func() any { return observe.OnInvalidated(v.peerInvalidated) },
			attach: func(p Source[T], fwd any) {
				p.AddInvalidationListener(fwd.(observe.InvalidationListener))
			},
			detach: func(p Source[T], fwd any) {
				p.RemoveInvalidationListener(fwd.(observe.InvalidationListener))
			},
			swap: func(old, new T) { v.invalidation.FireInvalidation() },
		},
		{
			kind:  observe.KindSubInvalidation,
			count: v.subInvalidation.Len,
			build: func() any { return observe.OnSubInvalidated(v.peerSubInvalidated) },
			attach: func(p Source[T], fwd any) {
				p.AddSubInvalidationListener(fwd.(observe.SubInvalidationListener))
			},
			detach: func(p Source[T], fwd any) {
				p.RemoveSubInvalidationListener(fwd.(observe.SubInvalidationListener))
			},
			swap: func(old, new T) {
				v.subInvalidation.Fire(observe.Change[T, observe.None]{Kind: observe.ChangeInvalidation}, false)
			},
		},
		{
			kind:  observe.KindChange,
			count: v.change.Len,
			build: func() any { return observe.OnChanged(v.peerChanged) },
			attach: func(p Source[T], fwd any) {
				p.AddChangeListener(fwd.(observe.ChangeListener[T]))
			},
			detach: func(p Source[T], fwd any) {
				p.RemoveChangeListener(fwd.(observe.ChangeListener[T]))
			},
			swap: func(old, new T) { v.change.FireValue(old, new) },
		},
		{
			kind:  observe.KindSubChange,
			count: v.subChange.Len,
			build: func() any { return observe.OnSubChanged(v.peerSubChanged) },
			attach: func(p Source[T], fwd any) {
				p.AddSubChangeListener(fwd.(observe.SubChangeListener[T]))
			},
			detach: func(p Source[T], fwd any) {
				p.RemoveSubChangeListener(fwd.(observe.SubChangeListener[T]))
			},
			swap: func(old, new T) { v.subChange.FireValue(old, new) },
		},
	}
}

// Peer returns the current peer, or nil.
func (v *base[T]) Peer() Source[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.peer
}

// Value returns the peer's current value, or the fallback without a peer.
func (v *base[T]) Value() T {
	peer := v.Peer()
	if peer == nil {
		return v.fallback
	}
	return peer.Value()
}

func (v *base[T]) setPeer(peer Source[T]) {
	v.mu.Lock()
	old := v.last
	prev := v.peer
	for _, l := range v.links {
		if l.fwd == nil {
			continue
		}
		if prev != nil {
			l.detach(prev, l.fwd)
		}
		if peer != nil {
			l.attach(peer, l.fwd)
		}
	}
	v.peer = peer
	cur := v.fallback
	if peer != nil {
		cur = peer.Value()
	}
	v.last = cur
	links := v.links
	v.mu.Unlock()

	if v.equal(old, cur) {
		return
	}
	for _, l := range links {
		l.swap(old, cur)
	}
	v.settle()
}

// added ensures kind k has a forwarder on the peer.
func (v *base[T]) added(k observe.Kind) {
	v.mu.Lock()
	defer v.mu.Unlock()
	l := v.link(k)
	if l.fwd != nil {
		return
	}
	l.fwd = l.build()
	if v.peer != nil {
		l.attach(v.peer, l.fwd)
		v.last = v.peer.Value()
	}
}

// removed drops kind k's forwarder once its last outer listener is gone.
func (v *base[T]) removed(k observe.Kind) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.detachIdle(v.link(k))
}

// settle detaches the forwarders of kinds left without outer listeners.
// A pass prunes dead weak listeners without going through removed, so
// every forwarded pass ends here.
func (v *base[T]) settle() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, l := range v.links {
		v.detachIdle(l)
	}
}

// detachIdle must be called with mu held.
func (v *base[T]) detachIdle(l *link[T]) {
	if l.fwd == nil || l.count() > 0 {
		return
	}
	if v.peer != nil {
		l.detach(v.peer, l.fwd)
	}
	l.fwd = nil
}

func (v *base[T]) link(k observe.Kind) *link[T] {
	for _, l := range v.links {
		if l.kind == k {
			return l
		}
	}
	panic("proxy: no link for kind " + k.String())
}

// Forwarding reports whether kind k currently has a forwarder on the peer.
func (v *base[T]) Forwarding(k observe.Kind) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, l := range v.links {
		if l.kind == k {
			return l.fwd != nil
		}
	}
	return false
}

// fromPeer reports whether src is the current peer and records value as
// the last one seen.
func (v *base[T]) fromPeer(src observe.Observable, value func() T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.peer == nil || src.ID() != v.peer.ID() {
		return false
	}
	v.last = value()
	return true
}

func (v *base[T]) peerInvalidated(src observe.Observable) {
	if v.fromPeer(src, func() T { return v.peer.Value() }) {
		v.invalidation.FireInvalidation()
		v.settle()
	}
}

func (v *base[T]) peerSubInvalidated(src observe.Observable, sub bool) {
	if v.fromPeer(src, func() T { return v.peer.Value() }) {
		v.subInvalidation.Fire(observe.Change[T, observe.None]{Kind: observe.ChangeInvalidation}, sub)
		v.settle()
	}
}

func (v *base[T]) peerChanged(src observe.Observable, old, new T) {
	if v.fromPeer(src, func() T { return new }) {
		v.change.Fire(forwarded(old, new), false)
		v.settle()
	}
}

func (v *base[T]) peerSubChanged(src observe.Observable, old, new T, sub bool) {
	if v.fromPeer(src, func() T { return new }) {
		v.subChange.Fire(forwarded(old, new), sub)
		v.settle()
	}
}

// forwarded wraps a value the peer already decided to deliver. Collection
// changes are never suppressed, so a container peer's (c, c) notifications
// pass through the proxy's equality check.
func forwarded[T any](old, new T) observe.Change[T, observe.None] {
	return observe.Change[T, observe.None]{Kind: observe.ChangeCollection, Old: old, New: new}
}

// AddInvalidationListener registers l.
func (v *base[T]) AddInvalidationListener(l observe.InvalidationListener) {
	v.invalidation.AddInvalidationListener(l)
	v.added(observe.KindInvalidation)
}

// RemoveInvalidationListener unregisters l.
func (v *base[T]) RemoveInvalidationListener(l observe.InvalidationListener) {
	v.invalidation.RemoveInvalidationListener(l)
	v.removed(observe.KindInvalidation)
}

// AddSubInvalidationListener registers l.
func (v *base[T]) AddSubInvalidationListener(l observe.SubInvalidationListener) {
	v.subInvalidation.AddSubInvalidationListener(l)
	v.added(observe.KindSubInvalidation)
}

// RemoveSubInvalidationListener unregisters l.
func (v *base[T]) RemoveSubInvalidationListener(l observe.SubInvalidationListener) {
	v.subInvalidation.RemoveSubInvalidationListener(l)
	v.removed(observe.KindSubInvalidation)
}

// AddChangeListener registers l.
func (v *base[T]) AddChangeListener(l observe.ChangeListener[T]) {
	v.change.AddChangeListener(l)
	v.added(observe.KindChange)
}

// RemoveChangeListener unregisters l.
func (v *base[T]) RemoveChangeListener(l observe.ChangeListener[T]) {
	v.change.RemoveChangeListener(l)
	v.removed(observe.KindChange)
}

// AddSubChangeListener registers l.
func (v *base[T]) AddSubChangeListener(l observe.SubChangeListener[T]) {
	v.subChange.AddSubChangeListener(l)
	v.added(observe.KindSubChange)
}

// RemoveSubChangeListener unregisters l.
func (v *base[T]) RemoveSubChangeListener(l observe.SubChangeListener[T]) {
	v.subChange.RemoveSubChangeListener(l)
	v.removed(observe.KindSubChange)
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
