// Package binding keeps pairs of properties synchronized in both
// directions, and collections in step with one another.
//
// A link pushes every change of one endpoint through a converter into the
// other. While a push is in flight the link is owned by the pushing
// goroutine: the change the push causes on the target endpoint is an echo
// and is skipped, while any other change, including one arriving from
// another goroutine, is queued and the owner re-syncs from that endpoint
// before releasing the link. Writes
// racing on both endpoints therefore converge on one of the written values.
// When a push fails, the endpoint
// that changed is restored to its previous value; if that fails as well the
// link removes itself. Both outcomes are reported as a *SyncError to the
// fault sink and through Link.Err.
//
// Links hold their endpoints weakly. Once either endpoint is garbage
// collected the link unbinds itself.
//
// Content links make one Set or List mirror another by replaying its
// element deltas. They share Link, Unbind and IsBound with value links.
package binding

import (
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/vango-dev/propagate/pkg/observe"
	"github.com/vango-dev/propagate/pkg/property"
)

// pair is the unordered identity of a link.
type pair struct {
	lo, hi uint64
}

func pairOf(a, b uint64) pair {
	if a > b {
		a, b = b, a
	}
	return pair{lo: a, hi: b}
}

var (
	linksMu sync.Mutex
	links   = make(map[pair]*Link)
)

// Link is one bidirectional binding between two properties.
type Link struct {
	key pair

	unbound atomic.Bool

	// state guards owner and pending. owner is the goroutine pushing a
	// value across the link, 0 when idle.
	state   sync.Mutex
	owner   uint64
	pending func()

	// writing is the endpoint the owner is setting. Its changes on the
	// owner's goroutine are echoes.
	writing atomic.Uint64

	mu       sync.Mutex
	err      error
	detach   func()
	cleanups []runtime.Cleanup
}

// Bind links a and b. a is first set from b's current value through
// conv.FromB; from then on each change of either endpoint is pushed to the
// other.
func Bind[A, B any](a *property.Property[A], b *property.Property[B], conv Converter[A, B]) (*Link, error) {
	if a == nil || b == nil {
		return nil, ErrNilEndpoint
	}
	if a.ID() == b.ID() {
		return nil, ErrSelfBinding
	}
	if conv.ToB == nil || conv.FromB == nil {
		return nil, ErrNilConverter
	}

	key := pairOf(a.ID(), b.ID())
	linksMu.Lock()
	if _, ok := links[key]; ok {
		linksMu.Unlock()
		return nil, ErrAlreadyBound
	}
	l := &Link{key: key}
	links[key] = l
	linksMu.Unlock()

	initial, err := conv.FromB(b.Value())
	if err == nil {
		err = a.Set(initial)
	}
	if err != nil {
		l.unbound.Store(true)
		l.forget()
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unbound.Load() {
		return l, nil
	}

	wa, wb := weak.Make(a), weak.Make(b)
	toB := &side[A, B]{link: l, self: wa, other: wb, convert: conv.ToB}
	toA := &side[B, A]{link: l, self: wb, other: wa, convert: conv.FromB}

	a.AddChangeListener(toB)
	b.AddChangeListener(toA)
	a.AdjustLinks(1)
	b.AdjustLinks(1)

	l.detach = func() {
		if pa := wa.Value(); pa != nil {
			pa.RemoveChangeListener(toB)
			pa.AdjustLinks(-1)
		}
		if pb := wb.Value(); pb != nil {
			pb.RemoveChangeListener(toA)
			pb.AdjustLinks(-1)
		}
	}
	l.cleanups = []runtime.Cleanup{
		runtime.AddCleanup(a, (*Link).Unbind, l),
		runtime.AddCleanup(b, (*Link).Unbind, l),
	}
	return l, nil
}

// BindBidirectional links two properties of the same type.
func BindBidirectional[T any](a, b *property.Property[T]) (*Link, error) {
	return Bind(a, b, Identity[T]())
}

// Unbind removes the link between a and b, in either order. It is a no-op
// if they are not linked.
func Unbind(a, b observe.Observable) {
	if isNil(a) || isNil(b) {
		return
	}
	linksMu.Lock()
	l := links[pairOf(a.ID(), b.ID())]
	linksMu.Unlock()
	if l != nil {
		l.Unbind()
	}
}

// IsBound reports whether a and b are linked.
func IsBound(a, b observe.Observable) bool {
	if isNil(a) || isNil(b) {
		return false
	}
	linksMu.Lock()
	defer linksMu.Unlock()
	_, ok := links[pairOf(a.ID(), b.ID())]
	return ok
}

// Unbind removes the link. Calling it again does nothing.
func (l *Link) Unbind() {
	if !l.unbound.CompareAndSwap(false, true) {
		return
	}
	l.mu.Lock()
	detach, cleanups := l.detach, l.cleanups
	l.detach, l.cleanups = nil, nil
	l.mu.Unlock()

	for _, c := range cleanups {
		c.Stop()
	}
	if detach != nil {
		detach()
	}
	l.forget()
}

func (l *Link) forget() {
	linksMu.Lock()
	if links[l.key] == l {
		delete(links, l.key)
	}
	linksMu.Unlock()
}

// Bound reports whether the link is still active.
func (l *Link) Bound() bool {
	return !l.unbound.Load()
}

// Err returns the last *SyncError, or *ContentError for a content link,
// reported by the link, or nil.
func (l *Link) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Equal reports whether l and o link the same pair of observables.
func (l *Link) Equal(o *Link) bool {
	return o != nil && l.key == o.key
}

func (l *Link) fail(err *SyncError) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
	observe.ReportFault(err)
}

// side is the change listener a link registers on one endpoint. It pushes
// that endpoint's changes to the other one.
type side[S, O any] struct {
	link    *Link
	self    weak.Pointer[property.Property[S]]
	other   weak.Pointer[property.Property[O]]
	convert func(S) (O, error)
}

func (s *side[S, O]) Alive() bool {
	return s.self.Value() != nil && s.other.Value() != nil
}

func (s *side[S, O]) Changed(src observe.Observable, old, _ S) {
	l := s.link
	if !l.Bound() {
		return
	}
	run := func() { s.sync(old) }
	if !l.acquire(src.ID(), run) {
		return
	}
	run()
	l.drain()
}

// acquire makes the calling goroutine the link's owner. It returns false if
// the link is busy. A change of the endpoint the owner is writing, on the
// owner's goroutine, is an echo and is dropped; any other change is queued
// as resync for the owner to run before it releases the link.
func (l *Link) acquire(src uint64, resync func()) bool {
	gid := observe.GoroutineID()
	l.state.Lock()
	defer l.state.Unlock()
	if l.owner != 0 {
		if l.owner != gid || l.writing.Load() != src {
			l.pending = resync
		}
		return false
	}
	l.owner = gid
	return true
}

// drain runs queued resyncs until none are left, then releases the link.
func (l *Link) drain() {
	for {
		l.state.Lock()
		next := l.pending
		l.pending = nil
		if next == nil || !l.Bound() {
			l.owner = 0
			l.state.Unlock()
			return
		}
		l.state.Unlock()
		next()
	}
}

// sync pushes the endpoint's current value, which may be newer than the
// change that triggered it when another goroutine wrote in between. On
// failure the endpoint is restored to old.
func (s *side[S, O]) sync(old S) {
	l := s.link
	self, other := s.self.Value(), s.other.Value()
	if self == nil || other == nil {
		l.Unbind()
		return
	}

	defer l.writing.Store(0)

	v, err := s.convert(self.Value())
	if err == nil {
		l.writing.Store(other.ID())
		err = other.Set(v)
	}
	if err == nil {
		return
	}

	l.writing.Store(self.ID())
	if rerr := self.Set(old); rerr != nil {
		l.Unbind()
		l.fail(&SyncError{Err: err, RollbackErr: rerr})
		return
	}
	l.fail(&SyncError{Err: err})
}

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
