package proxy

import (
	"sync/atomic"

	"github.com/vango-dev/propagate/pkg/observe"
)

// Select returns a proxy that follows the observable sel picks out of
// src's value, re-picking on every change of src. A nil pick leaves the
// proxy without a peer, so it reports the fallback from opts. The result is
// itself a Source, which makes selections chain into paths:
//
//	owner := proxy.Select(doc, func(d *Doc) proxy.Source[*User] { return d.Owner })
//	name := proxy.Select(owner, func(u *User) proxy.Source[string] { return u.Name })
//
// The proxy keeps src alive, while src holds the proxy only weakly: a path
// that is no longer referenced stops following.
func Select[T, U any](src Source[T], sel func(T) Source[U], opts ...Option[U]) *Value[U] {
	v := New[U](nil, opts...)
	if src == nil || isNil(src) {
		return v
	}
	f := &follower[T, U]{src: src, sel: sel}
	v.path = f
	src.AddChangeListener(observe.WeakChange(v, func(v *Value[U], _ observe.Observable, _, _ T) {
		f.follow(v)
	}))
	f.follow(v)
	return v
}

// follower repoints a selection proxy. Picks are serialized and always read
// the source's current value, so racing changes settle on the newest one.
type follower[T, U any] struct {
	src   Source[T]
	sel   func(T) Source[U]
	busy  atomic.Bool
	dirty atomic.Bool
}

func (f *follower[T, U]) follow(v *Value[U]) {
	f.dirty.Store(true)
	for f.dirty.Load() {
		// A pick in progress, possibly further up this goroutine's stack,
		// sees dirty and picks again.
		if !f.busy.CompareAndSwap(false, true) {
			return
		}
		for f.dirty.Swap(false) {
			v.SetPeer(f.sel(f.src.Value()))
		}
		f.busy.Store(false)
	}
}
