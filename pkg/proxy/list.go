package proxy

import (
	"slices"

	"github.com/vango-dev/propagate/pkg/collections"
	"github.com/vango-dev/propagate/pkg/observe"
)

// ListSource is a list-shaped peer, such as a *property.ListProperty.
type ListSource[E any] interface {
	Source[*collections.List[E]]
	AddCollectionListener(l observe.CollectionListener[E])
	RemoveCollectionListener(l observe.CollectionListener[E])
}

// List is a proxy over list-shaped peers. It forwards the peer's ordered
// deltas. A peer swap reports one span replacing the old list's elements
// with the new one's.
type List[E any] struct {
	base[*collections.List[E]]
	collection *observe.Subject[*collections.List[E], E]
}

// NewList creates a list proxy pointed at peer, which may be nil.
func NewList[E any](peer ListSource[E]) *List[E] {
	p := &List[E]{}
	p.init(p, []Option[*collections.List[E]]{WithEqual(observe.Same[*collections.List[E]])})
	p.collection = observe.NewSubject[*collections.List[E], E](p, observe.Same[*collections.List[E]], collections.DiffLists[E])

	l := &link[*collections.List[E]]{
		kind:  observe.KindCollection,
		count: p.collection.Len,
		build: func() any { return observe.OnCollectionChanged(p.peerCollectionChanged) },
		attach: func(src Source[*collections.List[E]], fwd any) {
			src.(ListSource[E]).AddCollectionListener(fwd.(observe.CollectionListener[E]))
		},
		detach: func(src Source[*collections.List[E]], fwd any) {
			src.(ListSource[E]).RemoveCollectionListener(fwd.(observe.CollectionListener[E]))
		},
		swap: func(old, new *collections.List[E]) { p.collection.FireValue(old, new) },
	}
	p.links = slices.Insert(p.links, 3, l)

	p.SetPeer(peer)
	return p
}

// SetPeer points the proxy at peer, which may be nil.
func (p *List[E]) SetPeer(peer ListSource[E]) {
	if peer == nil || isNil(peer) {
		p.setPeer(nil)
		return
	}
	p.setPeer(peer)
}

func (p *List[E]) peerCollectionChanged(src observe.Observable, d observe.Delta[E]) {
	var cur *collections.List[E]
	if p.fromPeer(src, func() *collections.List[E] {
		cur = p.peer.Value()
		return cur
	}) {
		p.collection.FireDelta(cur, d)
		p.settle()
	}
}

// AddCollectionListener registers l.
func (p *List[E]) AddCollectionListener(l observe.CollectionListener[E]) {
	p.collection.AddCollectionListener(l)
	p.added(observe.KindCollection)
}

// RemoveCollectionListener unregisters l.
func (p *List[E]) RemoveCollectionListener(l observe.CollectionListener[E]) {
	p.collection.RemoveCollectionListener(l)
	p.removed(observe.KindCollection)
}
