package proxy

import (
	"slices"

	"github.com/vango-dev/propagate/pkg/collections"
	"github.com/vango-dev/propagate/pkg/observe"
)

// SetSource is a set-shaped peer, such as a *property.SetProperty.
type SetSource[E comparable] interface {
	Source[*collections.Set[E]]
	AddCollectionListener(l observe.CollectionListener[E])
	RemoveCollectionListener(l observe.CollectionListener[E])
}

// Set is a proxy over set-shaped peers. Besides the value kinds it forwards
// the peer's element deltas, and a peer swap reports the element diff of
// the two sets.
type Set[E comparable] struct {
	base[*collections.Set[E]]
	collection *observe.Subject[*collections.Set[E], E]
}

// NewSet creates a set proxy pointed at peer, which may be nil.
func NewSet[E comparable](peer SetSource[E]) *Set[E] {
	s := &Set[E]{}
	s.init(s, []Option[*collections.Set[E]]{WithEqual(observe.Same[*collections.Set[E]])})
	s.collection = observe.NewSubject[*collections.Set[E], E](s, observe.Same[*collections.Set[E]], collections.DiffSets[E])

	l := &link[*collections.Set[E]]{
		kind:  observe.KindCollection,
		count: s.collection.Len,
		build: func() any { return observe.OnCollectionChanged(s.peerCollectionChanged) },
		attach: func(p Source[*collections.Set[E]], fwd any) {
			p.(SetSource[E]).AddCollectionListener(fwd.(observe.CollectionListener[E]))
		},
		detach: func(p Source[*collections.Set[E]], fwd any) {
			p.(SetSource[E]).RemoveCollectionListener(fwd.(observe.CollectionListener[E]))
		},
		swap: func(old, new *collections.Set[E]) { s.collection.FireValue(old, new) },
	}
	// Notification order puts collection listeners before sub-change ones.
	s.links = slices.Insert(s.links, 3, l)

	s.SetPeer(peer)
	return s
}

// SetPeer points the proxy at peer, which may be nil.
func (s *Set[E]) SetPeer(peer SetSource[E]) {
	if peer == nil || isNil(peer) {
		s.setPeer(nil)
		return
	}
	s.setPeer(peer)
}

func (s *Set[E]) peerCollectionChanged(src observe.Observable, d observe.Delta[E]) {
	var cur *collections.Set[E]
	if s.fromPeer(src, func() *collections.Set[E] {
		cur = s.peer.Value()
		return cur
	}) {
		s.collection.FireDelta(cur, d)
		s.settle()
	}
}

// AddCollectionListener registers l.
func (s *Set[E]) AddCollectionListener(l observe.CollectionListener[E]) {
	s.collection.AddCollectionListener(l)
	s.added(observe.KindCollection)
}

// RemoveCollectionListener unregisters l.
func (s *Set[E]) RemoveCollectionListener(l observe.CollectionListener[E]) {
	s.collection.RemoveCollectionListener(l)
	s.removed(observe.KindCollection)
}
