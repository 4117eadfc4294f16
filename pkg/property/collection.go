package property

import (
	"github.com/vango-dev/propagate/pkg/collections"
	"github.com/vango-dev/propagate/pkg/observe"
)

// SetProperty holds a *collections.Set.
//
// Replacing the set fires a change (by identity) and an element delta
// computed with collections.DiffSets. Mutating the current set fires that
// set's delta as a collection change of the property.
type SetProperty[E comparable] struct {
	core[*collections.Set[E], E]
	forward observe.CollectionListener[E]
}

// NewSetProperty creates a property holding initial, which may be nil.
func NewSetProperty[E comparable](initial *collections.Set[E], opts ...Option[*collections.Set[E]]) *SetProperty[E] {
	p := &SetProperty[E]{}
	p.Identity = observe.NewIdentity()
	p.forward = observe.OnCollectionChanged(p.contentChanged)
	p.nestedOnly = true
	p.content = setContent[E]{p}
	p.init(p, initial, applyOptions(opts), observe.Same[*collections.Set[E]], collections.DiffSets[E])
	return p
}

func (p *SetProperty[E]) contentChanged(src observe.Observable, d observe.Delta[E]) {
	cur := p.Value()
	if cur == nil || cur.ID() != src.ID() {
		return
	}
	p.subj.FireDelta(cur, d)
}

// AddCollectionListener registers l.
func (p *SetProperty[E]) AddCollectionListener(l observe.CollectionListener[E]) {
	p.subj.AddCollectionListener(l)
}

// RemoveCollectionListener unregisters l.
func (p *SetProperty[E]) RemoveCollectionListener(l observe.CollectionListener[E]) {
	p.subj.RemoveCollectionListener(l)
}

type setContent[E comparable] struct {
	p *SetProperty[E]
}

func (c setContent[E]) attach(s *collections.Set[E]) { s.AddCollectionListener(c.p.forward) }
func (c setContent[E]) detach(s *collections.Set[E]) { s.RemoveCollectionListener(c.p.forward) }

// ListProperty holds a *collections.List.
//
// Replacing the list fires a change (by identity) and one replace span
// covering both generations. Mutating the current list fires that list's
// delta as a collection change of the property.
type ListProperty[E any] struct {
	core[*collections.List[E], E]
	forward observe.CollectionListener[E]
}

// NewListProperty creates a property holding initial, which may be nil.
func NewListProperty[E any](initial *collections.List[E], opts ...Option[*collections.List[E]]) *ListProperty[E] {
	p := &ListProperty[E]{}
	p.Identity = observe.NewIdentity()
	p.forward = observe.OnCollectionChanged(p.contentChanged)
	p.nestedOnly = true
	p.content = listContent[E]{p}
	p.init(p, initial, applyOptions(opts), observe.Same[*collections.List[E]], collections.DiffLists[E])
	return p
}

func (p *ListProperty[E]) contentChanged(src observe.Observable, d observe.Delta[E]) {
	cur := p.Value()
	if cur == nil || cur.ID() != src.ID() {
		return
	}
	p.subj.FireDelta(cur, d)
}

// AddCollectionListener registers l.
func (p *ListProperty[E]) AddCollectionListener(l observe.CollectionListener[E]) {
	p.subj.AddCollectionListener(l)
}

// RemoveCollectionListener unregisters l.
func (p *ListProperty[E]) RemoveCollectionListener(l observe.CollectionListener[E]) {
	p.subj.RemoveCollectionListener(l)
}

type listContent[E any] struct {
	p *ListProperty[E]
}

func (c listContent[E]) attach(l *collections.List[E]) { l.AddCollectionListener(c.p.forward) }
func (c listContent[E]) detach(l *collections.List[E]) { l.RemoveCollectionListener(c.p.forward) }
