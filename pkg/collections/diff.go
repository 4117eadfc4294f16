package collections

import "github.com/vango-dev/propagate/pkg/observe"

// DiffSets returns the element delta from old to new: every element of old
// missing from new is removed, every element of new missing from old is
// added. A nil set counts as empty. Each set is read under its own lock;
// the two are never locked at the same time.
func DiffSets[E comparable](old, new *Set[E]) observe.Delta[E] {
	if old == new {
		return observe.Delta[E]{}
	}
	oldMembers := old.members()
	newMembers := new.members()

	var added, removed []E
	for e := range oldMembers {
		if _, ok := newMembers[e]; !ok {
			removed = append(removed, e)
		}
	}
	for e := range newMembers {
		if _, ok := oldMembers[e]; !ok {
			added = append(added, e)
		}
	}
	return observe.SetDelta(added, removed)
}

// DiffLists returns one replace span at index 0 that removes every element
// of old and adds every element of new. Lists are not diffed element by
// element: replacing a list is reported as a new generation.
func DiffLists[E any](old, new *List[E]) observe.Delta[E] {
	if old == new {
		return observe.Delta[E]{}
	}
	return observe.ListSpan(0, old.elements(), new.elements())
}
