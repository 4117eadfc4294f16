package collections

import (
	"maps"
	"slices"

	"github.com/vango-dev/propagate/pkg/observe"
)

// Set is an observable unordered collection of distinct elements.
//
// Set is safe for concurrent use. Every mutation that changes membership
// fires one delta listing the elements added or removed; the lock is
// released before listeners run.
type Set[E comparable] struct {
	observe.Identity
	emitter[*Set[E], E]

	lock  rwLock
	items map[E]struct{}
}

// NewSet creates an empty set.
func NewSet[E comparable](opts ...Option) *Set[E] {
	o := buildOptions(opts)
	s := &Set[E]{
		Identity: observe.NewIdentity(),
		lock:     rwLock{policy: o.policy},
		items:    make(map[E]struct{}),
	}
	s.emitter = newEmitter[*Set[E], E](s)
	return s
}

// SetOf creates a set holding elems.
func SetOf[E comparable](elems ...E) *Set[E] {
	return SetFrom(elems)
}

// SetFrom creates a set holding elems, configured by opts.
func SetFrom[E comparable](elems []E, opts ...Option) *Set[E] {
	s := NewSet[E](opts...)
	for _, e := range elems {
		s.items[e] = struct{}{}
	}
	return s
}

// Policy returns the set's contention policy.
func (s *Set[E]) Policy() ContentionPolicy {
	return s.lock.policy
}

// Add inserts elems and reports the ones that were not yet present.
func (s *Set[E]) Add(elems ...E) error {
	if err := s.lock.lockWrite(); err != nil {
		return err
	}
	var added []E
	for _, e := range elems {
		if _, ok := s.items[e]; ok {
			continue
		}
		s.items[e] = struct{}{}
		added = append(added, e)
	}
	s.lock.unlockWrite()

	s.subj.FireDelta(s, observe.SetDelta(added, nil))
	return nil
}

// Remove deletes elems and reports the ones that were present.
func (s *Set[E]) Remove(elems ...E) error {
	if err := s.lock.lockWrite(); err != nil {
		return err
	}
	var removed []E
	for _, e := range elems {
		if _, ok := s.items[e]; !ok {
			continue
		}
		delete(s.items, e)
		removed = append(removed, e)
	}
	s.lock.unlockWrite()

	s.subj.FireDelta(s, observe.SetDelta(nil, removed))
	return nil
}

// Clear removes every element.
func (s *Set[E]) Clear() error {
	if err := s.lock.lockWrite(); err != nil {
		return err
	}
	removed := slices.Collect(maps.Keys(s.items))
	clear(s.items)
	s.lock.unlockWrite()

	s.subj.FireDelta(s, observe.SetDelta(nil, removed))
	return nil
}

// Apply replays d on s: d.Removed are deleted, then d.Added inserted, under
// one lock. The delta s fires lists only the elements that actually moved.
// Ordering information in d is ignored.
func (s *Set[E]) Apply(d observe.Delta[E]) error {
	if err := s.lock.lockWrite(); err != nil {
		return err
	}
	var added, removed []E
	for _, e := range d.Removed {
		if _, ok := s.items[e]; ok {
			delete(s.items, e)
			removed = append(removed, e)
		}
	}
	for _, e := range d.Added {
		if _, ok := s.items[e]; !ok {
			s.items[e] = struct{}{}
			added = append(added, e)
		}
	}
	s.lock.unlockWrite()

	s.subj.FireDelta(s, observe.SetDelta(added, removed))
	return nil
}

// Len returns the number of elements.
func (s *Set[E]) Len() int {
	s.lock.mu.RLock()
	defer s.lock.mu.RUnlock()
	return len(s.items)
}

// Contains reports whether e is an element.
func (s *Set[E]) Contains(e E) bool {
	s.lock.mu.RLock()
	defer s.lock.mu.RUnlock()
	_, ok := s.items[e]
	return ok
}

// Values returns a copy of the elements in no particular order.
func (s *Set[E]) Values() []E {
	s.lock.mu.RLock()
	defer s.lock.mu.RUnlock()
	return slices.Collect(maps.Keys(s.items))
}

// Lock returns a guard holding the set's read lock. The caller must call
// Release.
func (s *Set[E]) Lock() *Guard[E] {
	return &Guard[E]{
		unlock: s.lock.lockGuard(),
		len:    func() int { return len(s.items) },
		all: func(yield func(E) bool) {
			for e := range s.items {
				if !yield(e) {
					return
				}
			}
		},
		contains: func(e E) bool {
			_, ok := s.items[e]
			return ok
		},
	}
}

// Read calls fn with a guard that is released when fn returns or panics.
func (s *Set[E]) Read(fn func(g *Guard[E])) {
	g := s.Lock()
	defer g.Release()
	fn(g)
}

// members copies the elements of s into a lookup table. A nil set has no
// members.
func (s *Set[E]) members() map[E]struct{} {
	if s == nil {
		return nil
	}
	s.lock.mu.RLock()
	defer s.lock.mu.RUnlock()
	return maps.Clone(s.items)
}
