package collections

import (
	"slices"

	"github.com/vango-dev/propagate/pkg/observe"
)

// List is an observable ordered collection.
//
// List is safe for concurrent use. Mutations fire ordered deltas: a span
// starting at the index of the change, or a permutation after Sort.
type List[E any] struct {
	observe.Identity
	emitter[*List[E], E]

	lock  rwLock
	items []E
}

// NewList creates an empty list.
func NewList[E any](opts ...Option) *List[E] {
	o := buildOptions(opts)
	l := &List[E]{
		Identity: observe.NewIdentity(),
		lock:     rwLock{policy: o.policy},
	}
	l.emitter = newEmitter[*List[E], E](l)
	return l
}

// ListOf creates a list holding elems.
func ListOf[E any](elems ...E) *List[E] {
	return ListFrom(elems)
}

// ListFrom creates a list holding a copy of elems, configured by opts.
func ListFrom[E any](elems []E, opts ...Option) *List[E] {
	l := NewList[E](opts...)
	l.items = slices.Clone(elems)
	return l
}

// Policy returns the list's contention policy.
func (l *List[E]) Policy() ContentionPolicy {
	return l.lock.policy
}

// Append adds elems at the end.
func (l *List[E]) Append(elems ...E) error {
	if err := l.lock.lockWrite(); err != nil {
		return err
	}
	from := len(l.items)
	l.items = append(l.items, elems...)
	l.lock.unlockWrite()

	l.subj.FireDelta(l, observe.ListSpan(from, nil, slices.Clone(elems)))
	return nil
}

// Insert adds elems before index i. i may equal Len.
func (l *List[E]) Insert(i int, elems ...E) error {
	if err := l.lock.lockWrite(); err != nil {
		return err
	}
	if i < 0 || i > len(l.items) {
		l.lock.unlockWrite()
		return ErrIndexOutOfRange
	}
	l.items = slices.Insert(l.items, i, elems...)
	l.lock.unlockWrite()

	l.subj.FireDelta(l, observe.ListSpan(i, nil, slices.Clone(elems)))
	return nil
}

// RemoveAt deletes and returns the element at index i.
func (l *List[E]) RemoveAt(i int) (E, error) {
	var zero E
	if err := l.lock.lockWrite(); err != nil {
		return zero, err
	}
	if i < 0 || i >= len(l.items) {
		l.lock.unlockWrite()
		return zero, ErrIndexOutOfRange
	}
	removed := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	l.lock.unlockWrite()

	l.subj.FireDelta(l, observe.ListSpan(i, []E{removed}, nil))
	return removed, nil
}

// SetAt replaces the element at index i.
func (l *List[E]) SetAt(i int, e E) error {
	if err := l.lock.lockWrite(); err != nil {
		return err
	}
	if i < 0 || i >= len(l.items) {
		l.lock.unlockWrite()
		return ErrIndexOutOfRange
	}
	old := l.items[i]
	l.items[i] = e
	l.lock.unlockWrite()

	l.subj.FireDelta(l, observe.ListSpan(i, []E{old}, []E{e}))
	return nil
}

// Clear removes every element.
func (l *List[E]) Clear() error {
	if err := l.lock.lockWrite(); err != nil {
		return err
	}
	removed := l.items
	l.items = nil
	l.lock.unlockWrite()

	l.subj.FireDelta(l, observe.ListSpan(0, removed, nil))
	return nil
}

// Splice replaces the n elements starting at from with elems and fires one
// span.
func (l *List[E]) Splice(from, n int, elems ...E) error {
	if err := l.lock.lockWrite(); err != nil {
		return err
	}
	if from < 0 || n < 0 || from+n > len(l.items) {
		l.lock.unlockWrite()
		return ErrIndexOutOfRange
	}
	removed := slices.Clone(l.items[from : from+n])
	l.items = slices.Replace(l.items, from, from+n, elems...)
	l.lock.unlockWrite()

	l.subj.FireDelta(l, observe.ListSpan(from, removed, slices.Clone(elems)))
	return nil
}

// SetAll replaces the whole content with elems.
func (l *List[E]) SetAll(elems ...E) error {
	if err := l.lock.lockWrite(); err != nil {
		return err
	}
	removed := l.items
	l.items = slices.Clone(elems)
	l.lock.unlockWrite()

	l.subj.FireDelta(l, observe.ListSpan(0, removed, slices.Clone(elems)))
	return nil
}

// Permute moves the element at from+i to perm[i], for every i. perm must
// be a rearrangement of the indexes from to from+len(perm)-1.
func (l *List[E]) Permute(from int, perm []int) error {
	if !isPermutation(from, perm) {
		return ErrBadDelta
	}
	if err := l.lock.lockWrite(); err != nil {
		return err
	}
	if from < 0 || from+len(perm) > len(l.items) {
		l.lock.unlockWrite()
		return ErrIndexOutOfRange
	}
	span := slices.Clone(l.items[from : from+len(perm)])
	for i, to := range perm {
		l.items[to] = span[i]
	}
	l.lock.unlockWrite()

	l.subj.FireDelta(l, observe.ListPermutation[E](from, slices.Clone(perm)))
	return nil
}

// Apply replays an ordered delta fired by another list. A span replaces
// len(d.Removed) elements at d.From with d.Added; only the length of
// d.Removed is used. A permutation is applied with Permute.
func (l *List[E]) Apply(d observe.Delta[E]) error {
	switch {
	case !d.Ordered:
		return ErrBadDelta
	case d.Permuted:
		return l.Permute(d.From, d.Permutation)
	default:
		return l.Splice(d.From, len(d.Removed), d.Added...)
	}
}

func isPermutation(from int, perm []int) bool {
	seen := make([]bool, len(perm))
	for _, to := range perm {
		i := to - from
		if i < 0 || i >= len(perm) || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}

// Sort orders the list stably with cmp and reports the resulting
// permutation. A list that is already sorted fires nothing.
func (l *List[E]) Sort(cmp func(a, b E) int) error {
	if err := l.lock.lockWrite(); err != nil {
		return err
	}
	order := make([]int, len(l.items))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp(l.items[a], l.items[b])
	})

	moved := false
	sorted := make([]E, len(l.items))
	perm := make([]int, len(l.items))
	for newIdx, oldIdx := range order {
		sorted[newIdx] = l.items[oldIdx]
		perm[oldIdx] = newIdx
		if newIdx != oldIdx {
			moved = true
		}
	}
	if moved {
		l.items = sorted
	}
	l.lock.unlockWrite()

	if moved {
		l.subj.FireDelta(l, observe.ListPermutation[E](0, perm))
	}
	return nil
}

// Len returns the number of elements.
func (l *List[E]) Len() int {
	l.lock.mu.RLock()
	defer l.lock.mu.RUnlock()
	return len(l.items)
}

// Get returns the element at index i.
func (l *List[E]) Get(i int) (E, bool) {
	l.lock.mu.RLock()
	defer l.lock.mu.RUnlock()
	if i < 0 || i >= len(l.items) {
		var zero E
		return zero, false
	}
	return l.items[i], true
}

// Values returns a copy of the elements in order.
func (l *List[E]) Values() []E {
	l.lock.mu.RLock()
	defer l.lock.mu.RUnlock()
	return slices.Clone(l.items)
}

// Lock returns a guard holding the list's read lock. The caller must call
// Release. Contains compares elements with observe.Equal.
func (l *List[E]) Lock() *Guard[E] {
	return &Guard[E]{
		unlock: l.lock.lockGuard(),
		len:    func() int { return len(l.items) },
		all: func(yield func(E) bool) {
			for _, e := range l.items {
				if !yield(e) {
					return
				}
			}
		},
		contains: func(e E) bool {
			return slices.ContainsFunc(l.items, func(x E) bool { return observe.Equal(x, e) })
		},
	}
}

// Read calls fn with a guard that is released when fn returns or panics.
func (l *List[E]) Read(fn func(g *Guard[E])) {
	g := l.Lock()
	defer g.Release()
	fn(g)
}

// elements copies the elements of l. A nil list is empty.
func (l *List[E]) elements() []E {
	if l == nil {
		return nil
	}
	return l.Values()
}
