package observe

// None is the element type of observables that are not collections.
type None struct{}

// ChangeKind tags a Change.
type ChangeKind uint8

const (
	// ChangeInvalidation carries no values.
	ChangeInvalidation ChangeKind = iota

	// ChangeValue carries the old and new value.
	ChangeValue

	// ChangeCollection carries the container and an incremental delta.
	ChangeCollection
)

// Change is the transient record an owner fires for one mutation.
type Change[T, E any] struct {
	Kind ChangeKind

	// Old and New are the previous and next values. For ChangeCollection
	// both hold the (unchanged) container.
	Old, New T

	// Delta is set for ChangeCollection.
	Delta Delta[E]
}

// Delta describes a structural change of a collection.
type Delta[E any] struct {
	// Ordered is true for list deltas. From is then the index at which
	// Removed started and Added was inserted.
	Ordered bool
	From    int

	Added   []E
	Removed []E

	// Permuted is true when elements moved without being added or removed.
	// Permutation[i] is the new index of the element previously at From+i.
	Permuted    bool
	Permutation []int
}

// SetDelta returns an unordered delta.
func SetDelta[E any](added, removed []E) Delta[E] {
	return Delta[E]{Added: added, Removed: removed}
}

// ListSpan returns an ordered delta replacing removed with added at from.
func ListSpan[E any](from int, removed, added []E) Delta[E] {
	return Delta[E]{Ordered: true, From: from, Added: added, Removed: removed}
}

// ListPermutation returns an ordered delta that only moves elements.
func ListPermutation[E any](from int, perm []int) Delta[E] {
	return Delta[E]{Ordered: true, From: from, Permuted: true, Permutation: perm}
}

// Empty reports whether the delta changes nothing.
func (d Delta[E]) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && !d.Permuted
}

// WasAdded reports whether elements were added.
func (d Delta[E]) WasAdded() bool {
	return len(d.Added) > 0
}

// WasRemoved reports whether elements were removed.
func (d Delta[E]) WasRemoved() bool {
	return len(d.Removed) > 0
}

// WasReplaced reports whether elements were both removed and added.
func (d Delta[E]) WasReplaced() bool {
	return d.WasAdded() && d.WasRemoved()
}
