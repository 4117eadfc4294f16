package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/propagate/pkg/collections"
	"github.com/vango-dev/propagate/pkg/observe"
)

func TestSetPropertyForwardsContentDeltas(t *testing.T) {
	s := collections.SetOf("a")
	p := NewSetProperty(s)

	var deltas []observe.Delta[string]
	p.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[string]) {
		assert.Equal(t, p.ID(), src.ID())
		deltas = append(deltas, d)
	}))
	changes := 0
	p.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new *collections.Set[string]) {
		assert.Same(t, old, new)
		changes++
	}))

	require.NoError(t, s.Add("b"))
	require.NoError(t, s.Remove("a"))

	require.Len(t, deltas, 2)
	assert.Equal(t, []string{"b"}, deltas[0].Added)
	assert.Equal(t, []string{"a"}, deltas[1].Removed)
	assert.Equal(t, 2, changes)
}

func TestSetPropertySwapFiresElementDiff(t *testing.T) {
	oldSet := collections.SetOf(1, 2, 3)
	newSet := collections.SetOf(2, 3, 4)
	p := NewSetProperty(oldSet)

	var deltas []observe.Delta[int]
	p.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[int]) {
		deltas = append(deltas, d)
	}))
	var swapped bool
	p.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new *collections.Set[int]) {
		swapped = old == oldSet && new == newSet
	}))

	require.NoError(t, p.Set(newSet))
	require.Len(t, deltas, 1)
	assert.Equal(t, []int{4}, deltas[0].Added)
	assert.Equal(t, []int{1}, deltas[0].Removed)
	assert.True(t, swapped)

	// The old set is no longer forwarded.
	require.NoError(t, oldSet.Add(99))
	assert.Len(t, deltas, 1)
	assert.Zero(t, oldSet.ListenerCount())

	require.NoError(t, newSet.Add(5))
	assert.Len(t, deltas, 2)
}

func TestSetPropertyEqualContentsStillChange(t *testing.T) {
	p := NewSetProperty(collections.SetOf(1))
	changes := 0
	collectionCalls := 0
	p.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new *collections.Set[int]) {
		changes++
	}))
	p.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[int]) {
		collectionCalls++
	}))

	require.NoError(t, p.Set(collections.SetOf(1)))
	assert.Equal(t, 1, changes)
	assert.Zero(t, collectionCalls)
}

func TestSetPropertyNilContainers(t *testing.T) {
	p := NewSetProperty[string](nil)
	var deltas []observe.Delta[string]
	p.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[string]) {
		deltas = append(deltas, d)
	}))

	require.NoError(t, p.Set(collections.SetOf("x", "y")))
	require.NoError(t, p.Set(nil))

	require.Len(t, deltas, 2)
	assert.ElementsMatch(t, []string{"x", "y"}, deltas[0].Added)
	assert.ElementsMatch(t, []string{"x", "y"}, deltas[1].Removed)
}

func TestListPropertySwapIsOneSpan(t *testing.T) {
	oldList := collections.ListOf(1, 2, 3)
	p := NewListProperty(oldList)

	var deltas []observe.Delta[int]
	p.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[int]) {
		deltas = append(deltas, d)
	}))

	require.NoError(t, p.Set(collections.ListOf(1, 2, 4)))
	require.Len(t, deltas, 1)
	assert.True(t, deltas[0].Ordered)
	assert.Equal(t, 0, deltas[0].From)
	assert.Equal(t, []int{1, 2, 3}, deltas[0].Removed)
	assert.Equal(t, []int{1, 2, 4}, deltas[0].Added)
}

func TestListPropertyForwardsContentDeltas(t *testing.T) {
	l := collections.ListOf("a")
	p := NewListProperty(l)

	var deltas []observe.Delta[string]
	p.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[string]) {
		deltas = append(deltas, d)
	}))

	require.NoError(t, l.Insert(0, "z"))
	require.Len(t, deltas, 1)
	assert.Equal(t, 0, deltas[0].From)
	assert.Equal(t, []string{"z"}, deltas[0].Added)
}

func TestSetPropertyIgnoresOwnContainerInvalidation(t *testing.T) {
	s := collections.NewSet[int]()
	p := NewSetProperty(s)

	var subs []bool
	p.AddSubInvalidationListener(observe.OnSubInvalidated(func(src observe.Observable, sub bool) {
		subs = append(subs, sub)
	}))

	require.NoError(t, s.Add(1))
	// One content change, reported as the property's own change.
	assert.Equal(t, []bool{false}, subs)
}
