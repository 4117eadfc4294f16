package proxy

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/propagate/pkg/collections"
	"github.com/vango-dev/propagate/pkg/observe"
	"github.com/vango-dev/propagate/pkg/property"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(format string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// watch registers one listener of every value kind on v.
func watch(t *testing.T, v *Value[int], rec *recorder) {
	t.Helper()
	v.AddInvalidationListener(observe.OnInvalidated(func(src observe.Observable) {
		assert.Equal(t, v.ID(), src.ID())
		rec.record("invalidated")
	}))
	v.AddSubInvalidationListener(observe.OnSubInvalidated(func(src observe.Observable, sub bool) {
		rec.record("sub_invalidated %v", sub)
	}))
	v.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new int) {
		assert.Equal(t, v.ID(), src.ID())
		rec.record("changed %d->%d", old, new)
	}))
	v.AddSubChangeListener(observe.OnSubChanged(func(src observe.Observable, old, new int, sub bool) {
		rec.record("sub_changed %d->%d %v", old, new, sub)
	}))
}

func TestValueForwardsEachKindOnce(t *testing.T) {
	p := property.New(1)
	v := New[int](p)
	rec := &recorder{}
	watch(t, v, rec)

	require.NoError(t, p.Set(2))
	assert.Equal(t, []string{
		"invalidated",
		"sub_invalidated false",
		"changed 1->2",
		"sub_changed 1->2 false",
	}, rec.get())
	assert.Equal(t, 2, v.Value())
}

func TestValueSetPeerFiresOneChange(t *testing.T) {
	a, b := property.New(1), property.New(5)
	v := New[int](a)
	rec := &recorder{}
	watch(t, v, rec)

	v.SetPeer(b)
	assert.Equal(t, []string{
		"invalidated",
		"sub_invalidated false",
		"changed 1->5",
		"sub_changed 1->5 false",
	}, rec.get())

	rec.reset()
	require.NoError(t, a.Set(9))
	assert.Empty(t, rec.get())
	assert.Zero(t, a.ListenerCount())

	require.NoError(t, b.Set(6))
	assert.Contains(t, rec.get(), "changed 5->6")
}

func TestValueSetPeerEqualValuesFireNothing(t *testing.T) {
	v := New[int](property.New(3))
	rec := &recorder{}
	watch(t, v, rec)

	v.SetPeer(property.New(3))
	assert.Empty(t, rec.get())
}

func TestValueNilPeer(t *testing.T) {
	v := New[int](nil)
	assert.Nil(t, v.Peer())
	assert.Zero(t, v.Value())

	rec := &recorder{}
	v.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new int) {
		rec.record("%d->%d", old, new)
	}))

	v.SetPeer(property.New(4))
	v.SetPeer(nil)
	var typedNil *property.Property[int]
	v.SetPeer(typedNil)

	assert.Nil(t, v.Peer())
	assert.Equal(t, []string{"0->4", "4->0"}, rec.get())
}

func TestValueForwardersAreLazy(t *testing.T) {
	p := property.New(1)
	v := New[int](p)
	assert.Zero(t, p.ListenerCount())

	l1 := observe.OnChanged(func(src observe.Observable, old, new int) {})
	l2 := observe.OnChanged(func(src observe.Observable, old, new int) {})
	v.AddChangeListener(l1)
	v.AddChangeListener(l2)
	assert.Equal(t, 1, p.ListenerCount())
	assert.True(t, v.Forwarding(observe.KindChange))
	assert.False(t, v.Forwarding(observe.KindInvalidation))

	v.RemoveChangeListener(l1)
	assert.True(t, v.Forwarding(observe.KindChange))
	v.RemoveChangeListener(l2)
	assert.False(t, v.Forwarding(observe.KindChange))
	assert.Zero(t, p.ListenerCount())
}

// lapsing is a weak change listener whose liveness the test controls.
type lapsing struct {
	dead  atomic.Bool
	calls atomic.Int32
}

func (w *lapsing) Alive() bool { return !w.dead.Load() }

func (w *lapsing) Changed(src observe.Observable, old, new int) { w.calls.Add(1) }

func TestValueDetachesForwarderWhenWeakListenersDie(t *testing.T) {
	p := property.New(1)
	v := New[int](p)
	w := &lapsing{}
	v.AddChangeListener(w)
	require.Equal(t, 1, p.ListenerCount())

	require.NoError(t, p.Set(2))
	assert.Equal(t, int32(1), w.calls.Load())

	w.dead.Store(true)
	require.NoError(t, p.Set(3))

	assert.Equal(t, int32(1), w.calls.Load())
	assert.False(t, v.Forwarding(observe.KindChange))
	assert.Zero(t, p.ListenerCount())

	// A new listener reattaches the forwarder.
	var got []int
	v.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new int) {
		got = append(got, new)
	}))
	require.NoError(t, p.Set(4))
	assert.Equal(t, []int{4}, got)
	assert.Equal(t, 1, p.ListenerCount())
}

func TestValueForwardsSubChanges(t *testing.T) {
	inner := property.New(1)
	outer := property.New(inner)
	v := New[*property.Property[int]](outer)

	var subs []bool
	v.AddSubChangeListener(observe.OnSubChanged(func(src observe.Observable, old, new *property.Property[int], sub bool) {
		assert.Same(t, inner, old)
		assert.Same(t, inner, new)
		subs = append(subs, sub)
	}))

	require.NoError(t, inner.Set(2))
	assert.Equal(t, []bool{true}, subs)
}

func TestValueChains(t *testing.T) {
	p := property.New(1)
	inner := New[int](p)
	outer := New[int](inner)

	var got []int
	outer.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new int) {
		got = append(got, new)
	}))

	require.NoError(t, p.Set(2))
	inner.SetPeer(property.New(7))
	assert.Equal(t, []int{2, 7}, got)
}

func TestSetForwardsDeltasAndSwapDiff(t *testing.T) {
	s1 := collections.SetOf(1, 2)
	s2 := collections.SetOf(2, 3)
	a, b := property.NewSetProperty(s1), property.NewSetProperty(s2)
	ps := NewSet[int](a)

	var deltas []observe.Delta[int]
	ps.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[int]) {
		assert.Equal(t, ps.ID(), src.ID())
		deltas = append(deltas, d)
	}))
	changes := 0
	ps.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new *collections.Set[int]) {
		changes++
	}))

	require.NoError(t, s1.Add(5))
	require.Len(t, deltas, 1)
	assert.Equal(t, []int{5}, deltas[0].Added)
	assert.Equal(t, 1, changes)

	ps.SetPeer(b)
	require.Len(t, deltas, 2)
	assert.ElementsMatch(t, []int{3}, deltas[1].Added)
	assert.ElementsMatch(t, []int{1, 5}, deltas[1].Removed)
	assert.Equal(t, 2, changes)
	assert.Same(t, s2, ps.Value())

	require.NoError(t, s1.Add(7))
	assert.Len(t, deltas, 2)
	assert.Zero(t, a.ListenerCount())
}

func TestSetSamePeerContentsStillChange(t *testing.T) {
	ps := NewSet[string](property.NewSetProperty(collections.SetOf("x")))
	var deltas []observe.Delta[string]
	ps.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[string]) {
		deltas = append(deltas, d)
	}))
	changes := 0
	ps.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new *collections.Set[string]) {
		changes++
	}))

	ps.SetPeer(property.NewSetProperty(collections.SetOf("x")))
	assert.Equal(t, 1, changes)
	assert.Empty(t, deltas)
}

func TestListForwardsDeltasAndSwapSpan(t *testing.T) {
	l1 := collections.ListOf(1, 2)
	l2 := collections.ListOf(9)
	a, b := property.NewListProperty(l1), property.NewListProperty(l2)
	pl := NewList[int](a)

	var deltas []observe.Delta[int]
	pl.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[int]) {
		assert.Equal(t, pl.ID(), src.ID())
		deltas = append(deltas, d)
	}))
	assert.Equal(t, 1, a.ListenerCount())

	require.NoError(t, l1.Insert(1, 5))
	require.Len(t, deltas, 1)
	assert.Equal(t, observe.ListSpan(1, nil, []int{5}), deltas[0])

	require.NoError(t, l1.Sort(func(x, y int) int { return y - x }))
	require.Len(t, deltas, 2)
	assert.True(t, deltas[1].Permuted)

	pl.SetPeer(b)
	require.Len(t, deltas, 3)
	assert.Equal(t, observe.ListSpan(0, []int{5, 2, 1}, []int{9}), deltas[2])
	assert.Same(t, l2, pl.Value())
	assert.Zero(t, a.ListenerCount())
	assert.Equal(t, 1, b.ListenerCount())

	pl.SetPeer(nil)
	require.Len(t, deltas, 4)
	assert.Equal(t, []int{9}, deltas[3].Removed)
	assert.Nil(t, pl.Value())
}

func TestListForwarderIsLazy(t *testing.T) {
	p := property.NewListProperty(collections.ListOf("a"))
	pl := NewList[string](p)
	assert.Zero(t, p.ListenerCount())

	l := observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[string]) {})
	pl.AddCollectionListener(l)
	assert.True(t, pl.Forwarding(observe.KindCollection))
	pl.RemoveCollectionListener(l)
	assert.False(t, pl.Forwarding(observe.KindCollection))
	assert.Zero(t, p.ListenerCount())
}

func TestValueFallback(t *testing.T) {
	v := New[string](nil, WithFallback("n/a"))
	assert.Equal(t, "n/a", v.Value())

	var got []string
	v.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new string) {
		got = append(got, old+"->"+new)
	}))
	v.SetPeer(property.New("x"))
	v.SetPeer(nil)
	assert.Equal(t, []string{"n/a->x", "x->n/a"}, got)
	assert.Equal(t, "n/a", v.Value())
}

type node struct {
	name  *property.Property[string]
	child *property.Property[*node]
}

func newNode(name string) *node {
	return &node{name: property.New(name), child: property.New[*node](nil)}
}

func childOf(n *node) Source[*node] {
	if n == nil {
		return nil
	}
	return n.child
}

func nameOf(n *node) Source[string] {
	if n == nil {
		return nil
	}
	return n.name
}

func TestSelectFollowsPath(t *testing.T) {
	root := property.New(newNode("root"))
	name := Select(Select(root, childOf), nameOf, WithFallback("-"))
	assert.Equal(t, "-", name.Value())

	var got []string
	name.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new string) {
		got = append(got, new)
	}))

	a := newNode("a")
	require.NoError(t, root.Value().child.Set(a))
	assert.Equal(t, "a", name.Value())

	require.NoError(t, a.name.Set("a2"))

	other := newNode("r2")
	require.NoError(t, other.child.Set(newNode("b")))
	require.NoError(t, root.Set(other))
	assert.Equal(t, "b", name.Value())

	require.NoError(t, root.Set(nil))
	assert.Equal(t, "-", name.Value())
	assert.Equal(t, []string{"a", "a2", "b", "-"}, got)

	// The old branch no longer reaches the path.
	require.NoError(t, a.name.Set("stale"))
	assert.Equal(t, []string{"a", "a2", "b", "-"}, got)
	assert.Zero(t, a.name.ListenerCount())
}

func TestSelectRepicksWhenListenerChangesSource(t *testing.T) {
	first, second := newNode("first"), newNode("second")
	root := property.New(first)
	name := Select(root, nameOf)

	name.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new string) {
		if new == "first!" {
			require.NoError(t, root.Set(second))
		}
	}))
	require.NoError(t, first.name.Set("first!"))
	assert.Equal(t, "second", name.Value())
	assert.Same(t, second.name, name.Peer())
}

func TestSelectNilSource(t *testing.T) {
	v := Select[*node, string](nil, nameOf, WithFallback("none"))
	assert.Nil(t, v.Peer())
	assert.Equal(t, "none", v.Value())
}
