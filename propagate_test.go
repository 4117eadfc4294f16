package propagate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/propagate/pkg/observe"
	"github.com/vango-dev/propagate/pkg/proxy"
)

func TestFacadeEndToEnd(t *testing.T) {
	count := New(1)
	mirror := New(0)
	link, err := BindBidirectional(mirror, count)
	require.NoError(t, err)
	defer link.Unbind()
	assert.Equal(t, 1, mirror.Value())

	p := NewProxy[int](count)
	var got []int
	p.AddChangeListener(OnChanged(func(src Observable, old, new int) {
		got = append(got, new)
	}))

	require.NoError(t, mirror.Set(5))
	assert.Equal(t, 5, count.Value())
	assert.Equal(t, []int{5}, got)

	p.SetPeer(New(9))
	assert.Equal(t, []int{5, 9}, got)

	_, err = BindBidirectional(count, mirror)
	assert.ErrorIs(t, err, ErrAlreadyBound)

	Unbind(count, mirror)
	assert.False(t, link.Bound())
}

func TestFacadeCollections(t *testing.T) {
	s := SetOf("a")
	sp := NewSetProperty(s)
	var added []string
	sp.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[string]) {
		added = append(added, d.Added...)
	}))
	require.NoError(t, s.Add("b"))
	assert.Equal(t, []string{"b"}, added)

	l := ListOf(3, 1, 2)
	lp := NewListProperty(l)
	assert.Same(t, l, lp.Value())
}

func TestFacadeCollectionOptions(t *testing.T) {
	s := SetFrom([]int{1}, WithPolicy(FailFast))
	assert.Equal(t, FailFast, s.Policy())

	g := s.Lock()
	assert.ErrorIs(t, s.Add(2), ErrContention)
	g.Release()

	l := ListFrom([]int{1})
	assert.Equal(t, Block, l.Policy())
}

func TestFacadeContentAndPaths(t *testing.T) {
	src := ListOf("a")
	dst := ListOf[string]()
	link, err := BindListContent(dst, src)
	require.NoError(t, err)
	require.NoError(t, src.Append("b"))
	assert.Equal(t, []string{"a", "b"}, dst.Values())
	Unbind(dst, src)
	assert.False(t, link.Bound())

	inner := New(1)
	outer := New(inner)
	p := Select(outer, func(p *Property[int]) proxy.Source[int] { return p })
	assert.Equal(t, 1, p.Value())
	require.NoError(t, outer.Set(New(2)))
	assert.Equal(t, 2, p.Value())
}
