package collections

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffSets(t *testing.T) {
	tests := []struct {
		name        string
		old, new    *Set[int]
		wantAdded   []int
		wantRemoved []int
	}{
		{"both nil", nil, nil, nil, nil},
		{"old nil", nil, SetOf(1, 2), []int{1, 2}, nil},
		{"new nil", SetOf(1, 2), nil, nil, []int{1, 2}},
		{"overlap", SetOf(1, 2, 3), SetOf(2, 3, 4), []int{4}, []int{1}},
		{"equal contents", SetOf(1, 2), SetOf(2, 1), nil, nil},
		{"disjoint", SetOf(1), SetOf(2), []int{2}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DiffSets(tt.old, tt.new)
			assert.ElementsMatch(t, tt.wantAdded, d.Added)
			assert.ElementsMatch(t, tt.wantRemoved, d.Removed)
			assert.False(t, d.Ordered)
			assert.Equal(t, len(tt.wantAdded) == 0 && len(tt.wantRemoved) == 0, d.Empty())
		})
	}
}

func TestDiffSetsSameSet(t *testing.T) {
	s := SetOf(1, 2, 3)
	assert.True(t, DiffSets(s, s).Empty())
}

func TestDiffSetsRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		oldVals := randomInts(rng)
		newVals := randomInts(rng)
		d := DiffSets(SetOf(oldVals...), SetOf(newVals...))

		oldSet, newSet := toMap(oldVals), toMap(newVals)
		var wantAdded, wantRemoved []int
		for v := range newSet {
			if _, ok := oldSet[v]; !ok {
				wantAdded = append(wantAdded, v)
			}
		}
		for v := range oldSet {
			if _, ok := newSet[v]; !ok {
				wantRemoved = append(wantRemoved, v)
			}
		}
		assert.ElementsMatch(t, wantAdded, d.Added)
		assert.ElementsMatch(t, wantRemoved, d.Removed)
	}
}

func TestDiffLists(t *testing.T) {
	old := ListOf(1, 2, 3)
	new := ListOf(1, 2, 4)

	d := DiffLists(old, new)
	assert.True(t, d.Ordered)
	assert.Equal(t, 0, d.From)
	assert.Equal(t, []int{1, 2, 3}, d.Removed)
	assert.Equal(t, []int{1, 2, 4}, d.Added)

	assert.True(t, DiffLists(old, old).Empty())
	assert.True(t, DiffLists[int](nil, nil).Empty())
	assert.True(t, DiffLists(NewList[int](), NewList[int]()).Empty())

	d = DiffLists(nil, ListOf(7))
	assert.Equal(t, []int{7}, d.Added)
	assert.Empty(t, d.Removed)
}

func randomInts(rng *rand.Rand) []int {
	n := rng.Intn(12)
	out := make([]int, n)
	for i := range out {
		out[i] = rng.Intn(16)
	}
	return out
}

func toMap(vals []int) map[int]struct{} {
	m := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}
