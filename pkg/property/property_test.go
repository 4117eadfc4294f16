package property

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/propagate/pkg/observe"
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

func TestPropertySet(t *testing.T) {
	p := New(1)
	rec := &recorder{}
	p.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new int) {
		rec.record("%d->%d", old, new)
	}))
	p.AddInvalidationListener(observe.OnInvalidated(func(src observe.Observable) {
		rec.record("invalidated")
	}))

	require.NoError(t, p.Set(2))
	require.NoError(t, p.Set(2))
	require.NoError(t, p.Update(func(v int) int { return v * 10 }))

	assert.Equal(t, 20, p.Value())
	assert.Equal(t, []string{"invalidated", "1->2", "invalidated", "2->20"}, rec.get())
}

func TestPropertyValidator(t *testing.T) {
	errNegative := errors.New("negative")
	p := New(5, WithValidator(func(v int) error {
		if v < 0 {
			return errNegative
		}
		return nil
	}))
	calls := 0
	p.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new int) { calls++ }))

	assert.ErrorIs(t, p.Set(-1), errNegative)
	assert.Equal(t, 5, p.Value())
	assert.Zero(t, calls)

	require.NoError(t, p.Set(6))
	assert.Equal(t, 1, calls)
}

func TestPropertyWithEqual(t *testing.T) {
	type point struct{ X, Y int }
	p := New(point{1, 1}, WithEqual(func(a, b point) bool { return a.X == b.X }))
	calls := 0
	p.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new point) { calls++ }))

	require.NoError(t, p.Set(point{1, 9}))
	assert.Equal(t, point{1, 1}, p.Value())
	require.NoError(t, p.Set(point{2, 9}))
	assert.Equal(t, 1, calls)
}

func TestPropertyFireSubChange(t *testing.T) {
	p := New("x")
	rec := &recorder{}
	p.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new string) {
		rec.record("change")
	}))
	p.AddSubChangeListener(observe.OnSubChanged(func(src observe.Observable, old, new string, sub bool) {
		rec.record("sub_change %s %s %v", old, new, sub)
	}))

	p.FireSubChange()
	assert.Equal(t, []string{"sub_change x x true"}, rec.get())
}

func TestPropertyRefiresNestedChanges(t *testing.T) {
	inner := New(1)
	outer := New(inner)
	rec := &recorder{}
	outer.AddSubInvalidationListener(observe.OnSubInvalidated(func(src observe.Observable, sub bool) {
		rec.record("outer sub=%v", sub)
	}))

	require.NoError(t, inner.Set(2))
	assert.Equal(t, []string{"outer sub=true"}, rec.get())

	// Once replaced, the old inner value is no longer watched.
	other := New(10)
	require.NoError(t, outer.Set(other))
	require.NoError(t, inner.Set(3))
	require.NoError(t, other.Set(11))
	assert.Equal(t, []string{"outer sub=true", "outer sub=false", "outer sub=true"}, rec.get())
	assert.Zero(t, inner.ListenerCount())
}

func TestPropertyReadOnly(t *testing.T) {
	p := New(1)
	ro := p.ReadOnly()
	var _ Readable[int] = ro
	var _ Readable[int] = p

	assert.Equal(t, p.ID(), ro.ID())

	got := 0
	ro.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new int) { got = new }))
	require.NoError(t, p.Set(7))
	assert.Equal(t, 7, got)
	assert.Equal(t, 7, ro.Value())
}

func TestPropertyBind(t *testing.T) {
	src := New("a")
	dst := New("")

	require.NoError(t, dst.Bind(src))
	assert.True(t, dst.IsBound())
	assert.Equal(t, "a", dst.Value())

	require.NoError(t, src.Set("b"))
	assert.Equal(t, "b", dst.Value())
	assert.ErrorIs(t, dst.Set("c"), ErrBound)

	dst.Unbind()
	dst.Unbind()
	assert.False(t, dst.IsBound())
	require.NoError(t, src.Set("z"))
	assert.Equal(t, "b", dst.Value())
	require.NoError(t, dst.Set("c"))
}

func TestPropertyBindErrors(t *testing.T) {
	p := New(0)
	assert.ErrorIs(t, p.Bind(p), ErrSelfBound)
	assert.ErrorIs(t, p.Bind(nil), ErrNilSource)

	var nilProp *Property[int]
	assert.ErrorIs(t, p.Bind(nilProp), ErrNilSource)
}

func TestPropertyRebindSwitchesSource(t *testing.T) {
	a, b := New(1), New(2)
	p := New(0)

	require.NoError(t, p.Bind(a))
	require.NoError(t, p.Bind(b))
	assert.Equal(t, 2, p.Value())

	require.NoError(t, a.Set(100))
	assert.Equal(t, 2, p.Value())
	assert.Zero(t, a.ListenerCount())
}

func TestPropertyBindReportsRejectedValues(t *testing.T) {
	var mu sync.Mutex
	var faults []observe.Fault
	prev := observe.SetFaultSink(observe.FaultSinkFunc(func(f observe.Fault) {
		mu.Lock()
		faults = append(faults, f)
		mu.Unlock()
	}))
	t.Cleanup(func() { observe.SetFaultSink(prev) })

	errOdd := errors.New("odd")
	src := New(2)
	dst := New(0, WithValidator(func(v int) error {
		if v%2 != 0 {
			return errOdd
		}
		return nil
	}))
	require.NoError(t, dst.Bind(src))

	require.NoError(t, src.Set(3))
	assert.Equal(t, 2, dst.Value())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, faults, 1)
	assert.ErrorIs(t, faults[0].Err, errOdd)
}

func TestPropertyLinks(t *testing.T) {
	p := New(0)
	assert.False(t, p.HasBidirectionalLinks())
	p.AdjustLinks(1)
	assert.True(t, p.HasBidirectionalLinks())
	p.AdjustLinks(-1)
	assert.False(t, p.HasBidirectionalLinks())
}

func TestPropertyConcurrentSet(t *testing.T) {
	p := New(0)
	var mu sync.Mutex
	seen := 0
	p.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new int) {
		mu.Lock()
		seen++
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_ = p.Set(v)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, seen)
	assert.LessOrEqual(t, seen, 50)
}
