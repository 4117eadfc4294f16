package binding

import (
	"runtime"
	"weak"

	"github.com/vango-dev/propagate/pkg/collections"
	"github.com/vango-dev/propagate/pkg/observe"
)

// collection is what a content link listens to.
type collection[E any] interface {
	observe.Observable
	AddCollectionListener(l observe.CollectionListener[E])
	RemoveCollectionListener(l observe.CollectionListener[E])
}

// BindSetContent makes target mirror source. target is first brought to
// source's elements, then every element delta of source is replayed on
// target. The binding is one-way: changes made to target directly are not
// pushed back. Remove it with Unbind(target, source) or Link.Unbind.
func BindSetContent[E comparable](target, source *collections.Set[E]) (*Link, error) {
	return MapSetContent(target, source, same[E])
}

// MapSetContent is BindSetContent with every element passed through
// convert. convert must be deterministic: removals are matched by the
// converted value.
func MapSetContent[S, T comparable](target *collections.Set[T], source *collections.Set[S], convert func(S) T) (*Link, error) {
	if target == nil || source == nil {
		return nil, ErrNilEndpoint
	}
	if convert == nil {
		return nil, ErrNilConverter
	}
	reset := func(t *collections.Set[T], s *collections.Set[S]) error {
		want := collections.SetFrom(mapAll(s.Values(), convert))
		return t.Apply(collections.DiffSets(t, want))
	}
	apply := func(t *collections.Set[T], d observe.Delta[S]) error {
		return t.Apply(observe.SetDelta(mapAll(d.Added, convert), mapAll(d.Removed, convert)))
	}
	return bindContent[collections.Set[T], collections.Set[S], S](target, target.ID(), source, reset, apply)
}

// BindListContent makes target mirror source: target first takes source's
// elements, then every span and permutation of source is replayed on
// target at the same indexes. Like BindSetContent the binding is one-way.
func BindListContent[E any](target, source *collections.List[E]) (*Link, error) {
	return MapListContent(target, source, same[E])
}

// MapListContent is BindListContent with every added element passed
// through convert.
func MapListContent[S, T any](target *collections.List[T], source *collections.List[S], convert func(S) T) (*Link, error) {
	if target == nil || source == nil {
		return nil, ErrNilEndpoint
	}
	if convert == nil {
		return nil, ErrNilConverter
	}
	reset := func(t *collections.List[T], s *collections.List[S]) error {
		return t.SetAll(mapAll(s.Values(), convert)...)
	}
	apply := func(t *collections.List[T], d observe.Delta[S]) error {
		if d.Permuted {
			return t.Permute(d.From, d.Permutation)
		}
		return t.Splice(d.From, len(d.Removed), mapAll(d.Added, convert)...)
	}
	return bindContent[collections.List[T], collections.List[S], S](target, target.ID(), source, reset, apply)
}

// bindContent registers the link and a delta listener on source that holds
// target weakly. A delta that does not apply, because it arrived out of
// order or target was changed behind the link's back, triggers a full
// reset from source; a ContentError is reported only if that fails too.
func bindContent[TV, SV, S any, SP interface {
	*SV
	collection[S]
}](target *TV, targetID uint64, source SP, reset func(*TV, SP) error, apply func(*TV, observe.Delta[S]) error) (*Link, error) {
	if targetID == source.ID() {
		return nil, ErrSelfBinding
	}

	key := pairOf(targetID, source.ID())
	linksMu.Lock()
	if _, ok := links[key]; ok {
		linksMu.Unlock()
		return nil, ErrAlreadyBound
	}
	l := &Link{key: key}
	links[key] = l
	linksMu.Unlock()

	if err := reset(target, source); err != nil {
		l.unbound.Store(true)
		l.forget()
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unbound.Load() {
		return l, nil
	}

	ws := weak.Make((*SV)(source))
	listener := observe.WeakCollection(target, func(t *TV, _ observe.Observable, d observe.Delta[S]) {
		if !l.Bound() {
			return
		}
		err := apply(t, d)
		if err == nil {
			return
		}
		s := ws.Value()
		if s == nil {
			l.Unbind()
			return
		}
		if rerr := reset(t, SP(s)); rerr != nil {
			l.failContent(&ContentError{Err: err, ResetErr: rerr})
		}
	})
	source.AddCollectionListener(listener)

	l.detach = func() {
		if s := ws.Value(); s != nil {
			SP(s).RemoveCollectionListener(listener)
		}
	}
	l.cleanups = []runtime.Cleanup{
		runtime.AddCleanup(target, (*Link).Unbind, l),
		runtime.AddCleanup((*SV)(source), (*Link).Unbind, l),
	}
	return l, nil
}

func (l *Link) failContent(err *ContentError) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
	observe.ReportFault(err)
}

func same[E any](e E) E { return e }

func mapAll[S, T any](in []S, convert func(S) T) []T {
	if len(in) == 0 {
		return nil
	}
	out := make([]T, len(in))
	for i, e := range in {
		out[i] = convert(e)
	}
	return out
}
