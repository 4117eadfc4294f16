package observe

// State is the storage shape of a Registry.
type State uint8

const (
	// StateEmpty holds no listeners. It is represented by a nil *Registry.
	StateEmpty State = iota

	// StateSingle holds exactly one listener without any slices.
	StateSingle

	// StateMulti holds one slice per kind.
	StateMulti
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSingle:
		return "single"
	case StateMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// Registry stores the listeners of one observable.
//
// A nil *Registry is the empty registry. Add and Remove return the registry
// the caller must store from then on, which may or may not be the receiver.
// Registries are not safe for concurrent mutation; Subject serializes
// mutations and publishes the result with one atomic swap.
//
// While at least one pass holds a snapshot the registry is locked: Add and
// Remove then write to fresh slices so the snapshot is never modified.
type Registry struct {
	multi bool

	// Single state.
	kind   Kind
	single any

	// Multi state.
	slots  [kindCount]slot
	locked int

	// stale is set when a pass skipped a dead weak listener.
	stale bool
}

type slot struct {
	items []any
	size  int
}

// State reports the storage shape.
func (r *Registry) State() State {
	switch {
	case r == nil:
		return StateEmpty
	case r.multi:
		return StateMulti
	default:
		return StateSingle
	}
}

// Len returns the number of registrations across all kinds.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	if !r.multi {
		return 1
	}
	n := 0
	for k := range r.slots {
		n += r.slots[k].size
	}
	return n
}

// Count returns the number of registrations of one kind.
func (r *Registry) Count(kind Kind) int {
	if r == nil || kind >= kindCount {
		return 0
	}
	if !r.multi {
		if r.kind == kind {
			return 1
		}
		return 0
	}
	return r.slots[kind].size
}

// Contains reports whether l is registered as kind.
func (r *Registry) Contains(kind Kind, l any) bool {
	return r.indexOf(kind, l) >= 0
}

// Listeners returns a copy of the registrations of one kind, in
// registration order.
func (r *Registry) Listeners(kind Kind) []any {
	n := r.Count(kind)
	if n == 0 {
		return nil
	}
	if !r.multi {
		return []any{r.single}
	}
	out := make([]any, n)
	copy(out, r.slots[kind].items[:n])
	return out
}

func (r *Registry) indexOf(kind Kind, l any) int {
	if r == nil || kind >= kindCount {
		return -1
	}
	if !r.multi {
		if r.kind == kind && sameListener(r.single, l) {
			return 0
		}
		return -1
	}
	s := &r.slots[kind]
	for i := 0; i < s.size; i++ {
		if sameListener(s.items[i], l) {
			return i
		}
	}
	return -1
}

// Add registers l as kind. Adding the same listener twice registers it
// twice.
func (r *Registry) Add(kind Kind, l any) *Registry {
	if r == nil {
		return &Registry{kind: kind, single: l}
	}
	if !r.multi {
		m := &Registry{multi: true}
		m.slots[r.kind] = slot{items: []any{r.single}, size: 1}
		return m.Add(kind, l)
	}

	s := &r.slots[kind]
	switch {
	case s.items == nil:
		s.items = []any{l}
		s.size = 1
		return r
	case r.locked > 0:
		// Never write into a slice a pass may be reading.
		capacity := len(s.items)
		if s.size == capacity {
			capacity = capacity*3/2 + 1
		}
		items := make([]any, capacity)
		copy(items, s.items[:s.size])
		s.items = items
	case s.size == len(s.items):
		s.size = trim(s.items, s.size)
		if r.Len() == 0 {
			return &Registry{kind: kind, single: l}
		}
		if s.size == len(s.items) {
			items := make([]any, len(s.items)*3/2+1)
			copy(items, s.items[:s.size])
			s.items = items
		}
	}
	s.items[s.size] = l
	s.size++
	return r
}

// Remove unregisters the first registration of kind equal to l. Removing a
// listener that is not registered is a no-op.
func (r *Registry) Remove(kind Kind, l any) *Registry {
	i := r.indexOf(kind, l)
	if i < 0 {
		return r
	}
	if !r.multi {
		return nil
	}
	if r.Len() <= 2 {
		return r.collapse(kind, i)
	}

	s := &r.slots[kind]
	if s.size == 1 {
		s.items = nil
		s.size = 0
		return r
	}

	if r.locked > 0 {
		// Copy on write: the snapshot keeps the old slice intact.
		items := make([]any, len(s.items))
		copy(items, s.items[:i])
		copy(items[i:], s.items[i+1:s.size])
		s.items = items
		s.size--
		return r
	}
	copy(s.items[i:], s.items[i+1:s.size])
	s.size--
	s.items[s.size] = nil
	return r
}

// collapse returns the registry that remains after removing index i of kind
// from a registry holding at most two listeners.
func (r *Registry) collapse(kind Kind, i int) *Registry {
	for k := range r.slots {
		s := &r.slots[k]
		for j := 0; j < s.size; j++ {
			if Kind(k) == kind && j == i {
				continue
			}
			return &Registry{kind: Kind(k), single: s.items[j]}
		}
	}
	return nil
}

// trim compacts dead weak listeners out of items[:size] and returns the new
// size.
func trim(items []any, size int) int {
	n := 0
	for i := 0; i < size; i++ {
		if isDead(items[i]) {
			continue
		}
		items[n] = items[i]
		n++
	}
	for i := n; i < size; i++ {
		items[i] = nil
	}
	if pruned := size - n; pruned > 0 {
		recordPrune(pruned)
	}
	return n
}

// prune drops every dead weak listener and returns the resulting registry.
// It must not be called while the registry is locked.
func (r *Registry) prune() *Registry {
	if r == nil {
		return nil
	}
	r.stale = false
	if !r.multi {
		if isDead(r.single) {
			recordPrune(1)
			return nil
		}
		return r
	}

	for k := range r.slots {
		s := &r.slots[k]
		s.size = trim(s.items, s.size)
		if s.size == 0 {
			s.items = nil
		}
	}

	switch r.Len() {
	case 0:
		return nil
	case 1:
		for k := range r.slots {
			if r.slots[k].size == 1 {
				return &Registry{kind: Kind(k), single: r.slots[k].items[0]}
			}
		}
	}
	return r
}

// snapshot is the frozen view of a registry a pass iterates over.
type snapshot struct {
	owner  *Registry
	single bool
	kind   Kind
	one    any
	slots  [kindCount][]any
}

// acquire locks the registry and returns a snapshot of it.
func (r *Registry) acquire() snapshot {
	if r == nil {
		return snapshot{}
	}
	if !r.multi {
		return snapshot{owner: r, single: true, kind: r.kind, one: r.single}
	}
	r.locked++
	snap := snapshot{owner: r}
	for k := range r.slots {
		s := &r.slots[k]
		snap.slots[k] = s.items[:s.size:s.size]
	}
	return snap
}

// release unlocks the registry the snapshot was taken from.
func (s *snapshot) release() {
	if s.owner != nil && s.owner.multi {
		s.owner.locked--
	}
}

// listeners returns the snapshot's registrations of one kind.
func (s *snapshot) listeners(kind Kind) []any {
	if s.single {
		if s.kind == kind {
			return []any{s.one}
		}
		return nil
	}
	return s.slots[kind]
}

// has reports whether the snapshot holds any listener of kind.
func (s *snapshot) has(kind Kind) bool {
	if s.single {
		return s.kind == kind
	}
	return len(s.slots[kind]) > 0
}
