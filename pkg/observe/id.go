package observe

import (
	"runtime"
	"sync/atomic"
)

// globalIDCounter is the source of unique IDs for all observables.
var globalIDCounter uint64

// NextID returns the next unique observable ID.
// IDs are monotonically increasing and never reused.
func NextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}

// Identity is an Observable that is nothing but an identity. Owners embed
// it to satisfy Observable.
type Identity struct {
	id uint64
}

// NewIdentity allocates a fresh identity.
func NewIdentity() Identity {
	return Identity{id: NextID()}
}

// ID returns the unique identifier.
func (i Identity) ID() uint64 {
	return i.id
}

// GoroutineID returns the id of the calling goroutine. Package binding uses
// it to tell a link's own echoes from concurrent writes.
// It parses the header of runtime.Stack ("goroutine <id> [...]").
func GoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // Skip "goroutine "
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
