// Package observe is the listener registry and change-notification core of
// propagate.
//
// An observable owns a Subject. Listeners of five kinds register on it, and
// the owner fires changes through it:
//
//	subj := observe.NewSubject[int, observe.None](src, nil, nil)
//	subj.AddChangeListener(observe.OnChanged(func(src observe.Observable, old, new int) {
//	    fmt.Println(old, "->", new)
//	}))
//	subj.FireValue(1, 2) // prints "1 -> 2"
//	subj.FireValue(2, 2) // suppressed, values are equal
//
// # Listener Kinds
//
// Within one pass listeners run in a fixed order:
//
//  1. Invalidation (skipped for sub-changes)
//  2. SubInvalidation (always, with the sub flag)
//  3. Change (only when the value changed and the event is not a sub-change)
//  4. Collection (when a structural delta exists and 3 was not suppressed)
//  5. SubChange (when the value changed or the event is a sub-change)
//
// # Reentrancy
//
// Listeners may add or remove listeners, or fire further changes, while a
// pass is running. The pass works on a snapshot that is never written: adds
// and removes made during a pass go to fresh backing storage.
//
// # Faults
//
// A panicking listener does not stop the pass. The panic is recovered,
// wrapped in a *ListenerFault and handed to the process-wide FaultSink,
// which defaults to logging through slog.
//
// # Weak Listeners
//
// A listener implementing Weak is polled during passes. Once Alive reports
// false it is skipped and dropped from the registry.
package observe
