// Package collections provides observable sets and lists guarded by a
// scoped read lock.
//
// Mutations fire their own deltas to collection listeners:
//
//	s := collections.NewSet[string]()
//	s.AddCollectionListener(observe.OnCollectionChanged(func(src observe.Observable, d observe.Delta[string]) {
//	    fmt.Println("added", d.Added, "removed", d.Removed)
//	}))
//	s.Add("a", "b")
//
// Enumeration goes through a Guard, which holds the collection's read lock
// until released:
//
//	s.Read(func(g *collections.Guard[string]) {
//	    for e := range g.All() {
//	        fmt.Println(e)
//	    }
//	})
//
// Whole-collection replacement is diffed with DiffSets (element deltas) and
// DiffLists (one replace span).
package collections
