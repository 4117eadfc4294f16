// Package errors provides structured, coded errors for propagate.
//
// Every error the engine can surface to application code maps to a
// registered code:
//   - engine: listener registration and notification (E100-E199)
//   - binding: bidirectional synchronization (E200-E299)
//   - collections: scoped locking and contention (E300-E399)
//   - config: propagate.json loading and validation (E400-E499)
//
// # Usage
//
//	err := errors.New("E201").
//	    WithDetail("binding counter to itself").
//	    WithSuggestion("Bind two distinct properties")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E201: Observable bound to itself
//	//
//	//   binding counter to itself
//	//
//	//   Hint: Bind two distinct properties
//
// Two errors with the same code match under errors.Is, so public sentinel
// values can be compared against errors created elsewhere with New.
package errors
