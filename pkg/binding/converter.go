package binding

import "strconv"

// Converter translates values between the two endpoint types of a link.
type Converter[A, B any] struct {
	ToB   func(A) (B, error)
	FromB func(B) (A, error)
}

// Identity returns the converter used by BindBidirectional.
func Identity[T any]() Converter[T, T] {
	same := func(v T) (T, error) { return v, nil }
	return Converter[T, T]{ToB: same, FromB: same}
}

// IntString converts between integers and their decimal text. Text that
// does not parse fails the update and is rolled back.
func IntString() Converter[int, string] {
	return Converter[int, string]{
		ToB:   func(v int) (string, error) { return strconv.Itoa(v), nil },
		FromB: strconv.Atoi,
	}
}

// Inverse swaps the direction of c.
func (c Converter[A, B]) Inverse() Converter[B, A] {
	return Converter[B, A]{ToB: c.FromB, FromB: c.ToB}
}
