package property

// Option is a functional option for configuring properties.
type Option[T any] func(*options[T])

// options holds configuration for property behavior.
type options[T any] struct {
	// equal decides whether Set changes the value.
	// If nil, the property kind's default is used.
	equal func(a, b T) bool

	// validator rejects values before they are stored.
	validator func(v T) error
}

// WithEqual sets the equality function used to decide whether a write
// changes the value. Equal writes fire nothing.
//
// Example:
//
//	p := property.New(point{}, property.WithEqual(func(a, b point) bool {
//	    return a.X == b.X && a.Y == b.Y
//	}))
func WithEqual[T any](fn func(a, b T) bool) Option[T] {
	return func(o *options[T]) {
		o.equal = fn
	}
}

// WithValidator sets a function that every written value must pass.
// A rejected write returns the validator's error and leaves the property
// unchanged.
//
// Example:
//
//	port := property.New(8080, property.WithValidator(func(v int) error {
//	    if v <= 0 || v > 65535 {
//	        return fmt.Errorf("port %d out of range", v)
//	    }
//	    return nil
//	}))
func WithValidator[T any](fn func(v T) error) Option[T] {
	return func(o *options[T]) {
		o.validator = fn
	}
}

// applyOptions applies the given options and returns the resulting config.
func applyOptions[T any](opts []Option[T]) options[T] {
	var o options[T]
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
