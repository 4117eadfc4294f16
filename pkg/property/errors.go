package property

import (
	perrors "github.com/vango-dev/propagate/internal/errors"
)

// ErrBound is returned by Set while the property follows another
// observable.
var ErrBound error = perrors.New("E206")

// ErrSelfBound is returned when a property is asked to follow itself.
var ErrSelfBound error = perrors.New("E207")

// ErrNilSource is returned when a property is asked to follow nil.
var ErrNilSource error = perrors.New("E208")
