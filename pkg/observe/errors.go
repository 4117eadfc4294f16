package observe

import (
	perrors "github.com/vango-dev/propagate/internal/errors"
)

// ErrNilListener is the panic value of registering a nil listener.
var ErrNilListener error = perrors.New("E101")

// ErrListenerPanic matches every *ListenerFault under errors.Is.
var ErrListenerPanic error = perrors.New("E102")

// ErrListenerType is reported when a registered listener does not accept
// the value type carried by a notification.
var ErrListenerType error = perrors.New("E103")

// ErrNilObservable is the panic value of creating a Subject without an
// observable.
var ErrNilObservable error = perrors.New("E104")
