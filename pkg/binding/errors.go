package binding

import (
	"fmt"

	perrors "github.com/vango-dev/propagate/internal/errors"
)

var (
	// ErrSelfBinding is returned when both endpoints are the same observable.
	ErrSelfBinding error = perrors.New("E201")

	// ErrNilEndpoint is returned when an endpoint is nil.
	ErrNilEndpoint error = perrors.New("E202")

	// ErrNilConverter is returned when a converter lacks a direction.
	ErrNilConverter error = perrors.New("E209")

	// ErrAlreadyBound is returned when the pair is already linked, in
	// either order.
	ErrAlreadyBound error = perrors.New("E203")

	// ErrUpdateFailed matches every SyncError.
	ErrUpdateFailed error = perrors.New("E204")

	// ErrRollbackFailed matches SyncErrors whose rollback failed too. The
	// link is gone once one of those is reported.
	ErrRollbackFailed error = perrors.New("E205")

	// ErrContentFailed matches every ContentError.
	ErrContentFailed error = perrors.New("E210")
)

// SyncError reports a value that could not be pushed across a link.
type SyncError struct {
	// Err is the conversion or write failure.
	Err error
	// RollbackErr is set when restoring the source endpoint failed as well.
	RollbackErr error
}

func (e *SyncError) Error() string {
	if e.RollbackErr != nil {
		return fmt.Sprintf("binding: update failed: %v; rollback failed: %v; link removed", e.Err, e.RollbackErr)
	}
	return fmt.Sprintf("binding: update failed: %v; source restored", e.Err)
}

func (e *SyncError) Unwrap() []error {
	if e.RollbackErr != nil {
		return []error{ErrUpdateFailed, ErrRollbackFailed, e.Err, e.RollbackErr}
	}
	return []error{ErrUpdateFailed, e.Err}
}

// ContentError reports a source delta a content link could not replay on
// its target. The target stays out of step until the next delta applies.
type ContentError struct {
	// Err is the failure applying the delta.
	Err error
	// ResetErr is the failure of the full resynchronization that followed.
	ResetErr error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("binding: content update failed: %v; reset failed: %v", e.Err, e.ResetErr)
}

func (e *ContentError) Unwrap() []error {
	return []error{ErrContentFailed, e.Err, e.ResetErr}
}
