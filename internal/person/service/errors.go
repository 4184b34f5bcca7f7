package service

import (
	"context"
	"errors"

	dErrors "personvault/pkg/domain-errors"
	"personvault/pkg/platform/sentinel"
)

// translateWriteErr maps a failed Apply transaction onto a domain error.
// Timeouts count as write conflicts: the transaction rolled back in full and
// the caller may retry from scratch.
func translateWriteErr(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeWriteConflict, "write conflict, retry the request")
	case errors.Is(err, sentinel.ErrReferenceMissing):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "change set not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "person store unavailable")
	case errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply snapshot")
	}
}

// translateReadErr maps a failed read onto a domain error. Reads never
// mutate state, so every failure is safe to retry.
func translateReadErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "person store unavailable")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
