package api

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/errs"
)

var errInternal = errors.New("internal error")

// toConnectError maps domain errors to Connect codes. Unexpected errors are
// logged here and reach the client as a bare Internal error.
func toConnectError(procedure string, err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	var validationErr *errs.ValidationError
	switch {
	case errors.As(err, &validationErr), errors.Is(err, auth.ErrWeakPassword):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, errs.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, errs.ErrForbidden):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, errs.ErrInvalidState):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, errs.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, auth.ErrEmailExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	}

	slog.Error("Unhandled error", "procedure", procedure, "error", err)
	return connect.NewError(connect.CodeInternal, errInternal)
}
