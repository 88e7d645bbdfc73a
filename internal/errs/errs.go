// Package errs defines the error kinds shared by the split, ledger and
// settlement packages.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError carries every violation found in a proposed split.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	switch len(e.Violations) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + e.Violations[0]
	}
	return fmt.Sprintf("validation failed: %d violations: %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

// PreconditionError reports an operation that cannot run in the current
// state: missing entity, wrong lifecycle state or unauthorized actor.
// Err is one of the sentinel errors above.
type PreconditionError struct {
	Op     string
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// NotFound builds a PreconditionError for a missing entity.
func NotFound(op, format string, args ...any) error {
	return &PreconditionError{Op: op, Reason: fmt.Sprintf(format, args...), Err: ErrNotFound}
}

// Forbidden builds a PreconditionError for an actor lacking permission.
func Forbidden(op, format string, args ...any) error {
	return &PreconditionError{Op: op, Reason: fmt.Sprintf(format, args...), Err: ErrForbidden}
}

// InvalidState builds a PreconditionError for a lifecycle violation.
func InvalidState(op, format string, args ...any) error {
	return &PreconditionError{Op: op, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidState}
}

// InvariantViolation signals a defect: a property that must always hold
// did not. Callers log it and still return their diagnostic result.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", e.Invariant, e.Detail)
}

// DependencyFailure wraps an error from an external collaborator (store,
// cache) on a path whose failure must not undo the primary mutation.
type DependencyFailure struct {
	Dependency string
	Err        error
}

func (e *DependencyFailure) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyFailure) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
