package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "validation failed", (&ValidationError{}).Error())
	assert.Equal(t, "validation failed: amount must be positive",
		(&ValidationError{Violations: []string{"amount must be positive"}}).Error())
	assert.Contains(t, (&ValidationError{Violations: []string{"a", "b"}}).Error(), "2 violations")
}

func TestPreconditionErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("GetSettlement", "settlement %s not found", "s1"))
	assert.True(t, IsNotFound(err))
	assert.False(t, errors.Is(err, ErrForbidden))

	var pe *PreconditionError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "GetSettlement", pe.Op)
	assert.Equal(t, "GetSettlement: settlement s1 not found", pe.Error())

	assert.True(t, errors.Is(Forbidden("op", "nope"), ErrForbidden))
	assert.True(t, errors.Is(InvalidState("op", "nope"), ErrInvalidState))
}

func TestDependencyFailureUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &DependencyFailure{Dependency: "balance cache", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "balance cache unavailable: connection refused", err.Error())
}
