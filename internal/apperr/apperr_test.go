package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageKeepsOperationName(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("create deletion log", cause)

	require.Error(t, err)
	assert.True(t, HasCode(err, CodeStorage))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "create deletion log")
}

func TestWrappingPreservesExistingCode(t *testing.T) {
	v := Validation("reason too short")

	assert.True(t, HasCode(Storage("soft delete", v), CodeValidation))
	assert.True(t, HasCode(Unexpected("cascade", v), CodeValidation))
	assert.True(t, HasCode(fmt.Errorf("outer: %w", v), CodeValidation))
}

func TestNilErrorsStayNil(t *testing.T) {
	assert.NoError(t, Storage("op", nil))
	assert.NoError(t, Unexpected("op", nil))
	assert.False(t, HasCode(nil, CodeStorage))
}

func TestValidationfKeepsSentinel(t *testing.T) {
	err := Validationf("property 4: %w", ErrAlreadyDeleted)

	assert.True(t, HasCode(err, CodeValidation))
	assert.ErrorIs(t, err, ErrAlreadyDeleted)
}

func TestNotFoundDefaultsToSentinel(t *testing.T) {
	err := NotFound("load review", nil)

	assert.True(t, HasCode(err, CodeNotFound))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForeignErrorsAreUnexpected(t *testing.T) {
	assert.Equal(t, CodeUnexpected, CodeOf(errors.New("boom")))
}
