package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("like: %w", Conflict("Scream already liked"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, NotFound("Scream not found"), ErrNotFound)
	assert.ErrorIs(t, Forbidden("no"), ErrForbidden)
	assert.ErrorIs(t, Unauthorized("no"), ErrUnauthorized)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Scream not found", Message(NotFound("Scream not found")))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "", Message(nil))
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"handle": "Must not be empty", "email": "Must not be empty"}}
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed (email: Must not be empty, handle: Must not be empty)", err.Error())

	var verr *ValidationError
	assert.ErrorAs(t, fmt.Errorf("signup: %w", Invalid("body", "Body must not be empty")), &verr)
	assert.Equal(t, "Body must not be empty", verr.Fields["body"])
}

func TestStoreAndPartialBatchErrors(t *testing.T) {
	cause := errors.New("connection reset")
	serr := &StoreError{Op: "commit", Err: cause}
	assert.ErrorIs(t, serr, ErrStoreUnavailable)
	assert.ErrorIs(t, serr, cause)

	perr := &PartialBatchError{Applied: 2, Total: 5, Err: serr}
	assert.ErrorIs(t, perr, ErrPartialBatch)
	assert.ErrorIs(t, perr, ErrStoreUnavailable)
	assert.Contains(t, perr.Error(), "applied 2 of 5 ops")
}
