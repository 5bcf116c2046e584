package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	err := New("TEST", "something failed", http.StatusBadRequest)
	assert.Equal(t, "something failed", err.Error())

	withInternal := err.WithInternal(errors.New("db down"))
	assert.Equal(t, "something failed: db down", withInternal.Error())
	// the original must stay untouched
	assert.Nil(t, err.Internal)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrForbidden)
	assert.Equal(t, ErrForbidden.Code, appErr.Code)

	generic := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternalServer.Code, generic.Code)
	assert.Equal(t, http.StatusInternalServerError, generic.StatusCode)
	assert.EqualError(t, errors.Unwrap(generic), "boom")
}

func TestWrapKeepsInternal(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(cause, "operation failed")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
}
