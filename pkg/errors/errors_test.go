package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.EqualError(t, appErr.Unwrap(), "boom")
}

func TestClonedAndWrappedErrorsMatchSentinel(t *testing.T) {
	cloned := Clone(ErrValidation, "File terlalu besar (maks 50MB)")
	assert.True(t, errors.Is(cloned, ErrValidation))
	assert.False(t, errors.Is(cloned, ErrUnauthorized))

	cause := fmt.Errorf("bucket down")
	wrapped := fmt.Errorf("upload: %w", WrapAs(ErrStorage, cause, ""))
	assert.True(t, errors.Is(wrapped, ErrStorage))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, ErrStorage.Message, FromError(wrapped).Message)
}
