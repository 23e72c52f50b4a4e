package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageIncludesInternal(t *testing.T) {
	base := New("TEST", "something failed", http.StatusBadRequest)
	require.Equal(t, "something failed", base.Error())

	wrapped := base.WithInternal(errors.New("disk full"))
	require.Equal(t, "something failed: disk full", wrapped.Error())

	// WithInternal copies, the sentinel is untouched.
	require.Nil(t, base.Internal)
}

func TestUnwrapExposesInternal(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := ErrInternalServer.WithInternal(cause)

	require.ErrorIs(t, wrapped, cause)
}

func TestFromErrorPassesThroughAppError(t *testing.T) {
	appErr := FromError(ErrInvalidCredentials)
	require.Equal(t, ErrInvalidCredentials.Code, appErr.Code)
	require.Equal(t, http.StatusUnauthorized, appErr.StatusCode)
}

func TestFromErrorUnwrapsNestedAppError(t *testing.T) {
	nested := fmt.Errorf("handler: %w", ErrNotFound)

	appErr := FromError(nested)
	require.Equal(t, ErrNotFound.Code, appErr.Code)
	require.Equal(t, http.StatusNotFound, appErr.StatusCode)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, appErr.Code)
	require.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	require.EqualError(t, appErr.Internal, "boom")
}

func TestFromErrorNil(t *testing.T) {
	require.Nil(t, FromError(nil))
}

func TestWrapKeepsOriginal(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	appErr := Wrap(cause, "upstream unavailable")

	require.Equal(t, "INTERNAL_ERROR", appErr.Code)
	require.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	require.ErrorIs(t, appErr, cause)
}

func TestStatusCodesMatchSemantics(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, ErrUnauthorized.StatusCode)
	require.Equal(t, http.StatusUnauthorized, ErrUnverifiedUser.StatusCode)
	require.Equal(t, http.StatusUnauthorized, ErrInvalidOrExpiredToken.StatusCode)
	require.Equal(t, http.StatusUnauthorized, ErrRequiresPasswordLogin.StatusCode)
	require.Equal(t, http.StatusBadRequest, ErrInvalidOrExpiredOTP.StatusCode)
	require.Equal(t, http.StatusBadRequest, ErrFederatedAccount.StatusCode)
	require.Equal(t, http.StatusConflict, ErrEmailAlreadyRegistered.StatusCode)
	require.Equal(t, http.StatusUnprocessableEntity, ErrValidation.StatusCode)
	require.Equal(t, http.StatusTooManyRequests, ErrRateLimit.StatusCode)
}
