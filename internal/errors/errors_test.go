package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsMapToHTTPStatus(t *testing.T) {
	tests := []struct {
		err    *ServiceError
		code   ErrorCode
		status int
	}{
		{Validation("bad field"), CodeValidation, http.StatusBadRequest},
		{Unauthorized("no"), CodeUnauthorized, http.StatusUnauthorized},
		{InvalidToken(stderrors.New("expired")), CodeInvalidToken, http.StatusUnauthorized},
		{Forbidden("no"), CodeForbidden, http.StatusForbidden},
		{NotFound("gone"), CodeNotFound, http.StatusNotFound},
		{Conflict("dup"), CodeConflict, http.StatusConflict},
		{RateLimited(), CodeRateLimited, http.StatusTooManyRequests},
		{Internal("boom", stderrors.New("cause")), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.status, tc.err.HTTPStatus)
	}
}

func TestGetServiceErrorThroughWrapping(t *testing.T) {
	inner := NotFound("user missing")
	wrapped := fmt.Errorf("fetch user: %w", inner)

	got := GetServiceError(wrapped)
	assert.Same(t, inner, got)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))

	assert.Nil(t, GetServiceError(stderrors.New("plain")))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Internal("save user", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestWithDetails(t *testing.T) {
	err := Validation("bad field").WithDetails("field", "email")
	assert.Equal(t, "email", err.Details["field"])
}
