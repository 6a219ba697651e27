package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatelink/tre-backend/internal/errors"
)

func rateLimitRequest(rl *RateLimiter, remoteAddr string) int {
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/register", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterKeysByRemoteAddr(t *testing.T) {
	var lastErr error
	write := func(w http.ResponseWriter, r *http.Request, err error) {
		lastErr = err
		w.WriteHeader(errors.GetServiceError(err).HTTPStatus)
	}
	rl := NewRateLimiter(1, 1, nil, write)

	require.Equal(t, http.StatusOK, rateLimitRequest(rl, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, rateLimitRequest(rl, "10.0.0.1:1234"))
	assert.True(t, errors.IsCode(lastErr, errors.CodeRateLimited))

	// A different client address gets its own bucket.
	assert.Equal(t, http.StatusOK, rateLimitRequest(rl, "10.0.0.2:1234"))
}
