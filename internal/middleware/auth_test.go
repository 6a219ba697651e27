package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/token"
)

func newSigner(t *testing.T) *token.Signer {
	t.Helper()
	signer, err := token.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	return signer
}

func staticResolver(ethAddress string, approved bool) Resolver {
	return func(context.Context, token.PrincipalKind, string) (string, bool, error) {
		return ethAddress, approved, nil
	}
}

func requestWithToken(t *testing.T, signer *token.Signer, kind token.PrincipalKind, id string) *http.Request {
	t.Helper()
	raw, err := signer.Sign(kind, id)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+raw)
	return r
}

func TestBearerAuthorizer(t *testing.T) {
	signer := newSigner(t)
	authorizer := NewBearerAuthorizer(signer, staticResolver("0xADA", true), token.KindAdmin)

	p, err := authorizer.Authorize(requestWithToken(t, signer, token.KindAdmin, "admin-1"))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", p.ID)
	assert.Equal(t, token.KindAdmin, p.Kind)
	assert.Equal(t, "0xADA", p.EthAddress)
}

func TestBearerAuthorizerMissingHeader(t *testing.T) {
	authorizer := NewBearerAuthorizer(newSigner(t), staticResolver("", true), token.KindAdmin)

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	_, err := authorizer.Authorize(r)
	assert.True(t, errors.IsCode(err, errors.CodeUnauthorized))
}

func TestBearerAuthorizerMalformedHeader(t *testing.T) {
	authorizer := NewBearerAuthorizer(newSigner(t), staticResolver("", true), token.KindAdmin)

	for _, header := range []string{"Bearer", "Basic abc", "Bearer "} {
		r := httptest.NewRequest(http.MethodGet, "/protected", nil)
		r.Header.Set("Authorization", header)
		_, err := authorizer.Authorize(r)
		assert.True(t, errors.IsCode(err, errors.CodeUnauthorized), header)
	}
}

func TestBearerAuthorizerExpiredToken(t *testing.T) {
	shortLived, err := token.NewSigner("test-secret", time.Millisecond)
	require.NoError(t, err)
	verifier, err := token.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	authorizer := NewBearerAuthorizer(verifier, staticResolver("", true), token.KindAdmin)

	r := requestWithToken(t, shortLived, token.KindAdmin, "admin-1")
	time.Sleep(5 * time.Millisecond)

	_, err = authorizer.Authorize(r)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidToken))
}

func TestBearerAuthorizerWrongKind(t *testing.T) {
	signer := newSigner(t)
	authorizer := NewBearerAuthorizer(signer, staticResolver("", true), token.KindAdmin)

	_, err := authorizer.Authorize(requestWithToken(t, signer, token.KindNode, "node-1"))
	assert.True(t, errors.IsCode(err, errors.CodeForbidden))
}

func TestNodeAuthorizerRequiresApproval(t *testing.T) {
	signer := newSigner(t)

	unapproved := NewNodeAuthorizer(signer, staticResolver("0xNODE", false))
	_, err := unapproved.Authorize(requestWithToken(t, signer, token.KindNode, "node-1"))
	assert.True(t, errors.IsCode(err, errors.CodeForbidden))

	approved := NewNodeAuthorizer(signer, staticResolver("0xNODE", true))
	p, err := approved.Authorize(requestWithToken(t, signer, token.KindNode, "node-1"))
	require.NoError(t, err)
	assert.True(t, p.Approved)
}

func TestAPIKeyAuthorizer(t *testing.T) {
	authorizer := NewAPIKeyAuthorizer("super-secret")

	r := httptest.NewRequest(http.MethodGet, "/internal", nil)
	r.Header.Set("x-api-key", "super-secret")
	p, err := authorizer.Authorize(r)
	require.NoError(t, err)
	assert.Equal(t, token.KindService, p.Kind)

	r = httptest.NewRequest(http.MethodGet, "/internal", nil)
	r.Header.Set("x-api-key", "wrong")
	_, err = authorizer.Authorize(r)
	assert.True(t, errors.IsCode(err, errors.CodeUnauthorized))

	r = httptest.NewRequest(http.MethodGet, "/internal", nil)
	_, err = authorizer.Authorize(r)
	assert.True(t, errors.IsCode(err, errors.CodeUnauthorized))
}

func TestRequireSetsPrincipal(t *testing.T) {
	signer := newSigner(t)
	authorizer := NewBearerAuthorizer(signer, staticResolver("0xADA", true), token.KindAdmin)

	var seen Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	writeErr := func(w http.ResponseWriter, r *http.Request, err error) {
		serviceErr := errors.GetServiceError(err)
		w.WriteHeader(serviceErr.HTTPStatus)
	}

	handler := Require(authorizer, writeErr)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithToken(t, signer, token.KindAdmin, "admin-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", seen.ID)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
