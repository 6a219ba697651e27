package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatelink/tre-backend/internal/errors"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, err := NewSigner("test-secret", time.Hour)
	require.NoError(t, err)

	raw, err := signer.Sign(KindAdmin, "admin-1")
	require.NoError(t, err)

	claims, err := signer.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, KindAdmin, claims.Kind)
	assert.Equal(t, "admin-1", claims.Subject)
}

func TestVerifyExpired(t *testing.T) {
	signer, err := NewSigner("test-secret", time.Millisecond)
	require.NoError(t, err)

	raw, err := signer.Sign(KindNode, "node-1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = signer.Verify(raw)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidToken))
}

func TestVerifyWrongSecret(t *testing.T) {
	signer, err := NewSigner("secret-a", time.Hour)
	require.NoError(t, err)
	other, err := NewSigner("secret-b", time.Hour)
	require.NoError(t, err)

	raw, err := signer.Sign(KindAdmin, "admin-1")
	require.NoError(t, err)

	_, err = other.Verify(raw)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidToken))
}

func TestVerifyGarbage(t *testing.T) {
	signer, err := NewSigner("test-secret", time.Hour)
	require.NoError(t, err)

	_, err = signer.Verify("not.a.token")
	require.Error(t, err)
}

func TestNewSignerValidation(t *testing.T) {
	_, err := NewSigner("", time.Hour)
	require.Error(t, err)

	_, err = NewSigner("secret", 0)
	require.Error(t, err)
}
