package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatelink/tre-backend/internal/app/storage/memory"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/token"
)

func newService(t *testing.T) *Service {
	t.Helper()
	signer, err := token.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	store := memory.New()
	return New(store, store, signer, nil)
}

func TestAdminSignupAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, tok, err := svc.AdminSignup(ctx, AdminSignupInput{
		Name:     "Ada",
		Email:    "Ada@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, "correct-horse", created.PasswordHash)

	found, tok, err := svc.AdminLogin(ctx, Credentials{Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.Equal(t, created.ID, found.ID)
}

func TestAdminLoginFailuresAreUniform(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, _, err := svc.AdminSignup(ctx, AdminSignupInput{Name: "Ada", Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, _, wrongPassword := svc.AdminLogin(ctx, Credentials{Email: "ada@example.com", Password: "wrong-horse"})
	_, _, unknownEmail := svc.AdminLogin(ctx, Credentials{Email: "nobody@example.com", Password: "correct-horse"})

	for _, err := range []error{wrongPassword, unknownEmail} {
		require.Error(t, err)
		serviceErr := errors.GetServiceError(err)
		require.NotNil(t, serviceErr)
		assert.Equal(t, errors.CodeUnauthorized, serviceErr.Code)
		assert.Equal(t, "incorrect email or password", serviceErr.Message)
	}
}

func TestAdminSignupValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, _, err := svc.AdminSignup(ctx, AdminSignupInput{Email: "a@b.c", Password: "longenough"})
	assert.True(t, errors.IsCode(err, errors.CodeValidation), "missing name")

	_, _, err = svc.AdminSignup(ctx, AdminSignupInput{Name: "A", Email: "not-an-email", Password: "longenough"})
	assert.True(t, errors.IsCode(err, errors.CodeValidation), "bad email")

	_, _, err = svc.AdminSignup(ctx, AdminSignupInput{Name: "A", Email: "a@b.c", Password: "short"})
	assert.True(t, errors.IsCode(err, errors.CodeValidation), "short password")
}

func TestAdminSignupDuplicateEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, _, err := svc.AdminSignup(ctx, AdminSignupInput{Name: "Ada", Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, _, err = svc.AdminSignup(ctx, AdminSignupInput{Name: "Twin", Email: "ada@example.com", Password: "correct-horse"})
	assert.True(t, errors.IsConflict(err))
}

func TestNodeSignupStartsUnapproved(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, tok, err := svc.NodeSignup(ctx, NodeSignupInput{
		Name:       "node-1",
		Email:      "node@example.com",
		Password:   "correct-horse",
		EthAddress: "0xNODE",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.False(t, created.Approved)

	// Login works while unapproved; route gates enforce approval.
	_, _, err = svc.NodeLogin(ctx, Credentials{Email: "node@example.com", Password: "correct-horse"})
	require.NoError(t, err)
}

func TestNodeSignupUniqueness(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, _, err := svc.NodeSignup(ctx, NodeSignupInput{
		Name: "node-1", Email: "node@example.com", Password: "correct-horse", EthAddress: "0xNODE",
	})
	require.NoError(t, err)

	// Only the email is unique; operators may share a wallet address.
	_, _, err = svc.NodeSignup(ctx, NodeSignupInput{
		Name: "node-2", Email: "other@example.com", Password: "correct-horse", EthAddress: "0xNODE",
	})
	require.NoError(t, err)

	_, _, err = svc.NodeSignup(ctx, NodeSignupInput{
		Name: "node-3", Email: "node@example.com", Password: "correct-horse", EthAddress: "0xOTHER",
	})
	require.True(t, errors.IsConflict(err))
	assert.Contains(t, err.Error(), "email")
}

func TestNodeSignupRequiresEthAddress(t *testing.T) {
	svc := newService(t)
	_, _, err := svc.NodeSignup(context.Background(), NodeSignupInput{
		Name:     "node-1",
		Email:    "node@example.com",
		Password: "correct-horse",
	})
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestLookup(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a, _, err := svc.AdminSignup(ctx, AdminSignupInput{Name: "Ada", Email: "ada@example.com", Password: "correct-horse", EthAddress: "0xADA"})
	require.NoError(t, err)
	n, _, err := svc.NodeSignup(ctx, NodeSignupInput{Name: "node", Email: "node@example.com", Password: "correct-horse", EthAddress: "0xNODE"})
	require.NoError(t, err)

	ethAddress, approved, err := svc.Lookup(ctx, token.KindAdmin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xADA", ethAddress)
	assert.True(t, approved)

	_, approved, err = svc.Lookup(ctx, token.KindNode, n.ID)
	require.NoError(t, err)
	assert.False(t, approved)

	_, _, err = svc.Lookup(ctx, token.KindAdmin, "gone")
	assert.True(t, errors.IsCode(err, errors.CodeUnauthorized))
}
