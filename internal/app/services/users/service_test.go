package users

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatelink/tre-backend/internal/app/domain/user"
	"github.com/estatelink/tre-backend/internal/app/storage/memory"
	"github.com/estatelink/tre-backend/internal/errors"
)

func newService() *Service {
	return New(memory.New(), nil)
}

func registerOne(t *testing.T, svc *Service, ethAddress string) user.User {
	t.Helper()
	created, err := svc.Register(context.Background(), RegisterInput{
		Name:                 "Ursula",
		EthAddress:           ethAddress,
		Country:              "PT",
		CurrentEstateCost:    100000,
		PercentageToTokenize: 25,
	})
	require.NoError(t, err)
	return created
}

func TestRegisterAndGet(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created := registerOne(t, svc, "0xAAA")
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Verified)
	assert.False(t, created.Rejected)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	byAddress, err := svc.GetByEthAddress(ctx, "0xAAA")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byAddress.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{EthAddress: "0xAAA"})
	assert.True(t, errors.IsCode(err, errors.CodeValidation), "missing name")

	_, err = svc.Register(ctx, RegisterInput{Name: "U"})
	assert.True(t, errors.IsCode(err, errors.CodeValidation), "missing address")

	_, err = svc.Register(ctx, RegisterInput{Name: "U", EthAddress: "0xAAA", PercentageToTokenize: 120})
	assert.True(t, errors.IsCode(err, errors.CodeValidation), "percentage over 100")

	_, err = svc.Register(ctx, RegisterInput{Name: "U", EthAddress: "0xAAA", CurrentEstateCost: -1})
	assert.True(t, errors.IsCode(err, errors.CodeValidation), "negative cost")
}

func TestRegisterDuplicateAddress(t *testing.T) {
	svc := newService()
	registerOne(t, svc, "0xAAA")

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Dup", EthAddress: "0xAAA"})
	assert.True(t, errors.IsConflict(err))
}

func TestUpdateMergesOnlyProvidedFields(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	created := registerOne(t, svc, "0xAAA")

	newName := "Renamed"
	updated, err := svc.Update(ctx, created.ID, user.Update{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, created.Country, updated.Country)
	assert.Equal(t, created.CurrentEstateCost, updated.CurrentEstateCost)
}

func TestVerifyRejectExclusivity(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	first := registerOne(t, svc, "0xAAA")
	verified, err := svc.Verify(ctx, first.ID, "node-1")
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	assert.Equal(t, "node-1", verified.VerifiedBy)
	require.NotNil(t, verified.VerifiedAt)
	assert.Equal(t, "node-1", verified.NodeOperatorAssigned)

	// Rejecting a verified user flips the flags and clears the
	// verification stamps.
	rejected, err := svc.Reject(ctx, first.ID, "node-2", "changed my mind")
	require.NoError(t, err)
	assert.True(t, rejected.Rejected)
	assert.False(t, rejected.Verified)
	assert.Empty(t, rejected.VerifiedBy)
	assert.Nil(t, rejected.VerifiedAt)
	assert.Equal(t, "node-2", rejected.RejectedBy)

	second := registerOne(t, svc, "0xBBB")
	rejected, err = svc.Reject(ctx, second.ID, "node-1", "incomplete KYC")
	require.NoError(t, err)
	assert.True(t, rejected.Rejected)
	assert.Equal(t, "incomplete KYC", rejected.RejectionReason)
	require.NotNil(t, rejected.RejectedAt)

	// Verifying a rejected user re-reviews it: the rejection and its
	// stamps are cleared.
	reviewed, err := svc.Verify(ctx, second.ID, "node-2")
	require.NoError(t, err)
	assert.True(t, reviewed.Verified)
	assert.False(t, reviewed.Rejected)
	assert.Empty(t, reviewed.RejectedBy)
	assert.Nil(t, reviewed.RejectedAt)
	assert.Empty(t, reviewed.RejectionReason)
	assert.Equal(t, "node-2", reviewed.VerifiedBy)
}

func TestRejectRequiresReason(t *testing.T) {
	svc := newService()
	created := registerOne(t, svc, "0xAAA")

	_, err := svc.Reject(context.Background(), created.ID, "node-1", "")
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestCollateralAddSubtract(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	registerOne(t, svc, "0xAAA")

	updated, err := svc.AddCollateral(ctx, "0xAAA", 150)
	require.NoError(t, err)
	assert.Equal(t, 150.0, updated.CollateralDeposited)

	updated, err = svc.SubtractCollateral(ctx, "0xAAA", 50)
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.CollateralDeposited)

	_, err = svc.AddCollateral(ctx, "0xMISSING", 10)
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.AddCollateral(ctx, "0xAAA", 0)
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestConcurrentCollateralAddsAllLand(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	registerOne(t, svc, "0xAAA")

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddCollateral(ctx, "0xAAA", 10); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("collateral add failed: %v", err)
	}

	final, err := svc.GetByEthAddress(ctx, "0xAAA")
	require.NoError(t, err)
	assert.Equal(t, float64(writers*10), final.CollateralDeposited)
}

func TestListValidatesParams(t *testing.T) {
	svc := newService()
	for i := 0; i < 3; i++ {
		registerOne(t, svc, fmt.Sprintf("0x%03d", i))
	}

	list, err := svc.List(context.Background(), url.Values{"country": {"PT"}})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = svc.List(context.Background(), url.Values{"passwordHash": {"x"}})
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}
