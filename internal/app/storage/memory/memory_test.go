package memory

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatelink/tre-backend/internal/app/domain/admin"
	"github.com/estatelink/tre-backend/internal/app/domain/position"
	"github.com/estatelink/tre-backend/internal/app/domain/user"
	"github.com/estatelink/tre-backend/internal/app/services/users"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/query"
)

func TestAdminCreateGetDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateAdmin(ctx, admin.Admin{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetAdmin(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	byEmail, err := s.GetAdminByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	require.NoError(t, s.DeleteAdmin(ctx, created.ID))
	_, err = s.GetAdmin(ctx, created.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestAdminEmailConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateAdmin(ctx, admin.Admin{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = s.CreateAdmin(ctx, admin.Admin{Name: "Imposter", Email: "ada@example.com"})
	assert.True(t, errors.IsConflict(err))
}

func TestDeleteMissingLeavesCountUnchanged(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, user.User{Name: "Ursula", EthAddress: "0xAAA"})
	require.NoError(t, err)

	err = s.DeleteUser(ctx, "no-such-id")
	assert.True(t, errors.IsNotFound(err))

	list, err := s.ListUsers(ctx, mustQuery(t, url.Values{}))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestUserAddressConflictOnUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, user.User{Name: "A", EthAddress: "0xAAA"})
	require.NoError(t, err)
	second, err := s.CreateUser(ctx, user.User{Name: "B", EthAddress: "0xBBB"})
	require.NoError(t, err)

	second.EthAddress = "0xAAA"
	_, err = s.UpdateUser(ctx, second)
	assert.True(t, errors.IsConflict(err))
}

func TestUpdateUserCollateralCAS(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, user.User{Name: "A", EthAddress: "0xAAA", CollateralDeposited: 50})
	require.NoError(t, err)

	updated, err := s.UpdateUserCollateral(ctx, created.ID, 50, 75)
	require.NoError(t, err)
	assert.Equal(t, 75.0, updated.CollateralDeposited)

	// A writer holding the old observation loses.
	_, err = s.UpdateUserCollateral(ctx, created.ID, 50, 100)
	assert.ErrorIs(t, err, storage.ErrStale)

	_, err = s.UpdateUserCollateral(ctx, "missing", 0, 1)
	assert.True(t, errors.IsNotFound(err))
}

func TestListUsersFilterSortPaginate(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := s.CreateUser(ctx, user.User{
			Name:              fmt.Sprintf("user-%d", i),
			EthAddress:        fmt.Sprintf("0x%03d", i),
			CurrentEstateCost: float64(i * 100),
			Verified:          i%2 == 0,
		})
		require.NoError(t, err)
	}

	list, err := s.ListUsers(ctx, mustQuery(t, url.Values{
		"currentEstateCost[gte]": {"200"},
		"sort":                   {"-currentEstateCost"},
	}))
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, 500.0, list[0].CurrentEstateCost)
	assert.Equal(t, 200.0, list[3].CurrentEstateCost)

	verified, err := s.ListUsers(ctx, mustQuery(t, url.Values{"isVerified": {"true"}}))
	require.NoError(t, err)
	assert.Len(t, verified, 2)

	page2, err := s.ListUsers(ctx, mustQuery(t, url.Values{
		"sort":  {"currentEstateCost"},
		"page":  {"2"},
		"limit": {"2"},
	}))
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, 300.0, page2[0].CurrentEstateCost)

	beyond, err := s.ListUsers(ctx, mustQuery(t, url.Values{"page": {"9"}}))
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestListUsersFiltersByCreatedAt(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, user.User{Name: "A", EthAddress: "0xAAA"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, user.User{Name: "B", EthAddress: "0xBBB"})
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	list, err := s.ListUsers(ctx, mustQuery(t, url.Values{"createdAt[gte]": {past}}))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	list, err = s.ListUsers(ctx, mustQuery(t, url.Values{"createdAt[gte]": {future}}))
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.ListUsers(ctx, mustQuery(t, url.Values{"createdAt[lt]": {future}}))
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPositionKeyLookupAndFilter(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.CreatePosition(ctx, position.TokenizedPosition{
		UserAddress:                "0xAAA",
		TokenizedRealEstateAddress: "0xTRE1",
		CollateralDeposited:        10,
	})
	require.NoError(t, err)
	_, err = s.CreatePosition(ctx, position.TokenizedPosition{
		UserAddress:                "0xAAA",
		TokenizedRealEstateAddress: "0xTRE2",
	})
	require.NoError(t, err)

	got, err := s.GetPositionByKey(ctx, "0xAAA", "0xTRE1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.GetPositionByKey(ctx, "0xAAA", "0xTRE3")
	assert.True(t, errors.IsNotFound(err))

	all, err := s.ListPositions(ctx, position.LedgerFilter{UserAddress: "0xAAA"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := s.ListPositions(ctx, position.LedgerFilter{TokenizedRealEstateAddress: "0xTRE2"})
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestLedgerAppendAndFilter(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.AppendPositionLog(ctx, position.PositionLog{
		UserAddress:                "0xAAA",
		TokenizedRealEstateAddress: "0xTRE1",
		TxType:                     position.TxCollateralDeposit,
		Amount:                     100,
	})
	require.NoError(t, err)
	_, err = s.AppendPositionLog(ctx, position.PositionLog{
		UserAddress:                "0xBBB",
		TokenizedRealEstateAddress: "0xTRE1",
		TxType:                     position.TxTREBuy,
		Amount:                     5,
	})
	require.NoError(t, err)

	mine, err := s.ListPositionLogs(ctx, position.LedgerFilter{UserAddress: "0xAAA"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, position.TxCollateralDeposit, mine[0].TxType)

	txn, err := s.AppendCrossChainTxn(ctx, position.CrossChainTxn{
		UserAddress:                "0xAAA",
		TokenizedRealEstateAddress: "0xTRE1",
		TxType:                     position.TxTREBuy,
		CCIPLink:                   "https://ccip.example/tx1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, txn.ID)

	txns, err := s.ListCrossChainTxns(ctx, position.LedgerFilter{TokenizedRealEstateAddress: "0xTRE1"})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func mustQuery(t *testing.T, params url.Values) query.Query {
	t.Helper()
	parsed, err := users.Schema.Parse(params)
	require.NoError(t, err)
	return parsed
}
