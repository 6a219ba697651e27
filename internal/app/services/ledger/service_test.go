package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatelink/tre-backend/internal/app/domain/position"
	"github.com/estatelink/tre-backend/internal/app/storage/memory"
	"github.com/estatelink/tre-backend/internal/errors"
)

func TestAppendLogValidatesType(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	entry, err := svc.AppendLog(ctx, LogInput{
		UserAddress:                "0xAAA",
		TokenizedRealEstateAddress: "0xTRE1",
		TxType:                     "COLLATERAL_DEPOSIT",
		Amount:                     100,
		Symbol:                     "USDC",
	})
	require.NoError(t, err)
	assert.Equal(t, position.TxCollateralDeposit, entry.TxType)
	assert.NotEmpty(t, entry.ID)

	_, err = svc.AppendLog(ctx, LogInput{
		UserAddress:                "0xAAA",
		TokenizedRealEstateAddress: "0xTRE1",
		TxType:                     "SOMETHING_ELSE",
	})
	assert.True(t, errors.IsCode(err, errors.CodeValidation))

	_, err = svc.AppendLog(ctx, LogInput{TxType: "TRE_BUY"})
	assert.True(t, errors.IsCode(err, errors.CodeValidation), "missing addresses")
}

func TestAppendCrossChainRestrictsTypes(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	txn, err := svc.AppendCrossChain(ctx, CrossChainInput{
		LogInput: LogInput{
			UserAddress:                "0xAAA",
			TokenizedRealEstateAddress: "0xTRE1",
			TxType:                     "TRE_SELL",
			Amount:                     5,
		},
		CCIPLink: "https://ccip.example/tx1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://ccip.example/tx1", txn.CCIPLink)

	// Valid log types that never cross chains are still rejected here.
	_, err = svc.AppendCrossChain(ctx, CrossChainInput{
		LogInput: LogInput{
			UserAddress:                "0xAAA",
			TokenizedRealEstateAddress: "0xTRE1",
			TxType:                     "COLLATERAL_DEPOSIT",
		},
	})
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestListFilters(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	for _, userAddr := range []string{"0xAAA", "0xBBB"} {
		_, err := svc.AppendLog(ctx, LogInput{
			UserAddress:                userAddr,
			TokenizedRealEstateAddress: "0xTRE1",
			TxType:                     "TRE_BUY",
			Amount:                     1,
		})
		require.NoError(t, err)
	}

	all, err := svc.ListLogs(ctx, position.LedgerFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.ListLogs(ctx, position.LedgerFilter{UserAddress: "0xAAA"})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	txns, err := svc.ListCrossChain(ctx, position.LedgerFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}
