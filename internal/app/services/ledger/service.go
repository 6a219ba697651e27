// Package ledger implements the append-only position and cross-chain
// transaction histories.
package ledger

import (
	"context"

	"github.com/estatelink/tre-backend/internal/app/domain/position"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/pkg/logger"
)

// Service implements ledger operations over a LedgerStore.
type Service struct {
	store storage.LedgerStore
	log   *logger.Logger
}

// New creates a ledger service.
func New(store storage.LedgerStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{store: store, log: log}
}

// LogInput carries one position log entry.
type LogInput struct {
	UserAddress                string  `json:"userAddress"`
	TokenizedRealEstateAddress string  `json:"tokenizedRealEstateAddress"`
	TxType                     string  `json:"txType"`
	Amount                     float64 `json:"amount"`
	Symbol                     string  `json:"symbol"`
	TxHash                     string  `json:"txHash"`
}

func (in LogInput) validate() error {
	if in.UserAddress == "" {
		return errors.Validation("userAddress is required")
	}
	if in.TokenizedRealEstateAddress == "" {
		return errors.Validation("tokenizedRealEstateAddress is required")
	}
	return nil
}

// AppendLog records one position transaction. The type must be one of the
// known transaction types.
func (s *Service) AppendLog(ctx context.Context, in LogInput) (position.PositionLog, error) {
	if err := in.validate(); err != nil {
		return position.PositionLog{}, err
	}
	txType := position.TxType(in.TxType)
	if !position.ValidLogType(txType) {
		return position.PositionLog{}, errors.Validation("unknown transaction type")
	}
	entry, err := s.store.AppendPositionLog(ctx, position.PositionLog{
		UserAddress:                in.UserAddress,
		TokenizedRealEstateAddress: in.TokenizedRealEstateAddress,
		TxType:                     txType,
		Amount:                     in.Amount,
		Symbol:                     in.Symbol,
		TxHash:                     in.TxHash,
	})
	if err != nil {
		return position.PositionLog{}, err
	}
	s.log.WithContext(ctx).WithFields(map[string]any{
		"user_address": in.UserAddress,
		"tx_type":      in.TxType,
	}).Info("position log appended")
	return entry, nil
}

// ListLogs returns position logs matching the filter, newest first.
func (s *Service) ListLogs(ctx context.Context, filter position.LedgerFilter) ([]position.PositionLog, error) {
	return s.store.ListPositionLogs(ctx, filter)
}

// CrossChainInput carries one cross-chain transaction record.
type CrossChainInput struct {
	LogInput
	CCIPLink string `json:"ccipLink"`
}

// AppendCrossChain records one cross-chain transaction. Only buy and sell
// movements cross chains, so only those types are accepted.
func (s *Service) AppendCrossChain(ctx context.Context, in CrossChainInput) (position.CrossChainTxn, error) {
	if err := in.validate(); err != nil {
		return position.CrossChainTxn{}, err
	}
	txType := position.TxType(in.TxType)
	if !position.ValidCrossChainType(txType) {
		return position.CrossChainTxn{}, errors.Validation("cross-chain transactions must be TRE_BUY or TRE_SELL")
	}
	entry, err := s.store.AppendCrossChainTxn(ctx, position.CrossChainTxn{
		UserAddress:                in.UserAddress,
		TokenizedRealEstateAddress: in.TokenizedRealEstateAddress,
		TxType:                     txType,
		Amount:                     in.Amount,
		Symbol:                     in.Symbol,
		TxHash:                     in.TxHash,
		CCIPLink:                   in.CCIPLink,
	})
	if err != nil {
		return position.CrossChainTxn{}, err
	}
	s.log.WithContext(ctx).WithFields(map[string]any{
		"user_address": in.UserAddress,
		"tx_type":      in.TxType,
	}).Info("cross-chain txn appended")
	return entry, nil
}

// ListCrossChain returns cross-chain transactions matching the filter,
// newest first.
func (s *Service) ListCrossChain(ctx context.Context, filter position.LedgerFilter) ([]position.CrossChainTxn, error) {
	return s.store.ListCrossChainTxns(ctx, filter)
}
