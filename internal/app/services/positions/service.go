// Package positions implements tokenized-position upserts and reads.
package positions

import (
	"context"

	"github.com/estatelink/tre-backend/internal/app/domain/position"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/pkg/logger"
)

// Service implements position operations over a PositionStore.
type Service struct {
	store storage.PositionStore
	log   *logger.Logger
}

// New creates a positions service.
func New(store storage.PositionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("positions")
	}
	return &Service{store: store, log: log}
}

// UpsertInput addresses a position by its (userAddress,
// tokenizedRealEstateAddress) pair and carries the fields to merge.
type UpsertInput struct {
	UserAddress                string   `json:"userAddress"`
	TokenizedRealEstateAddress string   `json:"tokenizedRealEstateAddress"`
	CollateralDeposited        *float64 `json:"collateralDeposited,omitempty"`
	TREMinted                  *float64 `json:"treMinted,omitempty"`
	RewardsCollected           *float64 `json:"rewardsCollected,omitempty"`
	PaymentToken               *float64 `json:"paymentToken,omitempty"`
	PaymentTokenSymbol         *string  `json:"paymentTokenSymbol,omitempty"`
}

// Upsert creates the position for the address pair or merges the provided
// fields into the existing one. Omitted fields keep their stored values;
// concurrent upserts on the same pair resolve last-writer-wins.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (position.TokenizedPosition, error) {
	if in.UserAddress == "" {
		return position.TokenizedPosition{}, errors.Validation("userAddress is required")
	}
	if in.TokenizedRealEstateAddress == "" {
		return position.TokenizedPosition{}, errors.Validation("tokenizedRealEstateAddress is required")
	}

	current, err := s.store.GetPositionByKey(ctx, in.UserAddress, in.TokenizedRealEstateAddress)
	if err != nil {
		if !errors.IsNotFound(err) {
			return position.TokenizedPosition{}, err
		}
		created, err := s.store.CreatePosition(ctx, apply(position.TokenizedPosition{
			UserAddress:                in.UserAddress,
			TokenizedRealEstateAddress: in.TokenizedRealEstateAddress,
		}, in))
		if err == nil {
			s.log.WithContext(ctx).WithField("user_address", in.UserAddress).Info("position opened")
			return created, nil
		}
		if !errors.IsConflict(err) {
			return position.TokenizedPosition{}, err
		}
		// Lost the create race; merge into the winner's row.
		current, err = s.store.GetPositionByKey(ctx, in.UserAddress, in.TokenizedRealEstateAddress)
		if err != nil {
			return position.TokenizedPosition{}, err
		}
	}
	return s.store.UpdatePosition(ctx, apply(current, in))
}

func apply(p position.TokenizedPosition, in UpsertInput) position.TokenizedPosition {
	if in.CollateralDeposited != nil {
		p.CollateralDeposited = *in.CollateralDeposited
	}
	if in.TREMinted != nil {
		p.TREMinted = *in.TREMinted
	}
	if in.RewardsCollected != nil {
		p.RewardsCollected = *in.RewardsCollected
	}
	if in.PaymentToken != nil {
		p.PaymentToken = *in.PaymentToken
	}
	if in.PaymentTokenSymbol != nil {
		p.PaymentTokenSymbol = *in.PaymentTokenSymbol
	}
	return p
}

// Get returns the position for an address pair.
func (s *Service) Get(ctx context.Context, userAddress, treAddress string) (position.TokenizedPosition, error) {
	if userAddress == "" || treAddress == "" {
		return position.TokenizedPosition{}, errors.Validation("userAddress and tokenizedRealEstateAddress are required")
	}
	return s.store.GetPositionByKey(ctx, userAddress, treAddress)
}

// List returns positions matching the filter, newest first. An empty filter
// returns every position.
func (s *Service) List(ctx context.Context, filter position.LedgerFilter) ([]position.TokenizedPosition, error) {
	return s.store.ListPositions(ctx, filter)
}
