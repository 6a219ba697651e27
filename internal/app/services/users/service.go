// Package users implements the end-user record operations: registration,
// profile reads, node-driven review, and collateral accounting.
package users

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"time"

	"github.com/estatelink/tre-backend/internal/app/domain/user"
	"github.com/estatelink/tre-backend/internal/app/metrics"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/query"
	"github.com/estatelink/tre-backend/pkg/logger"
)

// Schema declares the user fields that list requests may filter, sort, and
// project on. Anything outside this set is rejected before it reaches the
// store.
var Schema = query.NewSchema(map[string]query.Field{
	"name":                 {Column: "name", Kind: query.String},
	"ethAddress":           {Column: "eth_address", Kind: query.String},
	"country":              {Column: "country", Kind: query.String},
	"state":                {Column: "state", Kind: query.String},
	"kycType":              {Column: "kyc_type", Kind: query.String},
	"nodeOperatorAssigned": {Column: "node_operator_assigned", Kind: query.String},
	"currentEstateCost":    {Column: "current_estate_cost", Kind: query.Number},
	"percentageToTokenize": {Column: "percentage_to_tokenize", Kind: query.Number},
	"rewards":              {Column: "rewards", Kind: query.Number},
	"collateralDeposited":  {Column: "collateral_deposited", Kind: query.Number},
	"isVerified":           {Column: "is_verified", Kind: query.Bool},
	"isRejected":           {Column: "is_rejected", Kind: query.Bool},
	"createdAt":            {Column: "created_at", Kind: query.Timestamp},
	"updatedAt":            {Column: "updated_at", Kind: query.Timestamp},
})

// casRetries bounds the conditional-write loop on collateral updates. A
// writer can lose one round per concurrent contender, so the bound stays
// well above any realistic burst.
const casRetries = 32

// Service implements user record operations over a UserStore.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New creates a users service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// RegisterInput carries the fields accepted on user registration.
type RegisterInput struct {
	Name                   string  `json:"name"`
	EthAddress             string  `json:"ethAddress"`
	Country                string  `json:"country"`
	State                  string  `json:"state"`
	Address                string  `json:"address"`
	KYCType                string  `json:"kycType"`
	KYCID                  string  `json:"kycId"`
	KYCDocumentImage       string  `json:"kycDocumentImage"`
	OwnershipDocumentImage string  `json:"ownershipDocumentImage"`
	RealEstateInfo         string  `json:"realEstateInfo"`
	CurrentEstateCost      float64 `json:"currentEstateCost"`
	PercentageToTokenize   float64 `json:"percentageToTokenize"`
	PaymentToken           string  `json:"paymentToken"`
	PaymentTokenSymbol     string  `json:"paymentTokenSymbol"`
	Signature              string  `json:"signature"`
}

// Register creates a user record. EthAddress is the natural key; a second
// registration for the same address conflicts.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	if in.Name == "" {
		return user.User{}, errors.Validation("name is required")
	}
	if in.EthAddress == "" {
		return user.User{}, errors.Validation("ethAddress is required")
	}
	if in.CurrentEstateCost < 0 {
		return user.User{}, errors.Validation("currentEstateCost must not be negative")
	}
	if in.PercentageToTokenize < 0 || in.PercentageToTokenize > 100 {
		return user.User{}, errors.Validation("percentageToTokenize must be between 0 and 100")
	}
	created, err := s.store.CreateUser(ctx, user.User{
		Name:                   in.Name,
		EthAddress:             in.EthAddress,
		Country:                in.Country,
		State:                  in.State,
		Address:                in.Address,
		KYCType:                in.KYCType,
		KYCID:                  in.KYCID,
		KYCDocumentImage:       in.KYCDocumentImage,
		OwnershipDocumentImage: in.OwnershipDocumentImage,
		RealEstateInfo:         in.RealEstateInfo,
		CurrentEstateCost:      in.CurrentEstateCost,
		PercentageToTokenize:   in.PercentageToTokenize,
		PaymentToken:           in.PaymentToken,
		PaymentTokenSymbol:     in.PaymentTokenSymbol,
		Signature:              in.Signature,
	})
	if err != nil {
		if errors.IsConflict(err) {
			return user.User{}, errors.Conflict("a user with that ETH address already exists")
		}
		return user.User{}, err
	}
	s.log.WithContext(ctx).WithField("user_id", created.ID).Info("user registered")
	return created, nil
}

// Get returns one user by ID.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	if id == "" {
		return user.User{}, errors.Validation("user ID is required")
	}
	return s.store.GetUser(ctx, id)
}

// GetByEthAddress returns one user by wallet address.
func (s *Service) GetByEthAddress(ctx context.Context, ethAddress string) (user.User, error) {
	if ethAddress == "" {
		return user.User{}, errors.Validation("ETH address is required")
	}
	return s.store.GetUserByEthAddress(ctx, ethAddress)
}

// List validates the raw request parameters against the user schema and
// returns the matching page.
func (s *Service) List(ctx context.Context, params url.Values) ([]user.User, error) {
	q, err := Schema.Parse(params)
	if err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx, q)
}

// Update applies a partial update; nil fields keep their stored values.
func (s *Service) Update(ctx context.Context, id string, upd user.Update) (user.User, error) {
	current, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	applyUpdate(&current, upd)
	return s.store.UpdateUser(ctx, current)
}

// Delete removes a user record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.Validation("user ID is required")
	}
	return s.store.DeleteUser(ctx, id)
}

// Verify marks a user verified by the given node operator. Verified and
// rejected are mutually exclusive, so verifying a rejected user clears the
// rejection and its stamps.
func (s *Service) Verify(ctx context.Context, userID, nodeID string) (user.User, error) {
	current, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	now := time.Now().UTC()
	current.Verified = true
	current.VerifiedBy = nodeID
	current.VerifiedAt = &now
	current.NodeOperatorAssigned = nodeID
	current.Rejected = false
	current.RejectedBy = ""
	current.RejectedAt = nil
	current.RejectionReason = ""
	updated, err := s.store.UpdateUser(ctx, current)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithContext(ctx).WithFields(map[string]any{"user_id": userID, "node_id": nodeID}).Info("user verified")
	return updated, nil
}

// Reject marks a user rejected with a reason, clearing any earlier
// verification so the two flags never hold at once.
func (s *Service) Reject(ctx context.Context, userID, nodeID, reason string) (user.User, error) {
	if reason == "" {
		return user.User{}, errors.Validation("a rejection reason is required")
	}
	current, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	now := time.Now().UTC()
	current.Rejected = true
	current.RejectedBy = nodeID
	current.RejectedAt = &now
	current.RejectionReason = reason
	current.Verified = false
	current.VerifiedBy = ""
	current.VerifiedAt = nil
	updated, err := s.store.UpdateUser(ctx, current)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithContext(ctx).WithFields(map[string]any{"user_id": userID, "node_id": nodeID}).Info("user rejected")
	return updated, nil
}

// AddCollateral credits the user's collateral balance. The write is a
// conditional update retried while concurrent writers race on the balance.
func (s *Service) AddCollateral(ctx context.Context, ethAddress string, amount float64) (user.User, error) {
	return s.adjustCollateral(ctx, ethAddress, amount)
}

// SubtractCollateral debits the user's collateral balance.
func (s *Service) SubtractCollateral(ctx context.Context, ethAddress string, amount float64) (user.User, error) {
	return s.adjustCollateral(ctx, ethAddress, -amount)
}

func (s *Service) adjustCollateral(ctx context.Context, ethAddress string, delta float64) (user.User, error) {
	if ethAddress == "" {
		return user.User{}, errors.Validation("ETH address is required")
	}
	if delta == 0 {
		return user.User{}, errors.Validation("a non-zero collateral amount is required")
	}
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		current, err := s.store.GetUserByEthAddress(ctx, ethAddress)
		if err != nil {
			return user.User{}, err
		}
		updated, err := s.store.UpdateUserCollateral(ctx, current.ID, current.CollateralDeposited, current.CollateralDeposited+delta)
		if err == nil {
			return updated, nil
		}
		if !stderrors.Is(err, storage.ErrStale) {
			return user.User{}, err
		}
		metrics.RecordCollateralRetry()
		lastErr = err
	}
	return user.User{}, errors.Internal(fmt.Sprintf("collateral update contended after %d attempts", casRetries), lastErr)
}

func applyUpdate(u *user.User, upd user.Update) {
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Country != nil {
		u.Country = *upd.Country
	}
	if upd.State != nil {
		u.State = *upd.State
	}
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	if upd.KYCType != nil {
		u.KYCType = *upd.KYCType
	}
	if upd.KYCID != nil {
		u.KYCID = *upd.KYCID
	}
	if upd.KYCDocumentImage != nil {
		u.KYCDocumentImage = *upd.KYCDocumentImage
	}
	if upd.OwnershipDocumentImage != nil {
		u.OwnershipDocumentImage = *upd.OwnershipDocumentImage
	}
	if upd.RealEstateInfo != nil {
		u.RealEstateInfo = *upd.RealEstateInfo
	}
	if upd.CurrentEstateCost != nil {
		u.CurrentEstateCost = *upd.CurrentEstateCost
	}
	if upd.PercentageToTokenize != nil {
		u.PercentageToTokenize = *upd.PercentageToTokenize
	}
	if upd.Rewards != nil {
		u.Rewards = *upd.Rewards
	}
	if upd.NodeOperatorAssigned != nil {
		u.NodeOperatorAssigned = *upd.NodeOperatorAssigned
	}
	if upd.PaymentToken != nil {
		u.PaymentToken = *upd.PaymentToken
	}
	if upd.PaymentTokenSymbol != nil {
		u.PaymentTokenSymbol = *upd.PaymentTokenSymbol
	}
	if upd.Signature != nil {
		u.Signature = *upd.Signature
	}
}
