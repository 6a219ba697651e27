// Package position defines tokenized position records and the append-only
// transaction logs tied to them.
package position

import "time"

// TxType is an enumerated position transaction type.
type TxType string

const (
	TxCollateralDeposit  TxType = "COLLATERAL_DEPOSIT"
	TxCollateralWithdraw TxType = "COLLATERAL_WITHDRAW"
	TxTREBuy             TxType = "TRE_BUY"
	TxTRESell            TxType = "TRE_SELL"
	TxRewardsCollect     TxType = "REWARDS_COLLECT"
)

// ValidLogType reports whether t is a permitted position log type.
func ValidLogType(t TxType) bool {
	switch t {
	case TxCollateralDeposit, TxCollateralWithdraw, TxTREBuy, TxTRESell, TxRewardsCollect:
		return true
	}
	return false
}

// ValidCrossChainType reports whether t is a permitted cross-chain
// transaction type.
func ValidCrossChainType(t TxType) bool {
	return t == TxTREBuy || t == TxTRESell
}

// TokenizedPosition records how much of a tokenized real-estate asset and
// collateral a wallet holds against a given TRE address. The pair
// (UserAddress, TokenizedRealEstateAddress) is the upsert key; it is not
// uniquely indexed in the store.
type TokenizedPosition struct {
	ID                         string    `json:"id"`
	UserAddress                string    `json:"userAddress"`
	TokenizedRealEstateAddress string    `json:"tokenizedRealEstateAddress"`
	CollateralDeposited        float64   `json:"collateralDeposited"`
	TREMinted                  float64   `json:"treMinted"`
	RewardsCollected           float64   `json:"rewardsCollected"`
	PaymentToken               float64   `json:"paymentToken"`
	PaymentTokenSymbol         string    `json:"paymentTokenSymbol,omitempty"`
	CreatedAt                  time.Time `json:"createdAt"`
	UpdatedAt                  time.Time `json:"updatedAt"`
}

// PositionUpdate carries the mergeable fields of an upsert; nil fields keep
// their stored values.
type PositionUpdate struct {
	CollateralDeposited *float64 `json:"collateralDeposited,omitempty"`
	TREMinted           *float64 `json:"treMinted,omitempty"`
	RewardsCollected    *float64 `json:"rewardsCollected,omitempty"`
	PaymentToken        *float64 `json:"paymentToken,omitempty"`
	PaymentTokenSymbol  *string  `json:"paymentTokenSymbol,omitempty"`
}

// PositionLog is an append-only record of a position transaction.
type PositionLog struct {
	ID                         string    `json:"id"`
	UserAddress                string    `json:"userAddress"`
	TokenizedRealEstateAddress string    `json:"tokenizedRealEstateAddress"`
	TxType                     TxType    `json:"transactionType"`
	Amount                     float64   `json:"transactionAmount"`
	Symbol                     string    `json:"transactionSymbol"`
	TxHash                     string    `json:"transactionHash,omitempty"`
	CreatedAt                  time.Time `json:"createdAt"`
	UpdatedAt                  time.Time `json:"updatedAt"`
}

// CrossChainTxn is an append-only record of a cross-chain transaction.
type CrossChainTxn struct {
	ID                         string    `json:"id"`
	UserAddress                string    `json:"userAddress"`
	TokenizedRealEstateAddress string    `json:"tokenizedRealEstateAddress"`
	TxType                     TxType    `json:"transactionType"`
	Amount                     float64   `json:"transactionAmount"`
	Symbol                     string    `json:"transactionSymbol"`
	TxHash                     string    `json:"transactionHash,omitempty"`
	CCIPLink                   string    `json:"ccipLink,omitempty"`
	CreatedAt                  time.Time `json:"createdAt"`
	UpdatedAt                  time.Time `json:"updatedAt"`
}

// LedgerFilter narrows log and cross-chain listings; empty fields match all.
type LedgerFilter struct {
	UserAddress                string
	TokenizedRealEstateAddress string
}
