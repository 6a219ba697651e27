// Package user defines the end-user (estate owner) record.
package user

import "time"

// User is an end user holding a tokenized real-estate position. EthAddress
// is the natural key and is unique across users.
type User struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	EthAddress             string     `json:"ethAddress"`
	Country                string     `json:"country"`
	State                  string     `json:"state"`
	Address                string     `json:"address"`
	KYCType                string     `json:"kycType"`
	KYCID                  string     `json:"kycId"`
	KYCDocumentImage       string     `json:"kycDocumentImage,omitempty"`
	OwnershipDocumentImage string     `json:"ownershipDocumentImage,omitempty"`
	RealEstateInfo         string     `json:"realEstateInfo"`
	CurrentEstateCost      float64    `json:"currentEstateCost"`
	PercentageToTokenize   float64    `json:"percentageToTokenize"`
	Rewards                float64    `json:"rewards"`
	CollateralDeposited    float64    `json:"collateralDeposited"`
	NodeOperatorAssigned   string     `json:"nodeOperatorAssigned,omitempty"`
	Verified               bool       `json:"isVerified"`
	Rejected               bool       `json:"isRejected"`
	VerifiedBy             string     `json:"verifiedBy,omitempty"`
	VerifiedAt             *time.Time `json:"verifiedAt,omitempty"`
	RejectedBy             string     `json:"rejectedBy,omitempty"`
	RejectedAt             *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason        string     `json:"rejectionReason,omitempty"`
	PaymentToken           string     `json:"paymentToken,omitempty"`
	PaymentTokenSymbol     string     `json:"paymentTokenSymbol,omitempty"`
	Signature              string     `json:"signature,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// Update carries a partial-update request; nil fields are left unchanged.
type Update struct {
	Name                   *string  `json:"name,omitempty"`
	Country                *string  `json:"country,omitempty"`
	State                  *string  `json:"state,omitempty"`
	Address                *string  `json:"address,omitempty"`
	KYCType                *string  `json:"kycType,omitempty"`
	KYCID                  *string  `json:"kycId,omitempty"`
	KYCDocumentImage       *string  `json:"kycDocumentImage,omitempty"`
	OwnershipDocumentImage *string  `json:"ownershipDocumentImage,omitempty"`
	RealEstateInfo         *string  `json:"realEstateInfo,omitempty"`
	CurrentEstateCost      *float64 `json:"currentEstateCost,omitempty"`
	PercentageToTokenize   *float64 `json:"percentageToTokenize,omitempty"`
	Rewards                *float64 `json:"rewards,omitempty"`
	NodeOperatorAssigned   *string  `json:"nodeOperatorAssigned,omitempty"`
	PaymentToken           *string  `json:"paymentToken,omitempty"`
	PaymentTokenSymbol     *string  `json:"paymentTokenSymbol,omitempty"`
	Signature              *string  `json:"signature,omitempty"`
}
