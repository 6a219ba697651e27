// Package node defines the node operator record. Node operators verify and
// reject end users once an admin has approved them.
package node

import "time"

// Node is a node operator account.
type Node struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	EthAddress   string    `json:"ethAddress"`
	VaultAddress string    `json:"vaultAddress,omitempty"`
	ENSName      string    `json:"ensName,omitempty"`
	PaymentToken string    `json:"paymentToken,omitempty"`
	Signature    string    `json:"signature,omitempty"`
	Approved     bool      `json:"isApproved"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
