// Package admin defines the platform administrator record.
package admin

import "time"

// Admin is a platform administrator. PasswordHash is never serialized in
// API responses.
type Admin struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	EthAddress   string    `json:"ethAddress"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
