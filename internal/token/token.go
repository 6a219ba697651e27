// Package token issues and verifies the signed bearer tokens used by admin
// and node operator sessions.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/estatelink/tre-backend/internal/errors"
)

// PrincipalKind identifies the actor type a token was issued for.
type PrincipalKind string

const (
	KindAdmin PrincipalKind = "admin"
	KindNode  PrincipalKind = "node"
	// KindService marks trusted machine callers admitted by API key; no
	// bearer token is ever issued for it.
	KindService PrincipalKind = "service"
)

// Claims are the JWT claims embedded in issued tokens.
type Claims struct {
	Kind PrincipalKind `json:"kind"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens with a fixed expiry.
type Signer struct {
	secret []byte
	expiry time.Duration
}

// NewSigner creates a signer. Expiry must be positive.
func NewSigner(secret string, expiry time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("token expiry must be positive")
	}
	return &Signer{secret: []byte(secret), expiry: expiry}, nil
}

// Sign issues a token embedding the principal's id and kind.
func (s *Signer) Sign(kind PrincipalKind, id string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a token, returning its claims. Malformed,
// mis-signed, or expired tokens yield an InvalidToken error.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.InvalidToken(err)
	}
	if !parsed.Valid {
		return nil, errors.InvalidToken(nil)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "missing subject")
	}
	return claims, nil
}
