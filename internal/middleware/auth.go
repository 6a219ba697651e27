// Package middleware provides HTTP middleware for the API gateway.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/token"
	"github.com/estatelink/tre-backend/pkg/logger"
)

// Principal identifies the authenticated caller of a protected route.
type Principal struct {
	ID         string
	Kind       token.PrincipalKind
	EthAddress string
	Approved   bool
}

type principalKey struct{}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom extracts the principal set by an Authorizer.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authorizer authenticates a request and resolves its principal. Each route
// group wires the authorizer matching its gate.
type Authorizer interface {
	Authorize(r *http.Request) (Principal, error)
}

// Resolver loads the live record behind a verified token subject.
type Resolver func(ctx context.Context, kind token.PrincipalKind, id string) (ethAddress string, approved bool, err error)

// BearerAuthorizer authenticates JWT bearer tokens of one principal kind.
// The subject is re-fetched on every request so deleted accounts lose
// access immediately, not at token expiry.
type BearerAuthorizer struct {
	signer  *token.Signer
	resolve Resolver
	kind    token.PrincipalKind
}

// NewBearerAuthorizer creates a bearer-token authorizer for the given kind.
func NewBearerAuthorizer(signer *token.Signer, resolve Resolver, kind token.PrincipalKind) *BearerAuthorizer {
	return &BearerAuthorizer{signer: signer, resolve: resolve, kind: kind}
}

// Authorize implements Authorizer.
func (a *BearerAuthorizer) Authorize(r *http.Request) (Principal, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return Principal{}, err
	}
	claims, err := a.signer.Verify(raw)
	if err != nil {
		return Principal{}, err
	}
	if claims.Kind != a.kind {
		return Principal{}, errors.Forbidden("token is not valid for this resource")
	}
	ethAddress, approved, err := a.resolve(r.Context(), claims.Kind, claims.Subject)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		ID:         claims.Subject,
		Kind:       claims.Kind,
		EthAddress: ethAddress,
		Approved:   approved,
	}, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.Unauthorized("missing bearer token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.Unauthorized("malformed authorization header")
	}
	return parts[1], nil
}

// NodeAuthorizer authenticates node bearer tokens and additionally requires
// the operator to have been approved by an admin.
type NodeAuthorizer struct {
	bearer *BearerAuthorizer
}

// NewNodeAuthorizer creates a node-operator authorizer.
func NewNodeAuthorizer(signer *token.Signer, resolve Resolver) *NodeAuthorizer {
	return &NodeAuthorizer{bearer: NewBearerAuthorizer(signer, resolve, token.KindNode)}
}

// Authorize implements Authorizer.
func (a *NodeAuthorizer) Authorize(r *http.Request) (Principal, error) {
	p, err := a.bearer.Authorize(r)
	if err != nil {
		return Principal{}, err
	}
	if !p.Approved {
		return Principal{}, errors.Forbidden("node operator is not approved")
	}
	return p, nil
}

// APIKeyAuthorizer authenticates trusted machine callers by a static key in
// the x-api-key header.
type APIKeyAuthorizer struct {
	key []byte
}

// NewAPIKeyAuthorizer creates an API-key authorizer.
func NewAPIKeyAuthorizer(key string) *APIKeyAuthorizer {
	return &APIKeyAuthorizer{key: []byte(key)}
}

// Authorize implements Authorizer. The comparison is constant time.
func (a *APIKeyAuthorizer) Authorize(r *http.Request) (Principal, error) {
	presented := r.Header.Get("x-api-key")
	if presented == "" {
		return Principal{}, errors.Unauthorized("missing API key")
	}
	if subtle.ConstantTimeCompare(a.key, []byte(presented)) != 1 {
		return Principal{}, errors.Unauthorized("invalid API key")
	}
	return Principal{Kind: token.KindService}, nil
}

// ErrorWriter renders an authorization failure; the gateway supplies its
// envelope writer so middleware and handlers emit the same shape.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Require gates a route group behind an authorizer. On success the principal
// is placed in the request context.
func Require(a Authorizer, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authorize(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := WithPrincipal(r.Context(), p)
			if p.ID != "" {
				ctx = logger.WithPrincipalID(ctx, p.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
