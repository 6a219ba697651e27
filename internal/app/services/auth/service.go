// Package auth implements credential handling and token issuance for
// admins and node operators.
package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/estatelink/tre-backend/internal/app/domain/admin"
	"github.com/estatelink/tre-backend/internal/app/domain/node"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/token"
	"github.com/estatelink/tre-backend/pkg/logger"
)

// bcryptCost matches the cost the platform has always hashed with; lowering
// it would leave a mix of work factors in the credential store.
const bcryptCost = 12

const minPasswordLength = 8

// loginFailed is deliberately identical for unknown email and wrong
// password so the endpoint cannot be used to enumerate accounts.
const loginFailed = "incorrect email or password"

// Service issues and verifies credentials for the two operator kinds.
type Service struct {
	admins storage.AdminStore
	nodes  storage.NodeStore
	signer *token.Signer
	log    *logger.Logger
}

// New creates an auth service.
func New(admins storage.AdminStore, nodes storage.NodeStore, signer *token.Signer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{admins: admins, nodes: nodes, signer: signer, log: log}
}

// AdminSignupInput carries the fields accepted on admin registration.
type AdminSignupInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	EthAddress string `json:"ethAddress"`
	Role       string `json:"role"`
}

// NodeSignupInput carries the fields accepted on node-operator registration.
type NodeSignupInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	EthAddress   string `json:"ethAddress"`
	VaultAddress string `json:"vaultAddress"`
	ENSName      string `json:"ensName"`
	PaymentToken string `json:"paymentToken"`
	Signature    string `json:"signature"`
}

// Credentials is an email/password login request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return errors.Validation("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return errors.Validation("password must be at least 8 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", errors.Internal("hash password", err)
	}
	return string(hash), nil
}

// AdminSignup registers an admin and returns it with a fresh bearer token.
func (s *Service) AdminSignup(ctx context.Context, in AdminSignupInput) (admin.Admin, string, error) {
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" {
		return admin.Admin{}, "", errors.Validation("name is required")
	}
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return admin.Admin{}, "", err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return admin.Admin{}, "", err
	}
	created, err := s.admins.CreateAdmin(ctx, admin.Admin{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		EthAddress:   in.EthAddress,
		Role:         in.Role,
	})
	if err != nil {
		if errors.IsConflict(err) {
			return admin.Admin{}, "", errors.Conflict("an admin with that email already exists")
		}
		return admin.Admin{}, "", err
	}
	tok, err := s.signer.Sign(token.KindAdmin, created.ID)
	if err != nil {
		return admin.Admin{}, "", err
	}
	s.log.WithContext(ctx).WithField("admin_id", created.ID).Info("admin registered")
	return created, tok, nil
}

// AdminLogin verifies credentials and returns the admin with a bearer token.
func (s *Service) AdminLogin(ctx context.Context, creds Credentials) (admin.Admin, string, error) {
	creds.Email = normalizeEmail(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return admin.Admin{}, "", errors.Validation("email and password are required")
	}
	found, err := s.admins.GetAdminByEmail(ctx, creds.Email)
	if err != nil {
		if errors.IsNotFound(err) {
			return admin.Admin{}, "", errors.Unauthorized(loginFailed)
		}
		return admin.Admin{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(creds.Password)) != nil {
		return admin.Admin{}, "", errors.Unauthorized(loginFailed)
	}
	tok, err := s.signer.Sign(token.KindAdmin, found.ID)
	if err != nil {
		return admin.Admin{}, "", err
	}
	return found, tok, nil
}

// NodeSignup registers a node operator. Operators start unapproved and
// cannot reach protected routes until an admin approves them.
func (s *Service) NodeSignup(ctx context.Context, in NodeSignupInput) (node.Node, string, error) {
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" {
		return node.Node{}, "", errors.Validation("name is required")
	}
	if in.EthAddress == "" {
		return node.Node{}, "", errors.Validation("ethAddress is required")
	}
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return node.Node{}, "", err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return node.Node{}, "", err
	}
	created, err := s.nodes.CreateNode(ctx, node.Node{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		EthAddress:   in.EthAddress,
		VaultAddress: in.VaultAddress,
		ENSName:      in.ENSName,
		PaymentToken: in.PaymentToken,
		Signature:    in.Signature,
		Approved:     false,
	})
	if err != nil {
		if errors.IsConflict(err) {
			return node.Node{}, "", errors.Conflict("a node with that email already exists")
		}
		return node.Node{}, "", err
	}
	tok, err := s.signer.Sign(token.KindNode, created.ID)
	if err != nil {
		return node.Node{}, "", err
	}
	s.log.WithContext(ctx).WithField("node_id", created.ID).Info("node registered")
	return created, tok, nil
}

// NodeLogin verifies credentials and returns the node with a bearer token.
// Unapproved nodes can log in; approval is enforced at the route gate.
func (s *Service) NodeLogin(ctx context.Context, creds Credentials) (node.Node, string, error) {
	creds.Email = normalizeEmail(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return node.Node{}, "", errors.Validation("email and password are required")
	}
	found, err := s.nodes.GetNodeByEmail(ctx, creds.Email)
	if err != nil {
		if errors.IsNotFound(err) {
			return node.Node{}, "", errors.Unauthorized(loginFailed)
		}
		return node.Node{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(creds.Password)) != nil {
		return node.Node{}, "", errors.Unauthorized(loginFailed)
	}
	tok, err := s.signer.Sign(token.KindNode, found.ID)
	if err != nil {
		return node.Node{}, "", err
	}
	return found, tok, nil
}

// Lookup returns the live record behind a verified token. Tokens outlive
// record deletion, so a lookup miss means the bearer is no longer valid.
func (s *Service) Lookup(ctx context.Context, kind token.PrincipalKind, id string) (ethAddress string, approved bool, err error) {
	switch kind {
	case token.KindAdmin:
		a, err := s.admins.GetAdmin(ctx, id)
		if err != nil {
			if errors.IsNotFound(err) {
				return "", false, errors.Unauthorized("account no longer exists")
			}
			return "", false, err
		}
		return a.EthAddress, true, nil
	case token.KindNode:
		n, err := s.nodes.GetNode(ctx, id)
		if err != nil {
			if errors.IsNotFound(err) {
				return "", false, errors.Unauthorized("account no longer exists")
			}
			return "", false, err
		}
		return n.EthAddress, n.Approved, nil
	default:
		return "", false, errors.Unauthorized("unknown principal kind")
	}
}
