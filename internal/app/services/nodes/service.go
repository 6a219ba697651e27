// Package nodes implements node-operator record management and approval.
package nodes

import (
	"context"

	"github.com/estatelink/tre-backend/internal/app/domain/node"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/pkg/logger"
)

// Service implements node-operator record operations over a NodeStore.
type Service struct {
	store storage.NodeStore
	log   *logger.Logger
}

// New creates a nodes service.
func New(store storage.NodeStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("nodes")
	}
	return &Service{store: store, log: log}
}

// Get returns one node by ID.
func (s *Service) Get(ctx context.Context, id string) (node.Node, error) {
	if id == "" {
		return node.Node{}, errors.Validation("node ID is required")
	}
	return s.store.GetNode(ctx, id)
}

// List returns all nodes, newest first.
func (s *Service) List(ctx context.Context) ([]node.Node, error) {
	return s.store.ListNodes(ctx)
}

// UpdateInput carries the mutable node fields; nil fields keep their stored
// values. Approval has its own operation and credentials are not updatable.
type UpdateInput struct {
	Name         *string `json:"name,omitempty"`
	EthAddress   *string `json:"ethAddress,omitempty"`
	VaultAddress *string `json:"vaultAddress,omitempty"`
	ENSName      *string `json:"ensName,omitempty"`
	PaymentToken *string `json:"paymentToken,omitempty"`
	Signature    *string `json:"signature,omitempty"`
}

// Update applies a partial update to a node record.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (node.Node, error) {
	current, err := s.store.GetNode(ctx, id)
	if err != nil {
		return node.Node{}, err
	}
	if in.Name != nil {
		current.Name = *in.Name
	}
	if in.EthAddress != nil {
		current.EthAddress = *in.EthAddress
	}
	if in.VaultAddress != nil {
		current.VaultAddress = *in.VaultAddress
	}
	if in.ENSName != nil {
		current.ENSName = *in.ENSName
	}
	if in.PaymentToken != nil {
		current.PaymentToken = *in.PaymentToken
	}
	if in.Signature != nil {
		current.Signature = *in.Signature
	}
	return s.store.UpdateNode(ctx, current)
}

// Delete removes a node record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.Validation("node ID is required")
	}
	if err := s.store.DeleteNode(ctx, id); err != nil {
		return err
	}
	s.log.WithContext(ctx).WithField("node_id", id).Info("node deleted")
	return nil
}

// Approve marks a node operator approved, admitting it to the gated routes.
// Approving an already-approved node is a no-op that returns the record.
func (s *Service) Approve(ctx context.Context, id string) (node.Node, error) {
	current, err := s.store.GetNode(ctx, id)
	if err != nil {
		return node.Node{}, err
	}
	if current.Approved {
		return current, nil
	}
	current.Approved = true
	updated, err := s.store.UpdateNode(ctx, current)
	if err != nil {
		return node.Node{}, err
	}
	s.log.WithContext(ctx).WithField("node_id", id).Info("node approved")
	return updated, nil
}
