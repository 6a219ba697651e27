// Package admins implements admin record management.
package admins

import (
	"context"

	"github.com/estatelink/tre-backend/internal/app/domain/admin"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/pkg/logger"
)

// Service implements admin record operations over an AdminStore.
type Service struct {
	store storage.AdminStore
	log   *logger.Logger
}

// New creates an admins service.
func New(store storage.AdminStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("admins")
	}
	return &Service{store: store, log: log}
}

// Get returns one admin by ID.
func (s *Service) Get(ctx context.Context, id string) (admin.Admin, error) {
	if id == "" {
		return admin.Admin{}, errors.Validation("admin ID is required")
	}
	return s.store.GetAdmin(ctx, id)
}

// List returns all admins, newest first.
func (s *Service) List(ctx context.Context) ([]admin.Admin, error) {
	return s.store.ListAdmins(ctx)
}

// UpdateInput carries the mutable admin fields; nil fields keep their
// stored values. Credentials are not updatable through this path.
type UpdateInput struct {
	Name       *string `json:"name,omitempty"`
	EthAddress *string `json:"ethAddress,omitempty"`
	Role       *string `json:"role,omitempty"`
}

// Update applies a partial update to an admin record.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (admin.Admin, error) {
	current, err := s.store.GetAdmin(ctx, id)
	if err != nil {
		return admin.Admin{}, err
	}
	if in.Name != nil {
		current.Name = *in.Name
	}
	if in.EthAddress != nil {
		current.EthAddress = *in.EthAddress
	}
	if in.Role != nil {
		current.Role = *in.Role
	}
	return s.store.UpdateAdmin(ctx, current)
}

// Delete removes an admin record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.Validation("admin ID is required")
	}
	if err := s.store.DeleteAdmin(ctx, id); err != nil {
		return err
	}
	s.log.WithContext(ctx).WithField("admin_id", id).Info("admin deleted")
	return nil
}
