// Package app wires stores and services into a runnable application.
package app

import (
	"context"
	"time"

	"github.com/estatelink/tre-backend/internal/app/services/admins"
	"github.com/estatelink/tre-backend/internal/app/services/auth"
	"github.com/estatelink/tre-backend/internal/app/services/ledger"
	"github.com/estatelink/tre-backend/internal/app/services/nodes"
	"github.com/estatelink/tre-backend/internal/app/services/positions"
	"github.com/estatelink/tre-backend/internal/app/services/users"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/app/storage/memory"
	"github.com/estatelink/tre-backend/internal/token"
	"github.com/estatelink/tre-backend/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation, which keeps development and tests self-contained.
type Stores struct {
	Admins    storage.AdminStore
	Nodes     storage.NodeStore
	Users     storage.UserStore
	Positions storage.PositionStore
	Ledger    storage.LedgerStore

	// Health reports backing-store connectivity; nil means always healthy.
	Health func(ctx context.Context) error
}

// Application bundles the domain services.
type Application struct {
	log *logger.Logger

	Auth      *auth.Service
	Admins    *admins.Service
	Nodes     *nodes.Service
	Users     *users.Service
	Positions *positions.Service
	Ledger    *ledger.Service

	health func(ctx context.Context) error
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, signer *token.Signer, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Admins == nil {
		stores.Admins = mem
	}
	if stores.Nodes == nil {
		stores.Nodes = mem
	}
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Positions == nil {
		stores.Positions = mem
	}
	if stores.Ledger == nil {
		stores.Ledger = mem
	}

	return &Application{
		log:       log,
		Auth:      auth.New(stores.Admins, stores.Nodes, signer, log),
		Admins:    admins.New(stores.Admins, log),
		Nodes:     nodes.New(stores.Nodes, log),
		Users:     users.New(stores.Users, log),
		Positions: positions.New(stores.Positions, log),
		Ledger:    ledger.New(stores.Ledger, log),
		health:    stores.Health,
	}, nil
}

// Health reports whether the backing store answers within a short deadline.
func (a *Application) Health(ctx context.Context) error {
	if a.health == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.health(ctx)
}
