// Package storage declares the persistence interfaces implemented by the
// supabase and memory stores.
package storage

import (
	"context"
	"errors"

	"github.com/estatelink/tre-backend/internal/app/domain/admin"
	"github.com/estatelink/tre-backend/internal/app/domain/node"
	"github.com/estatelink/tre-backend/internal/app/domain/position"
	"github.com/estatelink/tre-backend/internal/app/domain/user"
	"github.com/estatelink/tre-backend/internal/query"
)

// ErrStale is returned by conditional writes when the stored value no longer
// matches the value the caller observed.
var ErrStale = errors.New("stale value on conditional write")

// AdminStore persists administrator records. Creation fails with a conflict
// error when the email is already registered.
type AdminStore interface {
	CreateAdmin(ctx context.Context, a admin.Admin) (admin.Admin, error)
	GetAdmin(ctx context.Context, id string) (admin.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (admin.Admin, error)
	ListAdmins(ctx context.Context) ([]admin.Admin, error)
	UpdateAdmin(ctx context.Context, a admin.Admin) (admin.Admin, error)
	DeleteAdmin(ctx context.Context, id string) error
}

// NodeStore persists node operator records.
type NodeStore interface {
	CreateNode(ctx context.Context, n node.Node) (node.Node, error)
	GetNode(ctx context.Context, id string) (node.Node, error)
	GetNodeByEmail(ctx context.Context, email string) (node.Node, error)
	ListNodes(ctx context.Context) ([]node.Node, error)
	UpdateNode(ctx context.Context, n node.Node) (node.Node, error)
	DeleteNode(ctx context.Context, id string) error
}

// UserStore persists end-user records. EthAddress is unique across users.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEthAddress(ctx context.Context, ethAddress string) (user.User, error)
	ListUsers(ctx context.Context, q query.Query) ([]user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	DeleteUser(ctx context.Context, id string) error

	// UpdateUserCollateral writes next only if the stored collateral still
	// equals expected, returning ErrStale otherwise.
	UpdateUserCollateral(ctx context.Context, id string, expected, next float64) (user.User, error)
}

// PositionStore persists tokenized position records.
type PositionStore interface {
	CreatePosition(ctx context.Context, p position.TokenizedPosition) (position.TokenizedPosition, error)
	GetPositionByKey(ctx context.Context, userAddress, treAddress string) (position.TokenizedPosition, error)
	ListPositions(ctx context.Context, filter position.LedgerFilter) ([]position.TokenizedPosition, error)
	UpdatePosition(ctx context.Context, p position.TokenizedPosition) (position.TokenizedPosition, error)
}

// LedgerStore persists the append-only position and cross-chain logs.
type LedgerStore interface {
	AppendPositionLog(ctx context.Context, l position.PositionLog) (position.PositionLog, error)
	ListPositionLogs(ctx context.Context, filter position.LedgerFilter) ([]position.PositionLog, error)

	AppendCrossChainTxn(ctx context.Context, t position.CrossChainTxn) (position.CrossChainTxn, error)
	ListCrossChainTxns(ctx context.Context, filter position.LedgerFilter) ([]position.CrossChainTxn, error)
}
