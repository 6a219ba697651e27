// Package memory is a thread-safe in-memory implementation of the storage
// interfaces. It is intended for tests and local development and mirrors the
// supabase store's semantics, including uniqueness conflicts and conditional
// collateral writes.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/estatelink/tre-backend/internal/app/domain/admin"
	"github.com/estatelink/tre-backend/internal/app/domain/node"
	"github.com/estatelink/tre-backend/internal/app/domain/position"
	"github.com/estatelink/tre-backend/internal/app/domain/user"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/query"
)

// Store is an in-memory persistence layer. Safe for concurrent use.
type Store struct {
	mu             sync.RWMutex
	admins         map[string]admin.Admin
	adminsByEmail  map[string]string
	nodes          map[string]node.Node
	nodesByEmail   map[string]string
	users          map[string]user.User
	usersByAddress map[string]string
	positions      map[string]position.TokenizedPosition
	positionLogs   []position.PositionLog
	crossChainTxns []position.CrossChainTxn
}

var _ storage.AdminStore = (*Store)(nil)
var _ storage.NodeStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.PositionStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		admins:         make(map[string]admin.Admin),
		adminsByEmail:  make(map[string]string),
		nodes:          make(map[string]node.Node),
		nodesByEmail:   make(map[string]string),
		users:          make(map[string]user.User),
		usersByAddress: make(map[string]string),
		positions:      make(map[string]position.TokenizedPosition),
	}
}

func newID() string {
	return uuid.New().String()
}

// Admin store ----------------------------------------------------------------

func (s *Store) CreateAdmin(_ context.Context, a admin.Admin) (admin.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.adminsByEmail[a.Email]; exists {
		return admin.Admin{}, errors.Conflict("email already registered")
	}
	if a.ID == "" {
		a.ID = newID()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	s.admins[a.ID] = a
	s.adminsByEmail[a.Email] = a.ID
	return a, nil
}

func (s *Store) GetAdmin(_ context.Context, id string) (admin.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.admins[id]
	if !ok {
		return admin.Admin{}, errors.NotFound("no admin found with that ID")
	}
	return a, nil
}

func (s *Store) GetAdminByEmail(_ context.Context, email string) (admin.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.adminsByEmail[email]
	if !ok {
		return admin.Admin{}, errors.NotFound("no admin found with that email")
	}
	return s.admins[id], nil
}

func (s *Store) ListAdmins(_ context.Context) ([]admin.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]admin.Admin, 0, len(s.admins))
	for _, a := range s.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateAdmin(_ context.Context, a admin.Admin) (admin.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.admins[a.ID]
	if !ok {
		return admin.Admin{}, errors.NotFound("no admin found with that ID")
	}
	if a.Email != original.Email {
		if _, exists := s.adminsByEmail[a.Email]; exists {
			return admin.Admin{}, errors.Conflict("email already registered")
		}
		delete(s.adminsByEmail, original.Email)
		s.adminsByEmail[a.Email] = a.ID
	}
	a.CreatedAt = original.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	s.admins[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAdmin(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.admins[id]
	if !ok {
		return errors.NotFound("no admin found with that ID")
	}
	delete(s.admins, id)
	delete(s.adminsByEmail, a.Email)
	return nil
}

// Node store -----------------------------------------------------------------

func (s *Store) CreateNode(_ context.Context, n node.Node) (node.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodesByEmail[n.Email]; exists {
		return node.Node{}, errors.Conflict("email already registered")
	}
	if n.ID == "" {
		n.ID = newID()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	s.nodes[n.ID] = n
	s.nodesByEmail[n.Email] = n.ID
	return n, nil
}

func (s *Store) GetNode(_ context.Context, id string) (node.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return node.Node{}, errors.NotFound("no node found with that ID")
	}
	return n, nil
}

func (s *Store) GetNodeByEmail(_ context.Context, email string) (node.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.nodesByEmail[email]
	if !ok {
		return node.Node{}, errors.NotFound("no node found with that email")
	}
	return s.nodes[id], nil
}

func (s *Store) ListNodes(_ context.Context) ([]node.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]node.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateNode(_ context.Context, n node.Node) (node.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.nodes[n.ID]
	if !ok {
		return node.Node{}, errors.NotFound("no node found with that ID")
	}
	if n.Email != original.Email {
		if _, exists := s.nodesByEmail[n.Email]; exists {
			return node.Node{}, errors.Conflict("email already registered")
		}
		delete(s.nodesByEmail, original.Email)
		s.nodesByEmail[n.Email] = n.ID
	}
	n.CreatedAt = original.CreatedAt
	n.UpdatedAt = time.Now().UTC()
	s.nodes[n.ID] = n
	return n, nil
}

func (s *Store) DeleteNode(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return errors.NotFound("no node found with that ID")
	}
	delete(s.nodes, id)
	delete(s.nodesByEmail, n.Email)
	return nil
}

// User store -----------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByAddress[u.EthAddress]; exists {
		return user.User{}, errors.Conflict("ETH address already registered")
	}
	if u.ID == "" {
		u.ID = newID()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	s.usersByAddress[u.EthAddress] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, errors.NotFound("no user found with that ID")
	}
	return u, nil
}

func (s *Store) GetUserByEthAddress(_ context.Context, ethAddress string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByAddress[ethAddress]
	if !ok {
		return user.User{}, errors.NotFound("no user found with that ETH address")
	}
	return s.users[id], nil
}

// ListUsers applies the validated query's conditions, sort, and pagination.
// Field projection is a store-side concern in supabase; here full records
// are returned regardless.
func (s *Store) ListUsers(_ context.Context, q query.Query) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		if matchUser(u, q.Conditions) {
			out = append(out, u)
		}
	}
	sortUsers(out, q.Sort)

	if q.Offset >= len(out) {
		return []user.User{}, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, errors.NotFound("no user found with that ID")
	}
	if u.EthAddress != original.EthAddress {
		if _, exists := s.usersByAddress[u.EthAddress]; exists {
			return user.User{}, errors.Conflict("ETH address already registered")
		}
		delete(s.usersByAddress, original.EthAddress)
		s.usersByAddress[u.EthAddress] = u.ID
	}
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return errors.NotFound("no user found with that ID")
	}
	delete(s.users, id)
	delete(s.usersByAddress, u.EthAddress)
	return nil
}

func (s *Store) UpdateUserCollateral(_ context.Context, id string, expected, next float64) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, errors.NotFound("no user found with that ID")
	}
	if u.CollateralDeposited != expected {
		return user.User{}, storage.ErrStale
	}
	u.CollateralDeposited = next
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return u, nil
}

// Position store -------------------------------------------------------------

func (s *Store) CreatePosition(_ context.Context, p position.TokenizedPosition) (position.TokenizedPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = newID()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.positions[p.ID] = p
	return p, nil
}

func (s *Store) GetPositionByKey(_ context.Context, userAddress, treAddress string) (position.TokenizedPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.positions {
		if p.UserAddress == userAddress && p.TokenizedRealEstateAddress == treAddress {
			return p, nil
		}
	}
	return position.TokenizedPosition{}, errors.NotFound("no position found for that address pair")
}

func (s *Store) ListPositions(_ context.Context, filter position.LedgerFilter) ([]position.TokenizedPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]position.TokenizedPosition, 0, len(s.positions))
	for _, p := range s.positions {
		if filter.UserAddress != "" && p.UserAddress != filter.UserAddress {
			continue
		}
		if filter.TokenizedRealEstateAddress != "" && p.TokenizedRealEstateAddress != filter.TokenizedRealEstateAddress {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdatePosition(_ context.Context, p position.TokenizedPosition) (position.TokenizedPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.positions[p.ID]
	if !ok {
		return position.TokenizedPosition{}, errors.NotFound("no position found with that ID")
	}
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.positions[p.ID] = p
	return p, nil
}

// Ledger store ---------------------------------------------------------------

func (s *Store) AppendPositionLog(_ context.Context, l position.PositionLog) (position.PositionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = newID()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	s.positionLogs = append(s.positionLogs, l)
	return l, nil
}

func (s *Store) ListPositionLogs(_ context.Context, filter position.LedgerFilter) ([]position.PositionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]position.PositionLog, 0, len(s.positionLogs))
	for _, l := range s.positionLogs {
		if filter.UserAddress != "" && l.UserAddress != filter.UserAddress {
			continue
		}
		if filter.TokenizedRealEstateAddress != "" && l.TokenizedRealEstateAddress != filter.TokenizedRealEstateAddress {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) AppendCrossChainTxn(_ context.Context, t position.CrossChainTxn) (position.CrossChainTxn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = newID()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.crossChainTxns = append(s.crossChainTxns, t)
	return t, nil
}

func (s *Store) ListCrossChainTxns(_ context.Context, filter position.LedgerFilter) ([]position.CrossChainTxn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]position.CrossChainTxn, 0, len(s.crossChainTxns))
	for _, t := range s.crossChainTxns {
		if filter.UserAddress != "" && t.UserAddress != filter.UserAddress {
			continue
		}
		if filter.TokenizedRealEstateAddress != "" && t.TokenizedRealEstateAddress != filter.TokenizedRealEstateAddress {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Query evaluation -----------------------------------------------------------

func matchUser(u user.User, conds []query.Condition) bool {
	for _, c := range conds {
		if !matchUserCondition(u, c) {
			return false
		}
	}
	return true
}

func matchUserCondition(u user.User, c query.Condition) bool {
	switch c.Kind {
	case query.Number:
		want, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return false
		}
		have, ok := userNumberColumn(u, c.Column)
		if !ok {
			return false
		}
		switch c.Op {
		case query.OpGte:
			return have >= want
		case query.OpGt:
			return have > want
		case query.OpLte:
			return have <= want
		case query.OpLt:
			return have < want
		default:
			return have == want
		}
	case query.Bool:
		have, ok := userBoolColumn(u, c.Column)
		return ok && have == (c.Value == "true")
	case query.Timestamp:
		want, ok := parseQueryTime(c.Value)
		if !ok {
			return false
		}
		have, ok := userTimeColumn(u, c.Column)
		if !ok {
			return false
		}
		switch c.Op {
		case query.OpGte:
			return !have.Before(want)
		case query.OpGt:
			return have.After(want)
		case query.OpLte:
			return !have.After(want)
		case query.OpLt:
			return have.Before(want)
		default:
			return have.Equal(want)
		}
	default:
		have, ok := userStringColumn(u, c.Column)
		return ok && strings.EqualFold(have, c.Value)
	}
}

func parseQueryTime(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func userTimeColumn(u user.User, column string) (time.Time, bool) {
	switch column {
	case "created_at":
		return u.CreatedAt, true
	case "updated_at":
		return u.UpdatedAt, true
	}
	return time.Time{}, false
}

func userNumberColumn(u user.User, column string) (float64, bool) {
	switch column {
	case "current_estate_cost":
		return u.CurrentEstateCost, true
	case "percentage_to_tokenize":
		return u.PercentageToTokenize, true
	case "rewards":
		return u.Rewards, true
	case "collateral_deposited":
		return u.CollateralDeposited, true
	}
	return 0, false
}

func userBoolColumn(u user.User, column string) (bool, bool) {
	switch column {
	case "is_verified":
		return u.Verified, true
	case "is_rejected":
		return u.Rejected, true
	}
	return false, false
}

func userStringColumn(u user.User, column string) (string, bool) {
	switch column {
	case "name":
		return u.Name, true
	case "eth_address":
		return u.EthAddress, true
	case "country":
		return u.Country, true
	case "state":
		return u.State, true
	case "kyc_type":
		return u.KYCType, true
	case "node_operator_assigned":
		return u.NodeOperatorAssigned, true
	}
	return "", false
}

func sortUsers(users []user.User, keys []query.SortField) {
	if len(keys) == 0 {
		keys = []query.SortField{{Column: "created_at", Desc: true}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, k := range keys {
			cmp := compareUsers(users[i], users[j], k.Column)
			if cmp == 0 {
				continue
			}
			if k.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareUsers(a, b user.User, column string) int {
	if column == "created_at" {
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
		return 0
	}
	if av, ok := userNumberColumn(a, column); ok {
		bv, _ := userNumberColumn(b, column)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	av, _ := userStringColumn(a, column)
	bv, _ := userStringColumn(b, column)
	return strings.Compare(av, bv)
}
