package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/estatelink/tre-backend/internal/app/domain/admin"
	"github.com/estatelink/tre-backend/internal/app/domain/node"
	"github.com/estatelink/tre-backend/internal/app/domain/position"
	"github.com/estatelink/tre-backend/internal/app/domain/user"
	"github.com/estatelink/tre-backend/internal/app/storage"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/query"
	"github.com/estatelink/tre-backend/pkg/logger"
)

const (
	tableAdmins    = "admins"
	tableNodes     = "nodes"
	tableUsers     = "users"
	tablePositions = "tokenized_positions"
	tableLogs      = "position_logs"
	tableTxns      = "cross_chain_txns"
)

// Store implements the storage interfaces over PostgREST tables.
type Store struct {
	client *Client
	log    *logger.Logger
}

var _ storage.AdminStore = (*Store)(nil)
var _ storage.NodeStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.PositionStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)

// NewStore creates a store over the given client.
func NewStore(client *Client, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewDefault("supabase")
	}
	return &Store{client: client, log: log}
}

// Health checks connectivity.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Row types carry the snake_case column layout of the tables; the camelCase
// JSON shape of the domain types is an API concern.

type adminRow struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	EthAddress   string    `json:"eth_address"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toAdminRow(a admin.Admin) adminRow {
	return adminRow{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		EthAddress:   a.EthAddress,
		Role:         a.Role,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (r adminRow) domain() admin.Admin {
	return admin.Admin{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		EthAddress:   r.EthAddress,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type nodeRow struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	EthAddress   string    `json:"eth_address"`
	VaultAddress string    `json:"vault_address,omitempty"`
	ENSName      string    `json:"ens_name,omitempty"`
	PaymentToken string    `json:"payment_token,omitempty"`
	Signature    string    `json:"signature,omitempty"`
	Approved     bool      `json:"is_approved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toNodeRow(n node.Node) nodeRow {
	return nodeRow{
		ID:           n.ID,
		Name:         n.Name,
		Email:        n.Email,
		PasswordHash: n.PasswordHash,
		EthAddress:   n.EthAddress,
		VaultAddress: n.VaultAddress,
		ENSName:      n.ENSName,
		PaymentToken: n.PaymentToken,
		Signature:    n.Signature,
		Approved:     n.Approved,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

func (r nodeRow) domain() node.Node {
	return node.Node{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		EthAddress:   r.EthAddress,
		VaultAddress: r.VaultAddress,
		ENSName:      r.ENSName,
		PaymentToken: r.PaymentToken,
		Signature:    r.Signature,
		Approved:     r.Approved,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type userRow struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	EthAddress             string     `json:"eth_address"`
	Country                string     `json:"country"`
	State                  string     `json:"state"`
	Address                string     `json:"address"`
	KYCType                string     `json:"kyc_type"`
	KYCID                  string     `json:"kyc_id"`
	KYCDocumentImage       string     `json:"kyc_document_image,omitempty"`
	OwnershipDocumentImage string     `json:"ownership_document_image,omitempty"`
	RealEstateInfo         string     `json:"real_estate_info"`
	CurrentEstateCost      float64    `json:"current_estate_cost"`
	PercentageToTokenize   float64    `json:"percentage_to_tokenize"`
	Rewards                float64    `json:"rewards"`
	CollateralDeposited    float64    `json:"collateral_deposited"`
	NodeOperatorAssigned   string     `json:"node_operator_assigned,omitempty"`
	Verified               bool       `json:"is_verified"`
	Rejected               bool       `json:"is_rejected"`
	VerifiedBy             string     `json:"verified_by,omitempty"`
	VerifiedAt             *time.Time `json:"verified_at,omitempty"`
	RejectedBy             string     `json:"rejected_by,omitempty"`
	RejectedAt             *time.Time `json:"rejected_at,omitempty"`
	RejectionReason        string     `json:"rejection_reason,omitempty"`
	PaymentToken           string     `json:"payment_token_address,omitempty"`
	PaymentTokenSymbol     string     `json:"payment_token_symbol,omitempty"`
	Signature              string     `json:"signature,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func toUserRow(u user.User) userRow {
	return userRow{
		ID:                     u.ID,
		Name:                   u.Name,
		EthAddress:             u.EthAddress,
		Country:                u.Country,
		State:                  u.State,
		Address:                u.Address,
		KYCType:                u.KYCType,
		KYCID:                  u.KYCID,
		KYCDocumentImage:       u.KYCDocumentImage,
		OwnershipDocumentImage: u.OwnershipDocumentImage,
		RealEstateInfo:         u.RealEstateInfo,
		CurrentEstateCost:      u.CurrentEstateCost,
		PercentageToTokenize:   u.PercentageToTokenize,
		Rewards:                u.Rewards,
		CollateralDeposited:    u.CollateralDeposited,
		NodeOperatorAssigned:   u.NodeOperatorAssigned,
		Verified:               u.Verified,
		Rejected:               u.Rejected,
		VerifiedBy:             u.VerifiedBy,
		VerifiedAt:             u.VerifiedAt,
		RejectedBy:             u.RejectedBy,
		RejectedAt:             u.RejectedAt,
		RejectionReason:        u.RejectionReason,
		PaymentToken:           u.PaymentToken,
		PaymentTokenSymbol:     u.PaymentTokenSymbol,
		Signature:              u.Signature,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func (r userRow) domain() user.User {
	return user.User{
		ID:                     r.ID,
		Name:                   r.Name,
		EthAddress:             r.EthAddress,
		Country:                r.Country,
		State:                  r.State,
		Address:                r.Address,
		KYCType:                r.KYCType,
		KYCID:                  r.KYCID,
		KYCDocumentImage:       r.KYCDocumentImage,
		OwnershipDocumentImage: r.OwnershipDocumentImage,
		RealEstateInfo:         r.RealEstateInfo,
		CurrentEstateCost:      r.CurrentEstateCost,
		PercentageToTokenize:   r.PercentageToTokenize,
		Rewards:                r.Rewards,
		CollateralDeposited:    r.CollateralDeposited,
		NodeOperatorAssigned:   r.NodeOperatorAssigned,
		Verified:               r.Verified,
		Rejected:               r.Rejected,
		VerifiedBy:             r.VerifiedBy,
		VerifiedAt:             r.VerifiedAt,
		RejectedBy:             r.RejectedBy,
		RejectedAt:             r.RejectedAt,
		RejectionReason:        r.RejectionReason,
		PaymentToken:           r.PaymentToken,
		PaymentTokenSymbol:     r.PaymentTokenSymbol,
		Signature:              r.Signature,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

type positionRow struct {
	ID                         string    `json:"id"`
	UserAddress                string    `json:"user_address"`
	TokenizedRealEstateAddress string    `json:"tokenized_real_estate_address"`
	CollateralDeposited        float64   `json:"collateral_deposited"`
	TREMinted                  float64   `json:"tre_minted"`
	RewardsCollected           float64   `json:"rewards_collected"`
	PaymentToken               float64   `json:"payment_token"`
	PaymentTokenSymbol         string    `json:"payment_token_symbol,omitempty"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

func toPositionRow(p position.TokenizedPosition) positionRow {
	return positionRow{
		ID:                         p.ID,
		UserAddress:                p.UserAddress,
		TokenizedRealEstateAddress: p.TokenizedRealEstateAddress,
		CollateralDeposited:        p.CollateralDeposited,
		TREMinted:                  p.TREMinted,
		RewardsCollected:           p.RewardsCollected,
		PaymentToken:               p.PaymentToken,
		PaymentTokenSymbol:         p.PaymentTokenSymbol,
		CreatedAt:                  p.CreatedAt,
		UpdatedAt:                  p.UpdatedAt,
	}
}

func (r positionRow) domain() position.TokenizedPosition {
	return position.TokenizedPosition{
		ID:                         r.ID,
		UserAddress:                r.UserAddress,
		TokenizedRealEstateAddress: r.TokenizedRealEstateAddress,
		CollateralDeposited:        r.CollateralDeposited,
		TREMinted:                  r.TREMinted,
		RewardsCollected:           r.RewardsCollected,
		PaymentToken:               r.PaymentToken,
		PaymentTokenSymbol:         r.PaymentTokenSymbol,
		CreatedAt:                  r.CreatedAt,
		UpdatedAt:                  r.UpdatedAt,
	}
}

type logRow struct {
	ID                         string    `json:"id"`
	UserAddress                string    `json:"user_address"`
	TokenizedRealEstateAddress string    `json:"tokenized_real_estate_address"`
	TxType                     string    `json:"transaction_type"`
	Amount                     float64   `json:"transaction_amount"`
	Symbol                     string    `json:"transaction_symbol"`
	TxHash                     string    `json:"transaction_hash,omitempty"`
	CCIPLink                   string    `json:"ccip_link,omitempty"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

// Generic helpers ------------------------------------------------------------

func decodeRows[T any](data []byte) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Internal("decode supabase response", err)
	}
	return rows, nil
}

func decodeRow[T any](data []byte) (T, error) {
	var row T
	if err := json.Unmarshal(data, &row); err != nil {
		var zero T
		return zero, errors.Internal("decode supabase response", err)
	}
	return row, nil
}

// firstRow returns the first element of a representation response, or a
// not-found error when the filter matched no rows.
func firstRow[T any](data []byte, missing string) (T, error) {
	rows, err := decodeRows[T](data)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(rows) == 0 {
		var zero T
		return zero, errors.NotFound(missing)
	}
	return rows[0], nil
}

func stamp(id *string, createdAt, updatedAt *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

func eq(column, value string) string {
	return column + "=eq." + url.QueryEscape(value)
}

// Admin store ----------------------------------------------------------------

func (s *Store) CreateAdmin(ctx context.Context, a admin.Admin) (admin.Admin, error) {
	stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	data, err := s.client.request(ctx, http.MethodPost, tableAdmins, "", toAdminRow(a), requestOpts{prefer: preferRepresentation})
	if err != nil {
		return admin.Admin{}, err
	}
	row, err := firstRow[adminRow](data, "admin not persisted")
	if err != nil {
		return admin.Admin{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetAdmin(ctx context.Context, id string) (admin.Admin, error) {
	data, err := s.client.request(ctx, http.MethodGet, tableAdmins, eq("id", id)+"&limit=1", nil, requestOpts{singleObject: true})
	if err != nil {
		if errors.IsNotFound(err) {
			return admin.Admin{}, errors.NotFound("no admin found with that ID")
		}
		return admin.Admin{}, err
	}
	row, err := decodeRow[adminRow](data)
	if err != nil {
		return admin.Admin{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (admin.Admin, error) {
	data, err := s.client.request(ctx, http.MethodGet, tableAdmins, eq("email", email)+"&limit=1", nil, requestOpts{singleObject: true})
	if err != nil {
		if errors.IsNotFound(err) {
			return admin.Admin{}, errors.NotFound("no admin found with that email")
		}
		return admin.Admin{}, err
	}
	row, err := decodeRow[adminRow](data)
	if err != nil {
		return admin.Admin{}, err
	}
	return row.domain(), nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]admin.Admin, error) {
	data, err := s.client.request(ctx, http.MethodGet, tableAdmins, "order=created_at.desc", nil, requestOpts{})
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[adminRow](data)
	if err != nil {
		return nil, err
	}
	out := make([]admin.Admin, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (s *Store) UpdateAdmin(ctx context.Context, a admin.Admin) (admin.Admin, error) {
	a.UpdatedAt = time.Now().UTC()
	data, err := s.client.request(ctx, http.MethodPatch, tableAdmins, eq("id", a.ID), toAdminRow(a), requestOpts{prefer: preferRepresentation})
	if err != nil {
		return admin.Admin{}, err
	}
	row, err := firstRow[adminRow](data, "no admin found with that ID")
	if err != nil {
		return admin.Admin{}, err
	}
	return row.domain(), nil
}

func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	data, err := s.client.request(ctx, http.MethodDelete, tableAdmins, eq("id", id), nil, requestOpts{prefer: preferRepresentation})
	if err != nil {
		return err
	}
	_, err = firstRow[adminRow](data, "no admin found with that ID")
	return err
}

// Node store -----------------------------------------------------------------

func (s *Store) CreateNode(ctx context.Context, n node.Node) (node.Node, error) {
	stamp(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	data, err := s.client.request(ctx, http.MethodPost, tableNodes, "", toNodeRow(n), requestOpts{prefer: preferRepresentation})
	if err != nil {
		return node.Node{}, err
	}
	row, err := firstRow[nodeRow](data, "node not persisted")
	if err != nil {
		return node.Node{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetNode(ctx context.Context, id string) (node.Node, error) {
	data, err := s.client.request(ctx, http.MethodGet, tableNodes, eq("id", id)+"&limit=1", nil, requestOpts{singleObject: true})
	if err != nil {
		if errors.IsNotFound(err) {
			return node.Node{}, errors.NotFound("no node found with that ID")
		}
		return node.Node{}, err
	}
	row, err := decodeRow[nodeRow](data)
	if err != nil {
		return node.Node{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetNodeByEmail(ctx context.Context, email string) (node.Node, error) {
	data, err := s.client.request(ctx, http.MethodGet, tableNodes, eq("email", email)+"&limit=1", nil, requestOpts{singleObject: true})
	if err != nil {
		if errors.IsNotFound(err) {
			return node.Node{}, errors.NotFound("no node found with that email")
		}
		return node.Node{}, err
	}
	row, err := decodeRow[nodeRow](data)
	if err != nil {
		return node.Node{}, err
	}
	return row.domain(), nil
}

func (s *Store) ListNodes(ctx context.Context) ([]node.Node, error) {
	data, err := s.client.request(ctx, http.MethodGet, tableNodes, "order=created_at.desc", nil, requestOpts{})
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[nodeRow](data)
	if err != nil {
		return nil, err
	}
	out := make([]node.Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (s *Store) UpdateNode(ctx context.Context, n node.Node) (node.Node, error) {
	n.UpdatedAt = time.Now().UTC()
	data, err := s.client.request(ctx, http.MethodPatch, tableNodes, eq("id", n.ID), toNodeRow(n), requestOpts{prefer: preferRepresentation})
	if err != nil {
		return node.Node{}, err
	}
	row, err := firstRow[nodeRow](data, "no node found with that ID")
	if err != nil {
		return node.Node{}, err
	}
	return row.domain(), nil
}

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	data, err := s.client.request(ctx, http.MethodDelete, tableNodes, eq("id", id), nil, requestOpts{prefer: preferRepresentation})
	if err != nil {
		return err
	}
	_, err = firstRow[nodeRow](data, "no node found with that ID")
	return err
}

// User store -----------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	data, err := s.client.request(ctx, http.MethodPost, tableUsers, "", toUserRow(u), requestOpts{prefer: preferRepresentation})
	if err != nil {
		return user.User{}, err
	}
	row, err := firstRow[userRow](data, "user not persisted")
	if err != nil {
		return user.User{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	data, err := s.client.request(ctx, http.MethodGet, tableUsers, eq("id", id)+"&limit=1", nil, requestOpts{singleObject: true})
	if err != nil {
		if errors.IsNotFound(err) {
			return user.User{}, errors.NotFound("no user found with that ID")
		}
		return user.User{}, err
	}
	row, err := decodeRow[userRow](data)
	if err != nil {
		return user.User{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetUserByEthAddress(ctx context.Context, ethAddress string) (user.User, error) {
	data, err := s.client.request(ctx, http.MethodGet, tableUsers, eq("eth_address", ethAddress)+"&limit=1", nil, requestOpts{singleObject: true})
	if err != nil {
		if errors.IsNotFound(err) {
			return user.User{}, errors.NotFound("no user found with that ETH address")
		}
		return user.User{}, err
	}
	row, err := decodeRow[userRow](data)
	if err != nil {
		return user.User{}, err
	}
	return row.domain(), nil
}

// ListUsers executes the validated query verbatim; projection narrows the
// returned columns, so absent columns decode to zero values.
func (s *Store) ListUsers(ctx context.Context, q query.Query) ([]user.User, error) {
	data, err := s.client.request(ctx, http.MethodGet, tableUsers, q.Encode(), nil, requestOpts{})
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[userRow](data)
	if err != nil {
		return nil, err
	}
	out := make([]user.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = time.Now().UTC()
	data, err := s.client.request(ctx, http.MethodPatch, tableUsers, eq("id", u.ID), toUserRow(u), requestOpts{prefer: preferRepresentation})
	if err != nil {
		return user.User{}, err
	}
	row, err := firstRow[userRow](data, "no user found with that ID")
	if err != nil {
		return user.User{}, err
	}
	return row.domain(), nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	data, err := s.client.request(ctx, http.MethodDelete, tableUsers, eq("id", id), nil, requestOpts{prefer: preferRepresentation})
	if err != nil {
		return err
	}
	_, err = firstRow[userRow](data, "no user found with that ID")
	return err
}

// UpdateUserCollateral issues a conditional PATCH: the write only applies
// while the stored collateral still equals the value the caller read.
func (s *Store) UpdateUserCollateral(ctx context.Context, id string, expected, next float64) (user.User, error) {
	rawQuery := eq("id", id) + "&collateral_deposited=eq." + strconv.FormatFloat(expected, 'f', -1, 64)
	body := map[string]any{
		"collateral_deposited": next,
		"updated_at":           time.Now().UTC(),
	}
	data, err := s.client.request(ctx, http.MethodPatch, tableUsers, rawQuery, body, requestOpts{prefer: preferRepresentation})
	if err != nil {
		return user.User{}, err
	}
	rows, err := decodeRows[userRow](data)
	if err != nil {
		return user.User{}, err
	}
	if len(rows) == 0 {
		// Either the row is gone or the observed value is stale.
		if _, getErr := s.GetUser(ctx, id); getErr != nil {
			return user.User{}, getErr
		}
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrStale)
	}
	return rows[0].domain(), nil
}

// Position store -------------------------------------------------------------

func (s *Store) CreatePosition(ctx context.Context, p position.TokenizedPosition) (position.TokenizedPosition, error) {
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	data, err := s.client.request(ctx, http.MethodPost, tablePositions, "", toPositionRow(p), requestOpts{prefer: preferRepresentation})
	if err != nil {
		return position.TokenizedPosition{}, err
	}
	row, err := firstRow[positionRow](data, "position not persisted")
	if err != nil {
		return position.TokenizedPosition{}, err
	}
	return row.domain(), nil
}

func (s *Store) GetPositionByKey(ctx context.Context, userAddress, treAddress string) (position.TokenizedPosition, error) {
	rawQuery := eq("user_address", userAddress) + "&" + eq("tokenized_real_estate_address", treAddress) + "&limit=1"
	data, err := s.client.request(ctx, http.MethodGet, tablePositions, rawQuery, nil, requestOpts{singleObject: true})
	if err != nil {
		if errors.IsNotFound(err) {
			return position.TokenizedPosition{}, errors.NotFound("no position found for that address pair")
		}
		return position.TokenizedPosition{}, err
	}
	row, err := decodeRow[positionRow](data)
	if err != nil {
		return position.TokenizedPosition{}, err
	}
	return row.domain(), nil
}

func (s *Store) ListPositions(ctx context.Context, filter position.LedgerFilter) ([]position.TokenizedPosition, error) {
	rawQuery := "order=created_at.desc"
	if filter.UserAddress != "" {
		rawQuery += "&" + eq("user_address", filter.UserAddress)
	}
	if filter.TokenizedRealEstateAddress != "" {
		rawQuery += "&" + eq("tokenized_real_estate_address", filter.TokenizedRealEstateAddress)
	}
	data, err := s.client.request(ctx, http.MethodGet, tablePositions, rawQuery, nil, requestOpts{})
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[positionRow](data)
	if err != nil {
		return nil, err
	}
	out := make([]position.TokenizedPosition, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (s *Store) UpdatePosition(ctx context.Context, p position.TokenizedPosition) (position.TokenizedPosition, error) {
	p.UpdatedAt = time.Now().UTC()
	data, err := s.client.request(ctx, http.MethodPatch, tablePositions, eq("id", p.ID), toPositionRow(p), requestOpts{prefer: preferRepresentation})
	if err != nil {
		return position.TokenizedPosition{}, err
	}
	row, err := firstRow[positionRow](data, "no position found with that ID")
	if err != nil {
		return position.TokenizedPosition{}, err
	}
	return row.domain(), nil
}

// Ledger store ---------------------------------------------------------------

func (s *Store) AppendPositionLog(ctx context.Context, l position.PositionLog) (position.PositionLog, error) {
	stamp(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	row := logRow{
		ID:                         l.ID,
		UserAddress:                l.UserAddress,
		TokenizedRealEstateAddress: l.TokenizedRealEstateAddress,
		TxType:                     string(l.TxType),
		Amount:                     l.Amount,
		Symbol:                     l.Symbol,
		TxHash:                     l.TxHash,
		CreatedAt:                  l.CreatedAt,
		UpdatedAt:                  l.UpdatedAt,
	}
	data, err := s.client.request(ctx, http.MethodPost, tableLogs, "", row, requestOpts{prefer: preferRepresentation})
	if err != nil {
		return position.PositionLog{}, err
	}
	stored, err := firstRow[logRow](data, "position log not persisted")
	if err != nil {
		return position.PositionLog{}, err
	}
	return stored.positionLog(), nil
}

func (s *Store) ListPositionLogs(ctx context.Context, filter position.LedgerFilter) ([]position.PositionLog, error) {
	rows, err := s.listLedger(ctx, tableLogs, filter)
	if err != nil {
		return nil, err
	}
	out := make([]position.PositionLog, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.positionLog())
	}
	return out, nil
}

func (s *Store) AppendCrossChainTxn(ctx context.Context, t position.CrossChainTxn) (position.CrossChainTxn, error) {
	stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	row := logRow{
		ID:                         t.ID,
		UserAddress:                t.UserAddress,
		TokenizedRealEstateAddress: t.TokenizedRealEstateAddress,
		TxType:                     string(t.TxType),
		Amount:                     t.Amount,
		Symbol:                     t.Symbol,
		TxHash:                     t.TxHash,
		CCIPLink:                   t.CCIPLink,
		CreatedAt:                  t.CreatedAt,
		UpdatedAt:                  t.UpdatedAt,
	}
	data, err := s.client.request(ctx, http.MethodPost, tableTxns, "", row, requestOpts{prefer: preferRepresentation})
	if err != nil {
		return position.CrossChainTxn{}, err
	}
	stored, err := firstRow[logRow](data, "cross-chain txn not persisted")
	if err != nil {
		return position.CrossChainTxn{}, err
	}
	return stored.crossChainTxn(), nil
}

func (s *Store) ListCrossChainTxns(ctx context.Context, filter position.LedgerFilter) ([]position.CrossChainTxn, error) {
	rows, err := s.listLedger(ctx, tableTxns, filter)
	if err != nil {
		return nil, err
	}
	out := make([]position.CrossChainTxn, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.crossChainTxn())
	}
	return out, nil
}

func (s *Store) listLedger(ctx context.Context, table string, filter position.LedgerFilter) ([]logRow, error) {
	rawQuery := "order=created_at.desc"
	if filter.UserAddress != "" {
		rawQuery += "&" + eq("user_address", filter.UserAddress)
	}
	if filter.TokenizedRealEstateAddress != "" {
		rawQuery += "&" + eq("tokenized_real_estate_address", filter.TokenizedRealEstateAddress)
	}
	data, err := s.client.request(ctx, http.MethodGet, table, rawQuery, nil, requestOpts{})
	if err != nil {
		return nil, err
	}
	return decodeRows[logRow](data)
}

func (r logRow) positionLog() position.PositionLog {
	return position.PositionLog{
		ID:                         r.ID,
		UserAddress:                r.UserAddress,
		TokenizedRealEstateAddress: r.TokenizedRealEstateAddress,
		TxType:                     position.TxType(r.TxType),
		Amount:                     r.Amount,
		Symbol:                     r.Symbol,
		TxHash:                     r.TxHash,
		CreatedAt:                  r.CreatedAt,
		UpdatedAt:                  r.UpdatedAt,
	}
}

func (r logRow) crossChainTxn() position.CrossChainTxn {
	return position.CrossChainTxn{
		ID:                         r.ID,
		UserAddress:                r.UserAddress,
		TokenizedRealEstateAddress: r.TokenizedRealEstateAddress,
		TxType:                     position.TxType(r.TxType),
		Amount:                     r.Amount,
		Symbol:                     r.Symbol,
		TxHash:                     r.TxHash,
		CCIPLink:                   r.CCIPLink,
		CreatedAt:                  r.CreatedAt,
		UpdatedAt:                  r.UpdatedAt,
	}
}
