// Package httpapi exposes the REST API: admin and node operator management,
// user records, collateral accounting, tokenized positions, and the
// transaction ledgers.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/estatelink/tre-backend/internal/app/domain/position"
	"github.com/estatelink/tre-backend/internal/app/domain/user"
	"github.com/estatelink/tre-backend/internal/app/services/admins"
	"github.com/estatelink/tre-backend/internal/app/services/auth"
	"github.com/estatelink/tre-backend/internal/app/services/ledger"
	"github.com/estatelink/tre-backend/internal/app/services/nodes"
	"github.com/estatelink/tre-backend/internal/app/services/positions"
	"github.com/estatelink/tre-backend/internal/app/services/users"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/middleware"
	"github.com/estatelink/tre-backend/internal/token"
	"github.com/estatelink/tre-backend/pkg/logger"
)

// Config wires the handler's dependencies.
type Config struct {
	Auth      *auth.Service
	Admins    *admins.Service
	Nodes     *nodes.Service
	Users     *users.Service
	Positions *positions.Service
	Ledger    *ledger.Service

	Signer *token.Signer
	APIKey string

	// Health reports backing-store connectivity; nil means always healthy.
	Health func(ctx context.Context) error
	// Metrics serves the metrics endpoint; nil disables it.
	Metrics http.Handler

	Log *logger.Logger
}

type handler struct {
	cfg        Config
	writeError middleware.ErrorWriter
}

// NewHandler returns the API router.
func NewHandler(cfg Config) http.Handler {
	if cfg.Log == nil {
		cfg.Log = logger.NewDefault("httpapi")
	}
	h := &handler{cfg: cfg, writeError: ErrorWriter(cfg.Log)}

	adminGate := middleware.Require(
		middleware.NewBearerAuthorizer(cfg.Signer, cfg.Auth.Lookup, token.KindAdmin), h.writeError)
	nodeGate := middleware.Require(
		middleware.NewNodeAuthorizer(cfg.Signer, cfg.Auth.Lookup), h.writeError)
	keyGate := middleware.Require(
		middleware.NewAPIKeyAuthorizer(cfg.APIKey), h.writeError)

	r := mux.NewRouter()
	r.NotFoundHandler = notFoundHandler()
	r.MethodNotAllowedHandler = notFoundHandler()

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Admin routes: open signup and login, everything else behind the
	// admin bearer gate.
	adminR := api.PathPrefix("/admin").Subrouter()
	adminR.HandleFunc("/signup", h.adminSignup).Methods(http.MethodPost)
	adminR.HandleFunc("/login", h.adminLogin).Methods(http.MethodPost)
	adminR.Handle("", adminGate(http.HandlerFunc(h.listAdmins))).Methods(http.MethodGet)
	adminR.Handle("/{id}", adminGate(http.HandlerFunc(h.getAdmin))).Methods(http.MethodGet)
	adminR.Handle("/{id}", adminGate(http.HandlerFunc(h.updateAdmin))).Methods(http.MethodPatch)
	adminR.Handle("/{id}", adminGate(http.HandlerFunc(h.deleteAdmin))).Methods(http.MethodDelete)
	adminR.Handle("/users", adminGate(http.HandlerFunc(h.listUsers))).Methods(http.MethodGet)
	adminR.Handle("/users/{id}", adminGate(http.HandlerFunc(h.getUser))).Methods(http.MethodGet)
	adminR.Handle("/users/{id}", adminGate(http.HandlerFunc(h.updateUser))).Methods(http.MethodPatch)
	adminR.Handle("/users/{id}", adminGate(http.HandlerFunc(h.deleteUser))).Methods(http.MethodDelete)
	adminR.Handle("/nodes", adminGate(http.HandlerFunc(h.listNodes))).Methods(http.MethodGet)
	adminR.Handle("/nodes/{id}", adminGate(http.HandlerFunc(h.getNode))).Methods(http.MethodGet)
	adminR.Handle("/nodes/{id}", adminGate(http.HandlerFunc(h.updateNode))).Methods(http.MethodPatch)
	adminR.Handle("/nodes/{id}", adminGate(http.HandlerFunc(h.deleteNode))).Methods(http.MethodDelete)
	adminR.Handle("/nodes/{id}/approve", adminGate(http.HandlerFunc(h.approveNode))).Methods(http.MethodPatch)

	// Node operator routes: open signup and login; the gate additionally
	// requires admin approval.
	nodeR := api.PathPrefix("/node").Subrouter()
	nodeR.HandleFunc("/signup", h.nodeSignup).Methods(http.MethodPost)
	nodeR.HandleFunc("/login", h.nodeLogin).Methods(http.MethodPost)
	nodeR.Handle("/users", nodeGate(http.HandlerFunc(h.listUsers))).Methods(http.MethodGet)
	nodeR.Handle("/users/{id}", nodeGate(http.HandlerFunc(h.getUser))).Methods(http.MethodGet)
	nodeR.Handle("/users/{id}", nodeGate(http.HandlerFunc(h.updateUser))).Methods(http.MethodPatch)
	nodeR.Handle("/users/{id}/verify", nodeGate(http.HandlerFunc(h.verifyUser))).Methods(http.MethodPatch)
	nodeR.Handle("/users/{id}/reject", nodeGate(http.HandlerFunc(h.rejectUser))).Methods(http.MethodPatch)

	// User routes: open registration and profile reads; machine callers
	// present the API key for everything touching balances and ledgers.
	userR := api.PathPrefix("/user").Subrouter()
	userR.HandleFunc("/register", h.registerUser).Methods(http.MethodPost)
	userR.HandleFunc("/profile/{id}", h.getUser).Methods(http.MethodGet)
	userR.HandleFunc("/profile/{id}", h.updateUser).Methods(http.MethodPatch)
	userR.Handle("/by-address/{ethAddress}", keyGate(http.HandlerFunc(h.getUserByAddress))).Methods(http.MethodGet)
	userR.Handle("/collateral/{ethAddress}/add", keyGate(http.HandlerFunc(h.addCollateral))).Methods(http.MethodPatch)
	userR.Handle("/collateral/{ethAddress}/subtract", keyGate(http.HandlerFunc(h.subtractCollateral))).Methods(http.MethodPatch)
	userR.Handle("/positions", keyGate(http.HandlerFunc(h.upsertPosition))).Methods(http.MethodPut)
	userR.Handle("/positions", keyGate(http.HandlerFunc(h.listPositions))).Methods(http.MethodGet)
	userR.Handle("/positions/all", keyGate(http.HandlerFunc(h.listAllPositions))).Methods(http.MethodGet)
	userR.Handle("/logs", keyGate(http.HandlerFunc(h.appendLog))).Methods(http.MethodPost)
	userR.Handle("/logs", keyGate(http.HandlerFunc(h.listLogs))).Methods(http.MethodGet)
	userR.Handle("/crosschain", keyGate(http.HandlerFunc(h.appendCrossChain))).Methods(http.MethodPost)
	userR.Handle("/crosschain", keyGate(http.HandlerFunc(h.listCrossChain))).Methods(http.MethodGet)

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Health != nil {
		if err := h.cfg.Health(r.Context()); err != nil {
			h.writeError(w, r, errors.Internal("store unreachable", err))
			return
		}
	}
	writeData(w, http.StatusOK, "health", "ok")
}

// Auth -----------------------------------------------------------------------

func (h *handler) adminSignup(w http.ResponseWriter, r *http.Request) {
	var in auth.AdminSignupInput
	if err := decodeJSON(r.Body, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, tok, err := h.cfg.Auth.AdminSignup(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeAuth(w, http.StatusCreated, tok, "admin", created)
}

func (h *handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(r.Body, &creds); err != nil {
		h.writeError(w, r, err)
		return
	}
	found, tok, err := h.cfg.Auth.AdminLogin(r.Context(), creds)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeAuth(w, http.StatusOK, tok, "admin", found)
}

func (h *handler) nodeSignup(w http.ResponseWriter, r *http.Request) {
	var in auth.NodeSignupInput
	if err := decodeJSON(r.Body, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, tok, err := h.cfg.Auth.NodeSignup(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeAuth(w, http.StatusCreated, tok, "node", created)
}

func (h *handler) nodeLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(r.Body, &creds); err != nil {
		h.writeError(w, r, err)
		return
	}
	found, tok, err := h.cfg.Auth.NodeLogin(r.Context(), creds)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeAuth(w, http.StatusOK, tok, "node", found)
}

// Admins ---------------------------------------------------------------------

func (h *handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	list, err := h.cfg.Admins.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "admins", len(list), list)
}

func (h *handler) getAdmin(w http.ResponseWriter, r *http.Request) {
	found, err := h.cfg.Admins.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "admin", found)
}

func (h *handler) updateAdmin(w http.ResponseWriter, r *http.Request) {
	var in admins.UpdateInput
	if err := decodeJSON(r.Body, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.cfg.Admins.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "admin", updated)
}

func (h *handler) deleteAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Admins.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Nodes ----------------------------------------------------------------------

func (h *handler) listNodes(w http.ResponseWriter, r *http.Request) {
	list, err := h.cfg.Nodes.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "nodes", len(list), list)
}

func (h *handler) getNode(w http.ResponseWriter, r *http.Request) {
	found, err := h.cfg.Nodes.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "node", found)
}

func (h *handler) updateNode(w http.ResponseWriter, r *http.Request) {
	var in nodes.UpdateInput
	if err := decodeJSON(r.Body, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.cfg.Nodes.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "node", updated)
}

func (h *handler) deleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Nodes.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) approveNode(w http.ResponseWriter, r *http.Request) {
	approved, err := h.cfg.Nodes.Approve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "node", approved)
}

// Users ----------------------------------------------------------------------

func (h *handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := decodeJSON(r.Body, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.cfg.Users.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "user", created)
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.cfg.Users.List(r.Context(), r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "users", len(list), list)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	found, err := h.cfg.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "user", found)
}

func (h *handler) getUserByAddress(w http.ResponseWriter, r *http.Request) {
	found, err := h.cfg.Users.GetByEthAddress(r.Context(), mux.Vars(r)["ethAddress"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "user", found)
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var upd user.Update
	if err := decodeJSON(r.Body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.cfg.Users.Update(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "user", updated)
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Users.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) verifyUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())
	verified, err := h.cfg.Users.Verify(r.Context(), mux.Vars(r)["id"], principal.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "user", verified)
}

func (h *handler) rejectUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	principal, _ := middleware.PrincipalFrom(r.Context())
	rejected, err := h.cfg.Users.Reject(r.Context(), mux.Vars(r)["id"], principal.ID, payload.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "user", rejected)
}

// Collateral -----------------------------------------------------------------

func (h *handler) addCollateral(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CollateralDeposited float64 `json:"collateralDeposited"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if payload.CollateralDeposited <= 0 {
		h.writeError(w, r, errors.Validation("collateralDeposited must be positive"))
		return
	}
	updated, err := h.cfg.Users.AddCollateral(r.Context(), mux.Vars(r)["ethAddress"], payload.CollateralDeposited)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "user", updated)
}

func (h *handler) subtractCollateral(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CollateralWithdrawn float64 `json:"collateralWithdrawn"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if payload.CollateralWithdrawn <= 0 {
		h.writeError(w, r, errors.Validation("collateralWithdrawn must be positive"))
		return
	}
	updated, err := h.cfg.Users.SubtractCollateral(r.Context(), mux.Vars(r)["ethAddress"], payload.CollateralWithdrawn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "user", updated)
}

// Positions ------------------------------------------------------------------

func (h *handler) upsertPosition(w http.ResponseWriter, r *http.Request) {
	var in positions.UpsertInput
	if err := decodeJSON(r.Body, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	saved, err := h.cfg.Positions.Upsert(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "position", saved)
}

func (h *handler) listPositions(w http.ResponseWriter, r *http.Request) {
	list, err := h.cfg.Positions.List(r.Context(), ledgerFilter(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "positions", len(list), list)
}

func (h *handler) listAllPositions(w http.ResponseWriter, r *http.Request) {
	list, err := h.cfg.Positions.List(r.Context(), position.LedgerFilter{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "positions", len(list), list)
}

// Ledgers --------------------------------------------------------------------

func (h *handler) appendLog(w http.ResponseWriter, r *http.Request) {
	var in ledger.LogInput
	if err := decodeJSON(r.Body, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	entry, err := h.cfg.Ledger.AppendLog(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "log", entry)
}

func (h *handler) listLogs(w http.ResponseWriter, r *http.Request) {
	list, err := h.cfg.Ledger.ListLogs(r.Context(), ledgerFilter(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "logs", len(list), list)
}

func (h *handler) appendCrossChain(w http.ResponseWriter, r *http.Request) {
	var in ledger.CrossChainInput
	if err := decodeJSON(r.Body, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	entry, err := h.cfg.Ledger.AppendCrossChain(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "txn", entry)
}

func (h *handler) listCrossChain(w http.ResponseWriter, r *http.Request) {
	list, err := h.cfg.Ledger.ListCrossChain(r.Context(), ledgerFilter(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, "txns", len(list), list)
}

func ledgerFilter(r *http.Request) position.LedgerFilter {
	q := r.URL.Query()
	return position.LedgerFilter{
		UserAddress:                q.Get("userAddress"),
		TokenizedRealEstateAddress: q.Get("tokenizedRealEstateAddress"),
	}
}
