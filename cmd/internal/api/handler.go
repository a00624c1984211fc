package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledgerd/cmd/identity"
	"ledgerd/cmd/internal/auth"
	"ledgerd/cmd/internal/auth/token"
	"ledgerd/cmd/internal/events"
	"ledgerd/cmd/internal/ledger"
	"ledgerd/cmd/internal/stream"
)

// Handler wires the HTTP routes to the core services.
type Handler struct {
	log *slog.Logger
	cfg Config

	principals *identity.Service
	tokens     *token.Service
	gate       *auth.Gate
	ledger     ledger.Store

	publisher events.Publisher
	hub       *stream.Hub
	metrics   *Metrics

	throttle *loginThrottle
}

// NewHandler constructs the API handler.
func NewHandler(
	log *slog.Logger,
	cfg Config,
	principals *identity.Service,
	tokens *token.Service,
	gate *auth.Gate,
	store ledger.Store,
	publisher events.Publisher,
	hub *stream.Hub,
	metrics *Metrics,
) (*Handler, error) {
	if principals == nil || tokens == nil || gate == nil || store == nil {
		return nil, errors.New("api: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}

	return &Handler{
		log:        log,
		cfg:        cfg,
		principals: principals,
		tokens:     tokens,
		gate:       gate,
		ledger:     store,
		publisher:  publisher,
		hub:        hub,
		metrics:    metrics,
		throttle:   newLoginThrottle(cfg.LoginFailMax, cfg.LoginFailWindow),
	}, nil
}

// Register wires the routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("POST /accounts", h.handleCreateAccount)
	mux.HandleFunc("GET /accounts", h.handleListAccounts)
	mux.HandleFunc("GET /accounts/{id}", h.handleGetAccount)
	mux.HandleFunc("POST /transfer", h.handleTransfer)
	mux.HandleFunc("GET /transfers", h.handleListTransfers)
	mux.HandleFunc("GET /ws", h.handleWS)
}

// ---- handlers ----

func (h *Handler) handleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, homeResponse{Message: "welcome to ledgerd"})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	p, err := h.principals.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case identity.IsDuplicateUsername(err):
			writeError(w, http.StatusConflict, "duplicate_username", "username already exists")
		case errors.Is(err, identity.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.log.Error("api.register.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.log.Info("api.register.ok", "username", p.Username)
	writeJSON(w, http.StatusCreated, registerResponse{
		Username:  p.Username,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	now := time.Now().UTC()
	identifier := identity.NormalizeUsername(req.Username)

	if blocked, retryAfter := h.throttle.blocked(identifier, now); blocked {
		h.countLogin("rate_limited")
		writeRateLimited(w, retryAfter)
		return
	}

	p, err := h.principals.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		if identity.IsInvalidCredential(err) {
			// Unknown user and wrong password are deliberately identical here.
			h.throttle.fail(identifier, now)
			h.countLogin("failure")
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "incorrect username or password")
			return
		}
		h.log.Error("api.login.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	signed, exp, err := h.tokens.Issue(p.Username, 0, now)
	if err != nil {
		h.log.Error("api.login.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.throttle.reset(identifier)
	h.countLogin("success")
	h.log.Info("api.login.ok", "username", p.Username)

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   exp,
	})
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	var req createAccountRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	a, err := h.ledger.CreateAccount(r.Context(), ledger.Account{
		ID:      req.ID,
		Name:    req.Name,
		Email:   req.Email,
		Balance: req.Balance,
	})
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.log.Info("api.account.created", "account_id", a.ID)
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "account id must be an integer")
		return
	}

	a, err := h.ledger.GetAccount(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	list, err := h.ledger.ListAccounts(r.Context())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if list == nil {
		list = []ledger.Account{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	res, err := h.ledger.Transfer(r.Context(), req.FromID, req.ToID, req.Amount)
	if err != nil {
		h.countTransfer(transferResult(err))
		h.writeLedgerError(w, err)
		return
	}

	h.countTransfer("success")
	h.log.Info("api.transfer.ok",
		"transfer_id", res.Transfer.ID,
		"from_id", req.FromID,
		"to_id", req.ToID,
		"by", principal.Username,
	)

	ev := events.TransferCompleted{
		TransferID:    res.Transfer.ID,
		FromID:        res.Transfer.FromID,
		ToID:          res.Transfer.ToID,
		Amount:        res.Transfer.Amount,
		SourceBalance: res.SourceBalance,
		DestBalance:   res.DestBalance,
		OccurredAt:    res.Transfer.At,
	}
	if h.hub != nil {
		h.hub.Publish(ev)
	}
	// Event delivery is best-effort; the transfer is already committed.
	if err := h.publisher.TransferCompleted(r.Context(), ev); err != nil {
		h.log.Error("api.transfer.publish.fail", "transfer_id", ev.TransferID, "err", err)
	}

	writeJSON(w, http.StatusOK, transferResponse{
		TransferID: res.Transfer.ID,
		Message: fmt.Sprintf("%s transferred from account %d to account %d",
			res.Transfer.Amount, req.FromID, req.ToID),
		SourceBalance: res.SourceBalance,
		DestBalance:   res.DestBalance,
	})
}

func (h *Handler) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	journal, err := h.ledger.ListTransfers(r.Context())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if journal == nil {
		journal = []ledger.Transfer{}
	}
	writeJSON(w, http.StatusOK, journal)
}

// ---- helpers ----

// authenticate admits the request or writes a 401 and returns ok=false.
// Expired, tampered and unknown-subject tokens are indistinguishable on the
// wire; the distinction lives in the gate's debug logs only.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (identity.Principal, bool) {
	p, err := h.gate.Authenticate(r.Context(), bearerToken(r), time.Now().UTC())
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return identity.Principal{}, false
		}
		h.log.Error("api.authenticate.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return identity.Principal{}, false
	}
	return p, true
}

// bearerToken extracts the credential from the Authorization header, falling
// back to the access_token query parameter for WebSocket clients that cannot
// set headers.
func bearerToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func (h *Handler) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", "account not found")
	case ledger.IsDuplicateAccount(err):
		writeError(w, http.StatusConflict, "duplicate_account", "account already exists")
	case ledger.IsInsufficientFunds(err):
		writeError(w, http.StatusBadRequest, "insufficient_funds", "insufficient balance")
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount must be positive")
	case errors.Is(err, ledger.ErrInvalidBalance):
		writeError(w, http.StatusBadRequest, "invalid_balance", "balance must be non-negative")
	default:
		h.log.Error("api.ledger.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func transferResult(err error) string {
	switch {
	case ledger.IsNotFound(err):
		return "not_found"
	case ledger.IsInsufficientFunds(err):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "error"
	}
}

func (h *Handler) countLogin(result string) {
	if h.metrics != nil {
		h.metrics.Logins.WithLabelValues(result).Inc()
	}
}

func (h *Handler) countTransfer(result string) {
	if h.metrics != nil {
		h.metrics.Transfers.WithLabelValues(result).Inc()
	}
}
