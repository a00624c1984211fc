package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"ledgerd/cmd/identity"
	"ledgerd/cmd/internal/auth"
	"ledgerd/cmd/internal/auth/token"
	"ledgerd/cmd/internal/ledger"
	"ledgerd/cmd/internal/stream"
	"ledgerd/cmd/security/password"
)

func testPasswordConfig() password.Config {
	// Cheap parameters so the suite stays fast.
	return password.Config{
		Params: password.Params{
			MemoryKiB:   8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: password.Policy{MinLength: 8, MaxLength: 256},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	principals, err := identity.NewService(identity.NewMemoryStore(), testPasswordConfig())
	if err != nil {
		t.Fatalf("identity service: %v", err)
	}

	tokens, err := token.NewService(token.Config{
		Issuer: "ledgerd-test",
		TTL:    30 * time.Minute,
		Secret: bytes.Repeat([]byte{0x5a}, 32),
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	gate, err := auth.NewGate(log, tokens, principals)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}

	cfg := Config{
		MaxBodyBytes:    1 << 20,
		LoginFailMax:    10,
		LoginFailWindow: 5 * time.Minute,
		WSWriteTimeout:  time.Second,
	}

	h, err := NewHandler(
		log, cfg,
		principals, tokens, gate,
		ledger.NewMemoryStore(),
		nil,
		stream.NewHub(log),
		NewMetrics(prometheus.NewRegistry()),
	)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, bearer string, body any) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func register(t *testing.T, srv *httptest.Server, username, email, pass string) (*http.Response, []byte) {
	t.Helper()
	return doJSON(t, srv, http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": pass,
	})
}

func login(t *testing.T, srv *httptest.Server, username, pass string) string {
	t.Helper()

	resp, raw := doJSON(t, srv, http.MethodPost, "/login", "", map[string]string{
		"username": username,
		"password": pass,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", resp.StatusCode, raw)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if out.TokenType != "bearer" {
		t.Fatalf("token_type = %q, want bearer", out.TokenType)
	}
	if out.AccessToken == "" {
		t.Fatal("empty access_token")
	}
	return out.AccessToken
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode error body %s: %v", raw, err)
	}
	return out.Error.Code
}

func getBalance(t *testing.T, srv *httptest.Server, tok string, id int64) decimal.Decimal {
	t.Helper()

	resp, raw := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/accounts/%d", id), tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get account %d status = %d, body = %s", id, resp.StatusCode, raw)
	}
	var a ledger.Account
	if err := json.Unmarshal(raw, &a); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	return a.Balance
}

func TestRegisterLoginTransferFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := register(t, srv, "alice", "alice@example.com", "correct-horse")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", resp.StatusCode, raw)
	}

	tok := login(t, srv, "alice", "correct-horse")

	for _, acc := range []map[string]any{
		{"id": 1, "name": "checking", "email": "alice@example.com", "balance": "100"},
		{"id": 2, "name": "savings", "email": "alice@example.com", "balance": "50"},
	} {
		resp, raw := doJSON(t, srv, http.MethodPost, "/accounts", tok, acc)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create account status = %d, body = %s", resp.StatusCode, raw)
		}
	}

	resp, raw = doJSON(t, srv, http.MethodPost, "/transfer", tok, map[string]any{
		"from_id": 1, "to_id": 2, "amount": "30",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transfer status = %d, body = %s", resp.StatusCode, raw)
	}
	var tr transferResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		t.Fatalf("decode transfer response: %v", err)
	}
	if tr.TransferID == "" {
		t.Fatal("empty transfer_id")
	}
	if !tr.SourceBalance.Equal(decimal.RequireFromString("70")) {
		t.Fatalf("source balance = %s, want 70", tr.SourceBalance)
	}
	if !tr.DestBalance.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("dest balance = %s, want 80", tr.DestBalance)
	}

	if got := getBalance(t, srv, tok, 1); !got.Equal(decimal.RequireFromString("70")) {
		t.Fatalf("account 1 balance = %s, want 70", got)
	}
	if got := getBalance(t, srv, tok, 2); !got.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("account 2 balance = %s, want 80", got)
	}

	// An overdraft attempt fails and leaves both balances untouched.
	resp, raw = doJSON(t, srv, http.MethodPost, "/transfer", tok, map[string]any{
		"from_id": 1, "to_id": 2, "amount": "1000",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("overdraft status = %d, body = %s", resp.StatusCode, raw)
	}
	if code := errorCode(t, raw); code != "insufficient_funds" {
		t.Fatalf("overdraft code = %q, want insufficient_funds", code)
	}

	if got := getBalance(t, srv, tok, 1); !got.Equal(decimal.RequireFromString("70")) {
		t.Fatalf("account 1 balance after failed transfer = %s, want 70", got)
	}
	if got := getBalance(t, srv, tok, 2); !got.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("account 2 balance after failed transfer = %s, want 80", got)
	}

	// Journal shows exactly the one applied transfer.
	resp, raw = doJSON(t, srv, http.MethodGet, "/transfers", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list transfers status = %d", resp.StatusCode)
	}
	var journal []ledger.Transfer
	if err := json.Unmarshal(raw, &journal); err != nil {
		t.Fatalf("decode journal: %v", err)
	}
	if len(journal) != 1 {
		t.Fatalf("journal length = %d, want 1", len(journal))
	}
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		username   string
		email      string
		pass       string
		wantStatus int
		wantCode   string
	}{
		{"missing username", "", "a@example.com", "long-enough", http.StatusBadRequest, "invalid_request"},
		{"bad email", "bob", "not-an-email", "long-enough", http.StatusBadRequest, "invalid_request"},
		{"short password", "bob", "bob@example.com", "short", http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, raw := register(t, srv, tc.username, tc.email, tc.pass)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", resp.StatusCode, tc.wantStatus, raw)
			}
			if code := errorCode(t, raw); code != tc.wantCode {
				t.Fatalf("code = %q, want %q", code, tc.wantCode)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	srv := newTestServer(t)

	if resp, raw := register(t, srv, "carol", "carol@example.com", "first-password"); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register status = %d, body = %s", resp.StatusCode, raw)
	}

	// Same username with different case still collides.
	resp, raw := register(t, srv, "Carol", "carol2@example.com", "other-password")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, body = %s", resp.StatusCode, raw)
	}
	if code := errorCode(t, raw); code != "duplicate_username" {
		t.Fatalf("code = %q, want duplicate_username", code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)

	if resp, raw := register(t, srv, "dave", "dave@example.com", "real-password"); resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", resp.StatusCode, raw)
	}

	// Wrong password and unknown user produce the same response.
	for _, creds := range []map[string]string{
		{"username": "dave", "password": "wrong-password"},
		{"username": "nobody", "password": "real-password"},
	} {
		resp, raw := doJSON(t, srv, http.MethodPost, "/login", "", creds)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("login %v status = %d, body = %s", creds, resp.StatusCode, raw)
		}
		if code := errorCode(t, raw); code != "invalid_credentials" {
			t.Fatalf("code = %q, want invalid_credentials", code)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/accounts", map[string]any{"id": 1, "name": "x", "balance": "1"}},
		{http.MethodGet, "/accounts", nil},
		{http.MethodGet, "/accounts/1", nil},
		{http.MethodPost, "/transfer", map[string]any{"from_id": 1, "to_id": 2, "amount": "1"}},
		{http.MethodGet, "/transfers", nil},
	}
	for _, bearer := range []string{"", "not-a-token"} {
		for _, tc := range tests {
			resp, raw := doJSON(t, srv, tc.method, tc.path, bearer, tc.body)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("%s %s bearer=%q status = %d, body = %s", tc.method, tc.path, bearer, resp.StatusCode, raw)
			}
			if code := errorCode(t, raw); code != "unauthorized" {
				t.Fatalf("%s %s code = %q, want unauthorized", tc.method, tc.path, code)
			}
		}
	}

	// The rejected create must not have touched the ledger.
	if resp, _ := register(t, srv, "erin", "erin@example.com", "erin-password"); resp.StatusCode != http.StatusCreated {
		t.Fatal("register failed")
	}
	tok := login(t, srv, "erin", "erin-password")
	resp, raw := doJSON(t, srv, http.MethodGet, "/accounts/1", tok, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("account 1 should not exist, status = %d, body = %s", resp.StatusCode, raw)
	}
}

func TestAccountErrors(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := register(t, srv, "frank", "frank@example.com", "frank-password"); resp.StatusCode != http.StatusCreated {
		t.Fatal("register failed")
	}
	tok := login(t, srv, "frank", "frank-password")

	body := map[string]any{"id": 7, "name": "main", "email": "frank@example.com", "balance": "10"}
	if resp, raw := doJSON(t, srv, http.MethodPost, "/accounts", tok, body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", resp.StatusCode, raw)
	}

	resp, raw := doJSON(t, srv, http.MethodPost, "/accounts", tok, body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate create status = %d, body = %s", resp.StatusCode, raw)
	}
	if code := errorCode(t, raw); code != "duplicate_account" {
		t.Fatalf("code = %q, want duplicate_account", code)
	}

	resp, raw = doJSON(t, srv, http.MethodPost, "/accounts", tok, map[string]any{
		"id": 8, "name": "broke", "balance": "-5",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative balance status = %d, body = %s", resp.StatusCode, raw)
	}
	if code := errorCode(t, raw); code != "invalid_balance" {
		t.Fatalf("code = %q, want invalid_balance", code)
	}

	resp, raw = doJSON(t, srv, http.MethodGet, "/accounts/999", tok, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing account status = %d, body = %s", resp.StatusCode, raw)
	}
	if code := errorCode(t, raw); code != "not_found" {
		t.Fatalf("code = %q, want not_found", code)
	}
}

func TestTransferErrors(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := register(t, srv, "grace", "grace@example.com", "grace-password"); resp.StatusCode != http.StatusCreated {
		t.Fatal("register failed")
	}
	tok := login(t, srv, "grace", "grace-password")

	if resp, raw := doJSON(t, srv, http.MethodPost, "/accounts", tok, map[string]any{
		"id": 1, "name": "a", "balance": "100",
	}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", resp.StatusCode, raw)
	}

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{"missing counterparty", map[string]any{"from_id": 1, "to_id": 2, "amount": "5"}, http.StatusNotFound, "not_found"},
		{"missing source", map[string]any{"from_id": 9, "to_id": 1, "amount": "5"}, http.StatusNotFound, "not_found"},
		{"zero amount", map[string]any{"from_id": 1, "to_id": 1, "amount": "0"}, http.StatusBadRequest, "invalid_amount"},
		{"negative amount", map[string]any{"from_id": 1, "to_id": 1, "amount": "-3"}, http.StatusBadRequest, "invalid_amount"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, raw := doJSON(t, srv, http.MethodPost, "/transfer", tok, tc.body)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", resp.StatusCode, tc.wantStatus, raw)
			}
			if code := errorCode(t, raw); code != tc.wantCode {
				t.Fatalf("code = %q, want %q", code, tc.wantCode)
			}
		})
	}

	if got := getBalance(t, srv, tok, 1); !got.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("balance drifted to %s after failed transfers", got)
	}
}

func TestSelfTransferIsRecordedNoOp(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := register(t, srv, "heidi", "heidi@example.com", "heidi-password"); resp.StatusCode != http.StatusCreated {
		t.Fatal("register failed")
	}
	tok := login(t, srv, "heidi", "heidi-password")

	if resp, raw := doJSON(t, srv, http.MethodPost, "/accounts", tok, map[string]any{
		"id": 3, "name": "solo", "balance": "40",
	}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", resp.StatusCode, raw)
	}

	resp, raw := doJSON(t, srv, http.MethodPost, "/transfer", tok, map[string]any{
		"from_id": 3, "to_id": 3, "amount": "10",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("self transfer status = %d, body = %s", resp.StatusCode, raw)
	}
	if got := getBalance(t, srv, tok, 3); !got.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("balance after self transfer = %s, want 40", got)
	}
}

func TestHomeAndUnknownFields(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := doJSON(t, srv, http.MethodGet, "/", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("home status = %d", resp.StatusCode)
	}
	var home homeResponse
	if err := json.Unmarshal(raw, &home); err != nil || home.Message == "" {
		t.Fatalf("home body = %s", raw)
	}

	// Unknown fields in request bodies are rejected, not ignored.
	resp, raw = doJSON(t, srv, http.MethodPost, "/register", "", map[string]any{
		"username": "ivan", "email": "ivan@example.com", "password": "long-enough", "admin": true,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown-field status = %d, body = %s", resp.StatusCode, raw)
	}
	if code := errorCode(t, raw); code != "invalid_json" {
		t.Fatalf("code = %q, want invalid_json", code)
	}
}
