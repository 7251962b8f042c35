package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/config"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/provider"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	bootstrapEmail = "root@casino.local"
	bootstrapPass  = "bootstrap-pass"
)

func newTestServer(t *testing.T) (*Server, *provider.MockProvider) {
	t.Helper()

	cfg := &config.Config{
		Port:            "0",
		Env:             "test",
		LogLevel:        "error",
		JWTSecret:       "test-secret",
		TokenTTLHours:   1,
		BootstrapEmail:  bootstrapEmail,
		BootstrapPass:   bootstrapPass,
		DefaultCurrency: "USD",
		RateLimitRPM:    100000,
	}

	mock := provider.NewMockProvider()
	srv, err := New(cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPayoutProvider(mock),
	)
	require.NoError(t, err)
	return srv, mock
}

// do performs a request against the router and returns the recorder.
func do(srv *Server, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "body: %s", w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, w, &resp)
	return resp.Error.Code
}

func adminLogin(t *testing.T, srv *Server, email, password string) string {
	t.Helper()
	w := do(srv, "POST", "/v1/auth/login", "", map[string]string{
		"email": email, "password": password,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, "admin login: %s", w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func registerPlayer(t *testing.T, srv *Server, email string) (token, id string) {
	t.Helper()
	w := do(srv, "POST", "/v1/auth/player/register", "", map[string]string{
		"email": email, "username": "tester", "password": "player-pass-1",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, "register: %s", w.Body.String())

	var resp struct {
		Token  string `json:"token"`
		Player struct {
			ID string `json:"id"`
		} `json:"player"`
	}
	decode(t, w, &resp)
	return resp.Token, resp.Player.ID
}

// createAdmin provisions an account with the given role via the
// bootstrap super admin.
func createAdmin(t *testing.T, srv *Server, rootToken, email, role string) string {
	t.Helper()
	w := do(srv, "POST", "/v1/admins", rootToken, map[string]string{
		"email": email, "password": "admin-pass-1", "role": role,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, "create admin: %s", w.Body.String())
	return adminLogin(t, srv, email, "admin-pass-1")
}

type balanceResp struct {
	Balance struct {
		Available int64 `json:"available_real"`
		Held      int64 `json:"held_real"`
		Bonus     int64 `json:"balance_bonus"`
	} `json:"balance"`
}

func getBalance(t *testing.T, srv *Server, playerToken string) balanceResp {
	t.Helper()
	w := do(srv, "GET", "/player/wallet/balance", playerToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp balanceResp
	decode(t, w, &resp)
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, "GET", "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(srv, "GET", "/health/live", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Readiness flips on in Run; a freshly built server is not ready.
	w = do(srv, "GET", "/health/ready", "", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, "GET", "/v1/players", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A player token is not an admin token.
	playerToken, _ := registerPlayer(t, srv, "p@example.com")
	w = do(srv, "GET", "/v1/players", playerToken, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlayerRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, "GET", "/player/wallet/balance", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	rootToken := adminLogin(t, srv, bootstrapEmail, bootstrapPass)
	w = do(srv, "GET", "/player/wallet/balance", rootToken, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestWithdrawalLifecycle drives the full money path over HTTP:
// deposit, withdraw, review, settle, and the failed-payout retry.
func TestWithdrawalLifecycle(t *testing.T) {
	srv, mock := newTestServer(t)
	rootToken := adminLogin(t, srv, bootstrapEmail, bootstrapPass)
	playerToken, playerID := registerPlayer(t, srv, "lucky@example.com")

	// Deposit 5000 cents.
	w := do(srv, "POST", "/player/wallet/deposit", playerToken,
		map[string]any{"amount_cents": 5000, "method": "card"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	bal := getBalance(t, srv, playerToken)
	require.Equal(t, int64(5000), bal.Balance.Available)

	// Withdraw 2000: available drops, held rises, state requested.
	w = do(srv, "POST", "/player/wallet/withdraw", playerToken,
		map[string]any{"amount_cents": 2000, "method": "bank"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var wdResp struct {
		WithdrawalID string `json:"withdrawal_id"`
		State        string `json:"state"`
	}
	decode(t, w, &wdResp)
	require.Equal(t, "requested", wdResp.State)

	bal = getBalance(t, srv, playerToken)
	require.Equal(t, int64(3000), bal.Balance.Available)
	require.Equal(t, int64(2000), bal.Balance.Held)

	// Approve.
	w = do(srv, "POST", "/v1/finance/withdrawals/"+wdResp.WithdrawalID+"/review", rootToken,
		map[string]string{"action": "approve", "reason": "docs verified"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Mark paid (offline settlement).
	w = do(srv, "POST", "/v1/finance/withdrawals/"+wdResp.WithdrawalID+"/mark-paid", rootToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	bal = getBalance(t, srv, playerToken)
	require.Equal(t, int64(3000), bal.Balance.Available)
	require.Equal(t, int64(0), bal.Balance.Held)

	// Re-approving a paid withdrawal is a state mismatch.
	w = do(srv, "POST", "/v1/finance/withdrawals/"+wdResp.WithdrawalID+"/review", rootToken,
		map[string]string{"action": "approve", "reason": "again"}, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "STATE_MISMATCH", errorCode(t, w))

	// Second withdrawal: provider declines once, then the retry settles.
	w = do(srv, "POST", "/player/wallet/withdraw", playerToken,
		map[string]any{"amount_cents": 3000, "method": "bank"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &wdResp)

	w = do(srv, "POST", "/v1/finance/withdrawals/"+wdResp.WithdrawalID+"/review", rootToken,
		map[string]string{"action": "approve", "reason": "docs verified"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	mock.FailNext(1)
	w = do(srv, "POST", "/v1/finance/withdrawals/"+wdResp.WithdrawalID+"/payout", rootToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var payoutResp struct {
		Withdrawal struct {
			State          string `json:"state"`
			PayoutAttempts int    `json:"payout_attempts"`
		} `json:"withdrawal"`
	}
	decode(t, w, &payoutResp)
	require.Equal(t, "payout_failed", payoutResp.Withdrawal.State)

	// Failure leaves balances untouched.
	bal = getBalance(t, srv, playerToken)
	require.Equal(t, int64(0), bal.Balance.Available)
	require.Equal(t, int64(3000), bal.Balance.Held)

	// Retry succeeds and drops held by the amount.
	w = do(srv, "POST", "/v1/finance/withdrawals/"+wdResp.WithdrawalID+"/payout", rootToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &payoutResp)
	require.Equal(t, "paid", payoutResp.Withdrawal.State)
	require.Equal(t, 2, payoutResp.Withdrawal.PayoutAttempts)

	bal = getBalance(t, srv, playerToken)
	require.Equal(t, int64(0), bal.Balance.Available)
	require.Equal(t, int64(0), bal.Balance.Held)

	// The lifecycle left an audit trail.
	w = do(srv, "GET", "/v1/audit/events?resource_type=withdrawal", rootToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var auditResp struct {
		Events []struct {
			Action string `json:"action"`
		} `json:"events"`
	}
	decode(t, w, &auditResp)
	assert.NotEmpty(t, auditResp.Events)
	_ = playerID
}

func TestDeposit_IdempotencyKeyOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	playerToken, _ := registerPlayer(t, srv, "p@example.com")

	headers := map[string]string{"Idempotency-Key": "dep-key-1"}
	body := map[string]any{"amount_cents": 5000}

	w := do(srv, "POST", "/player/wallet/deposit", playerToken, body, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(srv, "POST", "/player/wallet/deposit", playerToken, body, headers)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Replayed bool `json:"replayed"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Replayed)

	bal := getBalance(t, srv, playerToken)
	assert.Equal(t, int64(5000), bal.Balance.Available)
}

func TestRBAC_SupportAndOps(t *testing.T) {
	srv, _ := newTestServer(t)
	rootToken := adminLogin(t, srv, bootstrapEmail, bootstrapPass)
	supportToken := createAdmin(t, srv, rootToken, "support@example.com", "support")
	opsToken := createAdmin(t, srv, rootToken, "ops@example.com", "ops")

	_, playerID := registerPlayer(t, srv, "p@example.com")

	// Support can read players.
	w := do(srv, "GET", "/v1/players", supportToken, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Support cannot touch money or lifecycle.
	w = do(srv, "POST", "/v1/players/"+playerID+"/credit", supportToken,
		map[string]any{"amount_cents": 1000, "reason": "goodwill"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))

	w = do(srv, "POST", "/v1/players/"+playerID+"/suspend", supportToken,
		map[string]string{"reason": "abuse"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Ops can suspend but cannot credit.
	w = do(srv, "POST", "/v1/players/"+playerID+"/suspend", opsToken,
		map[string]string{"reason": "chargeback abuse"}, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(srv, "POST", "/v1/players/"+playerID+"/credit", opsToken,
		map[string]any{"amount_cents": 1000, "reason": "goodwill"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Only the owner manages flags.
	w = do(srv, "GET", "/v1/flags", opsToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(srv, "GET", "/v1/flags", rootToken, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReasonGating_BlocksBeforeSideEffects(t *testing.T) {
	srv, _ := newTestServer(t)
	rootToken := adminLogin(t, srv, bootstrapEmail, bootstrapPass)
	playerToken, playerID := registerPlayer(t, srv, "p@example.com")

	// Credit without a reason: rejected, no balance change.
	w := do(srv, "POST", "/v1/players/"+playerID+"/credit", rootToken,
		map[string]any{"amount_cents": 1000}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "REASON_REQUIRED", errorCode(t, w))

	bal := getBalance(t, srv, playerToken)
	require.Equal(t, int64(0), bal.Balance.Available)

	// X-Reason header works as a fallback.
	w = do(srv, "POST", "/v1/players/"+playerID+"/credit", rootToken,
		map[string]any{"amount_cents": 1000}, map[string]string{"X-Reason": "comp for outage"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	bal = getBalance(t, srv, playerToken)
	assert.Equal(t, int64(1000), bal.Balance.Available)

	// The reason lands in the audit log.
	w = do(srv, "GET", "/v1/audit/events?action=player.credit", rootToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var auditResp struct {
		Events []struct {
			Reason string `json:"reason"`
		} `json:"events"`
	}
	decode(t, w, &auditResp)
	require.NotEmpty(t, auditResp.Events)
	assert.Equal(t, "comp for outage", auditResp.Events[0].Reason)
}

func TestKillSwitch_DisablesModuleRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	rootToken := adminLogin(t, srv, bootstrapEmail, bootstrapPass)
	playerToken, _ := registerPlayer(t, srv, "p@example.com")

	disable := func(disabled bool) {
		w := do(srv, "POST", "/v1/flags/kill-switch", rootToken, map[string]any{
			"module": ModuleWallet, "disabled": disabled, "reason": "payment provider incident",
		}, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	disable(true)
	w := do(srv, "POST", "/player/wallet/deposit", playerToken,
		map[string]any{"amount_cents": 1000}, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "MODULE_TEMPORARILY_DISABLED", errorCode(t, w))

	disable(false)
	w = do(srv, "POST", "/player/wallet/deposit", playerToken,
		map[string]any{"amount_cents": 1000}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSuspendedPlayerSessionDies(t *testing.T) {
	srv, _ := newTestServer(t)
	rootToken := adminLogin(t, srv, bootstrapEmail, bootstrapPass)
	playerToken, playerID := registerPlayer(t, srv, "p@example.com")

	w := do(srv, "GET", "/player/me", playerToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(srv, "POST", "/v1/players/"+playerID+"/suspend", rootToken,
		map[string]string{"reason": "fraud review"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The old token no longer works.
	w = do(srv, "GET", "/player/me", playerToken, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportingDashboard(t *testing.T) {
	srv, _ := newTestServer(t)
	rootToken := adminLogin(t, srv, bootstrapEmail, bootstrapPass)
	playerToken, _ := registerPlayer(t, srv, "p@example.com")

	w := do(srv, "POST", "/player/wallet/deposit", playerToken,
		map[string]any{"amount_cents": 10000}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(srv, "GET", "/v1/reports/dashboard?period=24h", rootToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Dashboard struct {
			Period       string `json:"period"`
			DepositCents int64  `json:"deposit_cents"`
			GGRCents     int64  `json:"ggr_cents"`
		} `json:"dashboard"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "24h", resp.Dashboard.Period)
	assert.Equal(t, int64(10000), resp.Dashboard.DepositCents)
	assert.Equal(t, int64(10000), resp.Dashboard.GGRCents)
}

func TestErrorEnvelopeShape(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, "POST", "/v1/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "nope",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]json.RawMessage
	decode(t, w, &resp)
	require.Contains(t, resp, "error")

	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(resp["error"], &envelope))
	assert.Equal(t, "AUTH_INVALID", envelope.Code)
	assert.NotEmpty(t, envelope.Message)
}

func TestRequestIDPropagation(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, "GET", "/health", "", nil, map[string]string{"X-Request-ID": "req-abc"})
	assert.Equal(t, "req-abc", w.Header().Get("X-Request-ID"))

	w = do(srv, "GET", "/health", "", nil, nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestWebhookSettlesOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	rootToken := adminLogin(t, srv, bootstrapEmail, bootstrapPass)
	playerToken, _ := registerPlayer(t, srv, "p@example.com")

	w := do(srv, "POST", "/player/wallet/deposit", playerToken,
		map[string]any{"amount_cents": 5000}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(srv, "POST", "/player/wallet/withdraw", playerToken,
		map[string]any{"amount_cents": 2000}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var wdResp struct {
		WithdrawalID string `json:"withdrawal_id"`
	}
	decode(t, w, &wdResp)

	w = do(srv, "POST", "/v1/finance/withdrawals/"+wdResp.WithdrawalID+"/review", rootToken,
		map[string]string{"action": "approve", "reason": "ok"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Provider confirms the payout asynchronously.
	webhook := map[string]string{
		"provider_event_id": "evt_http_1",
		"tx_id":             wdResp.WithdrawalID,
		"status":            "paid",
	}
	w = do(srv, "POST", "/v1/finance/withdrawals/payout/webhook", "", webhook, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Redelivery is flagged.
	w = do(srv, "POST", "/v1/finance/withdrawals/payout/webhook", "", webhook, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Applied bool `json:"applied"`
		Replay  bool `json:"replay"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Replay)

	bal := getBalance(t, srv, playerToken)
	assert.Equal(t, int64(0), bal.Balance.Held)
}

func TestTenantPolicyBoundsDeposits(t *testing.T) {
	srv, _ := newTestServer(t)
	playerToken, _ := registerPlayer(t, srv, "p@example.com")

	// Default platform policy: minimum deposit 100 cents.
	w := do(srv, "POST", "/player/wallet/deposit", playerToken,
		map[string]any{"amount_cents": 50}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LIMIT_VIOLATION", errorCode(t, w))
}

func TestTenantPolicyCallerScoped(t *testing.T) {
	srv, _ := newTestServer(t)
	rootToken := adminLogin(t, srv, bootstrapEmail, bootstrapPass)

	// Caller-scoped read, no tenant ID in the path.
	w := do(srv, "GET", "/v1/tenants/payments/policy", rootToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Policy struct {
			MinDeposit int64 `json:"min_deposit_cents"`
			DailyCap   int64 `json:"daily_withdrawal_cap_cents"`
		} `json:"policy"`
	}
	decode(t, w, &resp)
	assert.Equal(t, int64(100), resp.Policy.MinDeposit)
	assert.Equal(t, int64(0), resp.Policy.DailyCap)

	// Writing it sets the platform defaults for players outside any
	// tenant.
	w = do(srv, "PUT", "/v1/tenants/payments/policy", rootToken, map[string]any{
		"min_deposit_cents":          100,
		"min_withdrawal_cents":       100,
		"daily_withdrawal_cap_cents": 2500,
		"currency":                   "USD",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(srv, "GET", "/v1/tenants/payments/policy", rootToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, int64(2500), resp.Policy.DailyCap)

	playerToken, _ := registerPlayer(t, srv, "p@example.com")
	w = do(srv, "POST", "/player/wallet/deposit", playerToken,
		map[string]any{"amount_cents": 10000}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(srv, "POST", "/player/wallet/withdraw", playerToken,
		map[string]any{"amount_cents": 2000}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// A second withdrawal the same day would push past the cap.
	w = do(srv, "POST", "/player/wallet/withdraw", playerToken,
		map[string]any{"amount_cents": 2000}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "LIMIT_VIOLATION", errorCode(t, w))

	bal := getBalance(t, srv, playerToken)
	assert.Equal(t, int64(8000), bal.Balance.Available)
	assert.Equal(t, int64(2000), bal.Balance.Held)
}

func TestExcludedPlayerCannotLoginOrDeposit(t *testing.T) {
	srv, _ := newTestServer(t)
	rootToken := adminLogin(t, srv, bootstrapEmail, bootstrapPass)
	playerToken, playerID := registerPlayer(t, srv, "p@example.com")

	// Operator applies a self-exclusion on the player's behalf.
	w := do(srv, "POST", "/v1/rg/exclusions", rootToken,
		map[string]string{"player_id": playerID, "kind": "self", "reason": "player request"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Deposits are blocked for the live session.
	w = do(srv, "POST", "/player/wallet/deposit", playerToken,
		map[string]any{"amount_cents": 1000}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "RG_EXCLUDED", errorCode(t, w))

	// And a fresh login is refused.
	w = do(srv, "POST", "/v1/auth/player/login", "", map[string]string{
		"email": "p@example.com", "password": "player-pass-1",
	}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "RG_EXCLUDED", errorCode(t, w))
}
