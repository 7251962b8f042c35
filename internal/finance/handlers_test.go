package finance

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupWebhookRouter(t *testing.T, token string) (*gin.Engine, *Service, *fakeWallet) {
	t.Helper()
	svc, w, _ := newTestFinance(0)
	h := NewHandler(svc, audit.NewRecorder(audit.NewMemoryStore())).WithWebhookToken(token)

	router := gin.New()
	h.RegisterWebhookRoutes(router.Group("/v1"))
	return router, svc, w
}

func postWebhook(router *gin.Engine, token string, d WebhookDelivery) *httptest.ResponseRecorder {
	body, _ := json.Marshal(d)
	req := httptest.NewRequest("POST", "/v1/finance/withdrawals/payout/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Provider-Token", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhook_RejectsBadToken(t *testing.T) {
	router, _, _ := setupWebhookRouter(t, "shared-secret")

	w := postWebhook(router, "wrong", WebhookDelivery{
		ProviderEventID: "evt_1", TxID: "wd_1", Status: "paid",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "AUTH_INVALID", resp["error"]["code"])
}

func TestWebhook_RejectsIncompletePayload(t *testing.T) {
	router, _, _ := setupWebhookRouter(t, "")

	w := postWebhook(router, "", WebhookDelivery{TxID: "wd_1", Status: "paid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_AppliesAndFlagsReplay(t *testing.T) {
	router, svc, wal := setupWebhookRouter(t, "shared-secret")
	wal.available["pl_1"] = 5000

	id, _, err := svc.OpenWithdrawal(context.Background(), "pl_1", "", 2000, "bank")
	require.NoError(t, err)
	_, err = svc.Review(context.Background(), id, "approve", "ok", "adm_1")
	require.NoError(t, err)

	d := WebhookDelivery{ProviderEventID: "evt_1", TxID: id, Status: "paid"}

	w := postWebhook(router, "shared-secret", d)
	require.Equal(t, http.StatusOK, w.Code)
	var first map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &first)
	assert.Equal(t, true, first["applied"])
	assert.Equal(t, false, first["replay"])

	// Redelivery of the same provider event.
	w = postWebhook(router, "shared-secret", d)
	require.Equal(t, http.StatusOK, w.Code)
	var second map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &second)
	assert.Equal(t, false, second["applied"])
	assert.Equal(t, true, second["replay"])

	got, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatePaid, got.State)
}

func TestWebhook_UnknownWithdrawalIs404(t *testing.T) {
	router, _, _ := setupWebhookRouter(t, "")

	w := postWebhook(router, "", WebhookDelivery{
		ProviderEventID: "evt_1", TxID: "wd_missing", Status: "paid",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
