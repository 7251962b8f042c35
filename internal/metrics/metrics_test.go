package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = c.Write(m)
	return m.Counter.GetValue()
}

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	HTTPRequestsTotal.Reset()

	router := gin.New()
	router.Use(Middleware())
	router.GET("/players/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"pl_1", "pl_2"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/players/"+id, nil))
	}

	// Both requests land on the route pattern, not the raw path.
	got := counterValue(t, HTTPRequestsTotal, "GET", "/players/:id", "200")
	if got != 2.0 {
		t.Errorf("expected counter value 2, got %f", got)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	HTTPRequestsTotal.Reset()

	router := gin.New()
	router.Use(Middleware())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/no-such-route", nil))

	got := counterValue(t, HTTPRequestsTotal, "GET", "unmatched", "404")
	if got != 1.0 {
		t.Errorf("expected counter value 1, got %f", got)
	}
}

func TestMetrics_Registered(t *testing.T) {
	names := []string{
		"casino_http_requests_total",
		"casino_withdrawal_transitions_total",
		"casino_deposits_total",
		"casino_payout_webhooks_total",
		"casino_idempotent_replays_total",
		"casino_audit_events_total",
		"casino_active_realtime_clients",
	}

	// Touch the vecs so Gather sees at least one series each.
	WithdrawalTransitionsTotal.WithLabelValues("paid").Add(0)
	DepositsTotal.WithLabelValues("success").Add(0)
	PayoutWebhooksTotal.WithLabelValues("applied").Add(0)
	AuditEventsTotal.WithLabelValues("test").Add(0)
	HTTPRequestsTotal.WithLabelValues("GET", "/", "200").Add(0)

	gathered, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := make(map[string]bool)
	for _, mf := range gathered {
		found[mf.GetName()] = true
	}
	for _, name := range names {
		if !found[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}
