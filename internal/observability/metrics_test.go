package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	m := NewMetrics()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/api/v1/sales", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTeapot, rec.Code)

	m.RecordPayment("SALE")
	m.RecordReturnRejected()

	metricsReq := httptest.NewRequest("GET", "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRec, metricsReq)

	body := metricsRec.Body.String()
	require.True(t, strings.Contains(body, "meridian_http_requests_total"))
	require.True(t, strings.Contains(body, "meridian_ledger_payments_total"))
	require.True(t, strings.Contains(body, "meridian_ledger_returns_rejected_total"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordPayment("PURCHASE")
	m.RecordReturnRejected()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	require.NotNil(t, m.Middleware(next))
}
