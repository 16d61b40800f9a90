package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddlewareRecordsRequests(t *testing.T) {
	before := testutil.CollectAndCount(HTTPRequestsTotal)

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Greater(t, testutil.CollectAndCount(HTTPRequestsTotal), before)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/events", "418"))
	require.GreaterOrEqual(t, count, float64(1))
}

func TestHTTPMiddlewareDefaultsStatusToOK(t *testing.T) {
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("implicit 200"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/implicit", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/implicit", "200"))
	require.GreaterOrEqual(t, count, float64(1))
}

func TestPaymentsProcessedLabels(t *testing.T) {
	PaymentsProcessed.WithLabelValues("completed").Inc()
	PaymentsProcessed.WithLabelValues("failed").Inc()

	require.GreaterOrEqual(t, testutil.ToFloat64(PaymentsProcessed.WithLabelValues("completed")), float64(1))
	require.GreaterOrEqual(t, testutil.ToFloat64(PaymentsProcessed.WithLabelValues("failed")), float64(1))
}
