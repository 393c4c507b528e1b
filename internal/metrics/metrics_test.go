package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordEvent(t *testing.T) {
	before := testutil.ToFloat64(eventsTotal.WithLabelValues("Deposit"))

	RecordEvent("Deposit")
	RecordEvent("Deposit")

	require.Equal(t, before+2, testutil.ToFloat64(eventsTotal.WithLabelValues("Deposit")))
	require.NotZero(t, testutil.ToFloat64(lastEventTimestamp))
}

func TestPrometheusMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/balances/:name", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/metrics", MetricsHandler())

	before := testutil.ToFloat64(requestsTotal.WithLabelValues(http.MethodGet, "/balances/:name", "404"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/balances/A", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, before+1, testutil.ToFloat64(requestsTotal.WithLabelValues(http.MethodGet, "/balances/:name", "404")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "bank_requests_total")

	before = testutil.ToFloat64(requestsTotal.WithLabelValues(http.MethodGet, unmatchedPath, "404"))

	for _, p := range []string{"/a", "/b/c", "/wp-login.php"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	require.Equal(t, before+3, testutil.ToFloat64(requestsTotal.WithLabelValues(http.MethodGet, unmatchedPath, "404")))
	require.Zero(t, testutil.ToFloat64(requestsTotal.WithLabelValues(http.MethodGet, "/wp-login.php", "404")))
}
