package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddlewareCountsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	hm := NewHTTPMetrics(reg, "test", "analyzer")

	r := gin.New()
	r.Use(MetricsMiddleware("analyzer", hm))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, p := range []string{"/ok", "/ok", "/boom", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(hm.RequestsTotal.WithLabelValues("analyzer", "/ok", "GET", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(hm.RequestsTotal.WithLabelValues("analyzer", "/boom", "GET", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(hm.RequestsTotal.WithLabelValues("analyzer", "unknown", "GET", "4xx")))
	assert.Equal(t, 0.0, testutil.ToFloat64(hm.InflightRequests.WithLabelValues("analyzer")))
}

func TestMetricsHandlerExposesBusinessMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	bm := NewBusinessMetrics(reg, "test")
	bm.AnalyzeTotal.WithLabelValues("analyzer", "success").Inc()

	w := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `test_analyze_total{service="analyzer",status="success"} 1`))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(204))
	assert.Equal(t, "4xx", StatusClass(422))
	assert.Equal(t, "5xx", StatusClass(503))
}
