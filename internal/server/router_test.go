package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/chongs12/emotion-analysis/internal/classifier"
	"github.com/chongs12/emotion-analysis/internal/emotion"
)

func newRouter(t *testing.T, r *Readiness) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	analyzer := emotion.NewAnalyzer(classifier.NewLexicon(), emotion.DefaultMaxWords, 2, "analyzer", nil)
	return NewRouter(Options{
		Service:   "analyzer",
		Handler:   emotion.NewHandler(analyzer, 0),
		Readiness: r,
		Registry:  prometheus.NewRegistry(),
	})
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthAndReadiness(t *testing.T) {
	rd := NewReadiness(nil)
	r := newRouter(t, rd)

	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/ready").Code)

	rd.SetReady(true)
	assert.Equal(t, http.StatusOK, get(r, "/ready").Code)
}

func TestAnalyzeRouteAndMetrics(t *testing.T) {
	r := newRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/analyze_emotions", strings.NewReader(`{"content": "I am so happy today."}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), emotion.ResultKey)

	m := get(r, "/metrics")
	require.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), `emo_http_requests_total{method="POST",route="/analyze_emotions",service="analyzer",status="2xx"} 1`)
}

func TestReadinessDrivesGRPCHealth(t *testing.T) {
	_, hs := NewGRPCServer()
	rd := NewReadiness(hs)
	ctx := context.Background()

	resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	rd.SetReady(true)
	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
	assert.True(t, rd.Ready())

	rd.Shutdown()
	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
	assert.False(t, rd.Ready())
}
