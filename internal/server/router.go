package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/chongs12/emotion-analysis/internal/emotion"
	"github.com/chongs12/emotion-analysis/pkg/metrics"
	"github.com/chongs12/emotion-analysis/pkg/middleware"
)

type Options struct {
	Service   string
	Mode      string
	Handler   *emotion.Handler
	Auth      *middleware.AuthMiddleware
	Readiness *Readiness
	Registry  *prometheus.Registry
}

// NewRouter 组装中间件、探针、指标与业务路由
func NewRouter(opts Options) *gin.Engine {
	if opts.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Registry == nil {
		opts.Registry = metrics.DefaultRegistry()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(opts.Service))
	hm := metrics.NewHTTPMetrics(opts.Registry, "emo", opts.Service)
	router.Use(metrics.MetricsMiddleware(opts.Service, hm))
	router.GET("/metrics", gin.WrapH(metrics.MetricsHandler(opts.Registry)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": opts.Service, "timestamp": time.Now().Unix()})
	})
	router.GET("/ready", func(c *gin.Context) {
		if opts.Readiness != nil && !opts.Readiness.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "warming_up", "service": opts.Service})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": opts.Service})
	})

	if opts.Handler != nil {
		opts.Handler.SetupRoutes(router, opts.Auth)
	}
	return router
}
