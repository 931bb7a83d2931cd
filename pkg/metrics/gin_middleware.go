package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

func MetricsMiddleware(service string, hm *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		hm.InflightRequests.WithLabelValues(service).Inc()
		defer hm.InflightRequests.WithLabelValues(service).Dec()
		start := time.Now()
		c.Next()
		dur := time.Since(start).Seconds()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		st := StatusClass(c.Writer.Status())
		hm.RequestsTotal.WithLabelValues(service, route, c.Request.Method, st).Inc()
		hm.RequestDuration.WithLabelValues(service, route, c.Request.Method, st).Observe(dur)
	}
}

func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
