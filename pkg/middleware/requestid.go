package middleware

import (
	"context"
	"time"

	"github.com/chongs12/emotion-analysis/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Set(logger.RequestIDKey, rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Request.Header.Set("X-Request-ID", rid)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, rid))
		sp := oteltrace.SpanFromContext(c.Request.Context())
		sc := sp.SpanContext()
		if sc.TraceID().IsValid() {
			c.Writer.Header().Set("X-Trace-ID", sc.TraceID().String())
		}
		logger.Debug(c.Request.Context(), "incoming request", "event_type", "request_in", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
		dur := time.Since(start).Milliseconds()
		status := c.Writer.Status()
		st := "success"
		if status >= 400 {
			st = "fail"
		}
		logger.Info(c.Request.Context(), "outgoing response", "event_type", "response_out", "path", c.Request.URL.Path, "status_code", status, "duration_ms", dur, "status", st)
	}
}

func InjectUserIDToContext(c *gin.Context, userID string) {
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.UserIDKey, userID))
}
