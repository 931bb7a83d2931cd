package emotion

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chongs12/emotion-analysis/pkg/logger"
	"github.com/chongs12/emotion-analysis/pkg/middleware"
	"github.com/chongs12/emotion-analysis/pkg/utils"
)

// ResultKey is the top-level key of a successful analysis response.
const ResultKey = "Emotion Analysis Result"

// Handler exposes the analyzer over HTTP.
type Handler struct {
	analyzer *Analyzer
	timeout  time.Duration
}

// NewHandler creates the handler. A non-positive timeout leaves the request
// context as the only deadline.
func NewHandler(analyzer *Analyzer, timeout time.Duration) *Handler {
	return &Handler{analyzer: analyzer, timeout: timeout}
}

// AnalyzeRequest is the request body. Content is a pointer so that an empty
// string is accepted while a missing or null field is rejected.
type AnalyzeRequest struct {
	Content *string `json:"content" binding:"required"`
}

// AnalyzeEmotions handles POST /analyze_emotions.
func (h *Handler) AnalyzeEmotions(c *gin.Context) {
	ctx := c.Request.Context()

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	logger.Debug(ctx, "Analyzing document", "content_preview", utils.TruncateToRunes(*req.Content, 64), "bytes", len(*req.Content))

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := h.analyzer.Analyze(ctx, *req.Content)
	if err != nil {
		logger.Error(ctx, "Emotion analysis failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{ResultKey: res.Profile})
}

// SetupRoutes registers the analysis route. authMiddleware may be nil when auth is disabled.
func (h *Handler) SetupRoutes(router *gin.Engine, authMiddleware *middleware.AuthMiddleware) {
	group := router.Group("/")
	if authMiddleware != nil {
		group.Use(authMiddleware.RequireAuth())
	}
	group.POST("/analyze_emotions", h.AnalyzeEmotions)
}
