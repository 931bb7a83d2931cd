package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chongs12/emotion-analysis/internal/emotion"
	"github.com/chongs12/emotion-analysis/pkg/config"
	"github.com/chongs12/emotion-analysis/pkg/logger"
	"github.com/chongs12/emotion-analysis/pkg/metrics"
)

const (
	BackendHuggingFace = "huggingface"
	BackendArk         = "ark"
	BackendLexicon     = "lexicon"
)

var (
	ErrUnknownBackend = errors.New("unknown classifier backend")
	ErrNotReady       = errors.New("classifier not ready")
)

// New builds the configured backend once at startup, wrapped with metrics
// and a score cache. rdb may be nil, in which case an in-process cache is
// used. The returned close func releases the cache.
func New(ctx context.Context, cfg *config.Config, rdb *redis.Client, bm *metrics.BusinessMetrics) (emotion.Classifier, func() error, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Classifier.Backend))

	var (
		base      emotion.Classifier
		namespace string
	)
	switch backend {
	case BackendHuggingFace, "hf":
		backend = BackendHuggingFace
		base = NewHuggingFace(cfg.Classifier.Endpoint, cfg.Classifier.Model, cfg.Classifier.APIToken, cfg.Classifier.Timeout)
		namespace = backend + "|" + cfg.Classifier.Model
	case BackendArk:
		ark, err := NewArk(ctx, cfg.Ark)
		if err != nil {
			return nil, nil, err
		}
		base = ark
		namespace = backend + "|" + cfg.Ark.Model
	case BackendLexicon:
		base = NewLexicon()
		namespace = backend
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Classifier.Backend)
	}

	instrumented := NewInstrumented(base, backend, bm)
	if cfg.Cache.TTL <= 0 {
		logger.Info(ctx, "Score cache disabled", "backend", backend)
		return instrumented, func() error { return nil }, nil
	}

	if rdb != nil {
		logger.Info(ctx, "Using Redis score cache", "backend", backend, "ttl", cfg.Cache.TTL.String())
		return NewCached(instrumented, NewRedisScoreCache(rdb, cfg.Cache.TTL), namespace, bm), func() error { return nil }, nil
	}

	local := NewLocalScoreCache(cfg.Cache.TTL, cfg.Cache.Capacity)
	logger.Info(ctx, "Using in-process score cache", "backend", backend, "ttl", cfg.Cache.TTL.String(), "capacity", cfg.Cache.Capacity)
	return NewCached(instrumented, local, namespace, bm), local.Close, nil
}

// Warmup runs one probe classification so the first real request does not
// pay for model loading. An empty probe skips the check.
func Warmup(ctx context.Context, c emotion.Classifier, probe string) error {
	if strings.TrimSpace(probe) == "" {
		return nil
	}
	start := time.Now()
	scores, err := c.Classify(ctx, probe)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	if err := emotion.ValidateScores(scores); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	logger.Info(ctx, "Classifier warmed up", "labels", len(scores), "duration", time.Since(start).String())
	return nil
}
