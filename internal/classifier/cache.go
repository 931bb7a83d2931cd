package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jellydator/ttlcache/v3"
	"github.com/redis/go-redis/v9"

	"github.com/chongs12/emotion-analysis/internal/emotion"
	"github.com/chongs12/emotion-analysis/pkg/logger"
	"github.com/chongs12/emotion-analysis/pkg/metrics"
	"github.com/chongs12/emotion-analysis/pkg/utils"
)

const cacheKeyPrefix = "emo:scores"

// ScoreCache stores classifier output per chunk.
type ScoreCache interface {
	Get(ctx context.Context, key string) ([]emotion.Score, bool, error)
	Set(ctx context.Context, key string, scores []emotion.Score) error
	Name() string
}

// RedisScoreCache shares chunk scores between replicas.
type RedisScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisScoreCache(client *redis.Client, ttl time.Duration) *RedisScoreCache {
	return &RedisScoreCache{client: client, ttl: ttl}
}

func (r *RedisScoreCache) Name() string { return "redis" }

func (r *RedisScoreCache) Get(ctx context.Context, key string) ([]emotion.Score, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var scores []emotion.Score
	if err := sonic.Unmarshal(raw, &scores); err != nil {
		return nil, false, fmt.Errorf("corrupt cached scores: %w", err)
	}
	return scores, true, nil
}

func (r *RedisScoreCache) Set(ctx context.Context, key string, scores []emotion.Score) error {
	raw, err := sonic.Marshal(scores)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

// LocalScoreCache is an in-process LRU with TTL, used when Redis is off.
type LocalScoreCache struct {
	cache *ttlcache.Cache[string, []emotion.Score]
}

// NewLocalScoreCache starts the expiry loop; call Close to stop it.
func NewLocalScoreCache(ttl time.Duration, capacity uint64) *LocalScoreCache {
	opts := []ttlcache.Option[string, []emotion.Score]{
		ttlcache.WithTTL[string, []emotion.Score](ttl),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, []emotion.Score](capacity))
	}
	c := ttlcache.New(opts...)
	go c.Start()
	return &LocalScoreCache{cache: c}
}

func (l *LocalScoreCache) Name() string { return "local" }

func (l *LocalScoreCache) Get(_ context.Context, key string) ([]emotion.Score, bool, error) {
	item := l.cache.Get(key)
	if item == nil {
		return nil, false, nil
	}
	scores := make([]emotion.Score, len(item.Value()))
	copy(scores, item.Value())
	return scores, true, nil
}

func (l *LocalScoreCache) Set(_ context.Context, key string, scores []emotion.Score) error {
	stored := make([]emotion.Score, len(scores))
	copy(stored, scores)
	l.cache.Set(key, stored, ttlcache.DefaultTTL)
	return nil
}

func (l *LocalScoreCache) Len() int { return l.cache.Len() }

func (l *LocalScoreCache) Close() error {
	l.cache.Stop()
	return nil
}

// Cached serves repeated chunks from a ScoreCache. Cache errors are logged
// and bypassed. Classifier errors and invalid scores are returned untouched
// and never stored.
type Cached struct {
	next      emotion.Classifier
	cache     ScoreCache
	namespace string
	bm        *metrics.BusinessMetrics
}

// NewCached keys entries by namespace (backend and model) plus chunk text.
func NewCached(next emotion.Classifier, cache ScoreCache, namespace string, bm *metrics.BusinessMetrics) *Cached {
	return &Cached{next: next, cache: cache, namespace: namespace, bm: bm}
}

func (c *Cached) Classify(ctx context.Context, text string) ([]emotion.Score, error) {
	key := utils.HashKey(cacheKeyPrefix, c.namespace, text)

	scores, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		logger.Warn(ctx, "Score cache lookup failed", "store", c.cache.Name(), "error", err.Error())
		c.count("error")
	case ok:
		c.count("hit")
		return scores, nil
	default:
		c.count("miss")
	}

	scores, err = c.next.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	// replies the analyzer will reject are not stored, so the next request asks upstream again
	if emotion.ValidateScores(scores) != nil {
		return scores, nil
	}
	if err := c.cache.Set(ctx, key, scores); err != nil {
		logger.Warn(ctx, "Score cache write failed", "store", c.cache.Name(), "error", err.Error())
	}
	return scores, nil
}

func (c *Cached) count(result string) {
	if c.bm != nil {
		c.bm.ScoreCacheRequests.WithLabelValues(c.cache.Name(), result).Inc()
	}
}
