package classifier

import (
	"context"
	"errors"
	"math"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chongs12/emotion-analysis/internal/emotion"
	"github.com/chongs12/emotion-analysis/pkg/metrics"
)

type countingClassifier struct {
	calls  atomic.Int32
	scores []emotion.Score
	err    error
}

func (c *countingClassifier) Classify(ctx context.Context, text string) ([]emotion.Score, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.scores, nil
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]emotion.Score, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, []emotion.Score) error {
	return errors.New("connection refused")
}

func (brokenCache) Name() string { return "broken" }

var sample = []emotion.Score{{Label: "joy", Score: 0.8}, {Label: "neutral", Score: 0.2}}

func TestCachedServesRepeatsFromCache(t *testing.T) {
	bm := metrics.NewBusinessMetrics(prometheus.NewRegistry(), "test")
	local := NewLocalScoreCache(time.Minute, 16)
	defer local.Close()

	next := &countingClassifier{scores: sample}
	c := NewCached(next, local, "lexicon", bm)

	for i := 0; i < 3; i++ {
		got, err := c.Classify(context.Background(), "same chunk")
		require.NoError(t, err)
		assert.Equal(t, sample, got)
	}
	assert.EqualValues(t, 1, next.calls.Load())
	assert.Equal(t, 1, local.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(bm.ScoreCacheRequests.WithLabelValues("local", "miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(bm.ScoreCacheRequests.WithLabelValues("local", "hit")))

	_, err := c.Classify(context.Background(), "another chunk")
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCachedKeysByNamespace(t *testing.T) {
	local := NewLocalScoreCache(time.Minute, 16)
	defer local.Close()
	next := &countingClassifier{scores: sample}

	_, err := NewCached(next, local, "huggingface|a", nil).Classify(context.Background(), "text")
	require.NoError(t, err)
	_, err = NewCached(next, local, "huggingface|b", nil).Classify(context.Background(), "text")
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	local := NewLocalScoreCache(time.Minute, 16)
	defer local.Close()
	next := &countingClassifier{err: errors.New("model unavailable")}
	c := NewCached(next, local, "hf", nil)

	for i := 0; i < 2; i++ {
		_, err := c.Classify(context.Background(), "chunk")
		assert.EqualError(t, err, "model unavailable")
	}
	assert.EqualValues(t, 2, next.calls.Load())
	assert.Zero(t, local.Len())
}

func TestCachedDoesNotStoreInvalidScores(t *testing.T) {
	local := NewLocalScoreCache(time.Minute, 16)
	defer local.Close()
	next := &countingClassifier{scores: []emotion.Score{{Label: "joy", Score: math.NaN()}}}
	c := NewCached(next, local, "hf", nil)

	for i := 0; i < 2; i++ {
		got, err := c.Classify(context.Background(), "chunk")
		require.NoError(t, err)
		assert.ErrorIs(t, emotion.ValidateScores(got), emotion.ErrInvalidScore)
	}
	assert.EqualValues(t, 2, next.calls.Load())
	assert.Zero(t, local.Len())
}

func TestCachedBypassesBrokenCache(t *testing.T) {
	bm := metrics.NewBusinessMetrics(prometheus.NewRegistry(), "test")
	next := &countingClassifier{scores: sample}
	c := NewCached(next, brokenCache{}, "hf", bm)

	got, err := c.Classify(context.Background(), "chunk")
	require.NoError(t, err)
	assert.Equal(t, sample, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(bm.ScoreCacheRequests.WithLabelValues("broken", "error")))
}

func TestLocalScoreCacheCopiesValues(t *testing.T) {
	local := NewLocalScoreCache(time.Minute, 4)
	defer local.Close()

	in := []emotion.Score{{Label: "joy", Score: 1}}
	require.NoError(t, local.Set(context.Background(), "k", in))
	in[0].Score = 0

	out, ok, err := local.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, out[0].Score)
}

func TestRedisScoreCache_SkipIfNoEnv(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("skip integration: missing REDIS_ADDR")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	require.NoError(t, rdb.Ping(ctx).Err())

	cache := NewRedisScoreCache(rdb, time.Minute)
	key := "emo:scores:test:" + time.Now().Format(time.RFC3339Nano)
	defer rdb.Del(ctx, key)

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, sample))
	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sample, got)
}
