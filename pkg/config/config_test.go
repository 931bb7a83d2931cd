package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	reset()
	t.Cleanup(reset)
	t.Chdir(t.TempDir())

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", c.Server.Port)
	assert.Equal(t, 512, c.Analyzer.MaxWords)
	assert.Equal(t, 4, c.Analyzer.Concurrency)
	assert.Equal(t, "huggingface", c.Classifier.Backend)
	assert.Equal(t, "j-hartmann/emotion-english-distilroberta-base", c.Classifier.Model)
	assert.Equal(t, 60*time.Second, c.Classifier.Timeout)
	assert.Equal(t, 10*time.Minute, c.Cache.TTL)
	assert.Equal(t, uint64(4096), c.Cache.Capacity)
	assert.False(t, c.Redis.Enabled)
	assert.False(t, c.Auth.Enabled)
	assert.Equal(t, "emotion_analysis_queue", c.RabbitMQ.Queue)
}

func TestLoadEnvOverrides(t *testing.T) {
	reset()
	t.Cleanup(reset)
	t.Chdir(t.TempDir())
	t.Setenv("CLASSIFIER_BACKEND", "lexicon")
	t.Setenv("ANALYZER_MAX_WORDS", "64")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("ANALYZER_CONCURRENCY", "not-a-number")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "lexicon", c.Classifier.Backend)
	assert.Equal(t, 64, c.Analyzer.MaxWords)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, 4, c.Analyzer.Concurrency)
}

func TestGetReturnsSingleton(t *testing.T) {
	reset()
	t.Cleanup(reset)
	t.Chdir(t.TempDir())

	assert.Same(t, Get(), Get())
}
