package emotion

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2MatchesHalfEvenOnBinaryValue(t *testing.T) {
	cases := map[float64]float64{
		0.125:  0.12, // exact tie rounds to even
		0.375:  0.38,
		2.675:  2.67, // stored just below the tie
		0.135:  0.14,
		0.1:    0.1,
		0.0049: 0,
		1:      1,
		0:      0,
	}
	for in, want := range cases {
		assert.Equal(t, want, Round2(in), "Round2(%v)", in)
	}
}

func TestAggregateNormalizedSumsToOne(t *testing.T) {
	agg := NewAggregate()
	agg.Add([]Score{{Joy, 0.7}, {Fear, 0.2}, {Neutral, 0.1}})
	agg.Add([]Score{{Joy, 0.1}, {Sadness, 0.6}, {"confusion", 0.3}})

	var sum float64
	for _, v := range agg.Normalized() {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 2.0, agg.Total(), 1e-12)
	assert.InDelta(t, 0.8, agg.Get(Joy), 1e-12)
	assert.Equal(t, []string{Joy, Fear, Neutral, Sadness, "confusion"}, agg.Seen())
}

func TestAggregateZeroTotalGuard(t *testing.T) {
	agg := NewAggregate()
	agg.Add([]Score{{Joy, 0}, {Anger, 0}})

	for _, v := range agg.Normalized() {
		assert.Zero(t, v)
	}
	assert.True(t, agg.Profile().IsZero())
	assert.True(t, NewAggregate().Profile().IsZero())
}

func TestProfileDropsNonCanonicalMass(t *testing.T) {
	agg := NewAggregate()
	agg.Add([]Score{{Joy, 1}, {"optimism", 1}})

	p := agg.Profile()
	assert.Equal(t, 0.5, p.Joy)
	assert.Equal(t, 0.5, agg.Normalized()["optimism"])
	_, ok := p.Get("optimism")
	assert.False(t, ok)
	assert.Len(t, p.Map(), len(Labels))
}

func TestProfileJSONShape(t *testing.T) {
	agg := NewAggregate()
	agg.Add([]Score{{Anger, 0.1}, {Joy, 0.5}, {Neutral, 0.3}, {Sadness, 0.05}, {Surprise, 0.05}})

	raw, err := sonic.Marshal(agg.Profile())
	require.NoError(t, err)

	var decoded map[string]float64
	require.NoError(t, sonic.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 7)
	for _, label := range Labels {
		v, ok := decoded[label]
		require.True(t, ok, "missing %s", label)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		assert.Equal(t, Round2(v), v)
	}
	assert.Equal(t, 0.0, decoded[Disgust])
}

func TestIsCanonical(t *testing.T) {
	for _, l := range Labels {
		assert.True(t, IsCanonical(l))
	}
	assert.False(t, IsCanonical("LABEL_0"))
}

func TestValidateScores(t *testing.T) {
	assert.NoError(t, ValidateScores([]Score{{Joy, 0}, {Fear, 1}}))
	assert.ErrorIs(t, ValidateScores([]Score{{Joy, -0.1}}), ErrInvalidScore)
}
