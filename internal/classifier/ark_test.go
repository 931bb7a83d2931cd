package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chongs12/emotion-analysis/internal/emotion"
	"github.com/chongs12/emotion-analysis/pkg/config"
)

type fakeChat struct {
	reply string
	err   error
	seen  []*schema.Message
}

func (f *fakeChat) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChat) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestArkClassify(t *testing.T) {
	chat := &fakeChat{reply: "```json\n{\"joy\": 0.6, \"neutral\": 0.3, \"anger\": 0.1}\n```"}
	scores, err := NewArkWithModel(chat).Classify(context.Background(), "Lovely weather")
	require.NoError(t, err)

	assert.Equal(t, []emotion.Score{
		{Label: emotion.Anger, Score: 0.1},
		{Label: emotion.Joy, Score: 0.6},
		{Label: emotion.Neutral, Score: 0.3},
	}, scores)

	require.Len(t, chat.seen, 2)
	assert.Equal(t, schema.System, chat.seen[0].Role)
	assert.Contains(t, chat.seen[0].Content, "surprise")
	assert.Equal(t, "Lovely weather", chat.seen[1].Content)
}

func TestArkClassifyKeepsUnknownLabelsSorted(t *testing.T) {
	scores, err := NewArkWithModel(&fakeChat{reply: `{"zeal": 0.1, "boredom": 0.2, "joy": 0.7}`}).
		Classify(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "joy", scores[0].Label)
	assert.Equal(t, "boredom", scores[1].Label)
	assert.Equal(t, "zeal", scores[2].Label)
}

func TestArkClassifyErrors(t *testing.T) {
	_, err := NewArkWithModel(&fakeChat{err: errors.New("quota exceeded")}).Classify(context.Background(), "x")
	assert.EqualError(t, err, "quota exceeded")

	_, err = NewArkWithModel(&fakeChat{reply: "I think it's joyful"}).Classify(context.Background(), "x")
	assert.Error(t, err)

	_, err = NewArkWithModel(&fakeChat{reply: `{"joy": "high"}`}).Classify(context.Background(), "x")
	assert.Error(t, err)
}

func TestNewArkRequiresCredentials(t *testing.T) {
	_, err := NewArk(context.Background(), config.ArkConfig{Model: "doubao"})
	assert.Error(t, err)
}
