package classifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	arkmodel "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/chongs12/emotion-analysis/internal/emotion"
	"github.com/chongs12/emotion-analysis/pkg/config"
)

// Ark asks a chat model to act as the emotion classifier.
type Ark struct {
	chat   model.BaseChatModel
	prompt string
}

func arkSystemPrompt() string {
	return "You are an emotion classifier. Read the user's text and reply with only a JSON object " +
		"mapping each of these labels to a probability between 0 and 1: " +
		strings.Join(emotion.Labels, ", ") +
		". The probabilities must sum to 1. Do not add any other keys or text."
}

// NewArk 初始化 Ark ChatModel 作为分类器
func NewArk(ctx context.Context, cfg config.ArkConfig) (*Ark, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("ark backend requires ark.api_key and ark.model")
	}
	chat, err := arkmodel.NewChatModel(ctx, &arkmodel.ChatModelConfig{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Region:      cfg.Region,
		MaxTokens:   &[]int{cfg.MaxTokens}[0],
		Temperature: &[]float32{float32(cfg.Temperature)}[0],
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Ark ChatModel: %w", err)
	}
	return NewArkWithModel(chat), nil
}

// NewArkWithModel wraps an already built chat model.
func NewArkWithModel(chat model.BaseChatModel) *Ark {
	return &Ark{chat: chat, prompt: arkSystemPrompt()}
}

func (a *Ark) Classify(ctx context.Context, text string) ([]emotion.Score, error) {
	msgs := []*schema.Message{
		{Role: schema.System, Content: a.prompt},
		{Role: schema.User, Content: text},
	}
	resp, err := a.chat.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("ark returned an empty reply")
	}
	return parseLabelObject(resp.Content)
}

// parseLabelObject extracts the first {...} object of a model reply,
// tolerating markdown code fences and surrounding prose.
func parseLabelObject(reply string) ([]emotion.Score, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("ark reply is not a JSON object: %q", reply)
	}

	var probs map[string]float64
	if err := sonic.UnmarshalString(reply[start:end+1], &probs); err != nil {
		return nil, fmt.Errorf("failed to parse ark reply: %w", err)
	}

	scores := make([]emotion.Score, 0, len(probs))
	for _, label := range emotion.Labels {
		if v, ok := probs[label]; ok {
			scores = append(scores, emotion.Score{Label: label, Score: v})
			delete(probs, label)
		}
	}
	extra := make([]string, 0, len(probs))
	for label := range probs {
		extra = append(extra, label)
	}
	sort.Strings(extra)
	for _, label := range extra {
		scores = append(scores, emotion.Score{Label: label, Score: probs[label]})
	}
	return scores, nil
}
