package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chongs12/emotion-analysis/internal/emotion"
)

// maxResponseBytes bounds how much of an inference response is read.
const maxResponseBytes = 1 << 20

// HuggingFace calls a text-classification model served by the Hugging Face
// Inference API or a compatible self-hosted endpoint.
type HuggingFace struct {
	url    string
	token  string
	client *http.Client
}

type hfRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters"`
	Options    hfOptions      `json:"options"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type hfError struct {
	Error string `json:"error"`
}

// NewHuggingFace 新建 Hugging Face 推理客户端
// endpoint 以 "/" 结尾时拼接 model 作为完整地址，否则视为完整地址（自建推理服务）
func NewHuggingFace(endpoint, model, token string, timeout time.Duration) *HuggingFace {
	url := endpoint
	if strings.HasSuffix(endpoint, "/") {
		url = endpoint + model
	}
	return &HuggingFace{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Classify returns the score of every label the model knows (top_k=null).
func (h *HuggingFace) Classify(ctx context.Context, text string) ([]emotion.Score, error) {
	body, err := sonic.Marshal(hfRequest{
		Inputs:     text,
		Parameters: map[string]any{"top_k": nil},
		Options:    hfOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read inference response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e hfError
		if sonic.Unmarshal(raw, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("inference endpoint returned %d: %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("inference endpoint returned %d", resp.StatusCode)
	}

	return decodeHFScores(raw)
}

// decodeHFScores accepts both [[{label,score}]] (pipeline style) and
// [{label,score}] (single input) payloads.
func decodeHFScores(raw []byte) ([]emotion.Score, error) {
	var nested [][]hfLabel
	if err := sonic.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return toScores(nested[0]), nil
	}
	var flat []hfLabel
	if err := sonic.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("unexpected inference response: %w", err)
	}
	return toScores(flat), nil
}

func toScores(labels []hfLabel) []emotion.Score {
	out := make([]emotion.Score, len(labels))
	for i, l := range labels {
		out[i] = emotion.Score{Label: l.Label, Score: l.Score}
	}
	return out
}
