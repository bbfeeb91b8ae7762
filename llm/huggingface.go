package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const defaultHFInferenceBaseURL = "https://api-inference.huggingface.co"

// HuggingFaceGenerator drives HuggingFace models. When UseAPI is set it
// calls the hosted inference API; otherwise it expects a locally running
// text-generation server reachable at BaseURL. The use_api flag is the sole
// selector; environment variables do not override it.
type HuggingFaceGenerator struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewHuggingFaceGenerator creates a generator for a HuggingFace model.
func NewHuggingFaceGenerator(cfg Config) (*HuggingFaceGenerator, error) {
	if cfg.UseAPI && cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: huggingface inference API requires an API key")
	}
	if !cfg.UseAPI && cfg.BaseURL == "" {
		return nil, fmt.Errorf("llm: huggingface local mode requires base_url")
	}
	return &HuggingFaceGenerator{
		cfg:    cfg,
		client: cfg.httpClient(),
		logger: cfg.logger(),
	}, nil
}

// Name identifies the generator.
func (g *HuggingFaceGenerator) Name() string {
	return "huggingface:" + g.cfg.ModelName
}

type hfRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// The inference API answers with a list of generated texts.
type hfGenerated struct {
	GeneratedText string `json:"generated_text"`
}

// Generate requests n generations, returning nil entries for failed ones.
func (g *HuggingFaceGenerator) Generate(ctx context.Context, conv Conversation, n int) ([]*Message, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]*Message, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		text, err := g.generateOne(ctx, conv.LastUserText())
		if err != nil {
			g.logger.Warn("huggingface generation failed",
				"model", g.cfg.ModelName,
				"use_api", g.cfg.UseAPI,
				"generation", i,
				"error", err)
			continue
		}
		out[i] = NewMessage(text)
	}
	return out, nil
}

func (g *HuggingFaceGenerator) generateOne(ctx context.Context, prompt string) (string, error) {
	req := hfRequest{
		Inputs: prompt,
		Parameters: map[string]any{
			"temperature":    g.cfg.temperature(),
			"max_new_tokens": g.cfg.maxTokens(),
		},
	}

	headers := map[string]string{}
	if g.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + g.cfg.APIKey
	}

	var resp []hfGenerated
	if err := postJSON(ctx, g.client, g.endpoint(), headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp) == 0 {
		return "", fmt.Errorf("empty generation response")
	}
	// The API echoes the prompt at the head of generated_text for most
	// text-generation models.
	return strings.TrimPrefix(resp[0].GeneratedText, prompt), nil
}

func (g *HuggingFaceGenerator) endpoint() string {
	if g.cfg.UseAPI {
		base := defaultHFInferenceBaseURL
		if g.cfg.BaseURL != "" {
			base = strings.TrimSuffix(g.cfg.BaseURL, "/")
		}
		return base + "/models/" + g.cfg.ModelName
	}
	return strings.TrimSuffix(g.cfg.BaseURL, "/") + "/generate"
}
