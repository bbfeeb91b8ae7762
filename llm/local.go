package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const defaultLocalBaseURL = "http://localhost:11434"

// LocalGenerator drives a locally hosted model behind an Ollama-compatible
// HTTP endpoint.
type LocalGenerator struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewLocalGenerator creates a generator for a local model endpoint.
func NewLocalGenerator(cfg Config) (*LocalGenerator, error) {
	return &LocalGenerator{
		cfg:    cfg,
		client: cfg.httpClient(),
		logger: cfg.logger(),
	}, nil
}

// Name identifies the generator.
func (g *LocalGenerator) Name() string {
	return "local:" + g.cfg.ModelName
}

func (g *LocalGenerator) baseURL() string {
	if g.cfg.BaseURL != "" {
		return strings.TrimSuffix(g.cfg.BaseURL, "/")
	}
	return defaultLocalBaseURL
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Generate requests n generations, returning nil entries for failed ones.
// The endpoint is single-turn, so the conversation collapses to its last
// user message plus the system text.
func (g *LocalGenerator) Generate(ctx context.Context, conv Conversation, n int) ([]*Message, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]*Message, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		text, err := g.generateOne(ctx, conv)
		if err != nil {
			g.logger.Warn("local generation failed",
				"model", g.cfg.ModelName,
				"base_url", g.baseURL(),
				"generation", i,
				"error", err)
			continue
		}
		out[i] = NewMessage(text)
	}
	return out, nil
}

func (g *LocalGenerator) generateOne(ctx context.Context, conv Conversation) (string, error) {
	prompt := conv.LastUserText()
	if prompt == "" {
		return "", fmt.Errorf("conversation has no user prompt")
	}

	req := ollamaRequest{
		Model:  g.cfg.ModelName,
		Prompt: prompt,
		System: conv.SystemText(),
		Stream: false,
		Options: map[string]any{
			"temperature": g.cfg.temperature(),
			"num_predict": g.cfg.maxTokens(),
		},
	}

	var resp ollamaResponse
	if err := postJSON(ctx, g.client, g.baseURL()+"/api/generate", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}
