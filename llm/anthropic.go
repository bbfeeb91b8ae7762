package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// AnthropicGenerator drives Anthropic models through the messages endpoint.
// System turns are extracted from the conversation and sent in the
// top-level system field, as the API requires.
type AnthropicGenerator struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewAnthropicGenerator creates a generator for an Anthropic model.
func NewAnthropicGenerator(cfg Config) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: anthropic generator requires an API key")
	}
	return &AnthropicGenerator{
		cfg:    cfg,
		client: cfg.httpClient(),
		logger: cfg.logger(),
	}, nil
}

// Name identifies the generator.
func (g *AnthropicGenerator) Name() string {
	return "anthropic:" + g.cfg.ModelName
}

func (g *AnthropicGenerator) baseURL() string {
	if g.cfg.BaseURL != "" {
		return strings.TrimSuffix(g.cfg.BaseURL, "/")
	}
	return defaultAnthropicBaseURL
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate requests n generations, returning nil entries for failed ones.
func (g *AnthropicGenerator) Generate(ctx context.Context, conv Conversation, n int) ([]*Message, error) {
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
			g.logger.Warn("anthropic generation failed",
				"model", g.cfg.ModelName,
				"generation", i,
				"error", err)
			continue
		}
		out[i] = NewMessage(text)
	}
	return out, nil
}

func (g *AnthropicGenerator) generateOne(ctx context.Context, conv Conversation) (string, error) {
	req := anthropicRequest{
		Model:       g.cfg.ModelName,
		System:      conv.SystemText(),
		Temperature: g.cfg.temperature(),
		MaxTokens:   g.cfg.maxTokens(),
	}
	for _, t := range conv.NonSystemTurns() {
		if t.Message == nil {
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{
			Role:    t.Role.String(),
			Content: t.Message.Text,
		})
	}
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("conversation has no user turns")
	}

	headers := map[string]string{
		"x-api-key":         g.cfg.APIKey,
		"anthropic-version": anthropicAPIVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, g.client, g.baseURL()+"/v1/messages", headers, req, &resp); err != nil {
		return "", err
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text block in response")
}
