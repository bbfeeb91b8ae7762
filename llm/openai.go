package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// legacy completion model prefixes. Everything else goes through the chat
// endpoint.
var openAICompletionPrefixes = []string{
	"gpt-3.5-turbo-instruct",
	"text-",
	"davinci",
	"curie",
	"babbage",
	"ada",
}

// OpenAIGenerator drives OpenAI models. Chat models use the chat completions
// endpoint; legacy completion models (instruct, davinci family) use the
// completions endpoint, selected by model-name prefix.
type OpenAIGenerator struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewOpenAIGenerator creates a generator for an OpenAI model.
func NewOpenAIGenerator(cfg Config) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: openai generator requires an API key")
	}
	return &OpenAIGenerator{
		cfg:    cfg,
		client: cfg.httpClient(),
		logger: cfg.logger(),
	}, nil
}

// Name identifies the generator.
func (g *OpenAIGenerator) Name() string {
	return "openai:" + g.cfg.ModelName
}

func (g *OpenAIGenerator) baseURL() string {
	if g.cfg.BaseURL != "" {
		return strings.TrimSuffix(g.cfg.BaseURL, "/")
	}
	return defaultOpenAIBaseURL
}

func (g *OpenAIGenerator) isCompletionModel() bool {
	for _, prefix := range openAICompletionPrefixes {
		if strings.HasPrefix(g.cfg.ModelName, prefix) {
			return true
		}
	}
	return false
}

// Generate requests n generations, returning nil entries for failed ones.
func (g *OpenAIGenerator) Generate(ctx context.Context, conv Conversation, n int) ([]*Message, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]*Message, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		var (
			text string
			err  error
		)
		if g.isCompletionModel() {
			text, err = g.complete(ctx, conv.LastUserText())
		} else {
			text, err = g.chat(ctx, conv)
		}
		if err != nil {
			g.logger.Warn("openai generation failed",
				"model", g.cfg.ModelName,
				"generation", i,
				"error", err)
			continue
		}
		out[i] = NewMessage(text)
	}
	return out, nil
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
}

func (g *OpenAIGenerator) chat(ctx context.Context, conv Conversation) (string, error) {
	req := openAIChatRequest{
		Model:       g.cfg.ModelName,
		Temperature: g.cfg.temperature(),
		MaxTokens:   g.cfg.maxTokens(),
	}
	for _, t := range conv.Turns {
		if t.Message == nil {
			continue
		}
		req.Messages = append(req.Messages, openAIChatMessage{
			Role:    t.Role.String(),
			Content: t.Message.Text,
		})
	}

	var resp openAIChatResponse
	err := postJSON(ctx, g.client, g.baseURL()+"/v1/chat/completions", g.headers(), req, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in chat response")
	}
	return resp.Choices[0].Message.Content, nil
}

type openAICompletionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type openAICompletionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

func (g *OpenAIGenerator) complete(ctx context.Context, prompt string) (string, error) {
	req := openAICompletionRequest{
		Model:       g.cfg.ModelName,
		Prompt:      prompt,
		Temperature: g.cfg.temperature(),
		MaxTokens:   g.cfg.maxTokens(),
	}

	var resp openAICompletionResponse
	err := postJSON(ctx, g.client, g.baseURL()+"/v1/completions", g.headers(), req, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in completion response")
	}
	return resp.Choices[0].Text, nil
}

func (g *OpenAIGenerator) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + g.cfg.APIKey}
}
