package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zero-day-ai/scanner/types"
)

// Generator sends a conversation to a target model and returns generated
// responses.
//
// Generate requests n generations and returns exactly n entries. A nil entry
// marks a failed generation; the error return is reserved for conditions
// that make every generation impossible (bad configuration, cancelled
// context). Implementations must be safe for concurrent use.
type Generator interface {
	// Name identifies the generator, usually "<provider>:<model>".
	Name() string

	// Generate sends the conversation and returns n response messages.
	Generate(ctx context.Context, conv Conversation, n int) ([]*Message, error)
}

// GenerateText is a single-turn convenience used by the legacy probe path:
// it wraps a prompt in a conversation, requests one generation, and returns
// the text.
func GenerateText(ctx context.Context, g Generator, prompt string) (string, error) {
	msgs, err := g.Generate(ctx, NewConversation(prompt), 1)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("generator %s returned no output", g.Name())
	}
	return msgs[0].Text, nil
}

// Config carries the provider options a generator needs. It is built from a
// scan's model config; the API key arrives separately and never travels with
// persisted scan state.
type Config struct {
	// ModelName is the provider's model identifier.
	ModelName string

	// APIKey authenticates against hosted providers.
	APIKey string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Temperature and MaxTokens are passed through to the provider.
	Temperature float64
	MaxTokens   int

	// UseAPI selects the hosted inference API for HuggingFace models; when
	// false a local inference endpoint at BaseURL is used instead.
	UseAPI bool

	// Timeout bounds each provider HTTP request.
	Timeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client

	// Logger receives per-generation diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
	defaultHTTPTimeout = 60 * time.Second
)

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c *Config) temperature() float64 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return defaultTemperature
}

func (c *Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return defaultMaxTokens
}

// ConfigFromModel builds a generator Config from a scan's model name and
// model config map. The API key is taken from "api_key" or the provider
// specific "<provider>_api_key" entry.
func ConfigFromModel(modelType types.ModelType, modelName string, modelConfig map[string]any) Config {
	cfg := Config{ModelName: modelName}

	get := func(key string) (any, bool) {
		v, ok := modelConfig[key]
		return v, ok
	}

	if v, ok := get("api_key"); ok {
		cfg.APIKey, _ = v.(string)
	}
	if cfg.APIKey == "" {
		if v, ok := get(string(modelType) + "_api_key"); ok {
			cfg.APIKey, _ = v.(string)
		}
	}
	if v, ok := get("base_url"); ok {
		cfg.BaseURL, _ = v.(string)
	}
	if v, ok := get("temperature"); ok {
		switch t := v.(type) {
		case float64:
			cfg.Temperature = t
		case int:
			cfg.Temperature = float64(t)
		}
	}
	if v, ok := get("max_tokens"); ok {
		switch t := v.(type) {
		case int:
			cfg.MaxTokens = t
		case float64:
			cfg.MaxTokens = int(t)
		}
	}
	if v, ok := get("use_api"); ok {
		cfg.UseAPI, _ = v.(bool)
	}
	if v, ok := get("timeout"); ok {
		switch t := v.(type) {
		case int:
			cfg.Timeout = time.Duration(t) * time.Second
		case float64:
			cfg.Timeout = time.Duration(t * float64(time.Second))
		}
	}
	return cfg
}

// NewGenerator constructs the generator for a provider family.
func NewGenerator(modelType types.ModelType, cfg Config) (Generator, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("llm: model name is required")
	}
	switch modelType {
	case types.ModelOpenAI:
		return NewOpenAIGenerator(cfg)
	case types.ModelAnthropic:
		return NewAnthropicGenerator(cfg)
	case types.ModelHuggingFace:
		return NewHuggingFaceGenerator(cfg)
	case types.ModelLocal:
		return NewLocalGenerator(cfg)
	default:
		return nil, fmt.Errorf("llm: unsupported model type %q", modelType)
	}
}
