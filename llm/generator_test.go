package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/scanner/types"
)

func TestConfigFromModel(t *testing.T) {
	tests := []struct {
		name        string
		modelType   types.ModelType
		modelConfig map[string]any
		wantKey     string
		wantBase    string
	}{
		{
			name:        "generic api_key",
			modelType:   types.ModelOpenAI,
			modelConfig: map[string]any{"api_key": "sk-1"},
			wantKey:     "sk-1",
		},
		{
			name:        "provider specific key",
			modelType:   types.ModelAnthropic,
			modelConfig: map[string]any{"anthropic_api_key": "sk-ant"},
			wantKey:     "sk-ant",
		},
		{
			name:        "generic key wins over provider key",
			modelType:   types.ModelOpenAI,
			modelConfig: map[string]any{"api_key": "sk-1", "openai_api_key": "sk-2"},
			wantKey:     "sk-1",
		},
		{
			name:        "base url passthrough",
			modelType:   types.ModelLocal,
			modelConfig: map[string]any{"base_url": "http://localhost:11434"},
			wantBase:    "http://localhost:11434",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ConfigFromModel(tt.modelType, "m", tt.modelConfig)
			assert.Equal(t, tt.wantKey, cfg.APIKey)
			assert.Equal(t, tt.wantBase, cfg.BaseURL)
		})
	}
}

func TestNewGenerator_Selection(t *testing.T) {
	cfg := Config{ModelName: "m", APIKey: "k", BaseURL: "http://localhost:1"}

	tests := []struct {
		modelType types.ModelType
		wantName  string
	}{
		{types.ModelOpenAI, "openai:m"},
		{types.ModelAnthropic, "anthropic:m"},
		{types.ModelHuggingFace, "huggingface:m"},
		{types.ModelLocal, "local:m"},
	}

	for _, tt := range tests {
		t.Run(string(tt.modelType), func(t *testing.T) {
			g, err := NewGenerator(tt.modelType, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, g.Name())
		})
	}

	_, err := NewGenerator(types.ModelType("mystery"), cfg)
	assert.Error(t, err)

	_, err = NewGenerator(types.ModelOpenAI, Config{})
	assert.Error(t, err, "missing model name must be rejected")
}

func TestOpenAIGenerator_ChatVsCompletion(t *testing.T) {
	tests := []struct {
		model    string
		wantPath string
	}{
		{"gpt-4", "/v1/chat/completions"},
		{"gpt-3.5-turbo", "/v1/chat/completions"},
		{"gpt-3.5-turbo-instruct", "/v1/completions"},
		{"text-davinci-003", "/v1/completions"},
		{"davinci-002", "/v1/completions"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				if r.URL.Path == "/v1/chat/completions" {
					json.NewEncoder(w).Encode(map[string]any{
						"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "chat reply"}}},
					})
					return
				}
				json.NewEncoder(w).Encode(map[string]any{
					"choices": []map[string]any{{"text": "completion reply"}},
				})
			}))
			defer srv.Close()

			g, err := NewOpenAIGenerator(Config{ModelName: tt.model, APIKey: "sk-test", BaseURL: srv.URL})
			require.NoError(t, err)

			msgs, err := g.Generate(context.Background(), NewConversation("hi"), 1)
			require.NoError(t, err)
			require.Len(t, msgs, 1)
			require.NotNil(t, msgs[0])
			assert.Equal(t, tt.wantPath, gotPath)
		})
	}
}

func TestOpenAIGenerator_FailureYieldsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator(Config{ModelName: "gpt-4", APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	msgs, err := g.Generate(context.Background(), NewConversation("hi"), 2)
	require.NoError(t, err, "per-generation failures must not surface as errors")
	require.Len(t, msgs, 2)
	assert.Nil(t, msgs[0])
	assert.Nil(t, msgs[1])
}

func TestAnthropicGenerator_ExtractsSystem(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "reply"}},
		})
	}))
	defer srv.Close()

	g, err := NewAnthropicGenerator(Config{ModelName: "claude-3-opus", APIKey: "sk-ant", BaseURL: srv.URL})
	require.NoError(t, err)

	conv := NewConversation("attack prompt").WithSystem("you are a helpful bot")
	msgs, err := g.Generate(context.Background(), conv, 1)
	require.NoError(t, err)
	require.NotNil(t, msgs[0])
	assert.Equal(t, "reply", msgs[0].Text)

	assert.Equal(t, "you are a helpful bot", got.System)
	require.Len(t, got.Messages, 1, "system turn must not appear in messages")
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestLocalGenerator_Ollama(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"response": "local reply"})
	}))
	defer srv.Close()

	g, err := NewLocalGenerator(Config{ModelName: "llama3", BaseURL: srv.URL})
	require.NoError(t, err)

	msgs, err := g.Generate(context.Background(), NewConversation("probe prompt"), 1)
	require.NoError(t, err)
	require.NotNil(t, msgs[0])
	assert.Equal(t, "local reply", msgs[0].Text)
	assert.Equal(t, "probe prompt", got.Prompt)
	assert.False(t, got.Stream)
}

func TestHuggingFaceGenerator_Modes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{"generated_text": "prompt tail"}})
	}))
	defer srv.Close()

	t.Run("api mode requires key", func(t *testing.T) {
		_, err := NewHuggingFaceGenerator(Config{ModelName: "gpt2", UseAPI: true})
		assert.Error(t, err)
	})

	t.Run("local mode requires base url", func(t *testing.T) {
		_, err := NewHuggingFaceGenerator(Config{ModelName: "gpt2"})
		assert.Error(t, err)
	})

	t.Run("local mode generates", func(t *testing.T) {
		g, err := NewHuggingFaceGenerator(Config{ModelName: "gpt2", BaseURL: srv.URL})
		require.NoError(t, err)
		msgs, err := g.Generate(context.Background(), NewConversation("prompt"), 1)
		require.NoError(t, err)
		require.NotNil(t, msgs[0])
		assert.Equal(t, " tail", msgs[0].Text, "prompt echo must be trimmed")
	})
}

func TestGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": "single"})
	}))
	defer srv.Close()

	g, err := NewLocalGenerator(Config{ModelName: "llama3", BaseURL: srv.URL})
	require.NoError(t, err)

	text, err := GenerateText(context.Background(), g, "p")
	require.NoError(t, err)
	assert.Equal(t, "single", text)
}
