package integration

import (
	"github.com/zero-day-ai/scanner/config"
	"github.com/zero-day-ai/scanner/probe/agenttop10"
	"github.com/zero-day-ai/scanner/probe/llmtop10"
)

// NewLLMTop10 creates the first-party OWASP LLM Top 10 integration.
func NewLLMTop10(cfg config.IntegrationConfig, opts ...Option) *Runner {
	return NewRunner("llmtop10", cfg, llmtop10.NewRegistry(), opts...)
}

// NewAgentTop10 creates the first-party OWASP Agentic Top 10 integration.
func NewAgentTop10(cfg config.IntegrationConfig, opts ...Option) *Runner {
	return NewRunner("agenttop10", cfg, agenttop10.NewRegistry(), opts...)
}
