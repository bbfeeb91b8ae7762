package integration

import (
	"context"
	"time"

	"github.com/zero-day-ai/scanner/metrics"
	"github.com/zero-day-ai/scanner/probe"
	"github.com/zero-day-ai/scanner/types"
)

// Model identifies the target model for a probe run. Config carries
// provider settings including API keys; keys stay in memory for the
// duration of the run and are stripped before cache hashing or any
// persistence.
type Model struct {
	// Name is the provider model identifier (e.g. "gpt-4o-mini").
	Name string

	// Type selects the provider family.
	Type types.ModelType

	// Config holds provider settings (api_key, base_url, temperature,
	// max_tokens) and integration-specific keys such as counterfit_target.
	Config map[string]any
}

// Integration is the contract every scanner backend implements. The engine
// dispatches probes across integrations through this interface only.
type Integration interface {
	// Name returns the integration identifier ("llmtop10", "garak", ...).
	Name() string

	// ListProbes returns the probe names in the category, or all probes
	// when category is empty or "all".
	ListProbes(category string) []string

	// ProbeInfo returns the descriptor for a probe, if known.
	ProbeInfo(name string) (probe.Descriptor, bool)

	// RunProbe executes one probe against the model. A non-positive
	// timeout selects the configured default. The returned record's
	// status is completed, timeout, or error; it is never nil.
	RunProbe(ctx context.Context, probeName string, model Model, timeout time.Duration) *types.ProbeResult

	// RunMultipleProbes executes probes concurrently, bounded by
	// maxConcurrent (non-positive selects the configured default).
	// Results are returned in input order; individual failures never
	// abort the batch.
	RunMultipleProbes(ctx context.Context, probeNames []string, model Model, maxConcurrent int) []*types.ProbeResult

	// Health classifies the integration from its recent execution history.
	Health() types.HealthStatus

	// Metrics returns a point-in-time copy of the execution aggregates.
	Metrics() metrics.Snapshot

	// ResetCircuitBreaker forces the breaker back to closed.
	ResetCircuitBreaker()
}
