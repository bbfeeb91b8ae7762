// Package scanner provides a security scanning engine for large language
// models and LLM-backed agents.
//
// The engine dispatches security probes across a set of integrations, each
// wrapping a family of probes behind a shared resilience pipeline: result
// caching, per-model rate limiting, retries with backoff, a circuit breaker,
// and execution metrics.
//
// # Core Concepts
//
//   - Probes: individual security tests that send adversarial prompts to a
//     model and detect unsafe responses
//   - Integrations: probe families (llmtop10, agenttop10, builtin, garak,
//     counterfit, art) sharing one execution pipeline
//   - Engine: routes probes to their owning integration and fans out scans
//     with bounded concurrency
//   - Orchestrator: manages scan lifecycle, converts probe results into
//     vulnerabilities, and computes risk scores
//   - Compliance: maps vulnerabilities onto regulatory framework
//     requirements
//
// # Getting Started
//
// Create an engine with the default integrations:
//
//	engine, err := scanner.New(
//		scanner.WithLogger(logger),
//		scanner.WithConfigFile("/etc/scanner/config.yaml"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	model := integration.Model{
//		Name:   "gpt-4o-mini",
//		Type:   types.ModelOpenAI,
//		Config: map[string]any{"api_key": apiKey},
//	}
//	result := engine.RunProbe(ctx, "llm01_prompt_injection", model)
//
// Probe execution never returns a Go error: failures are reported as
// structured records with a status of error or timeout, so one failing probe
// never aborts a scan.
//
// # Scans
//
// Full scans run through the orchestrator, which persists lifecycle state in
// a scan store, derives vulnerabilities from failed probes, and evaluates
// compliance frameworks against the findings:
//
//	orch := orchestrator.New(engine, store)
//	scan, err := orch.CreateScan(ctx, req)
//	err = orch.ExecuteScan(ctx, scan.ID, apiKey)
//
// # Error Handling
//
// Engine-level operations use sentinel errors and the structured
// ScannerError type:
//
//	if errors.Is(err, scanner.ErrScanNotFound) {
//		// handle missing scan
//	}
//
// # Secret Hygiene
//
// Model configuration may carry provider credentials in memory, but
// credential-bearing keys are stripped before results are cached and before
// scans are persisted. API keys are accepted only as call parameters.
//
// # Thread Safety
//
// Engine, integration, and orchestrator methods are safe for concurrent
// use.
package scanner
