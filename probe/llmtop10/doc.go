// Package llmtop10 is the first-party OWASP LLM Top 10 probe catalog.
// Each probe carries its own attack prompt set and a Test heuristic that
// scores a single model response; the heuristics back the probe-integrated
// detector when no dedicated detector is configured.
package llmtop10
