// Package agenttop10 is the first-party OWASP Agentic AI Top 10 probe
// catalog. The probes target agent-specific failure modes: goal hijacking,
// tool misuse, identity abuse, isolation and sandboxing failures, and
// monitoring evasion.
package agenttop10
