// Package integration hosts the scanner backends that execute probes
// against target models. Every backend goes through the same execution
// pipeline: result cache, per-model rate limit, circuit breaker, bounded
// retries, and a wall-clock timeout per probe, with metrics recorded for
// every outcome.
//
// RunProbe never returns a Go error. Operational failures (disabled
// integration, unknown probe, rate limit, breaker open, timeout, exhausted
// retries) come back as structured ProbeResult records so batch execution
// can always aggregate per-probe outcomes.
package integration
