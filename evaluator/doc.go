// Package evaluator aggregates detector scores across a probe's attempts
// into pass/fail reports. Reports are informational: the orchestrator
// decides vulnerability severity from the probe's structured verdict, not
// from the evaluator.
package evaluator
