package detector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zero-day-ai/scanner/probe"
	"github.com/zero-day-ai/scanner/types"
)

// severityScores reduces a finding severity to a detector score.
var severityScores = map[types.Severity]float64{
	types.SeverityCritical: 1.0,
	types.SeverityHigh:     0.8,
	types.SeverityMedium:   0.5,
	types.SeverityLow:      0.2,
}

// ProbeIntegratedDetector delegates scoring to the probe's own Test
// heuristics and reduces the structured verdict to one score per output.
//
// Reduction order: an explicit vulnerability score wins; otherwise the
// highest finding severity maps through a fixed table; otherwise a failed
// verdict scores 0.5 and a passed one 0.0.
type ProbeIntegratedDetector struct {
	tester    probe.Tester
	probeName string
	logger    *slog.Logger
}

// NewProbeIntegratedDetector wraps a probe's Test method as a detector.
func NewProbeIntegratedDetector(probeName string, tester probe.Tester, logger *slog.Logger) *ProbeIntegratedDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProbeIntegratedDetector{
		tester:    tester,
		probeName: probeName,
		logger:    logger,
	}
}

// Name identifies the detector as probe-integrated for its probe.
func (d *ProbeIntegratedDetector) Name() string {
	return d.probeName + ".integrated"
}

// Lang returns "*": probe heuristics are language-agnostic.
func (d *ProbeIntegratedDetector) Lang() string { return "*" }

// Detect runs the probe's Test method on each output.
func (d *ProbeIntegratedDetector) Detect(ctx context.Context, attempt *probe.Attempt) ([]float64, error) {
	if d.tester == nil {
		return nil, fmt.Errorf("detector %s: probe does not implement Test", d.Name())
	}

	scores := make([]float64, len(attempt.Outputs))
	for i, out := range attempt.Outputs {
		if err := ctx.Err(); err != nil {
			return scores, err
		}
		if out == nil {
			scores[i] = probe.ScoreMissing
			continue
		}

		result, err := d.tester.Test(ctx, out.Text, attempt.Prompt)
		if err != nil {
			d.logger.Warn("probe test failed during detection",
				"probe", d.probeName,
				"seq", attempt.Seq,
				"error", err)
			scores[i] = probe.ScoreMissing
			continue
		}
		scores[i] = ReduceTestResult(result)
	}
	return scores, nil
}

// ReduceTestResult collapses a structured probe verdict to a single score
// in [0, 1].
func ReduceTestResult(result *types.TestResult) float64 {
	if result == nil {
		return 0.0
	}
	if result.VulnerabilityScore > 0 {
		return result.VulnerabilityScore
	}
	best := 0.0
	for _, f := range result.Findings {
		if s, ok := severityScores[f.Severity]; ok && s > best {
			best = s
		}
	}
	if best > 0 {
		return best
	}
	if result.Passed {
		return 0.0
	}
	return 0.5
}
