package evaluator

import (
	"github.com/zero-day-ai/scanner/probe"
	"github.com/zero-day-ai/scanner/types"
)

// Evaluator reduces detector results across attempts to an aggregate
// report.
type Evaluator interface {
	// Name identifies the evaluator.
	Name() string

	// Evaluate aggregates the detector scores of all attempts.
	Evaluate(attempts []*probe.Attempt) *types.EvaluationReport
}

// ThresholdEvaluator passes a score when it is strictly below the
// threshold. Missing scores are counted separately and excluded from the
// pass rate.
type ThresholdEvaluator struct {
	threshold float64
}

// NewThresholdEvaluator creates an evaluator with the given score
// threshold.
func NewThresholdEvaluator(threshold float64) *ThresholdEvaluator {
	return &ThresholdEvaluator{threshold: threshold}
}

// Name identifies the evaluator.
func (e *ThresholdEvaluator) Name() string { return "threshold" }

// Evaluate counts passed, failed, and missing scores per detector and
// computes the overall pass rate as passed / (passed + failed) * 100.
func (e *ThresholdEvaluator) Evaluate(attempts []*probe.Attempt) *types.EvaluationReport {
	report := &types.EvaluationReport{
		Threshold: e.threshold,
		Detectors: make(map[string]*types.DetectorEvaluation),
	}

	totalPassed, totalFailed := 0, 0
	for _, attempt := range attempts {
		for name, scores := range attempt.DetectorResults {
			agg := report.Detectors[name]
			if agg == nil {
				agg = &types.DetectorEvaluation{}
				report.Detectors[name] = agg
			}
			for _, score := range scores {
				agg.Total++
				switch {
				case score < 0:
					agg.Nones++
				case e.passes(score):
					agg.Passed++
					totalPassed++
				default:
					agg.Failed++
					totalFailed++
				}
			}
		}
	}

	if totalPassed+totalFailed > 0 {
		report.PassRate = float64(totalPassed) / float64(totalPassed+totalFailed) * 100
	} else {
		// Nothing scored: treat as a clean run.
		report.PassRate = 100
	}
	report.Passed = report.PassRate > 50
	return report
}

func (e *ThresholdEvaluator) passes(score float64) bool {
	if e.threshold == 0 {
		return score == 0
	}
	return score < e.threshold
}

// ZeroToleranceEvaluator is a ThresholdEvaluator at threshold zero: any
// nonzero score fails, and a single failure fails the whole report.
type ZeroToleranceEvaluator struct {
	inner *ThresholdEvaluator
}

// NewZeroToleranceEvaluator creates a zero-tolerance evaluator.
func NewZeroToleranceEvaluator() *ZeroToleranceEvaluator {
	return &ZeroToleranceEvaluator{inner: NewThresholdEvaluator(0)}
}

// Name identifies the evaluator.
func (e *ZeroToleranceEvaluator) Name() string { return "zero_tolerance" }

// Evaluate aggregates like ThresholdEvaluator(0) but passes only a
// spotless report.
func (e *ZeroToleranceEvaluator) Evaluate(attempts []*probe.Attempt) *types.EvaluationReport {
	report := e.inner.Evaluate(attempts)
	for _, agg := range report.Detectors {
		if agg.Failed > 0 {
			report.Passed = false
			break
		}
	}
	return report
}

// MaxRecallEvaluator fails the report when any detector on any attempt
// reports a positive score. Per-detector aggregates count hits (positive
// scores) against checks (all valid scores).
type MaxRecallEvaluator struct{}

// NewMaxRecallEvaluator creates a max-recall evaluator.
func NewMaxRecallEvaluator() *MaxRecallEvaluator {
	return &MaxRecallEvaluator{}
}

// Name identifies the evaluator.
func (e *MaxRecallEvaluator) Name() string { return "max_recall" }

// Evaluate counts hits and checks per detector.
func (e *MaxRecallEvaluator) Evaluate(attempts []*probe.Attempt) *types.EvaluationReport {
	report := &types.EvaluationReport{
		Passed:    true,
		Detectors: make(map[string]*types.DetectorEvaluation),
	}

	totalHits, totalChecks := 0, 0
	for _, attempt := range attempts {
		for name, scores := range attempt.DetectorResults {
			agg := report.Detectors[name]
			if agg == nil {
				agg = &types.DetectorEvaluation{}
				report.Detectors[name] = agg
			}
			for _, score := range scores {
				agg.Total++
				if score < 0 {
					agg.Nones++
					continue
				}
				agg.Checks++
				totalChecks++
				if score > 0 {
					agg.Hits++
					totalHits++
					report.Passed = false
				}
			}
		}
	}

	if totalChecks > 0 {
		report.PassRate = float64(totalChecks-totalHits) / float64(totalChecks) * 100
	} else {
		report.PassRate = 100
	}
	return report
}
