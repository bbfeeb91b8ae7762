package probe

import (
	"math"

	"github.com/zero-day-ai/scanner/types"
)

// PassThreshold is the vulnerability score below which a probe's verdict
// passes.
const PassThreshold = 0.3

// Scorecard accumulates findings and the vulnerability score while a probe
// runs its Test checks. The zero value is ready to use.
type Scorecard struct {
	findings []types.Finding
	score    float64
}

// Add records one finding and raises the score by delta.
func (s *Scorecard) Add(f types.Finding, delta float64) {
	s.findings = append(s.findings, f)
	s.score += delta
}

// Note records an informational finding without affecting the score.
func (s *Scorecard) Note(typ, description string) {
	s.findings = append(s.findings, types.Finding{
		Type:        typ,
		Severity:    types.SeverityInfo,
		Description: description,
	})
}

// Score returns the accumulated score capped at 1.0 and rounded to two
// decimals. Detector scores derived from it must stay in [0, 1].
func (s *Scorecard) Score() float64 {
	score := math.Round(s.score*100) / 100
	if score > 1 {
		return 1
	}
	return score
}

// Result assembles the verdict for the given descriptor. The risk level
// floor is low, not info: a clean Test pass still reflects an executed
// attack surface check.
func (s *Scorecard) Result(d Descriptor) *types.TestResult {
	score := s.Score()
	risk := types.SeverityLow
	switch {
	case score >= 0.7:
		risk = types.SeverityCritical
	case score >= 0.5:
		risk = types.SeverityHigh
	case score >= PassThreshold:
		risk = types.SeverityMedium
	}
	return &types.TestResult{
		Passed:             score < PassThreshold,
		Findings:           s.findings,
		RiskLevel:          risk,
		VulnerabilityScore: score,
		OWASPID:            d.OWASPID,
		ProbeName:          d.Name,
		ProbeCategory:      d.Category,
	}
}
