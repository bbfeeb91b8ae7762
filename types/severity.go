package types

import "fmt"

// Severity represents the severity level of a vulnerability.
// Severity levels are ordered from most severe (critical) to least severe (info).
type Severity string

// Severity levels in order of decreasing severity.
const (
	// SeverityCritical indicates an immediately exploitable defect with
	// severe impact, such as direct disclosure of secrets or full prompt
	// injection control.
	SeverityCritical Severity = "critical"

	// SeverityHigh indicates a serious defect that is likely exploitable.
	SeverityHigh Severity = "high"

	// SeverityMedium indicates a defect with moderate impact or one that
	// requires unusual conditions to exploit.
	SeverityMedium Severity = "medium"

	// SeverityLow indicates a minor defect with limited impact.
	SeverityLow Severity = "low"

	// SeverityInfo indicates an informational observation with no direct
	// security impact.
	SeverityInfo Severity = "info"
)

// severityWeights maps each severity to its contribution to the scan risk
// score. A scan's risk score is the sum of its vulnerability weights
// normalized by the maximum possible (count * critical weight).
var severityWeights = map[Severity]float64{
	SeverityCritical: 10,
	SeverityHigh:     7,
	SeverityMedium:   4,
	SeverityLow:      1,
	SeverityInfo:     0,
}

// severityRanks orders severities for comparison. Higher rank is more severe.
var severityRanks = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
	SeverityInfo:     0,
}

// cvssRanges maps each severity to its CVSS v3 score band [min, max].
var cvssRanges = map[Severity][2]float64{
	SeverityCritical: {9.0, 10.0},
	SeverityHigh:     {7.0, 8.9},
	SeverityMedium:   {4.0, 6.9},
	SeverityLow:      {0.1, 3.9},
	SeverityInfo:     {0.0, 0.0},
}

// IsValid returns true if the severity is one of the defined levels.
func (s Severity) IsValid() bool {
	_, ok := severityRanks[s]
	return ok
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// Weight returns the risk-score weight of the severity.
// Invalid severities have weight 0.
func (s Severity) Weight() float64 {
	return severityWeights[s]
}

// Rank returns the comparison rank of the severity. Higher is more severe.
// Invalid severities rank below info.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// CVSSRange returns the inclusive [min, max] CVSS band for the severity.
// Invalid severities map to [0, 0].
func (s Severity) CVSSRange() (min, max float64) {
	r := cvssRanges[s]
	return r[0], r[1]
}

// ParseSeverity converts a string into a Severity, returning an error when
// the string does not name a defined level.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", fmt.Errorf("invalid severity: %q", s)
	}
	return sev, nil
}

// SeverityOrDefault parses a severity string, falling back to the given
// default for unknown values. Probe results from external scanners carry
// free-form risk level strings, so lenient parsing is deliberate here.
func SeverityOrDefault(s string, def Severity) Severity {
	sev := Severity(s)
	if sev.IsValid() {
		return sev
	}
	return def
}

// CompareSeverity compares two severities. It returns a positive number if
// s1 is more severe than s2, zero if equal, and a negative number otherwise.
func CompareSeverity(s1, s2 Severity) int {
	return s1.Rank() - s2.Rank()
}

// AllSeverities returns all severity levels ordered from most to least severe.
func AllSeverities() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
		SeverityInfo,
	}
}
