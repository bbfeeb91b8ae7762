// Package compliance maps scan vulnerabilities onto regulatory framework
// requirements.
//
// Frameworks are static, built-in tables. Each requirement declares either
// categories = ["all"] (every vulnerability is relevant) or a list of probe
// categories; the engine resolves a compliance status per (framework,
// requirement) from the severities of the relevant vulnerabilities.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/zero-day-ai/scanner/store"
	"github.com/zero-day-ai/scanner/types"
)

// categoryAll marks a requirement assessed against every vulnerability.
const categoryAll = "all"

// Requirement is one assessable obligation within a framework.
type Requirement struct {
	// ID is the framework's requirement identifier (e.g. "ART-10").
	ID string

	// Name is the human-readable requirement title.
	Name string

	// Categories lists the probe categories this requirement covers, or
	// ["all"] to cover every vulnerability.
	Categories []string
}

// FrameworkDef is a built-in compliance framework.
type FrameworkDef struct {
	ID           types.Framework
	Name         string
	Requirements []Requirement
}

// frameworks holds the built-in framework tables in assessment order.
var frameworks = []FrameworkDef{
	{
		ID:   types.FrameworkNISTAIRMF,
		Name: "NIST AI Risk Management Framework",
		Requirements: []Requirement{
			{ID: "MAP-1.1", Name: "Context of AI System", Categories: []string{categoryAll}},
			{ID: "MAP-1.2", Name: "Intended Purposes", Categories: []string{categoryAll}},
			{ID: "MEASURE-2.1", Name: "Accuracy Testing", Categories: []string{"Hallucination"}},
			{ID: "MEASURE-2.2", Name: "Reliability Testing", Categories: []string{categoryAll}},
			{ID: "MANAGE-1.1", Name: "Risk Response Plan", Categories: []string{"Prompt Injection", "Data Leakage"}},
			{ID: "MANAGE-2.1", Name: "Risk Documentation", Categories: []string{categoryAll}},
			{ID: "GOVERN-1.1", Name: "AI Policies", Categories: []string{categoryAll}},
			{ID: "GOVERN-1.2", Name: "Accountability Structures", Categories: []string{categoryAll}},
		},
	},
	{
		ID:   types.FrameworkISO42001,
		Name: "ISO/IEC 42001 AI Management System",
		Requirements: []Requirement{
			{ID: "5.1", Name: "Leadership Commitment", Categories: []string{categoryAll}},
			{ID: "6.1", Name: "Risk Assessment", Categories: []string{categoryAll}},
			{ID: "6.2", Name: "AI System Objectives", Categories: []string{categoryAll}},
			{ID: "7.1", Name: "Resources", Categories: []string{categoryAll}},
			{ID: "8.1", Name: "Operational Planning", Categories: []string{"Prompt Injection", "Data Leakage"}},
			{ID: "8.2", Name: "AI System Lifecycle", Categories: []string{categoryAll}},
			{ID: "9.1", Name: "Monitoring and Measurement", Categories: []string{"Hallucination"}},
			{ID: "10.1", Name: "Continual Improvement", Categories: []string{categoryAll}},
		},
	},
	{
		ID:   types.FrameworkEUAIAct,
		Name: "EU Artificial Intelligence Act",
		Requirements: []Requirement{
			{ID: "ART-9", Name: "Risk Management System", Categories: []string{categoryAll}},
			{ID: "ART-10", Name: "Data Governance", Categories: []string{"Data Leakage"}},
			{ID: "ART-11", Name: "Technical Documentation", Categories: []string{categoryAll}},
			{ID: "ART-12", Name: "Record Keeping", Categories: []string{categoryAll}},
			{ID: "ART-13", Name: "Transparency", Categories: []string{"Hallucination"}},
			{ID: "ART-14", Name: "Human Oversight", Categories: []string{"Prompt Injection"}},
			{ID: "ART-15", Name: "Accuracy and Robustness", Categories: []string{categoryAll}},
			{ID: "ART-16", Name: "Quality Management", Categories: []string{categoryAll}},
		},
	},
	{
		ID:   types.FrameworkIndiaDPDP,
		Name: "India Digital Personal Data Protection Act",
		Requirements: []Requirement{
			{ID: "SEC-4", Name: "Lawful Processing", Categories: []string{"Data Leakage"}},
			{ID: "SEC-5", Name: "Consent Requirements", Categories: []string{categoryAll}},
			{ID: "SEC-6", Name: "Purpose Limitation", Categories: []string{"Data Leakage"}},
			{ID: "SEC-7", Name: "Data Quality", Categories: []string{"Hallucination"}},
			{ID: "SEC-8", Name: "Security Safeguards", Categories: []string{"Prompt Injection", "Data Leakage"}},
			{ID: "SEC-9", Name: "Data Retention", Categories: []string{"Data Leakage"}},
		},
	},
	{
		ID:   types.FrameworkTelecomIoT,
		Name: "Telecom/IoT Security Standards",
		Requirements: []Requirement{
			{ID: "IOT-1", Name: "Device Authentication", Categories: []string{"Telecom/IoT"}},
			{ID: "IOT-2", Name: "Secure Communication", Categories: []string{"Telecom/IoT"}},
			{ID: "IOT-3", Name: "Firmware Security", Categories: []string{"Telecom/IoT"}},
			{ID: "NET-1", Name: "Network Segmentation", Categories: []string{"Telecom/IoT"}},
			{ID: "NET-2", Name: "Protocol Security", Categories: []string{"Telecom/IoT"}},
			{ID: "NET-3", Name: "Intrusion Detection", Categories: []string{categoryAll}},
		},
	},
}

// Frameworks returns the built-in framework definitions in assessment order.
func Frameworks() []FrameworkDef {
	return frameworks
}

// FrameworkByID returns the definition of a built-in framework.
func FrameworkByID(id types.Framework) (FrameworkDef, bool) {
	for _, fw := range frameworks {
		if fw.ID == id {
			return fw, true
		}
	}
	return FrameworkDef{}, false
}

// Engine assesses scans against the built-in frameworks and persists the
// resulting mappings.
type Engine struct {
	store  store.ScanStore
	logger *slog.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates a compliance engine over the given store.
func NewEngine(st store.ScanStore, opts ...Option) *Engine {
	e := &Engine{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MapScan assesses every framework requirement against the scan's
// vulnerabilities and writes one ComplianceMapping per (framework,
// requirement).
func (e *Engine) MapScan(ctx context.Context, scanID string) error {
	vulns, err := e.store.ListVulnerabilities(ctx, scanID)
	if err != nil {
		return fmt.Errorf("compliance mapping for scan %s: %w", scanID, err)
	}

	byCategory := make(map[string][]*types.Vulnerability)
	for _, v := range vulns {
		if v.ProbeCategory != "" {
			byCategory[v.ProbeCategory] = append(byCategory[v.ProbeCategory], v)
		}
	}

	for _, fw := range frameworks {
		for _, req := range fw.Requirements {
			status, evidence, ids := assessRequirement(req, vulns, byCategory)

			mapping := types.NewComplianceMapping(scanID, fw.ID, req.ID, req.Name)
			mapping.Status = status
			mapping.Evidence = evidence
			mapping.VulnerabilityIDs = ids
			if err := e.store.AddComplianceMapping(ctx, mapping); err != nil {
				return fmt.Errorf("compliance mapping for scan %s: %w", scanID, err)
			}
		}
	}

	e.logger.Info("compliance mappings written",
		"scan_id", scanID,
		"frameworks", len(frameworks),
		"vulnerabilities", len(vulns))
	return nil
}

// assessRequirement resolves one requirement's status from the relevant
// vulnerabilities. Rules apply in order: empty+all means not assessed,
// empty+specific means compliant, any critical/high means non-compliant,
// any medium means partial, else compliant.
func assessRequirement(req Requirement, all []*types.Vulnerability, byCategory map[string][]*types.Vulnerability) (types.ComplianceStatus, string, []string) {
	coversAll := false
	for _, c := range req.Categories {
		if c == categoryAll {
			coversAll = true
			break
		}
	}

	var relevant []*types.Vulnerability
	if coversAll {
		relevant = all
	} else {
		for _, c := range req.Categories {
			relevant = append(relevant, byCategory[c]...)
		}
	}

	if len(relevant) == 0 {
		if coversAll {
			return types.ComplianceNotAssessed, "No relevant vulnerabilities assessed.", nil
		}
		return types.ComplianceCompliant, "No vulnerabilities found in relevant category.", nil
	}

	ids := make([]string, 0, len(relevant))
	criticalHigh := 0
	medium := 0
	for _, v := range relevant {
		ids = append(ids, v.ID)
		switch v.Severity {
		case types.SeverityCritical, types.SeverityHigh:
			criticalHigh++
		case types.SeverityMedium:
			medium++
		}
	}

	switch {
	case criticalHigh > 0:
		evidence := fmt.Sprintf("Found %d critical/high severity vulnerabilities affecting this requirement.", criticalHigh)
		return types.ComplianceNonCompliant, evidence, ids
	case medium > 0:
		evidence := fmt.Sprintf("Found %d medium severity vulnerabilities. Partial compliance achieved.", medium)
		return types.CompliancePartial, evidence, ids
	default:
		evidence := fmt.Sprintf("Found %d low severity issues. Requirement substantially met.", len(relevant))
		return types.ComplianceCompliant, evidence, ids
	}
}

// FrameworkSummary aggregates one framework's requirement statuses for a
// scan.
type FrameworkSummary struct {
	Framework     types.Framework `json:"framework"`
	FrameworkName string          `json:"framework_name"`
	Total         int             `json:"total"`
	Passed        int             `json:"passed"`
	Failed        int             `json:"failed"`
	Partial       int             `json:"partial"`
	NotAssessed   int             `json:"not_assessed"`

	// Score is Passed / Total × 100, rounded to one decimal.
	Score float64 `json:"score"`
}

// Summaries aggregates the scan's mappings per framework.
func (e *Engine) Summaries(ctx context.Context, scanID string) (map[types.Framework]FrameworkSummary, error) {
	mappings, err := e.store.ListComplianceMappings(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("compliance summary for scan %s: %w", scanID, err)
	}

	out := make(map[types.Framework]FrameworkSummary)
	for _, m := range mappings {
		s := out[m.Framework]
		s.Framework = m.Framework
		if s.FrameworkName == "" {
			if fw, ok := FrameworkByID(m.Framework); ok {
				s.FrameworkName = fw.Name
			} else {
				s.FrameworkName = m.Framework.String()
			}
		}
		s.Total++
		switch m.Status {
		case types.ComplianceCompliant:
			s.Passed++
		case types.ComplianceNonCompliant:
			s.Failed++
		case types.CompliancePartial:
			s.Partial++
		case types.ComplianceNotAssessed:
			s.NotAssessed++
		}
		out[m.Framework] = s
	}

	for fw, s := range out {
		if s.Total > 0 {
			s.Score = math.Round(float64(s.Passed)/float64(s.Total)*1000) / 10
		}
		out[fw] = s
	}
	return out, nil
}

// Summary aggregates one framework's mappings for a scan. A framework with
// no mappings yields a zero summary.
func (e *Engine) Summary(ctx context.Context, scanID string, framework types.Framework) (FrameworkSummary, error) {
	all, err := e.Summaries(ctx, scanID)
	if err != nil {
		return FrameworkSummary{}, err
	}
	return all[framework], nil
}
