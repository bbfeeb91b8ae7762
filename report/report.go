// Package report assembles JSON scan reports from the scan store. A report
// bundles the scan record, a severity summary, the vulnerability list, and
// per-framework compliance tallies into a single document for downstream
// consumers.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zero-day-ai/scanner/store"
	"github.com/zero-day-ai/scanner/types"
)

// generatorVersion is stamped into every report's report_info block.
const generatorVersion = "1.0.0"

// Report is the full JSON report document.
type Report struct {
	ReportInfo        Info                                `json:"report_info"`
	Scan              ScanInfo                            `json:"scan"`
	Summary           Summary                             `json:"summary"`
	Vulnerabilities   []VulnerabilityEntry                `json:"vulnerabilities"`
	Compliance        map[types.Framework]*FrameworkTally `json:"compliance"`
	ComplianceDetails []ComplianceDetail                  `json:"compliance_details"`
}

// Info identifies the report itself.
type Info struct {
	GeneratedAt      time.Time `json:"generated_at"`
	GeneratorVersion string    `json:"generator_version"`
	ScanID           string    `json:"scan_id"`
}

// ScanInfo is the scan record subset included in reports.
type ScanInfo struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	ModelName       string     `json:"model_name"`
	ModelType       string     `json:"model_type"`
	Status          string     `json:"status"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	DurationSeconds float64    `json:"duration_seconds"`
	RiskScore       float64    `json:"risk_score"`
}

// Summary aggregates the scan's vulnerabilities.
type Summary struct {
	TotalVulnerabilities int            `json:"total_vulnerabilities"`
	BySeverity           map[string]int `json:"by_severity"`
	RiskScore            float64        `json:"risk_score"`
}

// VulnerabilityEntry is one vulnerability in the report.
type VulnerabilityEntry struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Severity      string  `json:"severity"`
	ProbeName     string  `json:"probe_name"`
	ProbeCategory string  `json:"probe_category"`
	Evidence      string  `json:"evidence,omitempty"`
	Remediation   string  `json:"remediation,omitempty"`
	CVSSScore     float64 `json:"cvss_score"`
}

// FrameworkTally counts a framework's requirement assessments by status.
type FrameworkTally struct {
	Total        int `json:"total"`
	Compliant    int `json:"compliant"`
	NonCompliant int `json:"non_compliant"`
	Partial      int `json:"partial"`
	NotAssessed  int `json:"not_assessed"`
}

// ComplianceDetail is one requirement assessment in the report.
type ComplianceDetail struct {
	Framework       string `json:"framework"`
	RequirementID   string `json:"requirement_id"`
	RequirementName string `json:"requirement_name"`
	Status          string `json:"status"`
	Evidence        string `json:"evidence,omitempty"`
}

// Generator assembles reports from a scan store and persists them to disk.
type Generator struct {
	store  store.ScanStore
	logger *slog.Logger
	dir    string
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the generator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithDir sets the directory JSON reports are written to.
func WithDir(dir string) Option {
	return func(g *Generator) { g.dir = dir }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a report generator over the store.
func NewGenerator(st store.ScanStore, opts ...Option) *Generator {
	g := &Generator{
		store:  st,
		logger: slog.Default(),
		dir:    "reports",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate assembles the report for a scan. Vulnerabilities are ordered most
// severe first; compliance details keep the store's insertion order.
func (g *Generator) Generate(ctx context.Context, scanID string) (*Report, error) {
	scan, err := g.store.GetScan(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan %s: %w", scanID, err)
	}
	vulns, err := g.store.ListVulnerabilities(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vulnerabilities for scan %s: %w", scanID, err)
	}
	mappings, err := g.store.ListComplianceMappings(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load compliance mappings for scan %s: %w", scanID, err)
	}

	sort.SliceStable(vulns, func(i, j int) bool {
		return vulns[i].Severity.Rank() > vulns[j].Severity.Rank()
	})

	bySeverity := make(map[string]int, len(types.AllSeverities()))
	for _, s := range types.AllSeverities() {
		bySeverity[s.String()] = 0
	}
	entries := make([]VulnerabilityEntry, 0, len(vulns))
	for _, v := range vulns {
		bySeverity[v.Severity.String()]++
		entries = append(entries, VulnerabilityEntry{
			ID:            v.ID,
			Title:         v.Title,
			Description:   v.Description,
			Severity:      v.Severity.String(),
			ProbeName:     v.ProbeName,
			ProbeCategory: v.ProbeCategory,
			Evidence:      v.Evidence,
			Remediation:   v.Remediation,
			CVSSScore:     v.CVSSScore,
		})
	}

	tallies := make(map[types.Framework]*FrameworkTally)
	details := make([]ComplianceDetail, 0, len(mappings))
	for _, m := range mappings {
		tally := tallies[m.Framework]
		if tally == nil {
			tally = &FrameworkTally{}
			tallies[m.Framework] = tally
		}
		tally.Total++
		switch m.Status {
		case types.ComplianceCompliant:
			tally.Compliant++
		case types.ComplianceNonCompliant:
			tally.NonCompliant++
		case types.CompliancePartial:
			tally.Partial++
		default:
			tally.NotAssessed++
		}
		details = append(details, ComplianceDetail{
			Framework:       m.Framework.String(),
			RequirementID:   m.RequirementID,
			RequirementName: m.RequirementName,
			Status:          m.Status.String(),
			Evidence:        m.Evidence,
		})
	}

	return &Report{
		ReportInfo: Info{
			GeneratedAt:      g.now().UTC(),
			GeneratorVersion: generatorVersion,
			ScanID:           scan.ID,
		},
		Scan: ScanInfo{
			ID:              scan.ID,
			Name:            scan.Name,
			Description:     scan.Description,
			ModelName:       scan.ModelName,
			ModelType:       scan.ModelType.String(),
			Status:          scan.Status.String(),
			StartedAt:       scan.StartedAt,
			CompletedAt:     scan.CompletedAt,
			DurationSeconds: scan.DurationSeconds,
			RiskScore:       scan.RiskScore,
		},
		Summary: Summary{
			TotalVulnerabilities: len(vulns),
			BySeverity:           bySeverity,
			RiskScore:            scan.RiskScore,
		},
		Vulnerabilities:   entries,
		Compliance:        tallies,
		ComplianceDetails: details,
	}, nil
}

// SaveJSON assembles the report and writes it to the generator's directory
// as scan_<id>_<name>_<timestamp>.json, returning the file path.
func (g *Generator) SaveJSON(ctx context.Context, scanID string) (string, error) {
	rep, err := g.Generate(ctx, scanID)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report for scan %s: %w", scanID, err)
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", g.dir, err)
	}

	filename := fmt.Sprintf("scan_%s_%s_%s.json",
		rep.Scan.ID,
		sanitizeFilename(rep.Scan.Name),
		g.now().UTC().Format("20060102_150405"))
	path := filepath.Join(g.dir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	g.logger.Info("report written", "scan_id", scanID, "path", path)
	return path, nil
}

// sanitizeFilename replaces characters outside [A-Za-z0-9._-] so scan names
// cannot escape the report directory.
func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
