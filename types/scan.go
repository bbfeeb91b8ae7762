package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scan is the user-visible unit of work: a request to run a chosen set of
// probes against one target model, plus everything learned while running it.
type Scan struct {
	// ID uniquely identifies the scan.
	ID string `json:"id"`

	// Name is a human-readable label for the scan.
	Name string `json:"name"`

	// Description optionally explains the purpose of the scan.
	Description string `json:"description,omitempty"`

	// ModelName is the target model identifier (e.g. "gpt-4", "claude-3-opus").
	ModelName string `json:"model_name"`

	// ModelType is the provider family of the target model.
	ModelType ModelType `json:"model_type"`

	// ModelConfig carries provider options for the target model. Secret
	// values are stripped before the record is persisted; see
	// SanitizeModelConfig.
	ModelConfig map[string]any `json:"model_config,omitempty"`

	// ScannerType selects which probe source(s) the scan runs.
	ScannerType ScannerType `json:"scanner_type"`

	// Status is the lifecycle state of the scan.
	Status ScanStatus `json:"status"`

	// Progress is the completion percentage in [0, 100]. It reaches 100
	// exactly when the scan enters a terminal state.
	Progress float64 `json:"progress"`

	// StartedAt is set when the orchestrator moves the scan to running.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is set when the scan enters a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// DurationSeconds is CompletedAt minus StartedAt for finished scans.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`

	// VulnerabilityCount is the number of Vulnerability records owned by
	// this scan.
	VulnerabilityCount int `json:"vulnerability_count"`

	// RiskScore is the aggregate risk of the scan in [0, 100].
	RiskScore float64 `json:"risk_score"`

	// Results is an opaque summary written at finalization (by-severity
	// counts on success, error details on failure).
	Results map[string]any `json:"results,omitempty"`

	// CreatedBy identifies the requesting principal.
	CreatedBy string `json:"created_by,omitempty"`

	// CreatedAt and UpdatedAt are record timestamps.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewScan creates a pending scan with a generated ID and sanitized model
// config.
func NewScan(name, modelName string, modelType ModelType, scannerType ScannerType) *Scan {
	now := time.Now().UTC()
	return &Scan{
		ID:          uuid.New().String(),
		Name:        name,
		ModelName:   modelName,
		ModelType:   modelType,
		ScannerType: scannerType,
		Status:      ScanStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks that the scan's required fields and enumerations are set.
func (s *Scan) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("scan ID is required")
	}
	if s.Name == "" {
		return fmt.Errorf("scan name is required")
	}
	if s.ModelName == "" {
		return fmt.Errorf("scan model name is required")
	}
	if !s.ModelType.IsValid() {
		return fmt.Errorf("invalid model type: %q", s.ModelType)
	}
	if !s.ScannerType.IsValid() {
		return fmt.Errorf("invalid scanner type: %q", s.ScannerType)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("invalid scan status: %q", s.Status)
	}
	if s.Progress < 0 || s.Progress > 100 {
		return fmt.Errorf("scan progress must be in [0, 100], got %v", s.Progress)
	}
	return nil
}

// secretKeyMarkers identify model config keys whose values must never be
// persisted or hashed. Matching is case-insensitive on substrings.
var secretKeyMarkers = []string{
	"api_key",
	"access_token",
	"secret",
	"password",
	"credential",
}

// IsSecretKey reports whether a model config key names a secret value.
func IsSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

// SanitizeModelConfig returns a copy of the config with all secret-valued
// keys removed. Call it before persisting a scan and before hashing a
// config into a cache key.
func SanitizeModelConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}
	clean := make(map[string]any, len(config))
	for k, v := range config {
		if IsSecretKey(k) {
			continue
		}
		clean[k] = v
	}
	return clean
}

// Vulnerability is one finding produced by one probe execution. Records are
// written during a scan and never mutated afterward.
type Vulnerability struct {
	// ID uniquely identifies the vulnerability.
	ID string `json:"id"`

	// ScanID references the owning scan.
	ScanID string `json:"scan_id"`

	// Title is a short synthesized headline ("<Category> - <Probe> Detected").
	Title string `json:"title"`

	// Description explains the class of defect found.
	Description string `json:"description,omitempty"`

	// Severity is the assessed severity level.
	Severity Severity `json:"severity"`

	// ProbeName is the probe that produced the finding.
	ProbeName string `json:"probe_name"`

	// ProbeCategory is the probe's category tag, used by compliance mapping.
	ProbeCategory string `json:"probe_category,omitempty"`

	// Evidence is the supporting output captured from the target model.
	Evidence string `json:"evidence,omitempty"`

	// Remediation is guidance for addressing the finding.
	Remediation string `json:"remediation,omitempty"`

	// CVSSScore lies within the CVSS band of the severity.
	CVSSScore float64 `json:"cvss_score"`

	// ExtraData carries probe-specific structured detail.
	ExtraData map[string]any `json:"extra_data,omitempty"`

	// CreatedAt is the record timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// NewVulnerability creates a vulnerability with a generated ID for the given
// scan.
func NewVulnerability(scanID, title string, severity Severity) *Vulnerability {
	return &Vulnerability{
		ID:        uuid.New().String(),
		ScanID:    scanID,
		Title:     title,
		Severity:  severity,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the vulnerability's required fields and severity band.
func (v *Vulnerability) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vulnerability ID is required")
	}
	if v.ScanID == "" {
		return fmt.Errorf("vulnerability scan ID is required")
	}
	if v.Title == "" {
		return fmt.Errorf("vulnerability title is required")
	}
	if !v.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %q", v.Severity)
	}
	min, max := v.Severity.CVSSRange()
	if v.CVSSScore < min || v.CVSSScore > max {
		return fmt.Errorf("cvss score %v outside %s band [%v, %v]", v.CVSSScore, v.Severity, min, max)
	}
	return nil
}

// ComplianceMapping is one (scan, framework, requirement) assessment. For a
// given scan at most one mapping exists per (framework, requirement_id).
type ComplianceMapping struct {
	// ID uniquely identifies the mapping.
	ID string `json:"id"`

	// ScanID references the assessed scan.
	ScanID string `json:"scan_id"`

	// Framework is the compliance framework assessed.
	Framework Framework `json:"framework"`

	// RequirementID is the framework's requirement identifier (e.g. "ART-10").
	RequirementID string `json:"requirement_id"`

	// RequirementName is the human-readable requirement title.
	RequirementName string `json:"requirement_name"`

	// Status is the resolved compliance judgment.
	Status ComplianceStatus `json:"compliance_status"`

	// Evidence summarizes the basis for the judgment.
	Evidence string `json:"evidence,omitempty"`

	// VulnerabilityIDs are the relevant vulnerabilities, all owned by ScanID.
	VulnerabilityIDs []string `json:"vulnerability_ids,omitempty"`

	// CreatedAt is the record timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// NewComplianceMapping creates a mapping with a generated ID.
func NewComplianceMapping(scanID string, framework Framework, requirementID, requirementName string) *ComplianceMapping {
	return &ComplianceMapping{
		ID:              uuid.New().String(),
		ScanID:          scanID,
		Framework:       framework,
		RequirementID:   requirementID,
		RequirementName: requirementName,
		Status:          ComplianceNotAssessed,
		CreatedAt:       time.Now().UTC(),
	}
}

// Validate checks the mapping's required fields and enumerations.
func (m *ComplianceMapping) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("mapping ID is required")
	}
	if m.ScanID == "" {
		return fmt.Errorf("mapping scan ID is required")
	}
	if !m.Framework.IsValid() {
		return fmt.Errorf("invalid framework: %q", m.Framework)
	}
	if m.RequirementID == "" {
		return fmt.Errorf("mapping requirement ID is required")
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("invalid compliance status: %q", m.Status)
	}
	return nil
}
