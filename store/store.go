// Package store persists scans and their owned records.
//
// A ScanStore holds three entity kinds: Scan, Vulnerability, and
// ComplianceMapping. Vulnerabilities and compliance mappings belong to
// exactly one scan and are deleted with it. Scan status changes go through
// UpdateScanStatus, an atomic read-modify-write that enforces the lifecycle
// state machine.
//
// Secret hygiene: both implementations strip credential-bearing keys from
// the scan's model config before writing, so persisted records never carry
// API keys or tokens.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/zero-day-ai/scanner/types"
)

// Store sentinel errors.
var (
	// ErrNotFound indicates the requested scan does not exist.
	ErrNotFound = errors.New("scan not found")

	// ErrAlreadyExists indicates a create collided with an existing scan ID.
	ErrAlreadyExists = errors.New("scan already exists")

	// ErrInvalidTransition indicates a status change the scan lifecycle does
	// not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Filter narrows ListScans results. Zero-valued fields match everything.
type Filter struct {
	// Status matches scans in the given lifecycle state.
	Status types.ScanStatus

	// ModelName matches scans targeting the named model.
	ModelName string

	// ScannerType matches scans of the given scanner type.
	ScannerType types.ScannerType

	// Limit caps the number of returned scans; 0 means no cap.
	Limit int
}

// matches reports whether a scan satisfies the filter.
func (f Filter) matches(s *types.Scan) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.ModelName != "" && s.ModelName != f.ModelName {
		return false
	}
	if f.ScannerType != "" && s.ScannerType != f.ScannerType {
		return false
	}
	return true
}

// ScanStore is the persistence contract for scans and their owned records.
//
// Implementations must be safe for concurrent use. Returned entities are
// copies: mutating them does not affect stored state.
type ScanStore interface {
	// CreateScan persists a new scan. The stored model config is sanitized;
	// the caller's scan is not mutated. Fails with ErrAlreadyExists on ID
	// collision.
	CreateScan(ctx context.Context, scan *types.Scan) error

	// GetScan returns the scan by ID, or ErrNotFound.
	GetScan(ctx context.Context, id string) (*types.Scan, error)

	// ListScans returns scans matching the filter, newest first.
	ListScans(ctx context.Context, filter Filter) ([]*types.Scan, error)

	// UpdateScan overwrites the stored scan. The stored model config is
	// sanitized. Fails with ErrNotFound for unknown IDs.
	UpdateScan(ctx context.Context, scan *types.Scan) error

	// UpdateScanProgress writes the scan's progress percentage if the scan
	// is still running. Writes against scans in any other state are skipped
	// without error, so a progress update can never clobber a concurrent
	// cancellation.
	UpdateScanProgress(ctx context.Context, id string, progress float64) error

	// UpdateScanStatus atomically transitions the scan to the given status,
	// applying mutate (when non-nil) to the same record under the store's
	// write lock or transaction. It fails with ErrInvalidTransition when the
	// lifecycle forbids the move, leaving the record untouched. The updated
	// scan is returned.
	UpdateScanStatus(ctx context.Context, id string, status types.ScanStatus, mutate func(*types.Scan)) (*types.Scan, error)

	// DeleteScan removes the scan and all vulnerabilities and compliance
	// mappings it owns.
	DeleteScan(ctx context.Context, id string) error

	// AddVulnerability appends a finding to its scan. Fails with ErrNotFound
	// when the scan does not exist.
	AddVulnerability(ctx context.Context, vuln *types.Vulnerability) error

	// ListVulnerabilities returns the scan's findings in insertion order.
	ListVulnerabilities(ctx context.Context, scanID string) ([]*types.Vulnerability, error)

	// AddComplianceMapping appends a requirement assessment to its scan.
	AddComplianceMapping(ctx context.Context, mapping *types.ComplianceMapping) error

	// ListComplianceMappings returns the scan's assessments in insertion
	// order.
	ListComplianceMappings(ctx context.Context, scanID string) ([]*types.ComplianceMapping, error)

	// Close releases store resources.
	Close() error
}

// sanitizedScan returns a copy of the scan safe to persist: secret model
// config keys removed, UpdatedAt refreshed.
func sanitizedScan(scan *types.Scan, now time.Time) *types.Scan {
	clean := *scan
	clean.ModelConfig = types.SanitizeModelConfig(scan.ModelConfig)
	clean.UpdatedAt = now.UTC()
	return &clean
}

// cloneScan deep-copies a scan so callers cannot mutate stored state.
func cloneScan(s *types.Scan) *types.Scan {
	c := *s
	if s.ModelConfig != nil {
		c.ModelConfig = make(map[string]any, len(s.ModelConfig))
		for k, v := range s.ModelConfig {
			c.ModelConfig[k] = v
		}
	}
	if s.Results != nil {
		c.Results = make(map[string]any, len(s.Results))
		for k, v := range s.Results {
			c.Results[k] = v
		}
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneVulnerability(v *types.Vulnerability) *types.Vulnerability {
	c := *v
	if v.ExtraData != nil {
		c.ExtraData = make(map[string]any, len(v.ExtraData))
		for k, val := range v.ExtraData {
			c.ExtraData[k] = val
		}
	}
	return &c
}

func cloneMapping(m *types.ComplianceMapping) *types.ComplianceMapping {
	c := *m
	if m.VulnerabilityIDs != nil {
		c.VulnerabilityIDs = append([]string(nil), m.VulnerabilityIDs...)
	}
	return &c
}
