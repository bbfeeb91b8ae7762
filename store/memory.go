package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zero-day-ai/scanner/types"
)

// MemoryStore is an in-memory ScanStore for tests and single-process use.
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	scans    map[string]*types.Scan
	vulns    map[string][]*types.Vulnerability
	mappings map[string][]*types.ComplianceMapping
	now      func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the wall clock, pinning UpdatedAt in tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		scans:    make(map[string]*types.Scan),
		vulns:    make(map[string][]*types.Vulnerability),
		mappings: make(map[string][]*types.ComplianceMapping),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ ScanStore = (*MemoryStore)(nil)

// CreateScan persists a new scan with secrets stripped.
func (m *MemoryStore) CreateScan(ctx context.Context, scan *types.Scan) error {
	if scan == nil || scan.ID == "" {
		return fmt.Errorf("scan ID is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.scans[scan.ID]; exists {
		return fmt.Errorf("scan %s: %w", scan.ID, ErrAlreadyExists)
	}
	m.scans[scan.ID] = sanitizedScan(scan, m.now())
	return nil
}

// GetScan returns a copy of the scan.
func (m *MemoryStore) GetScan(ctx context.Context, id string) (*types.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scans[id]
	if !ok {
		return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	return cloneScan(s), nil
}

// ListScans returns matching scans, newest first.
func (m *MemoryStore) ListScans(ctx context.Context, filter Filter) ([]*types.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Scan
	for _, s := range m.scans {
		if filter.matches(s) {
			out = append(out, cloneScan(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateScan overwrites the stored scan with secrets stripped.
func (m *MemoryStore) UpdateScan(ctx context.Context, scan *types.Scan) error {
	if scan == nil || scan.ID == "" {
		return fmt.Errorf("scan ID is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scans[scan.ID]; !ok {
		return fmt.Errorf("scan %s: %w", scan.ID, ErrNotFound)
	}
	m.scans[scan.ID] = sanitizedScan(scan, m.now())
	return nil
}

// UpdateScanProgress writes progress for a running scan; other states are
// left untouched.
func (m *MemoryStore) UpdateScanProgress(ctx context.Context, id string, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.scans[id]
	if !ok {
		return fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if s.Status != types.ScanStatusRunning {
		return nil
	}
	updated := cloneScan(s)
	updated.Progress = progress
	m.scans[id] = sanitizedScan(updated, m.now())
	return nil
}

// UpdateScanStatus atomically transitions the scan under the write lock.
func (m *MemoryStore) UpdateScanStatus(ctx context.Context, id string, status types.ScanStatus, mutate func(*types.Scan)) (*types.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.scans[id]
	if !ok {
		return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if !s.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("scan %s: %s -> %s: %w", id, s.Status, status, ErrInvalidTransition)
	}

	updated := cloneScan(s)
	if mutate != nil {
		mutate(updated)
	}
	// mutate cannot override the transition target.
	updated.Status = status
	m.scans[id] = sanitizedScan(updated, m.now())
	return cloneScan(m.scans[id]), nil
}

// DeleteScan removes the scan and everything it owns.
func (m *MemoryStore) DeleteScan(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scans[id]; !ok {
		return fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	delete(m.scans, id)
	delete(m.vulns, id)
	delete(m.mappings, id)
	return nil
}

// AddVulnerability appends a finding to its scan.
func (m *MemoryStore) AddVulnerability(ctx context.Context, vuln *types.Vulnerability) error {
	if vuln == nil || vuln.ScanID == "" {
		return fmt.Errorf("vulnerability scan ID is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scans[vuln.ScanID]; !ok {
		return fmt.Errorf("scan %s: %w", vuln.ScanID, ErrNotFound)
	}
	m.vulns[vuln.ScanID] = append(m.vulns[vuln.ScanID], cloneVulnerability(vuln))
	return nil
}

// ListVulnerabilities returns the scan's findings in insertion order.
func (m *MemoryStore) ListVulnerabilities(ctx context.Context, scanID string) ([]*types.Vulnerability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.scans[scanID]; !ok {
		return nil, fmt.Errorf("scan %s: %w", scanID, ErrNotFound)
	}
	out := make([]*types.Vulnerability, 0, len(m.vulns[scanID]))
	for _, v := range m.vulns[scanID] {
		out = append(out, cloneVulnerability(v))
	}
	return out, nil
}

// AddComplianceMapping appends an assessment to its scan.
func (m *MemoryStore) AddComplianceMapping(ctx context.Context, mapping *types.ComplianceMapping) error {
	if mapping == nil || mapping.ScanID == "" {
		return fmt.Errorf("mapping scan ID is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scans[mapping.ScanID]; !ok {
		return fmt.Errorf("scan %s: %w", mapping.ScanID, ErrNotFound)
	}
	m.mappings[mapping.ScanID] = append(m.mappings[mapping.ScanID], cloneMapping(mapping))
	return nil
}

// ListComplianceMappings returns the scan's assessments in insertion order.
func (m *MemoryStore) ListComplianceMappings(ctx context.Context, scanID string) ([]*types.ComplianceMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.scans[scanID]; !ok {
		return nil, fmt.Errorf("scan %s: %w", scanID, ErrNotFound)
	}
	out := make([]*types.ComplianceMapping, 0, len(m.mappings[scanID]))
	for _, mp := range m.mappings[scanID] {
		out = append(out, cloneMapping(mp))
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
