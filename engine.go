package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/scanner/integration"
	"github.com/zero-day-ai/scanner/metrics"
	"github.com/zero-day-ai/scanner/probe"
	"github.com/zero-day-ai/scanner/types"
)

// defaultScanConcurrency bounds in-flight probes during a scan when the
// caller does not set a limit.
const defaultScanConcurrency = 3

// Engine owns the set of enabled integrations and dispatches probes across
// them. Integrations are consulted in registration order; when several
// expose the same probe name, an explicit caller hint wins, otherwise the
// earliest registered (first-party) integration owns the probe.
//
// Safe for concurrent use.
type Engine struct {
	mu           sync.RWMutex
	logger       *slog.Logger
	integrations []integration.Integration
	byName       map[string]integration.Integration
}

// NewEngine creates an empty engine. Most callers use New, which also
// registers the default integrations.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger,
		byName: make(map[string]integration.Integration),
	}
}

// RegisterIntegration adds an integration at the end of the priority order.
func (e *Engine) RegisterIntegration(i integration.Integration) error {
	if i == nil {
		return NewValidationError("Engine.RegisterIntegration", fmt.Errorf("integration is nil"))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.byName[i.Name()]; exists {
		return NewValidationError("Engine.RegisterIntegration",
			fmt.Errorf("integration %q already registered", i.Name()))
	}
	e.byName[i.Name()] = i
	e.integrations = append(e.integrations, i)
	e.logger.Info("integration registered",
		"integration", i.Name(),
		"probes", len(i.ListProbes("")))
	return nil
}

// Integration returns the named integration.
func (e *Engine) Integration(name string) (integration.Integration, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i, ok := e.byName[name]
	if !ok {
		return nil, NewNotFoundError("Engine.Integration", ErrIntegrationNotFound).
			WithContext(map[string]any{"integration": name})
	}
	return i, nil
}

// IntegrationNames returns the registered integration names in priority
// order.
func (e *Engine) IntegrationNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.integrations))
	for i, in := range e.integrations {
		names[i] = in.Name()
	}
	return names
}

// ListProbes returns the union of probe names across all integrations in
// the category, sorted and deduplicated.
func (e *Engine) ListProbes(category string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]struct{})
	var names []string
	for _, in := range e.integrations {
		for _, name := range in.ListProbes(category) {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ProbeInfo returns the descriptor of a probe from its owning integration.
// The returned error wraps ErrProbeNotFound when no enabled integration
// exposes the probe.
func (e *Engine) ProbeInfo(name string) (probe.Descriptor, error) {
	owner, ok := e.findOwner(name, "")
	if !ok {
		return probe.Descriptor{}, NewNotFoundError("Engine.ProbeInfo", ErrProbeNotFound).
			WithContext(map[string]any{"probe": name})
	}
	desc, ok := owner.ProbeInfo(name)
	if !ok {
		return probe.Descriptor{}, NewNotFoundError("Engine.ProbeInfo", ErrProbeNotFound).
			WithContext(map[string]any{"probe": name, "integration": owner.Name()})
	}
	return desc, nil
}

// RunOption adjusts a single engine dispatch.
type RunOption func(*runSettings)

type runSettings struct {
	use     string
	timeout time.Duration
}

// WithIntegrationHint routes the probe to the named integration when it
// exposes the probe, overriding the registration priority order.
func WithIntegrationHint(name string) RunOption {
	return func(s *runSettings) { s.use = name }
}

// WithTimeout overrides the integration's configured probe timeout.
func WithTimeout(d time.Duration) RunOption {
	return func(s *runSettings) { s.timeout = d }
}

// RunProbe dispatches one probe to its owning integration. An unknown probe
// yields a structured error record, not a Go error, matching the
// integration contract.
func (e *Engine) RunProbe(ctx context.Context, probeName string, model integration.Model, opts ...RunOption) *types.ProbeResult {
	var rs runSettings
	for _, opt := range opts {
		opt(&rs)
	}

	owner, ok := e.findOwner(probeName, rs.use)
	if !ok {
		return &types.ProbeResult{
			ProbeName: probeName,
			Status:    types.ProbeStatusError,
			Error:     fmt.Sprintf("probe %q not found in any integration", probeName),
		}
	}
	e.logger.Debug("dispatching probe",
		"probe", probeName, "integration", owner.Name())
	return owner.RunProbe(ctx, probeName, model, rs.timeout)
}

// scanTarget pairs a probe with its owning integration for scan fan-out.
type scanTarget struct {
	probeName string
	owner     integration.Integration
}

// RunScan enumerates the probes of the selected scanner type filtered by
// category and executes them with bounded concurrency. Results are in probe
// enumeration order. Individual failures are structured records; RunScan
// itself fails only when the scanner type selects no integration.
func (e *Engine) RunScan(ctx context.Context, scannerType types.ScannerType, category string, model integration.Model, maxConcurrent int) ([]*types.ProbeResult, error) {
	targets, err := e.scanTargets(scannerType, category)
	if err != nil {
		return nil, err
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultScanConcurrency
	}

	e.logger.Info("scan started",
		"scanner_type", scannerType,
		"category", category,
		"probes", len(targets),
		"max_concurrent", maxConcurrent)

	results := make([]*types.ProbeResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			results[i] = t.owner.RunProbe(gctx, t.probeName, model, 0)
			return nil
		})
	}
	g.Wait()
	return results, nil
}

// ScanProbeNames enumerates the probe names a scan of the given scanner type
// and category would execute, in enumeration order.
func (e *Engine) ScanProbeNames(scannerType types.ScannerType, category string) ([]string, error) {
	targets, err := e.scanTargets(scannerType, category)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.probeName
	}
	return names, nil
}

// scanTargets resolves the probe list for a scanner type. Duplicated probe
// names resolve to the earliest registered owner.
func (e *Engine) scanTargets(scannerType types.ScannerType, category string) ([]scanTarget, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var selected []integration.Integration
	if scannerType == "" || scannerType == types.ScannerAll {
		selected = e.integrations
	} else {
		in, ok := e.byName[scannerType.String()]
		if !ok {
			return nil, NewNotFoundError("Engine.RunScan", ErrIntegrationNotFound).
				WithContext(map[string]any{"scanner_type": scannerType.String()})
		}
		selected = []integration.Integration{in}
	}

	seen := make(map[string]struct{})
	var targets []scanTarget
	for _, in := range selected {
		for _, name := range in.ListProbes(category) {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			targets = append(targets, scanTarget{probeName: name, owner: in})
		}
	}
	return targets, nil
}

// findOwner resolves a probe to its owning integration, honoring the
// caller's hint first.
func (e *Engine) findOwner(probeName, hint string) (integration.Integration, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if hint != "" {
		if in, ok := e.byName[hint]; ok {
			if _, owns := in.ProbeInfo(probeName); owns {
				return in, true
			}
		}
	}
	for _, in := range e.integrations {
		if _, owns := in.ProbeInfo(probeName); owns {
			return in, true
		}
	}
	return nil, false
}

// Health reports the health of every registered integration.
func (e *Engine) Health() map[string]types.HealthStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]types.HealthStatus, len(e.integrations))
	for _, in := range e.integrations {
		out[in.Name()] = in.Health()
	}
	return out
}

// MetricsSnapshots returns a metrics snapshot per integration.
func (e *Engine) MetricsSnapshots() map[string]metrics.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]metrics.Snapshot, len(e.integrations))
	for _, in := range e.integrations {
		out[in.Name()] = in.Metrics()
	}
	return out
}

// ResetCircuitBreakers forces every integration's breaker back to closed.
func (e *Engine) ResetCircuitBreakers() {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, in := range e.integrations {
		in.ResetCircuitBreaker()
	}
}
