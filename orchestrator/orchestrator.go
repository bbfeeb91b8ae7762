// Package orchestrator drives the scan lifecycle: it creates scan records,
// fans probes out through the engine, converts failed probes into
// vulnerability records, computes the aggregate risk score, and finalizes
// the scan with compliance mappings.
//
// The orchestrator is the single writer of a scan's record while the scan
// runs. Cancellation is cooperative: another actor marks the scan cancelled
// and the orchestrator observes it by re-reading the record between probe
// batches, returning without touching the status.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	scanner "github.com/zero-day-ai/scanner"
	"github.com/zero-day-ai/scanner/compliance"
	"github.com/zero-day-ai/scanner/integration"
	"github.com/zero-day-ai/scanner/store"
	"github.com/zero-day-ai/scanner/types"
)

// Failure discriminators written to results.error_type.
const (
	errTypeModelInit     = "model_initialization"
	errTypeScanExecution = "scan_execution"
)

// defaultMaxConcurrent bounds in-flight probes per scan.
const defaultMaxConcurrent = 3

// ScanRequest is the input for creating a scan.
type ScanRequest struct {
	Name        string
	Description string
	ModelName   string
	ModelType   types.ModelType
	ScannerType types.ScannerType

	// ModelConfig carries provider options. Credential-bearing keys are
	// stripped before persistence; pass API keys to ExecuteScan instead.
	ModelConfig map[string]any

	CreatedBy string
}

// Orchestrator executes scans against the engine and persists their state.
type Orchestrator struct {
	engine     *scanner.Engine
	store      store.ScanStore
	compliance *compliance.Engine
	logger     *slog.Logger

	maxConcurrent int
	now           func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMaxConcurrent bounds in-flight probes per scan.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) { o.maxConcurrent = n }
}

// WithRandSeed seeds the CVSS sampler, making scores deterministic.
func WithRandSeed(seed int64) Option {
	return func(o *Orchestrator) { o.rng = rand.New(rand.NewSource(seed)) }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator over the engine and store.
func New(engine *scanner.Engine, st store.ScanStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:        engine,
		store:         st,
		logger:        slog.Default(),
		maxConcurrent: defaultMaxConcurrent,
		now:           time.Now,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.compliance = compliance.NewEngine(st, compliance.WithLogger(o.logger))
	return o
}

// CreateScan validates the request and persists a pending scan. Secret keys
// in the model config never reach the store.
func (o *Orchestrator) CreateScan(ctx context.Context, req ScanRequest) (*types.Scan, error) {
	scan := types.NewScan(req.Name, req.ModelName, req.ModelType, req.ScannerType)
	scan.Description = req.Description
	scan.ModelConfig = req.ModelConfig
	scan.CreatedBy = req.CreatedBy

	if err := scan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan request: %w", err)
	}
	if err := o.store.CreateScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}

	o.logger.Info("scan created",
		"scan_id", scan.ID,
		"model", scan.ModelName,
		"scanner_type", scan.ScannerType)
	return o.store.GetScan(ctx, scan.ID)
}

// ExecuteScan runs a pending scan to a terminal state. Execution failures
// are recorded on the scan (status=failed with results.error) and do not
// propagate; the returned error covers only scans that cannot be loaded or
// started.
//
// apiKey is forwarded to probe execution in memory only; it is never
// written to the scan record.
func (o *Orchestrator) ExecuteScan(ctx context.Context, scanID, apiKey string) error {
	started := o.now().UTC()
	scan, err := o.store.UpdateScanStatus(ctx, scanID, types.ScanStatusRunning, func(s *types.Scan) {
		s.StartedAt = &started
		s.Progress = 0
	})
	if err != nil {
		// A scan cancelled while pending is not an execution error.
		if isInvalidTransition(err) {
			o.logger.Info("scan not startable, skipping", "scan_id", scanID, "error", err)
			return nil
		}
		return fmt.Errorf("failed to start scan %s: %w", scanID, err)
	}

	o.logger.Info("scan started",
		"scan_id", scanID,
		"scanner_type", scan.ScannerType,
		"model", scan.ModelName)

	vulnCount, riskScore, summary, execErr := o.runProbes(ctx, scan, apiKey)
	if execErr != nil {
		o.markFailed(ctx, scanID, execErr)
		return nil
	}

	// Re-read before finalizing: a cancel during the last batch wins.
	current, err := o.store.GetScan(ctx, scanID)
	if err != nil {
		o.markFailed(ctx, scanID, newScanError(errTypeScanExecution, err))
		return nil
	}
	if current.Status == types.ScanStatusCancelled {
		o.logger.Info("scan cancelled, skipping finalization", "scan_id", scanID)
		return nil
	}

	completed := o.now().UTC()
	_, err = o.store.UpdateScanStatus(ctx, scanID, types.ScanStatusCompleted, func(s *types.Scan) {
		s.CompletedAt = &completed
		if s.StartedAt != nil {
			s.DurationSeconds = completed.Sub(*s.StartedAt).Seconds()
		}
		s.Progress = 100
		s.VulnerabilityCount = vulnCount
		s.RiskScore = riskScore
		s.Results = summary
	})
	if err != nil {
		if !isInvalidTransition(err) {
			o.markFailed(ctx, scanID, newScanError(errTypeScanExecution, err))
		}
		return nil
	}

	if err := o.compliance.MapScan(ctx, scanID); err != nil {
		o.logger.Error("compliance mapping failed", "scan_id", scanID, "error", err)
	}

	o.logger.Info("scan completed",
		"scan_id", scanID,
		"vulnerabilities", vulnCount,
		"risk_score", riskScore)
	return nil
}

// CancelScan moves a pending or running scan to cancelled. In-flight probes
// are allowed to complete; the orchestrator observes the new status between
// batches.
func (o *Orchestrator) CancelScan(ctx context.Context, scanID string) (*types.Scan, error) {
	completed := o.now().UTC()
	scan, err := o.store.UpdateScanStatus(ctx, scanID, types.ScanStatusCancelled, func(s *types.Scan) {
		s.CompletedAt = &completed
		s.Progress = 100
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel scan %s: %w", scanID, err)
	}
	o.logger.Info("scan cancelled", "scan_id", scanID)
	return scan, nil
}

// scanError pairs a failure with its results.error_type discriminator.
type scanError struct {
	errType string
	err     error
}

func (e *scanError) Error() string { return e.err.Error() }

func newScanError(errType string, err error) *scanError {
	return &scanError{errType: errType, err: err}
}

// runProbes executes the scan's probe set in bounded batches, persisting
// vulnerabilities and progress as results arrive. It returns the final
// vulnerability count, risk score, and results summary.
func (o *Orchestrator) runProbes(ctx context.Context, scan *types.Scan, apiKey string) (int, float64, map[string]any, *scanError) {
	probeNames, err := o.engine.ScanProbeNames(scan.ScannerType, "")
	if err != nil {
		return 0, 0, nil, newScanError(errTypeModelInit, err)
	}

	model := integration.Model{
		Name:   scan.ModelName,
		Type:   scan.ModelType,
		Config: executionConfig(scan.ModelConfig, apiKey),
	}

	var runOpts []scanner.RunOption
	if scan.ScannerType != "" && scan.ScannerType != types.ScannerAll {
		runOpts = append(runOpts, scanner.WithIntegrationHint(scan.ScannerType.String()))
	}

	maxConcurrent := o.maxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	var vulns []*types.Vulnerability
	total := len(probeNames)
	done := 0

	for start := 0; start < total; start += maxConcurrent {
		// Cancellation is observed between batches; in-flight probes run to
		// completion.
		current, err := o.store.GetScan(ctx, scan.ID)
		if err != nil {
			return 0, 0, nil, newScanError(errTypeScanExecution, err)
		}
		if current.Status == types.ScanStatusCancelled {
			o.logger.Info("scan cancelled mid-execution",
				"scan_id", scan.ID, "completed_probes", done)
			return 0, 0, nil, nil
		}

		end := start + maxConcurrent
		if end > total {
			end = total
		}
		batch := probeNames[start:end]
		results := make([]*types.ProbeResult, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrent)
		for i, name := range batch {
			i, name := i, name
			g.Go(func() error {
				results[i] = o.engine.RunProbe(gctx, name, model, runOpts...)
				return nil
			})
		}
		g.Wait()

		for _, res := range results {
			if vuln := o.vulnerabilityFromResult(scan, res); vuln != nil {
				if err := o.store.AddVulnerability(ctx, vuln); err != nil {
					return 0, 0, nil, newScanError(errTypeScanExecution, err)
				}
				vulns = append(vulns, vuln)
			}
			done++
		}
		progress := float64(done) / float64(total) * 100
		if err := o.store.UpdateScanProgress(ctx, scan.ID, progress); err != nil {
			return 0, 0, nil, newScanError(errTypeScanExecution, err)
		}
	}

	riskScore := riskScoreFor(vulns)
	summary := map[string]any{
		"total_probes":          total,
		"vulnerabilities_found": len(vulns),
		"risk_score":            riskScore,
		"summary":               severitySummary(vulns),
	}
	return len(vulns), riskScore, summary, nil
}

// markFailed writes a terminal failed state with the error recorded in the
// results. Scans already in a terminal state are left alone.
func (o *Orchestrator) markFailed(ctx context.Context, scanID string, execErr *scanError) {
	completed := o.now().UTC()
	_, err := o.store.UpdateScanStatus(ctx, scanID, types.ScanStatusFailed, func(s *types.Scan) {
		s.CompletedAt = &completed
		if s.StartedAt != nil {
			s.DurationSeconds = completed.Sub(*s.StartedAt).Seconds()
		}
		s.Progress = 100
		s.Results = map[string]any{
			"error":      execErr.Error(),
			"error_type": execErr.errType,
		}
	})
	if err != nil && !isInvalidTransition(err) {
		o.logger.Error("failed to record scan failure", "scan_id", scanID, "error", err)
	}
	o.logger.Error("scan failed",
		"scan_id", scanID,
		"error_type", execErr.errType,
		"error", execErr.Error())
}

// vulnerabilityFromResult converts a failed probe into a vulnerability
// record, or nil when the probe passed or did not complete.
func (o *Orchestrator) vulnerabilityFromResult(scan *types.Scan, res *types.ProbeResult) *types.Vulnerability {
	if res == nil || res.Status != types.ProbeStatusCompleted || res.Result == nil {
		return nil
	}
	result := res.Result
	if result.Passed {
		return nil
	}

	severity := types.SeverityOrDefault(result.RiskLevel.String(), types.SeverityMedium)
	category := result.ProbeCategory
	var probeDescription string
	if desc, err := o.engine.ProbeInfo(res.ProbeName); err == nil {
		if category == "" {
			category = desc.Category
		}
		probeDescription = desc.Description
	}
	if category == "" {
		category = "unknown"
	}

	vuln := types.NewVulnerability(scan.ID, fmt.Sprintf("%s - %s", category, humanizeProbeName(res.ProbeName)), severity)
	vuln.ProbeName = res.ProbeName
	vuln.ProbeCategory = category
	vuln.Description = descriptionFor(res.ProbeName, probeDescription)
	vuln.Evidence = evidenceFor(result)
	vuln.Remediation = remediationFor(res.ProbeName, result.Remediation)
	vuln.CVSSScore = o.cvssFor(severity)
	vuln.ExtraData = map[string]any{
		"probe_version":  "1.0",
		"model":          scan.ModelName,
		"scanner":        res.Scanner,
		"execution_time": res.ExecutionTime,
	}
	return vuln
}

// executionConfig merges the in-memory API key into a copy of the model
// config for the duration of the scan.
func executionConfig(config map[string]any, apiKey string) map[string]any {
	merged := make(map[string]any, len(config)+1)
	for k, v := range config {
		merged[k] = v
	}
	if apiKey != "" {
		if _, set := merged["api_key"]; !set {
			merged["api_key"] = apiKey
		}
	}
	return merged
}

// riskScoreFor computes Σ(severity weight) / (N × 10) × 100, rounded to one
// decimal.
func riskScoreFor(vulns []*types.Vulnerability) float64 {
	if len(vulns) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range vulns {
		total += v.Severity.Weight()
	}
	maxPossible := float64(len(vulns) * 10)
	return math.Round(total/maxPossible*1000) / 10
}

// severitySummary counts vulnerabilities per severity level.
func severitySummary(vulns []*types.Vulnerability) map[string]int {
	summary := make(map[string]int, len(types.AllSeverities()))
	for _, s := range types.AllSeverities() {
		summary[s.String()] = 0
	}
	for _, v := range vulns {
		summary[v.Severity.String()]++
	}
	return summary
}

// cvssFor samples a CVSS score uniformly within the severity's band,
// rounded to one decimal.
func (o *Orchestrator) cvssFor(severity types.Severity) float64 {
	min, max := severity.CVSSRange()
	if max <= min {
		return min
	}
	o.rngMu.Lock()
	score := min + o.rng.Float64()*(max-min)
	o.rngMu.Unlock()
	return math.Round(score*10) / 10
}

// evidenceFor serializes the probe's findings, falling back to the whole
// result when there are none.
func evidenceFor(result *types.TestResult) string {
	if len(result.Findings) > 0 {
		if data, err := json.Marshal(result.Findings); err == nil {
			return string(data)
		}
	}
	if data, err := json.Marshal(result); err == nil {
		return string(data)
	}
	return ""
}

// humanizeProbeName turns "llm01_prompt_injection" into "Llm01 Prompt
// Injection".
func humanizeProbeName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func isInvalidTransition(err error) bool {
	return errors.Is(err, store.ErrInvalidTransition)
}
