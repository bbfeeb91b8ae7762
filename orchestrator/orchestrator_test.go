package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scanner "github.com/zero-day-ai/scanner"
	"github.com/zero-day-ai/scanner/integration"
	"github.com/zero-day-ai/scanner/metrics"
	"github.com/zero-day-ai/scanner/probe"
	"github.com/zero-day-ai/scanner/store"
	"github.com/zero-day-ai/scanner/types"
)

// probeOutcome scripts one probe's behavior in the stub integration.
type probeOutcome struct {
	desc   probe.Descriptor
	result *types.TestResult
	status string
	after  func()
}

// stubIntegration returns scripted results without the real pipeline.
type stubIntegration struct {
	name  string
	order []string
	byName map[string]*probeOutcome

	mu       sync.Mutex
	executed []string
}

func newStubIntegration(name string, outcomes ...*probeOutcome) *stubIntegration {
	s := &stubIntegration{name: name, byName: make(map[string]*probeOutcome)}
	for _, o := range outcomes {
		s.order = append(s.order, o.desc.Name)
		s.byName[o.desc.Name] = o
	}
	return s
}

func (s *stubIntegration) Name() string { return s.name }

func (s *stubIntegration) ListProbes(category string) []string {
	var out []string
	for _, name := range s.order {
		if category != "" && category != "all" && s.byName[name].desc.Category != category {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (s *stubIntegration) ProbeInfo(name string) (probe.Descriptor, bool) {
	o, ok := s.byName[name]
	if !ok {
		return probe.Descriptor{}, false
	}
	return o.desc, true
}

func (s *stubIntegration) RunProbe(ctx context.Context, probeName string, model integration.Model, timeout time.Duration) *types.ProbeResult {
	s.mu.Lock()
	s.executed = append(s.executed, probeName)
	s.mu.Unlock()

	o, ok := s.byName[probeName]
	if !ok {
		return &types.ProbeResult{ProbeName: probeName, Scanner: s.name, Status: types.ProbeStatusError, Error: "probe not found"}
	}
	if o.after != nil {
		defer o.after()
	}
	status := o.status
	if status == "" {
		status = types.ProbeStatusCompleted
	}
	return &types.ProbeResult{
		ProbeName:     probeName,
		Scanner:       s.name,
		Status:        status,
		Result:        o.result,
		ExecutionTime: 0.01,
		Attempt:       1,
	}
}

func (s *stubIntegration) RunMultipleProbes(ctx context.Context, probeNames []string, model integration.Model, maxConcurrent int) []*types.ProbeResult {
	out := make([]*types.ProbeResult, len(probeNames))
	for i, name := range probeNames {
		out[i] = s.RunProbe(ctx, name, model, 0)
	}
	return out
}

func (s *stubIntegration) Health() types.HealthStatus  { return types.Healthy(s.name, "") }
func (s *stubIntegration) Metrics() metrics.Snapshot   { return metrics.Snapshot{} }
func (s *stubIntegration) ResetCircuitBreaker()        {}

func (s *stubIntegration) executedProbes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.executed...)
}

func passingOutcome(name, category string) *probeOutcome {
	return &probeOutcome{
		desc: probe.Descriptor{Name: name, Category: category},
		result: &types.TestResult{
			Passed:    true,
			RiskLevel: types.SeverityInfo,
			ProbeName: name,
		},
	}
}

func failingOutcome(name, category string, severity types.Severity) *probeOutcome {
	return &probeOutcome{
		desc: probe.Descriptor{Name: name, Category: category},
		result: &types.TestResult{
			Passed:        false,
			RiskLevel:     severity,
			ProbeName:     name,
			ProbeCategory: category,
			Findings: []types.Finding{
				{Type: "pii_leakage", Severity: severity, Description: "leaked"},
			},
		},
	}
}

func setup(t *testing.T, stub *stubIntegration, opts ...Option) (*Orchestrator, *store.MemoryStore) {
	t.Helper()
	engine := scanner.NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, engine.RegisterIntegration(stub))
	st := store.NewMemoryStore()
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRandSeed(1),
	}, opts...)
	return New(engine, st, opts...), st
}

func request() ScanRequest {
	return ScanRequest{
		Name:        "nightly",
		ModelName:   "gpt-4o-mini",
		ModelType:   types.ModelOpenAI,
		ScannerType: types.ScannerLLMTopTen,
		ModelConfig: map[string]any{"temperature": 0.7, "api_key": "sk-secret"},
	}
}

func TestCreateScan(t *testing.T) {
	orch, _ := setup(t, newStubIntegration("llmtop10", passingOutcome("p1", "Prompt Injection")))
	ctx := context.Background()

	scan, err := orch.CreateScan(ctx, request())
	require.NoError(t, err)
	assert.Equal(t, types.ScanStatusPending, scan.Status)
	assert.Equal(t, "nightly", scan.Name)

	// Secrets never reach the persisted record.
	assert.NotContains(t, scan.ModelConfig, "api_key")
	assert.Equal(t, 0.7, scan.ModelConfig["temperature"])
}

func TestCreateScan_Invalid(t *testing.T) {
	orch, _ := setup(t, newStubIntegration("llmtop10"))

	req := request()
	req.ModelName = ""
	_, err := orch.CreateScan(context.Background(), req)
	require.Error(t, err)

	req = request()
	req.ScannerType = "nessus"
	_, err = orch.CreateScan(context.Background(), req)
	require.Error(t, err)
}

func TestExecuteScan_CleanScan(t *testing.T) {
	stub := newStubIntegration("llmtop10",
		passingOutcome("p1", "Prompt Injection"),
		passingOutcome("p2", "Data Leakage"))
	orch, st := setup(t, stub)
	ctx := context.Background()

	scan, err := orch.CreateScan(ctx, request())
	require.NoError(t, err)
	require.NoError(t, orch.ExecuteScan(ctx, scan.ID, "sk-runtime"))

	got, err := st.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ScanStatusCompleted, got.Status)
	assert.Equal(t, 100.0, got.Progress)
	assert.Equal(t, 0, got.VulnerabilityCount)
	assert.Equal(t, 0.0, got.RiskScore)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(*got.StartedAt))
	assert.Equal(t, 2, got.Results["total_probes"])
	assert.Equal(t, 0, got.Results["vulnerabilities_found"])

	// Compliance: all-category requirements not assessed, specific ones
	// compliant.
	mappings, err := st.ListComplianceMappings(ctx, scan.ID)
	require.NoError(t, err)
	require.NotEmpty(t, mappings)
	for _, m := range mappings {
		assert.Contains(t,
			[]types.ComplianceStatus{types.ComplianceNotAssessed, types.ComplianceCompliant},
			m.Status)
	}

	assert.ElementsMatch(t, []string{"p1", "p2"}, stub.executedProbes())
}

func TestExecuteScan_SingleCriticalFinding(t *testing.T) {
	stub := newStubIntegration("llmtop10",
		failingOutcome("pii_leakage", "Data Leakage", types.SeverityCritical))
	orch, st := setup(t, stub)
	ctx := context.Background()

	scan, err := orch.CreateScan(ctx, request())
	require.NoError(t, err)
	require.NoError(t, orch.ExecuteScan(ctx, scan.ID, ""))

	got, err := st.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ScanStatusCompleted, got.Status)
	assert.Equal(t, 1, got.VulnerabilityCount)
	assert.Equal(t, 100.0, got.RiskScore)

	vulns, err := st.ListVulnerabilities(ctx, scan.ID)
	require.NoError(t, err)
	require.Len(t, vulns, 1)
	v := vulns[0]
	assert.Equal(t, types.SeverityCritical, v.Severity)
	assert.Equal(t, "Data Leakage - Pii Leakage", v.Title)
	assert.Equal(t, "Data Leakage", v.ProbeCategory)
	assert.GreaterOrEqual(t, v.CVSSScore, 9.0)
	assert.LessOrEqual(t, v.CVSSScore, 10.0)
	assert.Contains(t, v.Evidence, "pii_leakage")
	assert.NotEmpty(t, v.Remediation)
	require.NoError(t, v.Validate())

	mappings, err := st.ListComplianceMappings(ctx, scan.ID)
	require.NoError(t, err)
	var art10 *types.ComplianceMapping
	for _, m := range mappings {
		if m.Framework == types.FrameworkEUAIAct && m.RequirementID == "ART-10" {
			art10 = m
		}
	}
	require.NotNil(t, art10)
	assert.Equal(t, types.ComplianceNonCompliant, art10.Status)
	assert.Equal(t, []string{v.ID}, art10.VulnerabilityIDs)
}

func TestExecuteScan_MixedSeverityRiskScore(t *testing.T) {
	stub := newStubIntegration("llmtop10",
		failingOutcome("a", "Prompt Injection", types.SeverityCritical),
		failingOutcome("b", "Prompt Injection", types.SeverityLow),
		passingOutcome("c", "Hallucination"))
	orch, st := setup(t, stub)
	ctx := context.Background()

	scan, err := orch.CreateScan(ctx, request())
	require.NoError(t, err)
	require.NoError(t, orch.ExecuteScan(ctx, scan.ID, ""))

	got, err := st.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.VulnerabilityCount)
	// (10 + 1) / (2 × 10) × 100 = 55.0
	assert.Equal(t, 55.0, got.RiskScore)

	summary, ok := got.Results["summary"].(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 1, summary["critical"])
	assert.Equal(t, 1, summary["low"])
	assert.Equal(t, 0, summary["medium"])
}

func TestExecuteScan_CancellationMidScan(t *testing.T) {
	st := store.NewMemoryStore()

	var orch *Orchestrator
	var scanID string
	first := failingOutcome("one", "Prompt Injection", types.SeverityHigh)
	first.after = func() {
		_, err := orch.CancelScan(context.Background(), scanID)
		if err != nil {
			t.Errorf("cancel failed: %v", err)
		}
	}
	stub := newStubIntegration("llmtop10",
		first,
		passingOutcome("two", "Prompt Injection"),
		passingOutcome("three", "Prompt Injection"))

	engine := scanner.NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, engine.RegisterIntegration(stub))
	orch = New(engine, st,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRandSeed(1),
		WithMaxConcurrent(1))
	ctx := context.Background()

	scan, err := orch.CreateScan(ctx, request())
	require.NoError(t, err)
	scanID = scan.ID

	require.NoError(t, orch.ExecuteScan(ctx, scanID, ""))

	got, err := st.GetScan(ctx, scanID)
	require.NoError(t, err)
	assert.Equal(t, types.ScanStatusCancelled, got.Status)
	assert.Equal(t, 100.0, got.Progress)

	// Only the first probe ran; the cancel stopped further fan-out.
	assert.Equal(t, []string{"one"}, stub.executedProbes())

	vulns, err := st.ListVulnerabilities(ctx, scanID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(vulns), 1)

	// No compliance mappings for a cancelled scan.
	mappings, err := st.ListComplianceMappings(ctx, scanID)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestExecuteScan_CancelledWhilePending(t *testing.T) {
	stub := newStubIntegration("llmtop10", passingOutcome("p1", "Prompt Injection"))
	orch, st := setup(t, stub)
	ctx := context.Background()

	scan, err := orch.CreateScan(ctx, request())
	require.NoError(t, err)
	_, err = orch.CancelScan(ctx, scan.ID)
	require.NoError(t, err)

	require.NoError(t, orch.ExecuteScan(ctx, scan.ID, ""))

	got, err := st.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ScanStatusCancelled, got.Status)
	assert.Empty(t, stub.executedProbes())
}

func TestExecuteScan_UnknownScannerTypeFails(t *testing.T) {
	stub := newStubIntegration("llmtop10", passingOutcome("p1", "Prompt Injection"))
	orch, st := setup(t, stub)
	ctx := context.Background()

	req := request()
	req.ScannerType = types.ScannerGarak // valid type, not registered
	scan, err := orch.CreateScan(ctx, req)
	require.NoError(t, err)

	require.NoError(t, orch.ExecuteScan(ctx, scan.ID, ""))

	got, err := st.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ScanStatusFailed, got.Status)
	assert.Equal(t, 100.0, got.Progress)
	assert.Equal(t, errTypeModelInit, got.Results["error_type"])
	assert.NotEmpty(t, got.Results["error"])
}

func TestExecuteScan_NotFound(t *testing.T) {
	orch, _ := setup(t, newStubIntegration("llmtop10"))
	err := orch.ExecuteScan(context.Background(), "missing", "")
	require.Error(t, err)
}

func TestExecuteScan_SkipsNonCompletedResults(t *testing.T) {
	timeoutOutcome := &probeOutcome{
		desc:   probe.Descriptor{Name: "slow", Category: "Prompt Injection"},
		status: types.ProbeStatusTimeout,
	}
	stub := newStubIntegration("llmtop10",
		timeoutOutcome,
		failingOutcome("fast", "Prompt Injection", types.SeverityMedium))
	orch, st := setup(t, stub)
	ctx := context.Background()

	scan, err := orch.CreateScan(ctx, request())
	require.NoError(t, err)
	require.NoError(t, orch.ExecuteScan(ctx, scan.ID, ""))

	got, err := st.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ScanStatusCompleted, got.Status)
	assert.Equal(t, 1, got.VulnerabilityCount)
}

func TestCancelScan_TerminalScan(t *testing.T) {
	stub := newStubIntegration("llmtop10", passingOutcome("p1", "Prompt Injection"))
	orch, _ := setup(t, stub)
	ctx := context.Background()

	scan, err := orch.CreateScan(ctx, request())
	require.NoError(t, err)
	require.NoError(t, orch.ExecuteScan(ctx, scan.ID, ""))

	_, err = orch.CancelScan(ctx, scan.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestRiskScoreFor(t *testing.T) {
	tests := []struct {
		name       string
		severities []types.Severity
		want       float64
	}{
		{"empty", nil, 0},
		{"single critical", []types.Severity{types.SeverityCritical}, 100.0},
		{"critical and low", []types.Severity{types.SeverityCritical, types.SeverityLow}, 55.0},
		{"all info", []types.Severity{types.SeverityInfo, types.SeverityInfo}, 0.0},
		{"high medium", []types.Severity{types.SeverityHigh, types.SeverityMedium}, 55.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vulns []*types.Vulnerability
			for _, s := range tt.severities {
				vulns = append(vulns, &types.Vulnerability{Severity: s})
			}
			assert.Equal(t, tt.want, riskScoreFor(vulns))
		})
	}
}

func TestCVSSSampling(t *testing.T) {
	orch, _ := setup(t, newStubIntegration("llmtop10"))

	for _, sev := range types.AllSeverities() {
		min, max := sev.CVSSRange()
		for i := 0; i < 50; i++ {
			score := orch.cvssFor(sev)
			assert.GreaterOrEqual(t, score, min, "severity %s", sev)
			assert.LessOrEqual(t, score, max, "severity %s", sev)
			// One decimal place.
			assert.Equal(t, score, float64(int(score*10+0.5))/10)
		}
	}
	assert.Equal(t, 0.0, orch.cvssFor(types.SeverityInfo))
}

func TestHumanizeProbeName(t *testing.T) {
	assert.Equal(t, "Llm01 Prompt Injection", humanizeProbeName("llm01_prompt_injection"))
	assert.Equal(t, "Pii Leakage", humanizeProbeName("pii_leakage"))
	assert.Equal(t, "Simple", humanizeProbeName("simple"))
}
