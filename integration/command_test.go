package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/scanner/types"
)

// writeToolkit creates an executable shell script standing in for an
// external toolkit CLI.
func writeToolkit(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toolkit")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func counterfitModel() Model {
	m := testModel()
	m.Config["counterfit_target"] = "tabular-demo"
	m.Config["counterfit_attack"] = "hop_skip_jump"
	return m
}

func TestCommandExecutor_TestResultVerdict(t *testing.T) {
	bin := writeToolkit(t,
		`cat > /dev/null; echo '{"passed":false,"risk_level":"high","vulnerability_score":0.8,"findings":[{"type":"adversarial_example","severity":"high"}]}'`)

	r := NewCounterfit(testConfig(), WithSleep(noSleep),
		WithExecutor(NewCommandExecutor(CommandSpec{Binary: bin})))

	res := r.RunProbe(context.Background(), "cf_text_adversarial", counterfitModel(), 0)
	require.Equal(t, types.ProbeStatusCompleted, res.Status)
	require.NotNil(t, res.Result)
	assert.False(t, res.Result.Passed)
	assert.Equal(t, types.SeverityHigh, res.Result.RiskLevel)
	assert.Equal(t, 0.8, res.Result.VulnerabilityScore)
	assert.Equal(t, "cf_text_adversarial", res.Result.ProbeName)
	assert.Equal(t, "adversarial", res.Result.ProbeCategory)
}

func TestCommandExecutor_FindingLinesVerdict(t *testing.T) {
	bin := writeToolkit(t, `cat > /dev/null
echo '{"type":"adversarial_example","severity":"critical","description":"evasion succeeded"}'
echo '{"type":"adversarial_example","severity":"low"}'`)

	r := NewCounterfit(testConfig(), WithSleep(noSleep),
		WithExecutor(NewCommandExecutor(CommandSpec{Binary: bin})))

	res := r.RunProbe(context.Background(), "cf_text_adversarial", counterfitModel(), 0)
	require.Equal(t, types.ProbeStatusCompleted, res.Status)
	require.NotNil(t, res.Result)
	assert.False(t, res.Result.Passed)
	assert.Equal(t, types.SeverityCritical, res.Result.RiskLevel)
	require.Len(t, res.Result.Findings, 2)
}

func TestCommandExecutor_FindingArrayVerdict(t *testing.T) {
	bin := writeToolkit(t,
		`cat > /dev/null; echo '[{"type":"adversarial_example","severity":"medium"}]'`)

	r := NewCounterfit(testConfig(), WithSleep(noSleep),
		WithExecutor(NewCommandExecutor(CommandSpec{Binary: bin})))

	res := r.RunProbe(context.Background(), "cf_text_adversarial", counterfitModel(), 0)
	require.Equal(t, types.ProbeStatusCompleted, res.Status)
	require.NotNil(t, res.Result)
	require.Len(t, res.Result.Findings, 1)
}

func TestCommandExecutor_ReceivesRequestOnStdin(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "request.json")
	bin := writeToolkit(t,
		`cat > `+capture+`; echo '{"passed":true,"risk_level":"low"}'`)

	r := NewCounterfit(testConfig(), WithSleep(noSleep),
		WithExecutor(NewCommandExecutor(CommandSpec{Binary: bin})))

	res := r.RunProbe(context.Background(), "cf_tabular_adversarial", counterfitModel(), 0)
	require.Equal(t, types.ProbeStatusCompleted, res.Status)

	data, err := os.ReadFile(capture)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"probe":"cf_tabular_adversarial"`)
	assert.Contains(t, string(data), `"model":"gpt-4o-mini"`)
	assert.Contains(t, string(data), `"counterfit_attack":"hop_skip_jump"`)
}

func TestCommandExecutor_NonZeroExit(t *testing.T) {
	cfg := testConfig()
	cfg.RetryAttempts = 0
	bin := writeToolkit(t, `cat > /dev/null; echo 'target unreachable' >&2; exit 2`)

	r := NewCounterfit(cfg, WithSleep(noSleep),
		WithExecutor(NewCommandExecutor(CommandSpec{Binary: bin})))

	res := r.RunProbe(context.Background(), "cf_text_adversarial", counterfitModel(), 0)
	assert.Equal(t, types.ProbeStatusError, res.Status)
	assert.Contains(t, res.Error, "exited with code 2")
	assert.Contains(t, res.Error, "target unreachable")
}

func TestCommandExecutor_EmptyOutput(t *testing.T) {
	cfg := testConfig()
	cfg.RetryAttempts = 0
	bin := writeToolkit(t, `cat > /dev/null`)

	r := NewCounterfit(cfg, WithSleep(noSleep),
		WithExecutor(NewCommandExecutor(CommandSpec{Binary: bin})))

	res := r.RunProbe(context.Background(), "cf_text_adversarial", counterfitModel(), 0)
	assert.Equal(t, types.ProbeStatusError, res.Status)
	assert.Contains(t, res.Error, "no output")
}

func TestCommandExecutor_MissingBinary(t *testing.T) {
	cfg := testConfig()
	cfg.RetryAttempts = 0

	r := NewART(cfg, WithSleep(noSleep),
		WithExecutor(NewCommandExecutor(CommandSpec{Binary: "no-such-toolkit-cli", Timeout: time.Second})))

	model := testModel()
	model.Config["art_estimator"] = "keras-classifier"
	model.Config["art_attack"] = "fast_gradient"

	res := r.RunProbe(context.Background(), "art_text_attack", model, 0)
	assert.Equal(t, types.ProbeStatusError, res.Status)
}
