package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/scanner/probe"
	"github.com/zero-day-ai/scanner/types"
)

func TestNewCounterfit_RequiresTargetAndAttack(t *testing.T) {
	r := NewCounterfit(testConfig(), WithSleep(noSleep))

	names := r.ListProbes("")
	assert.Len(t, names, 3)
	assert.Contains(t, names, "cf_text_adversarial")

	res := r.RunProbe(context.Background(), "cf_text_adversarial", testModel(), 0)
	assert.Equal(t, types.ProbeStatusError, res.Status)
	assert.Contains(t, res.Error, "counterfit_target")
	assert.Contains(t, res.Error, "counterfit_attack")
	// Configuration errors are not retried.
	assert.Zero(t, res.Attempt)
}

func TestNewCounterfit_UnwiredExecutorFails(t *testing.T) {
	cfg := testConfig()
	cfg.RetryAttempts = 0
	r := NewCounterfit(cfg, WithSleep(noSleep))

	model := testModel()
	model.Config["counterfit_target"] = "tabular-demo"
	model.Config["counterfit_attack"] = "hop_skip_jump"

	res := r.RunProbe(context.Background(), "cf_tabular_adversarial", model, 0)
	assert.Equal(t, types.ProbeStatusError, res.Status)
	assert.Contains(t, res.Error, "not wired")
}

func TestNewCounterfit_CustomExecutor(t *testing.T) {
	exec := func(_ context.Context, p probe.Prober, _ Model) (*types.TestResult, error) {
		return &types.TestResult{
			Passed:    false,
			RiskLevel: types.SeverityMedium,
			Findings: []types.Finding{{
				Type:     "adversarial_example",
				Severity: types.SeverityMedium,
			}},
			VulnerabilityScore: 0.4,
			ProbeName:          p.Info().Name,
		}, nil
	}
	r := NewCounterfit(testConfig(), WithExecutor(exec), WithSleep(noSleep))

	model := testModel()
	model.Config["counterfit_target"] = "tabular-demo"
	model.Config["counterfit_attack"] = "hop_skip_jump"

	res := r.RunProbe(context.Background(), "cf_text_adversarial", model, 0)
	require.Equal(t, types.ProbeStatusCompleted, res.Status)
	require.NotNil(t, res.Result)
	assert.False(t, res.Result.Passed)
	assert.Equal(t, "cf_text_adversarial", res.Result.ProbeName)
}

func TestNewART_RequiresEstimatorAndAttack(t *testing.T) {
	r := NewART(testConfig(), WithSleep(noSleep))

	names := r.ListProbes("")
	assert.Len(t, names, 3)
	assert.Contains(t, names, "art_text_attack")

	res := r.RunProbe(context.Background(), "art_text_attack", testModel(), 0)
	assert.Equal(t, types.ProbeStatusError, res.Status)
	assert.Contains(t, res.Error, "art_estimator")
	assert.Contains(t, res.Error, "art_attack")
}
