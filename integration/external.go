package integration

import (
	"context"
	"fmt"
	"strings"

	"github.com/zero-day-ai/scanner/config"
	"github.com/zero-day-ai/scanner/probe"
	"github.com/zero-day-ai/scanner/types"
)

// External framework integrations wrap adversarial-ML toolkits that need
// project-specific wiring: a target (or estimator) and an attack, named in
// the model config. Missing configuration is a configuration error and is
// reported without retrying. Attack execution itself is injected through
// WithExecutor; without one, runs fail with a clear message telling the
// operator what to wire.

// conceptualProbe is a probe whose execution lives entirely in the
// integration's executor. It carries metadata only.
type conceptualProbe struct {
	probe.Base
}

func newConceptualProbe(name, description string, tags []string) *conceptualProbe {
	return &conceptualProbe{Base: probe.NewBase(probe.Descriptor{
		Name:        name,
		Category:    "adversarial",
		Description: description,
		Tags:        tags,
	})}
}

// requireModelConfig returns a validator that demands non-empty values for
// the given model config keys.
func requireModelConfig(framework string, keys ...string) func(Model) error {
	return func(m Model) error {
		var missing []string
		for _, k := range keys {
			v, ok := m.Config[k]
			if !ok || v == nil || v == "" {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%s not configured: set %s in model config",
				framework, strings.Join(missing, " and "))
		}
		return nil
	}
}

// unwiredExecutor is the default execution step for external frameworks.
// It fails with guidance instead of running a placeholder attack.
func unwiredExecutor(framework string) ExecFunc {
	return func(_ context.Context, p probe.Prober, _ Model) (*types.TestResult, error) {
		return nil, fmt.Errorf(
			"%s attack execution is not wired for probe %s: provide an executor with WithExecutor",
			framework, p.Info().Name)
	}
}

func counterfitRegistry() *probe.Registry {
	reg := probe.NewRegistry()
	reg.MustRegister(newConceptualProbe("cf_text_adversarial",
		"Generic text adversarial example generation using Counterfit.",
		[]string{"text", "adversarial", "counterfit"}))
	reg.MustRegister(newConceptualProbe("cf_tabular_adversarial",
		"Generic tabular adversarial attack via Counterfit.",
		[]string{"tabular", "adversarial", "counterfit"}))
	reg.MustRegister(newConceptualProbe("cf_image_adversarial",
		"Generic image adversarial attack via Counterfit.",
		[]string{"image", "adversarial", "counterfit"}))
	return reg
}

func artRegistry() *probe.Registry {
	reg := probe.NewRegistry()
	reg.MustRegister(newConceptualProbe("art_text_attack",
		"Generic text adversarial test using ART.",
		[]string{"text", "adversarial", "art"}))
	reg.MustRegister(newConceptualProbe("art_image_attack",
		"Generic image adversarial test using ART.",
		[]string{"image", "adversarial", "art"}))
	reg.MustRegister(newConceptualProbe("art_tabular_attack",
		"Generic tabular adversarial test using ART.",
		[]string{"tabular", "adversarial", "art"}))
	return reg
}

// NewCounterfit creates the Counterfit integration. The model config must
// name counterfit_target and counterfit_attack; attack execution is
// supplied through WithExecutor.
func NewCounterfit(cfg config.IntegrationConfig, opts ...Option) *Runner {
	base := []Option{
		WithValidator(requireModelConfig("counterfit target/attack",
			"counterfit_target", "counterfit_attack")),
		WithExecutor(unwiredExecutor("counterfit")),
	}
	return NewRunner("counterfit", cfg, counterfitRegistry(), append(base, opts...)...)
}

// NewART creates the Adversarial Robustness Toolbox integration. The model
// config must name art_estimator and art_attack; attack execution is
// supplied through WithExecutor.
func NewART(cfg config.IntegrationConfig, opts ...Option) *Runner {
	base := []Option{
		WithValidator(requireModelConfig("ART estimator/attack",
			"art_estimator", "art_attack")),
		WithExecutor(unwiredExecutor("art")),
	}
	return NewRunner("art", cfg, artRegistry(), append(base, opts...)...)
}
