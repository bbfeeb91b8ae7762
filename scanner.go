package scanner

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zero-day-ai/scanner/config"
	"github.com/zero-day-ai/scanner/integration"
)

// New creates an engine with the default integrations registered in
// first-party priority order: llmtop10, agenttop10, builtin, then the
// external counterfit and art wrappers. The garak integration is added
// when WithGarakProbeDir is supplied.
//
// Example:
//
//	engine, err := scanner.New(
//	    scanner.WithLogger(logger),
//	    scanner.WithConfigFile("/etc/scanner/config.yaml"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result := engine.RunProbe(ctx, "llm01_prompt_injection", model)
func New(opts ...EngineOption) (*Engine, error) {
	s := &engineSettings{}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	if s.cfg == nil && s.configPath != "" {
		cfg, err := config.Load(s.configPath)
		if err != nil {
			return nil, NewConfigurationError("scanner.New", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
		}
		s.cfg = cfg
	}

	cfgFor := func(name string) config.IntegrationConfig {
		if s.cfg != nil {
			return s.cfg.Integration(name)
		}
		return config.FromEnv(name)
	}
	intOpts := append([]integration.Option{integration.WithLogger(s.logger)}, s.integrationOpts...)

	e := NewEngine(s.logger)

	if !s.skipDefaults {
		if err := e.RegisterIntegration(integration.NewLLMTop10(cfgFor("llmtop10"), intOpts...)); err != nil {
			return nil, err
		}
		if err := e.RegisterIntegration(integration.NewAgentTop10(cfgFor("agenttop10"), intOpts...)); err != nil {
			return nil, err
		}
		builtin, err := integration.NewBuiltin(cfgFor("builtin"), s.builtinProbeDir, intOpts...)
		if err != nil {
			return nil, NewConfigurationError("scanner.New", err)
		}
		if err := e.RegisterIntegration(builtin); err != nil {
			return nil, err
		}
		if s.garakProbeDir != "" {
			garak, err := integration.NewGarak(cfgFor("garak"), s.garakProbeDir, intOpts...)
			if err != nil {
				return nil, NewConfigurationError("scanner.New", err)
			}
			if err := e.RegisterIntegration(garak); err != nil {
				return nil, err
			}
		}
		if err := e.RegisterIntegration(integration.NewCounterfit(cfgFor("counterfit"), intOpts...)); err != nil {
			return nil, err
		}
		if err := e.RegisterIntegration(integration.NewART(cfgFor("art"), intOpts...)); err != nil {
			return nil, err
		}
	}
	for _, extra := range s.extra {
		if err := e.RegisterIntegration(extra); err != nil {
			return nil, err
		}
	}

	return e, nil
}
