package scanner

import (
	"log/slog"

	"github.com/zero-day-ai/scanner/config"
	"github.com/zero-day-ai/scanner/integration"
)

// engineSettings collects the options applied by New.
type engineSettings struct {
	logger          *slog.Logger
	cfg             *config.Config
	configPath      string
	garakProbeDir   string
	builtinProbeDir string
	extra           []integration.Integration
	integrationOpts []integration.Option
	skipDefaults    bool
}

// EngineOption configures the engine built by New.
type EngineOption func(*engineSettings)

// WithLogger sets the engine logger. It is also passed to the default
// integrations.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(s *engineSettings) { s.logger = logger }
}

// WithConfig supplies a parsed scanner configuration. Without one, each
// integration falls back to defaults plus its environment overrides.
func WithConfig(cfg *config.Config) EngineOption {
	return func(s *engineSettings) { s.cfg = cfg }
}

// WithConfigFile loads the scanner configuration from a YAML file.
func WithConfigFile(path string) EngineOption {
	return func(s *engineSettings) { s.configPath = path }
}

// WithBuiltinProbeDir points the builtin integration at a directory of
// probe declarations instead of the bundled set.
func WithBuiltinProbeDir(dir string) EngineOption {
	return func(s *engineSettings) { s.builtinProbeDir = dir }
}

// WithGarakProbeDir enables the garak integration over a directory of
// probe declarations. Without it, no garak integration is registered.
func WithGarakProbeDir(dir string) EngineOption {
	return func(s *engineSettings) { s.garakProbeDir = dir }
}

// WithIntegration registers an additional integration after the defaults.
func WithIntegration(i integration.Integration) EngineOption {
	return func(s *engineSettings) { s.extra = append(s.extra, i) }
}

// WithIntegrationOptions forwards options to every default-built
// integration. Used by tests to inject generator factories.
func WithIntegrationOptions(opts ...integration.Option) EngineOption {
	return func(s *engineSettings) {
		s.integrationOpts = append(s.integrationOpts, opts...)
	}
}

// WithoutDefaultIntegrations builds an engine containing only the
// integrations passed through WithIntegration.
func WithoutDefaultIntegrations() EngineOption {
	return func(s *engineSettings) { s.skipDefaults = true }
}
