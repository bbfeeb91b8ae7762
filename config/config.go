// Package config loads scanner configuration from YAML with per-integration
// environment overrides. Each integration (garak, llmtop10, agenttop10, ...)
// gets one block of recognized keys; environment variables prefixed with the
// upper-cased integration name (GARAK_TIMEOUT, LLMTOP10_CACHE_TTL) are
// applied after the file is parsed and win over it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// IntegrationConfig is the per-integration execution policy. Time-valued
// fields are stored in seconds.
type IntegrationConfig struct {
	// Enabled gates the whole integration; disabled integrations answer
	// every RunProbe with an error.
	Enabled bool `yaml:"enabled"`

	// Timeout bounds one probe execution, in seconds.
	Timeout int `yaml:"timeout"`

	// MaxConcurrent bounds in-flight probes in batch execution.
	MaxConcurrent int `yaml:"max_concurrent"`

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryDelay is the base delay between retries, in seconds. The delay
	// grows linearly with the attempt number.
	RetryDelay float64 `yaml:"retry_delay"`

	// CacheEnabled gates result caching.
	CacheEnabled bool `yaml:"cache_enabled"`

	// CacheTTL is the cached result lifetime, in seconds.
	CacheTTL int `yaml:"cache_ttl"`

	// RateLimitPerMinute bounds probe executions per model per minute.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// CircuitBreakerThreshold is the consecutive failure count that opens
	// the breaker.
	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold"`

	// CircuitBreakerTimeout is the open-state cool-down, in seconds.
	CircuitBreakerTimeout int `yaml:"circuit_breaker_timeout"`
}

// Default creates the default integration policy.
func Default() IntegrationConfig {
	return IntegrationConfig{
		Enabled:                 true,
		Timeout:                 300,
		MaxConcurrent:           3,
		RetryAttempts:           3,
		RetryDelay:              5,
		CacheEnabled:            true,
		CacheTTL:                3600,
		RateLimitPerMinute:      60,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60,
	}
}

// TimeoutDuration returns the probe timeout as a duration.
func (c IntegrationConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RetryDelayDuration returns the base retry delay as a duration.
func (c IntegrationConfig) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay * float64(time.Second))
}

// CacheTTLDuration returns the cache TTL as a duration.
func (c IntegrationConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// CircuitBreakerTimeoutDuration returns the breaker cool-down as a duration.
func (c IntegrationConfig) CircuitBreakerTimeoutDuration() time.Duration {
	return time.Duration(c.CircuitBreakerTimeout) * time.Second
}

// Validate checks the policy for nonsensical values.
func (c IntegrationConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Timeout)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", c.MaxConcurrent)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must not be negative, got %d", c.RetryAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative, got %v", c.RetryDelay)
	}
	return nil
}

// Config is the scanner configuration file: one policy block per
// integration name.
type Config struct {
	Scanners map[string]IntegrationConfig `yaml:"scanners"`
}

// Load reads and parses a scanner config file. If path is a directory it
// looks for scanner.yaml or scanner.yml inside it. Environment overrides
// are NOT applied here; use Integration to get the effective policy.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		found := false
		for _, name := range []string{"scanner.yaml", "scanner.yml"} {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no scanner.yaml or scanner.yml found in %s", path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes config YAML. Missing fields in a block keep their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Re-decode each block on top of the defaults so absent keys do not
	// zero out the policy.
	var raw struct {
		Scanners map[string]yaml.Node `yaml:"scanners"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	merged := make(map[string]IntegrationConfig, len(raw.Scanners))
	for name, node := range raw.Scanners {
		block := Default()
		if err := node.Decode(&block); err != nil {
			return nil, fmt.Errorf("scanner %q: %w", name, err)
		}
		merged[name] = block
	}
	cfg.Scanners = merged
	return cfg, nil
}

// Integration returns the effective policy for the named integration:
// file values over defaults, environment overrides over both.
func (c *Config) Integration(name string) IntegrationConfig {
	block := Default()
	if c != nil {
		if fromFile, ok := c.Scanners[name]; ok {
			block = fromFile
		}
	}
	return applyEnv(name, block)
}

// FromEnv returns the policy for an integration configured purely from
// defaults and environment variables, for deployments without a config
// file.
func FromEnv(name string) IntegrationConfig {
	return applyEnv(name, Default())
}

// applyEnv overlays <NAME>_* environment variables onto the policy.
// Unparseable values are ignored.
func applyEnv(name string, c IntegrationConfig) IntegrationConfig {
	prefix := strings.ToUpper(name) + "_"

	if v, ok := envBool(prefix + "ENABLED"); ok {
		c.Enabled = v
	}
	if v, ok := envInt(prefix + "TIMEOUT"); ok {
		c.Timeout = v
	}
	if v, ok := envInt(prefix + "MAX_CONCURRENT"); ok {
		c.MaxConcurrent = v
	}
	if v, ok := envInt(prefix + "RETRY_ATTEMPTS"); ok {
		c.RetryAttempts = v
	}
	if v, ok := envFloat(prefix + "RETRY_DELAY"); ok {
		c.RetryDelay = v
	}
	if v, ok := envBool(prefix + "CACHE_ENABLED"); ok {
		c.CacheEnabled = v
	}
	if v, ok := envInt(prefix + "CACHE_TTL"); ok {
		c.CacheTTL = v
	}
	if v, ok := envInt(prefix + "RATE_LIMIT_PER_MINUTE"); ok {
		c.RateLimitPerMinute = v
	}
	if v, ok := envInt(prefix + "CIRCUIT_BREAKER_THRESHOLD"); ok {
		c.CircuitBreakerThreshold = v
	}
	if v, ok := envInt(prefix + "CIRCUIT_BREAKER_TIMEOUT"); ok {
		c.CircuitBreakerTimeout = v
	}
	return c
}

func envInt(key string) (int, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

func envFloat(key string) (float64, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envBool(key string) (bool, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
