package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for grow-core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Vendors    VendorsConfig    `yaml:"vendors"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ResilienceConfig contains the default retry and circuit-breaker settings
// applied to every outbound vendor call. Call sites may override the retry
// portion per operation.
type ResilienceConfig struct {
	MaxRetries        int     `yaml:"max_retries"`
	BaseDelayMs       int     `yaml:"base_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutMs         int     `yaml:"timeout_ms"`
	BreakerThreshold  int     `yaml:"breaker_threshold"`
	BreakerCooldownMs int     `yaml:"breaker_cooldown_ms"`
}

// VendorsConfig contains per-vendor endpoint settings.
type VendorsConfig struct {
	ACInfinity ACInfinityConfig `yaml:"acinfinity"`
	Ecowitt    EcowittConfig    `yaml:"ecowitt"`
}

// ACInfinityConfig contains AC Infinity cloud API settings.
type ACInfinityConfig struct {
	// BaseURL is the cloud API root (default: the public production API).
	BaseURL string `yaml:"base_url"`

	// SessionTTLMinutes is how long a bearer token is cached before a
	// reconnect is required. The vendor does not document token lifetime;
	// 24h matches observed behaviour.
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`
}

// EcowittConfig contains Ecowitt gateway and cloud API settings.
type EcowittConfig struct {
	// TCPPort is the gateway's fixed binary-protocol port.
	TCPPort int `yaml:"tcp_port"`

	// CloudBaseURL is the public cloud API root.
	CloudBaseURL string `yaml:"cloud_base_url"`

	// PushStaleSeconds is how old a pushed reading may be before it is
	// flagged stale on read.
	PushStaleSeconds int `yaml:"push_stale_seconds"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GROWCORE_SECTION_KEY
// For example: GROWCORE_ACINFINITY_BASE_URL, GROWCORE_LOGGING_LEVEL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
//
// Defaults alone form a valid configuration, so components that are wired
// without a config file (tests, embedding callers) can start from here.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Resilience: ResilienceConfig{
			MaxRetries:        3,
			BaseDelayMs:       500,
			BackoffMultiplier: 2.0,
			TimeoutMs:         10000,
			BreakerThreshold:  5,
			BreakerCooldownMs: 30000,
		},
		Vendors: VendorsConfig{
			ACInfinity: ACInfinityConfig{
				BaseURL:           "https://www.acinfinityserver.com",
				SessionTTLMinutes: 24 * 60,
			},
			Ecowitt: EcowittConfig{
				TCPPort:          45000,
				CloudBaseURL:     "https://api.ecowitt.net",
				PushStaleSeconds: 300,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GROWCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GROWCORE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GROWCORE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("GROWCORE_ACINFINITY_BASE_URL"); v != "" {
		cfg.Vendors.ACInfinity.BaseURL = v
	}
	if v := os.Getenv("GROWCORE_ECOWITT_CLOUD_BASE_URL"); v != "" {
		cfg.Vendors.Ecowitt.CloudBaseURL = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Resilience.MaxRetries < 0 {
		errs = append(errs, "resilience.max_retries must not be negative")
	}
	if c.Resilience.BaseDelayMs < 1 {
		errs = append(errs, "resilience.base_delay_ms must be at least 1")
	}
	if c.Resilience.BackoffMultiplier < 1 {
		errs = append(errs, "resilience.backoff_multiplier must be at least 1")
	}
	if c.Resilience.TimeoutMs < 1 {
		errs = append(errs, "resilience.timeout_ms must be at least 1")
	}
	if c.Resilience.BreakerThreshold < 1 {
		errs = append(errs, "resilience.breaker_threshold must be at least 1")
	}
	if c.Resilience.BreakerCooldownMs < 1 {
		errs = append(errs, "resilience.breaker_cooldown_ms must be at least 1")
	}

	if c.Vendors.ACInfinity.BaseURL == "" {
		errs = append(errs, "vendors.acinfinity.base_url is required")
	}
	if c.Vendors.Ecowitt.TCPPort < 1 || c.Vendors.Ecowitt.TCPPort > 65535 {
		errs = append(errs, "vendors.ecowitt.tcp_port must be between 1 and 65535")
	}
	if c.Vendors.Ecowitt.CloudBaseURL == "" {
		errs = append(errs, "vendors.ecowitt.cloud_base_url is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// RetryTimeout returns the per-call timeout as a Duration.
func (c *ResilienceConfig) RetryTimeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// BaseDelay returns the initial retry backoff delay as a Duration.
func (c *ResilienceConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

// BreakerCooldown returns the circuit-breaker open window as a Duration.
func (c *ResilienceConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownMs) * time.Millisecond
}

// SessionTTL returns the AC Infinity token lifetime as a Duration.
func (c *ACInfinityConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// PushStaleWindow returns the Ecowitt push staleness window as a Duration.
func (c *EcowittConfig) PushStaleWindow() time.Duration {
	return time.Duration(c.PushStaleSeconds) * time.Second
}
