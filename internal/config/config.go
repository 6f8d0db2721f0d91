// Package config provides configuration management for the options desk.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/eddiefleurent/options_desk/internal/rules"
)

// Defaults applied by normalize when a field is left unset.
const (
	defaultPort              = 8080
	defaultStoragePath       = "desk.json"
	defaultQuoteTimeout      = "10s"
	defaultQuoteConcurrency  = 4
	defaultRetryAttempts     = 3
	defaultRetryBaseDelay    = "250ms"
	defaultBreakerFailures   = 5
	defaultBreakerOpenPeriod = "60s"
	defaultLogMaxSizeMB      = 20
	defaultLogMaxBackups     = 5
	defaultLogMaxAgeDays     = 28
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Storage     StorageConfig     `yaml:"storage"`
	Quotes      QuotesConfig      `yaml:"quotes"`
	Rules       rules.Options     `yaml:"rules"`
}

// EnvironmentConfig defines logging settings.
type EnvironmentConfig struct {
	LogLevel string    `yaml:"log_level"` // debug | info | warn | error
	LogFile  LogConfig `yaml:"log_file"`
}

// LogConfig enables a rotating log file next to stdout output.
type LogConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DashboardConfig defines the HTTP dashboard.
type DashboardConfig struct {
	Port int `yaml:"port"`
	// AuthToken guards the sync endpoints; empty disables them
	AuthToken string `yaml:"auth_token"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // json | sqlite
	Path    string `yaml:"path"`
}

// QuotesConfig defines where live prices come from.
type QuotesConfig struct {
	Provider    string        `yaml:"provider"` // tradier | static
	APIKey      string        `yaml:"api_key"`
	APIEndpoint string        `yaml:"api_endpoint"`
	Timeout     string        `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	StaticFile  string        `yaml:"static_file"`
	Retry       RetryConfig   `yaml:"retry"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// RetryConfig tunes retries of transient quote failures.
type RetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelay   string `yaml:"base_delay"`
}

// BreakerConfig tunes the quote circuit breaker.
type BreakerConfig struct {
	Enabled             bool   `yaml:"enabled"`
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
	OpenTimeout         string `yaml:"open_timeout"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate normalizes defaults and checks that all values are valid and consistent.
func (c *Config) Validate() error {
	c.normalize()

	switch c.Environment.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}

	if c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port must be between 1 and 65535")
	}

	if c.Storage.Backend != "json" && c.Storage.Backend != "sqlite" {
		return fmt.Errorf("storage.backend must be 'json' or 'sqlite'")
	}

	switch c.Quotes.Provider {
	case "tradier":
		if c.Quotes.APIKey == "" {
			return fmt.Errorf("quotes.api_key is required for the tradier provider")
		}
	case "static":
	default:
		return fmt.Errorf("quotes.provider must be 'tradier' or 'static'")
	}
	if _, err := time.ParseDuration(c.Quotes.Timeout); err != nil {
		return fmt.Errorf("quotes.timeout invalid: %w", err)
	}
	if c.Quotes.Concurrency <= 0 {
		return fmt.Errorf("quotes.concurrency must be > 0")
	}
	if c.Quotes.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("quotes.retry.max_attempts must be > 0")
	}
	if _, err := time.ParseDuration(c.Quotes.Retry.BaseDelay); err != nil {
		return fmt.Errorf("quotes.retry.base_delay invalid: %w", err)
	}
	if _, err := time.ParseDuration(c.Quotes.Breaker.OpenTimeout); err != nil {
		return fmt.Errorf("quotes.breaker.open_timeout invalid: %w", err)
	}

	r := c.Rules
	if r.MaxPositionRiskPct <= 0 || r.MaxPortfolioRiskPct <= 0 {
		return fmt.Errorf("rules risk percentages must be > 0")
	}
	if r.SmallPositionRiskPct > r.MaxPositionRiskPct {
		return fmt.Errorf("rules.small_position_risk_pct (%.2f) must be <= rules.max_position_risk_pct (%.2f)",
			r.SmallPositionRiskPct, r.MaxPositionRiskPct)
	}
	if r.MaxPositionRiskPct > r.MaxPortfolioRiskPct {
		return fmt.Errorf("rules.max_position_risk_pct (%.2f) must be <= rules.max_portfolio_risk_pct (%.2f)",
			r.MaxPositionRiskPct, r.MaxPortfolioRiskPct)
	}
	if r.ProfitCushionRatio < 0 || r.ProfitCushionRatio >= 1 {
		return fmt.Errorf("rules.profit_cushion_ratio must be in [0,1)")
	}

	return nil
}

// QuoteTimeout returns the parsed quote request timeout.
func (c *Config) QuoteTimeout() time.Duration {
	return parseDuration(c.Quotes.Timeout, defaultQuoteTimeout)
}

// RetryBaseDelay returns the parsed initial retry delay.
func (c *Config) RetryBaseDelay() time.Duration {
	return parseDuration(c.Quotes.Retry.BaseDelay, defaultRetryBaseDelay)
}

// BreakerOpenTimeout returns how long the breaker stays open before probing.
func (c *Config) BreakerOpenTimeout() time.Duration {
	return parseDuration(c.Quotes.Breaker.OpenTimeout, defaultBreakerOpenPeriod)
}

// normalize sets default values for unset fields
func (c *Config) normalize() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	lf := &c.Environment.LogFile
	if lf.Path != "" {
		if lf.MaxSizeMB == 0 {
			lf.MaxSizeMB = defaultLogMaxSizeMB
		}
		if lf.MaxBackups == 0 {
			lf.MaxBackups = defaultLogMaxBackups
		}
		if lf.MaxAgeDays == 0 {
			lf.MaxAgeDays = defaultLogMaxAgeDays
		}
	}

	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = defaultPort
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "json"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath
	}

	q := &c.Quotes
	if q.Provider == "" {
		q.Provider = "static"
	}
	if q.Timeout == "" {
		q.Timeout = defaultQuoteTimeout
	}
	if q.Concurrency == 0 {
		q.Concurrency = defaultQuoteConcurrency
	}
	if q.Retry.MaxAttempts == 0 {
		q.Retry.MaxAttempts = defaultRetryAttempts
	}
	if q.Retry.BaseDelay == "" {
		q.Retry.BaseDelay = defaultRetryBaseDelay
	}
	if q.Breaker.ConsecutiveFailures == 0 {
		q.Breaker.ConsecutiveFailures = defaultBreakerFailures
	}
	if q.Breaker.OpenTimeout == "" {
		q.Breaker.OpenTimeout = defaultBreakerOpenPeriod
	}

	defaults := rules.DefaultOptions()
	r := &c.Rules
	if len(r.ApprovedStrategies) == 0 {
		r.ApprovedStrategies = defaults.ApprovedStrategies
	}
	if r.MaxPositionRiskPct == 0 {
		r.MaxPositionRiskPct = defaults.MaxPositionRiskPct
	}
	if r.SmallPositionRiskPct == 0 {
		r.SmallPositionRiskPct = defaults.SmallPositionRiskPct
	}
	if r.MaxPortfolioRiskPct == 0 {
		r.MaxPortfolioRiskPct = defaults.MaxPortfolioRiskPct
	}
	if r.MaxOpenPositions == 0 {
		r.MaxOpenPositions = defaults.MaxOpenPositions
	}
	if r.MaxEarningsPositions == 0 {
		r.MaxEarningsPositions = defaults.MaxEarningsPositions
	}
	if r.ProfitCushionRatio == 0 {
		r.ProfitCushionRatio = defaults.ProfitCushionRatio
	}
}

func parseDuration(s, fallback string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}
