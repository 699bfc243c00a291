// Package config loads engine configuration from a YAML file with
// environment variable overrides.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/msolis/catfetch"
	"github.com/msolis/catfetch/paginate"
	"gopkg.in/yaml.v3"
)

// Config holds every knob the extraction engine exposes.
type Config struct {
	// Targets are catalog URLs to extract.
	Targets []string `yaml:"targets"`

	// CacheDir is where per-target configuration files live.
	CacheDir string `yaml:"cache_dir"`

	// CacheEnabled toggles the configuration cache entirely.
	CacheEnabled bool `yaml:"cache_enabled"`

	// ForceDiscovery skips the cache for this invocation without
	// disabling it: discovered configs are still stored.
	ForceDiscovery bool `yaml:"force_discovery"`

	// FreshnessWindow is how long cached configs are trusted.
	FreshnessWindow time.Duration `yaml:"freshness_window"`

	// OutputDir and OutputFormat control record export.
	OutputDir    string `yaml:"output_dir"`
	OutputFormat string `yaml:"output_format"`

	// DatabasePath is the SQLite run history location. Empty disables
	// run persistence.
	DatabasePath string `yaml:"database_path"`

	// RequestTimeout bounds each page request.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxRetries is the total attempt budget per page, including the
	// first try.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the base backoff delay, doubled per attempt.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// CompleteThreshold is the item count treated as a complete catalog
	// when the payload reports no total.
	CompleteThreshold int `yaml:"complete_threshold"`

	// Concurrency bounds parallel target extraction.
	Concurrency int `yaml:"concurrency"`

	// RunTimeout bounds one target's discovery plus pagination.
	RunTimeout time.Duration `yaml:"run_timeout"`

	// RequestsPerSecond is the per-host request rate limit.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// CaptureWindow is how long traffic observation collects background
	// requests after page load.
	CaptureWindow time.Duration `yaml:"capture_window"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CacheDir:          ".catfetch/cache",
		CacheEnabled:      true,
		FreshnessWindow:   24 * time.Hour,
		OutputDir:         "output",
		OutputFormat:      "json",
		DatabasePath:      ".catfetch/runs.db",
		RequestTimeout:    30 * time.Second,
		MaxRetries:        3,
		RetryDelay:        time.Second,
		CompleteThreshold: 50,
		Concurrency:       4,
		RunTimeout:        10 * time.Minute,
		RequestsPerSecond: 2,
		CaptureWindow:     10 * time.Second,
	}
}

// Load reads a YAML config file, fills in defaults, and applies
// environment overrides. An empty path returns the defaults with
// environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, catfetch.Errorf(catfetch.EINVALID, "reading config %s: %v", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, catfetch.Errorf(catfetch.EINVALID, "parsing config %s: %v", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv applies CATFETCH_* environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("CATFETCH_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("CATFETCH_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("CATFETCH_OUTPUT_FORMAT"); v != "" {
		c.OutputFormat = v
	}
	if v := os.Getenv("CATFETCH_DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("CATFETCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
	if v := os.Getenv("CATFETCH_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CacheEnabled = b
		}
	}
}

// Validate returns an error if the configuration is unusable.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case "json", "csv":
	default:
		return catfetch.Errorf(catfetch.EINVALID, "output format must be json or csv, got %q", c.OutputFormat)
	}
	if c.MaxRetries < 1 {
		return catfetch.Errorf(catfetch.EINVALID, "max retries must be at least 1")
	}
	if c.Concurrency < 1 {
		return catfetch.Errorf(catfetch.EINVALID, "concurrency must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		return catfetch.Errorf(catfetch.EINVALID, "request timeout must be positive")
	}
	if c.RequestsPerSecond <= 0 {
		return catfetch.Errorf(catfetch.EINVALID, "requests per second must be positive")
	}
	return nil
}

// RetryDelays expands MaxRetries and RetryDelay into the backoff
// schedule the pagination driver consumes. The driver's attempt budget
// per page is len(delays)+1, so MaxRetries attempts means MaxRetries-1
// delays. MaxRetries of 1 yields an empty (non-nil) schedule so the
// driver does not fall back to its default delays.
func (c *Config) RetryDelays() []time.Duration {
	if c.MaxRetries <= 1 {
		return []time.Duration{}
	}
	return paginate.ExponentialDelays(c.MaxRetries, c.RetryDelay)
}
