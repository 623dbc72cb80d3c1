package profiler

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/APIProfiler/internal/logger"
)

// Config holds all profiler configuration.
type Config struct {
	// Cache directory. Empty selects the user cache directory with a
	// working-directory fallback.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// Cache file name without extension
	CacheName string `json:"cache_name" yaml:"cache_name"`

	// Maximum age of cached results; zero or negative disables caching
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// Expected number of distinct endpoints, sizes the dedup filter
	EstimatedEndpoints int `json:"estimated_endpoints" yaml:"estimated_endpoints"`

	// Logging
	LogLevel   string `json:"log_level" yaml:"log_level"`
	PrettyLogs bool   `json:"pretty_logs" yaml:"pretty_logs"`
	Verbose    bool   `json:"verbose" yaml:"verbose"`
	Debug      bool   `json:"debug" yaml:"debug"`
}

// DefaultConfig returns a configuration with sensible defaults for
// server-style use: results are reused for an hour.
func DefaultConfig() *Config {
	return &Config{
		CacheName:          "results",
		CacheTTL:           time.Hour,
		EstimatedEndpoints: 10000,
		LogLevel:           "info",
		PrettyLogs:         true,
	}
}

// BatchConfig returns a configuration for CLI-style batch use, where
// re-runs over the same evidence are common: results are reused for a
// week.
func BatchConfig() *Config {
	cfg := DefaultConfig()
	cfg.CacheTTL = 7 * 24 * time.Hour
	return cfg
}

// LoadConfig loads configuration from a file (JSON or YAML), layered on
// top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// Validate validates the configuration and fills defaulted fields.
func (c *Config) Validate() error {
	if c.CacheName == "" {
		c.CacheName = "results"
	}
	if c.EstimatedEndpoints < 1 {
		c.EstimatedEndpoints = 10000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// loggerConfig translates the profiler configuration into a logger one.
func (c *Config) loggerConfig(component string) logger.Config {
	level := logger.InfoLevel
	if parsed, err := logger.ParseLevel(c.LogLevel); err == nil {
		level = parsed
	}
	if c.Verbose {
		level = logger.InfoLevel
	}
	if c.Debug {
		level = logger.DebugLevel
	}
	cfg := logger.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.PrettyLogs
	cfg.Component = component
	return cfg
}
