// Package config loads dbtrace configuration from files, environment
// variables, and CLI flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config holds the full runtime configuration.
type Config struct {
	// ManifestPath is the path to the dbt manifest.json artifact.
	ManifestPath string `koanf:"manifest"`

	// Listen is the address the HTTP server binds to.
	Listen string `koanf:"listen"`

	// Watch enables automatic reload when the manifest file changes.
	Watch bool `koanf:"watch"`

	// TraceDepth is the default depth bound for lineage and trace queries
	// when the request does not specify one. Negative means unbounded.
	TraceDepth int `koanf:"trace_depth"`

	// CacheSize is the number of column-analysis results to keep in memory.
	CacheSize int `koanf:"cache_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// ProjectRoot is the directory the config file was found in, or the
	// working directory when no config file exists. Relative paths in the
	// config resolve against it.
	ProjectRoot string `koanf:"-"`
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ManifestPath == "" {
		return fmt.Errorf("manifest path is required")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured log level to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
}
