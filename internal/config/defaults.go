package config

// Default configuration values.
const (
	DefaultManifestPath = "target/manifest.json"
	DefaultListen       = "127.0.0.1:8585"
	DefaultTraceDepth   = -1
	DefaultCacheSize    = 512
	DefaultLogLevel     = "info"
)

// ApplyDefaults fills zero-valued fields with defaults.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.ManifestPath == "" {
		c.ManifestPath = DefaultManifestPath
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}
