package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "dbtrace.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "dbtrace.yml"

// maxUpwardSearchLevels limits how far up the directory tree to search for
// config files.
const maxUpwardSearchLevels = 10

type configKey struct{}
type loggerKey struct{}

// NewContext returns a context carrying the loaded config.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config stored by NewContext.
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	return cfg, ok
}

// WithLogger returns a context carrying a logger.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// Logger retrieves the logger from the context.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// configExistsIn checks if a dbtrace config file exists in the directory.
func configExistsIn(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFile locates the config file to use.
// Priority: explicit path > dbtrace.yaml walking up from startDir.
func findConfigFile(explicit, startDir string) string {
	if explicit != "" {
		return explicit
	}
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if path := configExistsIn(dir); path != "" {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir unless it is
// empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load builds a Config from defaults, the config file, DBTRACE_ environment
// variables, and CLI flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadFromDir(cfgFile, "", flags)
}

// LoadFromDir is Load with an explicit starting directory for the upward
// config file search. An empty startDir means the working directory.
func LoadFromDir(cfgFile, startDir string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if startDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		startDir = cwd
	}

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"manifest":    DefaultManifestPath,
		"listen":      DefaultListen,
		"watch":       false,
		"trace_depth": DefaultTraceDepth,
		"cache_size":  DefaultCacheSize,
		"log_level":   DefaultLogLevel,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// 2. Config file, if one exists.
	configFileUsed := findConfigFile(cfgFile, startDir)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables: DBTRACE_TRACE_DEPTH -> trace_depth.
	if err := k.Load(env.Provider("DBTRACE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DBTRACE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	// 4. Flags, only those explicitly set.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// Relative manifest paths resolve against the config file's directory,
	// falling back to the starting directory.
	cfg.ProjectRoot = startDir
	if configFileUsed != "" {
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			cfg.ProjectRoot = filepath.Dir(abs)
		}
	}
	if flags == nil || !flags.Changed("manifest") {
		cfg.ManifestPath = resolvePathRelativeTo(cfg.ManifestPath, cfg.ProjectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
