package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbtrace/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.LoadFromDir("", dir, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, config.DefaultManifestPath), cfg.ManifestPath)
	assert.Equal(t, config.DefaultListen, cfg.Listen)
	assert.False(t, cfg.Watch)
	assert.Equal(t, config.DefaultTraceDepth, cfg.TraceDepth)
	assert.Equal(t, config.DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, dir, cfg.ProjectRoot)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dbtrace.yaml"), `
manifest: artifacts/manifest.json
listen: "0.0.0.0:9000"
watch: true
trace_depth: 3
`)

	cfg, err := config.LoadFromDir("", dir, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "artifacts/manifest.json"), cfg.ManifestPath)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 3, cfg.TraceDepth)
	assert.Equal(t, config.DefaultCacheSize, cfg.CacheSize)
}

func TestLoadFindsConfigUpward(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dbtrace.yml"), "listen: \"localhost:7777\"\n")
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := config.LoadFromDir("", nested, nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost:7777", cfg.Listen)
	assert.Equal(t, root, cfg.ProjectRoot)
}

func TestLoadExplicitFileWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dbtrace.yaml"), "listen: \"localhost:1111\"\n")
	explicit := filepath.Join(dir, "other.yaml")
	writeFile(t, explicit, "listen: \"localhost:2222\"\n")

	cfg, err := config.LoadFromDir(explicit, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:2222", cfg.Listen)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dbtrace.yaml"), "listen: \"localhost:1111\"\n")
	t.Setenv("DBTRACE_LISTEN", "localhost:3333")
	t.Setenv("DBTRACE_LOG_LEVEL", "debug")

	cfg, err := config.LoadFromDir("", dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3333", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DBTRACE_LISTEN", "localhost:3333")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", "", "")
	flags.Int("cache-size", 0, "")
	flags.String("unrelated", "", "")
	require.NoError(t, flags.Parse([]string{"--listen", "localhost:4444", "--cache-size", "64"}))

	cfg, err := config.LoadFromDir("", dir, flags)
	require.NoError(t, err)
	assert.Equal(t, "localhost:4444", cfg.Listen)
	assert.Equal(t, 64, cfg.CacheSize)
}

func TestLoadUnsetFlagsIgnored(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dbtrace.yaml"), "listen: \"localhost:5555\"\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", "default-should-not-apply", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := config.LoadFromDir("", dir, flags)
	require.NoError(t, err)
	assert.Equal(t, "localhost:5555", cfg.Listen)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dbtrace.yaml"), "cache_size: -5\n")

	_, err := config.LoadFromDir("", dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache_size")
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"", false},
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"ERROR", false},
		{"loud", true},
	}
	for _, tt := range tests {
		cfg := &config.Config{LogLevel: tt.level}
		_, err := cfg.SlogLevel()
		if tt.wantErr {
			assert.Error(t, err, tt.level)
		} else {
			assert.NoError(t, err, tt.level)
		}
	}
}
