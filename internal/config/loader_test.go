package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanupEnv(keys ...string) func() {
	original := make(map[string]string)
	for _, key := range keys {
		original[key] = os.Getenv(key)
	}
	return func() {
		for _, key := range keys {
			if val, ok := original[key]; ok && val != "" {
				os.Setenv(key, val)
			} else {
				os.Unsetenv(key)
			}
		}
	}
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromDirectory(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig().Guardian, cfg.Guardian)
	assert.Equal(t, DefaultConfig().Retry, cfg.Retry)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".dhtconfig.yaml")

	content := `
guardian:
  memory_mb: 1024
  timeout_seconds: 60
operations:
  run:
    cpu_percent: 200
tools:
  - name: terraform
    version_command: terraform version
output:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Guardian.MemoryMB)
	assert.Equal(t, 60, cfg.Guardian.TimeoutSeconds)
	// Defaults survive a partial file.
	assert.Equal(t, 80, cfg.Guardian.CPUPercent)
	assert.Equal(t, 200, cfg.Operations.Run.CPUPercent)
	assert.Equal(t, "json", cfg.Output.Format)

	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, "terraform", cfg.Tools[0].Name)
}

func TestLoadFromDirectoryFindsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dhtconfig.yml")
	require.NoError(t, os.WriteFile(path, []byte("guardian:\n  memory_mb: 128\n"), 0o644))

	cfg, err := LoadFromDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Guardian.MemoryMB)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestWriteConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".dhtconfig.yaml")

	cfg := DefaultConfig()
	cfg.Guardian.MemoryMB = 4096
	cfg.Tools = []ToolConfig{{Name: "act", InstallHint: "brew install act"}}

	require.NoError(t, WriteConfig(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, loaded.Guardian.MemoryMB)
	require.Len(t, loaded.Tools, 1)
	assert.Equal(t, "act", loaded.Tools[0].Name)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	cleanup := cleanupEnv("DHT_TEST_SNAPDIR")
	defer cleanup()
	os.Setenv("DHT_TEST_SNAPDIR", "/var/snapshots")

	dir := t.TempDir()
	path := filepath.Join(dir, ".dhtconfig.yaml")
	content := "snapshot:\n  file: ${DHT_TEST_SNAPDIR}/env.yaml\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/snapshots/env.yaml", cfg.Snapshot.File)
}

func TestExpandEnvVar(t *testing.T) {
	cleanup := cleanupEnv("TOKEN_VALUE", "FALLBACK")
	defer cleanup()

	os.Setenv("TOKEN_VALUE", "abc123")
	os.Setenv("FALLBACK", "fallback")

	value := expandEnvVar("prefix-${TOKEN_VALUE}-suffix:$MISSING:${MISSING:-default}:${FALLBACK}")

	if !strings.Contains(value, "abc123") {
		t.Fatalf("expected TOKEN_VALUE to expand, got %q", value)
	}
	if !strings.Contains(value, "default") {
		t.Fatalf("expected default to be used, got %q", value)
	}
	if !strings.Contains(value, "fallback") {
		t.Fatalf("expected FALLBACK to expand, got %q", value)
	}
	if !strings.Contains(value, "$MISSING") {
		t.Fatalf("expected unset $MISSING to be left alone, got %q", value)
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	_, err := FindConfigFile(dir)
	require.Error(t, err)
	assert.False(t, ConfigExists(dir))

	path := filepath.Join(dir, ".dhtconfig.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	found, err := FindConfigFile(dir)
	require.NoError(t, err)
	assert.Equal(t, path, found)
	assert.True(t, ConfigExists(dir))
}
