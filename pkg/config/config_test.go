package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(contents), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	writeConfig(t, "env: test\n")

	cfg, err := Load("v1.2.3")
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.Jobs.MaxConcurrent)
	assert.Equal(t, 1000, cfg.Jobs.SyncRowLimit)
}

func TestLoadYAMLValues(t *testing.T) {
	writeConfig(t, `
port: "9000"
redis:
  addr: redis.internal:6379
openai:
  base_url: https://api.openai.com/v1
  model: gpt-4o-mini
jobs:
  sync_row_limit: 50
`)

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.True(t, cfg.OpenAI.Configured())
	assert.False(t, cfg.Ollama.Configured())
	assert.Equal(t, 50, cfg.Jobs.SyncRowLimit)
}

func TestLoadEnvOverrides(t *testing.T) {
	writeConfig(t, "port: \"9000\"\n")
	t.Setenv("PORT", "7000")
	t.Setenv("REDIS_ADDR", "override:6379")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example/v1")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "override:6379", cfg.Redis.Addr)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.True(t, cfg.OpenAI.Configured())
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load("dev")
	require.Error(t, err)
}
