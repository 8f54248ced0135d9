package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 5, cfg.Retry.MaxConsecutiveFailures)
	assert.Equal(t, "sudo", cfg.Retry.ElevationTool)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Executor.GracePeriod)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
oracle:
  model: gpt-4o-mini
  base_url: https://api.openai.com/v1
retry:
  max_retries: 2
  elevation_tool: doas
executor:
  allowlist_extras: [git, df]
ssh_hosts:
  web:
    hostname: 10.0.0.5
    user: deploy
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "gpt-4o-mini", cfg.Oracle.Model)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, "doas", cfg.Retry.ElevationTool)
	// Unset fields keep their defaults.
	assert.Equal(t, 5, cfg.Retry.MaxConsecutiveFailures)
	assert.Equal(t, []string{"git", "df"}, cfg.Executor.AllowlistExtras)

	host, ok := cfg.SSHHosts["web"]
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", host.Hostname)
	assert.Equal(t, "deploy", host.User)
}

func TestLoadExplicitFalseDisablesJournal(t *testing.T) {
	path := writeConfig(t, "journal:\n  enabled: false\n  path: /tmp/j.db\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Journal.Enabled)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "log_level: [oops"))
	require.Error(t, err)
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("AISH_API_KEY", "from-env")
	t.Setenv("OPENAI_API_KEY", "ignored")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Oracle.APIKey)
}

func TestAPIKeyOpenAIFallback(t *testing.T) {
	t.Setenv("AISH_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "openai-key", cfg.Oracle.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"empty model", func(c *Config) { c.Oracle.Model = "" }},
		{"temperature out of range", func(c *Config) { c.Oracle.Temperature = 3 }},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }},
		{"zero consecutive ceiling", func(c *Config) { c.Retry.MaxConsecutiveFailures = 0 }},
		{"journal enabled without path", func(c *Config) { c.Journal.Enabled = true; c.Journal.Path = "" }},
		{"zero context size", func(c *Config) { c.MaxContextFileSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
