package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "ollama", cfg.Inference.Provider)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, 24, cfg.Database.LookbackHours)
	assert.True(t, cfg.Database.SeedDemoData)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentry.yaml")
	data := []byte(`
server:
  port: 9090
inference:
  provider: anthropic
  model: claude-sonnet-4-5
database:
  critical_threshold: 10
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Inference.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Inference.Model)
	assert.Equal(t, 10, cfg.Database.CriticalThreshold)
	// untouched keys keep their defaults
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("SENTRY_SERVER__PORT", "7070")
	t.Setenv("SENTRY_INFERENCE__MODEL", "qwen2.5")
	t.Setenv("SENTRY_DATABASE__SEED_DEMO_DATA", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "qwen2.5", cfg.Inference.Model)
	assert.False(t, cfg.Database.SeedDemoData)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/sentry.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errTxt string
	}{
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			errTxt: "server.port",
		},
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.Inference.Provider = "bedrock" },
			errTxt: "inference.provider",
		},
		{
			name:   "empty model",
			mutate: func(c *Config) { c.Inference.Model = "" },
			errTxt: "inference.model",
		},
		{
			name:   "zero iterations",
			mutate: func(c *Config) { c.Agent.MaxIterations = 0 },
			errTxt: "agent.max_iterations",
		},
		{
			name:   "negative threshold",
			mutate: func(c *Config) { c.Database.CriticalThreshold = -1 },
			errTxt: "database.critical_threshold",
		},
		{
			name:   "empty dsn",
			mutate: func(c *Config) { c.Database.DSN = "" },
			errTxt: "database.dsn",
		},
		{
			name:   "tracing without endpoint",
			mutate: func(c *Config) { c.Tracing.Enabled = true },
			errTxt: "tracing.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errTxt)
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "10s", cfg.Database.QueryTimeout().String())
	assert.Equal(t, "24h0m0s", cfg.Database.Lookback().String())
	assert.Equal(t, "2m0s", cfg.Agent.CallTimeout().String())
}
