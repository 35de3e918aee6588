// Package config loads service configuration from an optional YAML file
// overlaid with SENTRY_* environment variables. Nested keys map through
// double underscores: SENTRY_INFERENCE__MODEL sets inference.model.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Inference InferenceConfig `koanf:"inference"`
	Agent     AgentConfig     `koanf:"agent"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Logging   LoggingConfig   `koanf:"logging"`
	Tracing   TracingConfig   `koanf:"tracing"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int `koanf:"port"`
	ReadTimeoutSec int `koanf:"read_timeout_sec"`
	// WriteTimeoutSec must cover a full agent run, which may include
	// several model round trips.
	WriteTimeoutSec int `koanf:"write_timeout_sec"`
}

// DatabaseConfig configures the PeopleSoft data source.
type DatabaseConfig struct {
	Driver            string `koanf:"driver"`
	DSN               string `koanf:"dsn"`
	SeedDemoData      bool   `koanf:"seed_demo_data"`
	QueryTimeoutSec   int    `koanf:"query_timeout_sec"`
	CriticalThreshold int    `koanf:"critical_threshold"`
	LookbackHours     int    `koanf:"lookback_hours"`
}

// InferenceConfig selects and configures the model backend.
type InferenceConfig struct {
	// Provider is one of "ollama", "openai", "anthropic", "mock".
	Provider    string  `koanf:"provider"`
	Model       string  `koanf:"model"`
	BaseURL     string  `koanf:"base_url"`
	APIKey      string  `koanf:"api_key"`
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
}

// AgentConfig bounds the diagnostic loop.
type AgentConfig struct {
	MaxIterations  int `koanf:"max_iterations"`
	CallTimeoutSec int `koanf:"call_timeout_sec"`

	// AuditLog is a JSONL file recording every run's model round trips
	// and tool executions. Empty disables audit logging.
	AuditLog string `koanf:"audit_log"`
}

// CatalogConfig points at an optional procedure catalog override.
type CatalogConfig struct {
	// Path is a YAML file replacing the builtin procedure library.
	// Empty means use the builtin catalog.
	Path string `koanf:"path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// TracingConfig configures OTLP span export.
type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	TLSCAPath   string `koanf:"tls_ca_path"`
	TLSInsecure bool   `koanf:"tls_insecure"`
}

// QueryTimeout returns the per-query bound as a duration.
func (d DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(d.QueryTimeoutSec) * time.Second
}

// Lookback returns the default fetch window as a duration.
func (d DatabaseConfig) Lookback() time.Duration {
	return time.Duration(d.LookbackHours) * time.Hour
}

// CallTimeout returns the per-model-call bound as a duration.
func (a AgentConfig) CallTimeout() time.Duration {
	return time.Duration(a.CallTimeoutSec) * time.Second
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeoutSec:  30,
			WriteTimeoutSec: 300,
		},
		Database: DatabaseConfig{
			Driver:            "sqlite",
			DSN:               "file:sentry.db?cache=shared",
			SeedDemoData:      true,
			QueryTimeoutSec:   10,
			CriticalThreshold: 5,
			LookbackHours:     24,
		},
		Inference: InferenceConfig{
			Provider:    "ollama",
			Model:       "llama3.3",
			BaseURL:     "http://localhost:11434/v1",
			MaxTokens:   4096,
			Temperature: 0,
		},
		Agent: AgentConfig{
			MaxIterations:  5,
			CallTimeoutSec: 120,
		},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

// Load reads configuration from the given YAML file (optional, may be
// empty) and overlays SENTRY_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if _, err := os.Stat("sentry.yaml"); err == nil {
		if err := k.Load(file.Provider("sentry.yaml"), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load sentry.yaml: %w", err)
		}
	}

	if err := k.Load(env.Provider("SENTRY_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "SENTRY_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database.driver must not be empty")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn must not be empty")
	}
	if c.Database.CriticalThreshold < 0 {
		return fmt.Errorf("database.critical_threshold must not be negative")
	}
	if c.Database.LookbackHours < 1 {
		return fmt.Errorf("database.lookback_hours must be at least 1")
	}
	switch c.Inference.Provider {
	case "ollama", "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("inference.provider must be one of ollama, openai, anthropic, mock; got %q", c.Inference.Provider)
	}
	if c.Inference.Model == "" {
		return fmt.Errorf("inference.model must not be empty")
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be at least 1")
	}
	if c.Agent.CallTimeoutSec < 1 {
		return fmt.Errorf("agent.call_timeout_sec must be at least 1")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint must be set when tracing is enabled")
	}
	return nil
}
