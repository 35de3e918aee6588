package commands

import (
	"context"
	"fmt"

	"github.com/psops/sentry/internal/agent/assemble"
	"github.com/psops/sentry/internal/agent/audit"
	"github.com/psops/sentry/internal/agent/loop"
	"github.com/psops/sentry/internal/agent/provider"
	"github.com/psops/sentry/internal/agent/tools"
	"github.com/psops/sentry/internal/config"
	"github.com/psops/sentry/internal/datasource"
	"github.com/psops/sentry/internal/match"
	"github.com/psops/sentry/internal/sop"
)

// core bundles the wired diagnostic components shared by the server and
// the one-shot check command.
type core struct {
	catalog  *sop.Catalog
	source   *datasource.SQLSource
	matcher  *match.Matcher
	registry *tools.Registry
	loop     *loop.Loop
	audit    *audit.Logger
}

// Close releases resources that outlive the lifecycle manager.
func (c *core) Close() {
	if c.audit != nil {
		c.audit.Close()
	}
}

// buildCore wires the catalog, data source, matcher, tool registry and
// agent loop from configuration. Catalog validation failures are fatal;
// a service with a broken procedure library must not come up.
func buildCore(ctx context.Context, cfg *config.Config) (*core, error) {
	catalog, err := sop.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("procedure catalog: %w", err)
	}

	source, err := datasource.NewSQL(ctx, datasource.Config{
		Driver:            cfg.Database.Driver,
		DSN:               cfg.Database.DSN,
		CriticalThreshold: cfg.Database.CriticalThreshold,
		QueryTimeout:      cfg.Database.QueryTimeout(),
		SeedDemoData:      cfg.Database.SeedDemoData,
	})
	if err != nil {
		return nil, fmt.Errorf("data source: %w", err)
	}

	matcher := match.NewMatcher(catalog)
	registry := tools.NewDefaultRegistry(source, matcher)

	modelProvider, err := buildProvider(cfg.Inference)
	if err != nil {
		source.Close()
		return nil, fmt.Errorf("inference provider: %w", err)
	}

	systemPrompt := assemble.SystemPrompt(catalog, registry.ToProviderTools())
	agentLoop := loop.New(modelProvider, registry, systemPrompt, loop.Config{
		MaxIterations: cfg.Agent.MaxIterations,
		CallTimeout:   cfg.Agent.CallTimeout(),
	})

	var auditLogger *audit.Logger
	if cfg.Agent.AuditLog != "" {
		auditLogger, err = audit.NewLogger(cfg.Agent.AuditLog)
		if err != nil {
			source.Close()
			return nil, fmt.Errorf("audit log: %w", err)
		}
		agentLoop.WithAudit(auditLogger)
	}

	return &core{
		catalog:  catalog,
		source:   source,
		matcher:  matcher,
		registry: registry,
		loop:     agentLoop,
		audit:    auditLogger,
	}, nil
}

func buildProvider(cfg config.InferenceConfig) (provider.Provider, error) {
	pcfg := provider.Config{
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	switch cfg.Provider {
	case "anthropic":
		return provider.NewAnthropicProvider(pcfg)
	case "openai":
		return provider.NewOpenAIProvider(pcfg)
	case "ollama":
		return provider.NewOllamaProvider(pcfg)
	case "mock":
		// Canned offline provider for demos and smoke tests.
		return provider.NewMockProvider(&provider.Response{
			Content:    "Mock inference is active; no model was consulted. Configure inference.provider to get real analysis.",
			StopReason: provider.StopReasonEndTurn,
		}), nil
	}
	return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
}
