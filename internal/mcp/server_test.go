package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psops/sentry/internal/agent/tools"
	"github.com/psops/sentry/internal/datasource"
	"github.com/psops/sentry/internal/match"
	"github.com/psops/sentry/internal/models"
	"github.com/psops/sentry/internal/sop"
)

type stubSource struct{}

func (s *stubSource) FetchIBErrors(ctx context.Context, lookback time.Duration) ([]models.ErrorRecord, error) {
	return nil, nil
}

func (s *stubSource) FetchProcessErrors(ctx context.Context, lookback time.Duration) ([]models.ErrorRecord, error) {
	return nil, nil
}

func (s *stubSource) FetchSummary(ctx context.Context) (models.SystemSummary, error) {
	return models.SystemSummary{OverallStatus: models.StatusHealthy}, nil
}

func (s *stubSource) Ping(ctx context.Context) error { return nil }

func (s *stubSource) Close() error { return nil }

var _ datasource.Source = (*stubSource)(nil)

func newTestRegistry(t *testing.T) (*tools.Registry, *sop.Catalog) {
	t.Helper()
	catalog, err := sop.BuiltinCatalog()
	require.NoError(t, err)
	return tools.NewDefaultRegistry(&stubSource{}, match.NewMatcher(catalog)), catalog
}

func TestNewSentryServer(t *testing.T) {
	registry, catalog := newTestRegistry(t)

	// registration panics on malformed schemas; construction succeeding
	// means every registry tool produced a valid MCP definition
	s := NewSentryServer(registry, catalog, "0.0.1-test")
	require.NotNil(t, s)
	assert.NotNil(t, s.MCPServer())
}

func TestCreateToolHandler(t *testing.T) {
	registry, catalog := newTestRegistry(t)
	s := NewSentryServer(registry, catalog, "0.0.1-test")

	handler := s.createToolHandler("get_system_summary")
	require.NotNil(t, handler)
}
