package assemble

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psops/sentry/internal/agent/provider"
	"github.com/psops/sentry/internal/match"
	"github.com/psops/sentry/internal/models"
	"github.com/psops/sentry/internal/sop"
)

func TestSystemPrompt_ContainsCatalogAndTools(t *testing.T) {
	catalog, err := sop.BuiltinCatalog()
	require.NoError(t, err)

	tools := []provider.ToolDefinition{
		{Name: "get_ib_errors", Description: "Fetches Integration Broker message errors. Extra detail here."},
		{Name: "lookup_sop", Description: "Resolves an error message to a procedure."},
	}
	prompt := SystemPrompt(catalog, tools)

	assert.Contains(t, prompt, "PeopleSoft Sentry")
	assert.Contains(t, prompt, "`get_ib_errors`")
	assert.Contains(t, prompt, "`lookup_sop`")
	// Tool listing keeps only the first sentence of the description.
	assert.NotContains(t, prompt, "Extra detail here")

	for _, p := range catalog.Procedures() {
		assert.Contains(t, prompt, p.Title, "prompt missing procedure %s", p.Key)
	}
}

func TestSOPHits_SourceMapping(t *testing.T) {
	catalog, err := sop.BuiltinCatalog()
	require.NoError(t, err)
	matcher := match.NewMatcher(catalog)

	results := matcher.Match([]models.ErrorRecord{
		{
			SourceKind:  models.SourceIntegrationBroker,
			Identifier:  "TXN-1002",
			MessageText: "SOAP Fault: Connection refused",
		},
		{
			SourceKind:  models.SourceProcess,
			Identifier:  "5004",
			MessageText: "ABN: PYCHKUSA - Company not found",
			Detail:      map[string]string{"process_name": "PYCHKUSA"},
		},
	})

	hits := SOPHits(results)
	require.Len(t, hits, 2)

	assert.Equal(t, "IB", hits[0].Source)
	assert.Equal(t, "ib-connection-refused", hits[0].SOPKey)
	assert.Empty(t, hits[0].Process)

	assert.Equal(t, "Process", hits[1].Source)
	assert.Equal(t, "PYCHKUSA", hits[1].Process)
	assert.Equal(t, "pychkusa-company-not-found", hits[1].SOPKey)
	assert.NotEmpty(t, hits[1].EscalateTo)
}

func TestRenderFindings(t *testing.T) {
	catalog, err := sop.BuiltinCatalog()
	require.NoError(t, err)
	matcher := match.NewMatcher(catalog)

	results := matcher.Match([]models.ErrorRecord{
		{
			SourceKind:  models.SourceProcess,
			Identifier:  "5002",
			MessageText: "SQL Error: ORA-01555 Snapshot too old",
		},
	})
	summary := models.SystemSummary{
		IBErrorCount:      0,
		ProcessErrorCount: 1,
		OverallStatus:     models.StatusDegraded,
	}

	prompt := RenderFindings(results, summary)

	assert.True(t, strings.HasPrefix(prompt, "Perform a PeopleSoft health check"))
	assert.Contains(t, prompt, "SYSTEM SUMMARY:")
	assert.Contains(t, prompt, "PROCESS ERRORS:")
	assert.Contains(t, prompt, "ORA-01555")
	assert.Contains(t, prompt, "Root-Cause Analysis")
}
