// Package assemble builds the prompts handed to the model: the system
// prompt with the procedure knowledge base baked in, and the synthesis
// prompt used by the automated health check.
package assemble

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/psops/sentry/internal/agent/provider"
	"github.com/psops/sentry/internal/match"
	"github.com/psops/sentry/internal/models"
	"github.com/psops/sentry/internal/sop"
)

// SystemPrompt renders the agent's system prompt. The entire procedure
// catalog is embedded so lookups need no retrieval round trip.
func SystemPrompt(catalog *sop.Catalog, tools []provider.ToolDefinition) string {
	var b strings.Builder

	b.WriteString(`You are PeopleSoft Sentry, an expert AIOps assistant specialised in
PeopleSoft Production Support. You have access to live database tools
and a pre-loaded SOP (Standard Operating Procedure) knowledge base.

## Your Responsibilities
1. Diagnose PeopleSoft issues using real-time data from database tools.
2. Match errors to SOPs from the knowledge base and surface actionable remediation steps.
3. Provide concise Root-Cause Analysis (RCA) and clear "Next Steps".
4. Escalate clearly when issues are beyond automated resolution.

## Response Format
Always structure your response as:
- **Observation**: What you found in the data.
- **Root Cause**: Most likely technical cause.
- **Next Steps**: Numbered, actionable remediation steps.
- **SOP Applied**: Which SOP was used (if any).
- **Escalation**: Who to contact if steps don't resolve the issue.

## Available Tools
You may call the following tools by requesting them in your response:
`)

	for _, tool := range tools {
		desc := tool.Description
		if idx := strings.IndexByte(desc, '.'); idx > 0 {
			desc = desc[:idx+1]
		}
		fmt.Fprintf(&b, "- `%s` - %s\n", tool.Name, desc)
	}

	b.WriteString(`
## Pre-Loaded SOP Knowledge Base (CAG)
The following SOPs are available. Apply the most relevant one when an error is identified.

`)
	b.WriteString(catalog.PromptBlock())

	return strings.TrimSpace(b.String())
}

// SOPHit is one procedure resolution surfaced by the health check.
type SOPHit struct {
	Source      string `json:"source"`
	Identifier  string `json:"identifier"`
	Process     string `json:"process,omitempty"`
	SOPKey      string `json:"sop_key"`
	SOPTitle    string `json:"sop_title"`
	Resolution  string `json:"resolution"`
	EscalateTo  string `json:"escalate_to"`
	Fallback    bool   `json:"fallback,omitempty"`
	MatchedText string `json:"matched_pattern,omitempty"`
}

// SOPHits converts matching engine results into the hit list returned
// by the health check, preserving result order.
func SOPHits(results []match.Result) []SOPHit {
	hits := make([]SOPHit, 0, len(results))
	for _, r := range results {
		hit := SOPHit{
			Identifier:  r.Error.Identifier,
			SOPKey:      r.Procedure.Key,
			SOPTitle:    r.Procedure.Title,
			Resolution:  strings.Join(r.Procedure.RemediationSteps, "; "),
			EscalateTo:  r.Procedure.EscalateTo,
			Fallback:    r.Procedure.Fallback,
			MatchedText: r.MatchedPattern,
		}
		switch r.Error.SourceKind {
		case models.SourceIntegrationBroker:
			hit.Source = "IB"
		case models.SourceProcess:
			hit.Source = "Process"
			hit.Process = r.Error.Detail["process_name"]
		}
		hits = append(hits, hit)
	}
	return hits
}

// RenderFindings formats the automated scan output into the narrative
// that seeds a one-click health check. Matching results keep their
// input order; the model receives the raw errors alongside the
// deterministic procedure resolutions.
func RenderFindings(results []match.Result, summary models.SystemSummary) string {
	var ibErrors, processErrors []models.ErrorRecord
	for _, r := range results {
		switch r.Error.SourceKind {
		case models.SourceIntegrationBroker:
			ibErrors = append(ibErrors, r.Error)
		case models.SourceProcess:
			processErrors = append(processErrors, r.Error)
		}
	}

	type matchedSOP struct {
		Title    string `json:"title"`
		Escalate string `json:"escalate"`
	}
	hits := SOPHits(results)
	matched := make([]matchedSOP, 0, len(hits))
	for _, h := range hits {
		matched = append(matched, matchedSOP{Title: h.SOPTitle, Escalate: h.EscalateTo})
	}

	var b strings.Builder
	b.WriteString("Perform a PeopleSoft health check based on this data:\n\n")
	fmt.Fprintf(&b, "SYSTEM SUMMARY:\n%s\n\n", mustJSON(summary))
	fmt.Fprintf(&b, "IB ERRORS:\n%s\n\n", mustJSON(ibErrors))
	fmt.Fprintf(&b, "PROCESS ERRORS:\n%s\n\n", mustJSON(processErrors))
	fmt.Fprintf(&b, "SOPs MATCHED:\n%s\n\n", mustJSON(matched))
	b.WriteString("Provide a concise Root-Cause Analysis and prioritised Next Steps.")
	return b.String()
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
