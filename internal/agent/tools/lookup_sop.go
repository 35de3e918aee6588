package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/psops/sentry/internal/faults"
	"github.com/psops/sentry/internal/match"
	"github.com/psops/sentry/internal/metrics"
)

// LookupSOPTool resolves an error message to a standard operating
// procedure through the deterministic matching engine.
type LookupSOPTool struct {
	matcher *match.Matcher
}

// NewLookupSOPTool creates the lookup_sop tool.
func NewLookupSOPTool(matcher *match.Matcher) *LookupSOPTool {
	return &LookupSOPTool{matcher: matcher}
}

func (t *LookupSOPTool) Name() string { return "lookup_sop" }

func (t *LookupSOPTool) Description() string {
	return "Looks up the standard operating procedure for an error message. " +
		"Matching is deterministic: the first procedure whose trigger pattern " +
		"appears in the error text wins, and unrecognized errors resolve to the " +
		"generic fallback procedure."
}

func (t *LookupSOPTool) InputSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"error_text"},
		"properties": map[string]any{
			"error_text": map[string]any{
				"type":        "string",
				"description": "The raw error message to resolve.",
			},
		},
	}
}

func (t *LookupSOPTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var args struct {
		ErrorText string `json:"error_text"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, faults.Wrap(faults.KindToolValidationError, err, "decode lookup_sop arguments")
	}

	proc, pattern := t.matcher.MatchOne(args.ErrorText)
	metrics.ProcedureMatches.WithLabelValues(proc.Key).Inc()

	return &Result{
		Success: true,
		Summary: fmt.Sprintf("Matched procedure %s", proc.Key),
		Data: map[string]any{
			"tool":            t.Name(),
			"procedure":       proc,
			"matched_pattern": pattern,
			"fallback":        proc.Fallback,
		},
	}, nil
}
