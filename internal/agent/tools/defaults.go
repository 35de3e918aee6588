package tools

import (
	"github.com/psops/sentry/internal/datasource"
	"github.com/psops/sentry/internal/match"
)

// NewDefaultRegistry wires the standard diagnostic tool set. The set is
// fixed for the lifetime of the process.
func NewDefaultRegistry(source datasource.Source, matcher *match.Matcher) *Registry {
	r := NewRegistry()
	r.Register(NewIBErrorsTool(source))
	r.Register(NewProcessErrorsTool(source))
	r.Register(NewSystemSummaryTool(source))
	r.Register(NewLookupSOPTool(matcher))
	return r
}
