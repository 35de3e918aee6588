// Package match binds raw PeopleSoft error records to the standard
// operating procedure that covers them. Matching is deterministic:
// the same records and the same catalog always yield the same results,
// in the same order.
package match

import (
	"github.com/psops/sentry/internal/models"
	"github.com/psops/sentry/internal/sop"
)

// Result pairs one error record with the procedure selected for it.
// MatchedPattern is the trigger that fired, or empty when the catalog
// fallback was used.
type Result struct {
	Error          models.ErrorRecord `json:"error"`
	Procedure      sop.Procedure      `json:"procedure"`
	MatchedPattern string             `json:"matched_pattern,omitempty"`
}

// Matcher resolves error records against a procedure catalog.
type Matcher struct {
	catalog *sop.Catalog
}

// NewMatcher returns a matcher backed by the given catalog.
func NewMatcher(catalog *sop.Catalog) *Matcher {
	return &Matcher{catalog: catalog}
}

// Match resolves every record to a procedure. Each input record yields
// exactly one result, and results keep the input order.
func (m *Matcher) Match(records []models.ErrorRecord) []Result {
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		proc, pattern := m.catalog.Lookup(rec.MessageText)
		results = append(results, Result{
			Error:          rec,
			Procedure:      proc,
			MatchedPattern: pattern,
		})
	}
	return results
}

// MatchOne resolves a single error text without a full record, used by
// the lookup tool where only the message is known.
func (m *Matcher) MatchOne(errorText string) (sop.Procedure, string) {
	return m.catalog.Lookup(errorText)
}
