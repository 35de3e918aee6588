package match

import (
	"testing"
	"time"

	"github.com/psops/sentry/internal/models"
	"github.com/psops/sentry/internal/sop"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	catalog, err := sop.BuiltinCatalog()
	if err != nil {
		t.Fatalf("BuiltinCatalog: %v", err)
	}
	return NewMatcher(catalog)
}

func record(source models.SourceKind, id, text string) models.ErrorRecord {
	return models.ErrorRecord{
		SourceKind:  source,
		Identifier:  id,
		MessageText: text,
		OccurredAt:  time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
	}
}

func TestMatch_PreservesOrderAndCardinality(t *testing.T) {
	m := newTestMatcher(t)
	records := []models.ErrorRecord{
		record(models.SourceProcess, "5001", "SQL Error: ORA-01555 Snapshot too old"),
		record(models.SourceIntegrationBroker, "TXN-1001", "SOAP Fault: Connection refused"),
		record(models.SourceProcess, "5002", "disk full on node7"),
	}

	results := m.Match(records)
	if len(results) != len(records) {
		t.Fatalf("got %d results for %d records", len(results), len(records))
	}

	wantKeys := []string{"ora-01555", "ib-connection-refused", "generic-process-error"}
	for i, r := range results {
		if r.Error.Identifier != records[i].Identifier {
			t.Errorf("result %d reordered: got %s, want %s", i, r.Error.Identifier, records[i].Identifier)
		}
		if r.Procedure.Key != wantKeys[i] {
			t.Errorf("result %d procedure = %q, want %q", i, r.Procedure.Key, wantKeys[i])
		}
	}
}

func TestMatch_FallbackReportsNoPattern(t *testing.T) {
	m := newTestMatcher(t)
	results := m.Match([]models.ErrorRecord{
		record(models.SourceProcess, "5003", "something entirely novel"),
	})
	if results[0].Procedure.Key != "generic-process-error" {
		t.Fatalf("procedure = %q, want generic-process-error", results[0].Procedure.Key)
	}
	if results[0].MatchedPattern != "" {
		t.Errorf("fallback result carries pattern %q, want empty", results[0].MatchedPattern)
	}
}

func TestMatch_EmptyInput(t *testing.T) {
	m := newTestMatcher(t)
	results := m.Match(nil)
	if len(results) != 0 {
		t.Errorf("got %d results for no records", len(results))
	}
}

func TestMatchOne(t *testing.T) {
	m := newTestMatcher(t)
	proc, pattern := m.MatchOne("ABN: PYCHKUSA - Company not found for Pay Run ID PAY_CHK_02")
	if proc.Key != "pychkusa-company-not-found" {
		t.Errorf("procedure = %q, want pychkusa-company-not-found", proc.Key)
	}
	if pattern == "" {
		t.Error("expected a matched pattern")
	}
}
