package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psops/sentry/internal/agent/loop"
	"github.com/psops/sentry/internal/agent/provider"
	"github.com/psops/sentry/internal/agent/tools"
	"github.com/psops/sentry/internal/datasource"
	"github.com/psops/sentry/internal/faults"
	"github.com/psops/sentry/internal/match"
	"github.com/psops/sentry/internal/models"
	"github.com/psops/sentry/internal/sop"
)

type stubSource struct {
	ibErrors      []models.ErrorRecord
	processErrors []models.ErrorRecord
	summary       models.SystemSummary
	err           error
	pingErr       error
}

func (s *stubSource) FetchIBErrors(ctx context.Context, lookback time.Duration) ([]models.ErrorRecord, error) {
	return s.ibErrors, s.err
}

func (s *stubSource) FetchProcessErrors(ctx context.Context, lookback time.Duration) ([]models.ErrorRecord, error) {
	return s.processErrors, s.err
}

func (s *stubSource) FetchSummary(ctx context.Context) (models.SystemSummary, error) {
	return s.summary, s.err
}

func (s *stubSource) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubSource) Close() error { return nil }

var _ datasource.Source = (*stubSource)(nil)

type fakeRunner struct {
	outcome    *loop.Outcome
	err        error
	gotMessage string
	gotHistory []provider.Message
}

func (f *fakeRunner) Run(ctx context.Context, userMessage string, history []provider.Message) (*loop.Outcome, error) {
	f.gotMessage = userMessage
	f.gotHistory = history
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func newTestServer(t *testing.T, source *stubSource, runner Runner) *Server {
	t.Helper()
	catalog, err := sop.BuiltinCatalog()
	require.NoError(t, err)
	matcher := match.NewMatcher(catalog)
	registry := tools.NewDefaultRegistry(source, matcher)
	return New(Config{Port: 0}, source, matcher, registry, runner)
}

func defaultSource() *stubSource {
	return &stubSource{
		ibErrors: []models.ErrorRecord{
			{
				SourceKind:  models.SourceIntegrationBroker,
				Identifier:  "TXN-1002",
				MessageText: "SOAP Fault: Connection refused - target node WMS_DEST unreachable",
				OccurredAt:  time.Now().UTC(),
				StatusCode:  "7",
			},
		},
		processErrors: []models.ErrorRecord{
			{
				SourceKind:  models.SourceProcess,
				Identifier:  "5002",
				MessageText: "SQL Error: ORA-01555 Snapshot too old: rollback segment too small",
				OccurredAt:  time.Now().UTC(),
				StatusCode:  "14",
				Detail:      map[string]string{"process_name": "NVISION_RPT"},
			},
		},
		summary: models.SystemSummary{
			IBTotalMessages:   5,
			IBErrorCount:      1,
			ProcessTotal:      5,
			ProcessErrorCount: 1,
			OverallStatus:     models.StatusDegraded,
		},
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	source := defaultSource()
	runner := &fakeRunner{outcome: &loop.Outcome{
		Answer: "Root cause: ORA-01555 during NVISION_RPT.",
		State:  loop.StateCompleted,
	}}
	srv := newTestServer(t, source, runner)

	rec := postJSON(t, srv.Handler(), "/api/health-check", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, models.StatusDegraded, resp.OverallStatus)
	assert.Equal(t, "Root cause: ORA-01555 during NVISION_RPT.", resp.Analysis)
	require.Len(t, resp.IBErrors, 1)
	require.Len(t, resp.ProcessErrors, 1)

	// both records must have matched a catalog procedure
	require.Len(t, resp.SOPs, 2)
	assert.Equal(t, "ib-connection-refused", resp.SOPs[0].SOPKey)
	assert.Equal(t, "ora-01555", resp.SOPs[1].SOPKey)

	// the rendered findings reach the runner
	assert.Contains(t, runner.gotMessage, "ORA-01555")
	assert.Contains(t, runner.gotMessage, "SYSTEM SUMMARY")
}

func TestHealthCheck_DataSourceDown(t *testing.T) {
	source := defaultSource()
	source.err = faults.New(faults.KindDataSourceUnavailable, "database unreachable")
	srv := newTestServer(t, source, &fakeRunner{})

	rec := postJSON(t, srv.Handler(), "/api/health-check", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "DataSourceUnavailable", envelope["error"])
}

func TestHealthCheck_InferenceFailure(t *testing.T) {
	runner := &fakeRunner{err: faults.New(faults.KindInferenceUnavailable, "model call timed out")}
	srv := newTestServer(t, defaultSource(), runner)

	rec := postJSON(t, srv.Handler(), "/api/health-check", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthCheck_IterationLimit(t *testing.T) {
	runner := &fakeRunner{err: faults.New(faults.KindIterationLimitExceeded, "model still requesting tools after 5 round trips")}
	srv := newTestServer(t, defaultSource(), runner)

	rec := postJSON(t, srv.Handler(), "/api/health-check", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChat(t *testing.T) {
	runner := &fakeRunner{outcome: &loop.Outcome{
		Answer: "All integration broker queues are clear.",
		State:  loop.StateCompleted,
		Trace: []loop.ToolTraceEntry{
			{Tool: "get_ib_errors", Result: &tools.Result{Success: true}},
		},
	}}
	srv := newTestServer(t, defaultSource(), runner)

	rec := postJSON(t, srv.Handler(), "/api/chat", ChatRequest{
		Message: "Are there any IB errors?",
		History: []ChatMessage{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi, how can I help?"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "All integration broker queues are clear.", resp.Answer)
	require.Len(t, resp.ToolTrace, 1)
	assert.Equal(t, "get_ib_errors", resp.ToolTrace[0].Tool)

	assert.Equal(t, "Are there any IB errors?", runner.gotMessage)
	require.Len(t, runner.gotHistory, 2)
	assert.Equal(t, provider.RoleUser, runner.gotHistory[0].Role)
	assert.Equal(t, provider.RoleAssistant, runner.gotHistory[1].Role)
}

func TestChat_EmptyMessage(t *testing.T) {
	srv := newTestServer(t, defaultSource(), &fakeRunner{})

	rec := postJSON(t, srv.Handler(), "/api/chat", ChatRequest{Message: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_InvalidBody(t *testing.T) {
	srv := newTestServer(t, defaultSource(), &fakeRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTools(t *testing.T) {
	srv := newTestServer(t, defaultSource(), &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tools []provider.ToolDefinition `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tools, 4)
	assert.Equal(t, "get_ib_errors", resp.Tools[0].Name)
	assert.Equal(t, "lookup_sop", resp.Tools[3].Name)
}

func TestSystemSummary(t *testing.T) {
	srv := newTestServer(t, defaultSource(), &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/system-summary", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SystemSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusDegraded, resp.OverallStatus)
	assert.Equal(t, 5, resp.IBTotalMessages)
}

func TestReady(t *testing.T) {
	srv := newTestServer(t, defaultSource(), &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReady_SourceDown(t *testing.T) {
	source := defaultSource()
	source.pingErr = faults.New(faults.KindDataSourceUnavailable, "database unreachable")
	srv := newTestServer(t, source, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, defaultSource(), &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, defaultSource(), &fakeRunner{})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
