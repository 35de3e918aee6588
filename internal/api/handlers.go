package api

import (
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/psops/sentry/internal/agent/assemble"
	"github.com/psops/sentry/internal/agent/loop"
	"github.com/psops/sentry/internal/agent/provider"
	"github.com/psops/sentry/internal/models"
)

// HealthCheckRequest optionally narrows the scan window.
type HealthCheckRequest struct {
	HoursBack int `json:"hours_back,omitempty"`
}

// HealthCheckResponse is the full diagnostic report for one scan.
type HealthCheckResponse struct {
	Summary       models.SystemSummary  `json:"summary"`
	IBErrors      []models.ErrorRecord  `json:"ib_errors"`
	ProcessErrors []models.ErrorRecord  `json:"process_errors"`
	SOPs          []assemble.SOPHit     `json:"sops"`
	Analysis      string                `json:"analysis"`
	OverallStatus models.OverallStatus  `json:"overall_status"`
	ToolTrace     []loop.ToolTraceEntry `json:"tool_trace"`
}

// ChatMessage is one prior conversation turn supplied by the caller.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries a free-text question plus optional history.
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
}

// ChatResponse is the model's answer plus the tools it called on the way.
type ChatResponse struct {
	Answer    string                `json:"answer"`
	ToolTrace []loop.ToolTraceEntry `json:"tool_trace"`
}

// handleHealthCheck runs a full scan: fetch both error tables and the
// summary in parallel, match errors against the procedure catalog, then
// hand the findings to the agent loop for analysis.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	var req HealthCheckRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
			return
		}
	}

	lookback := s.cfg.Lookback
	if req.HoursBack > 0 {
		lookback = time.Duration(req.HoursBack) * time.Hour
	}

	ctx := r.Context()
	var (
		ibErrors      []models.ErrorRecord
		processErrors []models.ErrorRecord
		summary       models.SystemSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ibErrors, err = s.source.FetchIBErrors(gctx, lookback)
		return err
	})
	g.Go(func() error {
		var err error
		processErrors, err = s.source.FetchProcessErrors(gctx, lookback)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = s.source.FetchSummary(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Health-check scan failed: %v", err)
		writeFault(w, err)
		return
	}

	records := make([]models.ErrorRecord, 0, len(ibErrors)+len(processErrors))
	records = append(records, ibErrors...)
	records = append(records, processErrors...)
	matched := s.matcher.Match(records)

	findings := assemble.RenderFindings(matched, summary)
	outcome, err := s.runner.Run(ctx, findings, nil)
	if err != nil {
		s.logger.Error("Health-check run failed: %v", err)
		writeFault(w, err)
		return
	}

	writeStatus(w, http.StatusOK, HealthCheckResponse{
		Summary:       summary,
		IBErrors:      ibErrors,
		ProcessErrors: processErrors,
		SOPs:          assemble.SOPHits(matched),
		Analysis:      outcome.Answer,
		OverallStatus: summary.OverallStatus,
		ToolTrace:     outcome.Trace,
	})
}

// handleChat runs the loop on a free-text question. The caller owns the
// conversation history; nothing is retained between requests.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "message must not be empty")
		return
	}

	history := make([]provider.Message, 0, len(req.History))
	for _, m := range req.History {
		role := provider.RoleUser
		if m.Role == "assistant" {
			role = provider.RoleAssistant
		}
		history = append(history, provider.Message{Role: role, Content: m.Content})
	}

	outcome, err := s.runner.Run(r.Context(), req.Message, history)
	if err != nil {
		s.logger.Error("Chat run failed: %v", err)
		writeFault(w, err)
		return
	}

	writeStatus(w, http.StatusOK, ChatResponse{
		Answer:    outcome.Answer,
		ToolTrace: outcome.Trace,
	})
}

// handleTools lists the registered tool schemas.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, map[string]any{
		"tools": s.registry.ToProviderTools(),
	})
}

// handleSystemSummary returns the raw health counts without invoking the
// model, for dashboards that only need numbers.
func (s *Server) handleSystemSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.source.FetchSummary(r.Context())
	if err != nil {
		s.logger.Error("System summary fetch failed: %v", err)
		writeFault(w, err)
		return
	}
	writeStatus(w, http.StatusOK, summary)
}
