// Package loop drives the multi-turn exchange between the model and the
// tool registry. Each invocation owns its conversation; nothing is
// shared between concurrent runs except the read-only catalog and the
// data source pool behind the tools.
package loop

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/psops/sentry/internal/agent/audit"
	"github.com/psops/sentry/internal/agent/provider"
	"github.com/psops/sentry/internal/agent/tools"
	"github.com/psops/sentry/internal/faults"
	"github.com/psops/sentry/internal/logging"
	"github.com/psops/sentry/internal/metrics"
)

// State is the loop's execution phase.
type State string

const (
	StateStarting       State = "Starting"
	StateAwaitingModel  State = "AwaitingModel"
	StateExecutingTools State = "ExecutingTools"
	StateCompleted      State = "Completed"
	StateFailed         State = "Failed"
)

// Config bounds a single run.
type Config struct {
	// MaxIterations caps model round trips. A model that still requests
	// tools on the final allowed round trip fails the run.
	MaxIterations int

	// CallTimeout bounds each individual model call.
	CallTimeout time.Duration
}

// DefaultConfig mirrors the limits of the production deployment.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 5,
		CallTimeout:   120 * time.Second,
	}
}

// ToolTraceEntry records one tool execution for the caller.
type ToolTraceEntry struct {
	Tool   string          `json:"tool"`
	Input  json.RawMessage `json:"input,omitempty"`
	Result *tools.Result   `json:"result"`
}

// Outcome is the terminal result of a run.
type Outcome struct {
	// RunID identifies the run across logs and traces.
	RunID string `json:"run_id"`

	// Answer is the model's final text. Empty when State is Failed.
	Answer string `json:"answer"`

	// Trace lists every tool execution in the order the model requested
	// them.
	Trace []ToolTraceEntry `json:"tool_trace"`

	// Iterations counts model round trips performed.
	Iterations int `json:"iterations"`

	// State is Completed or Failed.
	State State `json:"state"`

	// Usage accumulates token counts across all model calls.
	Usage provider.Usage `json:"usage"`
}

// Loop orchestrates model inference and tool execution.
type Loop struct {
	provider     provider.Provider
	registry     *tools.Registry
	systemPrompt string
	cfg          Config
	logger       *logging.Logger
	tracer       trace.Tracer
	audit        *audit.Logger
}

// New creates a loop bound to one provider, tool set, and system prompt.
// The same Loop may serve concurrent runs.
func New(p provider.Provider, registry *tools.Registry, systemPrompt string, cfg Config) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	return &Loop{
		provider:     p,
		registry:     registry,
		systemPrompt: systemPrompt,
		cfg:          cfg,
		logger:       logging.GetLogger("agent.loop"),
		tracer:       otel.Tracer("sentry/agent/loop"),
	}
}

// WithAudit attaches an audit logger; every run then records its model
// round trips and tool executions as JSONL events. Returns the loop for
// chaining.
func (l *Loop) WithAudit(a *audit.Logger) *Loop {
	l.audit = a
	return l
}

// Run executes one diagnostic conversation. History carries prior chat
// turns; it is copied, never mutated. A Failed outcome is returned
// together with the fault that terminated the run.
func (l *Loop) Run(ctx context.Context, userMessage string, history []provider.Message) (*Outcome, error) {
	runID := uuid.NewString()
	logger := l.logger.WithField("run_id", runID)

	ctx, span := l.tracer.Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("provider", l.provider.Name()),
			attribute.String("model", l.provider.Model()),
		))
	defer span.End()

	outcome := &Outcome{RunID: runID, State: StateStarting}
	toolDefs := l.registry.ToProviderTools()

	conversation := make([]provider.Message, 0, len(history)+1)
	conversation = append(conversation, history...)
	conversation = append(conversation, provider.Message{
		Role:    provider.RoleUser,
		Content: userMessage,
	})

	logger.Info("Starting diagnostic run (model=%s, max_iterations=%d)",
		l.provider.Model(), l.cfg.MaxIterations)
	if l.audit != nil {
		_ = l.audit.LogRunStart(runID, l.provider.Name(), l.provider.Model())
	}

	for iteration := 0; iteration < l.cfg.MaxIterations; iteration++ {
		outcome.State = StateAwaitingModel
		outcome.Iterations = iteration + 1

		response, err := l.chat(ctx, conversation, toolDefs)
		if err != nil {
			outcome.State = StateFailed
			if l.audit != nil {
				_ = l.audit.LogError(runID, err.Error())
			}
			l.finish(logger, outcome)
			return outcome, err
		}
		outcome.Usage.InputTokens += response.Usage.InputTokens
		outcome.Usage.OutputTokens += response.Usage.OutputTokens
		if l.audit != nil {
			_ = l.audit.LogModelResponse(runID, outcome.Iterations, len(response.ToolCalls),
				response.Usage.InputTokens, response.Usage.OutputTokens)
		}

		conversation = append(conversation, provider.Message{
			Role:    provider.RoleAssistant,
			Content: response.Content,
			ToolUse: response.ToolCalls,
		})

		if len(response.ToolCalls) == 0 {
			outcome.Answer = response.Content
			outcome.State = StateCompleted
			l.finish(logger, outcome)
			return outcome, nil
		}

		outcome.State = StateExecutingTools
		results := make([]provider.ToolResultBlock, 0, len(response.ToolCalls))
		for _, call := range response.ToolCalls {
			logger.Debug("Executing tool %s", call.Name)
			// Tools run to completion even if the caller goes away.
			// The timeout still bounds them.
			toolCtx, toolCancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.CallTimeout)
			result := l.registry.Execute(toolCtx, call.Name, call.Input)
			toolCancel()
			if l.audit != nil {
				_ = l.audit.LogToolComplete(runID, call.Name, result.Success, result.ExecutionTimeMs)
			}
			outcome.Trace = append(outcome.Trace, ToolTraceEntry{
				Tool:   call.Name,
				Input:  call.Input,
				Result: result,
			})
			results = append(results, provider.ToolResultBlock{
				ToolUseID: call.ID,
				Content:   result.Content(),
				IsError:   !result.Success,
			})
		}
		conversation = append(conversation, provider.Message{
			Role:       provider.RoleUser,
			ToolResult: results,
		})
	}

	outcome.State = StateFailed
	err := faults.New(faults.KindIterationLimitExceeded,
		"model still requesting tools after %d round trips", l.cfg.MaxIterations)
	l.finish(logger, outcome)
	return outcome, err
}

func (l *Loop) chat(ctx context.Context, conversation []provider.Message, toolDefs []provider.ToolDefinition) (*provider.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()

	ctx, span := l.tracer.Start(callCtx, "agent.inference")
	defer span.End()

	start := time.Now()
	response, err := l.provider.Chat(ctx, l.systemPrompt, conversation, toolDefs)
	metrics.ObserveInference(l.provider.Name(), err, time.Since(start))
	if err != nil {
		// A deadline hit means the backend never answered in time.
		if callCtx.Err() != nil && faults.KindOf(err) == faults.KindUnknown {
			return nil, faults.Wrap(faults.KindInferenceUnavailable, err, "model call timed out")
		}
		if faults.KindOf(err) == faults.KindUnknown {
			return nil, faults.Wrap(faults.KindInferenceUnavailable, err, "model call failed")
		}
		return nil, err
	}
	return response, nil
}

func (l *Loop) finish(logger *logging.Logger, outcome *Outcome) {
	if l.audit != nil {
		_ = l.audit.LogRunComplete(outcome.RunID, string(outcome.State),
			outcome.Iterations, len(outcome.Trace))
	}
	metrics.LoopIterations.Observe(float64(outcome.Iterations))
	switch outcome.State {
	case StateCompleted:
		metrics.RunsCompleted.WithLabelValues("completed").Inc()
		logger.Info("Run completed after %d iterations (%d tool calls)",
			outcome.Iterations, len(outcome.Trace))
	default:
		metrics.RunsCompleted.WithLabelValues("failed").Inc()
		logger.Warn("Run failed after %d iterations (%d tool calls)",
			outcome.Iterations, len(outcome.Trace))
	}
}
