package loop

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psops/sentry/internal/agent/provider"
	"github.com/psops/sentry/internal/agent/tools"
	"github.com/psops/sentry/internal/faults"
)

// echoTool records invocations and returns a fixed payload.
type echoTool struct {
	name  string
	calls []json.RawMessage
	fail  bool
}

func (t *echoTool) Name() string        { return t.name }
func (t *echoTool) Description() string { return "echoes input" }
func (t *echoTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": map[string]any{"type": "string"},
		},
	}
}

func (t *echoTool) Execute(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
	t.calls = append(t.calls, input)
	if t.fail {
		return nil, faults.New(faults.KindDataSourceUnavailable, "backend gone")
	}
	return &tools.Result{Success: true, Data: map[string]any{"echo": string(input)}}, nil
}

func newRegistry(ts ...tools.Tool) *tools.Registry {
	r := tools.NewRegistry()
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

func toolCall(id, name, input string) provider.ToolUseBlock {
	return provider.ToolUseBlock{ID: id, Name: name, Input: json.RawMessage(input)}
}

func TestRun_DirectAnswer(t *testing.T) {
	mock := provider.NewMockProvider(&provider.Response{
		Content:    "All systems healthy.",
		StopReason: provider.StopReasonEndTurn,
		Usage:      provider.Usage{InputTokens: 100, OutputTokens: 20},
	})
	l := New(mock, newRegistry(), "system prompt", Config{MaxIterations: 5})

	outcome, err := l.Run(context.Background(), "how does it look?", nil)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, outcome.State)
	assert.Equal(t, "All systems healthy.", outcome.Answer)
	assert.Equal(t, 1, outcome.Iterations)
	assert.Empty(t, outcome.Trace)
	assert.Equal(t, 100, outcome.Usage.InputTokens)
	assert.Equal(t, "system prompt", mock.LastSystemPrompt)
}

func TestRun_ToolRoundTrip(t *testing.T) {
	tool := &echoTool{name: "echo"}
	mock := provider.NewMockProvider(
		&provider.Response{
			StopReason: provider.StopReasonToolUse,
			ToolCalls: []provider.ToolUseBlock{
				toolCall("call-1", "echo", `{"value":"a"}`),
				toolCall("call-2", "echo", `{"value":"b"}`),
			},
		},
		&provider.Response{
			Content:    "Done.",
			StopReason: provider.StopReasonEndTurn,
		},
	)
	l := New(mock, newRegistry(tool), "sys", Config{MaxIterations: 5})

	outcome, err := l.Run(context.Background(), "check both", nil)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, outcome.State)
	assert.Equal(t, 2, outcome.Iterations)

	// Trace preserves the requested order.
	require.Len(t, outcome.Trace, 2)
	assert.JSONEq(t, `{"value":"a"}`, string(outcome.Trace[0].Input))
	assert.JSONEq(t, `{"value":"b"}`, string(outcome.Trace[1].Input))

	// The follow-up request carried both results, in order, keyed to
	// their tool use IDs.
	last := mock.LastMessages[len(mock.LastMessages)-1]
	require.Len(t, last.ToolResult, 2)
	assert.Equal(t, "call-1", last.ToolResult[0].ToolUseID)
	assert.Equal(t, "call-2", last.ToolResult[1].ToolUseID)
}

func TestRun_ToolFailureIsContained(t *testing.T) {
	tool := &echoTool{name: "echo", fail: true}
	mock := provider.NewMockProvider(
		&provider.Response{
			StopReason: provider.StopReasonToolUse,
			ToolCalls:  []provider.ToolUseBlock{toolCall("call-1", "echo", `{}`)},
		},
		&provider.Response{
			Content:    "The backend is unreachable; escalating.",
			StopReason: provider.StopReasonEndTurn,
		},
	)
	l := New(mock, newRegistry(tool), "sys", Config{MaxIterations: 5})

	outcome, err := l.Run(context.Background(), "check", nil)
	require.NoError(t, err, "a failing tool must not fail the run")
	assert.Equal(t, StateCompleted, outcome.State)

	require.Len(t, outcome.Trace, 1)
	assert.False(t, outcome.Trace[0].Result.Success)
	assert.Equal(t, string(faults.KindDataSourceUnavailable), outcome.Trace[0].Result.ErrorKind)

	// The model saw the failure as an error-flagged result.
	last := mock.LastMessages[len(mock.LastMessages)-1]
	require.Len(t, last.ToolResult, 1)
	assert.True(t, last.ToolResult[0].IsError)
}

func TestRun_IterationLimitExact(t *testing.T) {
	// The mock replays its last response forever: a model that never
	// stops asking for tools.
	tool := &echoTool{name: "echo"}
	mock := provider.NewMockProvider(&provider.Response{
		StopReason: provider.StopReasonToolUse,
		ToolCalls:  []provider.ToolUseBlock{toolCall("call-1", "echo", `{}`)},
	})

	const limit = 3
	l := New(mock, newRegistry(tool), "sys", Config{MaxIterations: limit})

	outcome, err := l.Run(context.Background(), "check", nil)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindIterationLimitExceeded),
		"fault kind = %s", faults.KindOf(err))
	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, limit, outcome.Iterations)
	assert.Equal(t, limit, mock.Calls(), "must stop at exactly the limit")
	assert.Len(t, outcome.Trace, limit)
	assert.Empty(t, outcome.Answer)
}

func TestRun_InferenceFailure(t *testing.T) {
	mock := provider.NewMockProvider().
		FailWith(faults.New(faults.KindInferenceUnavailable, "connection refused"))
	l := New(mock, newRegistry(), "sys", Config{MaxIterations: 5})

	outcome, err := l.Run(context.Background(), "check", nil)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindInferenceUnavailable))
	assert.Equal(t, StateFailed, outcome.State)
}

func TestRun_PlainProviderErrorBecomesInferenceUnavailable(t *testing.T) {
	mock := provider.NewMockProvider().
		FailWith(context.DeadlineExceeded)
	l := New(mock, newRegistry(), "sys", Config{MaxIterations: 5})

	_, err := l.Run(context.Background(), "check", nil)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindInferenceUnavailable),
		"fault kind = %s", faults.KindOf(err))
}

func TestRun_HistoryNotMutated(t *testing.T) {
	history := []provider.Message{
		{Role: provider.RoleUser, Content: "earlier question"},
		{Role: provider.RoleAssistant, Content: "earlier answer"},
	}
	mock := provider.NewMockProvider(&provider.Response{
		Content:    "ok",
		StopReason: provider.StopReasonEndTurn,
	})
	l := New(mock, newRegistry(), "sys", Config{MaxIterations: 5})

	_, err := l.Run(context.Background(), "new question", history)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	// The provider saw history plus the new user turn.
	require.Len(t, mock.LastMessages, 3)
	assert.Equal(t, "new question", mock.LastMessages[2].Content)
}

// blockingTool parks in Execute until released and records whether its
// context was cancelled while it waited.
type blockingTool struct {
	name      string
	started   chan struct{}
	release   chan struct{}
	sawCancel bool
}

func (t *blockingTool) Name() string                { return t.name }
func (t *blockingTool) Description() string         { return "blocks until released" }
func (t *blockingTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }

func (t *blockingTool) Execute(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
	close(t.started)
	select {
	case <-ctx.Done():
		t.sawCancel = true
		return nil, ctx.Err()
	case <-t.release:
		return &tools.Result{Success: true, Data: map[string]any{"rows": 3}}, nil
	}
}

func TestRun_InFlightToolSurvivesCancellation(t *testing.T) {
	tool := &blockingTool{
		name:    "slow_query",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	mock := provider.NewMockProvider(&provider.Response{
		StopReason: provider.StopReasonToolUse,
		ToolCalls:  []provider.ToolUseBlock{toolCall("call-1", "slow_query", `{}`)},
	})
	l := New(mock, newRegistry(tool), "sys", Config{
		MaxIterations: 5,
		CallTimeout:   5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *Outcome, 1)
	go func() {
		outcome, _ := l.Run(ctx, "check", nil)
		done <- outcome
	}()

	// Cancel the caller mid-execution, then let the tool finish.
	<-tool.started
	cancel()
	close(tool.release)
	outcome := <-done

	assert.False(t, tool.sawCancel, "tool context was cancelled mid-execution")
	require.Len(t, outcome.Trace, 1)
	assert.True(t, outcome.Trace[0].Result.Success)
}
