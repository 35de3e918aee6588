// Package tools provides the tool registry and execution for the
// diagnostic agent. Tool failures are contained: Execute always returns
// a Result, and an error outcome is reported to the model as data
// rather than aborting the run.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/psops/sentry/internal/agent/provider"
	"github.com/psops/sentry/internal/faults"
	"github.com/psops/sentry/internal/logging"
	"github.com/psops/sentry/internal/metrics"
)

const (
	// MaxToolResponseBytes caps the size of a tool response handed back
	// to the model. Larger payloads are truncated to prevent context
	// overflow.
	MaxToolResponseBytes = 50 * 1024
)

// Tool defines the interface for agent tools.
type Tool interface {
	// Name returns the tool's unique identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// InputSchema returns JSON Schema used for input validation and for
	// advertising the tool to the model.
	InputSchema() map[string]any

	// Execute runs the tool with validated input.
	Execute(ctx context.Context, input json.RawMessage) (*Result, error)
}

// Result represents the output of a tool execution.
type Result struct {
	// Success indicates whether the tool executed successfully.
	Success bool `json:"success"`

	// Data contains the tool's output, tool-specific structure.
	Data any `json:"data,omitempty"`

	// Error contains error details when Success is false.
	Error string `json:"error,omitempty"`

	// ErrorKind classifies the failure when Success is false.
	ErrorKind string `json:"error_kind,omitempty"`

	// Summary is a brief description of what happened.
	Summary string `json:"summary,omitempty"`

	// ExecutionTimeMs is how long the tool took to run.
	ExecutionTimeMs int64 `json:"execution_time_ms"`
}

// Content renders the result as the string handed to the model.
func (r *Result) Content() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return string(b)
}

// truncatedData replaces oversized tool output while keeping structure.
type truncatedData struct {
	Truncated      bool   `json:"_truncated"`
	OriginalBytes  int    `json:"_original_bytes"`
	TruncatedBytes int    `json:"_truncated_bytes"`
	TruncationNote string `json:"_truncation_note"`
	PartialData    string `json:"partial_data"`
}

// truncateResult bounds the result payload at maxBytes.
func truncateResult(result *Result, maxBytes int) *Result {
	if result == nil || result.Data == nil {
		return result
	}

	dataBytes, err := json.Marshal(result.Data)
	if err != nil {
		return result
	}
	if len(dataBytes) <= maxBytes {
		return result
	}

	partialDataBytes := maxBytes * 80 / 100
	partialData := string(dataBytes)
	if len(partialData) > partialDataBytes {
		partialData = partialData[:partialDataBytes]
	}

	truncated := &truncatedData{
		Truncated:      true,
		OriginalBytes:  len(dataBytes),
		TruncatedBytes: maxBytes,
		TruncationNote: fmt.Sprintf("Response truncated from %d to ~%d bytes to prevent context overflow. Narrow the lookback window to reduce result size.", len(dataBytes), maxBytes),
		PartialData:    partialData,
	}

	summary := result.Summary
	if summary != "" {
		summary = fmt.Sprintf("%s [TRUNCATED: %d->%d bytes]", summary, len(dataBytes), maxBytes)
	} else {
		summary = fmt.Sprintf("[TRUNCATED: %d->%d bytes]", len(dataBytes), maxBytes)
	}

	return &Result{
		Success:         result.Success,
		Data:            truncated,
		Error:           result.Error,
		ErrorKind:       result.ErrorKind,
		Summary:         summary,
		ExecutionTimeMs: result.ExecutionTimeMs,
	}
}

// Registry manages tool registration and discovery. The tool set is
// fixed at construction; Register exists for tests.
type Registry struct {
	tools  map[string]Tool
	order  []string
	mu     sync.RWMutex
	logger *logging.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logging.GetLogger("agent.tools"),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; !exists {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
	r.logger.Debug("Registered tool: %s", tool.Name())
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// ToProviderTools converts registry tools to provider tool definitions,
// in registration order.
func (r *Registry) ToProviderTools() []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(r.order))
	for _, tool := range r.List() {
		defs = append(defs, provider.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	return defs
}

// Execute runs a tool by name with the given input. It never returns an
// error: unknown tools, invalid arguments, and tool failures all come
// back as error-status results so the model can react to them.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) *Result {
	start := time.Now()

	tool, ok := r.Get(name)
	if !ok {
		r.logger.Warn("Unknown tool requested: %s", name)
		metrics.ObserveToolExecution(name,
			faults.New(faults.KindToolValidationError, "unknown tool"), time.Since(start))
		return &Result{
			Success:         false,
			Error:           fmt.Sprintf("tool %q not found", name),
			ErrorKind:       string(faults.KindToolValidationError),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}
	}

	if err := validateInput(tool.InputSchema(), input); err != nil {
		metrics.ObserveToolExecution(name, err, time.Since(start))
		return &Result{
			Success:         false,
			Error:           err.Error(),
			ErrorKind:       string(faults.KindToolValidationError),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}
	}

	result, err := tool.Execute(ctx, input)
	elapsed := time.Since(start)
	if err != nil {
		r.logger.ErrorWithErr(fmt.Sprintf("Tool %s failed", name), err)
		metrics.ObserveToolExecution(name, err, elapsed)
		return &Result{
			Success:         false,
			Error:           err.Error(),
			ErrorKind:       string(faults.KindOf(err)),
			ExecutionTimeMs: elapsed.Milliseconds(),
		}
	}

	result.ExecutionTimeMs = elapsed.Milliseconds()
	if !result.Success {
		metrics.ToolExecutions.WithLabelValues(name, "error").Inc()
		metrics.ToolDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	} else {
		metrics.ObserveToolExecution(name, nil, elapsed)
	}

	return truncateResult(result, MaxToolResponseBytes)
}
