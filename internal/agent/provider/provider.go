// Package provider implements the LLM provider abstraction for the
// diagnostic agent. Two real backends are supported, Anthropic and any
// OpenAI-compatible endpoint such as a local Ollama server, plus a
// scripted provider for tests.
package provider

import (
	"context"
	"encoding/json"

	"github.com/psops/sentry/internal/faults"
)

// Message represents a conversation message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolUse is set when the assistant wants to call tools.
	ToolUse []ToolUseBlock `json:"tool_use,omitempty"`

	// ToolResult is set when providing tool execution results. A single
	// message carries one result per requested call, in request order.
	ToolResult []ToolResultBlock `json:"tool_result,omitempty"`
}

// Role represents the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolUseBlock represents a tool call request from the model.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultBlock represents the result of a tool execution.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ToolDefinition defines a tool that can be called by the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Response represents the model's response.
type Response struct {
	// Content is the text content, may be empty when only tools were
	// requested.
	Content string

	// ToolCalls contains any tool use requests from the model, in the
	// order the model emitted them.
	ToolCalls []ToolUseBlock

	// StopReason indicates why the model stopped generating.
	StopReason StopReason

	// Usage contains token usage information.
	Usage Usage
}

// StopReason indicates why the model stopped generating.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonToolUse   StopReason = "tool_use"
	StopReasonMaxTokens StopReason = "max_tokens"
)

// Usage contains token usage information.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Provider defines the interface for LLM backends.
type Provider interface {
	// Chat sends the system prompt, conversation, and tool definitions
	// to the model and returns the complete response. Transport and API
	// failures surface as InferenceUnavailable faults; responses the
	// backend returned but that cannot be interpreted surface as
	// InferenceMalformedResponse.
	Chat(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error)

	// Name returns the provider name for logging and metrics.
	Name() string

	// Model returns the model identifier in use.
	Model() string
}

// Config contains common provider configuration.
type Config struct {
	// Model is the model identifier, e.g. "claude-sonnet-4-5" or
	// "llama3.1:8b".
	Model string

	// BaseURL overrides the API endpoint. For the OpenAI-compatible
	// provider this is typically "http://localhost:11434/v1".
	BaseURL string

	// APIKey authenticates against the backend. Local Ollama ignores it.
	APIKey string

	// MaxTokens bounds the generated output.
	MaxTokens int

	// Temperature controls randomness. Zero keeps diagnostics
	// repeatable.
	Temperature float64
}

// unavailable wraps a transport or API failure.
func unavailable(err error, op string) error {
	return faults.Wrap(faults.KindInferenceUnavailable, err, "%s", op)
}

// malformed flags a response the backend produced but that cannot be
// interpreted.
func malformed(format string, args ...any) error {
	return faults.New(faults.KindInferenceMalformedResponse, format, args...)
}
