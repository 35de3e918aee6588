// Package audit captures agent run events (model calls, tool executions,
// terminal outcomes) to a JSONL file for debugging and reproducibility.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeRunStart marks the start of a diagnostic run.
	EventTypeRunStart EventType = "run_start"
	// EventTypeModelResponse logs each model round trip with token usage.
	EventTypeModelResponse EventType = "model_response"
	// EventTypeToolComplete marks a finished tool execution.
	EventTypeToolComplete EventType = "tool_complete"
	// EventTypeRunComplete marks the terminal outcome of a run.
	EventTypeRunComplete EventType = "run_complete"
	// EventTypeError marks a loop-fatal failure.
	EventTypeError EventType = "error"
)

// Event represents a single audit log event.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	// Data contains event-specific fields.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Logger writes audit events to a JSONL file.
type Logger struct {
	file   *os.File
	writer *bufio.Writer
	mutex  sync.Mutex
}

// NewLogger creates an audit logger appending to the given file path.
func NewLogger(filePath string) (*Logger, error) {
	// #nosec G304 -- audit log path is intentionally configurable
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// write appends one event. Flushes immediately for crash safety.
func (l *Logger) write(event Event) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	if _, err := l.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return l.writer.Flush()
}

// LogRunStart logs the start of a diagnostic run.
func (l *Logger) LogRunStart(runID, providerName, model string) error {
	return l.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeRunStart,
		RunID:     runID,
		Data: map[string]interface{}{
			"provider": providerName,
			"model":    model,
		},
	})
}

// LogModelResponse logs one model round trip.
func (l *Logger) LogModelResponse(runID string, iteration, toolCalls, inputTokens, outputTokens int) error {
	return l.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeModelResponse,
		RunID:     runID,
		Data: map[string]interface{}{
			"iteration":     iteration,
			"tool_calls":    toolCalls,
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
		},
	})
}

// LogToolComplete logs a finished tool execution.
func (l *Logger) LogToolComplete(runID, toolName string, success bool, durationMs int64) error {
	return l.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeToolComplete,
		RunID:     runID,
		Data: map[string]interface{}{
			"tool_name":   toolName,
			"success":     success,
			"duration_ms": durationMs,
		},
	})
}

// LogRunComplete logs the terminal outcome of a run.
func (l *Logger) LogRunComplete(runID, state string, iterations, toolCalls int) error {
	return l.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeRunComplete,
		RunID:     runID,
		Data: map[string]interface{}{
			"state":      state,
			"iterations": iterations,
			"tool_calls": toolCalls,
		},
	})
}

// LogError logs a loop-fatal failure.
func (l *Logger) LogError(runID, message string) error {
	return l.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeError,
		RunID:     runID,
		Data: map[string]interface{}{
			"message": message,
		},
	})
}

// Close flushes buffered events and closes the file.
func (l *Logger) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	return l.file.Close()
}
