package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/psops/sentry/internal/datasource"
)

// hoursBackArgs is the shared argument shape for the error fetch tools.
type hoursBackArgs struct {
	HoursBack int `json:"hours_back"`
}

func (a hoursBackArgs) lookback() time.Duration {
	if a.HoursBack <= 0 {
		return datasource.DefaultLookback
	}
	return time.Duration(a.HoursBack) * time.Hour
}

func hoursBackSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hours_back": map[string]any{
				"type":        "integer",
				"description": "Look-back window in hours (default 24).",
			},
		},
	}
}

// ibError is one PS_MSG_INST row shaped for the model.
type ibError struct {
	TransactionID string `json:"transaction_id"`
	MessageName   string `json:"message_name"`
	Queue         string `json:"queue"`
	PubNode       string `json:"pub_node"`
	SubNode       string `json:"sub_node"`
	Timestamp     string `json:"timestamp"`
	ErrorDetail   string `json:"error_detail"`
}

// IBErrorsTool fetches Integration Broker message errors.
type IBErrorsTool struct {
	source datasource.Source
}

// NewIBErrorsTool creates the get_ib_errors tool.
func NewIBErrorsTool(source datasource.Source) *IBErrorsTool {
	return &IBErrorsTool{source: source}
}

func (t *IBErrorsTool) Name() string { return "get_ib_errors" }

func (t *IBErrorsTool) Description() string {
	return "Fetches Integration Broker message instances from PS_MSG_INST that are " +
		"currently in an error state (MSG_STATUS = '7'). Returns transaction ID, " +
		"message name, queue, nodes, timestamp, and error detail."
}

func (t *IBErrorsTool) InputSchema() map[string]any { return hoursBackSchema() }

func (t *IBErrorsTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var args hoursBackArgs
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, err
		}
	}

	records, err := t.source.FetchIBErrors(ctx, args.lookback())
	if err != nil {
		return nil, err
	}

	errors := make([]ibError, 0, len(records))
	for _, rec := range records {
		errors = append(errors, ibError{
			TransactionID: rec.Identifier,
			MessageName:   rec.Detail["message_name"],
			Queue:         rec.Detail["queue"],
			PubNode:       rec.Detail["pub_node"],
			SubNode:       rec.Detail["sub_node"],
			Timestamp:     rec.OccurredAt.Format(time.RFC3339),
			ErrorDetail:   rec.MessageText,
		})
	}

	return &Result{
		Success: true,
		Summary: fmt.Sprintf("Found %d IB message errors", len(errors)),
		Data: map[string]any{
			"tool":   t.Name(),
			"count":  len(errors),
			"errors": errors,
		},
	}, nil
}

// processError is one PSPRCSRQST row shaped for the model.
type processError struct {
	ProcessInstance string `json:"process_instance"`
	ProcessType     string `json:"process_type"`
	ProcessName     string `json:"process_name"`
	Operator        string `json:"operator"`
	RunControl      string `json:"run_control"`
	BeginDttm       string `json:"begin_dttm"`
	Server          string `json:"server"`
	ErrorText       string `json:"error_text"`
}

// ProcessErrorsTool fetches Process Monitor errors.
type ProcessErrorsTool struct {
	source datasource.Source
}

// NewProcessErrorsTool creates the get_process_errors tool.
func NewProcessErrorsTool(source datasource.Source) *ProcessErrorsTool {
	return &ProcessErrorsTool{source: source}
}

func (t *ProcessErrorsTool) Name() string { return "get_process_errors" }

func (t *ProcessErrorsTool) Description() string {
	return "Fetches Process Monitor requests from PSPRCSRQST that are in error " +
		"status (RUNSTATUS = '14'). Returns process instance, type, name, operator, " +
		"run control, timestamps, and error text."
}

func (t *ProcessErrorsTool) InputSchema() map[string]any { return hoursBackSchema() }

func (t *ProcessErrorsTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var args hoursBackArgs
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, err
		}
	}

	records, err := t.source.FetchProcessErrors(ctx, args.lookback())
	if err != nil {
		return nil, err
	}

	errors := make([]processError, 0, len(records))
	for _, rec := range records {
		errors = append(errors, processError{
			ProcessInstance: rec.Identifier,
			ProcessType:     rec.Detail["process_type"],
			ProcessName:     rec.Detail["process_name"],
			Operator:        rec.Detail["operator"],
			RunControl:      rec.Detail["run_control"],
			BeginDttm:       rec.OccurredAt.Format(time.RFC3339),
			Server:          rec.Detail["server"],
			ErrorText:       rec.MessageText,
		})
	}

	return &Result{
		Success: true,
		Summary: fmt.Sprintf("Found %d process errors", len(errors)),
		Data: map[string]any{
			"tool":   t.Name(),
			"count":  len(errors),
			"errors": errors,
		},
	}, nil
}

// SystemSummaryTool reports high-level health counts.
type SystemSummaryTool struct {
	source datasource.Source
}

// NewSystemSummaryTool creates the get_system_summary tool.
func NewSystemSummaryTool(source datasource.Source) *SystemSummaryTool {
	return &SystemSummaryTool{source: source}
}

func (t *SystemSummaryTool) Name() string { return "get_system_summary" }

func (t *SystemSummaryTool) Description() string {
	return "Returns a high-level health summary: counts of IB errors, process " +
		"errors, and currently running processes."
}

func (t *SystemSummaryTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *SystemSummaryTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	summary, err := t.source.FetchSummary(ctx)
	if err != nil {
		return nil, err
	}

	return &Result{
		Success: true,
		Summary: fmt.Sprintf("System %s: %d IB errors, %d process errors",
			summary.OverallStatus, summary.IBErrorCount, summary.ProcessErrorCount),
		Data: map[string]any{
			"tool":                  t.Name(),
			"ib_total_messages":     summary.IBTotalMessages,
			"ib_error_count":        summary.IBErrorCount,
			"process_total":         summary.ProcessTotal,
			"process_error_count":   summary.ProcessErrorCount,
			"process_running_count": summary.ProcessRunningCount,
			"overall_health":        summary.OverallStatus,
		},
	}, nil
}
