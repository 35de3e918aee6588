// Package models defines the core data types shared across the diagnostic
// engine: raw error records fetched from the PeopleSoft tables and the
// derived health summary.
package models

import "time"

// SourceKind identifies which error table a record came from.
type SourceKind string

const (
	// SourceIntegrationBroker marks rows from PS_MSG_INST (MSG_STATUS='7').
	SourceIntegrationBroker SourceKind = "IntegrationBrokerError"

	// SourceProcess marks rows from PSPRCSRQST (RUNSTATUS='14').
	SourceProcess SourceKind = "ProcessError"
)

// ErrorRecord is one production error fetched from a data source. Records
// are immutable once fetched; the matching engine and tool payloads only
// read them.
type ErrorRecord struct {
	SourceKind  SourceKind `json:"source_kind"`
	Identifier  string     `json:"identifier"`
	MessageText string     `json:"message_text"`
	OccurredAt  time.Time  `json:"occurred_at"`
	StatusCode  string     `json:"status_code"`

	// Detail carries per-source columns (queue and nodes for IB messages,
	// process name and operator for process requests) so tool payloads can
	// surface them without widening the core record.
	Detail map[string]string `json:"detail,omitempty"`
}

// OverallStatus is the aggregate health classification.
type OverallStatus string

const (
	StatusHealthy  OverallStatus = "Healthy"
	StatusDegraded OverallStatus = "Degraded"
	StatusCritical OverallStatus = "Critical"
)

// HealthSummary is derived from the latest error counts; it is never stored.
type HealthSummary struct {
	IBErrorCount      int           `json:"ib_error_count"`
	ProcessErrorCount int           `json:"process_error_count"`
	OverallStatus     OverallStatus `json:"overall_status"`
}

// SystemSummary carries the raw counts behind a health summary, shaped
// for the get_system_summary tool payload.
type SystemSummary struct {
	IBTotalMessages     int           `json:"ib_total_messages"`
	IBErrorCount        int           `json:"ib_error_count"`
	ProcessTotal        int           `json:"process_total"`
	ProcessErrorCount   int           `json:"process_error_count"`
	ProcessRunningCount int           `json:"process_running_count"`
	OverallStatus       OverallStatus `json:"overall_status"`
}

// DeriveStatus classifies the counts: Critical when either count exceeds
// criticalThreshold, Degraded when either is nonzero, Healthy otherwise.
func DeriveStatus(ibErrors, processErrors, criticalThreshold int) OverallStatus {
	if ibErrors > criticalThreshold || processErrors > criticalThreshold {
		return StatusCritical
	}
	if ibErrors > 0 || processErrors > 0 {
		return StatusDegraded
	}
	return StatusHealthy
}
