// Package faults defines the error taxonomy shared across the diagnostic
// core. Components wrap underlying failures in a Fault carrying one of the
// fixed kinds; callers classify any error chain with KindOf.
package faults

import (
	"errors"
	"fmt"
)

// Kind labels a failure class.
type Kind string

const (
	// KindDataSourceUnavailable means the error-table backend could not be
	// reached at all.
	KindDataSourceUnavailable Kind = "DataSourceUnavailable"

	// KindDataSourceQueryError means a query executed but returned a
	// malformed or unexpected shape.
	KindDataSourceQueryError Kind = "DataSourceQueryError"

	// KindToolValidationError means a tool call carried an unknown name or
	// arguments that failed schema validation.
	KindToolValidationError Kind = "ToolValidationError"

	// KindInferenceUnavailable means the inference engine timed out or was
	// unreachable.
	KindInferenceUnavailable Kind = "InferenceUnavailable"

	// KindInferenceMalformedResponse means the inference engine answered
	// with a response the loop could not interpret.
	KindInferenceMalformedResponse Kind = "InferenceMalformedResponse"

	// KindIterationLimitExceeded means the agent loop hit its configured
	// round-trip bound without a final answer.
	KindIterationLimitExceeded Kind = "IterationLimitExceeded"

	// KindProcedureCatalogInvalid is startup-fatal: the procedure catalog
	// failed validation.
	KindProcedureCatalogInvalid Kind = "ProcedureCatalogInvalid"

	// KindUnknown is returned by KindOf for errors outside the taxonomy.
	KindUnknown Kind = "Unknown"
)

// Fault is an error with a taxonomy kind and an optional wrapped cause.
type Fault struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates a Fault with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a Fault around an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (f *Fault) Unwrap() error {
	return f.Err
}

// KindOf returns the taxonomy kind of the first Fault in the chain, or
// KindUnknown if the chain carries none.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// IsKind reports whether err's chain carries a Fault of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
