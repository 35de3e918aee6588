package logging

import "context"

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// TraceIDKey returns the context key under which a trace ID is stored.
func TraceIDKey() interface{} {
	return traceIDKey
}

// SpanIDKey returns the context key under which a span ID is stored.
func SpanIDKey() interface{} {
	return spanIDKey
}

// contextFields extracts trace_id and span_id from ctx if present.
func contextFields(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	fields := make(map[string]interface{})
	if traceID := ctx.Value(traceIDKey); traceID != nil {
		fields["trace_id"] = traceID
	}
	if spanID := ctx.Value(spanIDKey); spanID != nil {
		fields["span_id"] = spanID
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
