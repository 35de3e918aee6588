package logging

import (
	"context"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"Warn", WARN, false},
		{"error", ERROR, false},
		{"fatal", FATAL, false},
		{"verbose", -1, true},
		{"", -1, true},
	}
	for _, tc := range cases {
		got, err := parseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseLevel(%q): unexpected error state: %v", tc.in, err)
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("parseLevel(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestComponentLevel_ExactBeatsWildcard(t *testing.T) {
	if err := SetComponentLevels(map[string]string{
		"agent.*":    "debug",
		"agent.loop": "warn",
	}); err != nil {
		t.Fatalf("SetComponentLevels: %v", err)
	}
	defer func() { _ = SetComponentLevels(map[string]string{}) }()

	if got := componentLevel("agent.loop"); got != WARN {
		t.Errorf("exact override: got %d, want WARN", got)
	}
	if got := componentLevel("agent.tools"); got != DEBUG {
		t.Errorf("wildcard override: got %d, want DEBUG", got)
	}
	if got := componentLevel("api"); got != LogLevel(-1) {
		t.Errorf("unconfigured component: got %d, want -1", got)
	}
}

func TestSetComponentLevels_InvalidLevel(t *testing.T) {
	if err := SetComponentLevels(map[string]string{"api": "loud"}); err == nil {
		t.Error("expected error for invalid level name")
	}
}

func TestWithField_Immutable(t *testing.T) {
	base := GetLogger("test")
	child := base.WithField("request_id", "abc")

	if len(base.fields) != 0 {
		t.Errorf("parent logger mutated: %v", base.fields)
	}
	if child.fields["request_id"] != "abc" {
		t.Errorf("child missing field: %v", child.fields)
	}
}

func TestContextFields(t *testing.T) {
	if fields := contextFields(nil); fields != nil {
		t.Errorf("nil context: got %v, want nil", fields)
	}

	ctx := context.WithValue(context.Background(), TraceIDKey(), "trace-1")
	ctx = context.WithValue(ctx, SpanIDKey(), "span-2")
	fields := contextFields(ctx)
	if fields["trace_id"] != "trace-1" || fields["span_id"] != "span-2" {
		t.Errorf("unexpected context fields: %v", fields)
	}
}

func TestMergeFields_Priority(t *testing.T) {
	merged := mergeFields(
		map[string]interface{}{"k": "ctx", "trace_id": "t"},
		map[string]interface{}{"k": "persistent"},
		[]LogField{Field("k", "callsite")},
	)
	if merged["k"] != "callsite" {
		t.Errorf("call-site field should win, got %v", merged["k"])
	}
	if merged["trace_id"] != "t" {
		t.Errorf("context field lost: %v", merged)
	}
}
