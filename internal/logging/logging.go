// Package logging provides structured, leveled logging for Sentry.
//
// Initialize the logger once at startup:
//
//	logging.Initialize("info")
//
// then obtain a named logger per component:
//
//	logger := logging.GetLogger("datasource")
//	logger.Info("connected to %s", dsn)
//	logger.InfoWithFields("query complete",
//	    logging.Field("rows", n),
//	    logging.Field("duration_ms", elapsed.Milliseconds()),
//	)
//
// Logger values are immutable; WithField and WithContext return new
// instances and are safe to share across goroutines. Per-component level
// overrides (exact name or "agent.*" wildcard) can be supplied via
// Initialize or the LOG_LEVEL_* environment variables parsed by the CLI.
package logging

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// LogField is a structured logging field.
type LogField struct {
	Key   string
	Value interface{}
}

// Field creates a structured logging field.
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// Logger provides structured logging for one named component.
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{}
	ctx    context.Context
}

var (
	globalLogger *Logger
	initOnce     sync.Once

	componentLevels = make(map[string]LogLevel)
	componentMu     sync.RWMutex

	// exitFunc is called by Fatal; overridable for tests.
	exitFunc = os.Exit
)

// Initialize sets up the global logger with the default level and optional
// per-component overrides, e.g. {"agent.*": "debug", "api": "warn"}.
func Initialize(levelStr string, componentOverrides ...map[string]string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		level = INFO
	}
	globalLogger = &Logger{level: level, name: "sentry"}

	if len(componentOverrides) > 0 && componentOverrides[0] != nil {
		if err := SetComponentLevels(componentOverrides[0]); err != nil {
			return err
		}
	}
	return nil
}

// GetLogger returns a logger for the named component.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			_ = Initialize("info")
		}
	})
	return &Logger{
		level:  globalLogger.level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// SetComponentLevels configures per-component level overrides. Keys are
// exact component names or prefix wildcards like "agent.*".
func SetComponentLevels(levels map[string]string) error {
	if levels == nil {
		return nil
	}
	componentMu.Lock()
	defer componentMu.Unlock()

	componentLevels = make(map[string]LogLevel, len(levels))
	for name, levelStr := range levels {
		level, err := parseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level for component %q: %w", name, err)
		}
		componentLevels[name] = level
	}
	return nil
}

// componentLevel returns the override for a component, or -1 if none applies.
// Exact matches win over wildcard matches; longer wildcards win over shorter.
func componentLevel(name string) LogLevel {
	componentMu.RLock()
	defer componentMu.RUnlock()

	if level, ok := componentLevels[name]; ok {
		return level
	}
	best := ""
	for pattern := range componentLevels {
		if !strings.HasSuffix(pattern, ".*") {
			continue
		}
		prefix := strings.TrimSuffix(pattern, ".*")
		if strings.HasPrefix(name, prefix+".") && len(pattern) > len(best) {
			best = pattern
		}
	}
	if best != "" {
		return componentLevels[best]
	}
	return LogLevel(-1)
}

func parseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return -1, fmt.Errorf("invalid level: %s (must be DEBUG, INFO, WARN, ERROR, or FATAL)", levelStr)
	}
}

func (l *Logger) shouldLog(level LogLevel) bool {
	if override := componentLevel(l.name); override >= 0 {
		return level >= override
	}
	return level >= l.level
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf("DEBUG", msg, args...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf("INFO", msg, args...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf("WARN", msg, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf("ERROR", msg, args...)
	}
}

// ErrorWithErr logs an error message followed by the error value.
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	if l.shouldLog(ERROR) {
		args = append(args, err)
		l.logf("ERROR", msg+" - %v", args...)
	}
}

// Fatal logs a fatal message and exits with code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf("FATAL", msg, args...)
		exitFunc(1)
	}
}

// DebugWithFields logs a debug message with structured fields.
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logWithFields("DEBUG", msg, fields...)
	}
}

// InfoWithFields logs an info message with structured fields.
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logWithFields("INFO", msg, fields...)
	}
}

// WarnWithFields logs a warning message with structured fields.
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logWithFields("WARN", msg, fields...)
	}
}

// ErrorWithFields logs an error message with structured fields.
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logWithFields("ERROR", msg, fields...)
	}
}

// WithField returns a new logger with a persistent structured field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	next := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
	next.fields[key] = value
	return next
}

// WithContext returns a new logger that extracts trace_id and span_id from
// ctx into every log line.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    ctx,
	}
}

func (l *Logger) logf(level, msg string, args ...interface{}) {
	l.write(level, fmt.Sprintf(msg, args...), mergeFields(contextFields(l.ctx), l.fields, nil))
}

func (l *Logger) logWithFields(level, msg string, fields ...LogField) {
	l.write(level, msg, mergeFields(contextFields(l.ctx), l.fields, fields))
}

// write formats and routes the line: DEBUG/INFO/WARN to stdout, ERROR/FATAL
// to stderr.
func (l *Logger) write(level, msg string, fields map[string]interface{}) {
	line := fmt.Sprintf("[%s] [%s] %s: %s", timestamp(), level, l.name, msg)
	if len(fields) > 0 {
		line += " |"
		for k, v := range fields {
			line += fmt.Sprintf(" %s=%v", k, v)
		}
	}
	if level == "ERROR" || level == "FATAL" {
		fmt.Fprintf(os.Stderr, "%s\n", line)
	} else {
		log.Println(line)
	}
}

// mergeFields combines context fields, persistent fields and call-site
// fields, later sources winning on key collision.
func mergeFields(ctxFields, persistent map[string]interface{}, callsite []LogField) map[string]interface{} {
	if ctxFields == nil && len(persistent) == 0 && len(callsite) == 0 {
		return nil
	}
	merged := make(map[string]interface{})
	for k, v := range ctxFields {
		merged[k] = v
	}
	for k, v := range persistent {
		merged[k] = v
	}
	for _, f := range callsite {
		merged[f.Key] = f.Value
	}
	return merged
}

func cloneFields(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// timestamp returns an RFC3339 timestamp, overridable via LOG_TIMESTAMP for
// deterministic test output.
func timestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}
