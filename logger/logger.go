package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	Service   string                 `json:"service"`
	TraceID   string                 `json:"trace_id,omitempty"`
	Duration  *int64                 `json:"duration_ms,omitempty"`
	DataCount *int                   `json:"data_count,omitempty"`
	Error     *ErrorDetails          `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ErrorDetails provides structured error information
type ErrorDetails struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Logger provides structured JSON logging to a single output stream
type Logger struct {
	serviceName string
	traceID     string
	minLevel    LogLevel
	out         io.Writer
}

// New creates a new structured logger instance writing to stdout
func New(serviceName string) *Logger {
	return &Logger{
		serviceName: serviceName,
		minLevel:    levelFromEnv(),
		out:         os.Stdout,
	}
}

// NewWithWriter creates a logger writing to the given stream (used in tests)
func NewWithWriter(serviceName string, out io.Writer) *Logger {
	return &Logger{
		serviceName: serviceName,
		minLevel:    levelFromEnv(),
		out:         out,
	}
}

func levelFromEnv() LogLevel {
	if lvl := LogLevel(os.Getenv("LOG_LEVEL")); levelRank[lvl] > 0 || lvl == LevelDebug {
		return lvl
	}
	return LevelInfo
}

// WithTraceID returns a copy of the logger carrying the given trace ID
func (l *Logger) WithTraceID(traceID string) *Logger {
	newLogger := *l
	newLogger.traceID = traceID
	return &newLogger
}

// SetLevel overrides the minimum level emitted
func (l *Logger) SetLevel(level LogLevel) {
	if _, ok := levelRank[level]; ok {
		l.minLevel = level
	}
}

// Info logs an informational message
func (l *Logger) Info(message string, metadata ...map[string]interface{}) {
	l.log(LevelInfo, message, nil, nil, nil, metadata...)
}

// InfoWithCount logs an informational message with a data count
func (l *Logger) InfoWithCount(message string, count int, metadata ...map[string]interface{}) {
	l.log(LevelInfo, message, nil, &count, nil, metadata...)
}

// InfoWithDuration logs an informational message with a duration
func (l *Logger) InfoWithDuration(message string, duration time.Duration, metadata ...map[string]interface{}) {
	durationMs := duration.Milliseconds()
	l.log(LevelInfo, message, &durationMs, nil, nil, metadata...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, metadata ...map[string]interface{}) {
	l.log(LevelWarn, message, nil, nil, nil, metadata...)
}

// Error logs an error message
func (l *Logger) Error(message string, err error, metadata ...map[string]interface{}) {
	var errorDetails *ErrorDetails
	if err != nil {
		errorDetails = &ErrorDetails{
			Type:    fmt.Sprintf("%T", err),
			Message: err.Error(),
		}
		if appErr, ok := err.(*AppError); ok {
			errorDetails.Code = string(appErr.Type)
		}
	}
	l.log(LevelError, message, nil, nil, errorDetails, metadata...)
}

// Debug logs a debug message when the level allows it
func (l *Logger) Debug(message string, metadata ...map[string]interface{}) {
	l.log(LevelDebug, message, nil, nil, nil, metadata...)
}

// log is the internal logging method that outputs structured JSON
func (l *Logger) log(level LogLevel, message string, duration *int64, dataCount *int, errorDetails *ErrorDetails, metadata ...map[string]interface{}) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Message:   message,
		Service:   l.serviceName,
		TraceID:   l.traceID,
		Duration:  duration,
		DataCount: dataCount,
		Error:     errorDetails,
	}

	if len(metadata) > 0 && metadata[0] != nil {
		entry.Metadata = metadata[0]
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		// Fallback to standard logging if JSON marshaling fails
		log.Printf("[%s] %s: %s (JSON marshal error: %v)", level, l.serviceName, message, err)
		return
	}

	fmt.Fprintln(l.out, string(jsonBytes))
}
