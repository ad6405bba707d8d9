package logger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// TestLogger captures every message logged through it or its children.
type TestLogger struct {
	*captured
}

type captured struct {
	sink   *sink
	fields map[string]interface{}
	err    error
}

type sink struct {
	mu       sync.Mutex
	messages []LogMessage
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{&captured{sink: &sink{}}}
}

func (c *captured) record(level, msg string, extra map[string]interface{}) {
	fields := make(map[string]interface{}, len(c.fields)+len(extra))
	for k, v := range c.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}

	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	c.sink.messages = append(c.sink.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   c.err,
	})
}

func (c *captured) child(fields map[string]interface{}, err error) Logger {
	merged := make(map[string]interface{}, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &captured{sink: c.sink, fields: merged, err: err}
}

func (c *captured) Debug(msg string) { c.record("DEBUG", msg, nil) }
func (c *captured) Info(msg string)  { c.record("INFO", msg, nil) }
func (c *captured) Warn(msg string)  { c.record("WARN", msg, nil) }
func (c *captured) Error(msg string) { c.record("ERROR", msg, nil) }
func (c *captured) Fatal(msg string) { c.record("FATAL", msg, nil) }

func (c *captured) DebugWithFields(msg string, f map[string]interface{}) { c.record("DEBUG", msg, f) }
func (c *captured) InfoWithFields(msg string, f map[string]interface{})  { c.record("INFO", msg, f) }
func (c *captured) WarnWithFields(msg string, f map[string]interface{})  { c.record("WARN", msg, f) }
func (c *captured) ErrorWithFields(msg string, f map[string]interface{}) { c.record("ERROR", msg, f) }
func (c *captured) FatalWithFields(msg string, f map[string]interface{}) { c.record("FATAL", msg, f) }

func (c *captured) WithField(key string, value interface{}) Logger {
	return c.child(map[string]interface{}{key: value}, c.err)
}

func (c *captured) WithFields(fields map[string]interface{}) Logger {
	return c.child(fields, c.err)
}

func (c *captured) WithError(err error) Logger {
	return c.child(nil, err)
}

func (c *captured) WithContext(ctx context.Context) Logger { return c }

func (c *captured) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// GetMessages returns a copy of all captured log messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	messages := make([]LogMessage, len(l.sink.messages))
	copy(messages, l.sink.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.GetMessages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// HasError checks if an error-level message was logged
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear clears all captured messages
func (l *TestLogger) Clear() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.messages = nil
}

// String renders the captured messages one per line
func (l *TestLogger) String() string {
	var b strings.Builder
	for _, msg := range l.GetMessages() {
		fmt.Fprintf(&b, "[%s] %s", msg.Level, msg.Message)
		if len(msg.Fields) > 0 {
			fmt.Fprintf(&b, " fields=%v", msg.Fields)
		}
		if msg.Error != nil {
			fmt.Fprintf(&b, " error=%v", msg.Error)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
