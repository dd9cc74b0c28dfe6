package logger

import (
	"context"
	"time"
)

// Entry carries metric fields (duration_ms, count, size, status) that are
// attached to a single log line rather than to the context.
type Entry struct {
	logger *Logger
	fields Fields
}

// With creates a new Entry on the default logger.
// Example: logger.With(logger.Fields{"duration_ms": 1234}).Info(ctx, "Fetch completed")
func With(fields Fields) *Entry {
	return &Entry{
		logger: GetDefault(),
		fields: fields,
	}
}

// Metrics creates a new Entry bound to l. Context fields are still merged in
// when a context is passed to the log call.
func (l *Logger) Metrics(fields Fields) *Entry {
	return &Entry{logger: l, fields: fields}
}

// With adds more fields to an existing Entry.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{
		logger: e.logger,
		fields: merged,
	}
}

// WithField adds a single field to the Entry.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.With(Fields{key: value})
}

// Since adds a duration_ms field measured from start.
func (e *Entry) Since(start time.Time) *Entry {
	return e.WithField(FieldDurationMs, time.Since(start).Milliseconds())
}

// WithCount adds a count field to the Entry.
func (e *Entry) WithCount(count int) *Entry {
	return e.WithField(FieldCount, count)
}

// WithSize adds a size field to the Entry.
func (e *Entry) WithSize(size int) *Entry {
	return e.WithField(FieldSize, size)
}

// WithStatus adds a status field to the Entry.
func (e *Entry) WithStatus(status string) *Entry {
	return e.WithField(FieldStatus, status)
}

// resolve picks the target logger: the bound logger enriched with the
// context's tracing fields, or the context logger for unbound entries.
func (e *Entry) resolve(ctx context.Context) *Logger {
	l := e.logger
	if l == nil {
		l = GetDefault()
	}
	if ctx == nil {
		return l.WithFields(e.fields)
	}
	return l.Inherit(ctx).WithFields(e.fields)
}

// Debug logs at Debug level with metric fields.
func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).Debugf(format, args...)
}

// Info logs at Info level with metric fields.
func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).Infof(format, args...)
}

// Success logs at Info level with metric fields, marked as a success.
func (e *Entry) Success(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).Successf(format, args...)
}

// Warn logs at Warn level with metric fields.
func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).Warnf(format, args...)
}

// Error logs at Error level with metric fields.
func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.resolve(ctx).Errorf(format, args...)
}
