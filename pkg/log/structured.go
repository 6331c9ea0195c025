package log

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openpim/catalog-bulk/pkg/requestid"
)

// StructuredLogger emits one log line per operation step. Steps and successes are
// logged at debug level, errors at error level.
type StructuredLogger struct {
	name string
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name}
}

func (l *StructuredLogger) WithContext(ctx context.Context) *OperationBuilder {
	b := &OperationBuilder{logger: l}
	if id := requestid.FromContext(ctx); id != "" {
		b.fields = append(b.fields, zap.String("request_id", id))
	}
	return b
}

type OperationBuilder struct {
	logger    *StructuredLogger
	operation string
	fields    []zapcore.Field
}

func (b *OperationBuilder) Operation(name string) *OperationBuilder {
	b.operation = name
	return b
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value))
	return b
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	b.fields = append(b.fields, zap.Int(key, value))
	return b
}

func (b *OperationBuilder) WithBool(key string, value bool) *OperationBuilder {
	b.fields = append(b.fields, zap.Bool(key, value))
	return b
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value.String()))
	return b
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.fields = append(b.fields, zap.Any(key, value))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	return &OperationTracer{
		name:      b.logger.name,
		operation: b.operation,
		fields:    b.fields,
		start:     time.Now(),
	}
}

// OperationTracer carries the operation name and base fields into every entry.
type OperationTracer struct {
	name      string
	operation string
	fields    []zapcore.Field
	start     time.Time
}

func (t *OperationTracer) Step(step string) *LogEntry {
	return t.entry(zapcore.DebugLevel, fmt.Sprintf("%s: %s", t.operation, step)).WithString("step", step)
}

func (t *OperationTracer) Error(err error) *LogEntry {
	e := t.entry(zapcore.ErrorLevel, fmt.Sprintf("%s failed", t.operation))
	e.fields = append(e.fields, zap.Error(err))
	return e
}

func (t *OperationTracer) Success() *LogEntry {
	e := t.entry(zapcore.DebugLevel, fmt.Sprintf("%s succeeded", t.operation))
	e.fields = append(e.fields, zap.Duration("duration", time.Since(t.start)))
	return e
}

func (t *OperationTracer) entry(level zapcore.Level, msg string) *LogEntry {
	fields := make([]zapcore.Field, 0, len(t.fields)+4)
	fields = append(fields, zap.String("operation", t.operation))
	fields = append(fields, t.fields...)
	return &LogEntry{name: t.name, level: level, msg: msg, fields: fields}
}

type LogEntry struct {
	name   string
	level  zapcore.Level
	msg    string
	fields []zapcore.Field
}

func (e *LogEntry) WithString(key, value string) *LogEntry {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *LogEntry) WithInt(key string, value int) *LogEntry {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *LogEntry) WithInt64(key string, value int64) *LogEntry {
	e.fields = append(e.fields, zap.Int64(key, value))
	return e
}

func (e *LogEntry) WithBool(key string, value bool) *LogEntry {
	e.fields = append(e.fields, zap.Bool(key, value))
	return e
}

func (e *LogEntry) WithUUID(key string, value uuid.UUID) *LogEntry {
	e.fields = append(e.fields, zap.String(key, value.String()))
	return e
}

func (e *LogEntry) WithParam(key string, value any) *LogEntry {
	e.fields = append(e.fields, zap.Any(key, value))
	return e
}

func (e *LogEntry) Log() {
	logger := zap.L().Named(e.name).WithOptions(zap.AddCallerSkip(1))
	if ce := logger.Check(e.level, e.msg); ce != nil {
		ce.Write(e.fields...)
	}
}
