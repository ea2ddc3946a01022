package log

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/requestid"
)

// StructuredLogger emits operation scoped log lines:
//
//	tracer := log.NewDebugLogger("job_service").WithContext(ctx).Operation("get_job").WithParam("job_id", id).Build()
//	tracer.Step("job_loaded").WithString("status", "processing").Log()
//	tracer.Success().Log()
//
// Steps and successes are logged at debug level, errors at error level.
type StructuredLogger struct {
	name string
	ctx  context.Context
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name}
}

func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	return &StructuredLogger{name: l.name, ctx: ctx}
}

func (l *StructuredLogger) Operation(op string) *OperationBuilder {
	b := &OperationBuilder{name: l.name, op: op}
	if l.ctx != nil {
		if reqID := requestid.FromContext(l.ctx); reqID != "" {
			b.fields = append(b.fields, zap.String("request_id", reqID))
		}
	}
	return b
}

type OperationBuilder struct {
	name   string
	op     string
	fields []zap.Field
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.fields = append(b.fields, zap.Any(key, value))
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

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value.String()))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	fields := append([]zap.Field{zap.String("operation", b.op)}, b.fields...)
	return &OperationTracer{
		logger: zap.L().Named(b.name).WithOptions(zap.AddCallerSkip(1)).With(fields...),
		start:  time.Now(),
	}
}

// OperationTracer is bound to a single operation and reports its steps.
type OperationTracer struct {
	logger *zap.Logger
	start  time.Time
}

func (t *OperationTracer) Step(name string) *Entry {
	return &Entry{tracer: t, level: zap.DebugLevel, msg: name, fields: []zap.Field{zap.String("step", name)}}
}

func (t *OperationTracer) Success() *Entry {
	return &Entry{tracer: t, level: zap.DebugLevel, msg: "operation succeeded", fields: []zap.Field{
		zap.Duration("duration", time.Since(t.start)),
	}}
}

func (t *OperationTracer) Error(err error) *Entry {
	return &Entry{tracer: t, level: zap.ErrorLevel, msg: "operation failed", fields: []zap.Field{
		zap.Error(err),
		zap.Duration("duration", time.Since(t.start)),
	}}
}

// Entry is a pending log line. Nothing is written until Log is called.
type Entry struct {
	tracer *OperationTracer
	level  zapcore.Level
	msg    string
	fields []zap.Field
}

func (e *Entry) WithParam(key string, value any) *Entry {
	e.fields = append(e.fields, zap.Any(key, value))
	return e
}

func (e *Entry) WithString(key, value string) *Entry {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *Entry) WithInt(key string, value int) *Entry {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *Entry) WithBool(key string, value bool) *Entry {
	e.fields = append(e.fields, zap.Bool(key, value))
	return e
}

func (e *Entry) WithUUID(key string, value uuid.UUID) *Entry {
	e.fields = append(e.fields, zap.String(key, value.String()))
	return e
}

func (e *Entry) Log() {
	if ce := e.tracer.logger.Check(e.level, e.msg); ce != nil {
		ce.Write(e.fields...)
	}
}
