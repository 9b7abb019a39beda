package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// QueryMeta describes one chat-history query for telemetry purposes.
type QueryMeta struct {
	ID         string // Query ID, unique per request (optional)
	Operation  string // Operation name, e.g. "query" or "fetch" (required)
	GroupID    int64  // Group the query targets; 0 when unknown
	UserID     int64  // Requesting user; 0 when unknown
	Conditions string // Human-readable filter summary (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: chatquery.<operation>
func (m QueryMeta) SpanName() string {
	return "chatquery." + m.Operation
}

// Validate reports whether the metadata is usable.
func (m QueryMeta) Validate() error {
	if m.Operation == "" {
		return ErrMissingOperation
	}
	return nil
}

func (m QueryMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("query.operation", m.Operation),
		attribute.Int64("query.group_id", m.GroupID),
	}
	if m.ID != "" {
		attrs = append(attrs, attribute.String("query.id", m.ID))
	}
	if m.UserID != 0 {
		attrs = append(attrs, attribute.Int64("query.user_id", m.UserID))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with query-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a query operation.
	StartSpan(ctx context.Context, meta QueryMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the outcome and any error.
	EndSpan(span trace.Span, outcome string, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return newNoopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta QueryMeta) (context.Context, trace.Span) {
	attrs := meta.attributes()
	if meta.Conditions != "" {
		attrs = append(attrs, attribute.String("query.conditions", meta.Conditions))
	}
	attrs = append(attrs, attribute.Bool("query.error", false))

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, outcome string, err error) {
	if outcome != "" {
		span.SetAttributes(attribute.String("query.outcome", outcome))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("query.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta QueryMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ string, _ error) {
	span.End()
}
