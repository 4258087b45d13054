package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/streamstore-go/streamstore/eventstore"
)

// TracingCollector implements eventstore.TracingCollector by opening one
// OpenTelemetry span per tracked operation (append, read, delete) and
// closing it with a status derived from the operation's outcome.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector builds a collector from tracer, which should come
// from the caller's TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, eventstore.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toSpanAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

func (t *TracingCollector) FinishSpan(spanCtx eventstore.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toSpanAttributes(attrs)...)
	otelSpanCtx.setSpanStatus(status)
	otelSpanCtx.span.End()
}

var _ eventstore.TracingCollector = (*TracingCollector)(nil)

func toSpanAttributes(attrs map[string]string) []attribute.KeyValue {
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for key, value := range attrs {
		kv = append(kv, attribute.String(key, value))
	}

	return kv
}

// OTelSpanContext implements eventstore.SpanContext by wrapping the span
// StartSpan created.
type OTelSpanContext struct {
	span trace.Span
}

func (s *OTelSpanContext) SetStatus(status string) {
	s.setSpanStatus(status)
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

// spanStatusDescriptions maps failure outcome strings to the description
// of an OTel error status. The eventstore package itself reports every
// failure as "error"; "conflict" carries the wrong-expected-version
// description.
var spanStatusDescriptions = map[string]string{
	"error":     "Operation failed",
	"failed":    "Operation failed",
	"failure":   "Operation failed",
	"cancelled": "Operation cancelled",
	"canceled":  "Operation cancelled",
	"timeout":   "Operation timed out",
	"conflict":  "Wrong expected version",
}

func (s *OTelSpanContext) setSpanStatus(status string) {
	switch status {
	case "ok", "success", "completed":
		s.span.SetStatus(codes.Ok, "")
		return
	}

	if desc, known := spanStatusDescriptions[status]; known {
		s.span.SetStatus(codes.Error, desc)
		return
	}

	s.span.SetAttributes(attribute.String("status", status))
}

var _ eventstore.SpanContext = (*OTelSpanContext)(nil)
