package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// FetchMeta describes one remote fetch for telemetry purposes.
type FetchMeta struct {
	Resource   string // resource kind: tenants, transactions, users (required)
	Tenant     string // tenant scope (empty for the tenant list)
	Key        string // canonical cache key (optional)
	Background bool   // true for stale-while-revalidate refreshes
}

// SpanName returns the span name for this fetch: fetch.<resource>.
func (m FetchMeta) SpanName() string {
	return "fetch." + m.Resource
}

// Validate checks required fields.
func (m FetchMeta) Validate() error {
	if m.Resource == "" {
		return ErrMissingResource
	}
	return nil
}

func (m FetchMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("resource", m.Resource),
		attribute.Bool("fetch.background", m.Background),
	}
	if m.Tenant != "" {
		attrs = append(attrs, attribute.String("tenant.id", m.Tenant))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with fetch-scoped span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta FetchMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a client span carrying the fetch scope as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta FetchMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("fetch.error", false))
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("cache.key", meta.Key))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("fetch.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a Tracer that records nothing.
func NopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
