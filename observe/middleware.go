package observe

import (
	"context"
	"time"
)

// FetchFunc performs one remote fetch described by meta.
type FetchFunc func(ctx context.Context, meta FetchMeta) error

// Middleware wraps fetches with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a FetchFunc safe for concurrent use.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that only calls through.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// MiddlewareFromObserver builds a Middleware from an Observer's providers.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Wrap wraps fn with a span, fetch metrics and a completion log line.
// Failed background fetches are logged at warn; foreground failures at error.
func (m *Middleware) Wrap(fn FetchFunc) FetchFunc {
	return func(ctx context.Context, meta FetchMeta) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordFetch(ctx, meta, duration, err)

		log := m.logger.WithResource(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
			{Key: "background", Value: meta.Background},
		}
		switch {
		case err != nil && meta.Background:
			log.Warn(ctx, "background refresh failed", append(fields, Field{Key: "error", Value: err})...)
		case err != nil:
			log.Error(ctx, "fetch failed", append(fields, Field{Key: "error", Value: err})...)
		default:
			log.Debug(ctx, "fetch completed", fields...)
		}
		return err
	}
}

// Lookup records a cache lookup and logs it at debug.
func (m *Middleware) Lookup(ctx context.Context, meta FetchMeta, freshness string) {
	m.metrics.RecordLookup(ctx, meta, freshness)
	m.logger.WithResource(meta).Debug(ctx, "cache lookup", Field{Key: "freshness", Value: freshness})
}
