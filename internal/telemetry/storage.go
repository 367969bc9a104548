package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/cd3-tool/cd3/internal/storage"
)

const storageScopeName = "github.com/cd3-tool/cd3/storage"

// InstrumentedBackend wraps storage.Backend with OTel tracing and metrics.
// Every call gets a span and is counted in cd3.storage.* metrics.
type InstrumentedBackend struct {
	inner  storage.Backend
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
	bytes  metric.Int64Histogram
}

// WrapBackend returns b decorated with OTel instrumentation.
// When telemetry is disabled, b is returned as-is.
func WrapBackend(b storage.Backend) storage.Backend {
	if !Enabled() {
		return b
	}
	return NewInstrumentedBackend(b, Tracer(storageScopeName), Meter(storageScopeName))
}

// NewInstrumentedBackend decorates b using the given tracer and meter.
func NewInstrumentedBackend(b storage.Backend, tracer trace.Tracer, m metric.Meter) *InstrumentedBackend {
	ops, _ := m.Int64Counter("cd3.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("cd3.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("cd3.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	size, _ := m.Int64Histogram("cd3.storage.document.size",
		metric.WithDescription("Size of documents read and written"),
		metric.WithUnit("By"),
	)
	return &InstrumentedBackend{
		inner:  b,
		tracer: tracer,
		ops:    ops,
		dur:    dur,
		errs:   errs,
		bytes:  size,
	}
}

// Unwrap returns the decorated backend.
func (s *InstrumentedBackend) Unwrap() storage.Backend {
	return s.inner
}

func (s *InstrumentedBackend) op(ctx context.Context, name, key string) (context.Context, trace.Span, time.Time, []attribute.KeyValue) {
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", name),
		attribute.String("cd3.storage.key", key),
	}
	ctx, span := s.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(attrs...))
	return ctx, span, time.Now(), attrs
}

func (s *InstrumentedBackend) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs []attribute.KeyValue) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	// A missing key is an expected answer, not a failure.
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (s *InstrumentedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span, t, attrs := s.op(ctx, "Get", key)
	v, err := s.inner.Get(ctx, key)
	if err == nil {
		s.bytes.Record(ctx, int64(len(v)), metric.WithAttributes(attrs...))
	}
	s.done(ctx, span, t, err, attrs)
	return v, err
}

func (s *InstrumentedBackend) Put(ctx context.Context, key string, value []byte) error {
	ctx, span, t, attrs := s.op(ctx, "Put", key)
	s.bytes.Record(ctx, int64(len(value)), metric.WithAttributes(attrs...))
	err := s.inner.Put(ctx, key, value)
	s.done(ctx, span, t, err, attrs)
	return err
}

func (s *InstrumentedBackend) Delete(ctx context.Context, key string) error {
	ctx, span, t, attrs := s.op(ctx, "Delete", key)
	err := s.inner.Delete(ctx, key)
	s.done(ctx, span, t, err, attrs)
	return err
}

func (s *InstrumentedBackend) Close() error {
	return s.inner.Close()
}
