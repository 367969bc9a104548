package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/cd3-tool/cd3/internal/config"
	"github.com/cd3-tool/cd3/internal/storage"
	"github.com/cd3-tool/cd3/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type providers struct {
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	tp     *sdktrace.TracerProvider
	mp     *sdkmetric.MeterProvider
}

func newProviders(t *testing.T) *providers {
	t.Helper()
	p := &providers{
		spans:  tracetest.NewSpanRecorder(),
		reader: sdkmetric.NewManualReader(),
	}
	p.tp = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(p.spans))
	p.mp = sdkmetric.NewMeterProvider(sdkmetric.WithReader(p.reader))
	t.Cleanup(func() {
		_ = p.tp.Shutdown(context.Background())
		_ = p.mp.Shutdown(context.Background())
	})
	return p
}

func (p *providers) sum(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, p.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestInitDisabledInstallsNoop(t *testing.T) {
	config.ResetForTesting()
	require.NoError(t, Init(context.Background(), "cd3", "test"))
	assert.False(t, Enabled())

	b := memory.New()
	assert.Same(t, storage.Backend(b), WrapBackend(b), "disabled telemetry must not wrap")

	Shutdown(context.Background())
}

func TestInstrumentedBackend(t *testing.T) {
	p := newProviders(t)
	ctx := context.Background()
	b := NewInstrumentedBackend(memory.New(), p.tp.Tracer("test"), p.mp.Meter("test"))

	require.NoError(t, b.Put(ctx, storage.KeyState, []byte(`{}`)))
	got, err := b.Get(ctx, storage.KeyState)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))

	_, err = b.Get(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	require.NoError(t, b.Delete(ctx, storage.KeyState))

	assert.Equal(t, int64(4), p.sum(t, "cd3.storage.operations"))
	assert.Equal(t, int64(0), p.sum(t, "cd3.storage.errors"), "not-found is not an error")

	ended := p.spans.Ended()
	require.Len(t, ended, 4)
	assert.Equal(t, "storage.Put", ended[0].Name())
	assert.Equal(t, "storage.Delete", ended[3].Name())

	require.NoError(t, b.Close())
	require.Error(t, b.Put(ctx, storage.KeyItems, []byte(`[]`)))
	assert.Equal(t, int64(1), p.sum(t, "cd3.storage.errors"))
}

type label string

func (l label) String() string { return "label:" + string(l) }

func TestAnalyticsTrack(t *testing.T) {
	p := newProviders(t)
	a := NewAnalyticsWith(p.tp.Tracer("test"), p.mp.Meter("test"), nil)
	require.NotEmpty(t, a.Session())

	ctx := context.Background()
	a.Track(ctx, "item_added", map[string]any{"id": "cd3-abcd", "count": 2})
	a.Track(ctx, "stage_changed", map[string]any{"to": label("Results"), "locked": false, "skip": nil})

	assert.Equal(t, int64(2), p.sum(t, "cd3.intent.events"))

	ended := p.spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "intent.item_added", ended[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[1].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "stage_changed", attrs["cd3.event"].AsString())
	assert.Equal(t, a.Session(), attrs["cd3.session"].AsString())
	assert.Equal(t, "label:Results", attrs["cd3.to"].AsString())
	assert.False(t, attrs["cd3.locked"].AsBool())
	_, hasSkip := attrs["cd3.skip"]
	assert.False(t, hasSkip)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
