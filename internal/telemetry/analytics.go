package telemetry

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const analyticsScopeName = "github.com/cd3-tool/cd3/analytics"

// Analytics records user intents as OTel events. Each Track call adds one
// to cd3.intent.events and emits a short span carrying the event properties.
type Analytics struct {
	session string
	tracer  trace.Tracer
	events  metric.Int64Counter
	log     *zap.Logger
}

// NewAnalytics uses the global providers installed by Init.
func NewAnalytics(log *zap.Logger) *Analytics {
	return NewAnalyticsWith(Tracer(analyticsScopeName), Meter(analyticsScopeName), log)
}

// NewAnalyticsWith builds an Analytics on explicit providers.
func NewAnalyticsWith(tracer trace.Tracer, m metric.Meter, log *zap.Logger) *Analytics {
	if log == nil {
		log = zap.NewNop()
	}
	events, err := m.Int64Counter("cd3.intent.events",
		metric.WithDescription("User intents handled by the prioritization engine"),
	)
	if err != nil {
		log.Warn("analytics counter unavailable", zap.Error(err))
	}
	return &Analytics{
		session: uuid.NewString(),
		tracer:  tracer,
		events:  events,
		log:     log,
	}
}

// Session returns the id attached to every event of this process.
func (a *Analytics) Session() string {
	return a.session
}

// Track records event. It never fails; problems are logged.
func (a *Analytics) Track(ctx context.Context, event string, props map[string]any) {
	attrs := append([]attribute.KeyValue{
		attribute.String("cd3.event", event),
		attribute.String("cd3.session", a.session),
	}, propAttributes(props)...)

	if a.events != nil {
		// Only the event name goes on the counter to keep cardinality low.
		a.events.Add(ctx, 1, metric.WithAttributes(attrs[0], attrs[1]))
	}
	_, span := a.tracer.Start(ctx, "intent."+event, trace.WithAttributes(attrs...))
	span.End()

	a.log.Debug("analytics event", zap.String("event", event), zap.Any("props", props))
}

func propAttributes(props map[string]any) []attribute.KeyValue {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		name := "cd3." + k
		switch v := props[k].(type) {
		case string:
			attrs = append(attrs, attribute.String(name, v))
		case bool:
			attrs = append(attrs, attribute.Bool(name, v))
		case int:
			attrs = append(attrs, attribute.Int(name, v))
		case int64:
			attrs = append(attrs, attribute.Int64(name, v))
		case float64:
			attrs = append(attrs, attribute.Float64(name, v))
		case []string:
			attrs = append(attrs, attribute.StringSlice(name, v))
		case fmt.Stringer:
			attrs = append(attrs, attribute.String(name, v.String()))
		case nil:
		default:
			attrs = append(attrs, attribute.String(name, fmt.Sprint(v)))
		}
	}
	return attrs
}
