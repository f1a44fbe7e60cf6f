package monitor

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/rileyhilliard/sqlmon/internal/logger"
)

// TelemetryOptions configures NewTelemetry.
type TelemetryOptions struct {
	ServiceVersion string

	// Logger receives a periodic dump of every instrument. Nil disables it.
	Logger logger.Logger
	// ExportInterval is the period of the log dump.
	ExportInterval time.Duration
}

// Telemetry owns the SDK meter provider behind Metrics. A manual reader
// serves on-demand snapshots; an optional periodic reader logs them.
type Telemetry struct {
	Metrics *Metrics

	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

// NewTelemetry builds the meter provider and registers the engine
// instruments on it. Call Shutdown to flush and release it.
func NewTelemetry(opts TelemetryOptions) (*Telemetry, error) {
	reader := sdkmetric.NewManualReader()
	providerOpts := []sdkmetric.Option{
		sdkmetric.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "sqlmon"),
			attribute.String("service.version", opts.ServiceVersion),
		)),
		sdkmetric.WithReader(reader),
	}
	if opts.Logger != nil && opts.ExportInterval > 0 {
		providerOpts = append(providerOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(&logExporter{log: opts.Logger},
				sdkmetric.WithInterval(opts.ExportInterval)),
		))
	}

	provider := sdkmetric.NewMeterProvider(providerOpts...)
	m, err := NewMetrics(provider)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return &Telemetry{Metrics: m, provider: provider, reader: reader}, nil
}

// Provider exposes the meter provider, e.g. for otel.SetMeterProvider.
func (t *Telemetry) Provider() *sdkmetric.MeterProvider {
	return t.provider
}

// Snapshot collects the current value of every instrument.
func (t *Telemetry) Snapshot(ctx context.Context) ([]MetricPoint, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	return flatten(&rm), nil
}

// Shutdown flushes pending exports and stops the readers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// MetricPoint is one data point of a collected instrument. Value is the
// counter total, or the sum of observations for a histogram.
type MetricPoint struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      float64           `json:"value"`
	Count      uint64            `json:"count,omitempty"`
}

func flatten(rm *metricdata.ResourceMetrics) []MetricPoint {
	var points []MetricPoint
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					points = append(points, MetricPoint{Name: m.Name, Attributes: attrMap(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					points = append(points, MetricPoint{Name: m.Name, Attributes: attrMap(dp.Attributes), Value: dp.Value})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					points = append(points, MetricPoint{Name: m.Name, Attributes: attrMap(dp.Attributes), Value: dp.Sum, Count: dp.Count})
				}
			}
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Name != points[j].Name {
			return points[i].Name < points[j].Name
		}
		return attrKey(points[i].Attributes) < attrKey(points[j].Attributes)
	})
	return points
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	out := make(map[string]string, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func attrKey(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(attrs[k])
		b.WriteByte(',')
	}
	return b.String()
}

// logExporter writes each data point as one structured log line.
type logExporter struct {
	log logger.Logger
}

func (e *logExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (e *logExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (e *logExporter) Export(_ context.Context, rm *metricdata.ResourceMetrics) error {
	for _, p := range flatten(rm) {
		kv := []interface{}{"instrument", p.Name, "value", p.Value}
		if p.Count > 0 {
			kv = append(kv, "count", p.Count)
		}
		keys := make([]string, 0, len(p.Attributes))
		for k := range p.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			kv = append(kv, k, p.Attributes[k])
		}
		e.log.With(kv...).Info("telemetry")
	}
	return nil
}

func (e *logExporter) ForceFlush(context.Context) error { return nil }

func (e *logExporter) Shutdown(context.Context) error { return nil }
