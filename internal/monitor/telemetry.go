package monitor

import (
	"context"

	"github.com/rileyhilliard/sqlmon/internal/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/rileyhilliard/sqlmon/internal/monitor"

// Metrics counts fetch cycles and per-metric outcomes so failures the
// dashboard hides stay visible to operators. A nil *Metrics records nothing.
type Metrics struct {
	cycles   metric.Int64Counter
	fetches  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics registers the engine instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	cycles, err := meter.Int64Counter("sqlmon.fetch.cycles",
		metric.WithDescription("Fetch cycles started, by result"),
		metric.WithUnit("{cycle}"))
	if err != nil {
		return nil, err
	}

	fetches, err := meter.Int64Counter("sqlmon.fetch.metrics",
		metric.WithDescription("Metric fetches within cycles, by metric and result"),
		metric.WithUnit("{fetch}"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("sqlmon.fetch.cycle.duration",
		metric.WithDescription("Duration of fetch cycles that connected"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{cycles: cycles, fetches: fetches, duration: duration}, nil
}

// RecordCycle counts one cycle and, when it connected, its metric outcomes.
func (m *Metrics) RecordCycle(ctx context.Context, report CycleReport, err error) {
	if m == nil {
		return
	}

	instance := attribute.String("instance", report.Instance)
	if err != nil {
		m.cycles.Add(ctx, 1, metric.WithAttributes(instance,
			attribute.String("result", "connection_error"),
			attribute.String("code", errors.CodeOf(err))))
		return
	}

	m.cycles.Add(ctx, 1, metric.WithAttributes(instance, attribute.String("result", "ok")))
	m.duration.Record(ctx, report.Duration.Seconds(), metric.WithAttributes(instance))
	for _, res := range report.Results {
		m.fetches.Add(ctx, 1, metric.WithAttributes(instance,
			attribute.String("metric", res.Key),
			attribute.String("result", string(res.Outcome))))
	}
}
