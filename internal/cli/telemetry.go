package cli

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/monitor"
)

const (
	// metricExportPeriod is how often counters are written to the log.
	metricExportPeriod = time.Minute
	telemetryShutdown  = 5 * time.Second
)

// startTelemetry installs the SDK meter provider as the global one. A nil
// log disables the periodic log export. The returned func flushes and shuts
// the provider down.
func startTelemetry(log logger.Logger) (*monitor.Telemetry, func(), error) {
	tel, err := monitor.NewTelemetry(monitor.TelemetryOptions{
		ServiceVersion: version,
		Logger:         log,
		ExportInterval: metricExportPeriod,
	})
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrConfig, "Cannot set up telemetry", "")
	}
	otel.SetMeterProvider(tel.Provider())

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdown)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil && log != nil {
			log.Warn("telemetry shutdown: %v", err)
		}
	}
	return tel, shutdown, nil
}
