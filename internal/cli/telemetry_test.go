package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/monitor"
)

func TestStartTelemetry_InstallsGlobalProvider(t *testing.T) {
	log := logger.NewBufferLogger()
	tel, shutdown, err := startTelemetry(log)
	require.NoError(t, err)
	require.NotNil(t, tel.Metrics)
	assert.Same(t, tel.Provider(), otel.GetMeterProvider())

	tel.Metrics.RecordCycle(context.Background(), monitor.CycleReport{Instance: "db01"}, nil)
	points, err := tel.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, points)

	shutdown()

	var exported bool
	for _, m := range log.Messages() {
		if m.Message == "telemetry" && m.Fields["instrument"] == "sqlmon.fetch.cycles" {
			exported = true
		}
	}
	assert.True(t, exported, "shutdown flushes the periodic export")
}

func TestStartTelemetry_NilLogger(t *testing.T) {
	tel, shutdown, err := startTelemetry(nil)
	require.NoError(t, err)
	assert.NotNil(t, tel.Metrics)
	assert.NotPanics(t, shutdown)
}
