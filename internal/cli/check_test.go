package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/monitor"
	"github.com/rileyhilliard/sqlmon/internal/source"
	srctesting "github.com/rileyhilliard/sqlmon/internal/source/testing"
	"github.com/rileyhilliard/sqlmon/internal/ui"
)

func healthyRecords() map[string]source.Record {
	return map[string]source.Record{
		source.CPU: {
			"SQLProcessUtilization":   int64(12),
			"SystemIdle":              int64(80),
			"OtherProcessUtilization": int64(8),
			"cpu_count":               int64(4),
		},
		source.Memory: {
			"total_server_memory_mb": 4096.5,
			"memory_in_use_mb":       2048.25,
		},
	}
}

func testChecker(src source.Source) *checker {
	off := false
	return &checker{
		src:      src,
		log:      logger.NewBufferLogger(),
		now:      func() time.Time { return time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC) },
		size:     monitor.DefaultHistorySize,
		spinners: &off,

		configPath: "/tmp/sqlmon.yaml",
	}
}

func testInstance(name string) config.Instance {
	return config.Instance{Name: name, Host: name, Port: config.DefaultPort, User: "u", Database: "master"}
}

func TestCheck_TableOutput(t *testing.T) {
	src := srctesting.NewFakeSource().AddInstance("db01", healthyRecords())
	src.FailConnect("db02", stderrors.New("network unreachable"))

	var buf bytes.Buffer
	err := testChecker(src).run(context.Background(), &buf, []config.Instance{testInstance("db01"), testInstance("db02")})
	require.NoError(t, err, "one reachable instance is enough")

	out := buf.String()
	assert.Contains(t, out, "/tmp/sqlmon.yaml", "header shows the config path")
	assert.Contains(t, out, "db01")
	assert.Contains(t, out, "SQLProcessUtilization=12")
	assert.Contains(t, out, "total_server_memory_mb=4096.50")
	assert.Contains(t, out, "available_physical_memory_mb=N/A")
	assert.Contains(t, out, "last_backup=TBD")
	assert.Contains(t, out, "no rows", "metrics without records")

	assert.Contains(t, out, "db02")
	assert.Contains(t, out, "connection")
	assert.Contains(t, out, "Database connection failed for db02")
}

func TestCheck_AllUnreachableExitsNonZero(t *testing.T) {
	src := srctesting.NewFakeSource()

	var buf bytes.Buffer
	err := testChecker(src).run(context.Background(), &buf, []config.Instance{testInstance("db01")})
	require.Error(t, err)

	code, ok := errors.GetExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), ui.SymbolFail)
}

func TestCheck_JSONOutput(t *testing.T) {
	oldMode := machineMode
	defer func() { machineMode = oldMode }()
	machineMode = true

	src := srctesting.NewFakeSource().AddInstance("db01", healthyRecords())
	src.FailMetric("db01", source.Disk, stderrors.New("timeout"))
	src.FailMetric("db01", source.Activity, errors.NewNoProcedure(source.Activity))

	var buf bytes.Buffer
	require.NoError(t, testChecker(src).run(context.Background(), &buf, []config.Instance{testInstance("db01")}))

	var env struct {
		Success bool          `json:"success"`
		Data    []CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	require.Len(t, env.Data, 1)

	res := env.Data[0]
	assert.True(t, res.Connected)
	assert.Equal(t, "2025-03-01 10:30:00", res.Stamp)
	require.Len(t, res.Metrics, len(source.Metrics))

	byKey := map[string]CheckMetricResult{}
	for _, m := range res.Metrics {
		byKey[m.Metric] = m
	}
	assert.Equal(t, "ok", byKey[source.CPU].Outcome)
	assert.EqualValues(t, 12, byKey[source.CPU].Record["SQLProcessUtilization"])
	assert.Equal(t, "query_error", byKey[source.Disk].Outcome)
	assert.Contains(t, byKey[source.Disk].Error, "timeout")
	assert.Equal(t, "no_procedure", byKey[source.Activity].Outcome)
	assert.Equal(t, "TBD", byKey[source.Backup].Record["last_backup"])
}

func TestCheck_JSONConnectionError(t *testing.T) {
	oldMode := machineMode
	defer func() { machineMode = oldMode }()
	machineMode = true

	var buf bytes.Buffer
	err := testChecker(srctesting.NewFakeSource()).run(context.Background(), &buf, []config.Instance{testInstance("db09")})
	require.Error(t, err)

	var env struct {
		Data []CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.False(t, env.Data[0].Connected)
	require.NotNil(t, env.Data[0].Error)
	assert.Equal(t, ErrCodeConnectionFailed, env.Data[0].Error.Code)
	assert.Empty(t, env.Data[0].Metrics)
}

func TestCheckRows(t *testing.T) {
	results := []CheckResult{
		{
			Instance:  "db01",
			Connected: true,
			Metrics: []CheckMetricResult{
				{Metric: source.Backup, Outcome: "ok", Record: source.Record{"last_backup": "TBD"}},
				{Metric: source.Disk, Outcome: "query_error", Error: "SQL query error for disk: timeout"},
				{Metric: source.Activity, Outcome: "no_procedure", Error: "No stored procedure for activity"},
			},
		},
		{
			Instance: "db02",
			Error:    &JSONError{Code: ErrCodeConnectionFailed, Message: "Cannot connect", Suggestion: "Check the host"},
		},
	}

	rows := checkRows(results)
	require.Len(t, rows, 4)

	assert.Equal(t, ui.CheckRow{Instance: "db01", Metric: source.Backup, Status: ui.CheckOK, Message: "last_backup=TBD"}, rows[0])
	assert.Equal(t, ui.CheckFailed, rows[1].Status)
	assert.Equal(t, ui.CheckSkipped, rows[2].Status)
	assert.Equal(t, ui.CheckRow{
		Instance: "db02", Metric: "connection", Status: ui.CheckFailed,
		Message: "Cannot connect", Suggestion: "Check the host",
	}, rows[3])
}

func TestSummarizeRecord(t *testing.T) {
	assert.Equal(t, "no rows", summarizeRecord(source.CPU, nil))
	assert.Equal(t, "no rows", summarizeRecord("unknown", source.Record{"a": 1}))
	assert.Equal(t,
		"SQLProcessUtilization=1.50 SystemIdle=NULL OtherProcessUtilization=N/A cpu_count=8",
		summarizeRecord(source.CPU, source.Record{"SQLProcessUtilization": 1.5, "SystemIdle": nil, "cpu_count": int64(8)}))
}

func TestErrorLine(t *testing.T) {
	wrapped := errors.WrapWithCode(stderrors.New("timeout"), errors.ErrQuery, "SQL query error for disk", "")
	assert.Equal(t, "SQL query error for disk: timeout", errorLine(wrapped))
	assert.Equal(t, "No cause", errorLine(errors.New(errors.ErrQuery, "No cause", "")))
	assert.Equal(t, "plain", errorLine(stderrors.New("plain")))
}
