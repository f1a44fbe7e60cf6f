package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDashboard(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *DashboardConfig)
		wantErr string
	}{
		{"defaults", func(d *DashboardConfig) {}, ""},
		{"poll too short", func(d *DashboardConfig) { d.PollInterval = 500 * time.Millisecond }, "poll_interval"},
		{"tick too short", func(d *DashboardConfig) { d.TickInterval = 10 * time.Millisecond }, "tick_interval"},
		{"tick too long", func(d *DashboardConfig) { d.TickInterval = 10 * time.Second }, "tick_interval"},
		{"negative backoff", func(d *DashboardConfig) { d.RetryBackoff = -time.Second }, "retry_backoff"},
		{"zero backoff allowed", func(d *DashboardConfig) { d.RetryBackoff = 0 }, ""},
		{"history zero", func(d *DashboardConfig) { d.HistorySize = 0 }, "history_size"},
		{"history huge", func(d *DashboardConfig) { d.HistorySize = 5000 }, "history_size"},
		{"query timeout zero", func(d *DashboardConfig) { d.QueryTimeout = 0 }, "query_timeout"},
		{"session ttl zero", func(d *DashboardConfig) { d.SessionTTL = 0 }, "session_ttl"},
		{"listen no port", func(d *DashboardConfig) { d.Listen = "localhost" }, "listen"},
		{"listen port only", func(d *DashboardConfig) { d.Listen = ":8501" }, ""},
		{"bad log level", func(d *DashboardConfig) { d.LogLevel = "chatty" }, "log_level"},
		{"bad log format", func(d *DashboardConfig) { d.LogFormat = "xml" }, "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DefaultDashboard()
			tt.mutate(&d)
			err := ValidateDashboard(d)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateInstance(t *testing.T) {
	good := Instance{Name: "db01", Section: "database", Host: "db01", Port: DefaultPort, User: "u", Database: "d"}
	assert.NoError(t, ValidateInstance(good))

	noName := good
	noName.Name = ""
	assert.Error(t, ValidateInstance(noName))

	noHost := good
	noHost.Host = ""
	assert.Error(t, ValidateInstance(noHost))

	badPort := good
	badPort.Port = 70000
	assert.Error(t, ValidateInstance(badPort))

	cfg := DefaultConfig()
	cfg.Instances = []Instance{good, badPort}
	assert.Error(t, Validate(cfg))
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)
	inst := StarterInstance{
		Host:     "db01",
		Port:     DefaultPort,
		User:     "monitor",
		Password: "pw",
		Database: "master",
	}

	require.NoError(t, WriteStarter(path, inst, false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	require.Len(t, cfg.Instances, 1)
	assert.Equal(t, "db011", cfg.Instances[0].Name)
	assert.Equal(t, DefaultPort, cfg.Instances[0].Port)
	assert.Equal(t, DefaultDashboard(), cfg.Dashboard)

	err = WriteStarter(path, inst, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	inst.Host = "db02"
	require.NoError(t, WriteStarter(path, inst, true))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db02", cfg.Instances[0].Host)
}

func TestRenderStarter_SectionName(t *testing.T) {
	_, err := RenderStarter(StarterInstance{Section: "prod", Host: "h", User: "u", Database: "d"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	data, err := RenderStarter(StarterInstance{Section: "database_prod", Host: "h", Port: 1500, User: "u", Database: "d", SSHTunnel: "bastion"})
	require.NoError(t, err)
	assert.Contains(t, string(data), "database_prod:")
	assert.Contains(t, string(data), "port: 1500")
	assert.Contains(t, string(data), "ssh_tunnel: bastion")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1m", formatDuration(time.Minute))
	assert.Equal(t, "5s", formatDuration(5*time.Second))
	assert.Equal(t, "200ms", formatDuration(200*time.Millisecond))
	assert.Equal(t, "30m", formatDuration(30*time.Minute))
}
