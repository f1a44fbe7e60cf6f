package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/sqlmon/internal/config"
)

func instancesConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Path = "/etc/sqlmon.yaml"
	cfg.Instances = []config.Instance{
		{Name: "db01", Section: "database", Host: "db01", Port: 1433, User: "monitor", Password: "secret", Database: "master"},
		{Name: "db02", Section: "database", Host: "db02", Port: 14330, User: "monitor", Password: "secret", Database: "ops", SSHTunnel: "bastion"},
	}
	return cfg
}

func TestListInstances_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listInstances(&buf, instancesConfig()))

	out := buf.String()
	assert.Contains(t, out, "/etc/sqlmon.yaml")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "db01")
	assert.Contains(t, out, "14330")
	assert.Contains(t, out, "bastion")
	assert.NotContains(t, out, "secret")
}

func TestListInstances_JSON(t *testing.T) {
	oldMode := machineMode
	defer func() { machineMode = oldMode }()
	machineMode = true

	var buf bytes.Buffer
	require.NoError(t, listInstances(&buf, instancesConfig()))
	assert.NotContains(t, buf.String(), "secret", "passwords never leave the process")

	var env struct {
		Success bool           `json:"success"`
		Data    []InstanceInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	require.Len(t, env.Data, 2)
	assert.Equal(t, InstanceInfo{
		Name: "db02", Section: "database", Host: "db02", Port: 14330,
		User: "monitor", Database: "ops", SSHTunnel: "bastion",
	}, env.Data[1])
}
