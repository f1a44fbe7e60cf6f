package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
)

func decodeEnvelope(t *testing.T, buf *bytes.Buffer) JSONEnvelope {
	t.Helper()
	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	return env
}

func TestMachineMode_DefaultValue(t *testing.T) {
	oldMode := machineMode
	defer func() { machineMode = oldMode }()

	machineMode = false
	assert.False(t, MachineMode())

	machineMode = true
	assert.True(t, MachineMode())
}

func TestWriteJSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, map[string]string{"instance": "db01"}))

	env := decodeEnvelope(t, &buf)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, map[string]interface{}{"instance": "db01"}, env.Data)
	assert.Contains(t, buf.String(), "\n  ", "output is indented")
}

func TestWriteJSONSuccess_NilData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, nil))
	assert.NotContains(t, buf.String(), "data")
}

func TestWriteJSONError_AllFields(t *testing.T) {
	var buf bytes.Buffer
	details := map[string]string{"instance": "db01"}
	require.NoError(t, WriteJSONError(&buf, ErrCodeConnectionFailed, "Cannot connect", "Check the host", details))

	env := decodeEnvelope(t, &buf)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeConnectionFailed, env.Error.Code)
	assert.Equal(t, "Cannot connect", env.Error.Message)
	assert.Equal(t, "Check the host", env.Error.Suggestion)
	assert.NotNil(t, env.Error.Details)
}

func TestWriteJSONFromError_GenericError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONFromError(&buf, fmt.Errorf("something went wrong")))

	env := decodeEnvelope(t, &buf)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeUnknown, env.Error.Code)
	assert.Equal(t, "something went wrong", env.Error.Message)
}

func TestWriteJSONFromError_WrappedStructuredError(t *testing.T) {
	var buf bytes.Buffer
	inner := errors.New(errors.ErrSSH, "Tunnel refused", "Check the bastion")
	require.NoError(t, WriteJSONFromError(&buf, fmt.Errorf("open db02: %w", inner)))

	env := decodeEnvelope(t, &buf)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeSSHTunnelFailed, env.Error.Code)
	assert.Equal(t, "Tunnel refused", env.Error.Message)
	assert.Equal(t, "Check the bastion", env.Error.Suggestion)
}

func TestErrorToJSON_NilReturnsNil(t *testing.T) {
	assert.Nil(t, ErrorToJSON(nil))
}

func TestErrorToJSON_InternalCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config not found", errors.New(errors.ErrConfig, "Config file not found", ""), ErrCodeConfigNotFound},
		{"no config file", errors.New(errors.ErrConfig, "No config file found", ""), ErrCodeConfigNotFound},
		{"config invalid", errors.New(errors.ErrConfig, "poll_interval too short", ""), ErrCodeConfigInvalid},
		{"no instances", config.ErrNoInstances, ErrCodeNoInstances},
		{"connection", errors.New(errors.ErrConnection, "Cannot connect to db01", ""), ErrCodeConnectionFailed},
		{"query", errors.New(errors.ErrQuery, "usp_SQLMonLit_CPU failed", ""), ErrCodeQueryFailed},
		{"no procedure", errors.NewNoProcedure("backup"), ErrCodeNoProcedure},
		{"ssh", errors.New(errors.ErrSSH, "Tunnel failed", ""), ErrCodeSSHTunnelFailed},
		{"session", errors.New(errors.ErrSession, "Session expired", ""), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorToJSON(tt.err).Code)
		})
	}
}
