package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
)

func clearInitEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SQLMON_HOST", "SQLMON_USER", "SQLMON_PASSWORD", "SQLMON_DATABASE",
		"SQLMON_SSH_TUNNEL", "SQLMON_NON_INTERACTIVE", "CI",
	} {
		t.Setenv(key, "")
	}
}

func TestMergeInitDefaults(t *testing.T) {
	t.Run("env fills unset fields", func(t *testing.T) {
		clearInitEnv(t)
		t.Setenv("SQLMON_HOST", "env-host")
		t.Setenv("SQLMON_USER", "env-user")
		t.Setenv("SQLMON_DATABASE", "env-db")
		t.Setenv("SQLMON_NON_INTERACTIVE", "true")

		opts := mergeInitDefaults(InitOptions{User: "flag-user"})
		assert.Equal(t, "env-host", opts.Host)
		assert.Equal(t, "flag-user", opts.User, "flags win over env")
		assert.Equal(t, "env-db", opts.Database)
		assert.True(t, opts.NonInteractive)
	})

	t.Run("CI env triggers non-interactive", func(t *testing.T) {
		clearInitEnv(t)
		t.Setenv("CI", "1")

		assert.True(t, mergeInitDefaults(InitOptions{}).NonInteractive)
	})

	t.Run("empty env", func(t *testing.T) {
		clearInitEnv(t)

		opts := mergeInitDefaults(InitOptions{})
		assert.Empty(t, opts.Host)
		assert.False(t, opts.NonInteractive)
	})
}

func TestInit_NonInteractive_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlmon.yaml")

	var out bytes.Buffer
	err := Init(InitOptions{
		Path:           path,
		Section:        "database1",
		Host:           "db01.internal",
		Port:           14330,
		User:           "monitor",
		Password:       "secret",
		Database:       "master",
		SSHTunnel:      "bastion",
		NonInteractive: true,
	}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Created "+path)
	assert.Contains(t, out.String(), "sqlmon watch")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Instances, 1)
	inst := cfg.Instances[0]
	assert.Equal(t, "db01.internal1", inst.Name)
	assert.Equal(t, 14330, inst.Port)
	assert.Equal(t, "secret", inst.Password)
	assert.Equal(t, "bastion", inst.SSHTunnel)
}

func TestInit_NonInteractive_PasswordFromEnv(t *testing.T) {
	t.Setenv("SQLMON_PASSWORD", "from-env")
	path := filepath.Join(t.TempDir(), "sqlmon.yaml")

	err := Init(InitOptions{
		Path:           path,
		Host:           "db01",
		User:           "monitor",
		Database:       "master",
		NonInteractive: true,
	}, &bytes.Buffer{})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "${SQLMON_PASSWORD}", "password is not written in clear")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Instances[0].Password)
	assert.Equal(t, config.DefaultPort, cfg.Instances[0].Port)
}

func TestInit_NonInteractive_MissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlmon.yaml")

	err := Init(InitOptions{Path: path, Host: "db01", NonInteractive: true}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "user, database")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing is written on error")
}

func TestInit_NonInteractive_ConfigExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o600))

	err := Init(InitOptions{
		Path: path, Host: "db01", User: "u", Database: "d", NonInteractive: true,
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	content, _ := os.ReadFile(path)
	assert.Equal(t, "original", string(content))
}

func TestInit_NonInteractive_ForceOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o600))

	err := Init(InitOptions{
		Path: path, Host: "db01", User: "u", Database: "d",
		Overwrite: true, NonInteractive: true,
	}, &bytes.Buffer{})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "database1:")
	assert.Contains(t, string(content), "host: db01")
}

func TestInit_BadSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlmon.yaml")

	err := Init(InitOptions{
		Path: path, Section: "prod", Host: "db01", User: "u", Database: "d", NonInteractive: true,
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `must start with "database"`)
}

func TestInitFlags(t *testing.T) {
	for _, name := range []string{"path", "section", "host", "port", "user", "password", "database", "ssh-tunnel", "force", "non-interactive"} {
		assert.NotNil(t, initCmd.Flags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, config.ConfigFileName, initCmd.Flags().Lookup("path").DefValue)
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, validatePort("1433"))
	assert.NoError(t, validatePort(" 65535 "))
	assert.Error(t, validatePort("0"))
	assert.Error(t, validatePort("70000"))
	assert.Error(t, validatePort("abc"))
}
