package config

import (
	"fmt"
	"net"
	"time"

	"github.com/rileyhilliard/sqlmon/internal/errors"
	"go.uber.org/zap/zapcore"
)

const (
	minPollInterval = time.Second
	minTickInterval = 50 * time.Millisecond
	maxTickInterval = 5 * time.Second
	maxHistorySize  = 1000
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if err := ValidateDashboard(cfg.Dashboard); err != nil {
		return err
	}

	for _, inst := range cfg.Instances {
		if err := ValidateInstance(inst); err != nil {
			return err
		}
	}

	return nil
}

// ValidateDashboard checks the polling and server settings.
func ValidateDashboard(d DashboardConfig) error {
	if d.PollInterval < minPollInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("dashboard.poll_interval %s is too short", d.PollInterval),
			fmt.Sprintf("Use at least %s, e.g. poll_interval: 60s", minPollInterval))
	}

	if d.TickInterval < minTickInterval || d.TickInterval > maxTickInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("dashboard.tick_interval %s is out of range", d.TickInterval),
			fmt.Sprintf("Pick something between %s and %s; 200ms is the default", minTickInterval, maxTickInterval))
	}

	if d.RetryBackoff < 0 {
		return errors.New(errors.ErrConfig,
			"dashboard.retry_backoff can't be negative",
			"Set it to 0 to retry on every tick, or leave it out for the 5s default")
	}

	if d.HistorySize < 1 || d.HistorySize > maxHistorySize {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("dashboard.history_size %d is out of range", d.HistorySize),
			fmt.Sprintf("Keep between 1 and %d samples per metric", maxHistorySize))
	}

	if d.QueryTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"dashboard.query_timeout must be positive",
			"Try query_timeout: 30s")
	}

	if d.SessionTTL <= 0 {
		return errors.New(errors.ErrConfig,
			"dashboard.session_ttl must be positive",
			"Try session_ttl: 30m")
	}

	if _, _, err := net.SplitHostPort(d.Listen); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("dashboard.listen %q is not a host:port address", d.Listen),
			"Use something like 127.0.0.1:8501 or :8501")
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(d.LogLevel)); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("dashboard.log_level %q is not a log level", d.LogLevel),
			"Valid options: debug, info, warn, error")
	}

	switch d.LogFormat {
	case "json", "console":
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("dashboard.log_format %q is not supported", d.LogFormat),
			"Valid options: json, console")
	}

	return nil
}

// ValidateInstance checks one loaded instance. The loader already skips
// sections missing required keys, so this guards programmatic configs.
func ValidateInstance(inst Instance) error {
	if inst.Name == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Instance from section %q has no display name", inst.Section),
			"Give the section a host value")
	}
	if inst.Host == "" || inst.User == "" || inst.Database == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Instance %q is missing connection settings", inst.Name),
			"Each database section needs host, user and database")
	}
	if inst.Port <= 0 || inst.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Instance %q has invalid port %d", inst.Name, inst.Port),
			fmt.Sprintf("Leave port out for the default %d", DefaultPort))
	}
	return nil
}
