package config

import (
	"sort"
	"time"
)

// InstancePrefix marks a top-level config section as a database instance.
const InstancePrefix = "database"

// DefaultPort is the SQL Server port used when an instance omits one.
const DefaultPort = 1433

// Config represents the complete sqlmon.yaml configuration file.
type Config struct {
	// Dashboard holds polling and server settings.
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`

	// Instances are the usable database sections, sorted by display name.
	Instances []Instance `yaml:"-" mapstructure:"-"`

	// Skipped lists sections that looked like instances but could not be used.
	Skipped []SkippedSection `yaml:"-" mapstructure:"-"`

	// Path is the file the config was read from.
	Path string `yaml:"-" mapstructure:"-"`
}

// DashboardConfig controls the polling engine and the renderers.
type DashboardConfig struct {
	// Listen is the address the web dashboard binds to.
	Listen string `yaml:"listen" mapstructure:"listen"`

	// PollInterval is how long auto-refresh waits between fetch cycles.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// TickInterval paces re-renders while monitoring is active.
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`

	// RetryBackoff is the wait after a failed connection before the next attempt.
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`

	// HistorySize caps the samples kept per metric.
	HistorySize int `yaml:"history_size" mapstructure:"history_size"`

	// QueryTimeout bounds a single connection attempt or procedure call.
	QueryTimeout time.Duration `yaml:"query_timeout" mapstructure:"query_timeout"`

	// SessionTTL is how long an idle browser session is kept.
	SessionTTL time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"`

	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"`
}

// Instance is one configured SQL Server target. Immutable once loaded.
type Instance struct {
	// Name is the display name shown in the instance selector.
	Name string

	// Section is the config key the instance was read from.
	Section string

	Host     string
	Port     int
	User     string
	Password string
	Database string

	// SSHTunnel, when set, routes the connection through this SSH host
	// (user@host or an ~/.ssh/config alias).
	SSHTunnel string

	// Extra keeps any other keys from the section verbatim.
	Extra map[string]string
}

// SkippedSection records why an instance section was ignored.
type SkippedSection struct {
	Section string
	Reason  string
}

// DefaultDashboard returns the dashboard settings used when the file is silent.
func DefaultDashboard() DashboardConfig {
	return DashboardConfig{
		Listen:       "127.0.0.1:8501",
		PollInterval: 60 * time.Second,
		TickInterval: 200 * time.Millisecond,
		RetryBackoff: 5 * time.Second,
		HistorySize:  10,
		QueryTimeout: 30 * time.Second,
		SessionTTL:   30 * time.Minute,
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

// DefaultConfig returns a config with default dashboard settings and no instances.
func DefaultConfig() *Config {
	return &Config{Dashboard: DefaultDashboard()}
}

// Instance looks up an instance by display name.
func (c *Config) Instance(name string) (Instance, bool) {
	for _, inst := range c.Instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return Instance{}, false
}

// InstanceNames returns the display names in selector order.
func (c *Config) InstanceNames() []string {
	names := make([]string, 0, len(c.Instances))
	for _, inst := range c.Instances {
		names = append(names, inst.Name)
	}
	return names
}

func sortInstances(insts []Instance) {
	sort.Slice(insts, func(i, j int) bool { return insts[i].Name < insts[j].Name })
}
