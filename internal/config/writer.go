package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rileyhilliard/sqlmon/internal/errors"
	"gopkg.in/yaml.v3"
)

// StarterInstance is what `sqlmon init` collects for the first database section.
type StarterInstance struct {
	Section   string
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
	SSHTunnel string
}

type fileInstance struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port,omitempty"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	SSHTunnel string `yaml:"ssh_tunnel,omitempty"`
}

type fileDashboard struct {
	Listen       string `yaml:"listen"`
	PollInterval string `yaml:"poll_interval"`
	TickInterval string `yaml:"tick_interval"`
	HistorySize  int    `yaml:"history_size"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

// RenderStarter produces the YAML for a new config file.
func RenderStarter(inst StarterInstance) ([]byte, error) {
	section := inst.Section
	if section == "" {
		section = InstancePrefix + "1"
	}
	if len(section) < len(InstancePrefix) || section[:len(InstancePrefix)] != InstancePrefix {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Section name %q must start with %q", section, InstancePrefix),
			"Use something like database1")
	}

	port := inst.Port
	if port == DefaultPort {
		port = 0
	}

	d := DefaultDashboard()
	doc := map[string]interface{}{
		"dashboard": fileDashboard{
			Listen:       d.Listen,
			PollInterval: formatDuration(d.PollInterval),
			TickInterval: formatDuration(d.TickInterval),
			HistorySize:  d.HistorySize,
			LogLevel:     d.LogLevel,
			LogFormat:    d.LogFormat,
		},
		section: fileInstance{
			Host:      inst.Host,
			Port:      port,
			User:      inst.User,
			Password:  inst.Password,
			Database:  inst.Database,
			SSHTunnel: inst.SSHTunnel,
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}

	header := "# sqlmon configuration\n" +
		"# Every top-level key starting with \"database\" is an instance.\n" +
		"# Values may reference environment variables, e.g. password: ${SQLMON_PASSWORD}\n\n"
	return append([]byte(header), data...), nil
}

// WriteStarter renders a starter config and writes it to path.
// An existing file is left alone unless force is set.
func WriteStarter(path string, inst StarterInstance, force bool) error {
	path = ExpandTilde(path)

	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			"Config file already exists: "+path,
			"Use --force to overwrite it")
	}

	data, err := RenderStarter(inst)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot create config directory "+dir,
				"Check directory permissions")
		}
	}

	// Holds a password, so owner-only.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file "+path,
			"Check file permissions")
	}
	return nil
}

func formatDuration(d time.Duration) string {
	switch {
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	default:
		return fmt.Sprintf("%dms", d/time.Millisecond)
	}
}
