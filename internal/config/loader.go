package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "sqlmon.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/sqlmon"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. SQLMON_DATABASE1_PASSWORD.
	EnvPrefix = "SQLMON"
)

// ErrNoInstances is returned when the file parses but holds no usable
// database section. It is distinguishable from a missing or broken file.
var ErrNoInstances = errors.New(errors.ErrConfig,
	"No usable database instances in config",
	"Add a section such as 'database1:' with host, user, password and database")

// knownInstanceKeys are read into Instance fields; everything else lands in Extra.
var knownInstanceKeys = map[string]bool{
	"host":       true,
	"port":       true,
	"user":       true,
	"password":   true,
	"database":   true,
	"ssh_tunnel": true,
}

// Load reads config from the specified path.
//
// When the file is valid but no instance is usable, Load returns the parsed
// config together with ErrNoInstances so callers can still report Skipped.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'sqlmon init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. sqlmon.yaml in current directory
// 3. ~/.config/sqlmon/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if home, _ := os.UserHomeDir(); home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// FindAndLoad resolves the config path and loads it. A missing file is a
// CONFIG error since the dashboard has nothing to show without instances.
func FindAndLoad(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.New(errors.ErrConfig,
			"No config file found",
			fmt.Sprintf("Run 'sqlmon init' or create ./%s", ConfigFileName))
	}
	return Load(path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDashboardDefaults(v)
	return v
}

// setDashboardDefaults registers the dashboard keys so env overrides apply
// even when the file omits them.
func setDashboardDefaults(v *viper.Viper) {
	d := DefaultDashboard()
	v.SetDefault("dashboard.listen", d.Listen)
	v.SetDefault("dashboard.poll_interval", d.PollInterval)
	v.SetDefault("dashboard.tick_interval", d.TickInterval)
	v.SetDefault("dashboard.retry_backoff", d.RetryBackoff)
	v.SetDefault("dashboard.history_size", d.HistorySize)
	v.SetDefault("dashboard.query_timeout", d.QueryTimeout)
	v.SetDefault("dashboard.session_ttl", d.SessionTTL)
	v.SetDefault("dashboard.log_level", d.LogLevel)
	v.SetDefault("dashboard.log_format", d.LogFormat)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Path = path

	cfg.Dashboard = DashboardConfig{
		Listen:       v.GetString("dashboard.listen"),
		PollInterval: v.GetDuration("dashboard.poll_interval"),
		TickInterval: v.GetDuration("dashboard.tick_interval"),
		RetryBackoff: v.GetDuration("dashboard.retry_backoff"),
		HistorySize:  v.GetInt("dashboard.history_size"),
		QueryTimeout: v.GetDuration("dashboard.query_timeout"),
		SessionTTL:   v.GetDuration("dashboard.session_ttl"),
		LogLevel:     strings.ToLower(v.GetString("dashboard.log_level")),
		LogFormat:    strings.ToLower(v.GetString("dashboard.log_format")),
	}

	sections := make([]string, 0)
	for key := range v.AllSettings() {
		if strings.HasPrefix(key, InstancePrefix) {
			sections = append(sections, key)
		}
	}
	sort.Strings(sections)

	seen := make(map[string]string)
	for _, section := range sections {
		inst, reason := parseInstance(v, section)
		if reason != "" {
			cfg.Skipped = append(cfg.Skipped, SkippedSection{Section: section, Reason: reason})
			continue
		}
		if prev, dup := seen[inst.Name]; dup {
			cfg.Skipped = append(cfg.Skipped, SkippedSection{
				Section: section,
				Reason:  fmt.Sprintf("display name %q already used by section %q", inst.Name, prev),
			})
			continue
		}
		seen[inst.Name] = section
		cfg.Instances = append(cfg.Instances, inst)
	}
	sortInstances(cfg.Instances)

	if len(cfg.Instances) == 0 {
		return cfg, ErrNoInstances
	}

	return cfg, nil
}

// parseInstance reads one database section. A non-empty reason means the
// section is malformed and must be skipped.
func parseInstance(v *viper.Viper, section string) (Instance, string) {
	raw, ok := v.Get(section).(map[string]interface{})
	if !ok {
		return Instance{}, "section is not a mapping"
	}

	get := func(key string) string {
		return strings.TrimSpace(Expand(v.GetString(section + "." + key)))
	}

	inst := Instance{
		Section:   section,
		Host:      get("host"),
		User:      get("user"),
		Password:  Expand(v.GetString(section + ".password")),
		Database:  get("database"),
		SSHTunnel: get("ssh_tunnel"),
		Port:      DefaultPort,
		Extra:     map[string]string{},
	}

	var missing []string
	if inst.Host == "" {
		missing = append(missing, "host")
	}
	if inst.User == "" {
		missing = append(missing, "user")
	}
	if inst.Database == "" {
		missing = append(missing, "database")
	}
	if len(missing) > 0 {
		return Instance{}, "missing " + strings.Join(missing, ", ")
	}

	if _, set := raw["port"]; set {
		port := v.GetInt(section + ".port")
		if port <= 0 || port > 65535 {
			return Instance{}, fmt.Sprintf("invalid port %q", v.GetString(section+".port"))
		}
		inst.Port = port
	}

	for key, val := range raw {
		if knownInstanceKeys[key] {
			continue
		}
		inst.Extra[key] = fmt.Sprint(val)
	}

	inst.Name = DisplayName(section, inst.Host)
	if inst.Name == "" {
		return Instance{}, "empty display name"
	}

	return inst, ""
}

// DisplayName derives the selector label from a section key: the
// "database" part of the key is replaced by the host.
//
//	database  + db01 -> db01
//	database1 + db01 -> db011
func DisplayName(section, host string) string {
	return strings.TrimSpace(strings.ReplaceAll(section, InstancePrefix, host))
}
