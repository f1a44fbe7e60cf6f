package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
)

// ConfigFileCheck verifies that a config file exists.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return CategoryConfig }

func (c *ConfigFileCheck) Run(context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    "Error finding config: " + errorMessage(err),
			Suggestion: "Check the --config path or run 'sqlmon init'",
		}
	}

	if path == "" {
		return CheckResult{
			Status:     StatusFail,
			Message:    "No config file found",
			Suggestion: fmt.Sprintf("Run 'sqlmon init' to create ./%s", config.ConfigFileName),
		}
	}

	return CheckResult{
		Status:  StatusPass,
		Message: "Config file: " + path,
	}
}

// ConfigLoadCheck verifies that the config parses, validates, and yields at
// least one instance.
type ConfigLoadCheck struct {
	Config *config.Config
	Err    error // error returned by config.Load, if any
}

func (c *ConfigLoadCheck) Name() string     { return "config_load" }
func (c *ConfigLoadCheck) Category() string { return CategoryConfig }

func (c *ConfigLoadCheck) Run(context.Context) CheckResult {
	if c.Err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    errorMessage(c.Err),
			Suggestion: suggestionOf(c.Err, "Check the YAML syntax in your config file"),
		}
	}
	if c.Config == nil {
		return CheckResult{
			Status:  StatusFail,
			Message: "Cannot validate: no config loaded",
		}
	}

	if err := config.Validate(c.Config); err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    errorMessage(err),
			Suggestion: suggestionOf(err, ""),
		}
	}

	n := len(c.Config.Instances)
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%d instance%s: %s", n, pluralize(n), strings.Join(c.Config.InstanceNames(), ", ")),
	}
}

// SkippedSectionsCheck warns about database sections the loader ignored.
type SkippedSectionsCheck struct {
	Config *config.Config
}

func (c *SkippedSectionsCheck) Name() string     { return "config_sections" }
func (c *SkippedSectionsCheck) Category() string { return CategoryConfig }

func (c *SkippedSectionsCheck) Run(context.Context) CheckResult {
	if c.Config == nil || len(c.Config.Skipped) == 0 {
		return CheckResult{
			Status:  StatusPass,
			Message: "All database sections usable",
		}
	}

	lines := make([]string, 0, len(c.Config.Skipped))
	for _, s := range c.Config.Skipped {
		lines = append(lines, s.Section+": "+s.Reason)
	}
	n := len(c.Config.Skipped)
	return CheckResult{
		Status:     StatusWarn,
		Message:    fmt.Sprintf("%d section%s skipped", n, pluralize(n)),
		Suggestion: strings.Join(lines, "\n"),
	}
}

// NewConfigChecks returns the config checks. cfg and loadErr are the result
// of loading the file at cfgPath; both may be nil.
func NewConfigChecks(cfgPath string, cfg *config.Config, loadErr error) []Check {
	return []Check{
		&ConfigFileCheck{ConfigPath: cfgPath},
		&ConfigLoadCheck{Config: cfg, Err: loadErr},
		&SkippedSectionsCheck{Config: cfg},
	}
}

// errorMessage returns the headline of a structured error.
func errorMessage(err error) string {
	var sErr *errors.Error
	if errors.As(err, &sErr) {
		return sErr.Message
	}
	return err.Error()
}

func suggestionOf(err error, fallback string) string {
	var sErr *errors.Error
	if errors.As(err, &sErr) && sErr.Suggestion != "" {
		return sErr.Suggestion
	}
	return fallback
}
