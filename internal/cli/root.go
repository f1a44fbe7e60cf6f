package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/ui"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "sqlmon",
	Short: "SQL Server health dashboard",
	Long: `sqlmon polls SQL Server instances for CPU, memory, tempdb, disk,
backup and activity metrics and shows a rolling history of each.

Instances are read from sqlmon.yaml. Every top-level key starting with
"database" is an instance section.

Examples:
  sqlmon init
  sqlmon serve
  sqlmon watch db01
  sqlmon check`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.DisableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./sqlmon.yaml, then ~/.config/sqlmon/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits with the error's code.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(reportError(err, os.Stderr))
	}
}

// reportError prints err and returns the process exit code. ExitError is
// silent since the command already reported its outcome.
func reportError(err error, w io.Writer) int {
	if code, ok := errors.GetExitCode(err); ok {
		return code
	}

	if MachineMode() {
		_ = WriteJSONFromError(w, err)
		return 1
	}

	if isUnknownCommandError(err) {
		name := extractUnknownCommand(err)
		err = errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown command %q", name),
			"Run 'sqlmon --help' to see the available commands")
	}
	fmt.Fprintln(w, err)
	return 1
}

// isUnknownCommandError reports whether cobra rejected the command line.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "sqlmon"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start == -1 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end == -1 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

// loadConfig finds, loads and validates the config, then installs the
// logger it describes. Skipped instance sections are logged as warnings.
func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.FindAndLoad(cfgFile)
	if cfg != nil {
		// Build a logger even for ErrNoInstances so skipped sections show up.
		log, logErr := newLogger(cfg.Dashboard)
		if logErr != nil {
			return nil, nil, logErr
		}
		for _, s := range cfg.Skipped {
			log.Warn("skipping config section %s: %s", s.Section, s.Reason)
		}
		if err != nil {
			return nil, nil, err
		}
		if err := config.Validate(cfg); err != nil {
			return nil, nil, err
		}
		log.Debug("loaded %d instances from %s", len(cfg.Instances), cfg.Path)
		return cfg, log, nil
	}
	return nil, nil, err
}

// newLogger builds the process logger from the dashboard settings. The
// --verbose flag forces debug level.
func newLogger(d config.DashboardConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Options{Level: logLevel(d.LogLevel), Format: d.LogFormat})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid logging settings",
			"Use log_level debug|info|warn|error and log_format json|console")
	}
	logger.SetDefault(log)
	return log, nil
}

// selectInstances resolves names to configured instances. No names means
// all of them.
func selectInstances(cfg *config.Config, names []string) ([]config.Instance, error) {
	if len(names) == 0 {
		return cfg.Instances, nil
	}

	insts := make([]config.Instance, 0, len(names))
	for _, name := range names {
		inst, ok := cfg.Instance(name)
		if !ok {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Unknown instance %q", name),
				"Available: "+strings.Join(cfg.InstanceNames(), ", "))
		}
		insts = append(insts, inst)
	}
	return insts, nil
}
