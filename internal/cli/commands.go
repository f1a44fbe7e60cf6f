package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/monitor"
	"github.com/rileyhilliard/sqlmon/internal/source"
	"github.com/rileyhilliard/sqlmon/internal/tui"
	"github.com/rileyhilliard/sqlmon/internal/ui"
	"github.com/rileyhilliard/sqlmon/internal/web"
	"github.com/rileyhilliard/sqlmon/pkg/sshutil"
)

// Command-specific flags
var (
	serveListen  string
	watchLogFile string
)

// serveCmd runs the browser dashboard
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard in the browser",
	Long: `Start the web dashboard. Each browser tab gets its own session with
its own histories; frames are pushed over a websocket on every tick.

Examples:
  sqlmon serve
  sqlmon serve --listen 0.0.0.0:8501`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd.Context())
	},
}

// watchCmd runs the terminal dashboard
var watchCmd = &cobra.Command{
	Use:   "watch [instance]",
	Short: "Show the dashboard in the terminal",
	Long: `Start the terminal dashboard, optionally selecting an instance right away.

Keyboard shortcuts:
  r           Refresh now (restarts monitoring)
  s           Stop monitoring
  c           Clear history
  a           Toggle auto-refresh
  tab         Next metric tab
  up/down     Select instance
  ?           Help
  q / Ctrl+C  Quit

Examples:
  sqlmon watch
  sqlmon watch db01 --log-file /tmp/sqlmon.log`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand(cmd.Context(), args)
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for sqlmon.

Examples:
  # Bash
  sqlmon completion bash > /etc/bash_completion.d/sqlmon

  # Zsh
  sqlmon completion zsh > "${fpath[1]}/_sqlmon"

  # Fish
  sqlmon completion fish > ~/.config/fish/completions/sqlmon.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return errors.New(errors.ErrConfig,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "address to listen on (overrides dashboard.listen)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "write logs to this file (the terminal is taken by the dashboard)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(completionCmd)
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func serveCommand(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Dashboard.Listen = serveListen
	}

	ctx, stop := signalContext(ctx)
	defer stop()
	defer sshutil.CloseAgent()

	tel, shutdown, err := startTelemetry(log.With("component", "telemetry"))
	if err != nil {
		return err
	}
	defer shutdown()

	gin.SetMode(gin.ReleaseMode)
	src := source.NewSQLServer(cfg.Dashboard.QueryTimeout, log.With("component", "source"))
	srv := web.New(web.Options{
		Config:    cfg,
		Source:    src,
		Logger:    log,
		Telemetry: tel,
	})
	return srv.ListenAndServe(ctx)
}

func watchCommand(ctx context.Context, args []string) error {
	if !ui.IsTerminal(os.Stdout) {
		return errors.New(errors.ErrConfig,
			"sqlmon watch needs an interactive terminal",
			"Use 'sqlmon serve' for the browser dashboard or 'sqlmon check' for one-shot output")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	initial := ""
	if len(args) == 1 {
		insts, err := selectInstances(cfg, args)
		if err != nil {
			return err
		}
		initial = insts[0].Name
	}

	// The dashboard owns the screen, so logs go to a file or nowhere.
	log := logger.Noop()
	var telLog logger.Logger
	if watchLogFile != "" {
		f, err := os.OpenFile(watchLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot open log file "+watchLogFile,
				"Check the path and permissions")
		}
		defer f.Close()

		zl, err := logger.New(logger.Options{Level: logLevel(cfg.Dashboard.LogLevel), Format: cfg.Dashboard.LogFormat, Output: f})
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, "Invalid logging settings", "")
		}
		defer zl.Sync()
		log = zl
		telLog = zl.With("component", "telemetry")
	}

	tel, shutdown, err := startTelemetry(telLog)
	if err != nil {
		return err
	}
	defer shutdown()

	ctx, stop := signalContext(ctx)
	defer stop()
	defer sshutil.CloseAgent()

	src := source.NewSQLServer(cfg.Dashboard.QueryTimeout, log.With("component", "source"))
	sched := monitor.NewScheduler(cfg, src, log, tel.Metrics)
	return tui.Run(ctx, sched, cfg.Dashboard.TickInterval, cfg.InstanceNames(), initial)
}

func logLevel(configured string) string {
	if verbose {
		return "debug"
	}
	return configured
}
