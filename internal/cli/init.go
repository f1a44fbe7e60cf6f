package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/ui"
	"github.com/rileyhilliard/sqlmon/pkg/sshutil"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Path           string // Where to write the config
	Section        string // Section key, must start with "database"
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSHTunnel      string
	Overwrite      bool // Overwrite existing config without asking
	NonInteractive bool // Skip prompts, flags and env only
}

var initOpts InitOptions

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sqlmon.yaml config",
	Long: `Create a starter config with one database section.

Values come from flags, then SQLMON_HOST, SQLMON_USER, SQLMON_PASSWORD and
SQLMON_DATABASE, then interactive prompts. Set SQLMON_NON_INTERACTIVE or CI
to skip the prompts.

Examples:
  sqlmon init
  sqlmon init --host db01.internal --user monitor --database master
  sqlmon init --ssh-tunnel bastion --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(mergeInitDefaults(initOpts), cmd.OutOrStdout())
	},
}

func init() {
	f := initCmd.Flags()
	f.StringVar(&initOpts.Path, "path", config.ConfigFileName, "config file to write")
	f.StringVar(&initOpts.Section, "section", config.InstancePrefix+"1", "section name for the instance")
	f.StringVar(&initOpts.Host, "host", "", "SQL Server host")
	f.IntVar(&initOpts.Port, "port", config.DefaultPort, "SQL Server port")
	f.StringVar(&initOpts.User, "user", "", "login name")
	f.StringVar(&initOpts.Password, "password", "", "login password (prefer ${SQLMON_PASSWORD} in the file)")
	f.StringVar(&initOpts.Database, "database", "", "database to connect to")
	f.StringVar(&initOpts.SSHTunnel, "ssh-tunnel", "", "ssh_config alias to tunnel through")
	f.BoolVar(&initOpts.Overwrite, "force", false, "overwrite an existing config")
	f.BoolVar(&initOpts.NonInteractive, "non-interactive", false, "never prompt")

	rootCmd.AddCommand(initCmd)
}

// mergeInitDefaults fills unset options from the environment.
func mergeInitDefaults(opts InitOptions) InitOptions {
	env := func(cur *string, key string) {
		if *cur == "" {
			*cur = os.Getenv(key)
		}
	}
	env(&opts.Host, "SQLMON_HOST")
	env(&opts.User, "SQLMON_USER")
	env(&opts.Password, "SQLMON_PASSWORD")
	env(&opts.Database, "SQLMON_DATABASE")
	env(&opts.SSHTunnel, "SQLMON_SSH_TUNNEL")

	if isTruthy(os.Getenv("SQLMON_NON_INTERACTIVE")) || isTruthy(os.Getenv("CI")) {
		opts.NonInteractive = true
	}
	return opts
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Init writes a starter config from opts, prompting for anything missing
// unless NonInteractive is set.
func Init(opts InitOptions, out io.Writer) error {
	if opts.Path == "" {
		opts.Path = config.ConfigFileName
	}
	if opts.Port == 0 {
		opts.Port = config.DefaultPort
	}
	path := config.ExpandTilde(opts.Path)

	if _, err := os.Stat(path); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				"Config file already exists: "+path,
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path)).
				Value(&overwrite),
		))
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if opts.NonInteractive {
		if missing := missingInitFields(opts); len(missing) > 0 {
			return errors.New(errors.ErrConfig,
				"Missing "+strings.Join(missing, ", ")+" in non-interactive mode",
				"Provide --host, --user and --database or run interactively")
		}
	} else if err := promptInit(&opts); err != nil {
		return err
	}

	starter := config.StarterInstance{
		Section:   opts.Section,
		Host:      strings.TrimSpace(opts.Host),
		Port:      opts.Port,
		User:      strings.TrimSpace(opts.User),
		Password:  opts.Password,
		Database:  strings.TrimSpace(opts.Database),
		SSHTunnel: opts.SSHTunnel,
	}
	if starter.Password == "" {
		starter.Password = "${SQLMON_PASSWORD}"
	}

	// The existing-file question was already answered above.
	if err := config.WriteStarter(path, starter, true); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Created %s\n\n", ui.SymbolSuccess, path)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  sqlmon check   - Fetch every metric once")
	fmt.Fprintln(out, "  sqlmon watch   - Dashboard in the terminal")
	fmt.Fprintln(out, "  sqlmon serve   - Dashboard in the browser")
	return nil
}

func missingInitFields(opts InitOptions) []string {
	var missing []string
	if strings.TrimSpace(opts.Host) == "" {
		missing = append(missing, "host")
	}
	if strings.TrimSpace(opts.User) == "" {
		missing = append(missing, "user")
	}
	if strings.TrimSpace(opts.Database) == "" {
		missing = append(missing, "database")
	}
	return missing
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func validatePort(s string) error {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// promptInit asks for the connection settings, seeded with whatever opts
// already holds.
func promptInit(opts *InitOptions) error {
	port := strconv.Itoa(opts.Port)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Section name").
				Description("Top-level key in the config; must start with \"database\"").
				Value(&opts.Section).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, config.InstancePrefix) {
						return fmt.Errorf("section must start with %q", config.InstancePrefix)
					}
					return nil
				}),
			huh.NewInput().
				Title("SQL Server host").
				Placeholder("db01.internal").
				Value(&opts.Host).
				Validate(required("host")),
			huh.NewInput().
				Title("Port").
				Value(&port).
				Validate(validatePort),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("User").
				Value(&opts.User).
				Validate(required("user")),
			huh.NewInput().
				Title("Password").
				Description("Leave empty to read ${SQLMON_PASSWORD} at startup").
				EchoMode(huh.EchoModePassword).
				Value(&opts.Password),
			huh.NewInput().
				Title("Database").
				Placeholder("master").
				Value(&opts.Database).
				Validate(required("database")),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}
	opts.Port, _ = strconv.Atoi(strings.TrimSpace(port))

	if opts.SSHTunnel != "" {
		return nil
	}
	hosts, err := sshutil.KnownHosts(config.ExpandTilde("~/.ssh/config"))
	if err != nil {
		ui.PrintWarning("Could not read ~/.ssh/config: " + err.Error())
		return nil
	}
	tunnel, err := ui.PickTunnel(hosts)
	if err != nil {
		return err
	}
	opts.SSHTunnel = tunnel
	return nil
}
