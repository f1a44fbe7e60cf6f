package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/doctor"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/source"
	"github.com/rileyhilliard/sqlmon/internal/ui"
	"github.com/rileyhilliard/sqlmon/pkg/sshutil"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, tunnels and instance connectivity",
	Long: `Run diagnostic checks: the config file and its database sections, SSH
agent and tunnel hosts, then a connection to every instance that runs each
metric procedure once.

Exits non-zero when any check fails.

Examples:
  sqlmon doctor
  sqlmon doctor --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&machineMode, "json", false, "output in JSON format")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

func doctorCommand(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer sshutil.CloseAgent()

	// Load errors are reported by the config checks rather than returned.
	cfgPath, _ := config.Find(cfgFile)
	var cfg *config.Config
	var loadErr error
	if cfgPath != "" {
		cfg, loadErr = config.Load(cfgPath)
	}

	log := logger.Noop()
	if cfg != nil {
		if l, err := newLogger(cfg.Dashboard); err == nil {
			log = l
		}
	}

	var src source.Source
	if cfg != nil && loadErr == nil {
		src = source.NewSQLServer(cfg.Dashboard.QueryTimeout, log.With("component", "source"))
	}
	results := runDoctor(ctx, cfgPath, cfg, loadErr, src)

	if MachineMode() {
		if err := WriteJSONSuccess(out, buildDoctorOutput(results)); err != nil {
			return err
		}
	} else {
		renderDoctorText(out, results)
	}

	if doctor.HasFailures(results) {
		return errors.NewExitError(1)
	}
	return nil
}

// runDoctor collects and runs the checks. Instance checks only run against
// a config that loaded, and run in parallel since each waits on the network.
func runDoctor(ctx context.Context, cfgPath string, cfg *config.Config, loadErr error, src source.Source) []doctor.CheckResult {
	results := doctor.RunAll(ctx, doctor.NewConfigChecks(cfgPath, cfg, loadErr))
	if cfg == nil || loadErr != nil {
		return results
	}

	hosts, err := sshutil.KnownHosts(config.ExpandTilde("~/.ssh/config"))
	if err != nil {
		ui.PrintWarning("Could not read ~/.ssh/config: " + err.Error())
	}
	results = append(results, doctor.RunAll(ctx, doctor.NewSSHChecks(cfg.Instances, hosts))...)

	if src != nil {
		checks := doctor.NewInstanceChecks(cfg.Instances, src, cfg.Dashboard.QueryTimeout)
		results = append(results, doctor.RunAllParallel(ctx, checks)...)
	}
	return results
}

func buildDoctorOutput(results []doctor.CheckResult) DoctorOutput {
	grouped := doctor.GroupByCategory(results)

	output := DoctorOutput{Categories: make([]CategoryOutput, 0, len(grouped))}
	for _, cat := range doctor.Categories {
		if rs, ok := grouped[cat]; ok {
			output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: rs})
		}
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		AllClear: !doctor.HasIssues(results),
	}
	return output
}

func renderDoctorText(w io.Writer, results []doctor.CheckResult) {
	headerStyle := ui.InfoStyle().Bold(true)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("sqlmon diagnostic report"))
	fmt.Fprintln(w)

	grouped := doctor.GroupByCategory(results)
	for _, cat := range doctor.Categories {
		rs, ok := grouped[cat]
		if !ok {
			continue
		}
		fmt.Fprintln(w, headerStyle.Render(cat))
		for _, r := range rs {
			renderCheckResult(w, r)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", ui.HeaderWidth))
	fmt.Fprintln(w)

	if doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), doctor.Summary(results))
	} else {
		fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
	}
	fmt.Fprintln(w)
}

func renderCheckResult(w io.Writer, r doctor.CheckResult) {
	var symbol string
	switch r.Status {
	case doctor.StatusPass:
		symbol = ui.SuccessStyle().Render(ui.SymbolComplete)
	case doctor.StatusWarn:
		symbol = ui.WarningStyle().Render(ui.SymbolWarning)
	default:
		symbol = ui.ErrorStyle().Render(ui.SymbolFail)
	}

	fmt.Fprintf(w, "  %s %s\n", symbol, r.Message)

	if r.Suggestion != "" && r.Status != doctor.StatusPass {
		for _, line := range strings.Split(r.Suggestion, "\n") {
			fmt.Fprintf(w, "    %s\n", ui.MutedStyle().Render(line))
		}
	}
}
