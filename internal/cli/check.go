package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/monitor"
	"github.com/rileyhilliard/sqlmon/internal/source"
	"github.com/rileyhilliard/sqlmon/internal/ui"
	"github.com/rileyhilliard/sqlmon/pkg/sshutil"
)

var checkCmd = &cobra.Command{
	Use:   "check [instance...]",
	Short: "Fetch every metric once and print the results",
	Long: `Connect to each instance (all of them by default), run every metric
query once and print what came back. Exits non-zero when no instance could
be reached.

Examples:
  sqlmon check
  sqlmon check db01 db02
  sqlmon check --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		insts, err := selectInstances(cfg, args)
		if err != nil {
			return err
		}
		defer sshutil.CloseAgent()

		// Counters are only dumped to the log in verbose mode.
		var telLog logger.Logger
		if verbose {
			telLog = log.With("component", "telemetry")
		}
		tel, shutdown, err := startTelemetry(telLog)
		if err != nil {
			return err
		}
		defer shutdown()

		src := source.NewSQLServer(cfg.Dashboard.QueryTimeout, log.With("component", "source"))
		c := &checker{
			src:     src,
			log:     log,
			metrics: tel.Metrics,
			now:     time.Now,
			size:    cfg.Dashboard.HistorySize,

			configPath: cfg.Path,
		}
		return c.run(cmd.Context(), cmd.OutOrStdout(), insts)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&machineMode, "json", false, "output JSON")
	rootCmd.AddCommand(checkCmd)
}

// CheckResult is the JSON shape of one instance check.
type CheckResult struct {
	Instance   string              `json:"instance"`
	Connected  bool                `json:"connected"`
	Stamp      string              `json:"timestamp,omitempty"`
	DurationMs int64               `json:"duration_ms"`
	Error      *JSONError          `json:"error,omitempty"`
	Metrics    []CheckMetricResult `json:"metrics,omitempty"`
}

// CheckMetricResult is one metric of a CheckResult.
type CheckMetricResult struct {
	Metric  string        `json:"metric"`
	Outcome string        `json:"outcome"`
	Record  source.Record `json:"record,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// checker runs one fetch cycle per instance with the same code path the
// dashboard uses.
type checker struct {
	src     source.Source
	log     logger.Logger
	metrics *monitor.Metrics
	now     func() time.Time
	size    int

	configPath string

	// spinners overrides terminal detection when set.
	spinners *bool
}

func (c *checker) showSpinners() bool {
	if c.spinners != nil {
		return *c.spinners
	}
	return !MachineMode() && ui.IsTerminal(os.Stdout)
}

func (c *checker) run(ctx context.Context, out io.Writer, insts []config.Instance) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if !MachineMode() {
		fmt.Fprintln(out, ui.RenderHeader(ui.HeaderInfo{
			Version:    formatVersion(version),
			ConfigPath: c.configPath,
		}))
	}

	results := make([]CheckResult, 0, len(insts))
	for _, inst := range insts {
		var spinner *ui.Spinner
		if c.showSpinners() {
			spinner = ui.NewSpinner("Checking " + inst.Name)
			spinner.SetOutput(out)
			spinner.Start()
		}

		res := c.checkInstance(ctx, inst)
		results = append(results, res)

		if spinner != nil {
			switch {
			case !res.Connected:
				spinner.Fail()
			case okCount(res) == 0:
				spinner.SetDetail("(no metrics fetched)")
				spinner.Skip()
			default:
				spinner.SetDetail(fmt.Sprintf("(%d/%d metrics)", okCount(res), len(res.Metrics)))
				spinner.Success()
			}
		}
	}

	if MachineMode() {
		if err := WriteJSONSuccess(out, results); err != nil {
			return err
		}
	} else {
		if c.showSpinners() {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, ui.RenderCheckTable(checkRows(results)))
	}

	for _, r := range results {
		if r.Connected {
			return nil
		}
	}
	return errors.NewExitError(1)
}

func (c *checker) checkInstance(ctx context.Context, inst config.Instance) CheckResult {
	state := monitor.NewInstanceState(c.size)
	report, err := monitor.UpdateAll(ctx, state, inst, c.src, c.now(), c.log)
	c.metrics.RecordCycle(ctx, report, err)

	res := CheckResult{
		Instance:   inst.Name,
		DurationMs: report.Duration.Milliseconds(),
	}
	if err != nil {
		res.Error = ErrorToJSON(err)
		return res
	}

	res.Connected = true
	res.Stamp = report.Stamp
	for _, r := range report.Results {
		m := CheckMetricResult{Metric: r.Key, Outcome: string(r.Outcome)}
		if r.Err != nil {
			m.Error = errorLine(r.Err)
		}
		if r.Outcome == monitor.OutcomeOK {
			if hist := state.History(r.Key); len(hist) > 0 {
				m.Record = hist[0].Record
			}
		}
		res.Metrics = append(res.Metrics, m)
	}
	return res
}

func okCount(r CheckResult) int {
	n := 0
	for _, m := range r.Metrics {
		if m.Outcome == string(monitor.OutcomeOK) {
			n++
		}
	}
	return n
}

// checkRows flattens results for the table renderer.
func checkRows(results []CheckResult) []ui.CheckRow {
	var rows []ui.CheckRow
	for _, r := range results {
		if !r.Connected {
			row := ui.CheckRow{Instance: r.Instance, Metric: "connection", Status: ui.CheckFailed}
			if r.Error != nil {
				row.Message = r.Error.Message
				row.Suggestion = r.Error.Suggestion
			}
			rows = append(rows, row)
			continue
		}

		for _, m := range r.Metrics {
			row := ui.CheckRow{Instance: r.Instance, Metric: m.Metric}
			switch monitor.Outcome(m.Outcome) {
			case monitor.OutcomeOK:
				row.Status = ui.CheckOK
				row.Message = summarizeRecord(m.Metric, m.Record)
			case monitor.OutcomeNoProc:
				row.Status = ui.CheckSkipped
				row.Message = m.Error
			default:
				row.Status = ui.CheckFailed
				row.Message = m.Error
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// summarizeRecord renders the dashboard fields of a record as key=value pairs.
func summarizeRecord(metric string, rec source.Record) string {
	tab, ok := monitor.TabFor(metric)
	if !ok || len(rec) == 0 {
		return "no rows"
	}
	parts := make([]string, 0, len(tab.Fields))
	for _, f := range tab.Fields {
		parts = append(parts, f+"="+rec.Format(f))
	}
	return strings.Join(parts, " ")
}

// errorLine flattens a structured error to message plus cause.
func errorLine(err error) string {
	var sErr *errors.Error
	if errors.As(err, &sErr) {
		if sErr.Cause != nil {
			return sErr.Message + ": " + sErr.Cause.Error()
		}
		return sErr.Message
	}
	return err.Error()
}
