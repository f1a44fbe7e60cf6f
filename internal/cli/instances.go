package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/ui"
)

var instancesCmd = &cobra.Command{
	Use:     "instances",
	Aliases: []string{"ls"},
	Short:   "List configured instances",
	Long: `List the instances read from the config, in selector order.
Sections skipped for missing settings are reported as warnings.

Examples:
  sqlmon instances
  sqlmon instances --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		return listInstances(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	instancesCmd.Flags().BoolVar(&machineMode, "json", false, "output JSON")
	rootCmd.AddCommand(instancesCmd)
}

// InstanceInfo is the JSON shape of one configured instance. The password
// is never included.
type InstanceInfo struct {
	Name      string `json:"name"`
	Section   string `json:"section"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Database  string `json:"database"`
	SSHTunnel string `json:"ssh_tunnel,omitempty"`
}

func listInstances(w io.Writer, cfg *config.Config) error {
	if MachineMode() {
		infos := make([]InstanceInfo, 0, len(cfg.Instances))
		for _, inst := range cfg.Instances {
			infos = append(infos, InstanceInfo{
				Name:      inst.Name,
				Section:   inst.Section,
				Host:      inst.Host,
				Port:      inst.Port,
				User:      inst.User,
				Database:  inst.Database,
				SSHTunnel: inst.SSHTunnel,
			})
		}
		return WriteJSONSuccess(w, infos)
	}

	rows := make([]ui.InstanceRow, 0, len(cfg.Instances))
	for _, inst := range cfg.Instances {
		rows = append(rows, ui.InstanceRow{
			Name:     inst.Name,
			Host:     inst.Host,
			Port:     inst.Port,
			Database: inst.Database,
			Tunnel:   inst.SSHTunnel,
		})
	}
	fmt.Fprintln(w, ui.RenderHeader(ui.HeaderInfo{Version: formatVersion(version), ConfigPath: cfg.Path}))
	fmt.Fprintln(w, ui.RenderInstanceTable(rows))
	return nil
}
