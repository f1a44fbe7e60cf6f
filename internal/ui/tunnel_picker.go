package ui

import (
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/pkg/sshutil"
)

// NoTunnel is the picker value for a direct connection.
const NoTunnel = ""

// TunnelOptions lists "direct connection" followed by each ssh_config alias.
func TunnelOptions(hosts []sshutil.HostEntry) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(hosts)+1)
	opts = append(opts, huh.NewOption("Direct connection (no tunnel)", NoTunnel))
	for _, h := range hosts {
		label := h.Alias
		if desc := h.Description(); desc != h.Alias {
			label += " (" + desc + ")"
		}
		opts = append(opts, huh.NewOption(label, h.Alias))
	}
	return opts
}

// NewTunnelSelect builds the select field used by `sqlmon init`. The chosen
// alias is written to value.
func NewTunnelSelect(hosts []sshutil.HostEntry, value *string) *huh.Select[string] {
	return huh.NewSelect[string]().
		Title("SSH tunnel").
		Description("Reach the SQL Server through a host from ~/.ssh/config").
		Options(TunnelOptions(hosts)...).
		Value(value)
}

// PickTunnel asks which ssh_config host to tunnel through. With no hosts it
// returns NoTunnel without prompting.
func PickTunnel(hosts []sshutil.HostEntry) (string, error) {
	if len(hosts) == 0 {
		return NoTunnel, nil
	}

	choice := NoTunnel
	form := huh.NewForm(huh.NewGroup(NewTunnelSelect(hosts, &choice)))
	if err := form.Run(); err != nil {
		return NoTunnel, errors.WrapWithCode(err, errors.ErrConfig,
			"Tunnel picker failed",
			"Pass --ssh-tunnel to choose a host directly.")
	}
	return choice, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
