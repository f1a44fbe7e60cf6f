package doctor

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/pkg/sshutil"
)

// SSHAgentCheck verifies an agent with keys is available for tunnels.
type SSHAgentCheck struct {
	// Keys counts agent keys; defaults to sshutil.AgentKeys.
	Keys func() (int, error)
}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return CategorySSH }

func (c *SSHAgentCheck) Run(context.Context) CheckResult {
	keys := c.Keys
	if keys == nil {
		keys = sshutil.AgentKeys
	}

	n, err := keys()
	switch {
	case stderrors.Is(err, sshutil.ErrNoAgent):
		// Key files still work without an agent.
		return CheckResult{
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Fix: eval $(ssh-agent) && ssh-add, or set SQLMON_SSH_KEY",
		}
	case err != nil:
		return CheckResult{
			Status:     StatusFail,
			Message:    "SSH agent socket not accessible",
			Suggestion: "Check SSH_AUTH_SOCK: " + err.Error(),
		}
	case n == 0:
		return CheckResult{
			Status:     StatusWarn,
			Message:    "SSH agent running but no keys loaded",
			Suggestion: "Add a key with: ssh-add",
		}
	}

	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", n, pluralize(n)),
	}
}

// TunnelHostCheck verifies an instance's ssh_tunnel names a host that can
// be resolved: an ~/.ssh/config alias or an explicit user@host.
type TunnelHostCheck struct {
	Instance config.Instance
	Hosts    []sshutil.HostEntry // aliases from ~/.ssh/config
}

func (c *TunnelHostCheck) Name() string     { return "ssh_tunnel_" + c.Instance.Name }
func (c *TunnelHostCheck) Category() string { return CategorySSH }

func (c *TunnelHostCheck) Run(context.Context) CheckResult {
	tunnel := c.Instance.SSHTunnel

	for _, h := range c.Hosts {
		if h.Alias == tunnel {
			return CheckResult{
				Status:  StatusPass,
				Message: fmt.Sprintf("%s: tunnel via %s (%s)", c.Instance.Name, tunnel, h.Description()),
			}
		}
	}

	if strings.Contains(tunnel, "@") {
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("%s: tunnel via %s", c.Instance.Name, tunnel),
		}
	}

	return CheckResult{
		Status:     StatusWarn,
		Message:    fmt.Sprintf("%s: tunnel host %q is not in ~/.ssh/config", c.Instance.Name, tunnel),
		Suggestion: "It will be dialed as a plain hostname with your local user; add a Host entry or use user@host",
	}
}

// NewSSHChecks returns SSH checks for the instances that use a tunnel.
// No tunnels means no checks.
func NewSSHChecks(instances []config.Instance, hosts []sshutil.HostEntry) []Check {
	var checks []Check
	for _, inst := range instances {
		if inst.SSHTunnel == "" {
			continue
		}
		if len(checks) == 0 {
			checks = append(checks, &SSHAgentCheck{})
		}
		checks = append(checks, &TunnelHostCheck{Instance: inst, Hosts: hosts})
	}
	return checks
}
