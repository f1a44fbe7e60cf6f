package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/source"
)

// InstanceCheck connects to an instance and runs every metric query once,
// reporting missing or failing procedures.
type InstanceCheck struct {
	Instance config.Instance
	Source   source.Source
	Timeout  time.Duration // whole check; zero means no extra limit
}

func (c *InstanceCheck) Name() string     { return "instance_" + c.Instance.Name }
func (c *InstanceCheck) Category() string { return CategoryInstances }

func (c *InstanceCheck) Run(ctx context.Context) CheckResult {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	started := time.Now()
	conn, err := c.Source.Open(ctx, c.Instance)
	if err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", c.Instance.Name, errorMessage(err)),
			Suggestion: suggestionOf(err, fmt.Sprintf("Check %s:%d is reachable", c.Instance.Host, c.Instance.Port)),
		}
	}
	defer conn.Close()

	var failed []string
	var hints []string
	for _, m := range source.Metrics {
		if m.Procedure == "" {
			continue
		}
		if _, err := conn.Fetch(ctx, m.Key); err != nil {
			failed = append(failed, m.Key)
			if errors.IsCode(err, errors.ErrNoProc) {
				hints = append(hints, m.Key+": no procedure")
			} else {
				hints = append(hints, fmt.Sprintf("%s: %s (%s)", m.Key, errorMessage(err), m.Procedure))
			}
		}
	}

	elapsed := time.Since(started).Round(time.Millisecond)
	if len(failed) > 0 {
		return CheckResult{
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s: connected, %s failed", c.Instance.Name, strings.Join(failed, ", ")),
			Suggestion: strings.Join(hints, "\n"),
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: connected, all procedures ran (%s)", c.Instance.Name, elapsed),
	}
}

// NewInstanceChecks returns one connectivity check per instance.
func NewInstanceChecks(instances []config.Instance, src source.Source, timeout time.Duration) []Check {
	checks := make([]Check, 0, len(instances))
	for _, inst := range instances {
		checks = append(checks, &InstanceCheck{Instance: inst, Source: src, Timeout: timeout})
	}
	return checks
}
