package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/source"
)

// Phase is the scheduler state for one tick.
type Phase int

const (
	// PhaseIdle: monitoring is off, nothing fetched, no rerun.
	PhaseIdle Phase = iota
	// PhaseWaiting: monitoring is on but no fetch is due.
	PhaseWaiting
	// PhaseFetching: a fetch cycle runs this tick.
	PhaseFetching
	// PhaseClearing: histories were just cleared, the fetch is skipped.
	PhaseClearing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWaiting:
		return "waiting"
	case PhaseFetching:
		return "fetching"
	case PhaseClearing:
		return "clearing"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText lets frames carry the phase name over JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name written by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseIdle, PhaseWaiting, PhaseFetching, PhaseClearing} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Policy holds the timing rules for fetch decisions.
type Policy struct {
	// PollInterval is the auto-refresh period, measured from LastUpdate.
	PollInterval time.Duration
	// RetryBackoff spaces automatic retries after a failed connection.
	RetryBackoff time.Duration
}

// DefaultPolicy returns the 60s poll with a 5s retry backoff.
func DefaultPolicy() Policy {
	return Policy{PollInterval: 60 * time.Second, RetryBackoff: 5 * time.Second}
}

// Decide evaluates the scheduler rules for one tick without side effects.
func (p Policy) Decide(s *SessionState, now time.Time) Phase {
	if !s.Active {
		return PhaseIdle
	}
	if s.PendingClear {
		return PhaseClearing
	}
	if s.Instance == "" {
		return PhaseWaiting
	}
	if s.PendingRefresh {
		return PhaseFetching
	}
	if s.AutoRefresh && p.due(s, now) {
		return PhaseFetching
	}
	return PhaseWaiting
}

func (p Policy) due(s *SessionState, now time.Time) bool {
	if !s.LastUpdate.IsZero() && now.Sub(s.LastUpdate) < p.PollInterval {
		return false
	}
	if !s.LastFailure.IsZero() && now.Sub(s.LastFailure) < p.RetryBackoff {
		return false
	}
	return true
}

// Action is a user intent from a renderer.
type Action string

const (
	ActionSelect  Action = "select"
	ActionRefresh Action = "refresh"
	ActionStop    Action = "stop"
	ActionClear   Action = "clear"
	ActionAuto    Action = "auto"
)

// Command carries an action and its argument.
type Command struct {
	Action   Action `json:"type"`
	Instance string `json:"instance,omitempty"`
	Enabled  bool   `json:"enabled,omitempty"`
}

// InstanceLookup resolves an instance by display name.
type InstanceLookup func(name string) (config.Instance, bool)

// Scheduler applies user actions and runs ticks against one session's
// histories.
type Scheduler struct {
	Policy    Policy
	Source    source.Source
	Lookup    InstanceLookup
	Histories *Histories
	Log       logger.Logger
	Metrics   *Metrics

	// Now defaults to time.Now; tests substitute a fake clock.
	Now func() time.Time
}

// NewScheduler wires a scheduler for the configured instances.
func NewScheduler(cfg *config.Config, src source.Source, log logger.Logger, m *Metrics) *Scheduler {
	if log == nil {
		log = logger.Noop()
	}
	return &Scheduler{
		Policy: Policy{
			PollInterval: cfg.Dashboard.PollInterval,
			RetryBackoff: cfg.Dashboard.RetryBackoff,
		},
		Source:    src,
		Lookup:    cfg.Instance,
		Histories: NewHistories(cfg.Dashboard.HistorySize),
		Log:       log,
		Metrics:   m,
		Now:       time.Now,
	}
}

func (sc *Scheduler) now() time.Time {
	if sc.Now == nil {
		return time.Now()
	}
	return sc.Now()
}

func (sc *Scheduler) log() logger.Logger {
	if sc.Log == nil {
		return logger.Noop()
	}
	return sc.Log
}

// Apply records a user action in the session. Clear empties the selected
// instance's histories immediately.
func (sc *Scheduler) Apply(s *SessionState, cmd Command) error {
	switch cmd.Action {
	case ActionSelect:
		if _, ok := sc.Lookup(cmd.Instance); !ok {
			return errors.New(errors.ErrSession,
				fmt.Sprintf("Unknown instance %q", cmd.Instance),
				"Pick one of the configured instances")
		}
		if s.Select(cmd.Instance) {
			sc.Histories.For(cmd.Instance)
			sc.log().Info("instance selected: %s", cmd.Instance)
		}
	case ActionRefresh:
		s.RequestRefresh()
	case ActionStop:
		s.Stop()
	case ActionClear:
		if s.Instance != "" {
			Clear(sc.Histories.For(s.Instance))
		}
		s.MarkClear()
	case ActionAuto:
		s.SetAutoRefresh(cmd.Enabled)
	default:
		return errors.New(errors.ErrSession,
			fmt.Sprintf("Unknown action %q", cmd.Action),
			"Valid actions: select, refresh, stop, clear, auto")
	}
	return nil
}

// TickResult describes what one tick did.
type TickResult struct {
	Phase Phase
	// Report is set when a fetch cycle connected.
	Report *CycleReport
	// Err is the connection error of a failed cycle.
	Err error
	// Spinner is the status glyph for this tick, empty when not animating.
	Spinner string
	// Rerun asks the caller to schedule another tick after the pause.
	Rerun bool
}

// Tick evaluates the rules once and performs the resulting work.
// beforeFetch, if non-nil, runs just before a fetch cycle starts.
func (sc *Scheduler) Tick(ctx context.Context, s *SessionState, beforeFetch func()) TickResult {
	now := sc.now()
	res := TickResult{Phase: sc.Policy.Decide(s, now)}

	if s.Active && s.AutoRefresh {
		res.Spinner = SpinnerFrames[s.AnimationFrame%len(SpinnerFrames)]
		s.AnimationFrame++
	}

	switch res.Phase {
	case PhaseClearing:
		s.PendingClear = false
	case PhaseFetching:
		inst, ok := sc.Lookup(s.Instance)
		if !ok {
			s.PendingRefresh = false
			res.Phase = PhaseWaiting
			sc.log().Warn("selected instance %q is not configured", s.Instance)
			break
		}
		if beforeFetch != nil {
			beforeFetch()
		}
		report, err := UpdateAll(ctx, sc.Histories.For(inst.Name), inst, sc.Source, now, sc.log())
		s.PendingRefresh = false
		sc.Metrics.RecordCycle(ctx, report, err)
		if err != nil {
			s.LastFailure = now
			res.Err = err
		} else {
			s.LastUpdate = now
			s.LastFailure = time.Time{}
			res.Report = &report
		}
	}

	if (s.Active && s.AutoRefresh) || s.PendingClear {
		res.Rerun = true
		s.PendingClear = false
	}
	return res
}

// SpinnerFrames animate the "Monitoring Active" status.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
