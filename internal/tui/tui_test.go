package tui

import (
	"sync"

	"github.com/rileyhilliard/sqlmon/internal/monitor"
	"github.com/rileyhilliard/sqlmon/internal/source"
)

// recordingSender captures commands sent by the model.
type recordingSender struct {
	mu   sync.Mutex
	cmds []monitor.Command
}

func (r *recordingSender) Send(cmd monitor.Command) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return true
}

func (r *recordingSender) Commands() []monitor.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]monitor.Command(nil), r.cmds...)
}

func testFrame(instance string) monitor.Frame {
	return monitor.Frame{
		Seq:         1,
		Instance:    instance,
		Phase:       monitor.PhaseWaiting,
		Active:      true,
		AutoRefresh: true,
		Status:      "Monitoring Active",
		Spinner:     monitor.SpinnerFrames[0],
		LastUpdate:  "2024-03-01 09:00:00",
		Histories: map[string][]monitor.Sample{
			source.CPU: {
				{Stamp: "2024-03-01 09:00:00", Record: source.Record{"SQLProcessUtilization": int64(12), "SystemIdle": int64(75)}},
			},
		},
	}
}
