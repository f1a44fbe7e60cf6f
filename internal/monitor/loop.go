package monitor

import (
	"context"
	"sync"
	"time"
)

// DefaultTickInterval paces reruns while monitoring is animating.
const DefaultTickInterval = 200 * time.Millisecond

// Frame is what a renderer paints after a tick. It owns its data.
type Frame struct {
	Seq         uint64              `json:"seq"`
	Instance    string              `json:"instance"`
	Phase       Phase               `json:"phase"`
	Active      bool                `json:"active"`
	AutoRefresh bool                `json:"auto_refresh"`
	Status      string              `json:"status"`
	Spinner     string              `json:"spinner"`
	LastUpdate  string              `json:"last_update,omitempty"`
	ViewReset   bool                `json:"view_reset,omitempty"`
	Histories   map[string][]Sample `json:"histories"`
}

// RenderFunc receives frames on the loop goroutine. It must not block for long.
type RenderFunc func(Frame)

// Loop drives one session: it serializes user commands and ticks on a
// single goroutine and re-arms a timer after each tick that asks for a rerun.
type Loop struct {
	sched  *Scheduler
	state  *SessionState
	render RenderFunc
	tick   time.Duration

	cmds chan Command
	wake chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	closeOnce sync.Once

	// owned by the run goroutine
	timer *time.Timer
	seq   uint64
}

// NewLoop creates a loop for a fresh session. Call Start to begin ticking.
func NewLoop(sched *Scheduler, tick time.Duration, render RenderFunc) *Loop {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		sched:  sched,
		state:  NewSessionState(),
		render: render,
		tick:   tick,
		cmds:   make(chan Command, 16),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the loop goroutine and runs the first tick.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
		l.poke()
	})
}

// Send queues a command. It returns false once the loop is closed.
func (l *Loop) Send(cmd Command) bool {
	select {
	case <-l.ctx.Done():
		return false
	default:
	}
	select {
	case l.cmds <- cmd:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// Close stops the loop and waits for an in-flight tick to finish.
// A Loop that was never started closes immediately.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.cancel()
		started := true
		l.startOnce.Do(func() { started = false })
		if started {
			<-l.done
		}
	})
}

// Done is closed when the loop goroutine exits.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) poke() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) run() {
	defer close(l.done)
	defer func() {
		if l.timer != nil {
			l.timer.Stop()
		}
	}()

	for {
		select {
		case <-l.ctx.Done():
			return
		case cmd := <-l.cmds:
			if err := l.sched.Apply(l.state, cmd); err != nil {
				l.sched.log().Warn("ignoring command %s: %s", cmd.Action, oneLine(err))
				continue
			}
			l.runTick()
		case <-l.wake:
			l.runTick()
		}
	}
}

func (l *Loop) runTick() {
	res := l.sched.Tick(l.ctx, l.state, func() {
		l.emit(PhaseFetching, "", "Fetching data for "+l.state.Instance+"...")
	})

	status := ""
	if res.Spinner != "" {
		status = "Monitoring Active"
	}
	l.emit(res.Phase, res.Spinner, status)

	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = nil
	if res.Rerun && l.ctx.Err() == nil {
		l.timer = time.AfterFunc(l.tick, l.poke)
	}
}

func (l *Loop) emit(phase Phase, spinner, status string) {
	if l.render == nil {
		return
	}
	l.seq++
	f := Frame{
		Seq:         l.seq,
		Instance:    l.state.Instance,
		Phase:       phase,
		Active:      l.state.Active,
		AutoRefresh: l.state.AutoRefresh,
		Status:      status,
		Spinner:     spinner,
		ViewReset:   l.state.ViewReset,
	}
	if !l.state.LastUpdate.IsZero() {
		f.LastUpdate = l.state.LastUpdate.Format(StampLayout)
	}
	if l.state.Instance != "" {
		f.Histories = l.sched.Histories.For(l.state.Instance).Snapshot()
	}
	l.state.ViewReset = false
	l.render(f)
}
