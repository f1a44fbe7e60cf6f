// Package tui is the terminal renderer: a Bubble Tea model that paints the
// frames of one monitor loop and turns key presses into loop commands.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/monitor"
)

// LayoutMode represents the responsive layout mode based on terminal size.
type LayoutMode int

const (
	// LayoutMinimal hides the instance list.
	LayoutMinimal LayoutMode = iota
	// LayoutStandard shows the instance list beside the metric panel.
	LayoutStandard
)

// BreakpointStandard is the width at which the instance list fits.
const BreakpointStandard = 100

// HeightMinimal is the height below which the footer is dropped.
const HeightMinimal = 20

// Sender accepts user commands. *monitor.Loop implements it.
type Sender interface {
	Send(cmd monitor.Command) bool
}

// frameMsg carries a frame from the loop goroutine.
type frameMsg monitor.Frame

// FrameMsg wraps a frame for Program.Send.
func FrameMsg(f monitor.Frame) tea.Msg {
	return frameMsg(f)
}

// Model is the Bubble Tea model for the terminal dashboard.
type Model struct {
	sender    Sender
	instances []string
	cursor    int
	tab       int

	frame    monitor.Frame
	hasFrame bool

	width    int
	height   int
	showHelp bool
	quitting bool
}

// NewModel creates a model for the configured instance names. The cursor
// starts on initial when it names an instance.
func NewModel(sender Sender, instances []string, initial string) Model {
	m := Model{
		sender:    sender,
		instances: append([]string(nil), instances...),
	}
	for i, name := range m.instances {
		if name == initial {
			m.cursor = i
		}
	}
	return m
}

// Init does nothing; the loop pushes frames on its own.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case frameMsg:
		f := monitor.Frame(msg)
		m.frame = f
		m.hasFrame = true
		if f.ViewReset {
			m.tab = 0
		}
		for i, name := range m.instances {
			if name == f.Instance {
				m.cursor = i
			}
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

func (m *Model) send(cmd monitor.Command) {
	if m.sender != nil {
		m.sender.Send(cmd)
	}
}

func (m *Model) selectCursor() {
	if m.cursor >= 0 && m.cursor < len(m.instances) {
		m.send(monitor.Command{Action: monitor.ActionSelect, Instance: m.instances[m.cursor]})
	}
}

func (m Model) autoRefresh() bool {
	if !m.hasFrame {
		return true
	}
	return m.frame.AutoRefresh
}

// Frame returns the last frame received.
func (m Model) Frame() monitor.Frame {
	return m.frame
}

// CurrentTab returns the tab being shown.
func (m Model) CurrentTab() monitor.Tab {
	return monitor.Tabs[m.tab]
}

// CursorInstance returns the instance under the cursor.
func (m Model) CursorInstance() string {
	if m.cursor >= 0 && m.cursor < len(m.instances) {
		return m.instances[m.cursor]
	}
	return ""
}

// LayoutMode returns the current layout mode based on terminal width.
func (m Model) LayoutMode() LayoutMode {
	if m.width >= BreakpointStandard {
		return LayoutStandard
	}
	return LayoutMinimal
}

// ShowFooter returns true if the terminal is tall enough to show the footer.
func (m Model) ShowFooter() bool {
	return m.height == 0 || m.height >= HeightMinimal
}

// Run drives loop frames into a Bubble Tea program until the user quits or
// ctx is cancelled. The loop is started here and closed on return.
func Run(ctx context.Context, sched *monitor.Scheduler, tick time.Duration, instances []string, initial string, opts ...tea.ProgramOption) error {
	var p *tea.Program
	loop := monitor.NewLoop(sched, tick, func(f monitor.Frame) {
		p.Send(FrameMsg(f))
	})

	model := NewModel(loop, instances, initial)
	p = tea.NewProgram(model, append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)...)

	loop.Start()
	defer loop.Close()
	if initial != "" {
		loop.Send(monitor.Command{Action: monitor.ActionSelect, Instance: initial})
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
