package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/sqlmon/internal/monitor"
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyStop        = "s"
	KeyClear       = "c"
	KeyToggleAuto  = "a"
	KeyNextTab     = "tab"
	KeyNextTabL    = "right"
	KeyPrevTab     = "shift+tab"
	KeyPrevTabH    = "left"
	KeySelectPrev  = "up"
	KeySelectPrevK = "k"
	KeySelectNext  = "down"
	KeySelectNextJ = "j"
	KeyToggleHelp  = "?"
	KeyCloseHelp   = "esc"
)

// HandleKeyMsg processes keyboard input. Returns true if the key was handled.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// Help toggle takes priority
	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key == KeyCloseHelp {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyRefresh:
		m.send(monitor.Command{Action: monitor.ActionRefresh})
		return true, nil

	case KeyStop:
		m.send(monitor.Command{Action: monitor.ActionStop})
		return true, nil

	case KeyClear:
		m.send(monitor.Command{Action: monitor.ActionClear})
		return true, nil

	case KeyToggleAuto:
		m.send(monitor.Command{Action: monitor.ActionAuto, Enabled: !m.autoRefresh()})
		return true, nil

	case KeyNextTab, KeyNextTabL:
		m.tab = (m.tab + 1) % len(monitor.Tabs)
		return true, nil

	case KeyPrevTab, KeyPrevTabH:
		m.tab = (m.tab - 1 + len(monitor.Tabs)) % len(monitor.Tabs)
		return true, nil

	case KeySelectPrev, KeySelectPrevK:
		if m.cursor > 0 {
			m.cursor--
			m.selectCursor()
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.cursor < len(m.instances)-1 {
			m.cursor++
			m.selectCursor()
		}
		return true, nil
	}

	return false, nil
}
