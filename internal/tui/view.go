package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/sqlmon/internal/monitor"
	"github.com/rileyhilliard/sqlmon/internal/source"
)

const (
	defaultPanelWidth = 96
	minColumnWidth    = 8
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	panel := m.renderPanel()
	if m.LayoutMode() == LayoutStandard {
		panel = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), panel)
	}
	b.WriteString(panel)

	if m.ShowFooter() {
		b.WriteString("\n")
		b.WriteString(m.renderFooter())
	}
	return b.String()
}

// renderHeader renders the title, the selected instance and the monitoring status.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("sqlmon")

	instance := m.frame.Instance
	if instance == "" {
		instance = "no instance selected"
	}
	parts := []string{title, LabelStyle.Render(instance), m.renderStatus()}
	if m.frame.LastUpdate != "" {
		parts = append(parts, LabelStyle.Render("last update "+m.frame.LastUpdate))
	}
	return HeaderStyle.Render(strings.Join(parts, LabelStyle.Render(" | ")))
}

// renderStatus shows the spinner while monitoring, or why it is quiet.
func (m Model) renderStatus() string {
	f := m.frame
	switch {
	case !m.hasFrame:
		return MutedStyle.Render("starting")
	case f.Phase == monitor.PhaseFetching && f.Status != "" && f.Spinner == "":
		return StatusFetchingStyle.Render(f.Status)
	case !f.Active:
		return StatusStoppedStyle.Render(StatusStopped + " Monitoring stopped")
	case !f.AutoRefresh:
		return StatusPausedStyle.Render(StatusPaused + " Auto-refresh off")
	case f.Spinner != "":
		return StatusActiveStyle.Render(f.Spinner + " " + f.Status)
	}
	return StatusActiveStyle.Render(StatusIdle)
}

// renderSidebar lists the configured instances.
func (m Model) renderSidebar() string {
	if len(m.instances) == 0 {
		return SidebarStyle.Render(MutedStyle.Render("No instances"))
	}

	lines := []string{LabelStyle.Render("Instances"), ""}
	for i, name := range m.instances {
		prefix := "  "
		style := InstanceStyle
		if name == m.frame.Instance {
			style = InstanceActiveStyle
		}
		if i == m.cursor {
			prefix = InstanceCursorStyle.Render("▸ ")
		}
		lines = append(lines, prefix+style.Render(name))
	}
	return SidebarStyle.Render(strings.Join(lines, "\n"))
}

// renderTabs renders the tab bar with the current tab highlighted.
func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(monitor.Tabs))
	for i, tab := range monitor.Tabs {
		if i == m.tab {
			tabs = append(tabs, TabActiveStyle.Render(tab.Title))
		} else {
			tabs = append(tabs, TabStyle.Render(tab.Title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderPanel renders the tab bar and the history table of the current tab.
func (m Model) renderPanel() string {
	width := m.panelWidth()
	tab := m.CurrentTab()

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	if m.frame.Instance == "" {
		b.WriteString(MutedStyle.Render("Select an instance with ↑/↓ to start monitoring."))
		return b.String()
	}

	samples := m.frame.Histories[tab.Key]
	b.WriteString(SectionHeader(tab.Title, fmt.Sprintf("%d samples", len(samples)), width))
	b.WriteString("\n")

	if summary := cpuSummary(tab, samples, width-20); summary != "" {
		b.WriteString(SectionContentLine(summary, width))
		b.WriteString("\n")
	}

	if len(samples) == 0 {
		b.WriteString(SectionContentLine(MutedStyle.Render("No data yet."), width))
		b.WriteString("\n")
	} else {
		for _, line := range strings.Split(renderTable(tab, samples, width-4), "\n") {
			b.WriteString(SectionContentLine(line, width))
			b.WriteString("\n")
		}
	}
	b.WriteString(SectionFooter(width))
	return b.String()
}

func (m Model) panelWidth() int {
	if m.width == 0 {
		return defaultPanelWidth
	}
	width := m.width - 2
	if m.LayoutMode() == LayoutStandard {
		width -= lipgloss.Width(m.renderSidebar())
	}
	if width < 20 {
		width = 20
	}
	return width
}

// renderTable lays the samples out with bubbles/table, newest first.
func renderTable(tab monitor.Tab, samples []monitor.Sample, width int) string {
	rows := monitor.BuildTabRows(tab, samples)

	headers := append([]string{"Timestamp"}, tab.Fields...)
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = max(lipgloss.Width(h), minColumnWidth)
	}
	tableRows := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		cells := append([]string{r.Stamp}, r.Values...)
		for i, c := range cells {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
		tableRows = append(tableRows, table.Row(cells))
	}

	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		columns[i] = table.Column{Title: h, Width: widths[i]}
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Foreground(ColorAccent).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Cell = styles.Cell.Foreground(ColorTextPrimary)
	styles.Selected = styles.Cell

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithHeight(len(tableRows)+2),
		table.WithWidth(width),
		table.WithStyles(styles),
	)
	return t.View()
}

// cpuSummary renders a utilization bar for the newest CPU sample.
func cpuSummary(tab monitor.Tab, samples []monitor.Sample, width int) string {
	if tab.Key != source.CPU || len(samples) == 0 {
		return ""
	}
	idle, ok := asFloat(samples[0].Record["SystemIdle"])
	if !ok {
		return ""
	}
	used := 100 - idle
	if width > 40 {
		width = 40
	}
	return LabelStyle.Render("CPU busy ") + ProgressBar(width, used) + " " + MetricStyle(used).Render(fmt.Sprintf("%.0f%%", used))
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// renderFooter renders the keyboard help footer.
func (m Model) renderFooter() string {
	hints := []string{
		"q quit",
		"r refresh",
		"s stop",
		"c clear",
		"a auto",
		"tab metric",
		"↑↓ instance",
		"? help",
	}
	return FooterStyle.Render(strings.Join(hints, " | "))
}
