package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width. A zero width is
// sized to fit the widest cell.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a non-focused bubbles table with the CLI styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		width := c.Width
		if width == 0 {
			width = lipgloss.Width(c.Title)
			for _, r := range rows {
				if i < len(r) {
					width = max(width, lipgloss.Width(r[i]))
				}
			}
		}
		cols[i] = table.Column{Title: c.Title, Width: width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+2), // header plus its bottom border
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View()
}

// InstanceRow is one line of `sqlmon instances`.
type InstanceRow struct {
	Name     string
	Host     string
	Port     int
	Database string
	Tunnel   string
}

// RenderInstanceTable lists configured instances.
func RenderInstanceTable(rows []InstanceRow) string {
	if len(rows) == 0 {
		return "No instances configured"
	}

	cells := make([][]string, len(rows))
	for i, r := range rows {
		tunnel := "-"
		if r.Tunnel != "" {
			tunnel = SymbolTunnel + " " + r.Tunnel
		}
		cells[i] = []string{r.Name, r.Host, portString(r.Port), r.Database, tunnel}
	}
	return RenderSimpleTable([]TableColumn{
		{Title: "NAME"},
		{Title: "HOST"},
		{Title: "PORT"},
		{Title: "DATABASE"},
		{Title: "TUNNEL"},
	}, cells)
}

// Check statuses for CheckRow.
const (
	CheckOK      = "ok"
	CheckFailed  = "fail"
	CheckSkipped = "skip"
)

// CheckRow is the outcome of fetching one metric during `sqlmon check`.
type CheckRow struct {
	Instance   string
	Metric     string
	Status     string // CheckOK, CheckFailed or CheckSkipped
	Message    string // summary of the record, or the error
	Suggestion string
}

// RenderCheckTable renders check results grouped by instance, in the order
// instances first appear.
func RenderCheckTable(rows []CheckRow) string {
	if len(rows) == 0 {
		return "No checks to display"
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	groups := make(map[string][]CheckRow)
	var order []string
	for _, row := range rows {
		if _, exists := groups[row.Instance]; !exists {
			order = append(order, row.Instance)
		}
		groups[row.Instance] = append(groups[row.Instance], row)
	}

	metricWidth := 0
	for _, row := range rows {
		metricWidth = max(metricWidth, lipgloss.Width(row.Metric))
	}

	var output strings.Builder
	for _, inst := range order {
		output.WriteString(headerStyle.Render(inst))
		output.WriteString("\n")

		for _, row := range groups[inst] {
			var icon string
			switch row.Status {
			case CheckOK:
				icon = SuccessStyle().Render(SymbolSuccess)
			case CheckSkipped:
				icon = WarningStyle().Render(SymbolSkipped)
			case CheckFailed:
				icon = ErrorStyle().Render(SymbolFail)
			default:
				icon = MutedStyle().Render(SymbolPending)
			}

			output.WriteString("  " + icon + " " + padRight(row.Metric, metricWidth+2) + row.Message + "\n")
			if row.Suggestion != "" && row.Status != CheckOK {
				output.WriteString("    " + MutedStyle().Render(row.Suggestion) + "\n")
			}
		}
		output.WriteString("\n")
	}

	return output.String()
}

// padRight pads a string to the specified visible width.
func padRight(s string, width int) string {
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}

func portString(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}
