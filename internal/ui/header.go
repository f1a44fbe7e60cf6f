package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderInfo contains information to display in the header.
type HeaderInfo struct {
	Version    string // e.g. "v0.3.0"
	Tagline    string // optional
	ConfigPath string // optional, the config file in use
}

// HeaderWidth is the width of the header divider.
const HeaderWidth = 50

// RenderHeader renders the branded title block printed before command output.
func RenderHeader(info HeaderInfo) string {
	var output strings.Builder

	output.WriteString(lipgloss.NewStyle().Foreground(ColorNeonPink).Bold(true).Render("sqlmon"))
	if info.Version != "" {
		output.WriteString(" ")
		output.WriteString(lipgloss.NewStyle().Foreground(ColorNeonCyan).Render(info.Version))
	}
	output.WriteString("\n")

	if info.Tagline != "" {
		output.WriteString(lipgloss.NewStyle().Foreground(ColorSecondary).Render(info.Tagline))
		output.WriteString("\n")
	}
	if info.ConfigPath != "" {
		output.WriteString(MutedStyle().Render(info.ConfigPath))
		output.WriteString("\n")
	}

	output.WriteString(lipgloss.NewStyle().Foreground(ColorGlassBorder).Render(strings.Repeat("━", HeaderWidth)))
	output.WriteString("\n")

	return output.String()
}
