package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestMetricColor(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		expect  lipgloss.Color
	}{
		{"healthy low", 0.0, ColorHealthy},
		{"healthy near threshold", 69.9, ColorHealthy},
		{"warning at threshold", 70.0, ColorWarning},
		{"warning near critical", 89.9, ColorWarning},
		{"critical at threshold", 90.0, ColorCritical},
		{"critical max", 100.0, ColorCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, MetricColor(tt.percent))
		})
	}
}

func TestMetricColorWithThresholds(t *testing.T) {
	assert.Equal(t, ColorHealthy, MetricColorWithThresholds(40, 50, 80))
	assert.Equal(t, ColorWarning, MetricColorWithThresholds(60, 50, 80))
	assert.Equal(t, ColorCritical, MetricColorWithThresholds(85, 50, 80))
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		percent float64
		filled  int
	}{
		{"empty", 10, 0, 0},
		{"half", 10, 50, 5},
		{"full", 10, 100, 10},
		{"clamped high", 10, 150, 10},
		{"clamped low", 10, -5, 0},
		{"minimum width", 0, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := ProgressBar(tt.width, tt.percent)
			assert.Equal(t, tt.filled, strings.Count(bar, "▰"))
			width := tt.width
			if width < 1 {
				width = 1
			}
			assert.Equal(t, width, lipgloss.Width(bar))
		})
	}
}

func TestSectionHeader(t *testing.T) {
	out := SectionHeader("CPU", "3 samples", 40)
	assert.Contains(t, out, "CPU")
	assert.Contains(t, out, "3 samples")
	assert.Equal(t, 40, lipgloss.Width(out))

	// Narrow widths still render the title and value.
	narrow := SectionHeader("Memory", "10 samples", 5)
	assert.Contains(t, narrow, "Memory")
}

func TestSectionFooter(t *testing.T) {
	assert.Equal(t, 30, lipgloss.Width(SectionFooter(30)))
	assert.Equal(t, 2, lipgloss.Width(SectionFooter(0)))
}

func TestSectionContentLine(t *testing.T) {
	line := SectionContentLine("hello", 20)
	assert.Equal(t, 20, lipgloss.Width(line))
	assert.Contains(t, line, "hello")

	// Content wider than the line is not truncated.
	wide := SectionContentLine(strings.Repeat("x", 30), 20)
	assert.Contains(t, wide, strings.Repeat("x", 30))
}
