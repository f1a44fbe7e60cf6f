// Package ui provides terminal output helpers for sqlmon's one-shot commands.
//
// The full-screen dashboard lives in internal/tui. This package covers the
// line-oriented output of `sqlmon check`, `sqlmon instances` and
// `sqlmon init`.
//
// # Components Overview
//
//	Spinner      - Animated status line while an instance is being checked
//	Tables       - Instance listing and per-metric check results
//	Header       - Branded title line with version
//	TunnelPicker - Interactive SSH tunnel selection using Huh
//
// # Color Scheme
//
//	ColorSuccess (green)  - Metric fetched, instance reachable
//	ColorError   (red)    - Connection or query failure
//	ColorWarning (yellow) - Missing procedure, placeholder data
//	ColorMuted   (gray)   - Secondary text, timing info
//
// Use DisableColors() to switch to monochrome output (for --no-color).
//
// # Spinner Usage
//
//	s := ui.NewSpinner("Checking db01")
//	s.Start()
//	// ... fetch ...
//	s.Success() // or s.Fail() or s.Skip()
package ui
