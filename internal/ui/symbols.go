package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Metric fetched
	SymbolFail     = "✗" // Connection or query failed
	SymbolPending  = "○" // Not checked yet
	SymbolProgress = "◐" // Check in progress
	SymbolComplete = "●" // Instance reachable
	SymbolSkipped  = "⊘" // No procedure for this metric
	SymbolWarning  = "⚠"
	SymbolTunnel   = "⇄" // Instance reached through an SSH tunnel
)
