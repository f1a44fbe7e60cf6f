// Package monitor is the polling engine behind the sqlmon dashboards.
//
// # Key Components
//
//	InstanceState - per-metric sample histories for one instance, newest first
//	Histories     - lazily created InstanceState per instance, one set per session
//	SessionState  - selected instance, monitoring flags and pending UI signals
//	Scheduler     - applies user actions and decides what each tick does
//	Loop          - one goroutine per session serializing actions and ticks
//
// # Tick Rules
//
// Each tick is evaluated in order:
//
//  1. Monitoring off: Idle, nothing fetched.
//  2. Clear pending: Clearing, the flag is consumed and the fetch skipped.
//  3. Refresh pressed, or auto-refresh on and the poll interval elapsed
//     since the last update: Fetching, one UpdateAll cycle.
//  4. Otherwise: Waiting.
//
// After rendering, the loop re-arms a short timer (200ms by default) while
// monitoring is active with auto-refresh on, or when a clear just happened.
//
// # Fetch Cycles
//
// UpdateAll opens one connection, stamps the cycle once at second
// granularity and fetches every metric in table order. A metric whose
// newest sample already carries the stamp is skipped. Failed metrics keep
// their history. A failed connection mutates nothing and does not advance
// LastUpdate; the scheduler retries after the retry backoff.
package monitor
