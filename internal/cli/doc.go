// Package cli implements the sqlmon command-line interface.
//
// Each Cobra command loads the config through loadConfig, which also builds
// the process logger, and then hands off to the monitor, tui or web
// packages. Commands stay thin; the polling logic lives in monitor.
//
// # Command Structure
//
//	sqlmon serve              - Browser dashboard (one session per tab)
//	sqlmon watch [instance]   - Terminal dashboard
//	sqlmon check [instance..] - Fetch every metric once and print it
//	sqlmon instances          - List configured instances
//	sqlmon doctor             - Diagnose config, tunnels and connectivity
//	sqlmon init               - Write a starter sqlmon.yaml
//	sqlmon version            - Build information
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color) live on the root command.
// check, instances and doctor accept --json, which switches both normal output and
// errors to the JSONEnvelope format.
//
// # Exit Codes
//
// Errors are printed by Execute. A command that already reported its own
// outcome returns an errors.ExitError so nothing is printed twice.
package cli
