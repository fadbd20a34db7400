// Package logging assembles structured slog loggers and formatting helpers used
// across MoviePilot.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so the reconciliation engine can tag log
// lines with subscription IDs, cycle IDs and indexer names. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
