// Package services defines shared utilities consumed by the reconciliation
// engine and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp subscription IDs, cycle IDs, indexer sources,
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can decide
//     whether a failure is retried next cycle or reported to the operator.
//
// Use these helpers when wiring new integrations so error handling and
// observability stay uniform across the daemon.
package services
