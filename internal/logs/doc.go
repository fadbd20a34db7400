// Package logs reads the daemon log file for `moviepilot logs`.
//
// Tail returns the last N lines or the lines written after a byte offset, and
// can wait briefly for new output in follow mode. An optional Filter keeps
// only lines mentioning a substring or a subscription id, so the CLI can
// follow one subscription through refresh and match cycles.
package logs
