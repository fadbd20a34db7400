// Package preflight provides readiness checks for the paths and external
// services MoviePilot depends on.
//
// These checks run in two contexts:
//   - `moviepilot config validate` runs RunAll and exits non-zero when a
//     required check fails.
//   - `moviepilot status` shows the results next to the daemon state when the
//     daemon is offline.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
