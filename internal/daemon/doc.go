// Package daemon coordinates the long-running MoviePilot process.
//
// It owns the subscription store, the metadata cache, the reconcile engine,
// the cron scheduler and the optional Telegram receiver, and ties them into a
// single lifecycle guarded by a flock so only one daemon runs per data
// directory. IPC and the HTTP status API call into the daemon rather than the
// components directly.
package daemon
