// Package scheduler runs the daemon's periodic jobs on cron schedules.
//
// A job that is still running when its next tick fires is skipped, not
// queued. Each run gets its own cycle id so log lines from one run can be
// grouped.
package scheduler
