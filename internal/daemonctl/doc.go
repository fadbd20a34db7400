// Package daemonctl launches, stops and inspects the background daemon on
// behalf of the CLI. It talks to the daemon over IPC and falls back to the
// pid file and direct store reads when the daemon is unreachable.
package daemonctl
