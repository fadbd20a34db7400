package daemonctl

import (
	"context"
	"errors"
	"os"
	"time"

	"moviepilot/internal/api"
	"moviepilot/internal/config"
	"moviepilot/internal/ipc"
	"moviepilot/internal/preflight"
	"moviepilot/internal/subscription"
)

// Snapshot is what `moviepilot status` renders.
type Snapshot struct {
	Reachable bool
	Status    api.DaemonStatus
	Checks    []preflight.Result
}

// BuildStatusSnapshot asks the daemon for its status. When nothing answers
// it reads subscription counts straight from the database and runs the
// preflight checks instead.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	if client, err := ipc.Dial(cfg.SocketPath()); err == nil {
		resp, err := client.Status()
		client.Close()
		if err == nil && resp != nil {
			return &Snapshot{Reachable: true, Status: resp.Status}, nil
		}
	}

	snap := &Snapshot{Status: api.DaemonStatus{
		DatabasePath: cfg.DatabasePath(),
		LockFilePath: cfg.LockPath(),
		CachePath:    cfg.Cache.Path,
	}}
	if pid, err := readPID(cfg.PIDPath()); err == nil && alive(pid) {
		snap.Status.PID = pid
	}
	if counts, ok := offlineCounts(ctx, cfg); ok {
		snap.Status.Subscriptions = api.StateCounts(counts)
	}
	snap.Checks = preflight.RunAll(ctx, cfg)
	return snap, nil
}

// offlineCounts never creates the database; a fresh install reports nothing.
func offlineCounts(ctx context.Context, cfg *config.Config) (map[subscription.State]int, bool) {
	if _, err := os.Stat(cfg.DatabasePath()); err != nil {
		return nil, false
	}
	store, err := subscription.Open(cfg)
	if err != nil {
		return nil, false
	}
	defer store.Close()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	counts, err := store.Count(ctx)
	return counts, err == nil
}
