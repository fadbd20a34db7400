package daemonctl

import (
	"os"
	"time"

	"moviepilot/internal/config"
	"moviepilot/internal/ipc"
)

// StopResult describes what StopAndTerminate did.
type StopResult struct {
	StopAcknowledged bool
	Terminated       bool
	ForcedKill       bool
	PID              int
}

// StopAndTerminate halts scheduled work over IPC, then ends the daemon
// process with SIGTERM, escalating to SIGKILL after grace. An in-process
// daemon (same pid as the caller) is only stopped, never signalled.
func StopAndTerminate(cfg *config.Config, grace time.Duration) (StopResult, error) {
	var res StopResult
	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		if unreachable(err) {
			return res, ErrDaemonNotRunning
		}
		return res, err
	}
	if st, err := client.Status(); err == nil && st != nil {
		res.PID = st.Status.PID
	}
	resp, err := client.Stop()
	client.Close()
	if err != nil {
		return res, err
	}
	res.StopAcknowledged = resp.Stopped

	if res.PID <= 0 || res.PID == os.Getpid() {
		return res, nil
	}
	killed, err := terminate(res.PID, grace)
	if err != nil {
		return res, err
	}
	res.Terminated = true
	res.ForcedKill = killed
	if killed {
		os.Remove(cfg.PIDPath())
		os.Remove(cfg.SocketPath())
	}
	return res, nil
}
