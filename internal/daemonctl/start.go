package daemonctl

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"moviepilot/internal/config"
	"moviepilot/internal/ipc"
)

// LaunchOptions are forwarded to the detached daemon process.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult describes what EnsureStarted did.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// EnsureStarted makes sure a daemon process exists and its scheduler runs.
// Without a reachable socket it spawns exe in a new session and waits up to
// wait for the socket to appear.
func EnsureStarted(cfg *config.Config, exe string, opts LaunchOptions, wait time.Duration) (StartResult, error) {
	var res StartResult
	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		if err := spawn(exe, opts); err != nil {
			return res, err
		}
		res.Launched = true
		if client, err = dialUntil(cfg.SocketPath(), wait); err != nil {
			return res, err
		}
	}
	defer client.Close()

	if st, err := client.Status(); err == nil && st != nil && st.Status.Running {
		res.State = StartStateAlreadyRunning
		if res.Launched {
			res.State = StartStateStarted
		}
		return res, nil
	}

	resp, err := client.Start()
	if err != nil {
		return res, err
	}
	res.Message = strings.TrimSpace(resp.Message)
	switch {
	case resp.Started:
		res.State = StartStateStarted
	case strings.EqualFold(res.Message, "daemon already running"):
		res.State = StartStateAlreadyRunning
	default:
		res.State = StartStateRequested
		if res.Message == "" {
			res.Message = "Start request sent"
		}
	}
	return res, nil
}

func spawn(exe string, opts LaunchOptions) error {
	if strings.TrimSpace(exe) == "" {
		return errors.New("launch daemon: executable path is empty")
	}
	args := []string{"daemon"}
	if v := strings.TrimSpace(opts.ConfigPath); v != "" {
		args = append(args, "--config", v)
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		args = append(args, "--log-level", v)
	}
	proc := exec.Command(exe, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

func dialUntil(socket string, wait time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(wait)
	for {
		client, err := ipc.Dial(socket)
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("daemon did not open %s within %s: %w", socket, wait, err)
		}
		time.Sleep(pollInterval)
	}
}
