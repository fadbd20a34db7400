package main

import (
	"context"
	"encoding/json"
	"testing"

	"moviepilot/internal/api"
	"moviepilot/internal/reconcile"
)

func TestStartStatusStop(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.configPath, "start")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon started")

	out, err = runCLI(t, env.configPath, "start")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	requireContains(t, out, "Daemon already running")

	if _, err := env.daemon.Subscribe(context.Background(), reconcile.AddRequest{Title: "Heat 1995"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	out, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "Subscriptions")
	requireContains(t, out, "Metadata Cache")
	requireContains(t, out, "No cycle has run yet")
	requireContains(t, out, "refresh")
	requireNotContains(t, out, "System Checks")

	out, err = runCLI(t, env.configPath, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status json: %v\n%s", err, out)
	}
	if !status.Running || status.Subscriptions["new"] != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	out, err = runCLI(t, env.configPath, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon stopped")
	if env.daemon.Running() {
		t.Fatal("expected scheduled work to stop")
	}
}

func TestStatusWithoutDaemonRunsChecks(t *testing.T) {
	_, configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "System Checks")
	requireContains(t, out, "TMDB")
	requireContains(t, out, "No subscriptions")
	requireNotContains(t, out, "Metadata Cache")
}

func TestStopWithoutDaemon(t *testing.T) {
	_, configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestCommandsNeedingDaemonExplainHowToStartIt(t *testing.T) {
	_, configPath := writeTestConfig(t)

	_, err := runCLI(t, configPath, "subscribe", "list")
	if err == nil {
		t.Fatal("expected subscribe list to fail without a daemon")
	}
	requireContains(t, err.Error(), "moviepilot start")
}
