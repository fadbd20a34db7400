package main

import (
	"os"
	"strings"
	"testing"
)

func TestLogsShowsFilteredTail(t *testing.T) {
	cfg, configPath := writeTestConfig(t)
	lines := []string{
		`{"level":"INFO","msg":"cycle started"}`,
		`{"level":"INFO","msg":"subscribed","subscription_id":7}`,
		`{"level":"WARN","msg":"indexer slow","subscription_id":17}`,
		`{"level":"INFO","msg":"cycle finished"}`,
	}
	if err := os.WriteFile(cfg.LogPath(), []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := runCLI(t, configPath, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "indexer slow")
	requireContains(t, out, "cycle finished")
	requireNotContains(t, out, "cycle started")

	out, err = runCLI(t, configPath, "logs", "--sub", "7")
	if err != nil {
		t.Fatalf("logs --sub: %v", err)
	}
	requireContains(t, out, "subscribed")
	requireNotContains(t, out, "indexer slow")

	out, err = runCLI(t, configPath, "logs", "--grep", "CYCLE")
	if err != nil {
		t.Fatalf("logs --grep: %v", err)
	}
	if got := strings.Count(out, "cycle"); got != 2 {
		t.Fatalf("expected two cycle lines, got %d in %q", got, out)
	}

	if _, err := runCLI(t, configPath, "logs", "-n", "0"); err == nil {
		t.Fatal("expected non-positive line count to fail")
	}
}
