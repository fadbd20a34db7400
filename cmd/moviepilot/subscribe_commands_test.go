package main

import (
	"testing"

	"moviepilot/internal/api"
)

func TestSubscribeAddListRemove(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.configPath, "subscribe", "add", "Heat", "1995")
	if err != nil {
		t.Fatalf("subscribe add: %v", err)
	}
	requireContains(t, out, "Subscribed: Heat (1995) (#1)")

	out, err = runCLI(t, env.configPath, "subscribe", "add", "Heat", "1995")
	if err != nil {
		t.Fatalf("duplicate subscribe add: %v", err)
	}
	requireContains(t, out, "Already subscribed: Heat (1995)")

	if _, err := runCLI(t, env.configPath, "subscribe", "add", "Nothing Like It"); err == nil {
		t.Fatal("expected unrecognized title to fail")
	}

	out, err = runCLI(t, env.configPath, "subscribe", "list")
	if err != nil {
		t.Fatalf("subscribe list: %v", err)
	}
	requireContains(t, out, "Heat (1995)")
	requireContains(t, out, "949")

	out, err = runCLI(t, env.configPath, "subscribe", "list", "--match", "hea")
	if err != nil {
		t.Fatalf("subscribe list --match: %v", err)
	}
	requireContains(t, out, "Heat (1995)")

	out, err = runCLI(t, env.configPath, "subscribe", "list", "--match", "zzz")
	if err != nil {
		t.Fatalf("subscribe list --match: %v", err)
	}
	requireContains(t, out, "No subscriptions")

	if _, err := runCLI(t, env.configPath, "subscribe", "list", "--state", "bogus"); err == nil {
		t.Fatal("expected unknown state to fail")
	}

	out, err = runCLI(t, env.configPath, "subscribe", "remove", "1")
	if err != nil {
		t.Fatalf("subscribe remove: %v", err)
	}
	requireContains(t, out, "Subscription 1 removed")

	out, err = runCLI(t, env.configPath, "subscribe", "remove", "1")
	if err != nil {
		t.Fatalf("subscribe remove again: %v", err)
	}
	requireContains(t, out, "Subscription 1 not found")

	if _, err := runCLI(t, env.configPath, "subscribe", "remove", "abc"); err == nil {
		t.Fatal("expected invalid id to fail")
	}
}

func TestRefreshAndSearchReportSummary(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.configPath, "refresh")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	requireContains(t, out, "Refresh finished: processed 0")

	out, err = runCLI(t, env.configPath, "subscribe", "search")
	if err != nil {
		t.Fatalf("subscribe search: %v", err)
	}
	requireContains(t, out, "Search finished")
}

func TestFuzzyFilterSubscriptionsRanksClosestFirst(t *testing.T) {
	items := []api.Subscription{
		{ID: 1, Label: "The Heat (2013)"},
		{ID: 2, Label: "Heat (1995)"},
		{ID: 3, Label: "Alien (1979)"},
	}
	got := fuzzyFilterSubscriptions(items, "HEAT")
	if len(got) != 2 {
		t.Fatalf("expected two matches, got %+v", got)
	}
	if got[0].ID != 2 {
		t.Fatalf("expected closest match first, got %+v", got)
	}
}
