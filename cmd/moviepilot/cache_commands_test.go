package main

import (
	"testing"

	"moviepilot/internal/media"
	"moviepilot/internal/metacache"
)

func TestCacheCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	heatKey := metacache.Key(media.KindMovie, "Heat", 1995, 0)
	missingKey := metacache.Key(media.KindMovie, "Unknown Film", 2001, 0)
	rec := heat
	if err := env.cache.Upsert(heatKey, &rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := env.cache.Upsert(missingKey, nil); err != nil {
		t.Fatalf("Upsert sentinel: %v", err)
	}

	out, err := runCLI(t, env.configPath, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, heatKey)
	requireNotContains(t, out, missingKey)
	requireContains(t, out, "2 entries (1 negative)")

	out, err = runCLI(t, env.configPath, "cache", "list", "--sentinels")
	if err != nil {
		t.Fatalf("cache list --sentinels: %v", err)
	}
	requireContains(t, out, missingKey)
	requireContains(t, out, "(not found)")

	out, err = runCLI(t, env.configPath, "cache", "show", heatKey)
	if err != nil {
		t.Fatalf("cache show: %v", err)
	}
	requireContains(t, out, "TMDB:     949")
	requireContains(t, out, "Title:    Heat")

	if _, err := runCLI(t, env.configPath, "cache", "show", "[movie]nope--"); err == nil {
		t.Fatal("expected missing key to fail")
	}

	out, err = runCLI(t, env.configPath, "cache", "rename", heatKey, "Heat", "(Director's", "Cut)")
	if err != nil {
		t.Fatalf("cache rename: %v", err)
	}
	requireContains(t, out, `"Heat (Director's Cut)"`)
	if title, ok := env.cache.Title(heatKey); !ok || title != "Heat (Director's Cut)" {
		t.Fatalf("expected renamed title, got %q", title)
	}

	if _, err := runCLI(t, env.configPath, "cache", "invalidate"); err == nil {
		t.Fatal("expected invalidate without a target to fail")
	}
	out, err = runCLI(t, env.configPath, "cache", "invalidate", "--sentinels")
	if err != nil {
		t.Fatalf("cache invalidate --sentinels: %v", err)
	}
	requireContains(t, out, "Removed 1 cache entries")

	out, err = runCLI(t, env.configPath, "cache", "save")
	if err != nil {
		t.Fatalf("cache save: %v", err)
	}
	requireContains(t, out, "Cache saved (1 entries)")

	if _, err := runCLI(t, env.configPath, "cache", "clear"); err == nil {
		t.Fatal("expected clear without --yes to fail")
	}
	out, err = runCLI(t, env.configPath, "cache", "clear", "--yes")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 cache entries")
	if env.cache.Count() != 0 {
		t.Fatalf("expected empty cache, got %d", env.cache.Count())
	}
}
