package metacache_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"moviepilot/internal/media"
	"moviepilot/internal/metacache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func openCache(t *testing.T, path string, clock *fakeClock, eviction bool) *metacache.Cache {
	t.Helper()
	return metacache.Open(metacache.Options{
		Path:     path,
		Eviction: eviction,
		Now:      clock.Now,
		Rand:     rand.New(rand.NewPCG(1, 2)),
	})
}

func record(id int64, title string) *media.Record {
	return &media.Record{TMDBID: id, Kind: media.KindMovie, Title: title, Year: 2001}
}

func TestKeyFoldsName(t *testing.T) {
	got := metacache.Key(media.KindTV, "  The  Office ", 2005, 2)
	if got != "[tv]the office-2005-2" {
		t.Fatalf("Key = %q", got)
	}
	if metacache.Key(media.KindMovie, "Heat", 0, 0) != "[movie]heat--" {
		t.Fatalf("unexpected key for zero year/season: %q", metacache.Key(media.KindMovie, "Heat", 0, 0))
	}
}

func TestGetSlidesExpiry(t *testing.T) {
	clock := newClock()
	cache := openCache(t, "", clock, true)
	if err := cache.Upsert("k", record(1, "Heat")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	clock.Advance(6 * 24 * time.Hour)
	entry, ok, err := cache.Get("k")
	if err != nil || !ok {
		t.Fatalf("expected hit after 6 days, ok=%v err=%v", ok, err)
	}
	want := clock.Now().Add(7 * 24 * time.Hour).Unix()
	if entry.ExpiresAt != want {
		t.Fatalf("expected expiry slid to %d, got %d", want, entry.ExpiresAt)
	}

	clock.Advance(6 * 24 * time.Hour)
	if _, ok, _ := cache.Get("k"); !ok {
		t.Fatal("expected entry to stay live after repeated reads")
	}
}

func TestGetExpiredHonorsEviction(t *testing.T) {
	clock := newClock()
	evicting := openCache(t, "", clock, true)
	keeping := openCache(t, "", clock, false)
	for _, c := range []*metacache.Cache{evicting, keeping} {
		if err := c.Upsert("k", record(2, "Alien")); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	clock.Advance(8 * 24 * time.Hour)

	if _, ok, _ := evicting.Get("k"); ok {
		t.Fatal("expected expired entry to be evicted")
	}
	if evicting.Count() != 0 {
		t.Fatalf("expected evicted entry removed, count=%d", evicting.Count())
	}
	entry, ok, _ := keeping.Get("k")
	if !ok || entry.ExternalID != 2 {
		t.Fatalf("expected expired entry returned without eviction, got ok=%v entry=%+v", ok, entry)
	}
}

func TestSentinelsAreNeverPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	clock := newClock()
	cache := openCache(t, path, clock, true)
	if err := cache.Upsert("missing", nil); err != nil {
		t.Fatalf("Upsert nil: %v", err)
	}
	if err := cache.Upsert("found", record(3, "Up")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	entry, ok, _ := cache.Get("missing")
	if !ok || !entry.IsSentinel() {
		t.Fatalf("expected sentinel in memory, got ok=%v entry=%+v", ok, entry)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := openCache(t, path, clock, true)
	defer reopened.Close()
	if _, ok, _ := reopened.Get("missing"); ok {
		t.Fatal("sentinel survived a restart")
	}
	if _, ok, _ := reopened.Get("found"); !ok {
		t.Fatal("expected real entry to survive a restart")
	}
}

func TestSentinelExpiresInMemory(t *testing.T) {
	clock := newClock()
	cache := openCache(t, "", clock, false)
	if err := cache.Upsert("missing", nil); err != nil {
		t.Fatalf("Upsert nil: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, ok, _ := cache.Get("missing"); ok {
		t.Fatal("expected sentinel to lapse after its ttl")
	}
}

func TestSaveDebouncesUnchangedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cache := openCache(t, path, newClock(), true)
	defer cache.Close()
	if err := cache.Upsert("k", record(4, "Ran")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := cache.Save(false); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := cache.Save(false); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if writes := cache.Stats().Writes; writes != 1 {
		t.Fatalf("expected 1 write for two unchanged saves, got %d", writes)
	}
	if err := cache.Save(true); err != nil {
		t.Fatalf("forced Save: %v", err)
	}
	if writes := cache.Stats().Writes; writes != 2 {
		t.Fatalf("expected forced save to write, got %d writes", writes)
	}
}

func TestSaveSkipsValueOnlyChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cache := openCache(t, path, newClock(), true)
	defer cache.Close()
	if err := cache.Upsert("k", record(4, "Ran")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := cache.Save(false); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := cache.Upsert("k", record(4, "Ran (1985)")); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if _, err := cache.Modify("k", "Ran 1985"); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if err := cache.Save(false); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if writes := cache.Stats().Writes; writes != 1 {
		t.Fatalf("expected value-only change to skip the write, got %d writes", writes)
	}
}

func TestModifyRestartsExpiry(t *testing.T) {
	clock := newClock()
	cache := openCache(t, "", clock, true)
	if err := cache.Upsert("k", record(5, "Ikiru")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	clock.Advance(6 * 24 * time.Hour)
	entry, err := cache.Modify("k", "Ikiru (1952)")
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if want := clock.Now().Add(7 * 24 * time.Hour).Unix(); entry.ExpiresAt != want {
		t.Fatalf("ExpiresAt = %d, want %d", entry.ExpiresAt, want)
	}
	clock.Advance(3 * 24 * time.Hour)
	if got, ok, _ := cache.Get("k"); !ok || got.Title != "Ikiru (1952)" {
		t.Fatalf("expected modified entry to outlive the original ttl, ok=%v entry=%+v", ok, got)
	}
}

func TestTitleIgnoresSentinels(t *testing.T) {
	cache := openCache(t, "", newClock(), true)
	if err := cache.Upsert("gone", nil); err != nil {
		t.Fatalf("Upsert nil: %v", err)
	}
	if title, ok := cache.Title("gone"); ok {
		t.Fatalf("expected no title for a sentinel, got %q", title)
	}
}

func TestSaveSamplingDrainsExpiredEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	clock := newClock()
	cache := openCache(t, path, clock, true)
	for i := 0; i < 1000; i++ {
		if err := cache.Upsert(fmt.Sprintf("k%04d", i), record(int64(i+1), "T")); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	clock.Advance(8 * 24 * time.Hour)

	if err := cache.Save(false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if cache.Count() != 0 {
		t.Fatalf("expected all expired entries evicted, %d left", cache.Count())
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened := openCache(t, path, clock, true)
	defer reopened.Close()
	if reopened.Count() != 0 {
		t.Fatalf("expected no expired entries exported, got %d", reopened.Count())
	}
}

func TestSaveWithoutEvictionKeepsExpiredEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	clock := newClock()
	cache := openCache(t, path, clock, false)
	for i := 0; i < 100; i++ {
		if err := cache.Upsert(fmt.Sprintf("k%03d", i), record(int64(i+1), "T")); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	clock.Advance(8 * 24 * time.Hour)
	if err := cache.Save(false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if cache.Count() != 100 {
		t.Fatalf("expected entries kept without eviction, got %d", cache.Count())
	}
	cache.Close()
}

func TestInvalidKeyIsRejected(t *testing.T) {
	cache := openCache(t, "", newClock(), true)
	if _, _, err := cache.Get("  "); !errors.Is(err, metacache.ErrInvalidKey) {
		t.Fatalf("Get: expected ErrInvalidKey, got %v", err)
	}
	if err := cache.Upsert("", record(1, "x")); !errors.Is(err, metacache.ErrInvalidKey) {
		t.Fatalf("Upsert: expected ErrInvalidKey, got %v", err)
	}
	if _, err := cache.Delete(""); !errors.Is(err, metacache.ErrInvalidKey) {
		t.Fatalf("Delete: expected ErrInvalidKey, got %v", err)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	junk := make([]byte, 16*1024)
	for i := range junk {
		junk[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, junk, 0o600); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	cache := openCache(t, path, newClock(), true)
	defer cache.Close()
	if cache.Count() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Count())
	}
	if err := cache.Upsert("k", record(9, "Solaris")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := cache.Save(true); err != nil {
		t.Fatalf("Save after recovery: %v", err)
	}
}

func TestMaintenanceOperations(t *testing.T) {
	cache := openCache(t, "", newClock(), true)
	_ = cache.Upsert("a", record(10, "Alpha"))
	_ = cache.Upsert("b", record(10, "Alpha Again"))
	_ = cache.Upsert("c", record(11, "Gamma"))
	_ = cache.Upsert("d", nil)

	if removed := cache.InvalidateSentinels(); removed != 1 {
		t.Fatalf("expected 1 sentinel removed, got %d", removed)
	}
	if removed := cache.InvalidateByExternalID(10); removed != 2 {
		t.Fatalf("expected 2 entries removed, got %d", removed)
	}
	if _, err := cache.Modify("c", "Gamma Prime"); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if title, ok := cache.Title("c"); !ok || title != "Gamma Prime" {
		t.Fatalf("Title = %q ok=%v", title, ok)
	}
	if entry, ok := cache.Peek("c"); !ok || entry.ExternalID != 11 {
		t.Fatalf("Peek = %+v ok=%v", entry, ok)
	}
	if _, err := cache.Modify("zzz", "nope"); !errors.Is(err, metacache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	items := cache.List()
	if len(items) != 1 || items[0].Key != "c" {
		t.Fatalf("unexpected listing %+v", items)
	}
	if ok, _ := cache.Delete("c"); !ok {
		t.Fatal("expected Delete to report removal")
	}
	_ = cache.Upsert("e", record(12, "E"))
	cache.Clear()
	if cache.Count() != 0 {
		t.Fatalf("expected empty after Clear, got %d", cache.Count())
	}
}

func TestCloseFlushesRunningCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	clock := newClock()
	cache := openCache(t, path, clock, true)
	cache.Start()
	if err := cache.Upsert("k", record(13, "Stalker")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened := openCache(t, path, clock, true)
	defer reopened.Close()
	entry, ok, err := reopened.Get("k")
	if err != nil || !ok || entry.Title != "Stalker" {
		t.Fatalf("expected flushed entry, ok=%v err=%v entry=%+v", ok, err, entry)
	}
}
