package metacache

import (
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"moviepilot/internal/logging"
	"moviepilot/internal/media"
)

const (
	defaultTTL          = 7 * 24 * time.Hour
	defaultSentinelTTL  = time.Hour
	defaultSaveInterval = 600 * time.Second

	sampleSize       = 25
	expiredThreshold = 5
)

// Options configures a Cache.
type Options struct {
	// Path of the bbolt file. Empty keeps the cache in memory only.
	Path         string
	TTL          time.Duration
	SentinelTTL  time.Duration
	SaveInterval time.Duration
	// Eviction removes expired entries on read and during save sampling.
	Eviction bool
	Logger   *slog.Logger

	// Now and Rand are injectable for tests.
	Now  func() time.Time
	Rand *rand.Rand
}

// Cache is the TTL metadata cache.
type Cache struct {
	path         string
	ttl          time.Duration
	sentinelTTL  time.Duration
	saveInterval time.Duration
	eviction     bool
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
	rng     *rand.Rand

	saveMu   sync.Mutex
	db       *bolt.DB
	diskKeys map[string]struct{}
	writes   int
	lastSave time.Time

	reset     chan struct{}
	stop      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open builds a cache and loads the persisted snapshot. A missing or corrupt
// file yields an empty cache and a warning; Open itself does not fail on it.
func Open(opts Options) *Cache {
	logger := logging.NewComponentLogger(opts.Logger, "metacache")
	c := &Cache{
		path:         opts.Path,
		ttl:          opts.TTL,
		sentinelTTL:  opts.SentinelTTL,
		saveInterval: opts.SaveInterval,
		eviction:     opts.Eviction,
		logger:       logger,
		now:          opts.Now,
		rng:          opts.Rand,
		entries:      make(map[string]Entry),
		diskKeys:     make(map[string]struct{}),
		reset:        make(chan struct{}, 1),
		stop:         make(chan struct{}),
	}
	if c.ttl <= 0 {
		c.ttl = defaultTTL
	}
	if c.sentinelTTL <= 0 {
		c.sentinelTTL = defaultSentinelTTL
	}
	if c.saveInterval <= 0 {
		c.saveInterval = defaultSaveInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.path != "" {
		c.openStore()
	}
	return c
}

// Get returns the entry for key. A live hit slides its expiry forward. An
// expired entry is removed and reported as a miss when eviction is enabled;
// expired sentinels are always removed.
func (c *Cache) Get(key string) (Entry, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return Entry{}, false, err
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if entry.Expired(now) {
		if c.eviction || entry.IsSentinel() {
			delete(c.entries, key)
			return Entry{}, false, nil
		}
		return entry, true, nil
	}
	if entry.IsSentinel() {
		return entry, true, nil
	}
	entry.ExpiresAt = now.Add(c.ttl).Unix()
	c.entries[key] = entry
	return entry, true, nil
}

// Upsert stores rec under key. A nil record stores a sentinel that lives in
// memory for the sentinel TTL.
func (c *Cache) Upsert(key string, rec *media.Record) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if rec == nil || rec.TMDBID == 0 {
		c.entries[key] = Entry{ExpiresAt: now.Add(c.sentinelTTL).Unix()}
		return nil
	}
	c.entries[key] = entryFromRecord(*rec, now.Add(c.ttl).Unix())
	return nil
}

// InvalidateByExternalID removes every entry pointing at id and returns how
// many were removed.
func (c *Cache) InvalidateByExternalID(id int64) int {
	return c.removeWhere(func(e Entry) bool { return e.ExternalID == id })
}

// InvalidateSentinels removes every sentinel so failed titles are retried.
func (c *Cache) InvalidateSentinels() int {
	return c.removeWhere(Entry.IsSentinel)
}

func (c *Cache) removeWhere(match func(Entry) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if match(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Delete removes key and reports whether it existed.
func (c *Cache) Delete(key string) (bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false, nil
	}
	delete(c.entries, key)
	return true, nil
}

// Modify replaces the title of a cached entry and restarts its ttl.
func (c *Cache) Modify(key, title string) (Entry, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return Entry{}, err
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	entry.Title = title
	entry.ExpiresAt = now.Add(c.ttl).Unix()
	c.entries[key] = entry
	return entry, nil
}

// Peek returns the entry for key without touching its expiry.
func (c *Cache) Peek(key string) (Entry, bool) {
	key, err := normalizeKey(key)
	if err != nil {
		return Entry{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Title returns the cached title for key without touching its expiry.
// Sentinels have no title.
func (c *Cache) Title(key string) (string, bool) {
	key, err := normalizeKey(key)
	if err != nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || entry.IsSentinel() {
		return "", false
	}
	return entry.Title, true
}

// List returns a snapshot sorted by key.
func (c *Cache) List() []Item {
	c.mu.Lock()
	items := make([]Item, 0, len(c.entries))
	for key, entry := range c.entries {
		items = append(items, Item{Key: key, Entry: entry})
	}
	c.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items
}

// Clear drops every entry. The next save writes an empty snapshot.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
	c.logger.Info("metadata cache cleared")
}

// Count returns the number of entries, sentinels included.
func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats reports entry and write counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	stats := Stats{Entries: len(c.entries)}
	for _, entry := range c.entries {
		if entry.IsSentinel() {
			stats.Sentinels++
		}
	}
	c.mu.Unlock()
	c.saveMu.Lock()
	stats.Writes = c.writes
	stats.LastSave = c.lastSave
	c.saveMu.Unlock()
	return stats
}
