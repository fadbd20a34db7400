package metacache

import (
	"fmt"
	"time"

	"moviepilot/internal/logging"
)

// Save persists the cache. Sentinels are never written. A forced save always
// writes; otherwise a sampled expiry pass decides whether anything changed,
// and the write is skipped when nothing did and the key set matches disk.
// Value-only edits under unchanged keys wait for the next write.
func (c *Cache) Save(force bool) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	now := c.now()
	c.mu.Lock()
	export := make(map[string]Entry, len(c.entries))
	for key, entry := range c.entries {
		if !entry.IsSentinel() {
			export[key] = entry
		}
	}
	var dirty bool
	var evicted int
	if !force {
		dirty, evicted = c.sampleLocked(export, now)
	}
	c.mu.Unlock()

	if !force {
		c.requestReschedule()
	}

	if !force && !dirty && sameKeys(export, c.diskKeys) {
		c.logger.Debug("metadata cache unchanged; skipping write", logging.Int("entries", len(export)))
		return nil
	}
	if c.db == nil {
		return nil
	}
	if err := c.writeSnapshot(export); err != nil {
		return fmt.Errorf("persist metadata cache: %w", err)
	}

	c.diskKeys = make(map[string]struct{}, len(export))
	for key := range export {
		c.diskKeys[key] = struct{}{}
	}
	c.writes++
	c.lastSave = now
	c.logger.Debug("metadata cache saved",
		logging.Int("entries", len(export)),
		logging.Int("evicted", evicted),
		logging.Bool("forced", force))
	return nil
}

// sampleLocked runs the probabilistic expiry pass over export. Entries
// without an expiry get one; expired entries mark the pass dirty and, with
// eviction on, leave both export and the in-memory map. A pass that sampled a
// full batch and found enough expired entries runs again on what is left.
func (c *Cache) sampleLocked(export map[string]Entry, now time.Time) (bool, int) {
	dirty := false
	evicted := 0
	nowUnix := now.Unix()
	for {
		keys := make([]string, 0, len(export))
		for key := range export {
			keys = append(keys, key)
		}
		if len(keys) > sampleSize {
			for i := 0; i < sampleSize; i++ {
				j := i + c.rng.IntN(len(keys)-i)
				keys[i], keys[j] = keys[j], keys[i]
			}
			keys = keys[:sampleSize]
		}

		expired := 0
		for _, key := range keys {
			entry := export[key]
			if entry.ExpiresAt == 0 {
				entry.ExpiresAt = now.Add(c.ttl).Unix()
				export[key] = entry
				c.entries[key] = entry
				dirty = true
				continue
			}
			if entry.ExpiresAt > nowUnix {
				continue
			}
			dirty = true
			if c.eviction {
				delete(export, key)
				delete(c.entries, key)
				expired++
				evicted++
			}
		}
		if len(keys) == sampleSize && expired >= expiredThreshold {
			continue
		}
		return dirty, evicted
	}
}

func sameKeys(export map[string]Entry, disk map[string]struct{}) bool {
	if len(export) != len(disk) {
		return false
	}
	for key := range export {
		if _, ok := disk[key]; !ok {
			return false
		}
	}
	return true
}

// Start launches the background save loop. Calling it twice is harmless.
func (c *Cache) Start() {
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.saveLoop()
	})
}

func (c *Cache) saveLoop() {
	defer c.wg.Done()
	timer := time.NewTimer(c.saveInterval)
	defer timer.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-c.reset:
			timer.Reset(c.saveInterval)
		case <-timer.C:
			if err := c.Save(false); err != nil {
				logging.WarnWithContext(c.logger, "metadata cache save failed", "metacache_save_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check free space and permissions on the cache file"),
					logging.String(logging.FieldImpact, "recent lookups will be repeated after a restart"))
			}
			timer.Reset(c.saveInterval)
		}
	}
}

func (c *Cache) requestReschedule() {
	select {
	case c.reset <- struct{}{}:
	default:
	}
}

// Close stops the save loop, flushes the cache with a forced save and closes
// the store.
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()
		err = c.Save(true)
		c.saveMu.Lock()
		defer c.saveMu.Unlock()
		if c.db != nil {
			if cerr := c.db.Close(); cerr != nil && err == nil {
				err = cerr
			}
			c.db = nil
		}
	})
	return err
}
