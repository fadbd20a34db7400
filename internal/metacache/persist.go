package metacache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"moviepilot/internal/logging"
)

var bucketEntries = []byte("entries")

// openStore opens the bbolt file and loads its entries. A file bbolt cannot
// open is moved aside and replaced with a fresh one.
func (c *Cache) openStore() {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.warnLoad(err, "cache runs in memory only")
		return
	}
	db, err := bolt.Open(c.path, 0o600, &bolt.Options{Timeout: time.Second})
	if errors.Is(err, bolt.ErrTimeout) {
		c.warnLoad(err, "cache file is locked by another process; cache runs in memory only")
		return
	}
	if err != nil {
		c.warnLoad(err, "corrupt cache file moved aside")
		aside := c.path + ".corrupt"
		if rerr := os.Rename(c.path, aside); rerr != nil {
			c.warnLoad(rerr, "cache runs in memory only")
			return
		}
		db, err = bolt.Open(c.path, 0o600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			c.warnLoad(err, "cache runs in memory only")
			return
		}
	}
	c.db = db

	loaded, skipped := 0, 0
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil || entry.IsSentinel() {
				skipped++
				return nil
			}
			key := string(k)
			c.entries[key] = entry
			c.diskKeys[key] = struct{}{}
			loaded++
			return nil
		})
	})
	if err != nil {
		c.entries = make(map[string]Entry)
		c.diskKeys = make(map[string]struct{})
		c.warnLoad(err, "cache starts empty")
		return
	}
	c.logger.Debug("metadata cache loaded",
		logging.Int("entries", loaded),
		logging.Int("skipped", skipped),
		logging.String("path", c.path))
}

func (c *Cache) warnLoad(err error, impact string) {
	logging.WarnWithContext(c.logger, "failed to load metadata cache", "metacache_load_failed",
		logging.Error(err),
		logging.String("path", c.path),
		logging.String(logging.FieldErrorHint, "the cache repopulates from TMDB lookups"),
		logging.String(logging.FieldImpact, impact))
}

// writeSnapshot replaces the bucket with export in one transaction.
func (c *Cache) writeSnapshot(export map[string]Entry) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketEntries) != nil {
			if err := tx.DeleteBucket(bucketEntries); err != nil {
				return fmt.Errorf("drop bucket: %w", err)
			}
		}
		b, err := tx.CreateBucket(bucketEntries)
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		for key, entry := range export {
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("encode %s: %w", key, err)
			}
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}
