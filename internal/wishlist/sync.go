package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"moviepilot/internal/fileutil"
	"moviepilot/internal/logging"
	"moviepilot/internal/media"
	"moviepilot/internal/reconcile"
	"moviepilot/internal/services"
)

// Entry is one watchlist item.
type Entry struct {
	Kind   media.Kind
	Title  string
	Year   int
	IMDbID string
}

// Key identifies the entry in the state file.
func (e Entry) Key() string {
	if id := strings.ToLower(strings.TrimSpace(e.IMDbID)); id != "" {
		return e.Kind.String() + ":" + id
	}
	return fmt.Sprintf("%s:%s:%d", e.Kind.String(), media.FoldTitle(e.Title), e.Year)
}

// Lister returns the current watchlist.
type Lister interface {
	Watchlist(ctx context.Context) ([]Entry, error)
}

// Acquirer downloads or subscribes a title.
type Acquirer interface {
	Acquire(ctx context.Context, req reconcile.AddRequest) (reconcile.AcquireResult, error)
}

// Result counts what one sync did.
type Result struct {
	Listed     int
	New        int
	Held       int
	Downloaded int
	Subscribed int
	Failed     int
}

type state struct {
	Processed map[string]time.Time `json:"processed"`
}

// Syncer runs watchlist syncs. Concurrent calls are serialized.
type Syncer struct {
	lister    Lister
	acquirer  Acquirer
	statePath string
	user      string
	logger    *slog.Logger
	mu        sync.Mutex
	now       func() time.Time
}

// NewSyncer builds a syncer that records processed entries at statePath.
func NewSyncer(lister Lister, acquirer Acquirer, statePath string, logger *slog.Logger) *Syncer {
	return &Syncer{
		lister:    lister,
		acquirer:  acquirer,
		statePath: statePath,
		user:      "trakt",
		logger:    logging.NewComponentLogger(logger, "wishlist"),
		now:       time.Now,
	}
}

// Sync processes new watchlist entries. Entries that fail transiently are
// retried next sync; unrecognized titles are recorded and not retried.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result Result
	st, err := s.load()
	if err != nil {
		return result, err
	}
	entries, err := s.lister.Watchlist(ctx)
	if err != nil {
		return result, err
	}
	result.Listed = len(entries)
	logger := logging.WithContext(ctx, s.logger)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(err, s.save(st))
		}
		key := entry.Key()
		if _, done := st.Processed[key]; done {
			continue
		}
		result.New++

		req := reconcile.AddRequest{
			Title:    entry.Title,
			Year:     entry.Year,
			Kind:     entry.Kind,
			IMDbID:   entry.IMDbID,
			Username: s.user,
		}
		if entry.Kind == media.KindTV {
			req.Season = 1
		}
		res, err := s.acquirer.Acquire(ctx, req)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				logger.Info("watchlist title not recognized; skipping", logging.String("title", entry.Title))
				st.Processed[key] = s.now()
				continue
			}
			result.Failed++
			logging.WarnWithContext(logger, "watchlist entry failed; retrying next sync", "wishlist_entry_failed",
				logging.String("title", entry.Title),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check tmdb and indexer access"),
				logging.String(logging.FieldImpact, "entry retried next sync"),
			)
			continue
		}
		switch res.Outcome {
		case reconcile.AcquireHeld:
			result.Held++
		case reconcile.AcquireDownloaded:
			result.Downloaded++
		case reconcile.AcquireSubscribed, reconcile.AcquireDuplicate:
			result.Subscribed++
		}
		logger.Info("watchlist entry processed",
			logging.String("title", res.Record.Label()),
			logging.String("outcome", string(res.Outcome)),
		)
		st.Processed[key] = s.now()
	}

	if err := s.save(st); err != nil {
		return result, err
	}
	logger.Info("wishlist sync complete",
		logging.Int("listed", result.Listed),
		logging.Int("new", result.New),
		logging.Int("subscribed", result.Subscribed),
		logging.Int("downloaded", result.Downloaded),
		logging.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Syncer) load() (*state, error) {
	st := &state{Processed: map[string]time.Time{}}
	data, err := os.ReadFile(s.statePath)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "wishlist", "load state", "read state file", err)
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "wishlist", "load state", "decode state file", err)
	}
	if st.Processed == nil {
		st.Processed = map[string]time.Time{}
	}
	return st, nil
}

func (s *Syncer) save(st *state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(s.statePath, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "wishlist", "save state", "write state file", err)
	}
	return nil
}
