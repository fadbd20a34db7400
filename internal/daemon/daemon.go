package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"moviepilot/internal/api"
	"moviepilot/internal/config"
	"moviepilot/internal/indexer"
	"moviepilot/internal/logging"
	"moviepilot/internal/metacache"
	"moviepilot/internal/notifications"
	"moviepilot/internal/reconcile"
	"moviepilot/internal/scheduler"
	"moviepilot/internal/subscription"
	"moviepilot/internal/telegram"
	"moviepilot/internal/wishlist"
)

// Job names registered with the scheduler.
const (
	JobRefresh  = "refresh"
	JobSearch   = "search"
	JobWishlist = "wishlist"
)

// Components are the long-lived services the daemon coordinates. Wishlist,
// Telegram and Indexers are optional.
type Components struct {
	Store     *subscription.Store
	Cache     *metacache.Cache
	Engine    *reconcile.Engine
	Scheduler *scheduler.Scheduler
	Notifier  notifications.Service
	Wishlist  *wishlist.Syncer
	Telegram  *telegram.Bot
	Indexers  []*indexer.Client
}

// Daemon coordinates background processing and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	c      Components
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	DatabasePath  string
	LockPath      string
	CachePath     string
	Subscriptions map[subscription.State]int
	Cache         metacache.Stats
	Engine        reconcile.Status
	Sources       []reconcile.SourceStat
	Jobs          []scheduler.JobInfo
	Telegram      bool
	Wishlist      bool
}

// New constructs a daemon and registers its scheduled jobs.
func New(cfg *config.Config, c Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || c.Store == nil || c.Cache == nil || c.Engine == nil || c.Scheduler == nil {
		return nil, errors.New("daemon requires config, store, cache, engine, and scheduler")
	}
	if c.Notifier == nil {
		c.Notifier = notifications.Multi()
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		c:        c,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	if err := d.registerJobs(); err != nil {
		return nil, err
	}
	api, err := newAPIServer(cfg, d, d.logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

func (d *Daemon) registerJobs() error {
	wf := d.cfg.Workflow
	if err := d.c.Scheduler.Add(JobRefresh, wf.RefreshSchedule, func(ctx context.Context) error {
		_, err := d.Refresh(ctx)
		if errors.Is(err, reconcile.ErrCycleInProgress) {
			return nil
		}
		return err
	}); err != nil {
		return err
	}
	if err := d.c.Scheduler.Add(JobSearch, wf.SearchSchedule, func(ctx context.Context) error {
		_, err := d.Search(ctx, 0)
		return err
	}); err != nil {
		return err
	}
	if d.c.Wishlist != nil {
		if err := d.c.Scheduler.Add(JobWishlist, wf.WishlistSchedule, func(ctx context.Context) error {
			_, err := d.c.Wishlist.Sync(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

// Start acquires the daemon lock and launches background processing.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another moviepilot daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.c.Cache.Start()
	d.c.Scheduler.Start(runCtx)
	if err := d.api.start(runCtx); err != nil {
		d.c.Scheduler.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	if d.c.Telegram != nil {
		poller := telegram.NewPoller(d.c.Telegram, chatHandler{d: d},
			time.Duration(d.cfg.Telegram.PollTimeoutSeconds)*time.Second, d.logger)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := poller.Run(runCtx); err != nil {
				d.logger.Warn("telegram receiver exited", logging.Error(err))
			}
		}()
	}

	d.running.Store(true)
	d.logger.Info("moviepilot daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing, saves the cache and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.c.Scheduler.Stop()
	d.api.stop()
	d.wg.Wait()
	if err := d.c.Cache.Save(true); err != nil {
		d.logger.Warn("cache save on stop failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "cache_save_failed"),
			logging.String(logging.FieldErrorHint, "check cache.path permissions"),
			logging.String(logging.FieldImpact, "recent lookups are repeated after restart"),
		)
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("moviepilot daemon stopped")
}

// Close stops the daemon and releases the store and cache.
func (d *Daemon) Close() error {
	d.Stop()
	return errors.Join(d.c.Cache.Close(), d.c.Store.Close())
}

// Running reports whether background processing is active.
func (d *Daemon) Running() bool { return d.running.Load() }

// LogPath returns the daemon log file.
func (d *Daemon) LogPath() string { return d.cfg.LogPath() }

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	counts, err := d.c.Store.Count(ctx)
	if err != nil {
		d.logger.Debug("count subscriptions failed", logging.Error(err))
	}
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		DatabasePath:  d.c.Store.Path(),
		LockPath:      d.lockPath,
		CachePath:     d.cfg.Cache.Path,
		Subscriptions: counts,
		Cache:         d.c.Cache.Stats(),
		Engine:        d.c.Engine.Status(),
		Sources:       d.c.Engine.Inventory().Stats(),
		Jobs:          d.c.Scheduler.Jobs(),
		Telegram:      d.c.Telegram != nil,
		Wishlist:      d.c.Wishlist != nil,
	}
}

// DTO converts the status to its transport representation.
func (s Status) DTO() api.DaemonStatus {
	return api.DaemonStatus{
		Running:       s.Running,
		PID:           s.PID,
		DatabasePath:  s.DatabasePath,
		LockFilePath:  s.LockPath,
		CachePath:     s.CachePath,
		Subscriptions: api.StateCounts(s.Subscriptions),
		Cache:         api.FromCacheStats(s.Cache),
		Engine:        api.FromEngineStatus(s.Engine),
		Sources:       api.FromSourceStats(s.Sources),
		Jobs:          api.FromJobs(s.Jobs),
		Telegram:      s.Telegram,
		Wishlist:      s.Wishlist,
	}
}
