package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"moviepilot/internal/config"
	"moviepilot/internal/daemon"
	"moviepilot/internal/daemonctl"
	"moviepilot/internal/download"
	"moviepilot/internal/indexer"
	"moviepilot/internal/ipc"
	"moviepilot/internal/library"
	"moviepilot/internal/logging"
	"moviepilot/internal/matching"
	"moviepilot/internal/metacache"
	"moviepilot/internal/notifications"
	"moviepilot/internal/recognize"
	"moviepilot/internal/reconcile"
	"moviepilot/internal/scheduler"
	"moviepilot/internal/subscription"
	"moviepilot/internal/telegram"
	"moviepilot/internal/tmdb"
	"moviepilot/internal/wishlist"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the moviepilot daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:            firstNonEmpty(opts.LogLevel, cfg.Logging.Level),
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", cfg.LogPath()},
		ErrorOutputPaths: []string{"stderr", cfg.LogPath()},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logStartupSnapshot(logger, cfg)

	if err := daemonctl.WritePID(cfg.PIDPath()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(cfg.PIDPath())

	components, err := Build(cfg, logger)
	if err != nil {
		logger.Error("assemble daemon", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, components, logger)
	if err != nil {
		_ = components.Cache.Close()
		_ = components.Store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and database access, then run moviepilot start"),
			logging.String(logging.FieldImpact, "subscriptions are not refreshed until the daemon starts"),
		)
	}

	<-signalCtx.Done()
	logger.Info("moviepilot daemon shutting down")
	return nil
}

// Build opens the store and cache and wires every collaborator the daemon
// coordinates. Callers own the returned store and cache.
func Build(cfg *config.Config, logger *slog.Logger) (daemon.Components, error) {
	store, err := subscription.Open(cfg)
	if err != nil {
		return daemon.Components{}, fmt.Errorf("open subscription store: %w", err)
	}
	cache := metacache.Open(metacache.Options{
		Path:         cfg.Cache.Path,
		TTL:          cfg.CacheTTL(),
		SentinelTTL:  cfg.SentinelTTL(),
		SaveInterval: cfg.SaveInterval(),
		Eviction:     cfg.Cache.Eviction,
		Logger:       logger,
	})
	components, err := wire(cfg, store, cache, logger)
	if err != nil {
		return daemon.Components{}, errors.Join(err, cache.Close(), store.Close())
	}
	return components, nil
}

func wire(cfg *config.Config, store *subscription.Store, cache *metacache.Cache, logger *slog.Logger) (daemon.Components, error) {
	timeout := cfg.RequestTimeout()
	tmdbClient, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
		tmdb.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return daemon.Components{}, fmt.Errorf("tmdb client: %w", err)
	}
	recognizer := recognize.New(tmdbClient, cache, logger)

	var (
		clients []*indexer.Client
		sources []reconcile.Source
	)
	for _, idx := range cfg.EnabledIndexers() {
		client, err := indexer.New(idx, timeout)
		if err != nil {
			return daemon.Components{}, fmt.Errorf("indexer %s: %w", idx.Name, err)
		}
		clients = append(clients, client)
		sources = append(sources, client)
	}

	downloader, err := download.New(cfg, logger)
	if err != nil {
		return daemon.Components{}, err
	}
	filter, err := matching.NewFilter(cfg.Filter)
	if err != nil {
		return daemon.Components{}, fmt.Errorf("release filter: %w", err)
	}

	var bot *telegram.Bot
	if cfg.Telegram.Enabled {
		bot = telegram.NewBot(cfg.Telegram)
	}
	notifier := notifications.NewService(cfg)

	engine, err := reconcile.New(reconcile.Deps{
		Store:      store,
		Recognizer: recognizer,
		Holdings:   library.NewChecker(cfg.MoviesPath(), cfg.TVPath(), tmdbClient, logger),
		Sources:    sources,
		Searcher:   indexer.NewMulti(clients, logger),
		Downloader: downloader,
		Filter:     filter,
		Notifier:   notifier,
	}, logger,
		reconcile.WithConcurrency(cfg.Workflow.RefreshConcurrency),
		reconcile.WithImageBaseURL(cfg.TMDB.ImageBaseURL),
	)
	if err != nil {
		return daemon.Components{}, err
	}

	var syncer *wishlist.Syncer
	if cfg.Trakt.Enabled {
		lister, err := wishlist.NewTraktLister(cfg.Trakt.ClientID, cfg.Trakt.TokenFile, timeout)
		if err != nil {
			return daemon.Components{}, fmt.Errorf("trakt watchlist: %w", err)
		}
		syncer = wishlist.NewSyncer(lister, engine, cfg.Trakt.StateFile, logger)
	}

	return daemon.Components{
		Store:     store,
		Cache:     cache,
		Engine:    engine,
		Scheduler: scheduler.New(logger),
		Notifier:  notifier,
		Wishlist:  syncer,
		Telegram:  bot,
		Indexers:  clients,
	}, nil
}

func logStartupSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("startup snapshot",
		logging.String(logging.FieldEventType, "startup_snapshot"),
		logging.Bool("tmdb_key_present", strings.TrimSpace(cfg.TMDB.APIKey) != ""),
		logging.Int("indexers_enabled", len(cfg.EnabledIndexers())),
		logging.String("downloader", cfg.Downloader.Client),
		logging.String("movies_path", cfg.MoviesPath()),
		logging.String("tv_path", cfg.TVPath()),
		logging.Bool("telegram_enabled", cfg.Telegram.Enabled),
		logging.Bool("trakt_enabled", cfg.Trakt.Enabled),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("api_bind", cfg.API.Bind),
		logging.String("refresh_schedule", cfg.Workflow.RefreshSchedule),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
