package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"moviepilot/internal/config"
	"moviepilot/internal/daemon"
	"moviepilot/internal/ipc"
	"moviepilot/internal/logging"
	"moviepilot/internal/matching"
	"moviepilot/internal/media"
	"moviepilot/internal/metacache"
	"moviepilot/internal/reconcile"
	"moviepilot/internal/scheduler"
	"moviepilot/internal/services"
	"moviepilot/internal/subscription"
	"moviepilot/internal/testsupport"
)

var heat = media.Record{TMDBID: 949, Kind: media.KindMovie, Title: "Heat", Year: 1995}

type stubRecognizer struct{}

func (stubRecognizer) Recognize(_ context.Context, g media.Guess) (*media.Record, error) {
	if strings.HasPrefix(strings.ToLower(g.Title), "heat") || g.TMDBID == heat.TMDBID {
		rec := heat
		return &rec, nil
	}
	return nil, services.ErrNotFound
}

type emptyLibrary struct{}

func (emptyLibrary) Check(_ context.Context, rec media.Record) (bool, media.Missing, error) {
	return false, media.Missing{rec.TMDBID: {{Season: 0}}}, nil
}

type stubDownloader struct{}

func (stubDownloader) Download(_ context.Context, _ []matching.Candidate, missing media.Missing) (media.Missing, error) {
	return missing, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *subscription.Store
	cache      *metacache.Cache
	daemon     *daemon.Daemon
	configPath string
}

// writeTestConfig persists cfg as TOML and reloads it so the CLI and the
// in-process daemon agree on every derived path.
func writeTestConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithTMDBBaseURL("http://127.0.0.1:1"))
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	loaded, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := loaded.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return loaded, path
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg, configPath := writeTestConfig(t)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	engine, err := reconcile.New(reconcile.Deps{
		Store:      store,
		Recognizer: stubRecognizer{},
		Holdings:   emptyLibrary{},
		Downloader: stubDownloader{},
	}, logger)
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}
	cache := metacache.Open(metacache.Options{Path: cfg.Cache.Path, Logger: logger})

	d, err := daemon.New(cfg, daemon.Components{
		Store:     store,
		Cache:     cache,
		Engine:    engine,
		Scheduler: scheduler.New(logger),
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
		_ = cache.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		cache:      cache,
		daemon:     d,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
