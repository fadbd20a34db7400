package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"moviepilot/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func tmdbServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/configuration" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("api_key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"images":{"secure_base_url":"https://image.tmdb.org/t/p/"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckTMDB(t *testing.T) {
	srv := tmdbServer(t)
	if result := CheckTMDB(context.Background(), "good-key", srv.URL); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	result := CheckTMDB(context.Background(), "bad-key", srv.URL)
	if result.Passed || result.Detail != "auth failed (invalid api key)" {
		t.Fatalf("unexpected result for bad key: %+v", result)
	}
	if CheckTMDB(context.Background(), "", srv.URL).Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckDownloaderBlackhole(t *testing.T) {
	cfg := config.Default()
	cfg.Downloader.Client = config.DownloaderBlackhole
	cfg.Downloader.WatchDir = t.TempDir()
	if result := CheckDownloader(context.Background(), &cfg); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	cfg.Downloader.WatchDir = filepath.Join(t.TempDir(), "missing")
	if CheckDownloader(context.Background(), &cfg).Passed {
		t.Fatal("expected failure for missing watch dir")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsEachConcern(t *testing.T) {
	srv := tmdbServer(t)
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base
	cfg.Paths.LibraryDir = base
	cfg.Library.MoviesDir = "movies"
	cfg.Library.TVDir = "tv"
	for _, dir := range []string{"movies", "tv", "watch"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	cfg.TMDB.APIKey = "good-key"
	cfg.TMDB.BaseURL = srv.URL
	cfg.Downloader.Client = config.DownloaderBlackhole
	cfg.Downloader.WatchDir = filepath.Join(base, "watch")
	cfg.Trakt.Enabled = false

	results := RunAll(context.Background(), &cfg)
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Name == "Indexers" {
			if r.Passed {
				t.Errorf("expected indexer check to fail without indexers")
			}
			continue
		}
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if !Failed(results) {
		t.Fatal("expected missing indexers to fail the run")
	}
}

func TestSeverity(t *testing.T) {
	if (Result{Passed: true}).Severity() != "ok" || (Result{Optional: true}).Severity() != "warn" || (Result{}).Severity() != "error" {
		t.Fatal("unexpected severities")
	}
}
