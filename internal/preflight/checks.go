package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"moviepilot/internal/config"
	"moviepilot/internal/download"
	"moviepilot/internal/services"
	"moviepilot/internal/tmdb"
)

const checkTimeout = 10 * time.Second

// CheckTMDB verifies that the TMDB API accepts the configured key.
func CheckTMDB(ctx context.Context, apiKey, baseURL string) Result {
	const name = "TMDB"
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}
	client, err := tmdb.New(apiKey, baseURL, "")
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := client.Ping(checkCtx); err != nil {
		if errors.Is(err, services.ErrConfiguration) {
			return Result{Name: name, Detail: "auth failed (invalid api key)"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDownloader verifies the configured download client. A blackhole needs
// a writable watch directory; NZBGet must answer a queue listing.
func CheckDownloader(ctx context.Context, cfg *config.Config) Result {
	const name = "Downloader"
	switch cfg.Downloader.Client {
	case config.DownloaderBlackhole:
		result := CheckDirectoryAccess(name, cfg.Downloader.WatchDir)
		result.Detail = "blackhole " + result.Detail
		return result
	case config.DownloaderNZBGet:
		if strings.TrimSpace(cfg.Downloader.URL) == "" {
			return Result{Name: name, Detail: "nzbget url missing"}
		}
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()
		queued, err := download.NewNZBGet(cfg.Downloader, checkTimeout).Ping(checkCtx)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("nzbget unreachable (%v)", err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("nzbget reachable (%d queued)", queued)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unsupported client %q", cfg.Downloader.Client)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// checkFile verifies a readable regular file; failures are optional.
func checkFile(name, path string) Result {
	result := Result{Name: name, Optional: true}
	if strings.TrimSpace(path) == "" {
		result.Detail = "not configured"
		return result
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		result.Detail = fmt.Sprintf("%s (error: %v)", path, err)
		return result
	}
	result.Passed = true
	result.Detail = path
	return result
}
