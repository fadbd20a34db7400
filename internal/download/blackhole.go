package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/melbahja/got"

	"moviepilot/internal/fileutil"
	"moviepilot/internal/matching"
	"moviepilot/internal/services"
	"moviepilot/internal/textutil"
)

const userAgent = "MoviePilot-Go/0.1.0"

// Blackhole fetches release files into a watch directory picked up by an
// external client. Magnet links are written as .magnet files.
type Blackhole struct {
	watchDir   string
	partialDir string
}

// NewBlackhole prepares the watch directory and a staging directory under
// dataDir for in-flight fetches.
func NewBlackhole(watchDir, dataDir string) (*Blackhole, error) {
	watchDir = strings.TrimSpace(watchDir)
	if watchDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "download", "blackhole", "downloader.watch_dir is required", nil)
	}
	partial := filepath.Join(dataDir, "partial")
	for _, dir := range []string{watchDir, partial} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "download", "blackhole",
				fmt.Sprintf("create %s", dir), err)
		}
	}
	return &Blackhole{watchDir: watchDir, partialDir: partial}, nil
}

// Name identifies the client in logs.
func (b *Blackhole) Name() string { return "blackhole" }

// Add stages the release file and moves it into the watch directory once
// complete, so the watcher never sees a partial file.
func (b *Blackhole) Add(ctx context.Context, cand matching.Candidate) error {
	link := strings.TrimSpace(cand.Raw.Link)
	if link == "" {
		return services.Wrap(services.ErrValidation, "download", "blackhole", "release has no link", nil)
	}
	base := textutil.SanitizeFileName(cand.Raw.Title)
	if base == "" {
		base = fmt.Sprintf("release-%d", cand.Media.TMDBID)
	}

	if strings.HasPrefix(strings.ToLower(link), "magnet:") {
		target := filepath.Join(b.watchDir, base+".magnet")
		if err := fileutil.WriteAtomic(target, []byte(link+"\n"), 0o644); err != nil {
			return services.Wrap(services.ErrExternalTool, "download", "blackhole", "write magnet", err)
		}
		return nil
	}

	name := base + extensionFor(cand)
	staged := filepath.Join(b.partialDir, name)
	got.UserAgent = userAgent
	dl := got.NewDownload(ctx, link, staged)
	if err := dl.Init(); err != nil {
		_ = os.Remove(staged)
		return services.Wrap(services.ErrTransient, "download", "blackhole", "prepare fetch", err)
	}
	if err := dl.Start(); err != nil {
		_ = os.Remove(staged)
		return services.Wrap(services.ErrTransient, "download", "blackhole", "fetch release", err)
	}
	if err := fileutil.MoveFile(staged, filepath.Join(b.watchDir, name)); err != nil {
		_ = os.Remove(staged)
		return services.Wrap(services.ErrExternalTool, "download", "blackhole", "move into watch dir", err)
	}
	return nil
}

func extensionFor(cand matching.Candidate) string {
	if strings.EqualFold(cand.Raw.Protocol, "torznab") || strings.HasSuffix(strings.ToLower(cand.Raw.Link), ".torrent") {
		return ".torrent"
	}
	return ".nzb"
}
