package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"moviepilot/internal/config"
	"moviepilot/internal/logging"
	"moviepilot/internal/matching"
	"moviepilot/internal/media"
	"moviepilot/internal/services"
)

// Client accepts a single release.
type Client interface {
	Name() string
	Add(ctx context.Context, cand matching.Candidate) error
}

// Downloader selects releases and submits them to a Client.
type Downloader struct {
	client Client
	logger *slog.Logger
}

// New builds the Downloader configured in [downloader].
func New(cfg *config.Config, logger *slog.Logger) (*Downloader, error) {
	var (
		client Client
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Downloader.Client)) {
	case config.DownloaderNZBGet:
		client = NewNZBGet(cfg.Downloader, cfg.RequestTimeout())
	case config.DownloaderBlackhole:
		client, err = NewBlackhole(cfg.Downloader.WatchDir, cfg.Paths.DataDir)
	default:
		err = services.Wrap(services.ErrConfiguration, "download", "new",
			fmt.Sprintf("unknown downloader client %q", cfg.Downloader.Client), nil)
	}
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an explicit client.
func NewWithClient(client Client, logger *slog.Logger) *Downloader {
	return &Downloader{client: client, logger: logging.NewComponentLogger(logger, "download")}
}

// Download submits the releases that cover missing and returns what is still
// outstanding. A release the client rejects leaves its part missing. The
// error is non-nil only when every submission failed.
func (d *Downloader) Download(ctx context.Context, candidates []matching.Candidate, missing media.Missing) (media.Missing, error) {
	picks, _ := Select(candidates, missing)
	remaining := missing.Clone()
	if remaining == nil {
		remaining = media.Missing{}
	}
	logger := logging.WithContext(ctx, d.logger)
	if len(picks) == 0 {
		logger.Info("no release covers a missing item", logging.Int("candidates", len(candidates)))
		return remaining, nil
	}

	var (
		errs     []error
		accepted int
	)
	for _, pick := range picks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		cand := pick.Candidate
		if err := d.client.Add(ctx, cand); err != nil {
			logging.WarnWithContext(logger, "download client rejected release", "download_rejected",
				logging.String("release", cand.Raw.Title),
				logging.String("client", d.client.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the downloader client and its logs"),
				logging.String(logging.FieldImpact, "release will be retried next pass"),
			)
			errs = append(errs, err)
			continue
		}
		accepted++
		remaining.Remove(cand.Media.TMDBID, pick.Season, pick.Episodes...)
		logger.Info("release sent to download client",
			logging.String("release", cand.Raw.Title),
			logging.String("client", d.client.Name()),
			logging.Source(cand.Raw.Source),
			logging.Int("score", cand.Score),
		)
	}
	if accepted == 0 && len(errs) > 0 {
		return missing, errors.Join(errs...)
	}
	return remaining, nil
}
