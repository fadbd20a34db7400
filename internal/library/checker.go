package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"moviepilot/internal/logging"
	"moviepilot/internal/media"
	"moviepilot/internal/services"
	"moviepilot/internal/tmdb"
)

var videoExtensions = map[string]struct{}{
	".mkv": {}, ".mp4": {}, ".m4v": {}, ".avi": {}, ".ts": {}, ".m2ts": {}, ".mov": {}, ".wmv": {},
}

// SeasonLister is the TMDB call used to size a season.
type SeasonLister interface {
	SeasonDetails(ctx context.Context, showID int64, season int) (*tmdb.SeasonDetails, error)
}

// Checker scans the library roots on every call.
type Checker struct {
	moviesRoot string
	tvRoot     string
	seasons    SeasonLister
	now        func() time.Time
	logger     *slog.Logger
}

// NewChecker builds a checker over the two library roots.
func NewChecker(moviesRoot, tvRoot string, seasons SeasonLister, logger *slog.Logger) *Checker {
	return &Checker{
		moviesRoot: moviesRoot,
		tvRoot:     tvRoot,
		seasons:    seasons,
		now:        time.Now,
		logger:     logging.NewComponentLogger(logger, "library"),
	}
}

// Check reports whether rec is fully held and, if not, what is missing.
func (c *Checker) Check(ctx context.Context, rec media.Record) (bool, media.Missing, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	if rec.TMDBID == 0 {
		return false, nil, services.Wrap(services.ErrValidation, "library", "check", "record has no tmdb id", nil)
	}
	if rec.Kind == media.KindTV {
		return c.checkSeries(ctx, rec)
	}
	return c.checkMovie(rec)
}

func (c *Checker) checkMovie(rec media.Record) (bool, media.Missing, error) {
	entries, err := readRoot(c.moviesRoot)
	if err != nil {
		return false, nil, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() {
			if !isVideo(name) {
				continue
			}
			name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if !parseEntryName(name).matches(rec) {
			continue
		}
		if !entry.IsDir() {
			return true, nil, nil
		}
		held, err := containsVideo(filepath.Join(c.moviesRoot, entry.Name()))
		if err != nil {
			return false, nil, err
		}
		if held {
			c.logger.Debug("movie held", logging.String("title", rec.Label()), logging.String("folder", entry.Name()))
			return true, nil, nil
		}
	}
	return false, media.Missing{rec.TMDBID: {{Season: 0}}}, nil
}

func (c *Checker) checkSeries(ctx context.Context, rec media.Record) (bool, media.Missing, error) {
	if c.seasons == nil {
		return false, nil, services.Wrap(services.ErrConfiguration, "library", "check", "season lister not configured", nil)
	}
	season := rec.Season
	if season <= 0 {
		season = 1
	}
	details, err := c.seasons.SeasonDetails(ctx, rec.TMDBID, season)
	if err != nil {
		return false, nil, err
	}
	aired := c.airedEpisodes(details)

	held := map[int]struct{}{}
	entries, err := readRoot(c.tvRoot)
	if err != nil {
		return false, nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() || !parseEntryName(entry.Name()).matches(rec) {
			continue
		}
		if err := collectEpisodes(filepath.Join(c.tvRoot, entry.Name()), season, held); err != nil {
			return false, nil, err
		}
	}

	var gap []int
	for _, ep := range aired {
		if _, ok := held[ep]; !ok {
			gap = append(gap, ep)
		}
	}
	if len(aired) > 0 && len(gap) == 0 {
		return true, nil, nil
	}
	if len(aired) == 0 && len(held) > 0 {
		return true, nil, nil
	}
	missing := media.Missing{rec.TMDBID: {{Season: season, Episodes: gap, TotalEpisodes: len(aired)}}}
	c.logger.Debug("series gap",
		logging.String("title", rec.Label()),
		logging.Int("held", len(held)),
		logging.Int("missing", len(gap)),
	)
	return false, missing, nil
}

// airedEpisodes drops episodes with an air date in the future.
func (c *Checker) airedEpisodes(details *tmdb.SeasonDetails) []int {
	if details == nil {
		return nil
	}
	today := c.now().Format("2006-01-02")
	out := make([]int, 0, len(details.Episodes))
	for _, ep := range details.Episodes {
		if ep.EpisodeNumber <= 0 {
			continue
		}
		if ep.AirDate != "" && ep.AirDate > today {
			continue
		}
		out = append(out, ep.EpisodeNumber)
	}
	return media.SortedEpisodes(out)
}

func collectEpisodes(showDir string, season int, held map[int]struct{}) error {
	return filepath.WalkDir(showDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if d.IsDir() || !isVideo(d.Name()) {
			return nil
		}
		guess := media.ParseRelease(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))
		if guess.Season != season {
			return nil
		}
		for _, ep := range guess.Episodes {
			held[ep] = struct{}{}
		}
		return nil
	})
}

func containsVideo(dir string) (bool, error) {
	found := false
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isVideo(d.Name()) {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", dir, err)
	}
	return found, nil
}

func readRoot(root string) ([]os.DirEntry, error) {
	if strings.TrimSpace(root) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "library", "scan", "library root not configured", nil)
	}
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "library", "scan", "read library root", err)
	}
	return entries, nil
}

func isVideo(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
