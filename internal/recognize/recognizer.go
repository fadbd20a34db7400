package recognize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"moviepilot/internal/logging"
	"moviepilot/internal/media"
	"moviepilot/internal/metacache"
	"moviepilot/internal/services"
	"moviepilot/internal/tmdb"
)

// ErrNotFound is returned when no confident identity exists for a guess.
var ErrNotFound = services.ErrNotFound

// Recognizer resolves guesses through the metadata cache and TMDB.
type Recognizer struct {
	api    tmdb.API
	cache  *metacache.Cache
	logger *slog.Logger
	group  singleflight.Group
}

// New builds a Recognizer. The cache may be nil.
func New(api tmdb.API, cache *metacache.Cache, logger *slog.Logger) *Recognizer {
	return &Recognizer{
		api:    api,
		cache:  cache,
		logger: logging.NewComponentLogger(logger, "recognize"),
	}
}

// Recognize returns the canonical record for g, carrying g's season. It
// returns ErrNotFound when TMDB has no confident match.
func (r *Recognizer) Recognize(ctx context.Context, g media.Guess) (*media.Record, error) {
	key := cacheKey(g)
	if key == "" {
		return nil, services.Wrap(services.ErrValidation, "recognize", "recognize", "guess has no title or id", nil)
	}

	if r.cache != nil {
		entry, ok, err := r.cache.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			if entry.IsSentinel() {
				return nil, fmt.Errorf("%w: %s (cached)", ErrNotFound, key)
			}
			rec := entry.Record()
			rec.Season = g.Season
			return &rec, nil
		}
	}

	value, err, _ := r.group.Do(key, func() (any, error) {
		return r.lookup(ctx, g, key)
	})
	if err != nil {
		return nil, err
	}
	rec := value.(media.Record)
	rec.Season = g.Season
	return &rec, nil
}

func (r *Recognizer) lookup(ctx context.Context, g media.Guess, key string) (media.Record, error) {
	var (
		result *tmdb.Result
		err    error
	)
	switch {
	case g.TMDBID > 0:
		result, err = r.details(ctx, g.Kind, g.TMDBID)
	case g.IMDbID != "":
		result, err = r.findByIMDb(ctx, g)
	default:
		result, err = r.search(ctx, g)
	}
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return media.Record{}, err
	}
	if result == nil {
		r.remember(key, nil)
		r.logger.Info("no tmdb match",
			logging.String("title", g.Title),
			logging.Int("year", g.Year),
			logging.String("kind", g.Kind.String()))
		return media.Record{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if result.IMDb() == "" && result.ID > 0 {
		if detailed, derr := r.details(ctx, kindOf(*result, g.Kind), result.ID); derr == nil && detailed != nil {
			result = detailed
		}
	}
	rec := toRecord(*result, g.Kind)
	r.remember(key, &rec)
	return rec, nil
}

func (r *Recognizer) search(ctx context.Context, g media.Guess) (*tmdb.Result, error) {
	kinds := []media.Kind{g.Kind}
	if g.Kind == media.KindUnknown {
		kinds = []media.Kind{media.KindMovie, media.KindTV}
	}
	for _, kind := range kinds {
		var (
			resp *tmdb.Response
			err  error
		)
		if kind == media.KindTV {
			resp, err = r.api.SearchTV(ctx, g.Title, g.Year)
		} else {
			resp, err = r.api.SearchMovie(ctx, g.Title, g.Year)
		}
		if err != nil {
			return nil, err
		}
		if best := selectBestResult(r.logger, g.Title, g.Year, resp); best != nil {
			if best.MediaType == "" {
				best.MediaType = string(kind)
			}
			return best, nil
		}
	}
	return nil, nil
}

func (r *Recognizer) findByIMDb(ctx context.Context, g media.Guess) (*tmdb.Result, error) {
	found, err := r.api.FindByIMDb(ctx, g.IMDbID)
	if err != nil {
		return nil, err
	}
	if g.Kind != media.KindMovie && len(found.TVResults) > 0 {
		return &found.TVResults[0], nil
	}
	if g.Kind != media.KindTV && len(found.MovieResults) > 0 {
		return &found.MovieResults[0], nil
	}
	return nil, nil
}

func (r *Recognizer) details(ctx context.Context, kind media.Kind, id int64) (*tmdb.Result, error) {
	if kind == media.KindTV {
		return r.api.TVDetails(ctx, id)
	}
	return r.api.MovieDetails(ctx, id)
}

func (r *Recognizer) remember(key string, rec *media.Record) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Upsert(key, rec); err != nil {
		r.logger.Debug("metadata cache upsert failed", logging.Error(err))
	}
}

func cacheKey(g media.Guess) string {
	switch {
	case g.TMDBID > 0:
		return metacache.Key(g.Kind, "tmdb:"+strconv.FormatInt(g.TMDBID, 10), 0, 0)
	case strings.TrimSpace(g.Title) != "":
		return metacache.KeyForGuess(g)
	case g.IMDbID != "":
		return metacache.Key(g.Kind, "imdb:"+g.IMDbID, 0, 0)
	default:
		return ""
	}
}

func kindOf(result tmdb.Result, fallback media.Kind) media.Kind {
	switch result.MediaType {
	case "tv":
		return media.KindTV
	case "movie":
		return media.KindMovie
	}
	if fallback == media.KindUnknown {
		return media.KindMovie
	}
	return fallback
}

func toRecord(result tmdb.Result, fallback media.Kind) media.Record {
	return media.Record{
		TMDBID:       result.ID,
		Kind:         kindOf(result, fallback),
		Title:        strings.TrimSpace(result.DisplayTitle()),
		Year:         result.Year(),
		IMDbID:       result.IMDb(),
		Overview:     result.Overview,
		PosterPath:   result.PosterPath,
		BackdropPath: result.BackdropPath,
	}
}
