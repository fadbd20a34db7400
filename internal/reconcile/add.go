package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"moviepilot/internal/logging"
	"moviepilot/internal/media"
	"moviepilot/internal/notifications"
	"moviepilot/internal/services"
	"moviepilot/internal/subscription"
)

// AddRequest describes a new subscription. Title may carry a year and a
// season marker ("Dark 2017 S02"); explicit fields win.
type AddRequest struct {
	Title    string
	Year     int
	Kind     media.Kind
	Season   int
	TMDBID   int64
	IMDbID   string
	Keyword  string
	Username string
}

// Add recognizes the requested title and stores a new subscription in state
// N. Unknown titles return ErrNotFound; an existing subscription for the same
// identity and season returns subscription.ErrDuplicate.
func (e *Engine) Add(ctx context.Context, req AddRequest) (*subscription.Subscription, error) {
	logger := logging.WithContext(ctx, e.logger)
	rec, guess, err := e.recognize(ctx, logger, req)
	if err != nil {
		return nil, err
	}
	season := guess.Season
	rec.Season = season
	if season > 0 {
		rec.Kind = media.KindTV
	}

	existing, err := e.store.FindByIdentity(ctx, rec.Kind, rec.TMDBID, season)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Info("subscription already exists",
			logging.String("subscription", existing.Label()),
			logging.Subscription(existing.ID),
		)
		return existing, subscription.ErrDuplicate
	}
	return e.insert(ctx, logger, *rec, req, 0)
}

// insert stores rec as a new subscription in state N and announces it.
func (e *Engine) insert(ctx context.Context, logger *slog.Logger, rec media.Record, req AddRequest, missing int) (*subscription.Subscription, error) {
	sub, err := e.store.Add(ctx, subscription.Subscription{
		Name:            rec.Title,
		Year:            rec.Year,
		Season:          rec.Season,
		Kind:            rec.Kind,
		TMDBID:          rec.TMDBID,
		IMDbID:          rec.IMDbID,
		Keyword:         strings.TrimSpace(req.Keyword),
		Poster:          rec.PosterPath,
		Username:        strings.TrimSpace(req.Username),
		MissingEpisodes: missing,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("subscription added",
		logging.String("subscription", rec.Label()),
		logging.Subscription(sub.ID),
		logging.Int64("tmdb_id", rec.TMDBID),
	)
	payload := e.payload(rec)
	if sub.Username != "" {
		payload["user"] = sub.Username
	}
	if missing > 0 {
		payload["missing"] = missing
	}
	e.publish(ctx, logger, notifications.EventSubscribed, payload)
	return sub, nil
}

// recognize resolves a request to its canonical record. Unknown titles
// return ErrNotFound.
func (e *Engine) recognize(ctx context.Context, logger *slog.Logger, req AddRequest) (*media.Record, media.Guess, error) {
	guess, err := req.guess()
	if err != nil {
		return nil, guess, err
	}
	rec, err := e.recognizer.Recognize(ctx, guess)
	if err != nil || rec == nil {
		if err == nil || errors.Is(err, services.ErrNotFound) {
			logger.Info("subscription title not recognized", logging.String("title", req.Title))
			return nil, guess, services.Wrap(services.ErrNotFound, "reconcile", "add",
				fmt.Sprintf("no metadata match for %q", req.Title), err)
		}
		return nil, guess, err
	}
	return rec, guess, nil
}

func (r AddRequest) guess() (media.Guess, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" && r.TMDBID == 0 && strings.TrimSpace(r.IMDbID) == "" {
		return media.Guess{}, services.Wrap(services.ErrValidation, "reconcile", "add", "title or tmdb id is required", nil)
	}
	guess := media.Guess{Title: title}
	if title != "" {
		guess = media.ParseRelease(title)
		if guess.Title == "" {
			guess.Title = title
		}
	}
	if r.Year > 0 {
		guess.Year = r.Year
	}
	if r.Kind != media.KindUnknown {
		guess.Kind = r.Kind
	}
	if r.Season > 0 {
		guess.Season = r.Season
		guess.Kind = media.KindTV
	}
	guess.TMDBID = r.TMDBID
	if imdb := strings.TrimSpace(r.IMDbID); imdb != "" {
		guess.IMDbID = imdb
	}
	// A subscription covers a season, never single episodes.
	guess.Episodes = nil
	return guess, nil
}
