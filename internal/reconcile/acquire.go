package reconcile

import (
	"context"
	"log/slog"

	"moviepilot/internal/logging"
	"moviepilot/internal/matching"
	"moviepilot/internal/media"
	"moviepilot/internal/notifications"
	"moviepilot/internal/subscription"
)

// AcquireOutcome reports how an acquisition ended.
type AcquireOutcome string

const (
	AcquireHeld       AcquireOutcome = "held"
	AcquireDownloaded AcquireOutcome = "downloaded"
	AcquireSubscribed AcquireOutcome = "subscribed"
	AcquireDuplicate  AcquireOutcome = "duplicate"
)

// AcquireResult is returned by Acquire.
type AcquireResult struct {
	Outcome      AcquireOutcome
	Record       media.Record
	Subscription *subscription.Subscription
	Downloads    int
}

// Acquire tries to fetch a title right away and subscribes only to what is
// still missing afterwards. Titles already held or already subscribed are
// left alone.
func (e *Engine) Acquire(ctx context.Context, req AddRequest) (AcquireResult, error) {
	logger := logging.WithContext(ctx, e.logger)
	rec, guess, err := e.recognize(ctx, logger, req)
	if err != nil {
		return AcquireResult{}, err
	}
	rec.Season = guess.Season
	if rec.Season > 0 {
		rec.Kind = media.KindTV
	}
	result := AcquireResult{Record: *rec}

	existing, err := e.store.FindByIdentity(ctx, rec.Kind, rec.TMDBID, rec.Season)
	if err != nil {
		return result, err
	}
	if existing != nil {
		result.Outcome = AcquireDuplicate
		result.Subscription = existing
		return result, nil
	}

	held, missing, err := e.holdings.Check(ctx, *rec)
	if err != nil {
		return result, err
	}
	if held {
		logger.Info("already in library; nothing to acquire", logging.String("title", rec.Label()))
		result.Outcome = AcquireHeld
		return result, nil
	}
	if missing.Empty() {
		missing = defaultMissing(*rec)
	}

	remaining, downloads := e.fetchNow(ctx, logger, *rec, req.Keyword, missing)
	result.Downloads = downloads
	if remaining.Empty() {
		result.Outcome = AcquireDownloaded
		return result, nil
	}

	count := 0
	if rec.Kind.IsTV() {
		count = remaining.EpisodeCount(rec.TMDBID)
	}
	sub, err := e.insert(ctx, logger, *rec, req, count)
	if err != nil {
		return result, err
	}
	result.Outcome = AcquireSubscribed
	result.Subscription = sub
	return result, nil
}

// fetchNow searches and downloads what it can. Failures leave missing as it
// was.
func (e *Engine) fetchNow(ctx context.Context, logger *slog.Logger, rec media.Record, keyword string, missing media.Missing) (media.Missing, int) {
	if e.searcher == nil {
		return missing, 0
	}
	raws, err := e.searcher.Search(ctx, rec, keyword)
	if err != nil {
		logging.WarnWithContext(logger, "direct search failed; falling back to subscription", "search_failed",
			logging.String("title", rec.Label()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check indexer availability"),
			logging.String(logging.FieldImpact, "title is subscribed instead"),
		)
		return missing, 0
	}
	candidates := matching.MatchRaw(ctx, e.recognizer, rec, raws, logger)
	if e.filter != nil {
		candidates = e.filter.Apply(candidates)
	}
	if len(candidates) == 0 {
		return missing, 0
	}
	remaining, err := e.downloader.Download(ctx, candidates, missing.Clone())
	if err != nil {
		logging.WarnWithContext(logger, "download request failed; falling back to subscription", "download_failed",
			logging.String("title", rec.Label()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the downloader section of the config"),
			logging.String(logging.FieldImpact, "title is subscribed instead"),
		)
		return missing, 0
	}
	payload := e.payload(rec)
	payload["count"] = len(candidates)
	payload["missing"] = remaining.EpisodeCount(rec.TMDBID)
	e.publish(ctx, logger, notifications.EventDownloadRequested, payload)
	return remaining, len(candidates)
}
