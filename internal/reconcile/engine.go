package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"moviepilot/internal/logging"
	"moviepilot/internal/matching"
	"moviepilot/internal/media"
	"moviepilot/internal/notifications"
	"moviepilot/internal/services"
	"moviepilot/internal/subscription"
)

// ErrCycleInProgress is returned when a cycle is requested while one runs.
var ErrCycleInProgress = errors.New("reconcile cycle already running")

// Deps are the collaborators injected into the Engine. Filter and Notifier
// are optional.
type Deps struct {
	Store      Store
	Recognizer matching.Recognizer
	Holdings   HoldingsChecker
	Sources    []Source
	Searcher   Searcher
	Downloader Downloader
	Filter     CandidateFilter
	Notifier   notifications.Service
}

// Option configures optional Engine behavior.
type Option func(*engineOptions)

type engineOptions struct {
	concurrency  int
	imageBaseURL string
}

// WithConcurrency bounds the number of sources refreshed in parallel.
func WithConcurrency(n int) Option {
	return func(o *engineOptions) { o.concurrency = n }
}

// WithImageBaseURL sets the prefix that turns poster paths into image URLs for
// notifications.
func WithImageBaseURL(base string) Option {
	return func(o *engineOptions) { o.imageBaseURL = strings.TrimRight(base, "/") }
}

// Engine reconciles subscriptions against releases.
type Engine struct {
	store      Store
	recognizer matching.Recognizer
	holdings   HoldingsChecker
	sources    []Source
	searcher   Searcher
	downloader Downloader
	filter     CandidateFilter
	notifier   notifications.Service
	logger     *slog.Logger
	opts       engineOptions

	inventory *Inventory
	guard     *keyedGuard
	cycleMu   sync.Mutex

	mu     sync.RWMutex
	status Status
}

// Status summarizes engine activity for diagnostics.
type Status struct {
	Cycles      int
	LastCycleID string
	LastCycle   time.Time
	LastSummary Summary
	LastError   string
	Running     bool
}

// Summary counts what one pass did.
type Summary struct {
	Processed int
	Skipped   int
	Matched   int
	Downloads int
	Completed int
}

func (s *Summary) add(other Summary) {
	s.Processed += other.Processed
	s.Skipped += other.Skipped
	s.Matched += other.Matched
	s.Downloads += other.Downloads
	s.Completed += other.Completed
}

// New constructs an Engine. Store, Recognizer, Holdings and Downloader are
// required.
func New(deps Deps, logger *slog.Logger, opts ...Option) (*Engine, error) {
	switch {
	case deps.Store == nil:
		return nil, services.Wrap(services.ErrConfiguration, "reconcile", "new", "subscription store is required", nil)
	case deps.Recognizer == nil:
		return nil, services.Wrap(services.ErrConfiguration, "reconcile", "new", "recognizer is required", nil)
	case deps.Holdings == nil:
		return nil, services.Wrap(services.ErrConfiguration, "reconcile", "new", "holdings checker is required", nil)
	case deps.Downloader == nil:
		return nil, services.Wrap(services.ErrConfiguration, "reconcile", "new", "downloader is required", nil)
	}
	options := engineOptions{concurrency: 4}
	for _, opt := range opts {
		opt(&options)
	}
	if options.concurrency <= 0 {
		options.concurrency = 1
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.Multi()
	}
	return &Engine{
		store:      deps.Store,
		recognizer: deps.Recognizer,
		holdings:   deps.Holdings,
		sources:    deps.Sources,
		searcher:   deps.Searcher,
		downloader: deps.Downloader,
		filter:     deps.Filter,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "reconcile"),
		opts:       options,
		inventory:  NewInventory(),
		guard:      newKeyedGuard(),
	}, nil
}

// Inventory exposes the engine's source inventory.
func (e *Engine) Inventory() *Inventory { return e.inventory }

// Status returns the latest cycle information.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// resolve returns the canonical record for sub, pinning the identity on the
// stored row the first time it resolves.
func (e *Engine) resolve(ctx context.Context, logger *slog.Logger, sub *subscription.Subscription) (*media.Record, bool) {
	rec, err := e.recognizer.Recognize(ctx, sub.Guess())
	if err != nil || rec == nil {
		if errors.Is(err, services.ErrNotFound) {
			logger.Info("subscription not recognized; retrying next pass",
				logging.String("subscription", sub.Label()),
				logging.Error(err),
			)
		} else {
			logging.WarnWithContext(logger, "subscription recognition failed; retrying next pass", "recognize_failed",
				logging.String("subscription", sub.Label()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check tmdb.api_key and network access"),
				logging.String(logging.FieldImpact, "subscription skipped this pass"),
			)
		}
		return nil, false
	}
	if rec.Season == 0 && sub.Season > 0 {
		rec.Season = sub.Season
	}

	var update subscription.Update
	if sub.TMDBID == 0 && rec.TMDBID != 0 {
		update.TMDBID = &rec.TMDBID
	}
	if sub.IMDbID == "" && rec.IMDbID != "" {
		update.IMDbID = &rec.IMDbID
	}
	if sub.Poster == "" && rec.PosterPath != "" {
		update.Poster = &rec.PosterPath
	}
	if sub.Year == 0 && rec.Year != 0 {
		update.Year = &rec.Year
	}
	if !update.IsEmpty() {
		if err := e.store.Update(ctx, sub.ID, update); err != nil {
			logger.Debug("pinning subscription identity failed", logging.Error(err))
		}
	}
	return rec, true
}

// holdingsOutcome reports the result of a holdings check.
type holdingsOutcome int

const (
	holdingsFailed holdingsOutcome = iota
	holdingsComplete
	holdingsMissing
)

// checkHoldings consults the library; a fully held subscription is deleted.
func (e *Engine) checkHoldings(ctx context.Context, logger *slog.Logger, sub *subscription.Subscription, rec media.Record) (holdingsOutcome, media.Missing) {
	held, missing, err := e.holdings.Check(ctx, rec)
	if err != nil {
		logging.WarnWithContext(logger, "holdings check failed; subscription unchanged", "holdings_failed",
			logging.String("subscription", sub.Label()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check library paths and tmdb access"),
			logging.String(logging.FieldImpact, "subscription retried next pass"),
		)
		return holdingsFailed, nil
	}
	if held {
		logger.Info("already in library; subscription complete",
			logging.Args(logging.DecisionAttrs("holdings", "held", "library has every requested item")...)...)
		e.deleteSubscription(ctx, logger, sub)
		e.publish(ctx, logger, notifications.EventAlreadyHeld, e.payload(rec))
		return holdingsComplete, nil
	}
	if missing.Empty() {
		missing = defaultMissing(rec)
	}
	if count := missing.EpisodeCount(rec.TMDBID); rec.Kind.IsTV() && count != sub.MissingEpisodes {
		if err := e.store.Update(ctx, sub.ID, subscription.Update{MissingEpisodes: &count}); err != nil {
			logger.Debug("recording missing episodes failed", logging.Error(err))
		} else {
			sub.MissingEpisodes = count
		}
	}
	return holdingsMissing, missing
}

// defaultMissing describes "everything outstanding" for holdings checkers
// that report not held without detail.
func defaultMissing(rec media.Record) media.Missing {
	return media.Missing{rec.TMDBID: {{Season: rec.Season}}}
}

// settle filters matched releases, requests the download, and records the
// outcome on the subscription.
func (e *Engine) settle(ctx context.Context, logger *slog.Logger, sub *subscription.Subscription, rec media.Record, missing media.Missing, matched []matching.Candidate, summary *Summary) {
	candidates := matched
	if e.filter != nil {
		candidates = e.filter.Apply(matched)
	}
	if len(candidates) == 0 {
		logger.Info("no matched release passed the filters",
			logging.String("subscription", sub.Label()),
			logging.Int("matched", len(matched)),
		)
		return
	}

	remaining, err := e.downloader.Download(ctx, candidates, missing.Clone())
	if err != nil {
		logging.WarnWithContext(logger, "download request failed; subscription unchanged", "download_failed",
			logging.String("subscription", sub.Label()),
			logging.Int("releases", len(candidates)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the downloader section of the config"),
			logging.String(logging.FieldImpact, "subscription retried next pass"),
		)
		return
	}
	summary.Downloads++
	left := remaining.EpisodeCount(rec.TMDBID)
	payload := e.payload(rec)
	payload["count"] = len(candidates)
	payload["missing"] = left
	e.publish(ctx, logger, notifications.EventDownloadRequested, payload)

	if remaining.Empty() {
		logger.Info("download covers every missing item; subscription complete",
			logging.String("subscription", sub.Label()),
			logging.Int("releases", len(candidates)),
		)
		if e.deleteSubscription(ctx, logger, sub) {
			summary.Completed++
			e.publish(ctx, logger, notifications.EventSubscriptionCompleted, e.payload(rec))
		}
		return
	}

	logger.Info("download incomplete; subscription stays active",
		logging.String("subscription", sub.Label()),
		logging.Int("missing_episodes", left),
	)
	if err := e.store.Update(ctx, sub.ID, subscription.Update{MissingEpisodes: &left}); err != nil {
		logging.WarnWithContext(logger, "recording missing episodes failed", "subscription_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check subscription database access"),
			logging.String(logging.FieldImpact, "missing episode count is stale"),
		)
		return
	}
	sub.MissingEpisodes = left
}

func (e *Engine) deleteSubscription(ctx context.Context, logger *slog.Logger, sub *subscription.Subscription) bool {
	if _, err := e.store.Delete(ctx, sub.ID); err != nil {
		logging.WarnWithContext(logger, "deleting completed subscription failed", "subscription_delete_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check subscription database access"),
			logging.String(logging.FieldImpact, "subscription will be checked again next pass"),
		)
		return false
	}
	return true
}

func (e *Engine) payload(rec media.Record) notifications.Payload {
	payload := notifications.Payload{"title": rec.Label()}
	if rec.PosterPath != "" && e.opts.imageBaseURL != "" {
		payload["image"] = e.opts.imageBaseURL + "/" + strings.TrimLeft(rec.PosterPath, "/")
	}
	return payload
}

func (e *Engine) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := e.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, notification not sent", logging.String("event", string(event)))
			return
		}
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

// begin claims the subscription for this pass and returns a scoped logger.
func (e *Engine) begin(ctx context.Context, sub *subscription.Subscription) (context.Context, *slog.Logger, bool) {
	ctx = services.WithSubscriptionID(ctx, sub.ID)
	logger := logging.WithContext(ctx, e.logger)
	if !e.guard.TryLock(sub.ID) {
		logger.Info("subscription busy in another pass; skipped",
			logging.Args(logging.DecisionAttrs("subscription_guard", "skipped", "already being processed")...)...)
		return ctx, logger, false
	}
	return ctx, logger, true
}

func (e *Engine) recordCycle(cycleID string, summary Summary, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Cycles++
	e.status.LastCycleID = cycleID
	e.status.LastCycle = time.Now()
	e.status.LastSummary = summary
	e.status.LastError = ""
	if err != nil {
		e.status.LastError = err.Error()
	}
}

func (e *Engine) setRunning(running bool) {
	e.mu.Lock()
	e.status.Running = running
	e.mu.Unlock()
}

func notFound(id int64) error {
	return services.Wrap(services.ErrNotFound, "reconcile", "search", fmt.Sprintf("subscription %d not found", id), nil)
}
