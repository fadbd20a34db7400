package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"moviepilot/internal/logging"
	"moviepilot/internal/matching"
	"moviepilot/internal/services"
	"moviepilot/internal/subscription"
)

// RunCycle refreshes every source and then matches every subscription in
// the matching state. It returns ErrCycleInProgress when another cycle runs.
func (e *Engine) RunCycle(ctx context.Context) (Summary, error) {
	if !e.cycleMu.TryLock() {
		return Summary{}, ErrCycleInProgress
	}
	defer e.cycleMu.Unlock()

	cycleID, ok := services.CycleIDFromContext(ctx)
	if !ok {
		cycleID = uuid.NewString()
		ctx = services.WithCycleID(ctx, cycleID)
	}
	logger := logging.WithContext(ctx, e.logger)
	e.setRunning(true)
	defer e.setRunning(false)

	start := time.Now()
	logger.Info("reconcile cycle started", logging.Int("sources", len(e.sources)))

	if err := e.Refresh(ctx); err != nil {
		e.recordCycle(cycleID, Summary{}, err)
		return Summary{}, err
	}
	summary, err := e.Match(ctx)
	e.recordCycle(cycleID, summary, err)
	if err != nil {
		return summary, err
	}
	logger.Info("reconcile cycle finished",
		logging.Duration("duration", time.Since(start)),
		logging.Int("subscriptions", summary.Processed),
		logging.Int("matched", summary.Matched),
		logging.Int("downloads", summary.Downloads),
		logging.Int("completed", summary.Completed),
	)
	return summary, nil
}

// Refresh replaces every source's inventory with freshly listed releases.
// Releases that cannot be recognized are dropped. A source that fails to
// list keeps its previous inventory.
func (e *Engine) Refresh(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	slots := make(chan struct{}, e.opts.concurrency)
	for _, src := range e.sources {
		group.Go(func() error {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-slots }()
			e.refreshSource(gctx, src)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Engine) refreshSource(ctx context.Context, src Source) {
	name := src.Name()
	ctx = services.WithSource(ctx, name)
	logger := logging.WithContext(ctx, e.logger)

	raws, err := src.List(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.WarnWithContext(logger, "source refresh failed; keeping previous inventory", "source_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the indexer url and api key"),
			logging.String(logging.FieldImpact, "matches from this source may be stale"),
		)
		return
	}
	candidates := matching.Resolve(ctx, e.recognizer, raws, logger)
	e.inventory.Replace(name, candidates)
	logger.Info("source refreshed",
		logging.Int("listed", len(raws)),
		logging.Int("recognized", len(candidates)),
	)
}

// Match checks every subscription in the matching state against the union
// of all source inventories.
func (e *Engine) Match(ctx context.Context) (Summary, error) {
	var summary Summary
	subs, err := e.store.List(ctx, subscription.StateMatching)
	if err != nil {
		return summary, services.Wrap(services.ErrTransient, "reconcile", "match", "list subscriptions", err)
	}
	inventory := e.inventory.All()
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.add(e.matchOne(ctx, sub, inventory))
	}
	return summary, nil
}

func (e *Engine) matchOne(ctx context.Context, sub *subscription.Subscription, inventory []matching.Candidate) Summary {
	var summary Summary
	ctx, logger, ok := e.begin(ctx, sub)
	if !ok {
		summary.Skipped++
		return summary
	}
	defer e.guard.Unlock(sub.ID)
	summary.Processed++

	rec, ok := e.resolve(ctx, logger, sub)
	if !ok {
		summary.Skipped++
		return summary
	}
	outcome, missing := e.checkHoldings(ctx, logger, sub, *rec)
	switch outcome {
	case holdingsFailed:
		return summary
	case holdingsComplete:
		summary.Completed++
		return summary
	}

	matched := matching.Match(*rec, inventory)
	summary.Matched += len(matched)
	logger.Info("subscription matched against inventory",
		logging.String("subscription", sub.Label()),
		logging.Int("matched", len(matched)),
		logging.Int("inventory", len(inventory)),
	)
	if len(matched) == 0 {
		return summary
	}
	e.settle(ctx, logger, sub, *rec, missing, matched, &summary)
	return summary
}
