package reconcile

import (
	"context"

	"moviepilot/internal/logging"
	"moviepilot/internal/matching"
	"moviepilot/internal/services"
	"moviepilot/internal/subscription"
)

// Search runs a direct search for one subscription.
func (e *Engine) Search(ctx context.Context, id int64) (Summary, error) {
	sub, err := e.store.Get(ctx, id)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "reconcile", "search", "load subscription", err)
	}
	if sub == nil {
		return Summary{}, notFound(id)
	}
	return e.searchOne(ctx, sub), nil
}

// SearchState runs a direct search for every subscription in state.
func (e *Engine) SearchState(ctx context.Context, state subscription.State) (Summary, error) {
	var summary Summary
	subs, err := e.store.List(ctx, state)
	if err != nil {
		return summary, services.Wrap(services.ErrTransient, "reconcile", "search", "list subscriptions", err)
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.add(e.searchOne(ctx, sub))
	}
	return summary, nil
}

func (e *Engine) searchOne(ctx context.Context, sub *subscription.Subscription) Summary {
	var summary Summary
	ctx, logger, ok := e.begin(ctx, sub)
	if !ok {
		summary.Skipped++
		return summary
	}
	defer e.guard.Unlock(sub.ID)
	summary.Processed++

	if sub.State == subscription.StateNew {
		matchingState := subscription.StateMatching
		if err := e.store.Update(ctx, sub.ID, subscription.Update{State: &matchingState}); err != nil {
			logging.WarnWithContext(logger, "moving subscription to matching failed", "subscription_update_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check subscription database access"),
				logging.String(logging.FieldImpact, "subscription skipped this pass"),
			)
			summary.Skipped++
			return summary
		}
		sub.State = matchingState
	}

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

	if e.searcher == nil {
		logger.Info("no searcher configured; direct search skipped")
		return summary
	}
	raws, err := e.searcher.Search(ctx, *rec, sub.Keyword)
	if err != nil {
		logging.WarnWithContext(logger, "direct search failed; subscription unchanged", "search_failed",
			logging.String("subscription", sub.Label()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check indexer availability"),
			logging.String(logging.FieldImpact, "subscription retried next pass"),
		)
		return summary
	}
	if len(raws) == 0 {
		logger.Info("direct search found no releases", logging.String("subscription", sub.Label()))
		return summary
	}

	matched := matching.MatchRaw(ctx, e.recognizer, *rec, raws, logger)
	summary.Matched += len(matched)
	logger.Info("direct search matched releases",
		logging.String("subscription", sub.Label()),
		logging.Int("found", len(raws)),
		logging.Int("matched", len(matched)),
	)
	if len(matched) == 0 {
		return summary
	}
	e.settle(ctx, logger, sub, *rec, missing, matched, &summary)
	return summary
}
