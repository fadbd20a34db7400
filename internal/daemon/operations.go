package daemon

import (
	"context"
	"errors"
	"strings"

	"moviepilot/internal/indexer"
	"moviepilot/internal/logging"
	"moviepilot/internal/metacache"
	"moviepilot/internal/notifications"
	"moviepilot/internal/reconcile"
	"moviepilot/internal/services"
	"moviepilot/internal/subscription"
	"moviepilot/internal/wishlist"
)

// ErrWishlistDisabled is returned when no watchlist sync is configured.
var ErrWishlistDisabled = errors.New("wishlist sync is not enabled")

// IndexerCheck is the result of probing one indexer.
type IndexerCheck struct {
	Name     string
	Protocol string
	Server   string
	Login    indexer.LoginState
	Err      error
}

// Subscribe adds a subscription through the engine.
func (d *Daemon) Subscribe(ctx context.Context, req reconcile.AddRequest) (*subscription.Subscription, error) {
	return d.c.Engine.Add(ctx, req)
}

// Subscriptions lists stored subscriptions, optionally filtered by state.
func (d *Daemon) Subscriptions(ctx context.Context, states ...subscription.State) ([]*subscription.Subscription, error) {
	return d.c.Store.List(ctx, states...)
}

// RemoveSubscription deletes a subscription by id.
func (d *Daemon) RemoveSubscription(ctx context.Context, id int64) (bool, error) {
	removed, err := d.c.Store.Delete(ctx, id)
	if err == nil && removed {
		d.logger.Info("subscription removed", logging.Subscription(id))
	}
	return removed, err
}

// Search runs a direct search for one subscription, or for every new and
// matching subscription when id is zero.
func (d *Daemon) Search(ctx context.Context, id int64) (reconcile.Summary, error) {
	if id > 0 {
		return d.c.Engine.Search(ctx, id)
	}
	var summary reconcile.Summary
	for _, state := range []subscription.State{subscription.StateNew, subscription.StateMatching} {
		part, err := d.c.Engine.SearchState(ctx, state)
		summary.Processed += part.Processed
		summary.Skipped += part.Skipped
		summary.Matched += part.Matched
		summary.Downloads += part.Downloads
		summary.Completed += part.Completed
		if err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// Refresh runs one refresh and match cycle.
func (d *Daemon) Refresh(ctx context.Context) (reconcile.Summary, error) {
	return d.c.Engine.RunCycle(ctx)
}

// SyncWishlist runs a watchlist sync now.
func (d *Daemon) SyncWishlist(ctx context.Context) (wishlist.Result, error) {
	if d.c.Wishlist == nil {
		return wishlist.Result{}, ErrWishlistDisabled
	}
	return d.c.Wishlist.Sync(ctx)
}

// Cache exposes the metadata cache for maintenance commands.
func (d *Daemon) Cache() *metacache.Cache { return d.c.Cache }

// CheckIndexers queries every configured indexer's capabilities and, when a
// cookie is configured, its web login.
func (d *Daemon) CheckIndexers(ctx context.Context) []IndexerCheck {
	out := make([]IndexerCheck, 0, len(d.c.Indexers))
	for _, client := range d.c.Indexers {
		check := IndexerCheck{Name: client.Name(), Protocol: client.Protocol()}
		check.Server, check.Err = client.Check(ctx)
		if check.Err == nil {
			check.Login, check.Err = client.ProbeSite(ctx)
		}
		out = append(out, check)
	}
	return out
}

// TestNotification sends a test notification through every configured
// channel.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" && d.c.Telegram == nil {
		return false, "no notification channel configured", nil
	}
	if err := d.c.Notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", services.Wrap(services.ErrExternalTool, "daemon", "test notification", "publish failed", err)
	}
	return true, "test notification sent", nil
}
