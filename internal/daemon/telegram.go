package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"moviepilot/internal/reconcile"
	"moviepilot/internal/subscription"
)

// chatHandler serves Telegram commands from the daemon.
type chatHandler struct {
	d *Daemon
}

func (h chatHandler) ListSubscriptions(ctx context.Context) (string, error) {
	subs, err := h.d.Subscriptions(ctx)
	if err != nil {
		return "", err
	}
	if len(subs) == 0 {
		return "No subscriptions", nil
	}
	var b strings.Builder
	for i, sub := range subs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "#%d %s [%s]", sub.ID, sub.Label(), sub.State.Label())
		if sub.MissingEpisodes > 0 {
			fmt.Fprintf(&b, " missing %d", sub.MissingEpisodes)
		}
	}
	return b.String(), nil
}

func (h chatHandler) SearchAll(ctx context.Context) error {
	_, err := h.d.Search(ctx, 0)
	return err
}

func (h chatHandler) RunCycle(ctx context.Context) error {
	_, err := h.d.Refresh(ctx)
	return err
}

func (h chatHandler) Subscribe(ctx context.Context, text, user string) (string, error) {
	sub, err := h.d.Subscribe(ctx, reconcile.AddRequest{Title: text, Username: user})
	if errors.Is(err, subscription.ErrDuplicate) && sub != nil {
		return fmt.Sprintf("Already subscribed: %s", sub.Label()), nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Subscribed: %s", sub.Label()), nil
}
