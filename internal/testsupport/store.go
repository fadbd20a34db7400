package testsupport

import (
	"context"
	"testing"

	"moviepilot/internal/config"
	"moviepilot/internal/media"
	"moviepilot/internal/subscription"
)

// MustOpenStore opens a subscription.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *subscription.Store {
	t.Helper()

	store, err := subscription.Open(cfg)
	if err != nil {
		t.Fatalf("subscription.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSubscription inserts a subscription for tests using the provided store.
func NewSubscription(t testing.TB, store *subscription.Store, name string, kind media.Kind, tmdbID int64, season int) *subscription.Subscription {
	t.Helper()

	sub, err := store.Add(context.Background(), subscription.Subscription{
		Name:   name,
		Kind:   kind,
		TMDBID: tmdbID,
		Season: season,
	})
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return sub
}
