package reconcile

import (
	"context"

	"moviepilot/internal/matching"
	"moviepilot/internal/media"
	"moviepilot/internal/subscription"
)

// HoldingsChecker reports what the library already has for a record.
type HoldingsChecker interface {
	Check(ctx context.Context, rec media.Record) (fullyHeld bool, missing media.Missing, err error)
}

// Source lists the latest releases of one indexer. An empty list is not an
// error.
type Source interface {
	Name() string
	List(ctx context.Context) ([]media.RawCandidate, error)
}

// Searcher runs a direct search for one title.
type Searcher interface {
	Search(ctx context.Context, rec media.Record, keyword string) ([]media.RawCandidate, error)
}

// Downloader requests a batch of releases and returns what is still missing.
// An empty result means the request covers everything.
type Downloader interface {
	Download(ctx context.Context, candidates []matching.Candidate, missing media.Missing) (media.Missing, error)
}

// CandidateFilter prunes matched releases.
type CandidateFilter interface {
	Apply(candidates []matching.Candidate) []matching.Candidate
}

// Store is the subscription persistence the engine needs.
type Store interface {
	Add(ctx context.Context, sub subscription.Subscription) (*subscription.Subscription, error)
	Get(ctx context.Context, id int64) (*subscription.Subscription, error)
	List(ctx context.Context, states ...subscription.State) ([]*subscription.Subscription, error)
	FindByIdentity(ctx context.Context, kind media.Kind, tmdbID int64, season int) (*subscription.Subscription, error)
	Update(ctx context.Context, id int64, u subscription.Update) error
	Delete(ctx context.Context, id int64) (bool, error)
}
