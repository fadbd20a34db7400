package indexer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"moviepilot/internal/logging"
	"moviepilot/internal/media"
)

// Multi searches every client concurrently and merges the results.
type Multi struct {
	clients []*Client
	logger  *slog.Logger
}

// NewMulti wraps the given clients.
func NewMulti(clients []*Client, logger *slog.Logger) *Multi {
	return &Multi{clients: clients, logger: logging.NewComponentLogger(logger, "indexer")}
}

// Clients returns the wrapped clients.
func (m *Multi) Clients() []*Client { return m.clients }

// Search returns the merged results, deduplicated by GUID then link. It fails
// only when every indexer failed.
func (m *Multi) Search(ctx context.Context, rec media.Record, keyword string) ([]media.RawCandidate, error) {
	if len(m.clients) == 0 {
		return nil, nil
	}
	results := make([][]media.RawCandidate, len(m.clients))
	errs := make([]error, len(m.clients))

	var wg sync.WaitGroup
	for i, client := range m.clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = client.Search(ctx, rec, keyword)
		}()
	}
	wg.Wait()

	var (
		out    []media.RawCandidate
		failed []error
		seen   = make(map[string]struct{})
	)
	for i, client := range m.clients {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			logging.WarnWithContext(m.logger, "indexer search failed", "indexer_search_failed",
				logging.String("indexer", client.Name()),
				logging.String(logging.FieldErrorHint, "check indexer url and api key"),
				logging.Error(errs[i]),
			)
			continue
		}
		for _, raw := range results[i] {
			key := strings.TrimSpace(raw.GUID)
			if key == "" {
				key = raw.Link
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, raw)
		}
	}
	if len(failed) == len(m.clients) {
		return nil, errors.Join(failed...)
	}
	return out, nil
}
