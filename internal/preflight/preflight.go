package preflight

import (
	"context"
	"fmt"

	"moviepilot/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Severity renders the result for status output.
func (r Result) Severity() string {
	switch {
	case r.Passed:
		return "ok"
	case r.Optional:
		return "warn"
	default:
		return "error"
	}
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Movies library", cfg.MoviesPath()),
		CheckDirectoryAccess("TV library", cfg.TVPath()),
		CheckTMDB(ctx, cfg.TMDB.APIKey, cfg.TMDB.BaseURL),
		CheckDownloader(ctx, cfg),
		checkIndexersConfigured(cfg),
	}
	if cfg.Trakt.Enabled {
		results = append(results, checkFile("Trakt token", cfg.Trakt.TokenFile))
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

func checkIndexersConfigured(cfg *config.Config) Result {
	enabled := cfg.EnabledIndexers()
	if len(enabled) == 0 {
		return Result{Name: "Indexers", Detail: "no enabled indexers"}
	}
	return Result{Name: "Indexers", Passed: true, Detail: fmt.Sprintf("%d enabled", len(enabled))}
}
