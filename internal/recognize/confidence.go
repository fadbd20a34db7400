package recognize

import (
	"log/slog"
	"strings"
	"unicode"

	"moviepilot/internal/logging"
	"moviepilot/internal/tmdb"
)

// selectBestResult picks the strongest search hit for query. Exact title
// matches need a minimal rating; partial matches must clear a score that
// grows with the vote count so obscure near-misses lose to nothing.
func selectBestResult(logger *slog.Logger, query string, year int, response *tmdb.Response) *tmdb.Result {
	if response == nil || len(response.Results) == 0 {
		return nil
	}
	queryLower := strings.ToLower(strings.TrimSpace(query))
	queryNormalized := normalizeForComparison(query)

	var best *tmdb.Result
	bestScore := -1.0
	for idx := range response.Results {
		score := scoreResult(queryLower, year, response.Results[idx])
		if score > bestScore {
			best = &response.Results[idx]
			bestScore = score
		}
	}
	if best == nil {
		return nil
	}

	title := best.DisplayTitle()
	exact := strings.ToLower(title) == queryLower || normalizeForComparison(title) == queryNormalized
	attrs := []logging.Attr{
		logging.String("query", query),
		logging.Int64("tmdb_id", best.ID),
		logging.String("title", title),
		logging.Float64("score", bestScore),
		logging.Bool("exact_title_match", exact),
	}

	if exact {
		if best.VoteCount > 0 && best.VoteAverage < 2.0 {
			logger.Debug("exact match rejected: vote average too low", logging.Args(attrs...)...)
			return nil
		}
		logger.Debug("exact match accepted", logging.Args(attrs...)...)
		return best
	}
	if best.VoteAverage < 3.0 {
		logger.Debug("partial match rejected: vote average too low", logging.Args(attrs...)...)
		return nil
	}
	if minExpected := 1.3 + float64(best.VoteCount)/1000.0; bestScore < minExpected {
		logger.Debug("partial match rejected: confidence score too low",
			logging.Args(append(attrs, logging.Float64("min_expected_score", minExpected))...)...)
		return nil
	}
	logger.Debug("partial match accepted", logging.Args(attrs...)...)
	return best
}

func scoreResult(query string, year int, result tmdb.Result) float64 {
	title := result.DisplayTitle()
	if title == "" {
		return 0
	}
	match := 0.0
	if strings.Contains(strings.ToLower(title), query) {
		match = 1.0
	}
	if year > 0 && result.Year() == year {
		match += 0.5
	}
	return match + (result.VoteAverage / 10.0) + float64(result.VoteCount)/1000.0
}

func normalizeForComparison(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	normalized := strings.ToLower(input)
	normalized = strings.ReplaceAll(normalized, "&", "and")
	normalized = strings.ReplaceAll(normalized, "+", "and")

	var builder strings.Builder
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
