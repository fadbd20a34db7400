package matching

import (
	"context"
	"log/slog"

	"moviepilot/internal/logging"
	"moviepilot/internal/media"
)

// Recognizer resolves a guess to a canonical record.
type Recognizer interface {
	Recognize(ctx context.Context, g media.Guess) (*media.Record, error)
}

// Candidate is a release with its parsed and resolved identity.
type Candidate struct {
	Guess media.Guess
	Media media.Record
	Raw   media.RawCandidate
	Score int
}

// Episodes returns the episodes the release carries; nil means a full season
// or a movie.
func (c Candidate) Episodes() []int { return c.Guess.Episodes }

// Resolve parses and recognizes raw releases. Releases that cannot be
// recognized are dropped.
func Resolve(ctx context.Context, rec Recognizer, raws []media.RawCandidate, logger *slog.Logger) []Candidate {
	if logger == nil {
		logger = logging.NewNop()
	}
	out := make([]Candidate, 0, len(raws))
	for _, raw := range raws {
		if ctx.Err() != nil {
			break
		}
		cand, ok := resolveOne(ctx, rec, raw, logger)
		if ok {
			out = append(out, cand)
		}
	}
	return out
}

func resolveOne(ctx context.Context, rec Recognizer, raw media.RawCandidate, logger *slog.Logger) (Candidate, bool) {
	guess := parse(raw)
	resolved, err := rec.Recognize(ctx, guess)
	if err != nil || resolved == nil {
		logger.Debug("candidate not recognized",
			logging.String("title", raw.Title),
			logging.Source(raw.Source),
			logging.Error(err))
		return Candidate{}, false
	}
	return Candidate{Guess: guess, Media: *resolved, Raw: raw, Score: media.QualityScore(guess)}, true
}

// parse reads the release title; a year or season the title lacks is taken
// from the description.
func parse(raw media.RawCandidate) media.Guess {
	guess := media.ParseRelease(raw.Title)
	if (guess.Year == 0 || !guess.HasSeason()) && raw.Description != "" {
		desc := media.ParseRelease(raw.Description)
		if guess.Year == 0 {
			guess.Year = desc.Year
		}
		if !guess.HasSeason() && desc.HasSeason() {
			guess.Season = desc.Season
			guess.Episodes = desc.Episodes
			guess.Kind = desc.Kind
		}
		if guess.IMDbID == "" {
			guess.IMDbID = desc.IMDbID
		}
	}
	if raw.IMDbID != "" {
		guess.IMDbID = raw.IMDbID
	}
	return guess
}

// Matches reports whether an already resolved candidate satisfies target.
func Matches(target media.Record, cand Candidate) bool {
	if !identityMatches(target, cand) {
		return false
	}
	return seasonAllows(target.Season, cand.Guess)
}

func identityMatches(target media.Record, cand Candidate) bool {
	if target.IMDbID != "" && cand.Guess.IMDbID != "" && cand.Guess.IMDbID == target.IMDbID {
		return true
	}
	return target.SameIdentity(cand.Media)
}

// seasonAllows applies the season gate: a season target rejects candidates
// for another season and candidates with no parsed season.
func seasonAllows(season int, guess media.Guess) bool {
	if season <= 0 {
		return true
	}
	return guess.Season == season
}

// Match filters resolved candidates (such as a source inventory) to those
// satisfying target. The result keeps candidate order.
func Match(target media.Record, candidates []Candidate) []Candidate {
	var out []Candidate
	for _, cand := range candidates {
		if Matches(target, cand) {
			out = append(out, cand)
		}
	}
	return out
}

// MatchRaw checks fresh search results against target. A shared IMDb id
// skips recognition; everything else is recognized and compared.
func MatchRaw(ctx context.Context, rec Recognizer, target media.Record, raws []media.RawCandidate, logger *slog.Logger) []Candidate {
	if logger == nil {
		logger = logging.NewNop()
	}
	var out []Candidate
	for _, raw := range raws {
		if ctx.Err() != nil {
			break
		}
		guess := parse(raw)
		if target.IMDbID != "" && guess.IMDbID == target.IMDbID {
			if seasonAllows(target.Season, guess) {
				out = append(out, Candidate{Guess: guess, Media: target, Raw: raw, Score: media.QualityScore(guess)})
			}
			continue
		}
		cand, ok := resolveOne(ctx, rec, raw, logger)
		if !ok {
			continue
		}
		if Matches(target, cand) {
			out = append(out, cand)
		}
	}
	return out
}
