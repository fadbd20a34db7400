package download

import (
	"sort"

	"moviepilot/internal/matching"
	"moviepilot/internal/media"
)

// Pick is a selected release and the part of the missing set it covers.
type Pick struct {
	Candidate matching.Candidate
	Season    int
	// Episodes is empty for movies and season packs.
	Episodes []int
}

// Select chooses releases to cover missing, best score first. The returned
// remainder is what the picks leave uncovered; missing is not modified.
func Select(candidates []matching.Candidate, missing media.Missing) ([]Pick, media.Missing) {
	remaining := missing.Clone()
	if remaining == nil {
		remaining = media.Missing{}
	}
	ordered := make([]matching.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	var picks []Pick
	taken := map[episodeKey]bool{}
	for _, cand := range ordered {
		pick, ok := cover(cand, remaining, taken)
		if !ok {
			continue
		}
		for _, ep := range pick.Episodes {
			taken[episodeKey{cand.Media.TMDBID, pick.Season, ep}] = true
		}
		remaining.Remove(cand.Media.TMDBID, pick.Season, pick.Episodes...)
		picks = append(picks, pick)
	}
	return picks, remaining
}

// episodeKey marks an episode already picked. Gaps of unknown size do not
// shrink on Remove, so this keeps two releases of one episode from both
// being sent.
type episodeKey struct {
	id      int64
	season  int
	episode int
}

func cover(cand matching.Candidate, remaining media.Missing, taken map[episodeKey]bool) (Pick, bool) {
	gaps := remaining[cand.Media.TMDBID]
	if len(gaps) == 0 {
		return Pick{}, false
	}
	if !cand.Media.Kind.IsTV() {
		for _, gap := range gaps {
			if gap.Season == 0 {
				return Pick{Candidate: cand}, true
			}
		}
		return Pick{}, false
	}

	season := cand.Guess.Season
	if season == 0 {
		season = cand.Media.Season
	}
	for _, gap := range gaps {
		if gap.Season != season {
			continue
		}
		episodes := cand.Episodes()
		if len(episodes) == 0 {
			// Season packs only when the whole season is outstanding.
			if len(gap.Episodes) == 0 || (gap.TotalEpisodes > 0 && len(gap.Episodes) == gap.TotalEpisodes) {
				return Pick{Candidate: cand, Season: season}, true
			}
			return Pick{}, false
		}
		var useful []int
		for _, ep := range media.SortedEpisodes(episodes) {
			if gap.Covers(ep) && !taken[episodeKey{cand.Media.TMDBID, season, ep}] {
				useful = append(useful, ep)
			}
		}
		if len(useful) == 0 {
			return Pick{}, false
		}
		return Pick{Candidate: cand, Season: season, Episodes: useful}, true
	}
	return Pick{}, false
}
