package media

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Guess is an unverified identity read from a release name or a request.
type Guess struct {
	Title    string
	Year     int
	Kind     Kind
	Season   int
	Episodes []int
	IMDbID   string
	// TMDBID pins the lookup to a known identity when non-zero.
	TMDBID int64

	Resolution string
	Source     string
	Codec      string
	Proper     bool
	Repack     bool
}

// HasSeason reports whether a season number was recognized.
func (g Guess) HasSeason() bool { return g.Season > 0 }

// Record is a canonical identity resolved against TMDB.
type Record struct {
	TMDBID       int64
	Kind         Kind
	Title        string
	Year         int
	IMDbID       string
	Overview     string
	PosterPath   string
	BackdropPath string
	// Season carries the season the request or release refers to; it is not
	// part of the identity.
	Season int
}

// Label renders a short human readable name.
func (r Record) Label() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(r.Title))
	if r.Year > 0 {
		fmt.Fprintf(&b, " (%d)", r.Year)
	}
	if r.Kind == KindTV && r.Season > 0 {
		fmt.Fprintf(&b, " S%02d", r.Season)
	}
	return b.String()
}

// SameIdentity reports whether two records name the same provider identity.
func (r Record) SameIdentity(other Record) bool {
	return r.TMDBID != 0 && r.TMDBID == other.TMDBID && r.Kind == other.Kind
}

// RawCandidate is a release as listed or returned by an indexer.
type RawCandidate struct {
	Title       string
	Description string
	Link        string
	GUID        string
	IMDbID      string
	Size        int64
	Seeders     int
	Source      string
	// Protocol is newznab or torznab.
	Protocol    string
	PublishedAt time.Time
}

// SeasonGap lists the episodes of one season that are not yet held. An empty
// Episodes slice means the whole season is outstanding.
type SeasonGap struct {
	Season        int   `json:"season"`
	Episodes      []int `json:"episodes,omitempty"`
	TotalEpisodes int   `json:"total_episodes,omitempty"`
}

// Count returns the number of outstanding episodes in the gap.
func (g SeasonGap) Count() int {
	if len(g.Episodes) > 0 {
		return len(g.Episodes)
	}
	if g.TotalEpisodes > 0 {
		return g.TotalEpisodes
	}
	return 1
}

// Covers reports whether the episode is outstanding in this gap.
func (g SeasonGap) Covers(episode int) bool {
	if len(g.Episodes) == 0 {
		return true
	}
	for _, ep := range g.Episodes {
		if ep == episode {
			return true
		}
	}
	return false
}

// Missing maps a TMDB id to the gaps still outstanding for it. A movie that is
// not held is represented by a single gap with season 0.
type Missing map[int64][]SeasonGap

// Empty reports whether nothing is outstanding.
func (m Missing) Empty() bool {
	for _, gaps := range m {
		if len(gaps) > 0 {
			return false
		}
	}
	return true
}

// EpisodeCount sums the outstanding episodes recorded for id.
func (m Missing) EpisodeCount(id int64) int {
	total := 0
	for _, gap := range m[id] {
		total += gap.Count()
	}
	return total
}

// Clone returns a deep copy so collaborators can shrink it freely.
func (m Missing) Clone() Missing {
	if m == nil {
		return nil
	}
	out := make(Missing, len(m))
	for id, gaps := range m {
		copied := make([]SeasonGap, len(gaps))
		for i, gap := range gaps {
			copied[i] = gap
			copied[i].Episodes = append([]int(nil), gap.Episodes...)
		}
		out[id] = copied
	}
	return out
}

// Remove drops the given episodes of season from the gaps of id. Passing no
// episodes removes the whole season. A season of unknown size (no episode
// list, no total) only goes away with a whole-season removal. Gaps left
// empty are dropped, and an id with no gaps left is removed from the map.
func (m Missing) Remove(id int64, season int, episodes ...int) {
	gaps, ok := m[id]
	if !ok {
		return
	}
	kept := gaps[:0]
	for _, gap := range gaps {
		if gap.Season != season {
			kept = append(kept, gap)
			continue
		}
		if len(episodes) == 0 {
			continue
		}
		if len(gap.Episodes) == 0 && gap.TotalEpisodes > 0 {
			gap.Episodes = sequence(gap.TotalEpisodes)
		}
		if len(gap.Episodes) == 0 {
			kept = append(kept, gap)
			continue
		}
		drop := make(map[int]struct{}, len(episodes))
		for _, ep := range episodes {
			drop[ep] = struct{}{}
		}
		left := make([]int, 0, len(gap.Episodes))
		for _, ep := range gap.Episodes {
			if _, gone := drop[ep]; !gone {
				left = append(left, ep)
			}
		}
		if len(left) == 0 {
			continue
		}
		gap.Episodes = left
		kept = append(kept, gap)
	}
	if len(kept) == 0 {
		delete(m, id)
		return
	}
	m[id] = kept
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// SortedEpisodes returns a sorted copy of eps without duplicates.
func SortedEpisodes(eps []int) []int {
	if len(eps) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(eps))
	out := make([]int, 0, len(eps))
	for _, ep := range eps {
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}
	sort.Ints(out)
	return out
}
