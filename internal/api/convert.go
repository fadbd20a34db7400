package api

import (
	"time"

	"moviepilot/internal/metacache"
	"moviepilot/internal/reconcile"
	"moviepilot/internal/scheduler"
	"moviepilot/internal/subscription"
)

// FromSubscription converts a stored subscription to its API representation.
func FromSubscription(sub *subscription.Subscription) Subscription {
	if sub == nil {
		return Subscription{}
	}
	return Subscription{
		ID:              sub.ID,
		Name:            sub.Name,
		Label:           sub.Label(),
		Year:            sub.Year,
		Season:          sub.Season,
		Kind:            sub.Kind.String(),
		TMDBID:          sub.TMDBID,
		IMDbID:          sub.IMDbID,
		Keyword:         sub.Keyword,
		State:           sub.State.Label(),
		MissingEpisodes: sub.MissingEpisodes,
		Poster:          sub.Poster,
		Username:        sub.Username,
		CreatedAt:       formatTime(sub.CreatedAt),
		UpdatedAt:       formatTime(sub.UpdatedAt),
	}
}

// FromSubscriptions converts a list, skipping nil rows.
func FromSubscriptions(subs []*subscription.Subscription) []Subscription {
	out := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		out = append(out, FromSubscription(sub))
	}
	return out
}

// FromCacheItem converts a cache row.
func FromCacheItem(item metacache.Item) CacheEntry {
	entry := CacheEntry{
		Key:      item.Key,
		TMDBID:   item.Entry.ExternalID,
		Kind:     item.Entry.Kind.String(),
		Title:    item.Entry.Title,
		Year:     item.Entry.Year,
		IMDbID:   item.Entry.IMDbID,
		Poster:   item.Entry.PosterPath,
		Sentinel: item.Entry.IsSentinel(),
	}
	if item.Entry.ExpiresAt > 0 {
		entry.ExpiresAt = formatTime(time.Unix(item.Entry.ExpiresAt, 0))
	}
	return entry
}

// FromCacheStats converts cache counters.
func FromCacheStats(stats metacache.Stats) CacheStats {
	return CacheStats{
		Entries:   stats.Entries,
		Sentinels: stats.Sentinels,
		Writes:    stats.Writes,
		LastSave:  formatTime(stats.LastSave),
	}
}

// FromSummary converts a reconcile summary.
func FromSummary(s reconcile.Summary) Summary {
	return Summary{
		Processed: s.Processed,
		Skipped:   s.Skipped,
		Matched:   s.Matched,
		Downloads: s.Downloads,
		Completed: s.Completed,
	}
}

// FromEngineStatus converts reconcile engine status.
func FromEngineStatus(s reconcile.Status) EngineStatus {
	return EngineStatus{
		Running:     s.Running,
		Cycles:      s.Cycles,
		LastCycleID: s.LastCycleID,
		LastCycle:   formatTime(s.LastCycle),
		LastSummary: FromSummary(s.LastSummary),
		LastError:   s.LastError,
	}
}

// FromSourceStats converts inventory statistics.
func FromSourceStats(stats []reconcile.SourceStat) []SourceStat {
	out := make([]SourceStat, 0, len(stats))
	for _, s := range stats {
		out = append(out, SourceStat{Name: s.Name, Releases: s.Releases, Refreshed: formatTime(s.Refreshed)})
	}
	return out
}

// FromJobs converts scheduler job information.
func FromJobs(jobs []scheduler.JobInfo) []Job {
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, Job{
			Name:    j.Name,
			Spec:    j.Spec,
			Next:    formatTime(j.Next),
			Prev:    formatTime(j.Prev),
			Runs:    j.Runs,
			LastErr: j.LastErr,
		})
	}
	return out
}

// StateCounts renders per-state counts keyed by readable state name.
func StateCounts(counts map[subscription.State]int) map[string]int {
	out := make(map[string]int, len(counts))
	for state, n := range counts {
		out[state.Label()] = n
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
