package reconcile

import (
	"sort"
	"sync"
	"time"

	"moviepilot/internal/matching"
)

// Inventory holds the latest recognized releases per source. Each source is
// replaced wholesale; readers see either the old or the new list.
type Inventory struct {
	mu      sync.RWMutex
	sources map[string][]matching.Candidate
	updated map[string]time.Time
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{
		sources: make(map[string][]matching.Candidate),
		updated: make(map[string]time.Time),
	}
}

// Replace swaps the releases of source. An empty list empties the source.
func (i *Inventory) Replace(source string, candidates []matching.Candidate) {
	fresh := make([]matching.Candidate, len(candidates))
	copy(fresh, candidates)
	i.mu.Lock()
	i.sources[source] = fresh
	i.updated[source] = time.Now()
	i.mu.Unlock()
}

// Snapshot returns the releases of one source.
func (i *Inventory) Snapshot(source string) []matching.Candidate {
	i.mu.RLock()
	defer i.mu.RUnlock()
	list := i.sources[source]
	out := make([]matching.Candidate, len(list))
	copy(out, list)
	return out
}

// All returns the union of every source, ordered by source name.
func (i *Inventory) All() []matching.Candidate {
	i.mu.RLock()
	defer i.mu.RUnlock()
	names := make([]string, 0, len(i.sources))
	total := 0
	for name, list := range i.sources {
		names = append(names, name)
		total += len(list)
	}
	sort.Strings(names)
	out := make([]matching.Candidate, 0, total)
	for _, name := range names {
		out = append(out, i.sources[name]...)
	}
	return out
}

// SourceStat describes one source in the inventory.
type SourceStat struct {
	Name      string
	Releases  int
	Refreshed time.Time
}

// Stats lists every source, ordered by name.
func (i *Inventory) Stats() []SourceStat {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]SourceStat, 0, len(i.sources))
	for name, list := range i.sources {
		out = append(out, SourceStat{Name: name, Releases: len(list), Refreshed: i.updated[name]})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}
