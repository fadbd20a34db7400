package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Subscription describes a subscription in a transport-friendly format.
type Subscription struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Label           string `json:"label"`
	Year            int    `json:"year,omitempty"`
	Season          int    `json:"season,omitempty"`
	Kind            string `json:"kind"`
	TMDBID          int64  `json:"tmdbId,omitempty"`
	IMDbID          string `json:"imdbId,omitempty"`
	Keyword         string `json:"keyword,omitempty"`
	State           string `json:"state"`
	MissingEpisodes int    `json:"missingEpisodes,omitempty"`
	Poster          string `json:"poster,omitempty"`
	Username        string `json:"username,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

// CacheEntry is one metadata cache row.
type CacheEntry struct {
	Key       string `json:"key"`
	TMDBID    int64  `json:"tmdbId"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
	IMDbID    string `json:"imdbId,omitempty"`
	Poster    string `json:"poster,omitempty"`
	Sentinel  bool   `json:"sentinel"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// CacheStats summarizes the metadata cache.
type CacheStats struct {
	Entries   int    `json:"entries"`
	Sentinels int    `json:"sentinels"`
	Writes    int    `json:"writes"`
	LastSave  string `json:"lastSave,omitempty"`
}

// SourceStat reports one indexer's inventory.
type SourceStat struct {
	Name      string `json:"name"`
	Releases  int    `json:"releases"`
	Refreshed string `json:"refreshed,omitempty"`
}

// Summary counts what one reconcile pass did.
type Summary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Matched   int `json:"matched"`
	Downloads int `json:"downloads"`
	Completed int `json:"completed"`
}

// EngineStatus reports reconcile cycle history.
type EngineStatus struct {
	Running     bool    `json:"running"`
	Cycles      int     `json:"cycles"`
	LastCycleID string  `json:"lastCycleId,omitempty"`
	LastCycle   string  `json:"lastCycle,omitempty"`
	LastSummary Summary `json:"lastSummary"`
	LastError   string  `json:"lastError,omitempty"`
}

// Job describes a scheduled job.
type Job struct {
	Name    string `json:"name"`
	Spec    string `json:"spec"`
	Next    string `json:"next,omitempty"`
	Prev    string `json:"prev,omitempty"`
	Runs    int    `json:"runs"`
	LastErr string `json:"lastError,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	DatabasePath  string         `json:"databasePath"`
	LockFilePath  string         `json:"lockFilePath"`
	CachePath     string         `json:"cachePath,omitempty"`
	Subscriptions map[string]int `json:"subscriptions"`
	Cache         CacheStats     `json:"cache"`
	Engine        EngineStatus   `json:"engine"`
	Sources       []SourceStat   `json:"sources"`
	Jobs          []Job          `json:"jobs"`
	Telegram      bool           `json:"telegram"`
	Wishlist      bool           `json:"wishlist"`
}

// SubscriptionListResponse wraps a collection of subscriptions.
type SubscriptionListResponse struct {
	Items []Subscription `json:"items"`
}

// SubscriptionResponse wraps a single subscription.
type SubscriptionResponse struct {
	Item Subscription `json:"item"`
}

// CacheListResponse wraps cache rows and stats.
type CacheListResponse struct {
	Items []CacheEntry `json:"items"`
	Stats CacheStats   `json:"stats"`
}
