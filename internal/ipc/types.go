package ipc

import "moviepilot/internal/api"

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops background processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse wraps the daemon status DTO.
type StatusResponse struct {
	Status api.DaemonStatus `json:"status"`
}

// SubscribeAddRequest describes a subscription to add. Title may carry a
// year and season marker.
type SubscribeAddRequest struct {
	Title    string `json:"title"`
	Year     int    `json:"year,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Season   int    `json:"season,omitempty"`
	TMDBID   int64  `json:"tmdb_id,omitempty"`
	IMDbID   string `json:"imdb_id,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	Username string `json:"username,omitempty"`
}

// SubscribeAddResponse returns the stored subscription. Duplicate is set when
// the subscription already existed.
type SubscribeAddResponse struct {
	Item      api.Subscription `json:"item"`
	Duplicate bool             `json:"duplicate"`
}

// SubscribeListRequest filters subscriptions by state name.
type SubscribeListRequest struct {
	States []string `json:"states"`
}

// SubscribeListResponse contains subscriptions.
type SubscribeListResponse struct {
	Items []api.Subscription `json:"items"`
}

// SubscribeRemoveRequest deletes a subscription.
type SubscribeRemoveRequest struct {
	ID int64 `json:"id"`
}

// SubscribeRemoveResponse reports whether a row was removed.
type SubscribeRemoveResponse struct {
	Removed bool `json:"removed"`
}

// SubscribeSearchRequest runs a direct search. Zero searches everything.
type SubscribeSearchRequest struct {
	ID int64 `json:"id"`
}

// SummaryResponse reports what a search or cycle did.
type SummaryResponse struct {
	Summary api.Summary `json:"summary"`
}

// RefreshRequest runs one refresh and match cycle.
type RefreshRequest struct{}

// CacheListRequest lists cache rows. Sentinels are skipped unless requested.
type CacheListRequest struct {
	Sentinels bool `json:"sentinels"`
}

// CacheListResponse contains cache rows and counters.
type CacheListResponse = api.CacheListResponse

// CacheKeyRequest addresses one cache entry.
type CacheKeyRequest struct {
	Key string `json:"key"`
}

// CacheEntryResponse returns one cache entry.
type CacheEntryResponse struct {
	Item api.CacheEntry `json:"item"`
}

// CacheRenameRequest replaces the title of a cache entry.
type CacheRenameRequest struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// CacheInvalidateRequest removes entries by key, by TMDB id, or every
// sentinel. Fields combine.
type CacheInvalidateRequest struct {
	Key       string `json:"key,omitempty"`
	TMDBID    int64  `json:"tmdb_id,omitempty"`
	Sentinels bool   `json:"sentinels,omitempty"`
}

// CacheRemovedResponse reports how many entries were removed.
type CacheRemovedResponse struct {
	Removed int `json:"removed"`
}

// CacheClearRequest drops every cache entry.
type CacheClearRequest struct{}

// CacheSaveRequest forces a cache save.
type CacheSaveRequest struct{}

// CacheSaveResponse reports counters after the save.
type CacheSaveResponse struct {
	Stats api.CacheStats `json:"stats"`
}

// WishlistSyncRequest runs a watchlist sync.
type WishlistSyncRequest struct{}

// WishlistSyncResponse reports the sync result.
type WishlistSyncResponse struct {
	Listed     int `json:"listed"`
	New        int `json:"new"`
	Held       int `json:"held"`
	Downloaded int `json:"downloaded"`
	Subscribed int `json:"subscribed"`
	Failed     int `json:"failed"`
}

// IndexersCheckRequest probes every configured indexer.
type IndexersCheckRequest struct{}

// IndexerCheck is one indexer probe result.
type IndexerCheck struct {
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	Server   string `json:"server,omitempty"`
	Login    string `json:"login"`
	Error    string `json:"error,omitempty"`
}

// IndexersCheckResponse contains probe results.
type IndexersCheckResponse struct {
	Items []IndexerCheck `json:"items"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset         int64  `json:"offset"`
	Limit          int    `json:"limit"`
	Follow         bool   `json:"follow"`
	WaitMillis     int    `json:"wait_millis"`
	Contains       string `json:"contains,omitempty"`
	SubscriptionID int64  `json:"subscription_id,omitempty"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
