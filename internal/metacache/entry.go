package metacache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"moviepilot/internal/media"
)

// ErrInvalidKey is returned for empty keys.
var ErrInvalidKey = errors.New("metacache: invalid key")

// ErrNotFound is returned when a key is not cached.
var ErrNotFound = errors.New("metacache: not found")

// Entry is one cached lookup result.
type Entry struct {
	// ExternalID is the TMDB id, or 0 for a lookup that found nothing.
	ExternalID   int64      `json:"id"`
	Kind         media.Kind `json:"type"`
	Title        string     `json:"title"`
	Year         int        `json:"year,omitempty"`
	IMDbID       string     `json:"imdb_id,omitempty"`
	PosterPath   string     `json:"poster_path,omitempty"`
	BackdropPath string     `json:"backdrop_path,omitempty"`
	// ExpiresAt is unix seconds; zero never expires.
	ExpiresAt int64 `json:"expires"`
}

// IsSentinel reports whether the entry records a failed lookup.
func (e Entry) IsSentinel() bool { return e.ExternalID == 0 }

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != 0 && e.ExpiresAt <= now.Unix()
}

// Record converts a live entry back into a canonical record.
func (e Entry) Record() media.Record {
	return media.Record{
		TMDBID:       e.ExternalID,
		Kind:         e.Kind,
		Title:        e.Title,
		Year:         e.Year,
		IMDbID:       e.IMDbID,
		PosterPath:   e.PosterPath,
		BackdropPath: e.BackdropPath,
	}
}

func entryFromRecord(rec media.Record, expiresAt int64) Entry {
	return Entry{
		ExternalID:   rec.TMDBID,
		Kind:         rec.Kind,
		Title:        rec.Title,
		Year:         rec.Year,
		IMDbID:       rec.IMDbID,
		PosterPath:   rec.PosterPath,
		BackdropPath: rec.BackdropPath,
		ExpiresAt:    expiresAt,
	}
}

// Key builds the cache key for a lookup: [kind]name-year-season. The name is
// folded so spelling variants share a key; zero year or season render empty.
func Key(kind media.Kind, name string, year, season int) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(kind))
	b.WriteByte(']')
	b.WriteString(media.FoldTitle(name))
	b.WriteByte('-')
	if year > 0 {
		b.WriteString(strconv.Itoa(year))
	}
	b.WriteByte('-')
	if season > 0 {
		b.WriteString(strconv.Itoa(season))
	}
	return b.String()
}

// KeyForGuess derives the key a recognizer uses for g.
func KeyForGuess(g media.Guess) string {
	return Key(g.Kind, g.Title, g.Year, g.Season)
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	return key, nil
}

// Item pairs a key with its entry for listings.
type Item struct {
	Key   string
	Entry Entry
}

// Stats summarizes cache state.
type Stats struct {
	Entries   int
	Sentinels int
	Writes    int
	LastSave  time.Time
}

func (s Stats) String() string {
	return fmt.Sprintf("%d entries (%d sentinels), %d writes", s.Entries, s.Sentinels, s.Writes)
}
