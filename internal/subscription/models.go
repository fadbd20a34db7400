package subscription

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"moviepilot/internal/media"
)

// State is the lifecycle state of a subscription.
type State string

const (
	// StateNew marks a subscription that has never been searched.
	StateNew State = "N"
	// StateMatching marks a subscription watched by refresh cycles.
	StateMatching State = "R"
)

// ParseState accepts the stored letter or a readable name.
func ParseState(value string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "n", "new":
		return StateNew, nil
	case "r", "matching", "running":
		return StateMatching, nil
	default:
		return "", fmt.Errorf("unknown subscription state %q", value)
	}
}

// Label returns a readable state name.
func (s State) Label() string {
	switch s {
	case StateNew:
		return "new"
	case StateMatching:
		return "matching"
	default:
		return string(s)
	}
}

// ErrDuplicate is returned when a subscription for the same identity exists.
var ErrDuplicate = errors.New("subscription already exists")

// Subscription is a user's request for a title.
type Subscription struct {
	ID     int64
	Name   string
	Year   int
	Season int
	Kind   media.Kind
	// TMDBID pins the identity when non-zero.
	TMDBID int64
	IMDbID string
	// Keyword overrides the search terms when set.
	Keyword         string
	State           State
	MissingEpisodes int
	Poster          string
	Username        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Guess converts the subscription into a recognition request.
func (s Subscription) Guess() media.Guess {
	return media.Guess{
		Title:  s.Name,
		Year:   s.Year,
		Kind:   s.Kind,
		Season: s.Season,
		TMDBID: s.TMDBID,
		IMDbID: s.IMDbID,
	}
}

// Label renders the subscription for logs and messages.
func (s Subscription) Label() string {
	rec := media.Record{Title: s.Name, Year: s.Year, Kind: s.Kind, Season: s.Season}
	return rec.Label()
}

// Update lists the fields to change; nil fields are left alone.
type Update struct {
	State           *State
	MissingEpisodes *int
	TMDBID          *int64
	IMDbID          *string
	Poster          *string
	Year            *int
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.State == nil && u.MissingEpisodes == nil && u.TMDBID == nil &&
		u.IMDbID == nil && u.Poster == nil && u.Year == nil
}
