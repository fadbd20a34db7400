package media

import (
	"fmt"
	"strings"
)

// Kind distinguishes movies from series.
type Kind string

const (
	KindUnknown Kind = ""
	KindMovie   Kind = "movie"
	KindTV      Kind = "tv"
)

// ParseKind accepts the user-facing spellings of a media kind.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return KindUnknown, nil
	case "movie", "movies", "film", "电影":
		return KindMovie, nil
	case "tv", "series", "show", "电视剧":
		return KindTV, nil
	default:
		return KindUnknown, fmt.Errorf("unknown media kind %q", value)
	}
}

// String returns the display label for the kind.
func (k Kind) String() string {
	switch k {
	case KindMovie:
		return "movie"
	case KindTV:
		return "tv"
	default:
		return "unknown"
	}
}

// IsTV reports whether the kind is a series.
func (k Kind) IsTV() bool { return k == KindTV }
