package library

import (
	"regexp"
	"strconv"
	"strings"

	"moviepilot/internal/media"
	"moviepilot/internal/textutil"
)

var (
	tmdbTagPattern = regexp.MustCompile(`(?i)\btmdb(?:id)?[-=](\d+)\b`)
	imdbTagPattern = regexp.MustCompile(`(?i)\btt\d{7,8}\b`)
	yearPattern    = regexp.MustCompile(`[\(\[]((?:19|20)\d{2})[\)\]]`)
	bracketPattern = regexp.MustCompile(`[\{\[][^\}\]]*[\}\]]`)
)

const fuzzyThreshold = 0.85

// entryName is a library folder or file name split into its parts.
type entryName struct {
	title  string
	year   int
	tmdbID int64
	imdbID string
}

func parseEntryName(name string) entryName {
	var out entryName
	if m := tmdbTagPattern.FindStringSubmatch(name); m != nil {
		out.tmdbID, _ = strconv.ParseInt(m[1], 10, 64)
	}
	out.imdbID = strings.ToLower(imdbTagPattern.FindString(name))

	title := name
	if m := yearPattern.FindStringSubmatchIndex(title); m != nil {
		out.year, _ = strconv.Atoi(title[m[2]:m[3]])
		title = title[:m[0]] + title[m[1]:]
	}
	title = bracketPattern.ReplaceAllString(title, " ")
	if out.year == 0 {
		// Bare release style names such as Heat.1995.1080p.
		guess := media.ParseRelease(name)
		if guess.Year > 0 {
			out.year = guess.Year
			title = guess.Title
		}
	}
	title = strings.NewReplacer(".", " ", "_", " ").Replace(title)
	out.title = strings.TrimSpace(title)
	return out
}

// matches decides whether a library entry names rec. Provider tags win; then
// the folded titles must agree exactly or by fingerprint similarity, and a
// year on both sides must agree within one.
func (e entryName) matches(rec media.Record) bool {
	if e.tmdbID != 0 {
		return e.tmdbID == rec.TMDBID
	}
	if e.imdbID != "" && rec.IMDbID != "" {
		return strings.EqualFold(e.imdbID, rec.IMDbID)
	}
	if e.year > 0 && rec.Year > 0 && abs(e.year-rec.Year) > 1 {
		return false
	}
	if media.FoldTitle(e.title) == media.FoldTitle(rec.Title) {
		return true
	}
	return textutil.TitleSimilarity(e.title, rec.Title) >= fuzzyThreshold
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
