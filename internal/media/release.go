package media

import (
	"regexp"
	"strconv"
	"strings"

	ptn "github.com/razsteinmetz/go-ptn"
)

var (
	episodeRangePattern = regexp.MustCompile(`(?i)\bS(\d{1,2})E(\d{1,3})(?:[-E]+E?(\d{1,3}))+\b`)
	episodePattern      = regexp.MustCompile(`(?i)\bS(\d{1,2})E(\d{1,3})\b`)
	seasonPackPattern   = regexp.MustCompile(`(?i)\b(?:S(\d{1,2})|Season[ ._-]?(\d{1,2}))\b`)
	imdbPattern         = regexp.MustCompile(`\btt\d{7,8}\b`)
)

// ParseRelease reads the identity and quality hints from a release name.
// A name go-ptn cannot parse still yields a Guess carrying the raw title.
func ParseRelease(name string) Guess {
	name = strings.TrimSpace(name)
	guess := Guess{Title: name}
	if name == "" {
		return guess
	}

	info, err := ptn.Parse(name)
	if err == nil && info != nil {
		if title := strings.TrimSpace(info.Title); title != "" {
			guess.Title = DisplayTitle(title)
		}
		guess.Year = info.Year
		guess.Season = info.Season
		if info.Episode > 0 {
			guess.Episodes = []int{info.Episode}
		}
		guess.Resolution = strings.ToUpper(info.Resolution)
		guess.Source = strings.ToUpper(info.Quality)
		guess.Codec = strings.ToUpper(info.Codec)
		guess.Proper = info.Proper
		guess.Repack = info.Repack
	}

	if m := episodeRangePattern.FindStringSubmatch(name); m != nil {
		season, _ := strconv.Atoi(m[1])
		first, _ := strconv.Atoi(m[2])
		last, _ := strconv.Atoi(m[3])
		if guess.Season == 0 {
			guess.Season = season
		}
		if last >= first && last-first < 100 {
			eps := make([]int, 0, last-first+1)
			for ep := first; ep <= last; ep++ {
				eps = append(eps, ep)
			}
			guess.Episodes = eps
		}
	}
	if len(guess.Episodes) == 0 {
		if m := episodePattern.FindStringSubmatch(name); m != nil {
			season, _ := strconv.Atoi(m[1])
			ep, _ := strconv.Atoi(m[2])
			if guess.Season == 0 {
				guess.Season = season
			}
			guess.Episodes = []int{ep}
		}
	}
	if guess.Season == 0 {
		if m := seasonPackPattern.FindStringSubmatch(name); m != nil {
			value := m[1]
			if value == "" {
				value = m[2]
			}
			guess.Season, _ = strconv.Atoi(value)
		}
	}
	if guess.Season > 0 {
		guess.Kind = KindTV
	}
	guess.IMDbID = imdbPattern.FindString(name)
	return guess
}
