package indexer

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/spf13/cast"

	"moviepilot/internal/media"
)

// rss is the Newznab/Torznab response body. attr elements live in the
// newznab or torznab namespace; matching on the local name accepts both.
type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []item `xml:"item"`
	} `xml:"channel"`
}

type item struct {
	Title       string    `xml:"title"`
	GUID        string    `xml:"guid"`
	Link        string    `xml:"link"`
	PubDate     string    `xml:"pubDate"`
	Description string    `xml:"description"`
	Size        string    `xml:"size"`
	Enclosure   enclosure `xml:"enclosure"`
	Attrs       []attr    `xml:"attr"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Length string `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type attr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// errorBody is returned by Newznab servers instead of an rss document.
type errorBody struct {
	XMLName     xml.Name `xml:"error"`
	Code        string   `xml:"code,attr"`
	Description string   `xml:"description,attr"`
}

type capsBody struct {
	XMLName xml.Name `xml:"caps"`
	Server  struct {
		Title   string `xml:"title,attr"`
		Version string `xml:"version,attr"`
	} `xml:"server"`
}

func (it item) attr(name string) string {
	for _, a := range it.Attrs {
		if strings.EqualFold(a.Name, name) {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

func (it item) toRaw(source, protocol string) media.RawCandidate {
	link := strings.TrimSpace(it.Enclosure.URL)
	if link == "" {
		link = strings.TrimSpace(it.Link)
	}
	if magnet := it.attr("magneturl"); magnet != "" && link == "" {
		link = magnet
	}

	size := cast.ToInt64(it.attr("size"))
	if size == 0 {
		size = cast.ToInt64(strings.TrimSpace(it.Enclosure.Length))
	}
	if size == 0 {
		size = cast.ToInt64(strings.TrimSpace(it.Size))
	}

	imdb := it.attr("imdbid")
	if imdb == "" {
		imdb = it.attr("imdb")
	}
	imdb = normalizeIMDb(imdb)

	raw := media.RawCandidate{
		Title:       strings.TrimSpace(it.Title),
		Description: strings.TrimSpace(it.Description),
		Link:        link,
		GUID:        strings.TrimSpace(it.GUID),
		IMDbID:      imdb,
		Size:        size,
		Seeders:     cast.ToInt(it.attr("seeders")),
		Source:      source,
		Protocol:    protocol,
	}
	if raw.GUID == "" {
		raw.GUID = link
	}
	if ts, err := time.Parse(time.RFC1123Z, strings.TrimSpace(it.PubDate)); err == nil {
		raw.PublishedAt = ts
	} else if ts, err := time.Parse(time.RFC1123, strings.TrimSpace(it.PubDate)); err == nil {
		raw.PublishedAt = ts
	}
	return raw
}

// normalizeIMDb renders Newznab's bare numeric ids as tt-prefixed, zero
// padded to seven digits.
func normalizeIMDb(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.TrimPrefix(value, "tt")
	if value == "" || strings.Trim(value, "0123456789") != "" {
		return ""
	}
	n := cast.ToInt64(strings.TrimLeft(value, "0"))
	if n == 0 {
		return ""
	}
	digits := cast.ToString(n)
	for len(digits) < 7 {
		digits = "0" + digits
	}
	return "tt" + digits
}
