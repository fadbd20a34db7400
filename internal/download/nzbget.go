package download

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golift.io/nzbget"

	"moviepilot/internal/config"
	"moviepilot/internal/matching"
	"moviepilot/internal/services"
	"moviepilot/internal/textutil"
)

// NZBGet appends releases to an NZBGet queue by URL.
type NZBGet struct {
	api      *nzbget.NZBGet
	category string
}

// NewNZBGet builds a client from the [downloader] section.
func NewNZBGet(cfg config.Downloader, timeout time.Duration) *NZBGet {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NZBGet{
		api: nzbget.New(&nzbget.Config{
			URL:    cfg.URL,
			User:   cfg.User,
			Pass:   cfg.Pass,
			Client: &http.Client{Timeout: timeout},
		}),
		category: cfg.Category,
	}
}

// Name identifies the client in logs.
func (n *NZBGet) Name() string { return config.DownloaderNZBGet }

// Add appends the release unless a queue entry with the same name exists.
func (n *NZBGet) Add(ctx context.Context, cand matching.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	link := strings.TrimSpace(cand.Raw.Link)
	if link == "" {
		return services.Wrap(services.ErrValidation, "download", "nzbget append", "release has no link", nil)
	}
	name := nzbName(cand)

	groups, err := n.api.ListGroups()
	if err != nil {
		return services.Wrap(services.ErrTransient, "download", "nzbget list groups", "queue unavailable", err)
	}
	for _, group := range groups {
		if strings.EqualFold(strings.TrimSuffix(group.NZBName, ".nzb"), strings.TrimSuffix(name, ".nzb")) {
			return nil
		}
	}

	id, err := n.api.Append(&nzbget.AppendInput{
		Filename: name,
		Content:  link,
		Category: n.category,
		DupeMode: "SCORE",
		Parameters: []*nzbget.Parameter{
			{Name: "moviepilot_tmdb", Value: strconv.FormatInt(cand.Media.TMDBID, 10)},
			{Name: "moviepilot_kind", Value: cand.Media.Kind.String()},
		},
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "download", "nzbget append", "append failed", err)
	}
	if id <= 0 {
		return services.Wrap(services.ErrExternalTool, "download", "nzbget append",
			fmt.Sprintf("nzbget rejected %s", name), nil)
	}
	return nil
}

func nzbName(cand matching.Candidate) string {
	name := textutil.SanitizeFileName(cand.Raw.Title)
	if name == "" {
		name = "release-" + strconv.FormatInt(cand.Media.TMDBID, 10)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".nzb") {
		name += ".nzb"
	}
	return name
}

// Ping lists the queue to confirm NZBGet is reachable and returns its length.
func (n *NZBGet) Ping(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	groups, err := n.api.ListGroups()
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "download", "nzbget ping", "queue unavailable", err)
	}
	return len(groups), nil
}
