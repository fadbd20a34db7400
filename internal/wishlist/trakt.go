package wishlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jacklaaa89/trakt"
	"github.com/jacklaaa89/trakt/sync"

	"moviepilot/internal/media"
	"moviepilot/internal/services"
)

// TraktLister reads the authenticated user's watchlist.
type TraktLister struct {
	tokenPath string
}

// NewTraktLister configures the Trakt client. The client id is global to the
// trakt package, so a process holds one lister.
func NewTraktLister(clientID, tokenPath string, timeout time.Duration) (*TraktLister, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "wishlist", "trakt", "trakt.client_id is required", nil)
	}
	if strings.TrimSpace(tokenPath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "wishlist", "trakt", "trakt.token_file is required", nil)
	}
	if timeout <= 0 {
		timeout = 80 * time.Second
	}
	trakt.Key = clientID
	trakt.WithConfig(&trakt.BackendConfig{
		MaxNetworkRetries: 3,
		HTTPClient:        &http.Client{Timeout: timeout},
	})
	return &TraktLister{tokenPath: tokenPath}, nil
}

// Watchlist returns movie and show entries. The token file is read on every
// call so an externally refreshed token is picked up.
func (l *TraktLister) Watchlist(ctx context.Context) ([]Entry, error) {
	token, err := loadToken(l.tokenPath)
	if err != nil {
		return nil, err
	}
	params := trakt.ListParams{OAuth: token.AccessToken}

	var entries []Entry
	movies := sync.WatchList(&trakt.ListWatchListParams{ListParams: params, Type: "movie"})
	for movies.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, err := movies.Entry()
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "wishlist", "trakt", "read movie entry", err)
		}
		if item.Movie == nil {
			continue
		}
		entries = append(entries, Entry{
			Kind:   media.KindMovie,
			Title:  item.Movie.Title,
			Year:   int(item.Movie.Year),
			IMDbID: string(item.Movie.IMDB),
		})
	}
	if err := movies.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "wishlist", "trakt", "list movie watchlist", err)
	}

	shows := sync.WatchList(&trakt.ListWatchListParams{ListParams: params, Type: "show"})
	for shows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, err := shows.Entry()
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "wishlist", "trakt", "read show entry", err)
		}
		if item.Show == nil {
			continue
		}
		entries = append(entries, Entry{
			Kind:   media.KindTV,
			Title:  item.Show.Title,
			Year:   int(item.Show.Year),
			IMDbID: string(item.Show.IMDB),
		})
	}
	if err := shows.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "wishlist", "trakt", "list show watchlist", err)
	}
	return entries, nil
}

func loadToken(path string) (*trakt.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "wishlist", "trakt",
			fmt.Sprintf("read token file %s", path), err)
	}
	var token trakt.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "wishlist", "trakt", "decode token file", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "wishlist", "trakt", "token file has no access token", nil)
	}
	return &token, nil
}
