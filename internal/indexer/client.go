package indexer

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moviepilot/internal/config"
	"moviepilot/internal/media"
	"moviepilot/internal/services"
)

const listLimit = 100

// Client queries one Newznab or Torznab endpoint.
type Client struct {
	name       string
	endpoint   string
	apiKey     string
	protocol   string
	categories []string
	cookie     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New builds a client for one configured indexer.
func New(idx config.Indexer, timeout time.Duration, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(idx.URL), "/")
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "indexer", "new", "indexer url required", nil)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "indexer", "new", "invalid indexer url", err)
	}
	if !strings.HasSuffix(base, "/api") {
		base += "/api"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	protocol := strings.ToLower(strings.TrimSpace(idx.Protocol))
	if protocol == "" {
		protocol = config.ProtocolNewznab
	}
	name := strings.TrimSpace(idx.Name)
	if name == "" {
		name = base
	}
	c := &Client{
		name:       name,
		endpoint:   base,
		apiKey:     strings.TrimSpace(idx.APIKey),
		protocol:   protocol,
		categories: append([]string(nil), idx.Categories...),
		cookie:     idx.Cookie,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name identifies the indexer in inventory and logs.
func (c *Client) Name() string { return c.name }

// Protocol reports newznab or torznab.
func (c *Client) Protocol() string { return c.protocol }

// List returns the latest releases in the configured categories.
func (c *Client) List(ctx context.Context) ([]media.RawCandidate, error) {
	params := url.Values{}
	params.Set("t", "search")
	params.Set("limit", strconv.Itoa(listLimit))
	return c.query(ctx, "list", params)
}

// Search runs the narrowest query the record allows. A non-empty keyword
// replaces the title as the free text query.
func (c *Client) Search(ctx context.Context, rec media.Record, keyword string) ([]media.RawCandidate, error) {
	return c.query(ctx, "search", searchParams(rec, keyword))
}

func searchParams(rec media.Record, keyword string) url.Values {
	params := url.Values{}
	keyword = strings.TrimSpace(keyword)
	switch {
	case keyword == "" && rec.Kind == media.KindMovie && rec.IMDbID != "":
		params.Set("t", "movie")
		params.Set("imdbid", strings.TrimPrefix(strings.ToLower(rec.IMDbID), "tt"))
	case rec.Kind == media.KindTV:
		params.Set("t", "tvsearch")
		params.Set("q", firstNonEmpty(keyword, rec.Title))
		if rec.Season > 0 {
			params.Set("season", strconv.Itoa(rec.Season))
		}
	default:
		params.Set("t", "search")
		q := keyword
		if q == "" {
			q = strings.TrimSpace(rec.Title)
			if rec.Year > 0 {
				q = fmt.Sprintf("%s %d", q, rec.Year)
			}
		}
		params.Set("q", q)
	}
	return params
}

// Check fetches the capabilities document to confirm the endpoint and key.
func (c *Client) Check(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("t", "caps")
	body, err := c.fetch(ctx, "caps", params)
	if err != nil {
		return "", err
	}
	var caps capsBody
	if err := xml.Unmarshal(body, &caps); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "indexer", "caps", "decode caps", err)
	}
	title := strings.TrimSpace(caps.Server.Title)
	if title == "" {
		title = c.name
	}
	if v := strings.TrimSpace(caps.Server.Version); v != "" {
		title += " " + v
	}
	return title, nil
}

// ProbeSite checks the web login of the indexer's site root. Indexers
// without a cookie report LoginUnknown without a request.
func (c *Client) ProbeSite(ctx context.Context) (LoginState, error) {
	if strings.TrimSpace(c.cookie) == "" {
		return LoginUnknown, nil
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return LoginUnknown, services.Wrap(services.ErrConfiguration, "indexer", "probe", "invalid indexer url", err)
	}
	site := u.Scheme + "://" + u.Host + "/"
	return ProbeLogin(ctx, c.httpClient, site, c.cookie)
}

func (c *Client) query(ctx context.Context, operation string, params url.Values) ([]media.RawCandidate, error) {
	if len(c.categories) > 0 {
		params.Set("cat", strings.Join(c.categories, ","))
	}
	params.Set("extended", "1")
	body, err := c.fetch(ctx, operation, params)
	if err != nil {
		return nil, err
	}
	var feed rss
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "indexer", operation,
			fmt.Sprintf("%s: decode feed", c.name), err)
	}
	out := make([]media.RawCandidate, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		raw := it.toRaw(c.name, c.protocol)
		if raw.Title == "" || raw.Link == "" {
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, operation string, params url.Values) ([]byte, error) {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	endpoint := c.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "indexer", operation,
			fmt.Sprintf("%s: execute request (latency=%v)", c.name, latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrConfiguration, "indexer", operation,
			fmt.Sprintf("%s: api key rejected", c.name), nil)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "indexer", operation,
			fmt.Sprintf("%s returned %d (latency=%v)", c.name, resp.StatusCode, latency), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrExternalTool, "indexer", operation,
			fmt.Sprintf("%s returned %d (latency=%v)", c.name, resp.StatusCode, latency), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "indexer", operation, "read response", err)
	}
	if bytes.Contains(body[:min(len(body), 512)], []byte("<error")) {
		var apiErr errorBody
		if xml.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
			marker := services.ErrExternalTool
			if apiErr.Code == "100" || apiErr.Code == "101" || apiErr.Code == "102" {
				marker = services.ErrConfiguration
			}
			return nil, services.Wrap(marker, "indexer", operation,
				fmt.Sprintf("%s: error %s: %s", c.name, apiErr.Code, apiErr.Description), nil)
		}
	}
	return body, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
