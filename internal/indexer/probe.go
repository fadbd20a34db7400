package indexer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"moviepilot/internal/services"
)

// LoginState is the outcome of a site probe.
type LoginState int

const (
	LoginUnknown LoginState = iota
	LoggedIn
	LoggedOut
)

func (s LoginState) String() string {
	switch s {
	case LoggedIn:
		return "logged in"
	case LoggedOut:
		return "logged out"
	default:
		return "unknown"
	}
}

// ProbeLogin fetches pageURL with the given cookie and inspects the markup.
// A password field means the site served its login form; a logout link or
// user panel means the session is live.
func ProbeLogin(ctx context.Context, client *http.Client, pageURL, cookie string) (LoginState, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return LoginUnknown, services.Wrap(services.ErrValidation, "indexer", "probe", "invalid url", err)
	}
	if cookie = strings.TrimSpace(cookie); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp, err := client.Do(req)
	if err != nil {
		return LoginUnknown, services.Wrap(services.ErrTransient, "indexer", "probe", "fetch page", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return LoginUnknown, services.Wrap(services.ErrExternalTool, "indexer", "probe",
			fmt.Sprintf("site returned %d", resp.StatusCode), nil)
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return LoginUnknown, services.Wrap(services.ErrExternalTool, "indexer", "probe", "parse page", err)
	}
	return classify(doc), nil
}

func classify(doc *html.Node) LoginState {
	var password, session bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "input":
				if strings.EqualFold(attrValue(n, "type"), "password") {
					password = true
				}
			case "a", "form":
				target := strings.ToLower(attrValue(n, "href") + " " + attrValue(n, "action"))
				if strings.Contains(target, "logout") || strings.Contains(target, "usercp") {
					session = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	switch {
	case password:
		return LoggedOut
	case session:
		return LoggedIn
	default:
		return LoginUnknown
	}
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
