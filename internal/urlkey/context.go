package urlkey

import (
	"fmt"
	"net/url"
	"strings"
)

// PageContext is the location snapshot hrefs are resolved against.
type PageContext struct {
	Origin      string `json:"origin"`
	CurrentPath string `json:"currentPath"`
}

// ContextFromURL derives origin (scheme://host[:port]) and path from a page
// URL. Only absolute http(s) URLs are accepted.
func ContextFromURL(pageURL string) (PageContext, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return PageContext{}, fmt.Errorf("parsing page url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return PageContext{}, fmt.Errorf("page url %q: unsupported scheme %q", pageURL, u.Scheme)
	}
	if u.Host == "" {
		return PageContext{}, fmt.Errorf("page url %q: missing host", pageURL)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return PageContext{
		Origin:      u.Scheme + "://" + strings.ToLower(u.Host),
		CurrentPath: path,
	}, nil
}

// Resolve is Resolve bound to this context.
func (pc PageContext) Resolve(href string, allowExtended bool) (string, error) {
	return Resolve(href, pc.Origin, pc.CurrentPath, allowExtended)
}

// Normalize is Normalize bound to this context's origin.
func (pc PageContext) Normalize(raw string) string {
	return Normalize(raw, pc.Origin)
}
