package urlkey

import (
	"errors"
	"net/url"
	"strings"
)

// ErrUnresolvable is returned when an href cannot be turned into an absolute
// http(s) URL under the current resolution policy.
var ErrUnresolvable = errors.New("unresolvable href")

// Resolve turns a raw href into an absolute URL string using the page origin
// and current path. Protocol-relative and bare relative hrefs are only
// resolved when allowExtended is set.
func Resolve(href, origin, currentPath string, allowExtended bool) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", ErrUnresolvable
	}

	switch {
	case hasPrefixFold(href, "http://"), hasPrefixFold(href, "https://"):
		return href, nil
	case strings.HasPrefix(href, "//"):
		if !allowExtended {
			return "", ErrUnresolvable
		}
		return "https:" + href, nil
	case strings.HasPrefix(href, "/"):
		return strings.TrimSuffix(origin, "/") + href, nil
	}

	if !allowExtended {
		return "", ErrUnresolvable
	}
	return resolveRelative(href, origin, currentPath)
}

func resolveRelative(href, origin, currentPath string) (string, error) {
	if currentPath == "" {
		currentPath = "/"
	} else if !strings.HasPrefix(currentPath, "/") {
		currentPath = "/" + currentPath
	}

	base, err := url.Parse(strings.TrimSuffix(origin, "/") + currentPath)
	if err != nil || base.Host == "" {
		return "", ErrUnresolvable
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", ErrUnresolvable
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", ErrUnresolvable
	}
	return resolved.String(), nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
