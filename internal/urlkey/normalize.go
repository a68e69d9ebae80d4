package urlkey

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// keyFlags canonicalize the host and path of the comparison key. Scheme,
// port, userinfo, query and fragment never reach purell: the key is built
// from host and path only.
const keyFlags = purell.FlagLowercaseScheme | purell.FlagLowercaseHost |
	purell.FlagUppercaseEscapes | purell.FlagRemoveDotSegments |
	purell.FlagRemoveDuplicateSlashes | purell.FlagRemoveWWW |
	purell.FlagRemoveTrailingSlash

const (
	// purell escapes the decoded path, so an encoded slash inside a segment
	// is carried through as a NUL byte and restored afterwards.
	slashStandIn     = "\x00"
	escapedStandIn   = "%00"
	escapedSlash     = "%2F"
	wwwLabel         = "www."
	repeatedWWWLabel = "www.www."
)

var rxScheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// Normalize canonicalizes a URL into a comparison key of the form
// https://host/path. http and https compare equal, the host is lower-cased
// and loses any leading "www.", dot segments and duplicate slashes collapse,
// and trailing slashes are dropped unless the path is root. Input that cannot
// be parsed is returned trimmed but otherwise unchanged.
func Normalize(raw, origin string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	candidate := trimmed
	switch {
	case strings.HasPrefix(candidate, "//"):
		// Protocol-relative: "//cdn.x.com/a" names a host, not a path on origin.
		candidate = "https:" + candidate
	case strings.HasPrefix(candidate, "/"):
		candidate = strings.TrimSuffix(origin, "/") + candidate
	case !rxScheme.MatchString(candidate):
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return trimmed
	}
	host := keyHost(parsed.Hostname())
	if strings.TrimPrefix(strings.ToLower(host), wwwLabel) == "" {
		return trimmed
	}
	path, protected, ok := keyPath(parsed.EscapedPath())
	if !ok {
		return trimmed
	}

	key := &url.URL{Scheme: "https", Host: host, Path: path}
	normalized := purell.NormalizeURL(key, keyFlags)
	if key.Path == "" {
		normalized += "/"
	}
	if protected {
		normalized = strings.ReplaceAll(normalized, escapedStandIn, escapedSlash)
	}
	return normalized
}

// keyHost collapses repeated "www." labels down to one, which purell then
// drops, and brackets IPv6 literals.
func keyHost(host string) string {
	for strings.HasPrefix(strings.ToLower(host), repeatedWWWLabel) {
		host = host[len(wwwLabel):]
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// keyPath decodes an escaped path segment by segment. Slashes that were
// encoded inside a segment are swapped for slashStandIn, unless the path
// already holds a NUL, in which case they decode like any other escape.
func keyPath(escaped string) (path string, protected bool, ok bool) {
	segments := strings.Split(escaped, "/")
	for i, seg := range segments {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return "", false, false
		}
		segments[i] = decoded
	}
	path = strings.Join(segments, "/")
	if strings.Contains(path, slashStandIn) {
		decoded, err := url.PathUnescape(escaped)
		return decoded, false, err == nil
	}
	for i, seg := range segments {
		if strings.Contains(seg, "/") {
			segments[i] = strings.ReplaceAll(seg, "/", slashStandIn)
			protected = true
		}
	}
	if !protected {
		return path, false, true
	}
	return strings.Join(segments, "/"), true, true
}
