package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

var (
	ErrBaseURLRequired = errors.New("base url required for html not fetched over http")
	ErrDisallowed      = errors.New("fetch disallowed by robots.txt")
)

// RobotsChecker reports whether a URL may be fetched and the crawl delay its
// host asks for.
type RobotsChecker interface {
	IsAllowed(ctx context.Context, rawURL string) (bool, int, error)
}

// HostLimiter spaces out fetches to one host.
type HostLimiter interface {
	WaitForAllow(ctx context.Context, host string, delayMs int) error
}

// Loader turns a CLI or API source into a Page: "-" reads stdin, an http(s)
// URL is fetched, anything else is a file path. Robots and limiter are
// optional.
type Loader struct {
	fetcher     *Fetcher
	robots      RobotsChecker
	limiter     HostLimiter
	hostDelayMs int
	maxBytes    int64
	stdin       io.Reader
	logger      *slog.Logger
}

func NewLoader(fetcher *Fetcher, robots RobotsChecker, limiter HostLimiter, hostDelayMs int, logger *slog.Logger) *Loader {
	return &Loader{
		fetcher:     fetcher,
		robots:      robots,
		limiter:     limiter,
		hostDelayMs: hostDelayMs,
		maxBytes:    fetcher.maxBodyBytes,
		stdin:       os.Stdin,
		logger:      logger,
	}
}

// Load reads source. baseURL is required for stdin and files; for fetched
// pages the final URL after redirects is used instead.
func (l *Loader) Load(ctx context.Context, source, baseURL string) (*Page, error) {
	switch {
	case source == "-":
		if baseURL == "" {
			return nil, ErrBaseURLRequired
		}
		return Parse(io.LimitReader(l.stdin, l.maxBytes), baseURL)
	case IsRemote(source):
		return l.loadRemote(ctx, source)
	default:
		if baseURL == "" {
			return nil, ErrBaseURLRequired
		}
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", source, err)
		}
		defer f.Close()
		return Parse(io.LimitReader(f, l.maxBytes), baseURL)
	}
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (l *Loader) loadRemote(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	logger := l.logger.With("url", rawURL)

	delay := l.hostDelayMs
	if l.robots != nil {
		allowed, crawlDelay, err := l.robots.IsAllowed(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("checking robots.txt: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
		delay = max(delay, crawlDelay)
	}

	if l.limiter != nil {
		if err := l.limiter.WaitForAllow(ctx, u.Hostname(), delay); err != nil {
			return nil, fmt.Errorf("waiting for %s: %w", u.Hostname(), err)
		}
	}

	body, finalURL, err := l.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	logger.Info("fetched page", "final_url", finalURL, "bytes", len(body))

	return Parse(bytes.NewReader(body), finalURL)
}
