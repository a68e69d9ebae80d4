package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/theognis1002/linkmark/internal/config"
)

// Resolver maps a host to the IP address to dial.
type Resolver interface {
	LookupHost(ctx context.Context, host string) (string, error)
}

type proxyKey struct{}

// errRedirectRefused marks failures decided by our redirect policy rather
// than the network.
var errRedirectRefused = errors.New("redirect refused")

type Fetcher struct {
	client       *http.Client
	resolver     Resolver
	proxies      *ProxyPool
	userAgent    string
	maxBodyBytes int64
	maxRetries   int
	retryBase    time.Duration
	logger       *slog.Logger
}

// NewFetcher builds a fetcher whose connections go through resolver, so
// redirects to blocked hosts are refused too. proxies may be nil.
func NewFetcher(resolver Resolver, cfg config.FetcherConfig, proxies *ProxyPool, logger *slog.Logger) *Fetcher {
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	transport := &http.Transport{
		// The proxy for a fetch is chosen once and carried on the context
		// so redirects stay on it.
		Proxy: func(req *http.Request) (*url.URL, error) {
			proxy, _ := req.Context().Value(proxyKey{}).(*url.URL)
			return proxy, nil
		},
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if proxies != nil && proxies.owns(addr) {
				return dialer.DialContext(ctx, network, addr)
			}

			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("splitting dial address %s: %w", addr, err)
			}

			ip, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}

			return dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
		},
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: stopped after %d redirects", errRedirectRefused, maxRedirects)
			}
			// Proxied requests never reach our dialer with the target host.
			if req.Context().Value(proxyKey{}) != nil {
				if _, err := resolver.LookupHost(req.Context(), req.URL.Hostname()); err != nil {
					return fmt.Errorf("%w: %w", errRedirectRefused, err)
				}
			}
			return nil
		},
	}

	return &Fetcher{
		client:       client,
		resolver:     resolver,
		proxies:      proxies,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		maxRetries:   cfg.MaxRetries,
		retryBase:    time.Duration(cfg.RetryBaseMs) * time.Millisecond,
		logger:       logger,
	}
}

// Client exposes the guarded client for related requests such as robots.txt.
// Requests made with it go direct.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch downloads rawURL and returns the body and the URL it was finally
// served from after redirects. Any status other than 200 is an error.
// Server errors, 429s and connection failures are retried with backoff.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoffDuration(f.retryBase, attempt-1)
			f.logger.WarnContext(ctx, "retrying fetch", "url", rawURL, "attempt", attempt, "wait", wait, "error", lastErr)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, "", ctx.Err()
			case <-timer.C:
			}
		}

		body, finalURL, proxied, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, finalURL, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, "", err
		}
		if proxied {
			continue
		}
		if !retryable(err) {
			return nil, "", err
		}
	}
	return nil, "", lastErr
}

// fetchOnce makes a single attempt. proxied reports a transport failure
// through a proxy, which is then put on cooldown.
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (body []byte, finalURL string, proxied bool, err error) {
	var proxy *url.URL
	if f.proxies != nil {
		proxy = f.proxies.Next(ctx)
	}
	if proxy != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, "", false, fmt.Errorf("parsing url: %w", err)
		}
		if _, err := f.resolver.LookupHost(ctx, u.Hostname()); err != nil {
			return nil, "", false, err
		}
		ctx = context.WithValue(ctx, proxyKey{}, proxy)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if proxy != nil && ctx.Err() == nil && !errors.Is(err, errRedirectRefused) {
			f.proxies.MarkUnhealthy(ctx, proxy)
			return nil, "", true, fmt.Errorf("fetching %s via %s: %w", rawURL, proxy.Redacted(), err)
		}
		return nil, "", false, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", false, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, "", false, fmt.Errorf("reading response body: %w", err)
	}

	return body, resp.Request.URL.String(), false, nil
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
}
