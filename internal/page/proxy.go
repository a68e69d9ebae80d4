package page

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const proxyHealthKeyPrefix = "linkmark:proxy:health:"

// ProxyPool hands out outbound proxies round-robin, skipping any that are
// cooling down after a failure. Health is tracked in Redis when available.
type ProxyPool struct {
	proxies  []*url.URL
	counter  atomic.Uint64
	rdb      *redis.Client
	cooldown time.Duration
	logger   *slog.Logger
}

// LoadProxyPool reads one proxy URL per line, ignoring blanks and # comments.
// An empty path returns a nil pool.
func LoadProxyPool(path string, rdb *redis.Client, cooldownSecs int, logger *slog.Logger) (*ProxyPool, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening proxy file %s: %w", path, err)
	}
	defer f.Close()

	var proxies []*url.URL
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := url.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url %q: %w", line, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q: missing scheme or host", line)
		}
		proxies = append(proxies, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading proxy file: %w", err)
	}
	if len(proxies) == 0 {
		return nil, fmt.Errorf("proxy file %s contains no proxy urls", path)
	}

	return &ProxyPool{
		proxies:  proxies,
		rdb:      rdb,
		cooldown: time.Duration(cooldownSecs) * time.Second,
		logger:   logger,
	}, nil
}

// Next returns the next healthy proxy, or nil when every proxy is cooling
// down and the request should go direct.
func (p *ProxyPool) Next(ctx context.Context) *url.URL {
	n := uint64(len(p.proxies))
	start := p.counter.Add(1) - 1
	for i := range n {
		proxy := p.proxies[(start+i)%n]
		if p.rdb == nil {
			return proxy
		}
		exists, err := p.rdb.Exists(ctx, proxyHealthKeyPrefix+proxy.Host).Result()
		if err != nil {
			p.logger.WarnContext(ctx, "redis error checking proxy health, assuming healthy", "proxy", proxy.Redacted(), "error", err)
			return proxy
		}
		if exists == 0 {
			return proxy
		}
	}
	return nil
}

// MarkUnhealthy starts a cooldown for proxy. SetNX keeps concurrent failures
// from extending it.
func (p *ProxyPool) MarkUnhealthy(ctx context.Context, proxy *url.URL) {
	if p.rdb == nil {
		return
	}
	if err := p.rdb.SetNX(ctx, proxyHealthKeyPrefix+proxy.Host, "1", p.cooldown).Err(); err != nil {
		p.logger.WarnContext(ctx, "failed to mark proxy unhealthy", "proxy", proxy.Redacted(), "error", err)
	}
}

// owns reports whether the dial address addr is one of the pool's proxies.
func (p *ProxyPool) owns(addr string) bool {
	for _, proxy := range p.proxies {
		if strings.EqualFold(proxyAddr(proxy), addr) {
			return true
		}
	}
	return false
}

func proxyAddr(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	switch u.Scheme {
	case "https":
		port = "443"
	case "socks5", "socks5h":
		port = "1080"
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func (p *ProxyPool) Len() int {
	return len(p.proxies)
}
