package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dnsTTL       = 5 * time.Minute
	dnsKeyPrefix = KeyPrefix + "dns:"
)

// ErrBlockedHost is returned when a host resolves to a loopback, private or
// link-local address and private targets are not allowed.
var ErrBlockedHost = errors.New("host resolves to a non-public address")

// DNSCache resolves hosts for the page fetcher and refuses non-public
// targets. The Redis client is optional; without it every lookup goes to the
// resolver.
type DNSCache struct {
	client       *redis.Client
	allowPrivate bool
	resolver     *net.Resolver
}

func NewDNSCache(client *redis.Client, allowPrivate bool) *DNSCache {
	return &DNSCache{client: client, allowPrivate: allowPrivate, resolver: net.DefaultResolver}
}

func (d *DNSCache) LookupHost(ctx context.Context, host string) (string, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return d.check(host, addr.String())
	}

	key := dnsKeyPrefix + host
	if d.client != nil {
		cached, err := d.client.Get(ctx, key).Result()
		if err == nil {
			return d.check(host, cached)
		}
		if !errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("redis get dns: %w", err)
		}
	}

	addrs, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("dns lookup %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for %s", host)
	}

	ip, err := d.check(host, addrs[0])
	if err != nil {
		return "", err
	}

	if d.client != nil {
		// A failed cache write still leaves a usable address.
		_ = d.client.Set(ctx, key, ip, dnsTTL).Err()
	}
	return ip, nil
}

func (d *DNSCache) check(host, ip string) (string, error) {
	if !d.allowPrivate && isPrivateIP(ip) {
		return "", fmt.Errorf("%w: %s resolved to %s", ErrBlockedHost, host, ip)
	}
	return ip, nil
}

// isPrivateIP returns true if the IP is loopback, private, link-local, or otherwise not a public address.
func isPrivateIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return true // reject unparseable
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsUnspecified()
}
