package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/temoto/robotstxt"
)

const (
	// UserAgent is the robots.txt group linkmark looks up before "*".
	UserAgent = "Linkmark"

	DefaultCrawlDelayMs = 1000
	MinCrawlDelayMs     = 500

	robotsKeyPrefix = "linkmark:robots:"
	robotsCacheTTL  = 1 * time.Hour
	maxRobotsBytes  = 512 * 1024
)

// Checker answers whether a page may be fetched. Any failure to obtain or
// parse robots.txt allows the fetch. The Redis client is optional.
type Checker struct {
	rdb    *redis.Client
	client *http.Client
	logger *slog.Logger
}

func NewChecker(rdb *redis.Client, client *http.Client, logger *slog.Logger) *Checker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Checker{rdb: rdb, client: client, logger: logger}
}

// IsAllowed reports whether rawURL may be fetched and the crawl delay in
// milliseconds requested for its host.
func (c *Checker) IsAllowed(ctx context.Context, rawURL string) (bool, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, DefaultCrawlDelayMs, fmt.Errorf("parsing url: %w", err)
	}

	robotsBody, crawlDelay, err := c.getRobotsText(ctx, u.Scheme, u.Host)
	if err != nil {
		c.logger.Warn("failed to get robots.txt, allowing", "host", u.Host, "error", err)
		return true, DefaultCrawlDelayMs, nil
	}
	if robotsBody == "" {
		return true, crawlDelay, nil
	}

	data, err := robotstxt.FromString(robotsBody)
	if err != nil {
		c.logger.Warn("failed to parse robots.txt, allowing", "host", u.Host, "error", err)
		return true, crawlDelay, nil
	}

	return findGroup(data).Test(u.RequestURI()), crawlDelay, nil
}

func findGroup(data *robotstxt.RobotsData) *robotstxt.Group {
	if group := data.FindGroup(UserAgent); group != nil {
		return group
	}
	return data.FindGroup("*")
}

func (c *Checker) getRobotsText(ctx context.Context, scheme, host string) (string, int, error) {
	key := robotsKeyPrefix + host

	if c.rdb != nil {
		cached, err := c.rdb.HGetAll(ctx, key).Result()
		switch {
		case err == nil && len(cached) > 0:
			delay, convErr := strconv.Atoi(cached["delay"])
			if convErr != nil {
				delay = DefaultCrawlDelayMs
			}
			return cached["body"], delay, nil
		case err != nil && strings.HasPrefix(err.Error(), "WRONGTYPE"):
			// Left behind by an older cache format; drop it and refetch.
			_ = c.rdb.Del(ctx, key).Err()
		case err != nil && !errors.Is(err, redis.Nil):
			return "", DefaultCrawlDelayMs, fmt.Errorf("redis get robots: %w", err)
		}
	}

	if scheme != "http" {
		scheme = "https"
	}
	robotsURL := scheme + "://" + host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return "", DefaultCrawlDelayMs, fmt.Errorf("creating robots request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.cacheRobotsHash(ctx, key, "", DefaultCrawlDelayMs)
		return "", DefaultCrawlDelayMs, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.cacheRobotsHash(ctx, key, "", DefaultCrawlDelayMs)
		return "", DefaultCrawlDelayMs, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return "", DefaultCrawlDelayMs, fmt.Errorf("reading robots.txt: %w", err)
	}

	robotsBody := string(body)
	crawlDelay := extractCrawlDelay(robotsBody)
	c.cacheRobotsHash(ctx, key, robotsBody, crawlDelay)

	return robotsBody, crawlDelay, nil
}

func (c *Checker) cacheRobotsHash(ctx context.Context, key, body string, delay int) {
	if c.rdb == nil {
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, "body", body, "delay", strconv.Itoa(delay))
	pipe.Expire(ctx, key, robotsCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Debug("failed to cache robots.txt", "key", key, "error", err)
	}
}

func extractCrawlDelay(robotsBody string) int {
	data, err := robotstxt.FromString(robotsBody)
	if err != nil {
		return DefaultCrawlDelayMs
	}

	group := findGroup(data)
	if group == nil || group.CrawlDelay <= 0 {
		return DefaultCrawlDelayMs
	}

	return max(int(group.CrawlDelay.Milliseconds()), MinCrawlDelayMs)
}
