package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateKeyPrefix = KeyPrefix + "fetch:"

var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. '-' .. math.random(1000000))
    redis.call('EXPIRE', key, math.ceil(window / 1000))
    return 1
end
return 0
`)

// HostLimiter spaces out page fetches to the same host across every linkmark
// process sharing one Redis.
type HostLimiter struct {
	client *redis.Client
}

func NewHostLimiter(client *redis.Client) *HostLimiter {
	return &HostLimiter{client: client}
}

// Allow reports whether one more fetch to host fits in a sliding window of
// windowMs milliseconds holding at most limit fetches.
func (r *HostLimiter) Allow(ctx context.Context, host string, windowMs, limit int) (bool, error) {
	key := rateKeyPrefix + host
	now := time.Now().UnixMilli()

	result, err := slidingWindowScript.Run(ctx, r.client, []string{key}, now, windowMs, limit).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}

	return result == 1, nil
}

// WaitForAllow blocks until a fetch to host is allowed, one per delayMs.
func (r *HostLimiter) WaitForAllow(ctx context.Context, host string, delayMs int) error {
	if delayMs <= 0 {
		return nil
	}
	for {
		allowed, err := r.Allow(ctx, host, delayMs, 1)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		jitter := time.Duration(float64(delayMs)*0.5*rand.Float64()) * time.Millisecond
		wait := time.Duration(delayMs)*time.Millisecond/2 + jitter

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
