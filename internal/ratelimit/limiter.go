// Package ratelimit bounds request frequency per identity with a Redis
// sorted-set sliding window. The whole check-and-record runs as one Lua
// script so two concurrent requests can never both slip past the limit.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scriptura-app/scriptura/internal/plan"
)

const keyPrefix = "ratelimit:identity:"

// Window trims, counts, conditionally records, and refreshes the TTL in a
// single atomic step. Returns 1 when admitted, 0 when over the limit.
var windowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	return 0
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window + 30000)
return 1
`)

// Limits holds the per-tier requests-per-window thresholds.
type Limits map[plan.Plan]int

// DefaultLimits are the per-minute admission thresholds per tier.
func DefaultLimits() Limits {
	return Limits{
		plan.Free:     10,
		plan.Standard: 30,
		plan.Plus:     60,
		plan.Premium:  120,
	}
}

// Limiter is a sliding-window admission check keyed by identity.
type Limiter struct {
	rdb    redis.Cmdable
	limits Limits
	window time.Duration
	now    func() time.Time
}

// NewLimiter creates a limiter with a one-minute window.
func NewLimiter(rdb redis.Cmdable, limits Limits) *Limiter {
	return &Limiter{rdb: rdb, limits: limits, window: time.Minute, now: time.Now}
}

// Allow records the request and admits it if the identity is under its
// tier's threshold. Denied requests are not recorded.
func (l *Limiter) Allow(ctx context.Context, identityKey string, tier plan.Plan) (bool, error) {
	limit, ok := l.limits[tier]
	if !ok || limit <= 0 {
		return true, nil
	}

	key := keyPrefix + identityKey
	now := l.now()
	member := fmt.Sprintf("%d", now.UnixNano())

	res, err := windowScript.Run(ctx, l.rdb, []string{key},
		now.UnixMilli(), l.window.Milliseconds(), limit, member).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}

// Usage returns how many requests the identity has made in the current window.
func (l *Limiter) Usage(ctx context.Context, identityKey string) (int, error) {
	key := keyPrefix + identityKey
	now := l.now()
	windowStart := fmt.Sprintf("%d", now.Add(-l.window).UnixMilli())
	nowMs := fmt.Sprintf("%d", now.UnixMilli())

	count, err := l.rdb.ZCount(ctx, key, windowStart, nowMs).Result()
	if err != nil {
		return 0, fmt.Errorf("counting window usage: %w", err)
	}
	return int(count), nil
}
