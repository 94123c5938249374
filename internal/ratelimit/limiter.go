package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "realestate:rl:"

var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local current = redis.call("INCR", key)
if current == 1 then
  redis.call("PEXPIRE", key, window_ms)
end

local ttl = redis.call("PTTL", key)
if ttl < 0 then
  ttl = window_ms
end

if current > limit then
  return {0, ttl}
end
return {1, ttl}
`)

// Limiter is a fixed-window counter shared by every API replica.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func New(client *redis.Client, limit int, window time.Duration, prefix string) *Limiter {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
	}
}

// Allow counts one hit against key and reports whether it is within the
// limit, plus how long until the window resets.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	windowMS := int64(l.window / time.Millisecond)
	if windowMS <= 0 {
		return false, 0, fmt.Errorf("invalid rate limit window %s", l.window)
	}

	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, l.limit, windowMS).Result()
	if err != nil {
		return false, 0, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, fmt.Errorf("unexpected redis response %v", res)
	}
	allowed, ok := vals[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis response %v", res)
	}
	ttlMS, ok := vals[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis response %v", res)
	}

	retryAfter := time.Duration(ttlMS) * time.Millisecond
	if retryAfter < 0 {
		retryAfter = 0
	}
	return allowed == 1, retryAfter, nil
}
