package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowScript counts a hit and starts the window on the first one. It
// returns the count so far.
const windowScript = `
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return hits
`

// RedisLimiter shares windows across instances. When Redis cannot answer it
// degrades to the local limiter instead of letting everything through.
type RedisLimiter struct {
	client   redis.Scripter
	script   *redis.Script
	prefix   string
	fallback Limiter
}

func NewRedisLimiter(client redis.Scripter, prefix string) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{
		client:   client,
		script:   redis.NewScript(windowScript),
		prefix:   prefix,
		fallback: NewRateLimiter(),
	}
}

func (l *RedisLimiter) Allow(key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	redisKey := key
	if l.prefix != "" {
		redisKey = l.prefix + ":" + key
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	hits, err := l.script.Run(ctx, l.client, []string{redisKey}, max(window.Milliseconds(), 1)).Int64()
	if err != nil {
		return l.fallback.Allow(key, limit, window)
	}
	return hits <= int64(limit)
}
