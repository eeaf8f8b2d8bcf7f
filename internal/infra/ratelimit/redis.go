package ratelimit

import (
	"context"
	"errors"
	"time"

	"riyald/internal/domain"

	"github.com/redis/go-redis/v9"
)

// defaultKeyPrefix namespaces limiter counters so several deployments can
// share one redis without colliding on beneficiary keys.
const defaultKeyPrefix = "riyald:rl:"

type RedisLimiterConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Now       func() time.Time
}

type redisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// claimWindowScript counts a request against the fixed window but never
// increments past the limit, so a rejected flood cannot grow the counter
// without bound. Returns {count, ttl_ms, allowed}.
var claimWindowScript = redis.NewScript(`
local limit = tonumber(ARGV[2])
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= limit then
  return {count, redis.call("PTTL", KEYS[1]), 0}
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1]), 1}
`)

// NewRedisLimiter builds the shared fixed-window limiter used when several
// daemon replicas sit behind one load balancer.
func NewRedisLimiter(cfg RedisLimiterConfig) (domain.RateLimiter, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &redisLimiter{client: client, prefix: prefix, now: now}, nil
}

func (r *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}
	result, err := claimWindowScript.Run(ctx, r.client, []string{r.prefix + key}, windowMillis, limit).Result()
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	values, ok := result.([]any)
	if !ok || len(values) != 3 {
		return domain.RateLimitDecision{}, errors.New("unexpected rate limit script reply")
	}
	count, ok := values[0].(int64)
	if !ok {
		return domain.RateLimitDecision{}, errors.New("invalid rate limit counter reply")
	}
	ttlMillis, _ := values[1].(int64)
	allowed, _ := values[2].(int64)

	resetAt := r.now()
	if ttlMillis > 0 {
		resetAt = resetAt.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   allowed == 1,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
