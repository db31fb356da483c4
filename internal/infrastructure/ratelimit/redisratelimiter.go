package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/happy-observatory/observatory/internal/shared/biztime"
)

const (
	redisKeyPrefix = "ratelimit:"
	scanBatchSize  = 200
)

// RedisRateLimiter is a fixed-window counter shared by every instance pointed
// at the same Redis. Keys expire with their window, so Sweep has nothing to do.
type RedisRateLimiter struct {
	client *redis.Client
	policy Policy
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, policy Policy) (*RedisRateLimiter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &RedisRateLimiter{
		client: client,
		policy: policy,
		now:    biztime.NowUTC,
	}, nil
}

func (l *RedisRateLimiter) Policy() Policy {
	return l.policy
}

func (l *RedisRateLimiter) CheckLimit(ctx context.Context, key string) (Result, error) {
	redisKey := l.getKey(key)
	now := l.now()
	limit := l.policy.MaxRequests

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	count := incr.Val()
	ttl := pttl.Val()

	// First hit of a window, or a counter left without expiry: start the window now.
	if count == 1 || ttl < 0 {
		if err := l.client.PExpire(ctx, redisKey, l.policy.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("failed to set rate limit window: %w", err)
		}
		ttl = l.policy.Window
	}

	result := Result{
		Limit:     limit,
		ResetTime: now.Add(ttl),
	}
	if count <= int64(limit) {
		result.Allowed = true
		result.Remaining = limit - int(count)
	}
	return result, nil
}

func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.getKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete rate limit key: %w", err)
	}
	return nil
}

// Sweep is a no-op: Redis expires window keys on its own.
func (l *RedisRateLimiter) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

func (l *RedisRateLimiter) Stats(ctx context.Context) (*Stats, error) {
	prefix := l.getKey("")
	now := l.now()

	var entries []Entry
	iter := l.client.Scan(ctx, 0, prefix+"*", scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		pipe := l.client.Pipeline()
		gets := make([]*redis.StringCmd, len(batch))
		ttls := make([]*redis.DurationCmd, len(batch))
		for i, k := range batch {
			gets[i] = pipe.Get(ctx, k)
			ttls[i] = pipe.PTTL(ctx, k)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		for i, k := range batch {
			count, err := gets[i].Int()
			if err != nil {
				// expired between SCAN and GET
				continue
			}
			ttl := ttls[i].Val()
			if ttl < 0 {
				ttl = 0
			}
			reset := now.Add(ttl)
			entries = append(entries, Entry{
				Key:         strings.TrimPrefix(k, prefix),
				Count:       count,
				WindowStart: reset.Add(-l.policy.Window),
				ResetTime:   reset,
			})
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := flush(); err != nil {
				return nil, fmt.Errorf("failed to read rate limit keys: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan rate limit keys: %w", err)
	}
	if err := flush(); err != nil {
		return nil, fmt.Errorf("failed to read rate limit keys: %w", err)
	}

	// Redis manages capacity; MaxSize stays zero to signal "unbounded here".
	return buildStats(l.policy, entries), nil
}

func (l *RedisRateLimiter) getKey(identifier string) string {
	return redisKeyPrefix + l.policy.Name + ":" + identifier
}
