package revocation

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
	redisKeyPrefix = "revoked:"
	scanBatchSize  = 200
)

// RedisStore shares revocations across instances. Each record is a key that
// expires at the token's own expiry, so Sweep is a no-op.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		now:    biztime.NowUTC,
	}
}

func (s *RedisStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return ErrEmptyJTI
	}
	// Already expired: nothing to reject, and SET with a past EXPIREAT would be a no-op anyway.
	if !expiresAt.After(s.now()) {
		if err := s.client.Del(ctx, s.getKey(jti)).Err(); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.getKey(jti), expiresAt.Unix(), 0)
	pipe.ExpireAt(ctx, s.getKey(jti), expiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.getKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	var records []Record

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		pipe := s.client.Pipeline()
		gets := make([]*redis.StringCmd, len(batch))
		for i, k := range batch {
			gets[i] = pipe.Get(ctx, k)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		for i, k := range batch {
			expiresAt, err := gets[i].Int64()
			if err != nil {
				// expired between SCAN and GET
				continue
			}
			records = append(records, Record{
				JTI:       strings.TrimPrefix(k, redisKeyPrefix),
				ExpiresAt: time.Unix(expiresAt, 0).UTC(),
			})
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := flush(); err != nil {
				return nil, fmt.Errorf("failed to read revoked tokens: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan revoked tokens: %w", err)
	}
	if err := flush(); err != nil {
		return nil, fmt.Errorf("failed to read revoked tokens: %w", err)
	}

	return buildStats(records, s.now()), nil
}

// Sweep is a no-op: Redis removes records when their token expires.
func (s *RedisStore) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore) getKey(jti string) string {
	return redisKeyPrefix + jti
}
