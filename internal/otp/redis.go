package otp

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries as Redis hashes with native TTL, so Sweep
// is a no-op and abandoned codes vanish on their own.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "otp:"}
}

func (s *RedisStore) key(email string) string { return s.prefix + email }

func (s *RedisStore) Put(ctx context.Context, email string, e Entry) error {
	key := s.key(email)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"code", e.Code,
		"expires_at", e.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"attempts", e.Attempts,
	)
	pipe.ExpireAt(ctx, key, e.ExpiresAt)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, email string) (*Entry, error) {
	fields, err := s.client.HGetAll(ctx, s.key(email)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, err
	}
	attempts, _ := strconv.Atoi(fields["attempts"])
	return &Entry{Code: fields["code"], ExpiresAt: expiresAt, Attempts: attempts}, nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	return s.client.Del(ctx, s.key(email)).Err()
}

func (s *RedisStore) BumpAttempts(ctx context.Context, email string) error {
	return s.client.HIncrBy(ctx, s.key(email), "attempts", 1).Err()
}

// Sweep relies on key expiry; nothing to do.
func (s *RedisStore) Sweep(context.Context, time.Time) int { return 0 }
