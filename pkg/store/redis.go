package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps values in Redis under "<prefix>:<origin slug>:<key>".
// Keys are written without a TTL.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedis scopes a Redis client to one origin.
func NewRedis(rdb redis.UniversalClient, prefix, origin string) *RedisStore {
	if prefix == "" {
		prefix = "garage"
	}
	return &RedisStore{rdb: rdb, prefix: prefix + ":" + OriginSlug(origin)}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("store.Ping: %w", err)
	}
	return nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store.Get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("store.Set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("store.Remove %s: %w", key, err)
	}
	return nil
}
