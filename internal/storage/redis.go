package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "crypto-dash:"

// RedisStore keeps metadata values in Redis, for deployments where several
// dashboard processes share one favorites set.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects and pings Redis.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func valueKey(key string) string   { return redisPrefix + key }
func updatedKey(key string) string { return redisPrefix + key + ":updated_at" }

// UpsertMetadata saves key and its write timestamp atomically.
func (s *RedisStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, valueKey(key), value, 0)
		p.Set(ctx, updatedKey(key), ts, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetMetadata retrieves a value. A missing key returns "" and no error.
func (s *RedisStore) GetMetadata(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, valueKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

// UpdatedAt returns the write timestamp of key, or 0 if absent.
func (s *RedisStore) UpdatedAt(ctx context.Context, key string) (int64, error) {
	v, err := s.rdb.Get(ctx, updatedKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	return strconv.ParseInt(v, 10, 64)
}

// Ping checks Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
