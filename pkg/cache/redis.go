package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time check that RedisBackend implements Backend.
var _ Backend = (*RedisBackend)(nil)

// RedisBackend implements Backend on a Redis client.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a Redis-backed Backend.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisBackend{client: client}
}

// Get returns the value for key, or ErrNotFound.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set stores value under key with the given TTL.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the given keys.
func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Keys returns all keys matching pattern, using SCAN to avoid blocking the
// server on large keyspaces.
func (b *RedisBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

// ZAdd inserts or updates a ranked-set member.
func (b *RedisBackend) ZAdd(ctx context.Context, set string, score float64, member string) error {
	if err := b.client.ZAdd(ctx, set, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}
	return nil
}

// ZCard returns the cardinality of a ranked set.
func (b *RedisBackend) ZCard(ctx context.Context, set string) (int64, error) {
	n, err := b.client.ZCard(ctx, set).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcard: %w", err)
	}
	return n, nil
}

// ZTopN returns up to n members ordered by descending score.
func (b *RedisBackend) ZTopN(ctx context.Context, set string, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	members, err := b.client.ZRevRange(ctx, set, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange: %w", err)
	}
	return members, nil
}

// ZTrimToTop removes all but the n highest-scored members.
func (b *RedisBackend) ZTrimToTop(ctx context.Context, set string, n int64) (int64, error) {
	removed, err := b.client.ZRemRangeByRank(ctx, set, 0, -(n + 1)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zremrangebyrank: %w", err)
	}
	return removed, nil
}

// ZRemoveBelowScore removes members with score <= max.
func (b *RedisBackend) ZRemoveBelowScore(ctx context.Context, set string, max float64) (int64, error) {
	maxStr := strconv.FormatFloat(max, 'f', -1, 64)
	removed, err := b.client.ZRemRangeByScore(ctx, set, "-inf", maxStr).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zremrangebyscore: %w", err)
	}
	return removed, nil
}
