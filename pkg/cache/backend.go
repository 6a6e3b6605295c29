package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested key does not exist in the backend.
var ErrNotFound = errors.New("key not found")

// Backend is the key/value contract the cache layer needs from its storage:
// TTL-bearing byte values plus a ranked bounded set. The Redis implementation
// is the production one; the in-memory implementation serves development and
// tests.
type Backend interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Keys returns all keys matching a glob-style pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// ZAdd inserts or updates a member of a ranked set with the given score.
	ZAdd(ctx context.Context, set string, score float64, member string) error

	// ZCard returns the cardinality of a ranked set.
	ZCard(ctx context.Context, set string) (int64, error)

	// ZTopN returns up to n members ordered by descending score.
	ZTopN(ctx context.Context, set string, n int64) ([]string, error)

	// ZTrimToTop removes all but the n highest-scored members, returning
	// the number removed.
	ZTrimToTop(ctx context.Context, set string, n int64) (int64, error)

	// ZRemoveBelowScore removes members with score <= max, returning the
	// number removed.
	ZRemoveBelowScore(ctx context.Context, set string, max float64) (int64, error)
}
