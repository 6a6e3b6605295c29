package cache

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

// Compile-time check that MemoryBackend implements Backend.
var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend is an in-process Backend with the same TTL and ranked-set
// semantics as the Redis one. Used in development and unit tests.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]memoryValue
	sets   map[string]map[string]float64

	// now is replaceable so tests can control expiry.
	now func() time.Time
}

type memoryValue struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: make(map[string]memoryValue),
		sets:   make(map[string]map[string]float64),
		now:    time.Now,
	}
}

func (b *MemoryBackend) expired(v memoryValue) bool {
	return !v.expiresAt.IsZero() && b.now().After(v.expiresAt)
}

// Get returns the value for key, or ErrNotFound.
func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	if b.expired(v) {
		delete(b.values, key)
		return nil, ErrNotFound
	}
	out := make([]byte, len(v.data))
	copy(out, v.data)
	return out, nil
}

// Set stores value under key with the given TTL.
func (b *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)

	v := memoryValue{data: stored}
	if ttl > 0 {
		v.expiresAt = b.now().Add(ttl)
	}
	b.values[key] = v
	return nil
}

// Delete removes the given keys.
func (b *MemoryBackend) Delete(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range keys {
		delete(b.values, key)
	}
	return nil
}

// Keys returns all live keys matching a glob-style pattern.
func (b *MemoryBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var keys []string
	for key, v := range b.values {
		if b.expired(v) {
			delete(b.values, key)
			continue
		}
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ZAdd inserts or updates a ranked-set member.
func (b *MemoryBackend) ZAdd(ctx context.Context, set string, score float64, member string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sets[set]
	if !ok {
		s = make(map[string]float64)
		b.sets[set] = s
	}
	s[member] = score
	return nil
}

// ZCard returns the cardinality of a ranked set.
func (b *MemoryBackend) ZCard(ctx context.Context, set string) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return int64(len(b.sets[set])), nil
}

// ZTopN returns up to n members ordered by descending score.
func (b *MemoryBackend) ZTopN(ctx context.Context, set string, n int64) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	members := b.sortedDesc(set)
	if int64(len(members)) > n {
		members = members[:n]
	}
	return members, nil
}

// ZTrimToTop removes all but the n highest-scored members.
func (b *MemoryBackend) ZTrimToTop(ctx context.Context, set string, n int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members := b.sortedDesc(set)
	if int64(len(members)) <= n {
		return 0, nil
	}
	var removed int64
	for _, member := range members[n:] {
		delete(b.sets[set], member)
		removed++
	}
	return removed, nil
}

// ZRemoveBelowScore removes members with score <= max.
func (b *MemoryBackend) ZRemoveBelowScore(ctx context.Context, set string, max float64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int64
	for member, score := range b.sets[set] {
		if score <= max {
			delete(b.sets[set], member)
			removed++
		}
	}
	return removed, nil
}

// sortedDesc returns members of a set ordered by descending score, ties
// broken by member for determinism. Callers must hold at least a read lock.
func (b *MemoryBackend) sortedDesc(set string) []string {
	s := b.sets[set]
	members := make([]string, 0, len(s))
	for member := range s {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		if s[members[i]] != s[members[j]] {
			return s[members[i]] > s[members[j]]
		}
		return members[i] < members[j]
	})
	return members
}
