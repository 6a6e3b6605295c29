package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// StoreConfig holds store configuration.
type StoreConfig struct {
	// BaseTTL is the TTL for a cheap, small result. The adaptive policy
	// scales it up for expensive results (see ComputeTTL).
	BaseTTL time.Duration

	// FrontCacheSize is the capacity of the in-process front cache.
	// Zero disables it.
	FrontCacheSize int

	// FrontCacheTTL bounds how long a front-cache entry may be served
	// without consulting the backend.
	FrontCacheTTL time.Duration

	// StatsTTL is the TTL for per-fingerprint processing stats.
	StatsTTL time.Duration
}

// DefaultStoreConfig returns a safe default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		BaseTTL:        time.Hour,
		FrontCacheSize: 256,
		FrontCacheTTL:  5 * time.Minute,
		StatsTTL:       30 * 24 * time.Hour,
	}
}

// Store persists conversion results by fingerprint with adaptive TTL.
//
// All operations are fail-soft: a backend outage is logged and surfaces as
// a miss (Get) or a no-op (Set), never as an error to the caller. Cache
// unavailability must only ever cost CPU, not correctness.
type Store struct {
	backend Backend
	front   *expirable.LRU[string, []byte]
	config  StoreConfig
	logger  zerolog.Logger
}

// NewStore creates a store on the given backend.
func NewStore(backend Backend, config StoreConfig, logger zerolog.Logger) *Store {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	if config.BaseTTL <= 0 {
		config.BaseTTL = DefaultStoreConfig().BaseTTL
	}
	if config.StatsTTL <= 0 {
		config.StatsTTL = DefaultStoreConfig().StatsTTL
	}

	s := &Store{
		backend: backend,
		config:  config,
		logger:  logger,
	}
	if config.FrontCacheSize > 0 {
		s.front = expirable.NewLRU[string, []byte](config.FrontCacheSize, nil, config.FrontCacheTTL)
	}
	return s
}

// BaseTTL returns the configured base TTL.
func (s *Store) BaseTTL() time.Duration {
	return s.config.BaseTTL
}

// Get retrieves a cached result payload by fingerprint. The second return
// is false on miss and on any backend error.
func (s *Store) Get(ctx context.Context, fingerprint string) ([]byte, bool) {
	if s.front != nil {
		if payload, ok := s.front.Get(fingerprint); ok {
			CacheHits.WithLabelValues("memory").Inc()
			return payload, true
		}
	}

	data, err := s.backend.Get(ctx, resultKey(fingerprint))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			CacheMisses.Inc()
			return nil, false
		}
		CacheErrors.WithLabelValues("get").Inc()
		s.logger.Warn().
			Err(err).
			Str("fingerprint", short(fingerprint)).
			Msg("Cache get failed, treating as miss")
		return nil, false
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		s.logger.Warn().
			Err(err).
			Str("fingerprint", short(fingerprint)).
			Msg("Invalid cache entry, treating as miss")
		return nil, false
	}

	CacheHits.WithLabelValues("redis").Inc()
	if s.front != nil {
		s.front.Add(fingerprint, []byte(entry.Payload))
	}
	return entry.Payload, true
}

// Set stores a result payload with a TTL derived from its cost profile.
// Backend errors are logged and swallowed.
func (s *Store) Set(ctx context.Context, fingerprint string, payload []byte, profile CostProfile) {
	ttl := ComputeTTL(s.config.BaseTTL, profile)

	entry := CacheEntry{
		Fingerprint: fingerprint,
		Payload:     payload,
		TTLSeconds:  int64(ttl.Seconds()),
		CachedAt:    time.Now(),
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		s.logger.Warn().
			Err(err).
			Str("fingerprint", short(fingerprint)).
			Msg("Cache entry marshal failed, skipping store")
		return
	}

	if err := s.backend.Set(ctx, resultKey(fingerprint), data, ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		s.logger.Warn().
			Err(err).
			Str("fingerprint", short(fingerprint)).
			Msg("Cache set failed, result not cached")
		return
	}

	CacheWrittenBytes.Add(float64(len(data)))
	if s.front != nil {
		s.front.Add(fingerprint, payload)
	}

	s.logger.Debug().
		Str("fingerprint", short(fingerprint)).
		Dur("ttl", ttl).
		Int("payload_bytes", len(payload)).
		Msg("Cached conversion result")
}

// Delete removes a result and its front-cache copy.
func (s *Store) Delete(ctx context.Context, fingerprint string) error {
	if s.front != nil {
		s.front.Remove(fingerprint)
	}
	if err := s.backend.Delete(ctx, resultKey(fingerprint)); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

// RecordAccess updates per-fingerprint stats after a lookup. Fail-soft.
func (s *Store) RecordAccess(ctx context.Context, fingerprint string, hit bool) {
	stats := s.loadStats(ctx, fingerprint)
	stats.LastAccessed = time.Now()
	stats.AccessCount++
	stats.CacheHit = hit
	s.saveStats(ctx, fingerprint, stats)
}

// RecordProcessed updates per-fingerprint stats after a full conversion.
// Fail-soft.
func (s *Store) RecordProcessed(ctx context.Context, fingerprint string, processingTimeMs int64) {
	stats := s.loadStats(ctx, fingerprint)
	now := time.Now()
	stats.LastProcessed = now
	stats.LastAccessed = now
	stats.AccessCount++
	stats.ProcessingTimeMs = processingTimeMs
	stats.CacheHit = false
	s.saveStats(ctx, fingerprint, stats)
}

// GetStats returns the stats record for a fingerprint, or ErrNotFound.
func (s *Store) GetStats(ctx context.Context, fingerprint string) (*ProcessingStats, error) {
	data, err := s.backend.Get(ctx, statsKey(fingerprint))
	if err != nil {
		return nil, err
	}
	var stats ProcessingStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// EstimatedMemory sums the stored size of all live result entries. Intended
// for the admin stats surface, not the hot path.
func (s *Store) EstimatedMemory(ctx context.Context) int64 {
	keys, err := s.backend.Keys(ctx, resultKeyPrefix+"*")
	if err != nil {
		CacheErrors.WithLabelValues("stats").Inc()
		s.logger.Warn().Err(err).Msg("Cache scan failed during memory estimate")
		return 0
	}
	var total int64
	for _, key := range keys {
		data, err := s.backend.Get(ctx, key)
		if err != nil {
			continue
		}
		total += int64(len(data))
	}
	return total
}

func (s *Store) loadStats(ctx context.Context, fingerprint string) *ProcessingStats {
	stats, err := s.GetStats(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			CacheErrors.WithLabelValues("stats").Inc()
			s.logger.Warn().
				Err(err).
				Str("fingerprint", short(fingerprint)).
				Msg("Stats load failed, starting fresh record")
		}
		return &ProcessingStats{}
	}
	return stats
}

func (s *Store) saveStats(ctx context.Context, fingerprint string, stats *ProcessingStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		CacheErrors.WithLabelValues("stats").Inc()
		return
	}
	if err := s.backend.Set(ctx, statsKey(fingerprint), data, s.config.StatsTTL); err != nil {
		CacheErrors.WithLabelValues("stats").Inc()
		s.logger.Warn().
			Err(err).
			Str("fingerprint", short(fingerprint)).
			Msg("Stats save failed")
	}
}

// short truncates a fingerprint for log output.
func short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
