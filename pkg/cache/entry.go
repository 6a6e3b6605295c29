package cache

import (
	"encoding/json"
	"time"
)

// Key namespaces. Fingerprints are appended directly.
const (
	resultKeyPrefix      = "docconv:result:"
	statsKeyPrefix       = "docconv:stats:"
	popularitySetKey     = "docconv:popular"
	popularityMetaPrefix = "docconv:popular:meta:"
)

// TTL policy thresholds.
const (
	// LargeInputBytes marks an input as large for TTL and strategy purposes.
	LargeInputBytes = 5 << 20

	// slowProcessingMs marks a conversion as expensive for TTL purposes.
	slowProcessingMs = 10_000
)

// CacheEntry is the stored envelope for a conversion result payload.
type CacheEntry struct {
	// Fingerprint is the content fingerprint the entry is keyed by.
	Fingerprint string `json:"fingerprint"`

	// Payload is the serialized conversion result.
	Payload json.RawMessage `json:"payload"`

	// TTLSeconds is the TTL the entry was stored with.
	TTLSeconds int64 `json:"ttl_seconds"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// ProcessingStats are per-fingerprint counters mutated on every lookup and
// recompute. They drive eviction decisions and analytics only; correctness
// never depends on them.
type ProcessingStats struct {
	// LastProcessed is when the fingerprint was last converted from scratch.
	LastProcessed time.Time `json:"last_processed"`

	// LastAccessed is when the fingerprint was last requested.
	LastAccessed time.Time `json:"last_accessed"`

	// AccessCount counts lookups, hits and misses alike.
	AccessCount int64 `json:"access_count"`

	// ProcessingTimeMs is the duration of the last full conversion.
	ProcessingTimeMs int64 `json:"processing_time_ms"`

	// CacheHit records whether the most recent access was served from cache.
	CacheHit bool `json:"cache_hit"`
}

// CostProfile describes how expensive a result was to produce. It feeds the
// adaptive TTL computation.
type CostProfile struct {
	// InputBytes is the size of the source document.
	InputBytes int

	// ProcessingTimeMs is how long the conversion took.
	ProcessingTimeMs int64
}

// ComputeTTL returns the TTL for a result given its cost profile. Large
// inputs double the base TTL and slow conversions extend it by half; when
// both apply the larger multiplier wins.
func ComputeTTL(base time.Duration, profile CostProfile) time.Duration {
	ttl := base
	if profile.InputBytes > LargeInputBytes {
		if doubled := base * 2; doubled > ttl {
			ttl = doubled
		}
	}
	if profile.ProcessingTimeMs > slowProcessingMs {
		if extended := base + base/2; extended > ttl {
			ttl = extended
		}
	}
	return ttl
}

func resultKey(fingerprint string) string {
	return resultKeyPrefix + fingerprint
}

func statsKey(fingerprint string) string {
	return statsKeyPrefix + fingerprint
}

func popularityMetaKey(fingerprint string) string {
	return popularityMetaPrefix + fingerprint
}
