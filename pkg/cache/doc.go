// Package cache provides conversion result caching with a Redis backend.
//
// The store persists conversion results by content fingerprint with the
// following features:
//
// - Adaptive TTL (expensive-to-produce results survive longer)
// - Fail-soft reads and writes (a backend outage degrades to recompute)
// - In-process front cache for hot fingerprints
// - Per-fingerprint processing stats for analytics and eviction
// - Ranked popularity set for cache-warming candidates
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	backend := cache.NewRedisBackend(redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	}))
//
//	store := cache.NewStore(backend, cache.StoreConfig{
//		BaseTTL: time.Hour,
//	}, logging.NewLogger("cache"))
//
//	// Fail-soft lookup: ok is false on miss AND on backend errors.
//	payload, ok := store.Get(ctx, fp)
//	if !ok {
//		// recompute
//	}
//
//	store.Set(ctx, fp, payload, cache.CostProfile{
//		InputBytes:       len(input),
//		ProcessingTimeMs: elapsed.Milliseconds(),
//	})
//
// # Maintenance
//
// The Maintainer sweeps the store on an external schedule: entries not
// accessed for a week with fewer than three accesses are evicted, entries
// without stats are treated as stale, and orphaned stats are removed. The
// PopularityTracker is pruned by age at the same time.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - docconv_cache_hits_total{layer} - Cache hits by layer (memory, redis)
//   - docconv_cache_misses_total - Cache misses
//   - docconv_cache_written_bytes_total - Payload bytes written
//   - docconv_cache_errors_total{operation} - Backend operation errors
//   - docconv_cache_evictions_total{reason} - Maintenance evictions
package cache
