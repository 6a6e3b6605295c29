package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_cache_hits_total",
			Help: "Total number of conversion cache hits",
		},
		[]string{"layer"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docconv_cache_misses_total",
			Help: "Total number of conversion cache misses",
		},
	)

	// CacheWrittenBytes tracks payload bytes written to the cache
	CacheWrittenBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docconv_cache_written_bytes_total",
			Help: "Total bytes of conversion results written to the cache",
		},
	)

	// CacheErrors tracks backend operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_cache_errors_total",
			Help: "Total number of cache backend operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "stats", "popularity"
	)

	// CacheEvictions tracks maintenance evictions by reason
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_cache_evictions_total",
			Help: "Total number of cache entries evicted by maintenance",
		},
		[]string{"reason"}, // "stale", "missing_stats", "orphan_stats"
	)
)
