// Package metrics exposes the Prometheus registry and scrape handler for the
// conversion service. All metrics are defined in their respective packages
// (convert, cache, retry, workerpool) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the conversion
// service. All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Conversion Metrics (pkg/convert):
//   - docconv_convert_requests_total{outcome} (Counter): Requests by outcome (hit, joined, converted, error)
//   - docconv_conversions_total{mode} (Counter): Physical conversions by mode (minimal, full)
//   - docconv_conversion_duration_seconds{mode} (Histogram): Physical conversion duration by mode
//
// Cache Metrics (pkg/cache):
//   - docconv_cache_hits_total{layer} (Counter): Cache hits by layer (memory, redis)
//   - docconv_cache_misses_total (Counter): Cache misses
//   - docconv_cache_written_bytes_total (Counter): Bytes of results written to the cache
//   - docconv_cache_errors_total{operation} (Counter): Cache operation errors
//   - docconv_cache_evictions_total{reason} (Counter): Maintenance evictions by reason (stale, missing_stats, orphan_stats)
//
// Retry Metrics (pkg/retry):
//   - docconv_retries_total{operation} (Counter): Retry attempts by operation
//   - docconv_retry_backoff_seconds{operation} (Histogram): Backoff duration by operation
//   - docconv_retry_exhausted_total{operation} (Counter): Operations that exhausted max retries
//
// Worker Pool Metrics (pkg/workerpool):
//   - docconv_pool_active_workers (Gauge): Workers currently running a task
//   - docconv_pool_queue_depth (Gauge): Tasks waiting in the queue
//   - docconv_pool_tasks_total{outcome} (Counter): Tasks by outcome (completed, failed, abandoned, rejected)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(docconv_cache_hits_total[5m])) /
//   (sum(rate(docconv_cache_hits_total[5m])) + sum(rate(docconv_cache_misses_total[5m])))
//
//   # Dedup Effectiveness
//   rate(docconv_convert_requests_total{outcome="joined"}[5m]) /
//   rate(docconv_convert_requests_total[5m])
//
//   # P95 Conversion Latency
//   histogram_quantile(0.95, rate(docconv_conversion_duration_seconds_bucket[5m]))
//
//   # Abandoned Task Rate
//   rate(docconv_pool_tasks_total{outcome="abandoned"}[5m])
