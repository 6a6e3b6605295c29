package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Eviction thresholds. An entry survives a sweep if it was accessed within
// staleAfter or has at least minAccessCount accesses.
const (
	staleAfter     = 7 * 24 * time.Hour
	minAccessCount = 3
)

// MaintenanceReport summarizes one optimization sweep.
type MaintenanceReport struct {
	// Removed is the number of cache entries evicted.
	Removed int `json:"removed"`

	// Optimized is the number of cache entries inspected and retained.
	Optimized int `json:"optimized"`
}

// Maintainer sweeps the cache and popularity set on an external schedule.
// It never self-schedules.
type Maintainer struct {
	backend Backend
	store   *Store
	tracker *PopularityTracker
	logger  zerolog.Logger

	// now is replaceable so tests can control staleness.
	now func() time.Time
}

// NewMaintainer creates a maintainer over the store's backend.
func NewMaintainer(backend Backend, store *Store, tracker *PopularityTracker, logger zerolog.Logger) *Maintainer {
	return &Maintainer{
		backend: backend,
		store:   store,
		tracker: tracker,
		logger:  logger,
		now:     time.Now,
	}
}

// Optimize inspects every cache entry's stats record and evicts dead weight:
// entries not accessed for a week with fewer than three accesses, and
// entries whose stats record is missing (fail toward cleanup, not toward
// indefinite retention). Orphaned stats records are removed as well.
func (m *Maintainer) Optimize(ctx context.Context) (MaintenanceReport, error) {
	var report MaintenanceReport

	entryKeys, err := m.backend.Keys(ctx, resultKeyPrefix+"*")
	if err != nil {
		return report, err
	}

	now := m.now()
	for _, key := range entryKeys {
		fingerprint := strings.TrimPrefix(key, resultKeyPrefix)

		statsData, err := m.backend.Get(ctx, statsKey(fingerprint))
		if errors.Is(err, ErrNotFound) {
			// No stats record: treat as stale.
			m.evict(ctx, fingerprint, "missing_stats")
			report.Removed++
			continue
		}
		if err != nil {
			// Backend trouble mid-sweep: leave the entry alone.
			CacheErrors.WithLabelValues("get").Inc()
			m.logger.Warn().
				Err(err).
				Str("fingerprint", short(fingerprint)).
				Msg("Stats read failed during sweep, retaining entry")
			report.Optimized++
			continue
		}

		var stats ProcessingStats
		if err := json.Unmarshal(statsData, &stats); err != nil {
			m.evict(ctx, fingerprint, "missing_stats")
			report.Removed++
			continue
		}

		if now.Sub(stats.LastAccessed) > staleAfter && stats.AccessCount < minAccessCount {
			m.evict(ctx, fingerprint, "stale")
			report.Removed++
			continue
		}
		report.Optimized++
	}

	orphans := m.removeOrphanStats(ctx)

	m.logger.Info().
		Int("removed", report.Removed).
		Int("optimized", report.Optimized).
		Int("orphan_stats", orphans).
		Msg("Cache optimization sweep complete")

	return report, nil
}

// PerformMaintenance runs a full sweep: cache optimization followed by the
// age-based popularity prune.
func (m *Maintainer) PerformMaintenance(ctx context.Context) error {
	report, err := m.Optimize(ctx)
	if err != nil {
		return err
	}

	pruned, err := m.tracker.PruneOlderThan(ctx, PopularityMaxAge)
	if err != nil {
		return err
	}

	m.logger.Info().
		Int("removed", report.Removed).
		Int("optimized", report.Optimized).
		Int64("popularity_pruned", pruned).
		Msg("Maintenance complete")

	return nil
}

// evict removes a cache entry together with its stats record.
func (m *Maintainer) evict(ctx context.Context, fingerprint, reason string) {
	if err := m.store.Delete(ctx, fingerprint); err != nil {
		m.logger.Warn().
			Err(err).
			Str("fingerprint", short(fingerprint)).
			Msg("Entry delete failed during sweep")
	}
	if err := m.backend.Delete(ctx, statsKey(fingerprint)); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
	}
	CacheEvictions.WithLabelValues(reason).Inc()
	m.logger.Debug().
		Str("fingerprint", short(fingerprint)).
		Str("reason", reason).
		Msg("Evicted cache entry")
}

// removeOrphanStats deletes stats records whose cache entry no longer
// exists. Returns the number removed.
func (m *Maintainer) removeOrphanStats(ctx context.Context) int {
	statsKeys, err := m.backend.Keys(ctx, statsKeyPrefix+"*")
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return 0
	}

	removed := 0
	for _, key := range statsKeys {
		fingerprint := strings.TrimPrefix(key, statsKeyPrefix)
		if _, err := m.backend.Get(ctx, resultKey(fingerprint)); errors.Is(err, ErrNotFound) {
			if err := m.backend.Delete(ctx, key); err == nil {
				CacheEvictions.WithLabelValues("orphan_stats").Inc()
				removed++
			}
		}
	}
	return removed
}
