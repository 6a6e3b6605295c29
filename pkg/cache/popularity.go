package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PopularityCap is the maximum number of fingerprints kept in the ranked
// popularity set. Everything below the cap is trimmed after each insert.
const PopularityCap = 100

// PopularityMaxAge is how long a fingerprint stays warming-eligible without
// being reprocessed.
const PopularityMaxAge = 30 * 24 * time.Hour

// PopularityTracker maintains a bounded ranked set of recently-processed
// fingerprints, scored by processing timestamp. Maintenance prunes it by
// age; inserts trim it by rank.
type PopularityTracker struct {
	backend Backend
	logger  zerolog.Logger
	cap     int64
	metaTTL time.Duration

	// now is replaceable so tests can control scores.
	now func() time.Time
}

// NewPopularityTracker creates a tracker on the given backend.
func NewPopularityTracker(backend Backend, logger zerolog.Logger) *PopularityTracker {
	return &PopularityTracker{
		backend: backend,
		logger:  logger,
		cap:     PopularityCap,
		metaTTL: PopularityMaxAge,
		now:     time.Now,
	}
}

// Record inserts a fingerprint with the current timestamp as score and trims
// the set back to the cap. The optional metadata payload is stored alongside
// for warming decisions. Fail-soft.
func (t *PopularityTracker) Record(ctx context.Context, fingerprint string, metadata []byte) {
	score := float64(t.now().UnixMilli())

	if err := t.backend.ZAdd(ctx, popularitySetKey, score, fingerprint); err != nil {
		CacheErrors.WithLabelValues("popularity").Inc()
		t.logger.Warn().
			Err(err).
			Str("fingerprint", short(fingerprint)).
			Msg("Popularity record failed")
		return
	}

	if _, err := t.backend.ZTrimToTop(ctx, popularitySetKey, t.cap); err != nil {
		CacheErrors.WithLabelValues("popularity").Inc()
		t.logger.Warn().Err(err).Msg("Popularity trim failed")
	}

	if len(metadata) > 0 {
		if err := t.backend.Set(ctx, popularityMetaKey(fingerprint), metadata, t.metaTTL); err != nil {
			CacheErrors.WithLabelValues("popularity").Inc()
			t.logger.Warn().
				Err(err).
				Str("fingerprint", short(fingerprint)).
				Msg("Popularity metadata store failed")
		}
	}
}

// Candidates returns up to limit fingerprints, most recently processed
// first. These are the cache-warming candidates.
func (t *PopularityTracker) Candidates(ctx context.Context, limit int) ([]string, error) {
	return t.backend.ZTopN(ctx, popularitySetKey, int64(limit))
}

// Metadata returns the stored metadata for a fingerprint, or ErrNotFound.
func (t *PopularityTracker) Metadata(ctx context.Context, fingerprint string) ([]byte, error) {
	return t.backend.Get(ctx, popularityMetaKey(fingerprint))
}

// Count returns the current size of the popularity set.
func (t *PopularityTracker) Count(ctx context.Context) (int64, error) {
	return t.backend.ZCard(ctx, popularitySetKey)
}

// PruneOlderThan removes fingerprints whose score is older than the given
// age, returning the number removed.
func (t *PopularityTracker) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := float64(t.now().Add(-age).UnixMilli())
	removed, err := t.backend.ZRemoveBelowScore(ctx, popularitySetKey, cutoff)
	if err != nil {
		CacheErrors.WithLabelValues("popularity").Inc()
		return 0, err
	}
	return removed, nil
}
