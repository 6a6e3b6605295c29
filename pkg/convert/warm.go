package convert

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWarmBatchSize  = 10
	defaultCandidateLimit = 20
)

// WarmingCandidates returns the fingerprints of the most recently processed
// documents, newest first, for callers that fetch the source bytes themselves
// before warming. Limit defaults to 20 and is capped by the popularity set
// size.
func (s *Service) WarmingCandidates(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	return s.tracker.Candidates(ctx, limit)
}

// WarmCache pre-converts the given documents so later requests hit cache.
// Documents are processed in batches; a failed document counts as an error
// without aborting the batch or the run. Already-cached documents count as
// warmed without reconversion.
func (s *Service) WarmCache(ctx context.Context, documents [][]byte, opts WarmOptions) (WarmReport, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.warmBatch
	}

	var warmed, failed atomic.Int64

	for i := 0; i < len(documents); i += batchSize {
		if err := ctx.Err(); err != nil {
			return WarmReport{Warmed: int(warmed.Load()), Errors: int(failed.Load())}, err
		}

		end := i + batchSize
		if end > len(documents) {
			end = len(documents)
		}

		var wg sync.WaitGroup
		for _, doc := range documents[i:end] {
			doc := doc
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Convert(ctx, doc, ConvertOptions{Priority: opts.Priority})
				if err != nil {
					failed.Add(1)
					s.logger.Warn().Err(err).Msg("Cache warming conversion failed")
					return
				}
				warmed.Add(1)
			}()
		}
		wg.Wait()

		// Breathe between batches so warming never starves live traffic.
		if end < len(documents) {
			select {
			case <-time.After(s.warmPause):
			case <-ctx.Done():
				return WarmReport{Warmed: int(warmed.Load()), Errors: int(failed.Load())}, ctx.Err()
			}
		}
	}

	report := WarmReport{Warmed: int(warmed.Load()), Errors: int(failed.Load())}
	s.logger.Info().
		Int("warmed", report.Warmed).
		Int("errors", report.Errors).
		Msg("Cache warming complete")
	return report, nil
}
