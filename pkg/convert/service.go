// Package convert coordinates document conversions: it deduplicates
// concurrent requests per content fingerprint, consults the result cache,
// selects a conversion strategy, offloads CPU-bound codec work to a worker
// pool, and keeps the popularity set and processing stats current.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/talentflow/docconv/pkg/cache"
	"github.com/talentflow/docconv/pkg/codec"
	"github.com/talentflow/docconv/pkg/fingerprint"
	"github.com/talentflow/docconv/pkg/logging"
	"github.com/talentflow/docconv/pkg/retry"
	"github.com/talentflow/docconv/pkg/sanitize"
	"github.com/talentflow/docconv/pkg/workerpool"
)

// Prometheus metrics for conversion operations.
var (
	convertRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docconv_convert_requests_total",
		Help: "Total convert requests by outcome",
	}, []string{"outcome"}) // "hit", "joined", "converted", "error"

	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docconv_conversions_total",
		Help: "Total physical conversions by mode",
	}, []string{"mode"})

	conversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docconv_conversion_duration_seconds",
		Help:    "Physical conversion duration in seconds by mode",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"mode"})
)

// inlineThresholdBytes is the largest input converted on the calling
// goroutine; anything bigger goes through the worker pool.
const inlineThresholdBytes = 64 << 10

// Config holds the service configuration.
type Config struct {
	// Codec performs the actual byte-level conversions. Required.
	Codec codec.Codec

	// Backend is the cache backend. Required.
	Backend cache.Backend

	// Store configures the result cache (TTLs, front cache).
	Store cache.StoreConfig

	// Pool configures the worker pool.
	Pool workerpool.Config

	// Retry configures retries for transient codec failures.
	Retry retry.Config

	// WarmBatchSize bounds concurrent conversions per cache-warming batch
	// when a WarmCache call does not set its own. Default 10.
	WarmBatchSize int

	// WarmBatchPause is the pause between cache-warming batches, keeping
	// warming from saturating the pool. Default 100ms.
	WarmBatchPause time.Duration
}

// DefaultConfig returns a safe default configuration around a codec and
// backend.
func DefaultConfig(c codec.Codec, backend cache.Backend) Config {
	return Config{
		Codec:          c,
		Backend:        backend,
		Store:          cache.DefaultStoreConfig(),
		Pool:           workerpool.DefaultConfig(),
		Retry:          retry.DefaultConfig(),
		WarmBatchSize:  defaultWarmBatchSize,
		WarmBatchPause: 100 * time.Millisecond,
	}
}

// Service owns the shared conversion state: the in-flight dedup map, the
// worker pool, the cache store and the popularity tracker. One Service is
// created at process start and shared by all callers; there is no
// per-request instantiation.
type Service struct {
	codec      codec.Codec
	store      *cache.Store
	tracker    *cache.PopularityTracker
	maintainer *cache.Maintainer
	pool       *workerpool.Pool
	retryCfg   retry.Config
	warmBatch  int
	warmPause  time.Duration
	logger     zerolog.Logger

	// inflight guarantees at most one physical conversion per fingerprint.
	// Nothing else reads or writes it.
	inflight singleflight.Group

	totalRequests     atomic.Int64
	cacheHits         atomic.Int64
	conversions       atomic.Int64
	processingMsTotal atomic.Int64
}

// New creates the conversion service.
func New(cfg Config) (*Service, error) {
	if cfg.Codec == nil {
		return nil, fmt.Errorf("codec is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("cache backend is required")
	}
	if cfg.WarmBatchSize <= 0 {
		cfg.WarmBatchSize = defaultWarmBatchSize
	}
	if cfg.WarmBatchPause <= 0 {
		cfg.WarmBatchPause = 100 * time.Millisecond
	}
	logger := logging.NewLogger("convert")

	store := cache.NewStore(cfg.Backend, cfg.Store, logger)
	tracker := cache.NewPopularityTracker(cfg.Backend, logger)

	return &Service{
		codec:      cfg.Codec,
		store:      store,
		tracker:    tracker,
		maintainer: cache.NewMaintainer(cfg.Backend, store, tracker, logger),
		pool:       workerpool.New(cfg.Pool, logger),
		retryCfg:   cfg.Retry,
		warmBatch:  cfg.WarmBatchSize,
		warmPause:  cfg.WarmBatchPause,
		logger:     logger,
	}, nil
}

// Close stops the worker pool.
func (s *Service) Close() {
	s.pool.Close()
}

// Convert converts document bytes to sanitized HTML. Concurrent calls with
// identical bytes share one physical conversion; later callers join the
// in-flight result. Returns a *Error tagged KindPermanentInput for bad
// input and KindProcessing after transient retries are exhausted.
func (s *Service) Convert(ctx context.Context, data []byte, opts ConvertOptions) (*Result, error) {
	fp := fingerprint.Sum(data).String()

	// The physical conversion is shared: once started, no single caller's
	// cancellation may abort it for the others. The miss path runs detached
	// from the initiator's context; the pool's per-task deadline is the only
	// bound on the work.
	v, err, shared := s.inflight.Do(fp, func() (any, error) {
		return s.convertMiss(context.WithoutCancel(ctx), data, fp, opts)
	})
	if err != nil {
		if !shared {
			convertRequestsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	if shared {
		// Joiners get the shared result and one final progress call;
		// granular updates went to the initiating caller only.
		convertRequestsTotal.WithLabelValues("joined").Inc()
		s.totalRequests.Add(1)
		s.cacheHits.Add(1)
		s.store.RecordAccess(ctx, fp, true)
		reportProgress(opts, 1.0)
	}

	return v.(*Result), nil
}

// convertMiss is the single-flight body: cache lookup, strategy selection,
// execution under retry, cache store and bookkeeping.
func (s *Service) convertMiss(ctx context.Context, data []byte, fp string, opts ConvertOptions) (*Result, error) {
	if !opts.SkipCache {
		if payload, ok := s.store.Get(ctx, fp); ok {
			var res Result
			if err := json.Unmarshal(payload, &res); err == nil {
				convertRequestsTotal.WithLabelValues("hit").Inc()
				s.totalRequests.Add(1)
				s.cacheHits.Add(1)
				s.store.RecordAccess(ctx, fp, true)
				reportProgress(opts, 1.0)
				return &res, nil
			}
			s.logger.Warn().
				Str("fingerprint", fp[:12]).
				Msg("Cached payload undecodable, recomputing")
		}
	}

	start := time.Now()
	priority := opts.Priority.normalize()
	mode := selectMode(len(data), priority)

	s.logger.Debug().
		Str("fingerprint", fp[:12]).
		Int("input_bytes", len(data)).
		Str("mode", string(mode)).
		Str("priority", string(priority)).
		Msg("Starting conversion")
	reportProgress(opts, 0.1)

	var doc *codec.Document
	err := retry.Do(ctx, s.retryCfg, classifyError, "convert", func() error {
		d, execErr := s.execute(ctx, data, mode)
		if execErr != nil {
			return execErr
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, wrapError("convert", err)
	}
	reportProgress(opts, 0.6)

	cleanHTML, err := sanitize.Clean(doc.HTML)
	if err != nil {
		return nil, &Error{Kind: KindProcessing, Op: "convert", Err: err}
	}
	reportProgress(opts, 0.9)

	diagnostics := doc.Messages
	words := 0
	if mode == ModeFull {
		text, textErr := s.codec.ExtractText(ctx, data)
		if textErr != nil {
			// Fall back to the cheap estimate rather than failing an
			// otherwise successful conversion.
			diagnostics = append(diagnostics, "full-text pass failed: "+textErr.Error())
			text, _ = sanitize.StripTags(cleanHTML)
		}
		words = countWords(text)
	} else {
		text, _ := sanitize.StripTags(cleanHTML)
		words = countWords(text)
	}

	elapsed := time.Since(start)
	res := &Result{
		HTML:        cleanHTML,
		Diagnostics: diagnostics,
		Metadata: Metadata{
			WordCount:        words,
			PageCount:        pageCount(words),
			Title:            doc.Title,
			Author:           doc.Author,
			LastModified:     doc.LastModified,
			ProcessingTimeMs: elapsed.Milliseconds(),
			IsLargeInput:     len(data) > cache.LargeInputBytes,
		},
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return nil, &Error{Kind: KindProcessing, Op: "convert", Err: err}
	}
	if !opts.SkipCache {
		s.store.Set(ctx, fp, payload, cache.CostProfile{
			InputBytes:       len(data),
			ProcessingTimeMs: res.Metadata.ProcessingTimeMs,
		})
	}

	meta, _ := json.Marshal(res.Metadata)
	s.tracker.Record(ctx, fp, meta)
	s.store.RecordProcessed(ctx, fp, res.Metadata.ProcessingTimeMs)

	s.totalRequests.Add(1)
	s.conversions.Add(1)
	s.processingMsTotal.Add(res.Metadata.ProcessingTimeMs)
	convertRequestsTotal.WithLabelValues("converted").Inc()
	conversionsTotal.WithLabelValues(string(mode)).Inc()
	conversionDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())

	s.logger.Info().
		Str("fingerprint", fp[:12]).
		Str("mode", string(mode)).
		Int("word_count", words).
		Dur("duration", elapsed).
		Msg("Conversion complete")
	reportProgress(opts, 1.0)

	return res, nil
}

// execute runs the codec parse either inline or on the worker pool. Small
// inputs stay on the calling goroutine; pool dispatch would cost more than
// the conversion itself.
func (s *Service) execute(ctx context.Context, data []byte, mode Mode) (*codec.Document, error) {
	if len(data) <= inlineThresholdBytes {
		return s.codec.Parse(ctx, data, parseOptionsFor(mode))
	}

	out := <-s.pool.Submit(ctx, func(taskCtx context.Context) (any, error) {
		return s.codec.Parse(taskCtx, data, parseOptionsFor(mode))
	})
	if out.Err != nil {
		return nil, out.Err
	}
	return out.Value.(*codec.Document), nil
}

// Render converts HTML back into document bytes, retrying transient codec
// failures.
func (s *Service) Render(ctx context.Context, html string, opts codec.RenderOptions) ([]byte, error) {
	var rendered []byte
	err := retry.Do(ctx, s.retryCfg, classifyError, "render", func() error {
		b, renderErr := s.codec.Render(ctx, html, opts)
		if renderErr != nil {
			return renderErr
		}
		rendered = b
		return nil
	})
	if err != nil {
		return nil, wrapError("render", err)
	}
	return rendered, nil
}

// Validate reports whether the bytes look convertible. It never retries
// and never returns an error: callers use it as a boolean gate.
func (s *Service) Validate(ctx context.Context, data []byte) bool {
	if err := s.codec.Validate(ctx, data); err != nil {
		s.logger.Debug().Err(err).Msg("Validation rejected input")
		return false
	}
	return true
}

// Stats returns an analytics snapshot.
func (s *Service) Stats(ctx context.Context) ServiceStats {
	total := s.totalRequests.Load()
	hits := s.cacheHits.Load()
	conversions := s.conversions.Load()

	stats := ServiceStats{TotalProcessed: total}
	if total > 0 {
		stats.CacheHitRate = float64(hits) / float64(total)
	}
	if conversions > 0 {
		stats.AverageProcessingTimeMs = float64(s.processingMsTotal.Load()) / float64(conversions)
	}

	if count, err := s.tracker.Count(ctx); err == nil {
		stats.PopularEntryCount = count
	}
	stats.EstimatedMemoryBytes = s.store.EstimatedMemory(ctx)

	return stats
}

// OptimizeCache runs one eviction sweep.
func (s *Service) OptimizeCache(ctx context.Context) (cache.MaintenanceReport, error) {
	return s.maintainer.Optimize(ctx)
}

// PerformMaintenance runs the full maintenance pass: eviction sweep plus
// the age-based popularity prune. Invoke on an external schedule.
func (s *Service) PerformMaintenance(ctx context.Context) error {
	return s.maintainer.PerformMaintenance(ctx)
}

func reportProgress(opts ConvertOptions, fraction float64) {
	if opts.OnProgress != nil {
		opts.OnProgress(fraction)
	}
}
