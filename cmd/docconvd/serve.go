package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/talentflow/docconv/pkg/cache"
	"github.com/talentflow/docconv/pkg/codec"
	"github.com/talentflow/docconv/pkg/codec/plaincodec"
	"github.com/talentflow/docconv/pkg/config"
	"github.com/talentflow/docconv/pkg/convert"
	"github.com/talentflow/docconv/pkg/logging"
	"github.com/talentflow/docconv/pkg/metrics"
	"github.com/talentflow/docconv/pkg/retry"
	"github.com/talentflow/docconv/pkg/workerpool"
)

// maxUploadBytes bounds a single document upload.
const maxUploadBytes = 100 << 20

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the conversion HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := logging.Setup(logging.Config{
				Level:  logging.LogLevel(cfg.Log.Level),
				Pretty: cfg.Log.Pretty,
				Output: cmd.ErrOrStderr(),
			})

			svc, cleanup, err := newService(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           newRouter(svc, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("listen", cfg.Listen).Msg("Server starting")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info().Msg("Server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "docconv.yaml", "path to config file")
	return cmd
}

// newService wires a conversion service from file configuration. The
// returned cleanup closes the pool and the Redis connection.
func newService(cfg *config.Config) (*convert.Service, func(), error) {
	var backend cache.Backend
	var closeBackend func()

	if cfg.Redis.Addr == "" {
		backend = cache.NewMemoryBackend()
		closeBackend = func() {}
	} else {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		backend = cache.NewRedisBackend(client)
		closeBackend = func() { _ = client.Close() }
	}

	cdc, err := newCodec()
	if err != nil {
		closeBackend()
		return nil, nil, fmt.Errorf("init codec: %w", err)
	}

	svcCfg := convert.DefaultConfig(cdc, backend)
	svcCfg.Store = cache.StoreConfig{
		BaseTTL:        cfg.Cache.BaseTTL,
		StatsTTL:       cfg.Cache.StatsTTL,
		FrontCacheSize: cfg.Cache.FrontCacheSize,
		FrontCacheTTL:  cfg.Cache.FrontCacheTTL,
	}
	if cfg.Pool.Workers > 0 {
		svcCfg.Pool = workerpool.Config{
			Workers:     cfg.Pool.Workers,
			QueueDepth:  cfg.Pool.QueueDepth,
			TaskTimeout: cfg.Pool.TaskTimeout,
		}
	}
	if cfg.Retry.MaxAttempts > 0 {
		svcCfg.Retry = retry.Config{
			MaxAttempts:       cfg.Retry.MaxAttempts,
			InitialBackoff:    cfg.Retry.InitialBackoff,
			MaxBackoff:        cfg.Retry.MaxBackoff,
			BackoffMultiplier: 2.0,
		}
	}
	svcCfg.WarmBatchSize = cfg.Warm.BatchSize
	svcCfg.WarmBatchPause = cfg.Warm.BatchPause

	svc, err := convert.New(svcCfg)
	if err != nil {
		closeBackend()
		return nil, nil, err
	}

	cleanup := func() {
		svc.Close()
		closeBackend()
	}
	return svc, cleanup, nil
}

// newCodec returns the document codec for this build.
// TODO: make the codec selectable once a second format lands.
func newCodec() (codec.Codec, error) {
	return plaincodec.New()
}

func newRouter(svc *convert.Service, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /convert", handleConvert(svc, logger))
	mux.HandleFunc("POST /render", handleRender(svc, logger))
	mux.HandleFunc("POST /validate", handleValidate(svc))
	mux.HandleFunc("GET /stats", handleStats(svc))
	mux.HandleFunc("GET /warm/candidates", handleWarmingCandidates(svc))
	mux.HandleFunc("POST /optimize", handleOptimize(svc, logger))
	mux.HandleFunc("POST /maintenance", handleMaintenance(svc, logger))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

func handleConvert(svc *convert.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
		if err != nil {
			http.Error(w, "request body too large or unreadable", http.StatusRequestEntityTooLarge)
			return
		}
		if len(data) == 0 {
			http.Error(w, "empty request body", http.StatusBadRequest)
			return
		}

		opts := convert.ConvertOptions{
			Priority:  convert.Priority(r.URL.Query().Get("priority")),
			SkipCache: r.URL.Query().Get("skip_cache") == "true",
		}

		res, err := svc.Convert(r.Context(), data, opts)
		if err != nil {
			writeConversionError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleRender(svc *convert.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			HTML    string `json:"html"`
			Title   string `json:"title"`
			Author  string `json:"author"`
			Subject string `json:"subject"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		out, err := svc.Render(r.Context(), req.HTML, codec.RenderOptions{
			Title:   req.Title,
			Author:  req.Author,
			Subject: req.Subject,
		})
		if err != nil {
			writeConversionError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	}
}

func handleValidate(svc *convert.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
		if err != nil {
			http.Error(w, "request body too large or unreadable", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": svc.Validate(r.Context(), data)})
	}
}

func handleStats(svc *convert.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Stats(r.Context()))
	}
}

func handleWarmingCandidates(svc *convert.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		candidates, err := svc.WarmingCandidates(r.Context(), limit)
		if err != nil {
			http.Error(w, "candidate lookup failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"fingerprints": candidates})
	}
}

func handleOptimize(svc *convert.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.OptimizeCache(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("Cache optimization failed")
			http.Error(w, "optimization failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func handleMaintenance(svc *convert.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.PerformMaintenance(r.Context()); err != nil {
			logger.Error().Err(err).Msg("Maintenance failed")
			http.Error(w, "maintenance failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeConversionError maps the error taxonomy onto HTTP status codes:
// permanent input problems are the client's fault, everything else is ours.
func writeConversionError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := http.StatusInternalServerError
	if convert.KindOf(err) == convert.KindPermanentInput {
		status = http.StatusUnprocessableEntity
	}
	if errors.Is(err, context.Canceled) {
		status = 499 // client closed request
	}

	logger.Error().Err(err).Int("status", status).Msg("Conversion request failed")
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  string(convert.KindOf(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
