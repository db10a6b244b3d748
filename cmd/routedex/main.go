package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/routedex/internal/collector"
	"github.com/kailas-cloud/routedex/internal/config"
	"github.com/kailas-cloud/routedex/internal/db"
	dbRedis "github.com/kailas-cloud/routedex/internal/db/redis"
	"github.com/kailas-cloud/routedex/internal/domain"
	"github.com/kailas-cloud/routedex/internal/domain/category"
	logpkg "github.com/kailas-cloud/routedex/internal/logger"
	"github.com/kailas-cloud/routedex/internal/metrics"
	"github.com/kailas-cloud/routedex/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/routedex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/routedex/internal/transport/openai"
	compareuc "github.com/kailas-cloud/routedex/internal/usecase/compare"
	complexityuc "github.com/kailas-cloud/routedex/internal/usecase/complexity"
	embeddinguc "github.com/kailas-cloud/routedex/internal/usecase/embedding"
	routeruc "github.com/kailas-cloud/routedex/internal/usecase/router"
	semanticuc "github.com/kailas-cloud/routedex/internal/usecase/semantic"
	"github.com/kailas-cloud/routedex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting routedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("categories", len(cfg.Routing.Categories)),
		zap.Bool("completion_enabled", cfg.Completion.Enabled),
	)

	ctx := context.Background()

	// Embedding cache store is optional: without addrs every embedding call
	// goes straight to the provider.
	var store db.Store
	if len(cfg.Database.Addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache store", zap.Strings("addrs", cfg.Database.Addrs))
	}

	// Register routing metrics explicitly (no init())
	metrics.RegisterRoutingMetrics()

	embedder, baseEmbedder := buildEmbedder(cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cached", store != nil),
	)

	categories, err := buildCategories(cfg.Routing.Categories)
	if err != nil {
		logger.Fatal("Invalid category configuration", zap.Error(err))
	}

	semSvc, err := semanticuc.New(embedder, categories, cfg.Routing.Epsilon, logger)
	if err != nil {
		logger.Fatal("Failed to create similarity router", zap.Error(err))
	}

	// Warm the reference vector banks. Failure is not fatal: the first
	// classify call retries the build.
	if err := semSvc.Reindex(ctx); err != nil {
		logger.Warn("Reference bank warm-up failed, deferring to first request", zap.Error(err))
	}

	compSvc := complexityuc.New(cfg.Complexity)
	coll := collector.New()

	routerSvc := routeruc.New(embedder, semSvc, compSvc, coll, cfg.Costs, logger)
	if cfg.Completion.Enabled {
		routerSvc = routerSvc.WithCompleter(openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
			APIKey:      cfg.Completion.APIKey,
			BaseURL:     cfg.Completion.BaseURL,
			StrongModel: cfg.Completion.StrongModel,
			WeakModel:   cfg.Completion.WeakModel,
			MaxTokens:   cfg.Completion.MaxTokens,
			Strong: openaiTransport.TierPricing{
				InputPer1K:  cfg.Completion.Pricing.Strong.InputPer1K,
				OutputPer1K: cfg.Completion.Pricing.Strong.OutputPer1K,
			},
			Weak: openaiTransport.TierPricing{
				InputPer1K:  cfg.Completion.Pricing.Weak.InputPer1K,
				OutputPer1K: cfg.Completion.Pricing.Weak.OutputPer1K,
			},
			Logger: logger,
		}))
		logger.Info("Completion provider enabled",
			zap.String("strong_model", cfg.Completion.StrongModel),
			zap.String("weak_model", cfg.Completion.WeakModel),
		)
	}

	compareSvc := compareuc.New(routerSvc, coll, cfg.Comparison, logger)

	checks := map[string]chiTransport.HealthChecker{
		"embedding": func(ctx context.Context) error {
			if hc, ok := baseEmbedder.(domain.HealthChecker); ok {
				return hc.HealthCheck(ctx)
			}
			return nil
		},
	}
	if store != nil {
		checks["cache"] = store.Ping
	}

	server := chiTransport.NewServer(routerSvc, compareSvc, coll, checks, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Timeout -> Instrumented.
// Returns the full chain and the base provider (for health checks).
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) (domain.Embedder, domain.Embedder) {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Per-call deadline
	embedder = &timeoutEmbedder{
		inner:   embedder,
		timeout: time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
	}

	// Instrumented (logging + batch chunking)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger,
	)

	return embedder, base
}

func buildCategories(cfgs []config.CategoryConfig) ([]category.Category, error) {
	categories := make([]category.Category, 0, len(cfgs))
	for _, cc := range cfgs {
		cat, err := category.New(cc.Name, cc.Utterances)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", cc.Name, err)
		}
		categories = append(categories, cat)
	}
	return categories, nil
}

// timeoutEmbedder bounds every provider call with a deadline so slow
// responses surface as provider timeouts instead of hanging the request.
type timeoutEmbedder struct {
	inner   domain.Embedder
	timeout time.Duration
}

func (t *timeoutEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Embed(ctx, text)
}

func (t *timeoutEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if be, ok := t.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, t.inner, texts)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
