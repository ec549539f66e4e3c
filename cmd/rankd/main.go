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

	"github.com/climatejobs/rankd/internal/config"
	dbRedis "github.com/climatejobs/rankd/internal/db/redis"
	logpkg "github.com/climatejobs/rankd/internal/logger"
	"github.com/climatejobs/rankd/internal/metrics"
	corpusrepo "github.com/climatejobs/rankd/internal/repository/corpus"
	chiTransport "github.com/climatejobs/rankd/internal/transport/chi"
	openaiEmb "github.com/climatejobs/rankd/internal/transport/openai"
	"github.com/climatejobs/rankd/internal/transport/webapi"
	contextuc "github.com/climatejobs/rankd/internal/usecase/contextbuild"
	healthuc "github.com/climatejobs/rankd/internal/usecase/health"
	"github.com/climatejobs/rankd/internal/usecase/querycache"
	retrievaluc "github.com/climatejobs/rankd/internal/usecase/retrieval"
	"github.com/climatejobs/rankd/internal/version"
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

	logger.Info("Starting rankd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
	})
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	corpus := corpusrepo.New(store, cfg.Storage.KeyPrefix, cfg.Retrieval.Collection)

	vectorSource := retrievaluc.NewVectorSource(embedder, corpus, cfg.Retrieval.MinSimilarity)
	keywordSource := retrievaluc.NewKeywordSource(corpus)

	opts := []retrievaluc.Option{
		retrievaluc.WithPolicy(retrievaluc.SupplementPolicy{Threshold: cfg.Retrieval.SupplementThreshold}),
		retrievaluc.WithSourceTimeout(time.Duration(cfg.Retrieval.SourceTimeoutMS) * time.Millisecond),
	}

	webClient := webapi.New(&webapi.Config{
		Endpoint: cfg.WebSearch.Endpoint,
		APIKey:   cfg.WebSearch.APIKey,
		Timeout:  time.Duration(cfg.WebSearch.TimeoutSec) * time.Second,
	})
	if webClient.Configured() {
		webSource := retrievaluc.NewWebSource(webClient, cfg.WebSearch.RegionHint, cfg.WebSearch.MaxResults)
		opts = append(opts, retrievaluc.WithWeb(webSource))
		logger.Info("Web search supplement enabled",
			zap.String("region_hint", cfg.WebSearch.RegionHint),
			zap.Int("max_results", cfg.WebSearch.MaxResults),
		)
	}

	if cfg.Cache.Enabled {
		cache := querycache.New(store, cfg.Storage.KeyPrefix, time.Duration(cfg.Cache.TTLHours)*time.Hour)
		opts = append(opts, retrievaluc.WithCache(cache))
		logger.Info("Query cache enabled", zap.Int("ttl_hours", cfg.Cache.TTLHours))
	}

	retrievalSvc := retrievaluc.New(vectorSource, keywordSource, opts...)
	contextSvc := contextuc.New(retrievalSvc, contextuc.DefaultBudget)
	healthSvc := healthuc.New(store, embedder)

	server := chiTransport.NewServer(retrievalSvc, contextSvc, healthSvc, logger)

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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
