package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/pixelgen/internal/api"
	"github.com/dunamismax/pixelgen/internal/config"
	"github.com/dunamismax/pixelgen/internal/logging"
	"github.com/dunamismax/pixelgen/internal/queue"
	"github.com/dunamismax/pixelgen/internal/ratelimit"
	"github.com/dunamismax/pixelgen/internal/storage"
	"github.com/dunamismax/pixelgen/internal/store"
	"github.com/dunamismax/pixelgen/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(logging.Config(cfg.Log), "api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "pixelgen-api",
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	jobStore, closeStore, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("job store unavailable", zap.Error(err))
	}
	defer func() { _ = closeStore() }()

	objectStore, err := storage.NewClient(storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		Bucket:   cfg.Storage.Bucket,
		UseSSL:   cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("object storage unavailable", zap.Error(err))
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn("ensure bucket failed", zap.String("bucket", objectStore.Bucket()), zap.Error(err))
	}

	queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close failed", zap.Error(err))
		}
	}()

	opts := api.Options{
		Queue:      queueClient,
		Jobs:       jobStore,
		Storage:    objectStore,
		PresignTTL: cfg.API.PresignTTL,
		Tracer:     otel.Tracer("pixelgen/api"),
	}
	if cfg.API.RateLimit > 0 {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		limiter, err := ratelimit.NewRedisTokenBucket(rdb, cfg.API.RateLimit, cfg.API.RateWindow, "pixelgen:api")
		if err != nil {
			logger.Fatal("rate limiter setup failed", zap.Error(err))
		}
		opts.RateLimiter = limiter
	}
	app := api.NewServer(logger, opts)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.API.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
