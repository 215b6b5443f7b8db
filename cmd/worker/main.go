package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dunamismax/pixelgen/internal/animation"
	"github.com/dunamismax/pixelgen/internal/config"
	"github.com/dunamismax/pixelgen/internal/logging"
	"github.com/dunamismax/pixelgen/internal/ratelimit"
	"github.com/dunamismax/pixelgen/internal/sink"
	"github.com/dunamismax/pixelgen/internal/storage"
	"github.com/dunamismax/pixelgen/internal/store"
	"github.com/dunamismax/pixelgen/internal/telemetry"
	"github.com/dunamismax/pixelgen/internal/webhook"
	"github.com/dunamismax/pixelgen/internal/worker"
	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/dunamismax/pixelgen/pkg/imagecodec"
	"github.com/dunamismax/pixelgen/pkg/xform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(logging.Config(cfg.Log), "worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "pixelgen-worker",
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

	if err := imagecodec.Startup(); err != nil {
		logger.Fatal("image codec startup failed", zap.Error(err))
	}
	defer imagecodec.Shutdown()

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

	genOpts := []generation.Option{generation.WithAPIKey(cfg.Generation.APIKey)}
	if cfg.Generation.Insecure {
		genOpts = append(genOpts, generation.WithInsecure())
	}
	genClient, err := generation.Dial(cfg.Generation.Addr, genOpts...)
	if err != nil {
		logger.Fatal("generation client setup failed", zap.Error(err))
	}
	defer func() { _ = genClient.Close() }()

	registry := prometheus.NewRegistry()
	xfOpts := []xform.Option{
		xform.WithEngineID(cfg.Generation.EngineID),
		xform.WithMetrics(xform.NewMetrics(registry)),
		xform.WithLogger(logger.Named("xform")),
	}
	if cfg.RateLimit.Limit > 0 {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		limiter, err := ratelimit.NewRedisTokenBucket(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window, "")
		if err != nil {
			logger.Fatal("rate limiter setup failed", zap.Error(err))
		}
		xfOpts = append(xfOpts, xform.WithLimiter(limiter))
	}
	pipeline := xform.NewPipeline(genClient, xfOpts...)

	sinks := func(jobID string) (animation.Sink, error) {
		return sink.NewObjectStore(objectStore, storage.OutputPrefix(jobID))
	}
	if cfg.Worker.Sink == "local" {
		sinks = func(jobID string) (animation.Sink, error) {
			return sink.NewLocal(cfg.Worker.LocalOutputDir, jobID)
		}
	}

	srv, err := worker.NewServer(logger, cfg.Queue, cfg.Worker, worker.Deps{
		Jobs:        jobStore,
		Source:      objectStore,
		Sinks:       sinks,
		Transformer: pipeline,
		Notifier: webhook.NewClient(webhook.Config{
			SigningSecret: cfg.Webhook.SigningSecret,
			Timeout:       cfg.Webhook.Timeout,
			MaxAttempts:   cfg.Webhook.MaxAttempts,
		}),
		Registry:          registry,
		MaxFilenameLength: cfg.Generation.MaxFilenameLength,
	})
	if err != nil {
		logger.Fatal("worker setup failed", zap.Error(err))
	}

	metricsServer := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           srv.MetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("starting worker",
		zap.Int("concurrency", cfg.Worker.Concurrency),
		zap.String("queue", cfg.Queue.Name),
		zap.String("redis", cfg.Queue.RedisAddr),
		zap.String("engine", pipeline.EngineID()),
		zap.String("sink", cfg.Worker.Sink),
	)

	// Run handles SIGINT and SIGTERM itself and returns once active tasks drain.
	if err := srv.Run(); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown failed", zap.Error(err))
	}
}
