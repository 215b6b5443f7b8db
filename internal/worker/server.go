package worker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/dunamismax/pixelgen/internal/animation"
	"github.com/dunamismax/pixelgen/internal/config"
	"github.com/dunamismax/pixelgen/internal/domain"
	"github.com/dunamismax/pixelgen/internal/queue"
	"github.com/dunamismax/pixelgen/internal/ratelimit"
	"github.com/dunamismax/pixelgen/internal/store"
	"github.com/dunamismax/pixelgen/internal/webhook"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SourceReader interface {
	ReadImage(ctx context.Context, objectKey string) (image.Image, error)
}

// SinkFactory returns the sink that receives the frames of one job.
type SinkFactory func(jobID string) (animation.Sink, error)

type Notifier interface {
	Send(ctx context.Context, endpoint string, ev webhook.Event) error
}

type Deps struct {
	Jobs        store.JobStore
	Source      SourceReader
	Sinks       SinkFactory
	Transformer animation.Transformer
	Notifier    Notifier
	// Registry receives the worker metrics; collectors registered on it
	// elsewhere are served by MetricsHandler too.
	Registry          *prometheus.Registry
	MaxFilenameLength int
}

type Server struct {
	logger   *zap.Logger
	server   *asynq.Server
	jobs     store.JobStore
	source   SourceReader
	sinks    SinkFactory
	renderer *animation.Renderer
	notifier Notifier
	metrics  *metrics
	tracer   trace.Tracer
}

func NewServer(logger *zap.Logger, queueCfg config.QueueConfig, workerCfg config.WorkerConfig, deps Deps) (*Server, error) {
	switch {
	case deps.Jobs == nil:
		return nil, fmt.Errorf("job store is required")
	case deps.Source == nil:
		return nil, fmt.Errorf("source reader is required")
	case deps.Sinks == nil:
		return nil, fmt.Errorf("sink factory is required")
	case deps.Transformer == nil:
		return nil, fmt.Errorf("transformer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := newServer(logger, deps)
	s.server = asynq.NewServer(
		queueCfg.RedisClientOpt(),
		asynq.Config{
			Concurrency: workerCfg.Concurrency,
			Queues: map[string]int{
				queueCfg.Name: 1,
			},
			LogLevel: asynq.InfoLevel,
			Logger:   logger.Named("asynq").Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Warn("task failed",
					zap.String("type", task.Type()),
					zap.Int("retry", retried),
					zap.Int("max_retry", maxRetry),
					zap.Error(err),
				)
			}),
		},
	)
	return s, nil
}

func newServer(logger *zap.Logger, deps Deps) *Server {
	return &Server{
		logger:   logger,
		jobs:     deps.Jobs,
		source:   deps.Source,
		sinks:    deps.Sinks,
		renderer: animation.NewRenderer(deps.Transformer, logger, deps.MaxFilenameLength),
		notifier: deps.Notifier,
		metrics:  newMetrics(deps.Registry),
		tracer:   otel.Tracer("pixelgen/worker"),
	}
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeRenderAnimation, s.handleRenderAnimation)
	return s.server.Run(mux)
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleRenderAnimation(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseRenderAnimationPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.render_animation", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(attribute.String("job.id", payload.JobID))
	defer span.End()

	job, ok, err := s.jobs.Get(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", payload.JobID, err)
	}
	if !ok {
		return fmt.Errorf("job %s: %w: %w", payload.JobID, store.ErrJobNotFound, asynq.SkipRetry)
	}
	span.SetAttributes(
		attribute.String("job.mode", job.Mode),
		attribute.Int("job.max_frames", job.MaxFrames),
	)

	startedAt := time.Now()
	outcome := "retry"
	s.metrics.activeJobs.Inc()
	defer func() {
		s.metrics.activeJobs.Dec()
		s.metrics.jobDuration.WithLabelValues(job.Mode, outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.jobsTotal.WithLabelValues(job.Mode, outcome).Inc()
	}()

	s.logger.Info("rendering animation",
		zap.String("job_id", job.ID),
		zap.String("mode", job.Mode),
		zap.Int("frames", job.MaxFrames),
		zap.String("source_key", job.SourceKey),
	)
	s.updateJobStatus(ctx, job.ID, domain.JobStatusProcessing)

	out, err := s.render(ctx, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		if errors.Is(err, ratelimit.ErrLimited) {
			s.metrics.rateLimitedJob.Inc()
		}

		permanent := animation.Permanent(err)
		if permanent || lastAttempt(ctx) {
			outcome = domain.JobStatusFailed
			s.fail(ctx, job, err)
		}
		if permanent {
			return fmt.Errorf("render job %s: %v: %w", job.ID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("render job %s: %w", job.ID, err)
	}

	outputs := append(append([]string(nil), out.Frames...), out.Masks...)
	if _, err := s.jobs.Complete(ctx, job.ID, outputs); err != nil {
		s.logger.Error("job completion update failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	s.metrics.framesTotal.Add(float64(len(out.Frames)))
	s.metrics.masksTotal.Add(float64(len(out.Masks)))
	s.notify(ctx, job, webhook.Event{
		Type:    webhook.EventCompleted,
		JobID:   job.ID,
		Status:  domain.JobStatusSucceeded,
		Outputs: out.Frames,
		Masks:   out.Masks,
		At:      time.Now().UTC(),
	})

	s.logger.Info("animation rendered",
		zap.String("job_id", job.ID),
		zap.Int("frames", len(out.Frames)),
		zap.Int("masks", len(out.Masks)),
		zap.Duration("elapsed", time.Since(startedAt)),
	)
	outcome = domain.JobStatusSucceeded
	span.SetStatus(codes.Ok, "rendered")
	return nil
}

func (s *Server) render(ctx context.Context, job domain.AnimationJob) (animation.Output, error) {
	source, err := s.source.ReadImage(ctx, job.SourceKey)
	if err != nil {
		return animation.Output{}, fmt.Errorf("read source: %w", err)
	}
	sink, err := s.sinks(job.ID)
	if err != nil {
		return animation.Output{}, fmt.Errorf("open sink: %w", err)
	}
	return s.renderer.Render(ctx, job, source, sink)
}

func (s *Server) fail(ctx context.Context, job domain.AnimationJob, cause error) {
	if _, err := s.jobs.Fail(ctx, job.ID, cause.Error()); err != nil {
		s.logger.Error("job failure update failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	s.notify(ctx, job, webhook.Event{
		Type:   webhook.EventFailed,
		JobID:  job.ID,
		Status: domain.JobStatusFailed,
		Error:  cause.Error(),
		At:     time.Now().UTC(),
	})
}

func (s *Server) notify(ctx context.Context, job domain.AnimationJob, ev webhook.Event) {
	if s.notifier == nil || job.WebhookURL == "" {
		return
	}
	if err := s.notifier.Send(ctx, job.WebhookURL, ev); err != nil {
		s.logger.Warn("webhook delivery failed",
			zap.String("job_id", job.ID),
			zap.String("event", ev.Type),
			zap.Error(err),
		)
	}
}

func (s *Server) updateJobStatus(ctx context.Context, jobID, status string) {
	if _, err := s.jobs.UpdateStatus(ctx, jobID, status); err != nil {
		s.logger.Error("job status update failed",
			zap.String("job_id", jobID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

// lastAttempt reports whether asynq will not retry the current task again.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return ok && retried >= maxRetry
}
