package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dunamismax/pixelgen/internal/domain"
	"github.com/dunamismax/pixelgen/internal/queue"
	"github.com/dunamismax/pixelgen/internal/storage"
	"github.com/dunamismax/pixelgen/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type queueEnqueuer interface {
	EnqueueRenderAnimation(ctx context.Context, payload queue.RenderAnimationPayload) (*asynq.TaskInfo, error)
}

type objectStorage interface {
	PresignedPutURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

type Options struct {
	Queue      queueEnqueuer
	Jobs       store.JobStore
	Storage    objectStorage
	PresignTTL time.Duration
	// RateLimiter throttles job creation and start calls per subject. The
	// subject is read from RateLimitHeader, falling back to "anonymous".
	RateLimiter     RateLimiter
	RateLimitHeader string
	Tracer          trace.Tracer
}

type Server struct {
	logger          *zap.Logger
	queue           queueEnqueuer
	jobs            store.JobStore
	storage         objectStorage
	presignTTL      time.Duration
	rateLimiter     RateLimiter
	rateLimitHeader string
	tracer          trace.Tracer
	metrics         *metrics
	engine          *gin.Engine
}

func NewServer(logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 15 * time.Minute
	}
	if opts.Storage == nil {
		opts.Storage = unavailableObjectStorage{}
	}
	if opts.RateLimitHeader == "" {
		opts.RateLimitHeader = "X-User-ID"
	}

	s := &Server{
		logger:          logger,
		queue:           opts.Queue,
		jobs:            opts.Jobs,
		storage:         opts.Storage,
		presignTTL:      opts.PresignTTL,
		rateLimiter:     opts.RateLimiter,
		rateLimitHeader: opts.RateLimitHeader,
		tracer:          opts.Tracer,
		metrics:         newMetrics(),
		engine:          gin.New(),
	}
	s.routes()
	return s
}

type unavailableObjectStorage struct{}

func (unavailableObjectStorage) PresignedPutURL(context.Context, string, time.Duration) (string, error) {
	return "", errors.New("object storage is unavailable")
}

func (unavailableObjectStorage) ObjectExists(context.Context, string) (bool, error) {
	return false, errors.New("object storage is unavailable")
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery(), s.withTracing(), s.metrics.withHTTPMetrics(), s.withAccessLog())

	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.metricsHandler()))

	v1 := s.engine.Group("/v1/animations")
	v1.POST("", s.withRateLimit(), s.handleCreateAnimation)
	v1.GET("/:id", s.handleGetAnimation)
	v1.POST("/:id/start", s.withRateLimit(), s.handleStartAnimation)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateAnimation(c *gin.Context) {
	var req domain.CreateAnimationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid JSON body: %v", err)})
		return
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	jobID := uuid.NewString()
	sourceKey := storage.SourceKey(jobID)

	uploadURL, err := s.storage.PresignedPutURL(ctx, sourceKey, s.presignTTL)
	if err != nil {
		s.logger.Error("generate presigned url failed", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate upload URL"})
		return
	}

	job := domain.AnimationJob{
		ID:            jobID,
		Status:        domain.JobStatusCreated,
		Prompt:        req.Prompt,
		Prefix:        req.Prefix,
		MaxFrames:     req.MaxFrames,
		Mode:          req.Mode,
		Interpolation: req.Interpolation,
		BorderMode:    req.BorderMode,
		Curves:        req.Curves,
		WebhookURL:    req.WebhookURL,
		SourceKey:     sourceKey,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.logger.Error("create job failed", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	s.logger.Info("animation created",
		zap.String("job_id", jobID),
		zap.String("mode", job.Mode),
		zap.Int("frames", job.MaxFrames),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": job.Status,
		"upload": gin.H{
			"object_key":        sourceKey,
			"presigned_put_url": uploadURL,
			"expires_in":        int(s.presignTTL.Seconds()),
		},
		"start_url": fmt.Sprintf("/v1/animations/%s/start", job.ID),
	})
}

func (s *Server) handleGetAnimation(c *gin.Context) {
	job, ok := s.loadJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleStartAnimation(c *gin.Context) {
	job, ok := s.loadJob(c)
	if !ok {
		return
	}
	if job.Status != domain.JobStatusCreated {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("job is already %s", job.Status)})
		return
	}

	ctx := c.Request.Context()
	exists, err := s.storage.ObjectExists(ctx, job.SourceKey)
	if err != nil {
		s.logger.Error("source object check failed", zap.String("job_id", job.ID), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("source object check failed: %v", err)})
		return
	}
	if !exists {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("source object is missing: %s", job.SourceKey)})
		return
	}

	info, err := s.queue.EnqueueRenderAnimation(ctx, queue.RenderAnimationPayload{
		JobID:       job.ID,
		SourceKey:   job.SourceKey,
		RequestedAt: time.Now().UTC(),
	})
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "job is already started"})
		return
	}
	if err != nil {
		s.logger.Error("enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}
	s.metrics.queueEnqueued.WithLabelValues(info.Queue).Inc()

	if _, err := s.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusQueued); err != nil {
		s.logger.Error("update status failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":      job.ID,
		"status":      domain.JobStatusQueued,
		"queue":       info.Queue,
		"task_id":     info.ID,
		"state":       info.State.String(),
		"enqueued_at": info.NextProcessAt,
	})
}

func (s *Server) loadJob(c *gin.Context) (domain.AnimationJob, bool) {
	jobID := c.Param("id")
	job, ok, err := s.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		s.logger.Error("fetch job failed", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return domain.AnimationJob{}, false
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return domain.AnimationJob{}, false
	}
	return job, true
}

func (s *Server) withAccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("route", routeLabel(c)),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
