// Package xform builds warp operations and runs them against a remote
// generation engine.
package xform

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/dunamismax/pixelgen/pkg/imagecodec"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultEngineID = "transform-server-v1"

var (
	ErrMultipleMasks = errors.New("transform response contains more than one mask")
	ErrNoImages      = errors.New("transform requires at least one input image")
)

// Generator opens a Generate stream. *generation.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req *generation.Request) (generation.AnswerStream, error)
}

// Limiter is consulted once per Transform call before the request is sent.
// A non-nil error aborts the call.
type Limiter interface {
	Acquire(ctx context.Context, key string) error
}

type Result struct {
	Images []image.Image
	Mask   image.Image
}

type Pipeline struct {
	gen      Generator
	engineID string
	limiter  Limiter
	metrics  *Metrics
	logger   *zap.Logger
	tracer   trace.Tracer
}

type Option func(*Pipeline)

func WithEngineID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.engineID = id
		}
	}
}

func WithLimiter(l Limiter) Option {
	return func(p *Pipeline) {
		p.limiter = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPipeline(gen Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:      gen,
		engineID: DefaultEngineID,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("github.com/dunamismax/pixelgen/pkg/xform"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) EngineID() string {
	return p.engineID
}

// Transform sends every image as an init prompt together with ops as one
// transform sequence, then collects the returned images in arrival order
// and at most one mask. Stream errors are returned as received; nothing is
// retried.
func (p *Pipeline) Transform(ctx context.Context, images []image.Image, ops []*generation.TransformOperation) (res Result, err error) {
	if len(images) == 0 {
		return Result{}, ErrNoImages
	}

	ctx, span := p.tracer.Start(ctx, "xform.transform", trace.WithAttributes(
		attribute.String("transform.engine", p.engineID),
		attribute.Int("transform.images", len(images)),
		attribute.Int("transform.operations", len(ops)),
	))
	start := time.Now()
	defer func() {
		status := "succeeded"
		if err != nil {
			status = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		p.metrics.observeRequest(p.engineID, status, time.Since(start).Seconds())
		span.End()
	}()

	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx, p.engineID); err != nil {
			return Result{}, err
		}
	}

	req, err := p.buildRequest(images, ops)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.String("transform.request_id", req.RequestID))

	// Returning early without draining leaves the stream open until ctx ends.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := p.gen.Generate(ctx, req)
	if err != nil {
		return Result{}, err
	}

	for {
		answer, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, err
		}
		if err := p.collect(&res, answer); err != nil {
			return Result{}, err
		}
	}

	span.SetAttributes(
		attribute.Int("transform.result_images", len(res.Images)),
		attribute.Bool("transform.result_mask", res.Mask != nil),
	)
	return res, nil
}

func (p *Pipeline) buildRequest(images []image.Image, ops []*generation.TransformOperation) (*generation.Request, error) {
	prompts := make([]*generation.Prompt, 0, len(images))
	for i, img := range images {
		prompt, err := imagecodec.ImagePrompt(img)
		if err != nil {
			return nil, fmt.Errorf("encode input image %d: %w", i, err)
		}
		prompts = append(prompts, prompt)
	}

	return &generation.Request{
		EngineID:      p.engineID,
		RequestID:     uuid.NewString(),
		RequestedType: generation.ArtifactImage,
		Prompt:        prompts,
		Image: &generation.ImageParameters{
			Transform: &generation.TransformType{
				Sequence: &generation.TransformSequence{Operations: ops},
			},
		},
	}, nil
}

func (p *Pipeline) collect(res *Result, answer *generation.Answer) error {
	for _, artifact := range answer.Artifacts {
		if artifact == nil {
			continue
		}
		p.metrics.observeArtifact(artifact.Type)

		switch artifact.Type {
		case generation.ArtifactImage:
			img, err := imagecodec.Decode(artifact.Binary)
			if err != nil {
				return fmt.Errorf("decode image artifact %d: %w", artifact.ID, err)
			}
			res.Images = append(res.Images, img)
		case generation.ArtifactMask:
			if res.Mask != nil {
				return fmt.Errorf("%w: answer %s artifact %d", ErrMultipleMasks, answer.AnswerID, artifact.ID)
			}
			img, err := imagecodec.Decode(artifact.Binary)
			if err != nil {
				return fmt.Errorf("decode mask artifact %d: %w", artifact.ID, err)
			}
			res.Mask = img
		default:
			p.logger.Debug("skipping artifact",
				zap.String("answer_id", answer.AnswerID),
				zap.Uint64("artifact_id", artifact.ID),
				zap.Stringer("type", artifact.Type),
			)
			continue
		}

		p.logger.Debug("received artifact",
			zap.String("answer_id", answer.AnswerID),
			zap.Uint64("artifact_id", artifact.ID),
			zap.Stringer("type", artifact.Type),
			zap.Int("bytes", len(artifact.Binary)),
		)
	}
	return nil
}
