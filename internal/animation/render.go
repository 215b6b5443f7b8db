package animation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/dunamismax/pixelgen/internal/domain"
	"github.com/dunamismax/pixelgen/internal/ratelimit"
	"github.com/dunamismax/pixelgen/pkg/filename"
	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/dunamismax/pixelgen/pkg/imagecodec"
	"github.com/dunamismax/pixelgen/pkg/xform"
	"go.uber.org/zap"
)

type Transformer interface {
	Transform(ctx context.Context, images []image.Image, ops []*generation.TransformOperation) (xform.Result, error)
}

type Sink interface {
	Write(ctx context.Context, name string, img image.Image) (string, error)
}

type Output struct {
	Frames []string
	Masks  []string
}

type Renderer struct {
	xf          Transformer
	logger      *zap.Logger
	maxFilename int
	now         func() time.Time
}

func NewRenderer(xf Transformer, logger *zap.Logger, maxFilename int) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFilename <= 0 {
		maxFilename = filename.DefaultMaxLength
	}
	return &Renderer{xf: xf, logger: logger, maxFilename: maxFilename, now: time.Now}
}

// Render writes the source as frame 0, then warps each following frame from
// the previous one, blending it back toward the source by init_blend.
// Locations are returned in frame order.
func (r *Renderer) Render(ctx context.Context, job domain.AnimationJob, source image.Image, sink Sink) (Output, error) {
	plan, err := NewPlan(job)
	if err != nil {
		return Output{}, err
	}

	ts := r.now().Unix()
	var out Output

	loc, err := sink.Write(ctx, r.frameName(job.Prefix, plan, ts, 0), source)
	if err != nil {
		return out, fmt.Errorf("write frame 0: %w", err)
	}
	out.Frames = append(out.Frames, loc)

	prev := source
	for f := 1; f < plan.Frames; f++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		op, err := plan.Operation(f)
		if err != nil {
			return out, fmt.Errorf("frame %d: %w", f, err)
		}

		res, err := r.transform(ctx, job.ID, f, prev, op)
		if err != nil {
			return out, fmt.Errorf("transform frame %d: %w", f, err)
		}
		if len(res.Images) == 0 {
			return out, fmt.Errorf("transform frame %d: engine returned no images", f)
		}

		next := res.Images[0]
		if blend := plan.InitBlend[f]; blend > 0 {
			if next, err = imagecodec.Mix(next, source, blend); err != nil {
				return out, fmt.Errorf("blend frame %d: %w", f, err)
			}
		}

		loc, err := sink.Write(ctx, r.frameName(job.Prefix, plan, ts, f), next)
		if err != nil {
			return out, fmt.Errorf("write frame %d: %w", f, err)
		}
		out.Frames = append(out.Frames, loc)

		if res.Mask != nil {
			loc, err := sink.Write(ctx, r.frameName(job.Prefix+"mask_", plan, ts, f), res.Mask)
			if err != nil {
				return out, fmt.Errorf("write mask %d: %w", f, err)
			}
			out.Masks = append(out.Masks, loc)
		}

		r.logger.Debug("frame rendered",
			zap.String("job_id", job.ID),
			zap.Int("frame", f),
			zap.String("op", op.Kind()),
			zap.Bool("mask", res.Mask != nil),
		)
		prev = next
	}
	return out, nil
}

// minLimitWait keeps a limiter that reports no delay from being polled in a
// tight loop.
const minLimitWait = 50 * time.Millisecond

// transform retries a frame rejected by the outbound limiter once the
// limiter's wait has passed. Other errors and ctx cancellation end the loop.
func (r *Renderer) transform(ctx context.Context, jobID string, f int, prev image.Image, op *generation.TransformOperation) (xform.Result, error) {
	for {
		res, err := r.xf.Transform(ctx, []image.Image{prev}, []*generation.TransformOperation{op})
		var limited *ratelimit.LimitedError
		if !errors.As(err, &limited) {
			return res, err
		}

		wait := max(limited.RetryAfter, minLimitWait)
		r.logger.Debug("frame throttled",
			zap.String("job_id", jobID),
			zap.Int("frame", f),
			zap.Duration("retry_after", wait),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return xform.Result{}, fmt.Errorf("%w: %w", err, ctx.Err())
		case <-timer.C:
		}
	}
}

func (r *Renderer) frameName(prefix string, plan *Plan, ts int64, f int) string {
	return filename.TruncateFit(prefix, plan.Prompt(f), ".png", ts, f, r.maxFilename)
}
