// Package animation renders animation jobs frame by frame through the
// transform pipeline.
package animation

import (
	"errors"
	"fmt"

	"github.com/dunamismax/pixelgen/internal/domain"
	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/dunamismax/pixelgen/pkg/imagecodec"
	"github.com/dunamismax/pixelgen/pkg/keyframe"
	"github.com/dunamismax/pixelgen/pkg/options"
	"github.com/dunamismax/pixelgen/pkg/prompts"
	"github.com/dunamismax/pixelgen/pkg/xform"
)

var ErrInvalidPlan = errors.New("invalid animation plan")

// Plan holds every curve of a job expanded to one value per frame.
type Plan struct {
	Frames int
	Mode   string
	Border string

	Angle        keyframe.Series
	Zoom         keyframe.Series
	TranslationX keyframe.Series
	TranslationY keyframe.Series
	TranslationZ keyframe.Series
	RotationX    keyframe.Series
	RotationY    keyframe.Series
	RotationZ    keyframe.Series
	NearPlane    keyframe.Series
	FarPlane     keyframe.Series
	FOV          keyframe.Series
	InitBlend    keyframe.Series

	prompts map[int]string
	prompt  string
}

func NewPlan(job domain.AnimationJob) (*Plan, error) {
	if job.MaxFrames < 1 {
		return nil, fmt.Errorf("%w: max_frames must be positive, got %d", ErrInvalidPlan, job.MaxFrames)
	}
	method, err := keyframe.ParseMethod(job.Interpolation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	p := &Plan{Frames: job.MaxFrames, Mode: job.Mode, Border: job.BorderMode, prompt: job.Prompt}
	targets := map[string]*keyframe.Series{
		"angle":         &p.Angle,
		"zoom":          &p.Zoom,
		"translation_x": &p.TranslationX,
		"translation_y": &p.TranslationY,
		"translation_z": &p.TranslationZ,
		"rotation_3d_x": &p.RotationX,
		"rotation_3d_y": &p.RotationY,
		"rotation_3d_z": &p.RotationZ,
		"near_plane":    &p.NearPlane,
		"far_plane":     &p.FarPlane,
		"fov":           &p.FOV,
		"init_blend":    &p.InitBlend,
	}
	for _, c := range job.Curves.WithDefaults().Named() {
		keys, err := keyframe.ParseFloats(c.Keyframes)
		if err != nil {
			return nil, fmt.Errorf("curve %s: %w", c.Name, err)
		}
		series, err := keyframe.Inbetweens(keys, job.MaxFrames, method, false)
		if err != nil {
			return nil, fmt.Errorf("curve %s: %w", c.Name, err)
		}
		if len(series) == 0 {
			return nil, fmt.Errorf("%w: curve %s has no keyframes within %d frames", ErrInvalidPlan, c.Name, job.MaxFrames)
		}
		*targets[c.Name] = series
	}

	// A prompt written as keyframes switches text over time; anything else
	// is used as is.
	if scheduled, err := keyframe.Parse(job.Prompt); err == nil && len(scheduled) > 0 {
		p.prompts = scheduled
	}
	return p, nil
}

// Operation builds the warp for frame f.
func (p *Plan) Operation(f int) (*generation.TransformOperation, error) {
	switch p.Mode {
	case domain.Mode2D:
		return xform.Warp2D(p.TranslationX[f], p.TranslationY[f], p.Angle[f], p.Zoom[f], p.Border)
	case domain.Mode3D:
		return xform.Warp3D(
			p.TranslationX[f], p.TranslationY[f], p.TranslationZ[f],
			p.RotationX[f], p.RotationY[f], p.RotationZ[f],
			p.NearPlane[f], p.FarPlane[f], p.FOV[f],
			p.Border,
		)
	default:
		return nil, fmt.Errorf("%w: unsupported mode %q", ErrInvalidPlan, p.Mode)
	}
}

// Prompt returns the prompt text active at frame f.
func (p *Plan) Prompt(f int) string {
	if len(p.prompts) == 0 {
		return p.prompt
	}
	weighted, err := prompts.Weights(p.prompts, f, false)
	if err != nil || len(weighted) == 0 {
		return p.prompt
	}
	return weighted[0].Prompt
}

// Permanent reports whether err comes from the job's own parameters or a
// protocol violation, so that running it again cannot succeed.
func Permanent(err error) bool {
	for _, target := range []error{
		ErrInvalidPlan,
		keyframe.ErrFormat,
		options.ErrInvalidOption,
		xform.ErrInvalidCamera,
		xform.ErrMultipleMasks,
		imagecodec.ErrShapeMismatch,
		imagecodec.ErrUnsupportedImage,
		imagecodec.ErrEmptyImage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
