package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dunamismax/pixelgen/pkg/keyframe"
	"github.com/dunamismax/pixelgen/pkg/options"
)

const (
	JobStatusCreated    = "created"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"

	Mode2D = "2d"
	Mode3D = "3d"

	MaxAnimationFrames = 10000
)

// Curves holds one keyframe string per animated parameter. Empty fields
// take the values from DefaultCurves.
type Curves struct {
	Angle        string `json:"angle,omitempty"`
	Zoom         string `json:"zoom,omitempty"`
	TranslationX string `json:"translation_x,omitempty"`
	TranslationY string `json:"translation_y,omitempty"`
	TranslationZ string `json:"translation_z,omitempty"`
	RotationX    string `json:"rotation_3d_x,omitempty"`
	RotationY    string `json:"rotation_3d_y,omitempty"`
	RotationZ    string `json:"rotation_3d_z,omitempty"`
	NearPlane    string `json:"near_plane,omitempty"`
	FarPlane     string `json:"far_plane,omitempty"`
	FOV          string `json:"fov,omitempty"`
	InitBlend    string `json:"init_blend,omitempty"`
}

var DefaultCurves = Curves{
	Angle:        "0:(0)",
	Zoom:         "0:(1)",
	TranslationX: "0:(0)",
	TranslationY: "0:(0)",
	TranslationZ: "0:(0)",
	RotationX:    "0:(0)",
	RotationY:    "0:(0)",
	RotationZ:    "0:(0)",
	NearPlane:    "0:(200)",
	FarPlane:     "0:(10000)",
	FOV:          "0:(40)",
	InitBlend:    "0:(0)",
}

func (c Curves) WithDefaults() Curves {
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&c.Angle, DefaultCurves.Angle)
	fill(&c.Zoom, DefaultCurves.Zoom)
	fill(&c.TranslationX, DefaultCurves.TranslationX)
	fill(&c.TranslationY, DefaultCurves.TranslationY)
	fill(&c.TranslationZ, DefaultCurves.TranslationZ)
	fill(&c.RotationX, DefaultCurves.RotationX)
	fill(&c.RotationY, DefaultCurves.RotationY)
	fill(&c.RotationZ, DefaultCurves.RotationZ)
	fill(&c.NearPlane, DefaultCurves.NearPlane)
	fill(&c.FarPlane, DefaultCurves.FarPlane)
	fill(&c.FOV, DefaultCurves.FOV)
	fill(&c.InitBlend, DefaultCurves.InitBlend)
	return c
}

// Named lists every curve with its JSON name, in a fixed order.
func (c Curves) Named() []NamedCurve {
	return []NamedCurve{
		{"angle", c.Angle},
		{"zoom", c.Zoom},
		{"translation_x", c.TranslationX},
		{"translation_y", c.TranslationY},
		{"translation_z", c.TranslationZ},
		{"rotation_3d_x", c.RotationX},
		{"rotation_3d_y", c.RotationY},
		{"rotation_3d_z", c.RotationZ},
		{"near_plane", c.NearPlane},
		{"far_plane", c.FarPlane},
		{"fov", c.FOV},
		{"init_blend", c.InitBlend},
	}
}

type NamedCurve struct {
	Name      string
	Keyframes string
}

type CreateAnimationRequest struct {
	Prompt        string `json:"prompt"`
	Prefix        string `json:"prefix,omitempty"`
	MaxFrames     int    `json:"max_frames"`
	Mode          string `json:"mode"`
	Interpolation string `json:"interpolation,omitempty"`
	BorderMode    string `json:"border_mode,omitempty"`
	Curves        Curves `json:"curves"`
	WebhookURL    string `json:"webhook_url,omitempty"`
}

type AnimationJob struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	Prompt        string    `json:"prompt"`
	Prefix        string    `json:"prefix"`
	MaxFrames     int       `json:"max_frames"`
	Mode          string    `json:"mode"`
	Interpolation string    `json:"interpolation"`
	BorderMode    string    `json:"border_mode"`
	Curves        Curves    `json:"curves"`
	WebhookURL    string    `json:"webhook_url,omitempty"`
	SourceKey     string    `json:"source_key"`
	Outputs       []string  `json:"outputs,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Normalize lowercases the mode, fills defaults for the interpolation
// method, border mode and curves, and returns the result.
func (r CreateAnimationRequest) Normalize() CreateAnimationRequest {
	r.Mode = strings.ToLower(strings.TrimSpace(r.Mode))
	if r.Mode == "" {
		r.Mode = Mode2D
	}
	if strings.TrimSpace(r.Interpolation) == "" {
		r.Interpolation = string(keyframe.Linear)
	}
	if strings.TrimSpace(r.BorderMode) == "" {
		r.BorderMode = "reflect"
	}
	r.Curves = r.Curves.WithDefaults()
	return r
}

// Validate checks a normalized request, including every keyframe curve.
func (r CreateAnimationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.New("prompt is required")
	}
	if r.MaxFrames < 1 || r.MaxFrames > MaxAnimationFrames {
		return fmt.Errorf("max_frames must be between 1 and %d, got %d", MaxAnimationFrames, r.MaxFrames)
	}

	switch r.Mode {
	case Mode2D:
		if _, err := options.BorderMode2D(r.BorderMode); err != nil {
			return err
		}
	case Mode3D:
		if _, err := options.BorderMode3D(r.BorderMode); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported mode: %s", r.Mode)
	}

	if _, err := keyframe.ParseMethod(r.Interpolation); err != nil {
		return err
	}

	for _, c := range r.Curves.Named() {
		if _, err := keyframe.ParseFloats(c.Keyframes); err != nil {
			return fmt.Errorf("curves.%s: %w", c.Name, err)
		}
	}
	return nil
}
