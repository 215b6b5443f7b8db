package xform

import (
	"errors"
	"fmt"

	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/dunamismax/pixelgen/pkg/options"
)

var ErrInvalidCamera = errors.New("invalid camera parameters")

// Warp2D builds a 2D warp. Only the border mode is validated.
func Warp2D(dx, dy, rotate, scale float64, border string) (*generation.TransformOperation, error) {
	mode, err := options.BorderMode2D(border)
	if err != nil {
		return nil, err
	}
	return &generation.TransformOperation{Warp2D: &generation.TransformWarp2D{
		BorderMode: mode,
		Rotate:     float32(rotate),
		Scale:      float32(scale),
		TranslateX: float32(dx),
		TranslateY: float32(dy),
	}}, nil
}

// Warp3D builds a 3D warp. The camera needs near < far and a positive fov,
// and the border mode must be valid for 3D warps.
func Warp3D(dx, dy, dz, rx, ry, rz, near, far, fov float64, border string) (*generation.TransformOperation, error) {
	if !(near < far) {
		return nil, fmt.Errorf("%w: must satisfy near < far, got near=%g, far=%g", ErrInvalidCamera, near, far)
	}
	if !(fov > 0) {
		return nil, fmt.Errorf("%w: fov must be greater than 0, got fov=%g", ErrInvalidCamera, fov)
	}

	mode, err := options.BorderMode3D(border)
	if err != nil {
		return nil, err
	}
	return &generation.TransformOperation{Warp3D: &generation.TransformWarp3D{
		BorderMode: mode,
		TranslateX: float32(dx),
		TranslateY: float32(dy),
		TranslateZ: float32(dz),
		RotateX:    float32(rx),
		RotateY:    float32(ry),
		RotateZ:    float32(rz),
		NearPlane:  float32(near),
		FarPlane:   float32(far),
		FOV:        float32(fov),
	}}, nil
}
