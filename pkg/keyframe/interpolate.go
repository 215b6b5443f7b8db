package keyframe

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/interp"
)

type Method string

const (
	Linear    Method = "Linear"
	Quadratic Method = "Quadratic"
	Cubic     Method = "Cubic"
)

func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return Linear, nil
	case "quadratic":
		return Quadratic, nil
	case "cubic":
		return Cubic, nil
	default:
		return "", fmt.Errorf("unknown interpolation method %q", s)
	}
}

// EffectiveMethod degrades the requested method when there are too few
// keyframes for it: Cubic needs more than three, Quadratic more than two.
func EffectiveMethod(m Method, keyframes int) Method {
	if m == Cubic && keyframes <= 3 {
		m = Quadratic
	}
	if m == Quadratic && keyframes <= 2 {
		m = Linear
	}
	return m
}

// Series holds one value per frame.
type Series []float64

// Ints truncates every value toward zero.
func (s Series) Ints() []int {
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = int(v)
	}
	return out
}

// Inbetweens expands keys into a Series of length maxFrames.
//
// Frame 0 takes the value of the earliest keyframe and frame maxFrames-1
// the value of the latest one; the gaps in between are filled with the
// effective interpolation method. With integer set, values are truncated
// toward zero afterwards. Keyframes outside [0, maxFrames) are ignored and
// an empty map yields an empty Series.
func Inbetweens(keys map[int]float64, maxFrames int, method Method, integer bool) (Series, error) {
	if maxFrames < 1 {
		return nil, fmt.Errorf("max frames must be positive, got %d", maxFrames)
	}

	frames := make([]int, 0, len(keys))
	for f := range keys {
		if f >= 0 && f < maxFrames {
			frames = append(frames, f)
		}
	}
	if len(frames) == 0 {
		return nil, nil
	}
	sort.Ints(frames)

	series := make(Series, maxFrames)
	for i := range series {
		series[i] = math.NaN()
	}
	for _, f := range frames {
		series[f] = keys[f]
	}

	method = EffectiveMethod(method, len(frames))

	series[0] = keys[frames[0]]
	series[maxFrames-1] = keys[frames[len(frames)-1]]

	if err := fillGaps(series, method); err != nil {
		return nil, err
	}

	if integer {
		for i, v := range series {
			series[i] = math.Trunc(v)
		}
	}
	return series, nil
}

type predictor interface {
	Predict(x float64) float64
}

func fillGaps(series Series, method Method) error {
	var xs, ys []float64
	for i, v := range series {
		if !math.IsNaN(v) {
			xs = append(xs, float64(i))
			ys = append(ys, v)
		}
	}
	if len(xs) == len(series) {
		return nil
	}

	var (
		fn  predictor
		err error
	)
	switch method {
	case Linear:
		pl := &interp.PiecewiseLinear{}
		err = pl.Fit(xs, ys)
		fn = pl
	case Quadratic:
		fn, err = fitSpline(xs, ys, 2)
	case Cubic:
		fn, err = fitSpline(xs, ys, 3)
	default:
		return fmt.Errorf("unknown interpolation method %q", method)
	}
	if err != nil {
		return fmt.Errorf("fit %s interpolation: %w", strings.ToLower(string(method)), err)
	}

	for i, v := range series {
		if math.IsNaN(v) {
			series[i] = fn.Predict(float64(i))
		}
	}
	return nil
}
