package keyframe

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// bspline is an interpolating B-spline of degree k. Knots follow the
// not-a-knot convention for odd degrees and shifted midpoints for
// quadratics, so a degree-k spline reproduces degree-k polynomials exactly.
type bspline struct {
	knots []float64
	k     int
	coef  []float64
}

func fitSpline(xs, ys []float64, k int) (*bspline, error) {
	n := len(xs)
	if n < k+1 {
		return nil, fmt.Errorf("degree %d spline needs at least %d points, got %d", k, k+1, n)
	}

	knots := splineKnots(xs, k)
	a := mat.NewDense(n, n, nil)
	for i, x := range xs {
		a.SetRow(i, basis(knots, k, x))
	}

	var c mat.VecDense
	if err := c.SolveVec(a, mat.NewVecDense(n, append([]float64(nil), ys...))); err != nil {
		return nil, fmt.Errorf("solve collocation system: %w", err)
	}

	coef := make([]float64, n)
	for i := range coef {
		coef[i] = c.AtVec(i)
	}
	return &bspline{knots: knots, k: k, coef: coef}, nil
}

func (s *bspline) Predict(x float64) float64 {
	var sum float64
	for i, b := range basis(s.knots, s.k, x) {
		sum += b * s.coef[i]
	}
	return sum
}

func splineKnots(xs []float64, k int) []float64 {
	n := len(xs)
	var interior []float64
	if k == 2 {
		for i := 1; i <= n-3; i++ {
			interior = append(interior, (xs[i]+xs[i+1])/2)
		}
	} else {
		m := (k - 1) / 2
		interior = append(interior, xs[m+1:n-m-1]...)
	}

	knots := make([]float64, 0, n+k+1)
	for i := 0; i <= k; i++ {
		knots = append(knots, xs[0])
	}
	knots = append(knots, interior...)
	for i := 0; i <= k; i++ {
		knots = append(knots, xs[n-1])
	}
	return knots
}

// basis evaluates every degree-k basis function at x with the Cox-de Boor
// recurrence. x must lie within the outer knots.
func basis(knots []float64, k int, x float64) []float64 {
	count := len(knots) - k - 1
	n := make([]float64, len(knots)-1)
	n[knotSpan(knots, k, x)] = 1

	for d := 1; d <= k; d++ {
		for i := 0; i < len(knots)-1-d; i++ {
			var v float64
			if den := knots[i+d] - knots[i]; den > 0 {
				v += (x - knots[i]) / den * n[i]
			}
			if den := knots[i+d+1] - knots[i+1]; den > 0 {
				v += (knots[i+d+1] - x) / den * n[i+1]
			}
			n[i] = v
		}
	}
	return n[:count]
}

func knotSpan(knots []float64, k int, x float64) int {
	count := len(knots) - k - 1
	for l := k; l < count-1; l++ {
		if x < knots[l+1] {
			return l
		}
	}
	return count - 1
}
