package affine

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"imgkit/pkg/geometry"
)

// Estimate fits the matrix mapping from onto to in the least-squares sense.
// Both coordinates share one design matrix [x y 1], so the fit solves a
// single n×3 system with two right-hand sides. At least three non-collinear
// pairs are needed.
func Estimate(from, to []geometry.Point2D) (*Matrix, error) {
	if len(from) != len(to) {
		return nil, fmt.Errorf("affine: %d points mapped onto %d", len(from), len(to))
	}
	n := len(from)
	if n < 3 {
		return nil, fmt.Errorf("affine: %d point pairs, need 3", n)
	}

	design := mat.NewDense(n, 3, nil)
	targets := mat.NewDense(n, 2, nil)
	for i, p := range from {
		design.SetRow(i, []float64{p.X, p.Y, 1})
		targets.SetRow(i, []float64{to[i].X, to[i].Y})
	}

	var coef mat.Dense
	if err := coef.Solve(design, targets); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularMatrix, err)
	}
	// Column 0 holds (a, b, tx), column 1 holds (c, d, ty).
	return NewMatrixFromElements(
		coef.At(0, 0), coef.At(1, 0), coef.At(2, 0),
		coef.At(0, 1), coef.At(1, 1), coef.At(2, 1),
	), nil
}

// RANSACOptions controls EstimateRANSAC.
type RANSACOptions struct {
	Iterations int     // random minimal fits to try
	Tolerance  float64 // largest residual, in pixels, of an inlier
	Seed       int64
}

// DefaultRANSACOptions returns 500 iterations with a 1.5 pixel tolerance.
func DefaultRANSACOptions() RANSACOptions {
	return RANSACOptions{Iterations: 500, Tolerance: 1.5, Seed: 1}
}

// EstimateRANSAC fits from onto to while ignoring outliers. Each iteration
// fits three random pairs and counts the pairs it maps within Tolerance; the
// largest consensus set is refitted with Estimate. It returns the indices of
// that set in ascending order.
func EstimateRANSAC(from, to []geometry.Point2D, opts RANSACOptions) (*Matrix, []int, error) {
	if len(from) != len(to) {
		return nil, nil, fmt.Errorf("affine: %d points mapped onto %d", len(from), len(to))
	}
	if len(from) < 3 {
		return nil, nil, fmt.Errorf("affine: %d point pairs, need 3", len(from))
	}
	if opts.Iterations < 1 || !(opts.Tolerance > 0) {
		return nil, nil, fmt.Errorf("affine: %d iterations with tolerance %g", opts.Iterations, opts.Tolerance)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	var consensus []int
	for iter := 0; iter < opts.Iterations && len(consensus) < len(from); iter++ {
		pick := rng.Perm(len(from))[:3]
		m, err := Estimate(
			[]geometry.Point2D{from[pick[0]], from[pick[1]], from[pick[2]]},
			[]geometry.Point2D{to[pick[0]], to[pick[1]], to[pick[2]]})
		if err != nil {
			continue
		}
		if agree := within(m, from, to, opts.Tolerance); len(agree) > len(consensus) {
			consensus = agree
		}
	}
	if len(consensus) < 3 {
		return nil, nil, fmt.Errorf("%w: no three point pairs agree", ErrSingularMatrix)
	}

	sub := func(ps []geometry.Point2D) []geometry.Point2D {
		out := make([]geometry.Point2D, len(consensus))
		for i, idx := range consensus {
			out[i] = ps[idx]
		}
		return out
	}
	m, err := Estimate(sub(from), sub(to))
	if err != nil {
		return nil, nil, err
	}
	return m, consensus, nil
}

// within returns the indices of pairs that m maps within tol.
func within(m *Matrix, from, to []geometry.Point2D, tol float64) []int {
	var idx []int
	for i, p := range from {
		if m.TransformPoint(p).Distance(to[i]) <= tol {
			idx = append(idx, i)
		}
	}
	return idx
}

// RMSError returns the root mean square distance between m(from[i]) and
// to[i], or +Inf when the sets are empty or differ in length.
func RMSError(m *Matrix, from, to []geometry.Point2D) float64 {
	if len(from) != len(to) || len(from) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i, p := range from {
		d := m.TransformPoint(p).Distance(to[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(from)))
}
