// Package affine provides 2D affine matrices and resamples bitmaps through
// them.
//
// A Matrix maps source coordinates to destination coordinates:
//
//	[a b tx]
//	[c d ty]
//	[0 0 1 ]
//
// so that x' = a·x + b·y + tx and y' = c·x + d·y + ty. Composition methods
// take an Order: Prepend applies the new operation before the accumulated
// transform (M' = M·T), Append applies it after (M' = T·M).
package affine

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"imgkit/pkg/geometry"
)

// ErrSingularMatrix is returned when a matrix cannot be inverted.
var ErrSingularMatrix = errors.New("affine: singular matrix")

// singularTolerance is the smallest |det| treated as invertible.
const singularTolerance = 1e-12

// Order selects how an operation is composed with a matrix.
type Order int

const (
	Prepend Order = iota
	Append
)

func (o Order) String() string {
	if o == Append {
		return "append"
	}
	return "prepend"
}

// Matrix is a 3×3 homogeneous affine matrix.
type Matrix struct {
	m *mat.Dense
}

// NewMatrix returns the identity matrix.
func NewMatrix() *Matrix {
	return &Matrix{m: identity()}
}

// NewMatrixFromElements builds a matrix from its six affine elements.
func NewMatrixFromElements(a, b, tx, c, d, ty float64) *Matrix {
	return &Matrix{m: mat.NewDense(3, 3, []float64{
		a, b, tx,
		c, d, ty,
		0, 0, 1,
	})}
}

func identity() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

// Elements returns the six affine elements.
func (m *Matrix) Elements() (a, b, tx, c, d, ty float64) {
	return m.m.At(0, 0), m.m.At(0, 1), m.m.At(0, 2),
		m.m.At(1, 0), m.m.At(1, 1), m.m.At(1, 2)
}

// Reset restores the identity.
func (m *Matrix) Reset() {
	m.m = identity()
}

// Clone returns an independent copy.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{m: mat.DenseCopyOf(m.m)}
}

// IsIdentity reports whether m is exactly the identity.
func (m *Matrix) IsIdentity() bool {
	return mat.Equal(m.m, identity())
}

// Determinant returns the determinant of the linear part.
func (m *Matrix) Determinant() float64 {
	return mat.Det(m.m)
}

// Multiply composes other with m.
func (m *Matrix) Multiply(other *Matrix, order Order) *Matrix {
	var out mat.Dense
	if order == Append {
		out.Mul(other.m, m.m)
	} else {
		out.Mul(m.m, other.m)
	}
	m.m = &out
	return m
}

// Translate composes a translation by (tx, ty).
func (m *Matrix) Translate(tx, ty float64, order Order) *Matrix {
	return m.Multiply(NewMatrixFromElements(1, 0, tx, 0, 1, ty), order)
}

// Scale composes a scale by (sx, sy) about the origin.
func (m *Matrix) Scale(sx, sy float64, order Order) *Matrix {
	return m.Multiply(NewMatrixFromElements(sx, 0, 0, 0, sy, 0), order)
}

// Rotate composes a rotation by radians about the origin. With y pointing
// down, positive angles turn clockwise on screen.
func (m *Matrix) Rotate(radians float64, order Order) *Matrix {
	sin, cos := math.Sincos(radians)
	return m.Multiply(NewMatrixFromElements(cos, -sin, 0, sin, cos, 0), order)
}

// RotateAt composes a rotation about the point (cx, cy).
func (m *Matrix) RotateAt(radians, cx, cy float64, order Order) *Matrix {
	r := NewMatrix().Translate(-cx, -cy, Append).Rotate(radians, Append).Translate(cx, cy, Append)
	return m.Multiply(r, order)
}

// Invert replaces m with its inverse. m is unchanged on error.
func (m *Matrix) Invert() error {
	inv, err := m.Inverse()
	if err != nil {
		return err
	}
	m.m = inv.m
	return nil
}

// Inverse returns the inverse of m.
func (m *Matrix) Inverse() (*Matrix, error) {
	if det := m.Determinant(); math.Abs(det) < singularTolerance || math.IsNaN(det) {
		return nil, fmt.Errorf("%w: determinant %g", ErrSingularMatrix, det)
	}
	var inv mat.Dense
	if err := inv.Inverse(m.m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularMatrix, err)
	}
	return &Matrix{m: &inv}, nil
}

// TransformPoint maps p through m.
func (m *Matrix) TransformPoint(p geometry.Point2D) geometry.Point2D {
	a, b, tx, c, d, ty := m.Elements()
	return geometry.Point2D{
		X: a*p.X + b*p.Y + tx,
		Y: c*p.X + d*p.Y + ty,
	}
}

// TransformPoints maps every point of ps in place.
func (m *Matrix) TransformPoints(ps []geometry.Point2D) {
	for i, p := range ps {
		ps[i] = m.TransformPoint(p)
	}
}

// Bounds returns the integer rectangle covering r after mapping its corners
// through m.
func (m *Matrix) Bounds(r geometry.Rect) geometry.Rect {
	corners := r.Corners()
	m.TransformPoints(corners)
	return geometry.PolygonBounds(corners)
}

// Footprint maps r through m and clips the resulting quadrilateral to clip.
// It returns nil when the two do not overlap.
func (m *Matrix) Footprint(r, clip geometry.Rect) []geometry.Point2D {
	corners := r.Corners()
	m.TransformPoints(corners)
	return geometry.ClipToRect(corners, clip)
}

// Equal reports whether m and other agree element-wise within tol.
func (m *Matrix) Equal(other *Matrix, tol float64) bool {
	return mat.EqualApprox(m.m, other.m, tol)
}

func (m *Matrix) String() string {
	a, b, tx, c, d, ty := m.Elements()
	return fmt.Sprintf("[%g %g %g; %g %g %g]", a, b, tx, c, d, ty)
}
