// Package blend composites overlapping images with a linear alpha ramp
// across the overlap so that no hard seam appears.
package blend

import (
	"fmt"
	"math"

	"imgkit/internal/bitmap"
	"imgkit/pkg/geometry"
)

// GradientBlendAlphaImage returns a TypeFloat image covering the
// intersection of rect1 and rect2, together with that intersection. Each
// value is the weight of the second image: with d1 the distance from the
// pixel centre to the nearest edge of rect1 that lies inside rect2, and d2
// the same for rect2, alpha = d2 / (d1 + d2). Across a straight overlap this
// ramps linearly from rect2's inner edge (0) to rect1's inner edge (1).
// Where neither rectangle has an edge inside the other, alpha is 0.5.
func GradientBlendAlphaImage(rect1, rect2 geometry.Rect) (*bitmap.Bitmap, geometry.Rect, error) {
	in := rect1.Intersect(rect2)
	if !rect1.Valid() || !rect2.Valid() || in.Empty() {
		return nil, geometry.Rect{}, fmt.Errorf("%w: %v and %v do not overlap", bitmap.ErrBounds, rect1, rect2)
	}
	alpha, err := bitmap.AllocateT(bitmap.TypeFloat, in.Width(), in.Height(), 0)
	if err != nil {
		return nil, geometry.Rect{}, err
	}

	edges1 := innerEdges(rect1, rect2)
	edges2 := innerEdges(rect2, rect1)
	for y := 0; y < in.Height(); y++ {
		for x := 0; x < in.Width(); x++ {
			p := geometry.Point2D{X: float64(in.Left+x) + 0.5, Y: float64(in.Top+y) + 0.5}
			alpha.SetSample(x, y, 0, weight(edges1.distance(p), edges2.distance(p)))
		}
	}
	return alpha, in, nil
}

func weight(d1, d2 float64) float64 {
	switch {
	case math.IsInf(d1, 1) && math.IsInf(d2, 1):
		return 0.5
	case math.IsInf(d2, 1):
		return 1
	case math.IsInf(d1, 1):
		return 0
	case d1+d2 == 0:
		return 0.5
	}
	return d2 / (d1 + d2)
}

// edges holds the coordinates of the vertical and horizontal edges of one
// rectangle that fall strictly inside another.
type edges struct {
	xs, ys []float64
}

func innerEdges(r, other geometry.Rect) edges {
	var e edges
	for _, x := range []int{r.Left, r.Right} {
		if x > other.Left && x < other.Right {
			e.xs = append(e.xs, float64(x))
		}
	}
	for _, y := range []int{r.Top, r.Bottom} {
		if y > other.Top && y < other.Bottom {
			e.ys = append(e.ys, float64(y))
		}
	}
	return e
}

func (e edges) distance(p geometry.Point2D) float64 {
	d := math.Inf(1)
	for _, x := range e.xs {
		d = math.Min(d, math.Abs(p.X-x))
	}
	for _, y := range e.ys {
		d = math.Min(d, math.Abs(p.Y-y))
	}
	return d
}

// PasteAlpha returns a TypeFloat alpha image the size of placed, for pasting
// an image at placed over content that already covers existing. Outside the
// overlap the weight is 1; inside it follows GradientBlendAlphaImage with
// the pasted image as the second image. Without an overlap every weight is 1.
func PasteAlpha(existing, placed geometry.Rect) (*bitmap.Bitmap, error) {
	alpha, err := bitmap.AllocateT(bitmap.TypeFloat, placed.Width(), placed.Height(), 0)
	if err != nil {
		return nil, err
	}
	if err := alpha.Fill(1); err != nil {
		return nil, err
	}
	if !existing.Intersects(placed) {
		return alpha, nil
	}
	overlap, in, err := GradientBlendAlphaImage(existing, placed)
	if err != nil {
		return nil, err
	}
	defer overlap.Release()
	for y := 0; y < in.Height(); y++ {
		for x := 0; x < in.Width(); x++ {
			alpha.SetSample(in.Left-placed.Left+x, in.Top-placed.Top+y, 0, overlap.Sample(x, y, 0))
		}
	}
	return alpha, nil
}

// GradientBlendedIntersectionImage blends the parts of src1 and src2 that
// overlap when src1 is placed at rect1 and src2 at rect2, and returns the
// blended overlap with its rectangle. alpha weights src2 and must match the
// overlap size; a nil alpha is computed with GradientBlendAlphaImage.
func GradientBlendedIntersectionImage(src1 *bitmap.Bitmap, rect1 geometry.Rect, src2 *bitmap.Bitmap, rect2 geometry.Rect, alpha *bitmap.Bitmap) (*bitmap.Bitmap, geometry.Rect, error) {
	if err := checkPair(src1, src2); err != nil {
		return nil, geometry.Rect{}, err
	}
	if err := checkPlacement(src1, rect1); err != nil {
		return nil, geometry.Rect{}, err
	}
	if err := checkPlacement(src2, rect2); err != nil {
		return nil, geometry.Rect{}, err
	}

	in := rect1.Intersect(rect2)
	if in.Empty() {
		return nil, geometry.Rect{}, fmt.Errorf("%w: %v and %v do not overlap", bitmap.ErrBounds, rect1, rect2)
	}
	if alpha == nil {
		a, _, err := GradientBlendAlphaImage(rect1, rect2)
		if err != nil {
			return nil, geometry.Rect{}, err
		}
		defer a.Release()
		alpha = a
	} else if err := checkAlpha(alpha, in.Width(), in.Height()); err != nil {
		return nil, geometry.Rect{}, err
	}

	out, err := bitmap.AllocateLike(src1, in.Width(), in.Height())
	if err != nil {
		return nil, geometry.Rect{}, err
	}
	for y := 0; y < in.Height(); y++ {
		for x := 0; x < in.Width(); x++ {
			a := alpha.Sample(x, y, 0)
			x1, y1 := in.Left-rect1.Left+x, in.Top-rect1.Top+y
			x2, y2 := in.Left-rect2.Left+x, in.Top-rect2.Top+y
			for ch := 0; ch < out.Channels(); ch++ {
				out.SetSample(x, y, ch, mix(src1.Sample(x1, y1, ch), src2.Sample(x2, y2, ch), a))
			}
		}
	}
	return out, in, nil
}

// GradientBlendPasteFromTopLeft pastes src into dst with its top-left corner
// at (left, top). alpha must have src's size and gives the weight of src at
// each pixel; a nil alpha pastes src unchanged. dst is left untouched on
// error.
func GradientBlendPasteFromTopLeft(dst, src *bitmap.Bitmap, left, top int, alpha *bitmap.Bitmap) error {
	if alpha == nil {
		return dst.PasteFromTopLeft(src, left, top)
	}
	if err := checkPair(dst, src); err != nil {
		return err
	}
	r := geometry.RectWH(left, top, src.Width(), src.Height())
	if !r.In(dst.Bounds()) {
		return fmt.Errorf("%w: paste %v into %dx%d", bitmap.ErrBounds, r, dst.Width(), dst.Height())
	}
	if err := checkAlpha(alpha, src.Width(), src.Height()); err != nil {
		return err
	}

	for y := 0; y < src.Height(); y++ {
		for x := 0; x < src.Width(); x++ {
			a := alpha.Sample(x, y, 0)
			for ch := 0; ch < dst.Channels(); ch++ {
				dst.SetSample(left+x, top+y, ch, mix(dst.Sample(left+x, top+y, ch), src.Sample(x, y, ch), a))
			}
		}
	}
	return nil
}

func mix(v1, v2, a float64) float64 {
	return v1*(1-a) + v2*a
}

// checkPair validates two images that are blended sample by sample.
func checkPair(b1, b2 *bitmap.Bitmap) error {
	if err := b1.Validate(); err != nil {
		return err
	}
	if err := b2.Validate(); err != nil {
		return err
	}
	if !b1.SameFormat(b2) {
		return fmt.Errorf("%w: blend %s with %s", bitmap.ErrUnsupportedType, b1, b2)
	}
	if b1.Type() == bitmap.TypeBitmap && b1.BPP() == 8 && (!b1.IsGreyScale() || !b2.IsGreyScale()) {
		return fmt.Errorf("%w: cannot blend palette indices", bitmap.ErrUnsupportedType)
	}
	return nil
}

func checkPlacement(b *bitmap.Bitmap, r geometry.Rect) error {
	if r.Width() != b.Width() || r.Height() != b.Height() {
		return fmt.Errorf("%w: %v does not match %dx%d image", bitmap.ErrBounds, r, b.Width(), b.Height())
	}
	return nil
}

func checkAlpha(alpha *bitmap.Bitmap, w, h int) error {
	if err := alpha.Validate(); err != nil {
		return err
	}
	if !alpha.Type().IsFloat() {
		return fmt.Errorf("%w: alpha must be float, got %s", bitmap.ErrUnsupportedType, alpha.Type())
	}
	if alpha.Width() != w || alpha.Height() != h {
		return fmt.Errorf("%w: alpha %dx%d, want %dx%d", bitmap.ErrBounds, alpha.Width(), alpha.Height(), w, h)
	}
	return nil
}
