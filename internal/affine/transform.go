package affine

import (
	"fmt"
	"image/color"
	"math"

	"imgkit/internal/bitmap"
	"imgkit/pkg/geometry"
)

// Transform resamples src into a new dstW×dstH bitmap of the same format.
// Each destination pixel centre is mapped back through the inverse of m.
// Samples are interpolated bilinearly between the four nearest source pixel
// centres, clamping at the image edge; 8-bit images with a colour palette
// use the nearest pixel instead. Destination pixels whose back-mapped
// position lies more than half a pixel outside the source receive fill.
func Transform(src *bitmap.Bitmap, dstW, dstH int, m *Matrix, fill color.Color) (*bitmap.Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	inv, err := m.Inverse()
	if err != nil {
		return nil, err
	}
	dst, err := bitmap.AllocateLike(src, dstW, dstH)
	if err != nil {
		return nil, err
	}
	if fill == nil {
		fill = color.Transparent
	}
	resample(dst, dst.Bounds(), newSampler(src, src.Bounds()), inv, dst.FillValues(fill))
	return dst, nil
}

// DrawImageToDst draws the whole of src into dstRect of dst; see
// DrawImageFromSrcToDst.
func DrawImageToDst(dst, src *bitmap.Bitmap, m *Matrix, dstRect geometry.Rect, fill color.Color) error {
	if err := src.Validate(); err != nil {
		return err
	}
	return DrawImageFromSrcToDst(dst, src, m, dstRect, src.Bounds(), fill)
}

// DrawImageFromSrcToDst draws srcRect of src into dstRect of dst in place.
// srcRect is first scaled onto dstRect, then m is applied in dstRect-local
// coordinates, so an identity m performs a plain scaled copy. Only pixels
// inside dstRect are written. Pixels that map outside srcRect receive fill,
// or are left untouched when fill is nil. Both bitmaps must share a format.
// Nothing is written unless every argument is valid.
func DrawImageFromSrcToDst(dst, src *bitmap.Bitmap, m *Matrix, dstRect, srcRect geometry.Rect, fill color.Color) error {
	if err := dst.Validate(); err != nil {
		return err
	}
	if err := src.Validate(); err != nil {
		return err
	}
	if !dst.SameFormat(src) {
		return fmt.Errorf("%w: draw %s into %s", bitmap.ErrUnsupportedType, src, dst)
	}
	if !srcRect.Valid() || srcRect.Empty() || !srcRect.In(src.Bounds()) {
		return fmt.Errorf("%w: source %v outside %dx%d", bitmap.ErrBounds, srcRect, src.Width(), src.Height())
	}
	if !dstRect.Valid() || dstRect.Empty() || !dstRect.In(dst.Bounds()) {
		return fmt.Errorf("%w: destination %v outside %dx%d", bitmap.ErrBounds, dstRect, dst.Width(), dst.Height())
	}

	full := NewMatrix().
		Translate(-float64(srcRect.Left), -float64(srcRect.Top), Append).
		Scale(float64(dstRect.Width())/float64(srcRect.Width()),
			float64(dstRect.Height())/float64(srcRect.Height()), Append).
		Multiply(m, Append).
		Translate(float64(dstRect.Left), float64(dstRect.Top), Append)
	inv, err := full.Inverse()
	if err != nil {
		return err
	}

	region := dstRect
	var fillValues []float64
	if fill != nil {
		fillValues = dst.FillValues(fill)
	} else {
		// Without fill only pixels under the mapped source can change.
		covered := full.Footprint(srcRect, dstRect)
		if covered == nil {
			return nil
		}
		b := geometry.PolygonBounds(covered)
		region = geometry.NewRect(b.Left-1, b.Top-1, b.Right+1, b.Bottom+1).Intersect(dstRect)
	}
	resample(dst, region, newSampler(src, srcRect), inv, fillValues)
	return nil
}

// resample writes every pixel of r in dst from the sampler, mapping pixel
// centres through inv. A nil fill leaves uncovered pixels unchanged.
func resample(dst *bitmap.Bitmap, r geometry.Rect, s *sampler, inv *Matrix, fill []float64) {
	values := make([]float64, dst.Channels())
	for y := r.Top; y < r.Bottom; y++ {
		for x := r.Left; x < r.Right; x++ {
			p := inv.TransformPoint(geometry.Point2D{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			out := values
			if !s.sample(p.X-0.5, p.Y-0.5, values) {
				if fill == nil {
					continue
				}
				out = fill
			}
			for ch, v := range out {
				dst.SetSample(x, y, ch, v)
			}
		}
	}
}

// sampler reads interpolated values from a rectangle of a bitmap.
type sampler struct {
	src     *bitmap.Bitmap
	bounds  geometry.Rect
	nearest bool
}

func newSampler(src *bitmap.Bitmap, bounds geometry.Rect) *sampler {
	return &sampler{
		src:     src,
		bounds:  bounds,
		nearest: src.Type() == bitmap.TypeBitmap && src.BPP() == 8 && !src.IsGreyScale(),
	}
}

// sample fills out with the value at pixel-index position (sx, sy) and
// reports whether the position is covered by the source rectangle.
func (s *sampler) sample(sx, sy float64, out []float64) bool {
	b := s.bounds
	if sx < float64(b.Left)-0.5 || sx >= float64(b.Right)-0.5 ||
		sy < float64(b.Top)-0.5 || sy >= float64(b.Bottom)-0.5 {
		return false
	}

	if s.nearest {
		x := clampInt(int(math.Floor(sx+0.5)), b.Left, b.Right-1)
		y := clampInt(int(math.Floor(sy+0.5)), b.Top, b.Bottom-1)
		for ch := range out {
			out[ch] = s.src.Sample(x, y, ch)
		}
		return true
	}

	fx0, fy0 := math.Floor(sx), math.Floor(sy)
	fx, fy := sx-fx0, sy-fy0
	x0 := clampInt(int(fx0), b.Left, b.Right-1)
	x1 := clampInt(int(fx0)+1, b.Left, b.Right-1)
	y0 := clampInt(int(fy0), b.Top, b.Bottom-1)
	y1 := clampInt(int(fy0)+1, b.Top, b.Bottom-1)
	for ch := range out {
		top := s.src.Sample(x0, y0, ch)*(1-fx) + s.src.Sample(x1, y0, ch)*fx
		bottom := s.src.Sample(x0, y1, ch)*(1-fx) + s.src.Sample(x1, y1, ch)*fx
		out[ch] = top*(1-fy) + bottom*fy
	}
	return true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
