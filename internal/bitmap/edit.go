package bitmap

import (
	"fmt"
	"image/color"

	"imgkit/pkg/geometry"
)

// Copy returns a new bitmap holding the pixels of r. r must be non-empty and
// lie inside the image.
func (b *Bitmap) Copy(r geometry.Rect) (*Bitmap, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := b.checkRect(r); err != nil {
		return nil, err
	}
	dst, err := AllocateLike(b, r.Width(), r.Height())
	if err != nil {
		return nil, err
	}
	start := r.Left * b.bytesPP
	for y := 0; y < dst.height; y++ {
		copy(dst.ScanLine(y), b.ScanLine(r.Top + y)[start:])
	}
	return dst, nil
}

// PasteFromTopLeft writes src into b with src's top-left corner at
// (left, top). Both bitmaps must have the same format and src must fit
// entirely; otherwise b is left unchanged.
func (b *Bitmap) PasteFromTopLeft(src *Bitmap, left, top int) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := src.Validate(); err != nil {
		return err
	}
	if !b.SameFormat(src) {
		return fmt.Errorf("%w: paste %s into %s", ErrUnsupportedType, src, b)
	}
	r := geometry.RectWH(left, top, src.width, src.height)
	if !r.In(b.Bounds()) {
		return fmt.Errorf("%w: paste %v into %dx%d", ErrBounds, r, b.width, b.height)
	}
	start := left * b.bytesPP
	for y := 0; y < src.height; y++ {
		copy(b.ScanLine(top + y)[start:], src.ScanLine(y))
	}
	return nil
}

// PasteFromBottomLeft is PasteFromTopLeft with the vertical position measured
// from the bottom edge: bottom is the number of rows between src's last row
// and b's last row.
func (b *Bitmap) PasteFromBottomLeft(src *Bitmap, left, bottom int) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := src.Validate(); err != nil {
		return err
	}
	return b.PasteFromTopLeft(src, left, b.height-bottom-src.height)
}

// DrawSolidGreyscaleRect sets every sample of every pixel in r to value.
func (b *Bitmap) DrawSolidGreyscaleRect(r geometry.Rect, value float64) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := b.checkRect(r); err != nil {
		return err
	}
	for y := r.Top; y < r.Bottom; y++ {
		for x := r.Left; x < r.Right; x++ {
			for ch := 0; ch < b.Channels(); ch++ {
				b.SetSample(x, y, ch, value)
			}
		}
	}
	return nil
}

// DrawColourRect draws the outline of r, lineWidth pixels thick, in colour c.
// A lineWidth of zero or less fills r.
func (b *Bitmap) DrawColourRect(r geometry.Rect, c color.Color, lineWidth int) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := b.checkRect(r); err != nil {
		return err
	}
	values := b.FillValues(c)
	for y := r.Top; y < r.Bottom; y++ {
		for x := r.Left; x < r.Right; x++ {
			if lineWidth > 0 &&
				x >= r.Left+lineWidth && x < r.Right-lineWidth &&
				y >= r.Top+lineWidth && y < r.Bottom-lineWidth {
				continue
			}
			for ch, v := range values {
				b.SetSample(x, y, ch, v)
			}
		}
	}
	return nil
}

// GreyScaleValuesForLine returns the intensities along the Bresenham line
// from p1 to p2, both endpoints included.
func (b *Bitmap) GreyScaleValuesForLine(p1, p2 geometry.Point) ([]float64, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	bounds := b.Bounds()
	if !bounds.Contains(p1) || !bounds.Contains(p2) {
		return nil, fmt.Errorf("%w: line %v-%v outside %dx%d", ErrBounds, p1, p2, b.width, b.height)
	}

	dx, dy := abs(p2.X-p1.X), -abs(p2.Y-p1.Y)
	sx, sy := 1, 1
	if p1.X > p2.X {
		sx = -1
	}
	if p1.Y > p2.Y {
		sy = -1
	}

	values := make([]float64, 0, max(dx, -dy)+1)
	x, y, e := p1.X, p1.Y, dx+dy
	for {
		values = append(values, b.Grey(x, y))
		if x == p2.X && y == p2.Y {
			return values, nil
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func (b *Bitmap) checkRect(r geometry.Rect) error {
	if !r.Valid() || r.Empty() || !r.In(b.Bounds()) {
		return fmt.Errorf("%w: %v outside %dx%d", ErrBounds, r, b.width, b.height)
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
