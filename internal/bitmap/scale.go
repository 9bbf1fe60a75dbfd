package bitmap

import (
	"fmt"
	"math"
)

// FindMinMax scans the whole image once and returns its true extrema. Grey
// types report intensities; colour bitmaps report over the R, G and B
// channels (alpha is ignored).
func (b *Bitmap) FindMinMax() (lo, hi float64, err error) {
	if err := b.Validate(); err != nil {
		return 0, 0, err
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	if b.IsColour() {
		for y := 0; y < b.height; y++ {
			for x := 0; x < b.width; x++ {
				for ch := 0; ch < 3; ch++ {
					v := b.Sample(x, y, ch)
					lo = math.Min(lo, v)
					hi = math.Max(hi, v)
				}
			}
		}
		return lo, hi, nil
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			v := b.Grey(x, y)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi, nil
}

// LinearScaleToStandardType maps the window [lo, hi] of a grey image onto an
// 8-bit grey bitmap: v maps to floor(255·(v−lo)/(hi−lo)), values below lo
// become 0 and values at or above hi become 255. If lo and hi are both zero
// the image's own extrema are used. The extrema found in the image are
// always reported, and may be tighter than the requested window. A flat
// image is rounded instead of scaled.
func LinearScaleToStandardType(src *Bitmap, lo, hi float64) (dst *Bitmap, minFound, maxFound float64, err error) {
	if err := src.Validate(); err != nil {
		return nil, 0, 0, err
	}
	if src.IsColour() {
		return nil, 0, 0, fmt.Errorf("%w: linear scale needs a grey image", ErrUnsupportedType)
	}

	minFound, maxFound, err = src.FindMinMax()
	if err != nil {
		return nil, 0, 0, err
	}
	if lo == 0 && hi == 0 {
		lo, hi = minFound, maxFound
	}
	if minFound == maxFound {
		dst, err = StandardType(src, false)
		return dst, minFound, maxFound, err
	}
	if hi <= lo {
		return nil, minFound, maxFound, fmt.Errorf("%w: scale window [%g, %g]", ErrInvalidArgument, lo, hi)
	}

	dst, err = newLike(src, TypeBitmap, 8)
	if err != nil {
		return nil, minFound, maxFound, err
	}
	scale := 255 / (hi - lo)
	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			switch v := src.Grey(x, y); {
			case v < lo:
			case v >= hi:
				dst.SetSample(x, y, 0, 255)
			default:
				dst.SetSample(x, y, 0, math.Min(math.Floor(scale*(v-lo)), 255))
			}
		}
	}
	return dst, minFound, maxFound, nil
}

// LinearScaleToStandardType replaces the buffer with the 8-bit linear scaling
// of [lo, hi] and returns the extrema found in the original image.
func (b *Bitmap) LinearScaleToStandardType(lo, hi float64) (minFound, maxFound float64, err error) {
	nb, minFound, maxFound, err := LinearScaleToStandardType(b, lo, hi)
	if err != nil {
		return minFound, maxFound, err
	}
	b.replace(nb)
	return minFound, maxFound, nil
}

// Threshold produces an 8-bit grey bitmap containing only 0 and 255: pixels
// whose intensity is at or above value become 255.
func Threshold(src *Bitmap, value float64) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	dst, err := newLike(src, TypeBitmap, 8)
	if err != nil {
		return nil, err
	}
	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			if src.Grey(x, y) >= value {
				dst.SetSample(x, y, 0, 255)
			}
		}
	}
	return dst, nil
}

// Threshold replaces the buffer with its binary Threshold.
func (b *Bitmap) Threshold(value float64) error {
	return b.apply(func(src *Bitmap) (*Bitmap, error) {
		return Threshold(src, value)
	})
}

// ThresholdRange rewrites a grey image in place, keeping its type: samples
// in [lo, hi] become newValue and all others 0. Colour images are reduced to
// 8-bit grey first.
func (b *Bitmap) ThresholdRange(lo, hi, newValue float64) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if hi < lo {
		return fmt.Errorf("%w: threshold range [%g, %g]", ErrInvalidArgument, lo, hi)
	}
	if !b.IsGreyScale() {
		if err := b.ConvertToGreyscale(); err != nil {
			return err
		}
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			v := b.Sample(x, y, 0)
			if v >= lo && v <= hi {
				b.SetSample(x, y, 0, newValue)
			} else {
				b.SetSample(x, y, 0, 0)
			}
		}
	}
	return nil
}

// StretchToType maps the image's intensity range [min, max] onto [0, limit]
// in a bitmap of type typ. Flat images become all zero.
func StretchToType(src *Bitmap, typ Type, limit float64) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if !typ.IsValid() {
		return nil, fmt.Errorf("%w: invalid pixel type %d", ErrUnsupportedType, typ)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: stretch limit %g", ErrInvalidArgument, limit)
	}

	grey := src
	if src.IsColour() {
		g, err := Greyscale(src)
		if err != nil {
			return nil, err
		}
		defer g.Release()
		grey = g
	}
	lo, hi, err := grey.FindMinMax()
	if err != nil {
		return nil, err
	}

	dst, err := newLike(src, typ, 8)
	if err != nil {
		return nil, err
	}
	if hi == lo {
		return dst, nil
	}
	scale := limit / (hi - lo)
	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			dst.SetSample(x, y, 0, (grey.Grey(x, y)-lo)*scale)
		}
	}
	return dst, nil
}

// StretchToType replaces the buffer with its StretchToType conversion.
func (b *Bitmap) StretchToType(typ Type, limit float64) error {
	return b.apply(func(src *Bitmap) (*Bitmap, error) {
		return StretchToType(src, typ, limit)
	})
}

// Is16BitReally12Bit reports whether a TypeUint16 image only uses the low
// 12 bits, as is common for scientific camera output.
func (b *Bitmap) Is16BitReally12Bit() (bool, error) {
	if err := b.Validate(); err != nil {
		return false, err
	}
	if b.typ != TypeUint16 {
		return false, fmt.Errorf("%w: expected uint16, got %s", ErrUnsupportedType, b.typ)
	}
	_, hi, err := b.FindMinMax()
	if err != nil {
		return false, err
	}
	return hi <= 4095, nil
}
