package bitmap

import (
	"fmt"
	"math"
)

// Greyscale returns an 8-bit grey copy of src. Colour and palette pixels use
// Rec. 709 luma; grey 8-bit input is cloned and other grey types are
// rounded into 0-255.
func Greyscale(src *Bitmap) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.IsGreyScale() && src.typ == TypeBitmap {
		return src.Clone()
	}
	if src.typ != TypeBitmap {
		return StandardType(src, false)
	}

	dst, err := newLike(src, TypeBitmap, 8)
	if err != nil {
		return nil, err
	}
	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			dst.SetSample(x, y, 0, src.Grey(x, y))
		}
	}
	return dst, nil
}

// ConvertToGreyscale replaces the buffer with its 8-bit grey conversion.
func (b *Bitmap) ConvertToGreyscale() error {
	return b.apply(Greyscale)
}

// StandardType converts any pixel type to an 8-bit grey bitmap. Standard
// bitmaps are cloned. With scaleLinear the image's [min, max] is stretched
// to [0, 255]; otherwise samples are rounded and clamped.
func StandardType(src *Bitmap, scaleLinear bool) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.typ == TypeBitmap {
		return src.Clone()
	}

	dst, err := newLike(src, TypeBitmap, 8)
	if err != nil {
		return nil, err
	}

	scale, offset := 1.0, 0.0
	if scaleLinear {
		lo, hi, err := src.FindMinMax()
		if err != nil {
			dst.Release()
			return nil, err
		}
		if hi > lo {
			scale = 255 / (hi - lo)
			offset = lo
		}
	}

	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			dst.SetSample(x, y, 0, (src.Sample(x, y, 0)-offset)*scale)
		}
	}
	return dst, nil
}

// ConvertToStandardType replaces the buffer with its StandardType conversion.
func (b *Bitmap) ConvertToStandardType(scaleLinear bool) error {
	return b.apply(func(src *Bitmap) (*Bitmap, error) {
		return StandardType(src, scaleLinear)
	})
}

// ConvertToType converts src to the given pixel type. Conversion to
// TypeBitmap yields 8-bit grey (see StandardType). Colour input is reduced
// to grey first. Between numeric types samples are copied and clamped to the
// destination range.
func ConvertToType(src *Bitmap, typ Type, scaleLinear bool) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if !typ.IsValid() {
		return nil, fmt.Errorf("%w: invalid pixel type %d", ErrUnsupportedType, typ)
	}
	if typ == TypeBitmap {
		if src.typ == TypeBitmap {
			return Greyscale(src)
		}
		return StandardType(src, scaleLinear)
	}
	if src.typ == typ {
		return src.Clone()
	}

	grey := src
	if src.typ == TypeBitmap && !src.IsGreyScale() {
		g, err := Greyscale(src)
		if err != nil {
			return nil, err
		}
		defer g.Release()
		grey = g
	}

	dst, err := newLike(src, typ, 0)
	if err != nil {
		return nil, err
	}
	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			dst.SetSample(x, y, 0, grey.Grey(x, y))
		}
	}
	return dst, nil
}

// ConvertToType replaces the buffer with its conversion to typ.
func (b *Bitmap) ConvertToType(typ Type, scaleLinear bool) error {
	return b.apply(func(src *Bitmap) (*Bitmap, error) {
		return ConvertToType(src, typ, scaleLinear)
	})
}

// To8Bits converts a standard bitmap to 8-bit grey, or a TypeUint16 bitmap
// by keeping the high byte of each sample.
func To8Bits(src *Bitmap) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	switch src.typ {
	case TypeBitmap:
		if src.bpp == 8 {
			return src.Clone()
		}
		return Greyscale(src)
	case TypeUint16:
		dst, err := newLike(src, TypeBitmap, 8)
		if err != nil {
			return nil, err
		}
		for y := 0; y < src.height; y++ {
			for x := 0; x < src.width; x++ {
				dst.SetSample(x, y, 0, float64(uint16(src.Sample(x, y, 0))>>8))
			}
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %s to 8 bits", ErrUnsupportedType, src.typ)
	}
}

// ConvertTo8Bits replaces the buffer with its To8Bits conversion.
func (b *Bitmap) ConvertTo8Bits() error {
	return b.apply(To8Bits)
}

// To24Bits converts a standard or TypeUint16 bitmap to 24-bit RGB. Palettes
// are expanded and alpha is dropped.
func To24Bits(src *Bitmap) (*Bitmap, error) {
	return toColour(src, 24)
}

// ConvertTo24Bits replaces the buffer with its To24Bits conversion.
func (b *Bitmap) ConvertTo24Bits() error {
	return b.apply(To24Bits)
}

// To32Bits converts a standard or TypeUint16 bitmap to 32-bit RGBA.
func To32Bits(src *Bitmap) (*Bitmap, error) {
	return toColour(src, 32)
}

// ConvertTo32Bits replaces the buffer with its To32Bits conversion.
func (b *Bitmap) ConvertTo32Bits() error {
	return b.apply(To32Bits)
}

func toColour(src *Bitmap, bpp int) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.typ == TypeBitmap && src.bpp == bpp {
		return src.Clone()
	}

	in := src
	switch src.typ {
	case TypeBitmap:
	case TypeUint16:
		g, err := To8Bits(src)
		if err != nil {
			return nil, err
		}
		defer g.Release()
		in = g
	default:
		return nil, fmt.Errorf("%w: cannot convert %s to %d bits", ErrUnsupportedType, src.typ, bpp)
	}

	dst, err := newLike(src, TypeBitmap, bpp)
	if err != nil {
		return nil, err
	}
	for y := 0; y < in.height; y++ {
		for x := 0; x < in.width; x++ {
			c := in.RGBA(x, y)
			dst.SetSample(x, y, 0, float64(c.R))
			dst.SetSample(x, y, 1, float64(c.G))
			dst.SetSample(x, y, 2, float64(c.B))
			if bpp == 32 {
				dst.SetSample(x, y, 3, float64(c.A))
			}
		}
	}
	return dst, nil
}

// Int16ToUint16 shifts a signed 16-bit bitmap into the unsigned range by
// adding 32768 to every sample.
func Int16ToUint16(src *Bitmap) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.typ != TypeInt16 {
		return nil, fmt.Errorf("%w: expected int16, got %s", ErrUnsupportedType, src.typ)
	}
	dst, err := newLike(src, TypeUint16, 0)
	if err != nil {
		return nil, err
	}
	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			dst.SetSample(x, y, 0, src.Sample(x, y, 0)-math.MinInt16)
		}
	}
	return dst, nil
}

// ConvertInt16ToUint16 replaces the buffer with its Int16ToUint16 conversion.
func (b *Bitmap) ConvertInt16ToUint16() error {
	return b.apply(Int16ToUint16)
}

// apply runs a conversion and swaps its result into b. On error b is left
// unchanged.
func (b *Bitmap) apply(conv func(*Bitmap) (*Bitmap, error)) error {
	nb, err := conv(b)
	if err != nil {
		return err
	}
	b.replace(nb)
	return nil
}
