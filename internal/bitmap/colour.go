package bitmap

import (
	"fmt"

	"imgkit/pkg/colorutil"
)

// ExtractColourPlanes splits a colour image into three 8-bit grey planes.
func (b *Bitmap) ExtractColourPlanes() (r, g, bl *Bitmap, err error) {
	if err := b.Validate(); err != nil {
		return nil, nil, nil, err
	}
	if !b.IsColour() {
		return nil, nil, nil, fmt.Errorf("%w: colour planes need a colour image", ErrUnsupportedType)
	}
	planes := make([]*Bitmap, 3)
	for ch := range planes {
		p, err := newLike(b, TypeBitmap, 8)
		if err != nil {
			releaseAll(planes...)
			return nil, nil, nil, err
		}
		for y := 0; y < b.height; y++ {
			for x := 0; x < b.width; x++ {
				p.SetSample(x, y, 0, b.Sample(x, y, ch))
			}
		}
		planes[ch] = p
	}
	return planes[0], planes[1], planes[2], nil
}

// MergeColourPlanes builds a 24-bit image from three 8-bit grey planes of
// equal size.
func MergeColourPlanes(r, g, bl *Bitmap) (*Bitmap, error) {
	if err := checkPlanes(TypeBitmap, r, g, bl); err != nil {
		return nil, err
	}
	dst, err := newLike(r, TypeBitmap, 24)
	if err != nil {
		return nil, err
	}
	for ch, p := range []*Bitmap{r, g, bl} {
		for y := 0; y < dst.height; y++ {
			for x := 0; x < dst.width; x++ {
				dst.SetSample(x, y, ch, p.Sample(x, y, 0))
			}
		}
	}
	return dst, nil
}

// ReplaceColourPlanes overwrites the channels of a colour image with the
// given 8-bit planes. A nil plane leaves its channel unchanged.
func (b *Bitmap) ReplaceColourPlanes(r, g, bl *Bitmap) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if !b.IsColour() {
		return fmt.Errorf("%w: colour planes need a colour image", ErrUnsupportedType)
	}
	planes := []*Bitmap{r, g, bl}
	for _, p := range planes {
		if p == nil {
			continue
		}
		if err := b.checkPlane(TypeBitmap, p); err != nil {
			return err
		}
	}
	for ch, p := range planes {
		if p == nil {
			continue
		}
		for y := 0; y < b.height; y++ {
			for x := 0; x < b.width; x++ {
				b.SetSample(x, y, ch, p.Sample(x, y, 0))
			}
		}
	}
	return nil
}

// ExtractHSVPlanes converts a colour image into hue (degrees), saturation
// and value (0-1) planes of TypeDouble.
func (b *Bitmap) ExtractHSVPlanes() (h, s, v *Bitmap, err error) {
	if err := b.Validate(); err != nil {
		return nil, nil, nil, err
	}
	if !b.IsColour() {
		return nil, nil, nil, fmt.Errorf("%w: HSV planes need a colour image", ErrUnsupportedType)
	}
	planes := make([]*Bitmap, 3)
	for i := range planes {
		p, err := newLike(b, TypeDouble, 0)
		if err != nil {
			releaseAll(planes...)
			return nil, nil, nil, err
		}
		planes[i] = p
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			c := b.RGBA(x, y)
			hh, ss, vv := colorutil.RGBToHSV(c.R, c.G, c.B)
			planes[0].SetSample(x, y, 0, hh)
			planes[1].SetSample(x, y, 0, ss)
			planes[2].SetSample(x, y, 0, vv)
		}
	}
	return planes[0], planes[1], planes[2], nil
}

// ReplaceColourPlanesHSV writes the RGB equivalent of the given TypeDouble
// HSV planes into a colour image. Alpha is preserved.
func (b *Bitmap) ReplaceColourPlanesHSV(h, s, v *Bitmap) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if !b.IsColour() {
		return fmt.Errorf("%w: HSV planes need a colour image", ErrUnsupportedType)
	}
	for _, p := range []*Bitmap{h, s, v} {
		if err := b.checkPlane(TypeDouble, p); err != nil {
			return err
		}
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			r, g, bl := colorutil.HSVToRGB(h.Sample(x, y, 0), s.Sample(x, y, 0), v.Sample(x, y, 0))
			b.SetSample(x, y, 0, float64(r))
			b.SetSample(x, y, 1, float64(g))
			b.SetSample(x, y, 2, float64(bl))
		}
	}
	return nil
}

func checkPlanes(typ Type, planes ...*Bitmap) error {
	if err := planes[0].Validate(); err != nil {
		return err
	}
	return planes[0].checkPlane(typ, planes...)
}

func (b *Bitmap) checkPlane(typ Type, planes ...*Bitmap) error {
	for _, p := range planes {
		if err := p.Validate(); err != nil {
			return err
		}
		if p.typ != typ || p.IsColour() {
			return fmt.Errorf("%w: plane %s, want %s grey", ErrUnsupportedType, p, typ)
		}
		if p.width != b.width || p.height != b.height {
			return fmt.Errorf("%w: plane %dx%d for image %dx%d", ErrBounds, p.width, p.height, b.width, b.height)
		}
	}
	return nil
}

func releaseAll(bs ...*Bitmap) {
	for _, b := range bs {
		b.Release()
	}
}
