package bitmap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Transpose returns src with rows and columns swapped. Every format is
// supported and the palette is kept.
func Transpose(src *Bitmap) (*Bitmap, error) {
	dst, err := AllocateLike(src, src.height, src.width)
	if err != nil {
		return nil, err
	}
	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			for ch := 0; ch < src.Channels(); ch++ {
				dst.SetSample(y, x, ch, src.Sample(x, y, ch))
			}
		}
	}
	return dst, nil
}

// Log returns the natural logarithm of a grey image as TypeDouble.
// Samples at or below zero map to zero.
func Log(src *Bitmap) (*Bitmap, error) {
	if err := checkGrey(src, "log"); err != nil {
		return nil, err
	}
	dst, err := newLike(src, TypeDouble, 64)
	if err != nil {
		return nil, err
	}
	pix := src.plane(0)
	for i, v := range pix {
		if v > 0 {
			pix[i] = math.Log(v)
		} else {
			pix[i] = 0
		}
	}
	dst.setPlane(0, pix)
	return dst, nil
}

// AddImage adds the samples of src to b in place. Both must be grey images
// of the same size; their types may differ. Integer results round and
// clamp to b's type.
func (b *Bitmap) AddImage(src *Bitmap) error {
	return b.combine(src, "add", func(a, v float64) float64 { return a + v })
}

// SubtractImage subtracts src from b in place; see AddImage.
func (b *Bitmap) SubtractImage(src *Bitmap) error {
	return b.combine(src, "subtract", func(a, v float64) float64 { return a - v })
}

// MultiplyImage multiplies b by src in place; see AddImage.
func (b *Bitmap) MultiplyImage(src *Bitmap) error {
	return b.combine(src, "multiply", func(a, v float64) float64 { return a * v })
}

// DivideImage divides b by src in place; see AddImage. Pixels where src is
// zero become zero.
func (b *Bitmap) DivideImage(src *Bitmap) error {
	return b.combine(src, "divide", func(a, v float64) float64 {
		if v == 0 {
			return 0
		}
		return a / v
	})
}

// AddConstant adds c to every sample of a grey image.
func (b *Bitmap) AddConstant(c float64) error {
	return b.scalar("add", func(a float64) float64 { return a + c })
}

// SubtractConstant subtracts c from every sample of a grey image.
func (b *Bitmap) SubtractConstant(c float64) error {
	return b.scalar("subtract", func(a float64) float64 { return a - c })
}

// MultiplyConstant multiplies every sample of a grey image by c.
func (b *Bitmap) MultiplyConstant(c float64) error {
	return b.scalar("multiply", func(a float64) float64 { return a * c })
}

// DivideConstant divides every sample of a grey image by c, which must not
// be zero.
func (b *Bitmap) DivideConstant(c float64) error {
	if c == 0 {
		return fmt.Errorf("%w: divide by zero", ErrInvalidArgument)
	}
	return b.scalar("divide", func(a float64) float64 { return a / c })
}

// SumOfAllPixels sums the intensities of a grey image where mask is
// non-zero. A nil mask sums every pixel.
func (b *Bitmap) SumOfAllPixels(mask *Bitmap) (float64, error) {
	if err := checkGrey(b, "sum"); err != nil {
		return 0, err
	}
	pix := b.plane(0)
	if mask != nil {
		if err := mask.Validate(); err != nil {
			return 0, err
		}
		if mask.width != b.width || mask.height != b.height {
			return 0, fmt.Errorf("%w: mask %dx%d for image %dx%d",
				ErrBounds, mask.width, mask.height, b.width, b.height)
		}
		for y := 0; y < b.height; y++ {
			for x := 0; x < b.width; x++ {
				if mask.Grey(x, y) == 0 {
					pix[y*b.width+x] = 0
				}
			}
		}
	}
	return floats.Sum(pix), nil
}

func (b *Bitmap) combine(src *Bitmap, op string, f func(a, v float64) float64) error {
	if err := checkGrey(b, op); err != nil {
		return err
	}
	if err := checkGrey(src, op); err != nil {
		return err
	}
	if src.width != b.width || src.height != b.height {
		return fmt.Errorf("%w: %s %dx%d with %dx%d", ErrBounds, op, b.width, b.height, src.width, src.height)
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			b.SetSample(x, y, 0, f(b.Sample(x, y, 0), src.Sample(x, y, 0)))
		}
	}
	return nil
}

func (b *Bitmap) scalar(op string, f func(a float64) float64) error {
	if err := checkGrey(b, op); err != nil {
		return err
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			b.SetSample(x, y, 0, f(b.Sample(x, y, 0)))
		}
	}
	return nil
}
