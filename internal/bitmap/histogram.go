package bitmap

import (
	"fmt"
	"math"
)

// Histogram counts the intensities of a grey image in bins equal-width bins
// spanning [lo, hi]. Values outside the range are not counted; a value equal
// to hi falls in the last bin.
func (b *Bitmap) Histogram(lo, hi float64, bins int) ([]uint64, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.IsColour() {
		return nil, fmt.Errorf("%w: histogram needs a grey image", ErrUnsupportedType)
	}
	if bins < 1 {
		return nil, fmt.Errorf("%w: %d bins", ErrInvalidArgument, bins)
	}
	if !(hi > lo) {
		return nil, fmt.Errorf("%w: histogram range [%g, %g]", ErrInvalidArgument, lo, hi)
	}

	hist := make([]uint64, bins)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if i, ok := binIndex(b.Grey(x, y), lo, hi, bins); ok {
				hist[i]++
			}
		}
	}
	return hist, nil
}

// GreyLevelHistogram returns a histogram over the full range of the pixel
// type. Float images have no meaningful full range and use the extrema
// found in the image instead.
func (b *Bitmap) GreyLevelHistogram(bins int) ([]uint64, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	lo, hi := b.MinPossibleValue(), b.MaxPossibleValue()
	if b.typ.IsFloat() {
		var err error
		if lo, hi, err = b.FindMinMax(); err != nil {
			return nil, err
		}
		if hi == lo {
			hi = lo + 1
		}
	}
	return b.Histogram(lo, hi, bins)
}

// RGBHistogram returns one histogram per colour channel, each with bins
// equal-width bins over 0-255.
func (b *Bitmap) RGBHistogram(bins int) (r, g, bl []uint64, err error) {
	if err := b.Validate(); err != nil {
		return nil, nil, nil, err
	}
	if !b.IsColour() {
		return nil, nil, nil, fmt.Errorf("%w: RGB histogram needs a colour image", ErrUnsupportedType)
	}
	if bins < 1 || bins > 256 {
		return nil, nil, nil, fmt.Errorf("%w: %d bins", ErrInvalidArgument, bins)
	}
	r, g, bl = make([]uint64, bins), make([]uint64, bins), make([]uint64, bins)
	for y := 0; y < b.height; y++ {
		row := b.ScanLine(y)
		for x := 0; x < b.width; x++ {
			off := x * b.bytesPP
			r[int(row[off])*bins/256]++
			g[int(row[off+1])*bins/256]++
			bl[int(row[off+2])*bins/256]++
		}
	}
	return r, g, bl, nil
}

func binIndex(v, lo, hi float64, bins int) (int, bool) {
	if math.IsNaN(v) || v < lo || v > hi {
		return 0, false
	}
	i := int((v - lo) / (hi - lo) * float64(bins))
	if i >= bins {
		i = bins - 1
	}
	return i, true
}
