package blend

import (
	"fmt"
	"math"

	"imgkit/internal/bitmap"
	"imgkit/pkg/geometry"
)

// GradientBlendMosaicPaste pastes src into dst at (x, y), blending with the
// content already present there. A dst pixel counts as present when any of
// its samples is non-zero. Where dst is empty, src is copied. Where it is
// present, the weight kept for dst is
//
//	c / (c + e)
//
// with c the chamfer distance (steps 1 and √2) to the nearest empty dst
// pixel and e the distance to the nearest edge of the pasted area, so the
// paste fades in from the border of the existing content.
func GradientBlendMosaicPaste(dst, src *bitmap.Bitmap, x, y int) error {
	if err := checkPair(dst, src); err != nil {
		return err
	}
	w, h := src.Width(), src.Height()
	r := geometry.RectWH(x, y, w, h)
	if !r.In(dst.Bounds()) {
		return fmt.Errorf("%w: paste %v into %dx%d", bitmap.ErrBounds, r, dst.Width(), dst.Height())
	}

	present := make([]bool, w*h)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			for ch := 0; ch < dst.Channels(); ch++ {
				if dst.Sample(x+i, y+j, ch) != 0 {
					present[j*w+i] = true
					break
				}
			}
		}
	}
	dist := chamfer(present, w, h)

	xc, yc := (w+1)/2, (h+1)/2
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			if !present[j*w+i] {
				for ch := 0; ch < dst.Channels(); ch++ {
					dst.SetSample(x+i, y+j, ch, src.Sample(i, j, ch))
				}
				continue
			}
			c := dist[j*w+i]
			e := float64(min(edgeDistance(i, w, xc), edgeDistance(j, h, yc)))
			keep := c / (c + e)
			for ch := 0; ch < dst.Channels(); ch++ {
				dst.SetSample(x+i, y+j, ch, mix(src.Sample(i, j, ch), dst.Sample(x+i, y+j, ch), keep))
			}
		}
	}
	return nil
}

func edgeDistance(v, size, centre int) int {
	if v <= centre {
		return v
	}
	return size - v
}

// chamfer returns, for every present pixel, the 1/√2 chamfer distance to
// the nearest absent pixel, capped at max(w, h)+1. Absent pixels get 0.
func chamfer(present []bool, w, h int) []float64 {
	limit := float64(max(w, h) + 1)
	d := make([]float64, w*h)
	for i, p := range present {
		if p {
			d[i] = limit
		}
	}

	at := func(i, j int) float64 {
		if i < 0 || i >= w || j < 0 || j >= h {
			return math.Inf(1)
		}
		return d[j*w+i]
	}

	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			if !present[j*w+i] {
				continue
			}
			v := d[j*w+i]
			v = math.Min(v, at(i-1, j)+1)
			v = math.Min(v, at(i, j-1)+1)
			v = math.Min(v, at(i-1, j-1)+math.Sqrt2)
			v = math.Min(v, at(i+1, j-1)+math.Sqrt2)
			d[j*w+i] = v
		}
	}
	for j := h - 1; j >= 0; j-- {
		for i := w - 1; i >= 0; i-- {
			if !present[j*w+i] {
				continue
			}
			v := d[j*w+i]
			v = math.Min(v, at(i+1, j)+1)
			v = math.Min(v, at(i, j+1)+1)
			v = math.Min(v, at(i+1, j+1)+math.Sqrt2)
			v = math.Min(v, at(i-1, j+1)+math.Sqrt2)
			d[j*w+i] = v
		}
	}
	return d
}
