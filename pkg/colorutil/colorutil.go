// Package colorutil provides shared colour space conversions.
package colorutil

import (
	"image/color"
	"math"
)

// Rec. 709 luma coefficients.
const (
	LumaRed   = 0.2126
	LumaGreen = 0.7152
	LumaBlue  = 0.0722
)

// Common fill colours.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Luminance returns the Rec. 709 luma of an RGB triple in the same range as
// the inputs.
func Luminance(r, g, b float64) float64 {
	return LumaRed*r + LumaGreen*g + LumaBlue*b
}

// RGBToHSV converts RGB (0-255) to HSV with hue in degrees [0, 360) and
// saturation and value in [0, 1].
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	maxC := max(r, g, b)
	minC := min(r, g, b)
	diff := float64(maxC) - float64(minC)

	v = float64(maxC) / 255.0
	if maxC != 0 {
		s = diff / float64(maxC)
	}
	if diff == 0 {
		return 0, s, v
	}

	rf, gf, bf := float64(r), float64(g), float64(b)
	switch maxC {
	case r:
		h = 60 * math.Mod((gf-bf)/diff, 6)
	case g:
		h = 60 * ((bf-rf)/diff + 2)
	default:
		h = 60 * ((rf-gf)/diff + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// HSVToRGB converts HSV (hue in degrees, saturation and value in [0, 1])
// back to RGB. Hues outside [0, 360) wrap around.
func HSVToRGB(h, s, v float64) (r, g, b uint8) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = clamp(s, 0, 1)
	v = clamp(v, 0, 1)

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = c, x, 0
	case h < 120:
		rf, gf, bf = x, c, 0
	case h < 180:
		rf, gf, bf = 0, c, x
	case h < 240:
		rf, gf, bf = 0, x, c
	case h < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}
	return to8(rf + m), to8(gf + m), to8(bf + m)
}

// RGBToHSL converts RGB (0-255) to HSL with hue in degrees and saturation
// and luminosity in [0, 1].
func RGBToHSL(r, g, b uint8) (h, s, l float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	l = (maxC + minC) / 2

	diff := maxC - minC
	if diff == 0 {
		return 0, 0, l
	}
	if l < 0.5 {
		s = diff / (maxC + minC)
	} else {
		s = diff / (2 - maxC - minC)
	}

	switch maxC {
	case rf:
		h = 60 * math.Mod((gf-bf)/diff, 6)
	case gf:
		h = 60 * ((bf-rf)/diff + 2)
	default:
		h = 60 * ((rf-gf)/diff + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, l
}

// HSLToRGB converts HSL back to RGB.
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = clamp(s, 0, 1)
	l = clamp(l, 0, 1)

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = c, x, 0
	case h < 120:
		rf, gf, bf = x, c, 0
	case h < 180:
		rf, gf, bf = 0, c, x
	case h < 240:
		rf, gf, bf = 0, x, c
	case h < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}
	return to8(rf + m), to8(gf + m), to8(bf + m)
}

func to8(f float64) uint8 {
	return uint8(clamp(math.Round(f*255), 0, 255))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
