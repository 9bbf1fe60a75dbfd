package bitmap

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"imgkit/pkg/colorutil"
)

// GreyLevelPalette returns the identity grey ramp.
func GreyLevelPalette() []color.RGBA {
	return greyLevelPalette()
}

// GreyLevelOverloadPalette is the grey ramp with entry 255 marked red, so
// saturated pixels stand out.
func GreyLevelOverloadPalette() []color.RGBA {
	p := greyLevelPalette()
	p[255] = color.RGBA{R: 255, A: 255}
	return p
}

// RainbowPalette sweeps the hue from blue at 0 to red at 255.
func RainbowPalette() []color.RGBA {
	p := make([]color.RGBA, 256)
	for i := range p {
		r, g, b := colorutil.HSVToRGB(240*(1-float64(i)/255), 1, 1)
		p[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return p
}

// TemperaturePalette runs black, red, yellow, white.
func TemperaturePalette() []color.RGBA {
	p := make([]color.RGBA, 256)
	for i := range p {
		v := float64(i) * 3
		p[i] = color.RGBA{
			R: uint8(clamp(v, 0, 255)),
			G: uint8(clamp(v-255, 0, 255)),
			B: uint8(clamp(v-510, 0, 255)),
			A: 255,
		}
	}
	return p
}

// LogPalette is a grey ramp with logarithmic brightness, lifting dark
// detail.
func LogPalette() []color.RGBA {
	p := make([]color.RGBA, 256)
	for i := range p {
		v := uint8(math.Round(255 * math.Log1p(float64(i)) / math.Log(256)))
		p[i] = color.RGBA{R: v, G: v, B: v, A: 255}
	}
	return p
}

// SeismicPalette runs blue through white to red, centred on 128.
func SeismicPalette() []color.RGBA {
	p := make([]color.RGBA, 256)
	for i := range p {
		t := (float64(i) - 128) / 127
		var r, g, b float64
		if t < 0 {
			r, g, b = 1+t, 1+t, 1
		} else {
			r, g, b = 1, 1-t, 1-t
		}
		p[i] = color.RGBA{R: to255(r), G: to255(g), B: to255(b), A: 255}
	}
	return p
}

// FalseColourPalette ramps from black to the colour of light at the given
// wavelength in nanometres, which must lie in [380, 780].
func FalseColourPalette(wavelength float64) ([]color.RGBA, error) {
	if wavelength < 380 || wavelength > 780 {
		return nil, fmt.Errorf("%w: wavelength %g nm outside 380-780", ErrInvalidArgument, wavelength)
	}
	r, g, b := wavelengthRGB(wavelength)
	p := make([]color.RGBA, 256)
	for i := range p {
		f := float64(i) / 255
		p[i] = color.RGBA{R: to255(r * f), G: to255(g * f), B: to255(b * f), A: 255}
	}
	return p, nil
}

// wavelengthRGB approximates the visible spectrum piecewise linearly, with
// intensity falling off towards both ends.
func wavelengthRGB(wl float64) (r, g, b float64) {
	switch {
	case wl < 440:
		r, b = (440-wl)/60, 1
	case wl < 490:
		g, b = (wl-440)/50, 1
	case wl < 510:
		g, b = 1, (510-wl)/20
	case wl < 580:
		r, g = (wl-510)/70, 1
	case wl < 645:
		r, g = 1, (645-wl)/65
	default:
		r = 1
	}
	falloff := 1.0
	switch {
	case wl < 420:
		falloff = 0.3 + 0.7*(wl-380)/40
	case wl > 700:
		falloff = 0.3 + 0.7*(780-wl)/80
	}
	return r * falloff, g * falloff, b * falloff
}

// ReversePaletteEntries reverses size entries of p starting at start.
func ReversePaletteEntries(p []color.RGBA, start, size int) error {
	if start < 0 || size < 0 || start+size > len(p) {
		return fmt.Errorf("%w: entries %d+%d of %d", ErrInvalidArgument, start, size, len(p))
	}
	s := p[start : start+size]
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return nil
}

var namedPalettes = map[string]func() []color.RGBA{
	"grey":        GreyLevelPalette,
	"overload":    GreyLevelOverloadPalette,
	"rainbow":     RainbowPalette,
	"temperature": TemperaturePalette,
	"log":         LogPalette,
	"seismic":     SeismicPalette,
}

// PaletteNames lists the names accepted by NamedPalette.
func PaletteNames() []string {
	names := make([]string, 0, len(namedPalettes))
	for name := range namedPalettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamedPalette returns a built-in palette by name.
func NamedPalette(name string) ([]color.RGBA, error) {
	f, ok := namedPalettes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: palette %q, want one of %s",
			ErrInvalidArgument, name, strings.Join(PaletteNames(), ", "))
	}
	return f(), nil
}

func to255(f float64) uint8 {
	return uint8(clampRound(f*255, 0, 255))
}
