package cvbridge

import (
	"fmt"

	"gocv.io/x/gocv"

	"imgkit/internal/bitmap"
	"imgkit/internal/correlate"
	"imgkit/pkg/geometry"
)

// Matcher is a correlate.Matcher using OpenCV's normalised correlation
// coefficient template matching (TM_CCOEFF_NORMED). It agrees with the
// native matcher on textured regions; flat regions give OpenCV's result
// rather than the native 0 or 1.
type Matcher struct{}

var _ correlate.Matcher = Matcher{}

// Match implements correlate.Matcher.
func (Matcher) Match(window, template *correlate.Plane) (geometry.Point, float64, error) {
	if template.Width > window.Width || template.Height > window.Height {
		return geometry.Point{}, 0, fmt.Errorf("%w: template %dx%d larger than window %dx%d",
			bitmap.ErrBounds, template.Width, template.Height, window.Width, window.Height)
	}
	img := planeToMat(window)
	defer img.Close()
	tmpl := planeToMat(template)
	defer tmpl.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(img, tmpl, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	return geometry.Pt(maxLoc.X, maxLoc.Y), float64(maxVal), nil
}

func planeToMat(p *correlate.Plane) gocv.Mat {
	m := gocv.NewMatWithSize(p.Height, p.Width, gocv.MatTypeCV32F)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			m.SetFloatAt(y, x, float32(p.At(x, y)))
		}
	}
	return m
}
