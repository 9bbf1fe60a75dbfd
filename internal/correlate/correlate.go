// Package correlate finds the translation that best aligns a region of one
// bitmap with a region of another, using normalised cross-correlation of
// grey intensities. It is the registration step of mosaic stitching.
package correlate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"imgkit/internal/bitmap"
	"imgkit/pkg/geometry"
)

// Plane is a dense row-major grid of intensities.
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// NewPlane extracts the grey intensities of r from b.
func NewPlane(b *bitmap.Bitmap, r geometry.Rect) (*Plane, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := checkRect(b, r); err != nil {
		return nil, err
	}
	p := &Plane{Width: r.Width(), Height: r.Height(), Pix: make([]float64, r.Width()*r.Height())}
	for y := 0; y < p.Height; y++ {
		row := p.Row(y)
		for x := range row {
			row[x] = b.Grey(r.Left+x, r.Top+y)
		}
	}
	return p, nil
}

// Row returns row y of the plane.
func (p *Plane) Row(y int) []float64 {
	return p.Pix[y*p.Width : (y+1)*p.Width]
}

// At returns the intensity at (x, y).
func (p *Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// Matcher slides a template over a search window. Match returns the
// top-left position in window coordinates of the best match and its score in
// [-1, 1].
type Matcher interface {
	Match(window, template *Plane) (geometry.Point, float64, error)
}

// Correlator runs region and edge correlation with a pluggable Matcher.
type Correlator struct {
	Matcher Matcher
}

// New creates a Correlator. A nil matcher selects NCC.
func New(m Matcher) *Correlator {
	if m == nil {
		m = NCC{}
	}
	return &Correlator{Matcher: m}
}

// Default uses the native matcher.
var Default = New(nil)

// Regions correlates rectB of b (the template) against rectA of a (the
// search window). The returned offset is the translation to apply to b so
// that its region lands on the best match in a:
// (matchLeft − rectB.Left, matchTop − rectB.Top) in a's coordinates.
// The template must fit inside the search window.
func (c *Correlator) Regions(a *bitmap.Bitmap, rectA geometry.Rect, b *bitmap.Bitmap, rectB geometry.Rect) (geometry.Point, float64, error) {
	if err := a.Validate(); err != nil {
		return geometry.Point{}, 0, err
	}
	if err := b.Validate(); err != nil {
		return geometry.Point{}, 0, err
	}
	if err := checkRect(a, rectA); err != nil {
		return geometry.Point{}, 0, err
	}
	if err := checkRect(b, rectB); err != nil {
		return geometry.Point{}, 0, err
	}
	if rectB.Width() > rectA.Width() || rectB.Height() > rectA.Height() {
		return geometry.Point{}, 0, fmt.Errorf("%w: template %v larger than search window %v",
			bitmap.ErrBounds, rectB, rectA)
	}

	window, err := NewPlane(a, rectA)
	if err != nil {
		return geometry.Point{}, 0, err
	}
	template, err := NewPlane(b, rectB)
	if err != nil {
		return geometry.Point{}, 0, err
	}

	pos, score, err := c.Matcher.Match(window, template)
	if err != nil {
		return geometry.Point{}, 0, err
	}
	match := rectA.TopLeft().Add(pos)
	return match.Sub(rectB.TopLeft()), score, nil
}

// AlongRightEdge finds where b continues a to the right. The search window
// is the right strip of a, thickness pixels wide and full height; the
// template is b's left strip thickness/2 wide, inset thickness/4 from the
// top and bottom. The offset is the position of b's origin in a's
// coordinates.
func (c *Correlator) AlongRightEdge(a, b *bitmap.Bitmap, thickness int) (geometry.Point, float64, error) {
	if err := checkEdge(a, b, thickness); err != nil {
		return geometry.Point{}, 0, err
	}
	if thickness > a.Width() {
		return geometry.Point{}, 0, fmt.Errorf("%w: edge thickness %d exceeds width %d",
			bitmap.ErrInvalidArgument, thickness, a.Width())
	}
	rectA := geometry.NewRect(a.Width()-thickness, 0, a.Width(), a.Height())
	rectB := geometry.NewRect(0, thickness/4, thickness/2, b.Height()-thickness/4)
	return c.Regions(a, rectA, b, rectB)
}

// AlongBottomEdge is AlongRightEdge transposed: b continues a downwards.
func (c *Correlator) AlongBottomEdge(a, b *bitmap.Bitmap, thickness int) (geometry.Point, float64, error) {
	if err := checkEdge(a, b, thickness); err != nil {
		return geometry.Point{}, 0, err
	}
	if thickness > a.Height() {
		return geometry.Point{}, 0, fmt.Errorf("%w: edge thickness %d exceeds height %d",
			bitmap.ErrInvalidArgument, thickness, a.Height())
	}
	rectA := geometry.NewRect(0, a.Height()-thickness, a.Width(), a.Height())
	rectB := geometry.NewRect(thickness/4, 0, b.Width()-thickness/4, thickness/2)
	return c.Regions(a, rectA, b, rectB)
}

// Regions correlates with the native matcher.
func Regions(a *bitmap.Bitmap, rectA geometry.Rect, b *bitmap.Bitmap, rectB geometry.Rect) (geometry.Point, float64, error) {
	return Default.Regions(a, rectA, b, rectB)
}

// AlongRightEdge correlates with the native matcher.
func AlongRightEdge(a, b *bitmap.Bitmap, thickness int) (geometry.Point, float64, error) {
	return Default.AlongRightEdge(a, b, thickness)
}

// AlongBottomEdge correlates with the native matcher.
func AlongBottomEdge(a, b *bitmap.Bitmap, thickness int) (geometry.Point, float64, error) {
	return Default.AlongBottomEdge(a, b, thickness)
}

// NCC is a direct normalised cross-correlation matcher. Window sums come
// from summed-area tables; template products use row dot products. Both
// planes are centred on their mean first so a large common offset does not
// swamp the texture.
type NCC struct{}

// Match scans every placement in row-major order. Only a strictly greater
// score replaces the best, so ties keep the first placement. A flat window
// against a flat template scores 1; a flat window against a textured
// template (or the reverse) scores 0. A template is flat when all its
// samples are equal.
func (NCC) Match(window, template *Plane) (geometry.Point, float64, error) {
	tw, th := template.Width, template.Height
	if tw == 0 || th == 0 || tw > window.Width || th > window.Height {
		return geometry.Point{}, 0, fmt.Errorf("%w: template %dx%d in window %dx%d",
			bitmap.ErrBounds, tw, th, window.Width, window.Height)
	}
	n := float64(tw * th)

	centred := centre(template.Pix)
	tNorm := floats.Norm(centred, 2)
	tFlat := floats.Max(template.Pix) == floats.Min(template.Pix)

	window = &Plane{Width: window.Width, Height: window.Height, Pix: centre(window.Pix)}
	sum, sumSq := integrals(window)
	stride := window.Width + 1
	area := func(t []float64, x, y int) float64 {
		return t[(y+th)*stride+x+tw] - t[y*stride+x+tw] - t[(y+th)*stride+x] + t[y*stride+x]
	}

	best, bestScore := geometry.Point{}, math.Inf(-1)
	for y := 0; y+th <= window.Height; y++ {
		for x := 0; x+tw <= window.Width; x++ {
			s, ss := area(sum, x, y), area(sumSq, x, y)
			variance := ss - s*s/n
			wFlat := variance <= flatEpsilon*ss

			var score float64
			switch {
			case wFlat && tFlat:
				score = 1
			case wFlat || tFlat:
				score = 0
			default:
				var num float64
				for j := 0; j < th; j++ {
					row := window.Pix[(y+j)*window.Width+x:]
					num += floats.Dot(row[:tw], centred[j*tw:(j+1)*tw])
				}
				score = math.Max(-1, math.Min(1, num/(math.Sqrt(variance)*tNorm)))
			}
			if score > bestScore {
				best, bestScore = geometry.Pt(x, y), score
			}
		}
	}
	return best, bestScore, nil
}

// centre returns a copy of pix with its mean subtracted.
func centre(pix []float64) []float64 {
	out := make([]float64, len(pix))
	copy(out, pix)
	floats.AddConst(-floats.Sum(out)/float64(len(out)), out)
	return out
}

// flatEpsilon is the relative variance below which a region is treated as
// constant.
const flatEpsilon = 1e-10

// integrals returns summed-area tables of p and p² with a zero first row and
// column.
func integrals(p *Plane) (sum, sumSq []float64) {
	stride := p.Width + 1
	sum = make([]float64, stride*(p.Height+1))
	sumSq = make([]float64, stride*(p.Height+1))
	for y := 0; y < p.Height; y++ {
		var rs, rss float64
		for x := 0; x < p.Width; x++ {
			v := p.At(x, y)
			rs += v
			rss += v * v
			i := (y+1)*stride + x + 1
			sum[i] = sum[i-stride] + rs
			sumSq[i] = sumSq[i-stride] + rss
		}
	}
	return sum, sumSq
}

func checkRect(b *bitmap.Bitmap, r geometry.Rect) error {
	if !r.Valid() || r.Empty() || !r.In(b.Bounds()) {
		return fmt.Errorf("%w: %v outside %dx%d", bitmap.ErrBounds, r, b.Width(), b.Height())
	}
	return nil
}

func checkEdge(a, b *bitmap.Bitmap, thickness int) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if thickness < 4 {
		return fmt.Errorf("%w: edge thickness %d, need at least 4", bitmap.ErrInvalidArgument, thickness)
	}
	return nil
}
