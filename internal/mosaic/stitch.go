package mosaic

import (
	"fmt"
	"log"

	"imgkit/internal/bitmap"
	"imgkit/internal/correlate"
	"imgkit/pkg/geometry"
)

// Options configures stitching.
type Options struct {
	Thickness  int                   // Edge strip thickness in pixels
	MinScore   float64               // Reject seams scoring below this
	Mode       BlendMode             // Blend mode for arranged tiles
	Correlator *correlate.Correlator // nil uses correlate.Default
	Debug      bool                  // Log each seam
}

// DefaultOptions returns default stitching options.
func DefaultOptions() Options {
	return Options{
		Thickness: 40,
		MinScore:  -1,
		Mode:      BlendGradient,
	}
}

// Seam is the result of correlating two neighbouring tiles.
type Seam struct {
	Offset geometry.Point // position of the second tile relative to the first
	Score  float64
}

// StitchRow finds the canvas offsets of images laid out left to right.
// The first image sits at the origin; each following image is placed by
// correlating it against the right edge of its predecessor.
func StitchRow(images []*bitmap.Bitmap, opts Options) ([]geometry.Point, []Seam, error) {
	return stitch(images, opts, "right", opts.correlator().AlongRightEdge)
}

// StitchColumn is StitchRow for images laid out top to bottom.
func StitchColumn(images []*bitmap.Bitmap, opts Options) ([]geometry.Point, []Seam, error) {
	return stitch(images, opts, "bottom", opts.correlator().AlongBottomEdge)
}

type edgeFunc func(a, b *bitmap.Bitmap, thickness int) (geometry.Point, float64, error)

func stitch(images []*bitmap.Bitmap, opts Options, edge string, correlateEdge edgeFunc) ([]geometry.Point, []Seam, error) {
	if len(images) == 0 {
		return nil, nil, fmt.Errorf("%w: no images to stitch", bitmap.ErrInvalidArgument)
	}
	offsets := make([]geometry.Point, len(images))
	seams := make([]Seam, 0, len(images)-1)
	for i := 1; i < len(images); i++ {
		off, score, err := correlateEdge(images[i-1], images[i], opts.Thickness)
		if err != nil {
			return nil, nil, fmt.Errorf("%s edge of image %d: %w", edge, i-1, err)
		}
		if opts.Debug {
			log.Printf("stitch: %s edge %d->%d offset=%v score=%.4f", edge, i-1, i, off, score)
		}
		if score < opts.MinScore {
			return nil, nil, fmt.Errorf("%s edge of image %d: score %.4f below %.4f", edge, i-1, score, opts.MinScore)
		}
		seams = append(seams, Seam{Offset: off, Score: score})
		offsets[i] = offsets[i-1].Add(off)
	}
	return offsets, seams, nil
}

func (o Options) correlator() *correlate.Correlator {
	if o.Correlator == nil {
		return correlate.Default
	}
	return o.Correlator
}

// Arrange builds a mosaic holding each image at its offset. Offsets are
// shifted so that the top-left-most tile starts at the origin, and the
// canvas is sized to cover every tile.
func Arrange(images []*bitmap.Bitmap, offsets []geometry.Point, mode BlendMode) (*Mosaic, error) {
	if len(images) == 0 || len(images) != len(offsets) {
		return nil, fmt.Errorf("%w: %d images for %d offsets", bitmap.ErrInvalidArgument, len(images), len(offsets))
	}
	var bounds geometry.Rect
	for i, img := range images {
		if err := img.Validate(); err != nil {
			return nil, err
		}
		r := geometry.RectWH(offsets[i].X, offsets[i].Y, img.Width(), img.Height())
		if i == 0 {
			bounds = r
		} else {
			bounds = bounds.Union(r)
		}
	}

	m := New(bounds.Width(), bounds.Height())
	for i, img := range images {
		m.AddTile(img, mode, offsets[i].X-bounds.Left, offsets[i].Y-bounds.Top)
	}
	return m, nil
}
