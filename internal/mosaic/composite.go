// Package mosaic places tiles on a canvas, finds tile offsets by edge
// correlation and renders the result with per-tile blend modes.
package mosaic

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"imgkit/internal/bitmap"
	"imgkit/internal/blend"
	"imgkit/pkg/geometry"
)

// BlendMode specifies how a tile is combined with what lies beneath it.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDifference
	BlendGradient // seam-free gradient paste over existing content
)

var blendModeNames = []string{"Normal", "Multiply", "Screen", "Overlay", "Difference", "Gradient"}

func (m BlendMode) String() string {
	if m < 0 || int(m) >= len(blendModeNames) {
		return "Unknown"
	}
	return blendModeNames[m]
}

// ParseBlendMode parses a blend mode name, ignoring case.
func ParseBlendMode(s string) (BlendMode, error) {
	for i, name := range blendModeNames {
		if strings.EqualFold(s, name) {
			return BlendMode(i), nil
		}
	}
	return BlendNormal, fmt.Errorf("unknown blend mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m BlendMode) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(m.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *BlendMode) UnmarshalText(text []byte) error {
	mode, err := ParseBlendMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Mosaic combines tiles into a single image.
type Mosaic struct {
	Width      int
	Height     int
	Tiles      []*Tile
	Background color.Color
}

// Tile is an image placed on the canvas with compositing settings.
type Tile struct {
	Image   *bitmap.Bitmap
	Offset  geometry.Point
	Mode    BlendMode
	Opacity float64 // 0.0 - 1.0
	Hidden  bool
}

// Rect returns the canvas area covered by the tile.
func (t *Tile) Rect() geometry.Rect {
	return geometry.RectWH(t.Offset.X, t.Offset.Y, t.Image.Width(), t.Image.Height())
}

// New creates an empty mosaic with a black background.
func New(width, height int) *Mosaic {
	return &Mosaic{
		Width:      width,
		Height:     height,
		Background: color.Black,
	}
}

// AddTile places img with its top-left corner at (x, y).
func (m *Mosaic) AddTile(img *bitmap.Bitmap, mode BlendMode, x, y int) *Tile {
	t := &Tile{
		Image:   img,
		Offset:  geometry.Pt(x, y),
		Mode:    mode,
		Opacity: 1.0,
	}
	m.Tiles = append(m.Tiles, t)
	return t
}

// Render composites the visible tiles in order onto a new canvas in the
// format of the first tile. Every tile must share that format. Parts of
// tiles outside the canvas are clipped.
func (m *Mosaic) Render() (*bitmap.Bitmap, error) {
	var first *bitmap.Bitmap
	for _, t := range m.Tiles {
		if t.Image == nil || t.Hidden {
			continue
		}
		if err := t.Image.Validate(); err != nil {
			return nil, err
		}
		if first == nil {
			first = t.Image
		} else if !first.SameFormat(t.Image) {
			return nil, fmt.Errorf("%w: tile %s differs from %s", bitmap.ErrUnsupportedType, t.Image, first)
		}
	}
	if first == nil {
		return nil, fmt.Errorf("%w: mosaic has no visible tiles", bitmap.ErrInvalidArgument)
	}

	canvas, err := bitmap.AllocateLike(first, m.Width, m.Height)
	if err != nil {
		return nil, err
	}
	background := m.Background
	if background == nil {
		background = color.Black
	}
	if err := canvas.Fill(canvas.FillValues(background)...); err != nil {
		canvas.Release()
		return nil, err
	}

	// covered marks canvas pixels painted by an earlier tile
	covered := make([]bool, m.Width*m.Height)
	for _, t := range m.Tiles {
		if t.Image == nil || t.Hidden {
			continue
		}
		if err := m.renderTile(canvas, covered, t); err != nil {
			canvas.Release()
			return nil, fmt.Errorf("render tile at %v: %w", t.Offset, err)
		}
	}
	return canvas, nil
}

func (m *Mosaic) renderTile(canvas *bitmap.Bitmap, covered []bool, t *Tile) error {
	visible := t.Rect().Intersect(canvas.Bounds())
	if visible.Empty() {
		return nil
	}
	defer func() {
		for y := visible.Top; y < visible.Bottom; y++ {
			for x := visible.Left; x < visible.Right; x++ {
				covered[y*m.Width+x] = true
			}
		}
	}()

	if t.Mode == BlendGradient {
		return renderGradientTile(canvas, covered, m.Width, t, visible)
	}

	scale := sampleScale(canvas)
	alphaCh := -1
	if canvas.Channels() == 4 {
		alphaCh = 3
	}
	for y := visible.Top; y < visible.Bottom; y++ {
		for x := visible.Left; x < visible.Right; x++ {
			sx, sy := x-t.Offset.X, y-t.Offset.Y
			for ch := 0; ch < canvas.Channels(); ch++ {
				s := t.Image.Sample(sx, sy, ch) / scale
				d := canvas.Sample(x, y, ch) / scale
				r := s
				if ch != alphaCh {
					r = blendSample(d, s, t.Mode)
				}
				canvas.SetSample(x, y, ch, (r*t.Opacity+d*(1-t.Opacity))*scale)
			}
		}
	}
	return nil
}

// renderGradientTile pastes the tile onto a copy of the canvas area in which
// pixels no earlier tile covered are zero, so the background never counts
// as content. The copy is then mixed into the canvas at the tile's opacity.
func renderGradientTile(canvas *bitmap.Bitmap, covered []bool, stride int, t *Tile, visible geometry.Rect) error {
	src := t.Image
	if visible != t.Rect() {
		clipped, err := t.Image.Copy(visible.Translate(-t.Offset.X, -t.Offset.Y))
		if err != nil {
			return err
		}
		defer clipped.Release()
		src = clipped
	}

	scratch, err := canvas.Copy(visible)
	if err != nil {
		return err
	}
	defer scratch.Release()
	for y := visible.Top; y < visible.Bottom; y++ {
		for x := visible.Left; x < visible.Right; x++ {
			if covered[y*stride+x] {
				continue
			}
			for ch := 0; ch < scratch.Channels(); ch++ {
				scratch.SetSample(x-visible.Left, y-visible.Top, ch, 0)
			}
		}
	}
	if err := blend.GradientBlendMosaicPaste(scratch, src, 0, 0); err != nil {
		return err
	}

	for y := visible.Top; y < visible.Bottom; y++ {
		for x := visible.Left; x < visible.Right; x++ {
			for ch := 0; ch < canvas.Channels(); ch++ {
				s := scratch.Sample(x-visible.Left, y-visible.Top, ch)
				d := canvas.Sample(x, y, ch)
				canvas.SetSample(x, y, ch, s*t.Opacity+d*(1-t.Opacity))
			}
		}
	}
	return nil
}

// sampleScale maps integer samples to [0, 1]; float samples are used as is.
func sampleScale(b *bitmap.Bitmap) float64 {
	if b.Type().IsFloat() {
		return 1
	}
	return b.MaxPossibleValue()
}

// blendSample combines one normalised destination and source sample.
func blendSample(d, s float64, mode BlendMode) float64 {
	switch mode {
	case BlendMultiply:
		return s * d
	case BlendScreen:
		return 1 - (1-s)*(1-d)
	case BlendOverlay:
		if d < 0.5 {
			return 2 * s * d
		}
		return 1 - 2*(1-s)*(1-d)
	case BlendDifference:
		return math.Abs(s - d)
	default:
		return s
	}
}
