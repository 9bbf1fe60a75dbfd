package mosaic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"imgkit/internal/bitmap"
)

// Layout is a mosaic layout file (.mosaic.json).
type Layout struct {
	Version  int          `json:"version"`
	Name     string       `json:"name"`
	Created  time.Time    `json:"created"`
	Modified time.Time    `json:"modified"`
	Width    int          `json:"width,omitempty"`  // 0 sizes the canvas to the tiles
	Height   int          `json:"height,omitempty"` // 0 sizes the canvas to the tiles
	Tiles    []LayoutTile `json:"tiles"`
}

// LayoutTile is one tile entry. Path is relative to the layout file.
type LayoutTile struct {
	Path    string    `json:"path"`
	X       int       `json:"x"`
	Y       int       `json:"y"`
	Mode    BlendMode `json:"mode"`
	Opacity float64   `json:"opacity,omitempty"`
	Hidden  bool      `json:"hidden,omitempty"`
}

// NewLayout creates an empty layout.
func NewLayout(name string) *Layout {
	now := time.Now()
	return &Layout{
		Version:  1,
		Name:     name,
		Created:  now,
		Modified: now,
	}
}

// LoadLayout reads a layout file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	return &l, nil
}

// Save writes the layout to path.
func (l *Layout) Save(path string) error {
	l.Modified = time.Now()

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// AddTile records a tile, storing imagePath relative to layoutPath when
// possible.
func (l *Layout) AddTile(layoutPath, imagePath string, x, y int, mode BlendMode) {
	rel, err := filepath.Rel(filepath.Dir(layoutPath), imagePath)
	if err != nil {
		rel = imagePath
	}
	l.Tiles = append(l.Tiles, LayoutTile{Path: rel, X: x, Y: y, Mode: mode, Opacity: 1})
	l.Modified = time.Now()
}

// TilePath returns the absolute path of tile i.
func (l *Layout) TilePath(layoutPath string, i int) string {
	p := l.Tiles[i].Path
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(layoutPath), p)
}

// Build loads every tile image and returns the mosaic. The caller owns the
// loaded images and must release them with Release.
func (l *Layout) Build(layoutPath string) (*Mosaic, error) {
	if len(l.Tiles) == 0 {
		return nil, fmt.Errorf("%w: layout has no tiles", bitmap.ErrInvalidArgument)
	}

	width, height := l.Width, l.Height
	images := make([]*bitmap.Bitmap, 0, len(l.Tiles))
	for i, t := range l.Tiles {
		img, err := bitmap.Load(l.TilePath(layoutPath, i))
		if err != nil {
			for _, loaded := range images {
				loaded.Release()
			}
			return nil, err
		}
		images = append(images, img)
		width = max(width, t.X+img.Width())
		height = max(height, t.Y+img.Height())
	}
	if l.Width > 0 {
		width = l.Width
	}
	if l.Height > 0 {
		height = l.Height
	}

	m := New(width, height)
	for i, t := range l.Tiles {
		tile := m.AddTile(images[i], t.Mode, t.X, t.Y)
		if t.Opacity > 0 {
			tile.Opacity = t.Opacity
		}
		tile.Hidden = t.Hidden
	}
	return m, nil
}

// Release releases every tile image of the mosaic.
func (m *Mosaic) Release() {
	for _, t := range m.Tiles {
		if t.Image != nil {
			t.Image.Release()
		}
	}
}
