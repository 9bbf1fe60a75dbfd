package mosaic

import (
	"errors"
	"image/color"
	"testing"

	"imgkit/internal/bitmap"
)

func solid(t *testing.T, w, h int, v float64) *bitmap.Bitmap {
	t.Helper()
	b, err := bitmap.Allocate(w, h, 8)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := b.Fill(v); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	return b
}

func render(t *testing.T, m *Mosaic) *bitmap.Bitmap {
	t.Helper()
	out, err := m.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return out
}

func TestParseBlendMode(t *testing.T) {
	for _, name := range []string{"normal", "Multiply", "SCREEN", "overlay", "difference", "gradient"} {
		mode, err := ParseBlendMode(name)
		if err != nil {
			t.Errorf("ParseBlendMode(%q) error = %v", name, err)
			continue
		}
		var back BlendMode
		text, _ := mode.MarshalText()
		if err := back.UnmarshalText(text); err != nil || back != mode {
			t.Errorf("text round trip of %v = %v, %v", mode, back, err)
		}
	}
	if _, err := ParseBlendMode("dissolve"); err == nil {
		t.Error("ParseBlendMode(dissolve) should fail")
	}
}

func TestRenderModes(t *testing.T) {
	tests := []struct {
		name    string
		under   float64
		over    float64
		mode    BlendMode
		opacity float64
		want    float64
	}{
		{"normal", 100, 200, BlendNormal, 1, 200},
		{"normal half opacity", 100, 200, BlendNormal, 0.5, 150},
		{"multiply", 255, 128, BlendMultiply, 1, 128},
		{"screen", 0, 128, BlendScreen, 1, 128},
		{"difference", 200, 50, BlendDifference, 1, 150},
		{"overlay dark", 51, 255, BlendOverlay, 1, 102},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(6, 4)
			m.AddTile(solid(t, 4, 4, tt.under), BlendNormal, 0, 0)
			m.AddTile(solid(t, 4, 4, tt.over), tt.mode, 2, 0).Opacity = tt.opacity
			out := render(t, m)

			if got := out.Sample(0, 1, 0); got != tt.under {
				t.Errorf("first tile pixel = %v, want %v", got, tt.under)
			}
			if got := out.Sample(3, 1, 0); got != tt.want {
				t.Errorf("overlap pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderClipsAndSkipsHidden(t *testing.T) {
	tile, err := bitmap.Allocate(4, 4, 8)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			tile.SetSample(x, y, 0, float64(10*y+x))
		}
	}
	m := New(4, 4)
	m.AddTile(tile, BlendNormal, -2, -1)
	m.AddTile(solid(t, 4, 4, 99), BlendNormal, 0, 0).Hidden = true
	out := render(t, m)

	if got := out.Sample(0, 0, 0); got != 12 {
		t.Errorf("clipped pixel = %v, want 12", got)
	}
	if got := out.Sample(3, 3, 0); got != 0 {
		t.Errorf("uncovered pixel = %v, want background 0", got)
	}
}

func TestRenderGradient(t *testing.T) {
	m := New(12, 8)
	m.AddTile(solid(t, 8, 8, 100), BlendGradient, 0, 0)
	m.AddTile(solid(t, 8, 8, 200), BlendGradient, 4, 0)
	out := render(t, m)

	if got := out.Sample(1, 4, 0); got != 100 {
		t.Errorf("first tile only = %v, want 100", got)
	}
	if got := out.Sample(10, 4, 0); got != 200 {
		t.Errorf("second tile only = %v, want 200", got)
	}
	prev := 0.0
	for x := 4; x < 8; x++ {
		v := out.Sample(x, 4, 0)
		if v < 100 || v > 200 {
			t.Errorf("overlap pixel %d = %v, want within [100, 200]", x, v)
		}
		if x > 4 && v < prev {
			t.Errorf("overlap not monotonic at %d: %v after %v", x, v, prev)
		}
		prev = v
	}
}

func TestRenderGradientOverBackground(t *testing.T) {
	m := New(12, 8)
	m.Background = color.Gray{Y: 50}
	m.AddTile(solid(t, 8, 8, 100), BlendGradient, 0, 0)
	m.AddTile(solid(t, 8, 8, 200), BlendGradient, 4, 0)
	out := render(t, m)

	for y := 0; y < 8; y++ {
		for x := 0; x < 4; x++ {
			if got := out.Sample(x, y, 0); got != 100 {
				t.Fatalf("first tile (%d,%d) = %v, want 100 unblended with background", x, y, got)
			}
		}
	}
	if got := out.Sample(10, 4, 0); got != 200 {
		t.Errorf("second tile only = %v, want 200", got)
	}
	for x := 4; x < 8; x++ {
		if v := out.Sample(x, 4, 0); v < 100 || v > 200 {
			t.Errorf("overlap pixel %d = %v, want within [100, 200]", x, v)
		}
	}

	m = New(10, 4)
	m.Background = color.Gray{Y: 50}
	m.AddTile(solid(t, 4, 4, 100), BlendGradient, 0, 0)
	out = render(t, m)
	if got := out.Sample(7, 2, 0); got != 50 {
		t.Errorf("uncovered pixel = %v, want background 50", got)
	}
}

func TestRenderGradientOpacity(t *testing.T) {
	m := New(6, 6)
	m.Background = color.Gray{Y: 40}
	tile := m.AddTile(solid(t, 4, 4, 200), BlendGradient, 1, 1)
	tile.Opacity = 0.5
	out := render(t, m)

	if got := out.Sample(2, 2, 0); got != 120 {
		t.Errorf("half opaque tile = %v, want 120", got)
	}
	if got := out.Sample(0, 0, 0); got != 40 {
		t.Errorf("uncovered pixel = %v, want background 40", got)
	}
}

func TestRenderErrors(t *testing.T) {
	if _, err := New(4, 4).Render(); !errors.Is(err, bitmap.ErrInvalidArgument) {
		t.Errorf("empty Render() error = %v, want ErrInvalidArgument", err)
	}

	colour, err := bitmap.Allocate(2, 2, 24)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	m := New(4, 4)
	m.AddTile(solid(t, 2, 2, 1), BlendNormal, 0, 0)
	m.AddTile(colour, BlendNormal, 2, 2)
	if _, err := m.Render(); !errors.Is(err, bitmap.ErrUnsupportedType) {
		t.Errorf("mixed Render() error = %v, want ErrUnsupportedType", err)
	}

	released := solid(t, 2, 2, 1)
	released.Release()
	m = New(4, 4)
	m.AddTile(released, BlendNormal, 0, 0)
	if _, err := m.Render(); !errors.Is(err, bitmap.ErrReleased) {
		t.Errorf("released Render() error = %v, want ErrReleased", err)
	}
}
