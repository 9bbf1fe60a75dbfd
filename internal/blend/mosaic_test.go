package blend

import (
	"errors"
	"testing"

	"imgkit/internal/bitmap"
	"imgkit/pkg/geometry"
)

func TestGradientBlendMosaicPasteEmpty(t *testing.T) {
	dst := constImage(t, 12, 12, 0)
	src := constImage(t, 8, 8, 200)
	if err := GradientBlendMosaicPaste(dst, src, 2, 3); err != nil {
		t.Fatalf("GradientBlendMosaicPaste() error = %v", err)
	}
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			want := 0.0
			if geometry.RectWH(2, 3, 8, 8).Contains(geometry.Pt(x, y)) {
				want = 200
			}
			if got := dst.Sample(x, y, 0); got != want {
				t.Fatalf("dst(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestGradientBlendMosaicPasteCovered(t *testing.T) {
	dst := constImage(t, 8, 8, 100)
	src := constImage(t, 8, 8, 200)
	if err := GradientBlendMosaicPaste(dst, src, 0, 0); err != nil {
		t.Fatalf("GradientBlendMosaicPaste() error = %v", err)
	}
	if got := dst.Sample(0, 3, 0); got != 100 {
		t.Errorf("border pixel = %v, want 100", got)
	}
	// keep = 9/13 at the centre
	if got := dst.Sample(4, 4, 0); got != 131 {
		t.Errorf("centre pixel = %v, want 131", got)
	}
}

func TestGradientBlendMosaicPasteHalfCovered(t *testing.T) {
	dst := constImage(t, 8, 8, 0)
	if err := dst.DrawSolidGreyscaleRect(geometry.NewRect(0, 0, 4, 8), 100); err != nil {
		t.Fatalf("DrawSolidGreyscaleRect() error = %v", err)
	}
	src := constImage(t, 8, 8, 200)
	if err := GradientBlendMosaicPaste(dst, src, 0, 0); err != nil {
		t.Fatalf("GradientBlendMosaicPaste() error = %v", err)
	}

	tests := []struct {
		x, y int
		want float64
	}{
		{0, 4, 100},
		{2, 4, 150},
		{3, 4, 175},
		{5, 4, 200},
		{7, 7, 200},
	}
	for _, tt := range tests {
		if got := dst.Sample(tt.x, tt.y, 0); got != tt.want {
			t.Errorf("dst(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestGradientBlendMosaicPasteErrors(t *testing.T) {
	dst := constImage(t, 8, 8, 0)
	colour, err := bitmap.Allocate(4, 4, 24)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := GradientBlendMosaicPaste(dst, colour, 0, 0); !errors.Is(err, bitmap.ErrUnsupportedType) {
		t.Errorf("format mismatch error = %v, want ErrUnsupportedType", err)
	}
	if err := GradientBlendMosaicPaste(dst, constImage(t, 4, 4, 1), 6, 0); !errors.Is(err, bitmap.ErrBounds) {
		t.Errorf("overflow error = %v, want ErrBounds", err)
	}
	dst.Release()
	if err := GradientBlendMosaicPaste(dst, constImage(t, 4, 4, 1), 0, 0); !errors.Is(err, bitmap.ErrReleased) {
		t.Errorf("released error = %v, want ErrReleased", err)
	}
}
