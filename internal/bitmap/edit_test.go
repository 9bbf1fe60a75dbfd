package bitmap

import (
	"errors"
	"image/color"
	"testing"

	"imgkit/pkg/geometry"
)

// grid4 returns a 4x4 8-bit image where pixel (x, y) holds y*4+x.
func grid4(t *testing.T) *Bitmap {
	t.Helper()
	rows := make([][]float64, 4)
	for y := range rows {
		rows[y] = make([]float64, 4)
		for x := range rows[y] {
			rows[y][x] = float64(y*4 + x)
		}
	}
	return greyFrom(t, TypeBitmap, rows)
}

func TestCopy(t *testing.T) {
	src := grid4(t)
	dst, err := src.Copy(geometry.NewRect(1, 1, 3, 3))
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if dst.Width() != 2 || dst.Height() != 2 {
		t.Fatalf("Copy() size = %dx%d, want 2x2", dst.Width(), dst.Height())
	}
	want := [][]float64{{5, 6}, {9, 10}}
	for y, row := range want {
		for x, w := range row {
			if got := dst.Sample(x, y, 0); got != w {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, w)
			}
		}
	}

	bad := []geometry.Rect{
		geometry.NewRect(2, 2, 5, 3),
		geometry.NewRect(-1, 0, 2, 2),
		geometry.NewRect(3, 3, 1, 1),
		geometry.NewRect(1, 1, 1, 3),
	}
	for _, r := range bad {
		if _, err := src.Copy(r); !errors.Is(err, ErrBounds) {
			t.Errorf("Copy(%v) error = %v, want ErrBounds", r, err)
		}
	}
}

func TestPasteFromTopLeft(t *testing.T) {
	dst := mustAllocate(t, TypeBitmap, 4, 4, 8)
	src := mustAllocate(t, TypeBitmap, 2, 2, 8)
	src.Fill(9)

	if err := dst.PasteFromTopLeft(src, 2, 2); err != nil {
		t.Fatalf("PasteFromTopLeft() error = %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := 0.0
			if x >= 2 && y >= 2 {
				want = 9
			}
			if got := dst.Sample(x, y, 0); got != want {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}

	before := append([]byte(nil), dst.Bits()...)
	if err := dst.PasteFromTopLeft(src, 3, 3); !errors.Is(err, ErrBounds) {
		t.Errorf("overhanging paste error = %v, want ErrBounds", err)
	}
	if string(before) != string(dst.Bits()) {
		t.Error("failed paste modified the destination")
	}
	if err := dst.PasteFromTopLeft(mustAllocate(t, TypeBitmap, 1, 1, 24), 0, 0); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("format mismatch error = %v, want ErrUnsupportedType", err)
	}
}

func TestPasteFromBottomLeft(t *testing.T) {
	dst := mustAllocate(t, TypeUint16, 3, 4, 16)
	src := mustAllocate(t, TypeUint16, 1, 2, 16)
	src.Fill(500)

	if err := dst.PasteFromBottomLeft(src, 1, 0); err != nil {
		t.Fatalf("PasteFromBottomLeft() error = %v", err)
	}
	if dst.Sample(1, 2, 0) != 500 || dst.Sample(1, 3, 0) != 500 || dst.Sample(1, 1, 0) != 0 {
		t.Error("source should occupy the bottom two rows")
	}
	if err := dst.PasteFromBottomLeft(src, 0, 3); !errors.Is(err, ErrBounds) {
		t.Errorf("paste above the top error = %v, want ErrBounds", err)
	}
}

func TestDrawRects(t *testing.T) {
	b := mustAllocate(t, TypeBitmap, 5, 5, 24)
	if err := b.DrawColourRect(geometry.RectWH(0, 0, 5, 5), color.RGBA{R: 255, A: 255}, 1); err != nil {
		t.Fatalf("DrawColourRect() error = %v", err)
	}
	edge, _ := b.Pixel(0, 2)
	inside, _ := b.Pixel(2, 2)
	if edge[0] != 255 || edge[1] != 0 {
		t.Errorf("outline pixel = %v, want red", edge)
	}
	if inside[0] != 0 {
		t.Errorf("interior pixel = %v, want untouched", inside)
	}

	if err := b.DrawSolidGreyscaleRect(geometry.NewRect(1, 1, 4, 4), 128); err != nil {
		t.Fatalf("DrawSolidGreyscaleRect() error = %v", err)
	}
	inside, _ = b.Pixel(2, 2)
	if inside[0] != 128 || inside[1] != 128 || inside[2] != 128 {
		t.Errorf("filled pixel = %v, want grey 128", inside)
	}
	if err := b.DrawSolidGreyscaleRect(geometry.NewRect(1, 1, 6, 4), 1); !errors.Is(err, ErrBounds) {
		t.Errorf("out of bounds rect error = %v, want ErrBounds", err)
	}
}

func TestGreyScaleValuesForLine(t *testing.T) {
	b := grid4(t)
	tests := []struct {
		name   string
		p1, p2 geometry.Point
		want   []float64
	}{
		{"diagonal", geometry.Pt(0, 0), geometry.Pt(3, 3), []float64{0, 5, 10, 15}},
		{"horizontal", geometry.Pt(0, 1), geometry.Pt(3, 1), []float64{4, 5, 6, 7}},
		{"reversed", geometry.Pt(3, 1), geometry.Pt(0, 1), []float64{7, 6, 5, 4}},
		{"vertical", geometry.Pt(2, 0), geometry.Pt(2, 3), []float64{2, 6, 10, 14}},
		{"single point", geometry.Pt(1, 2), geometry.Pt(1, 2), []float64{9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.GreyScaleValuesForLine(tt.p1, tt.p2)
			if err != nil {
				t.Fatalf("GreyScaleValuesForLine() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("GreyScaleValuesForLine() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("GreyScaleValuesForLine() = %v, want %v", got, tt.want)
				}
			}
		})
	}

	if _, err := b.GreyScaleValuesForLine(geometry.Pt(0, 0), geometry.Pt(4, 0)); !errors.Is(err, ErrBounds) {
		t.Errorf("out of bounds line error = %v, want ErrBounds", err)
	}
}
