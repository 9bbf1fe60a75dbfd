package affine

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"imgkit/internal/bitmap"
	"imgkit/pkg/geometry"
)

// gridImage returns an 8-bit grey image whose pixel (x, y) holds y*w+x.
func gridImage(t *testing.T, w, h int) *bitmap.Bitmap {
	t.Helper()
	b, err := bitmap.Allocate(w, h, 8)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.SetSample(x, y, 0, float64(y*w+x))
		}
	}
	return b
}

func rowImage(t *testing.T, values ...float64) *bitmap.Bitmap {
	t.Helper()
	b, err := bitmap.Allocate(len(values), 1, 8)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	for x, v := range values {
		b.SetSample(x, 0, 0, v)
	}
	return b
}

func row(b *bitmap.Bitmap, y int) []float64 {
	out := make([]float64, b.Width())
	for x := range out {
		out[x] = b.Sample(x, y, 0)
	}
	return out
}

func equalRow(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTransformIdentity(t *testing.T) {
	src := gridImage(t, 5, 4)
	dst, err := Transform(src, 5, 4, NewMatrix(), nil)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	for y := 0; y < 4; y++ {
		if got, want := row(dst, y), row(src, y); !equalRow(got, want) {
			t.Errorf("row %d = %v, want %v", y, got, want)
		}
	}
}

func TestTransformTranslate(t *testing.T) {
	src := rowImage(t, 10, 20, 30, 40)
	dst, err := Transform(src, 4, 1, NewMatrix().Translate(1, 0, Append), color.White)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got, want := row(dst, 0), []float64{255, 10, 20, 30}; !equalRow(got, want) {
		t.Errorf("translated row = %v, want %v", got, want)
	}
}

func TestTransformScaleBilinear(t *testing.T) {
	src := rowImage(t, 0, 100)
	m := NewMatrix().Scale(2, 1, Append)
	dst, err := Transform(src, 4, 1, m, color.White)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got, want := row(dst, 0), []float64{0, 25, 75, 100}; !equalRow(got, want) {
		t.Errorf("scaled row = %v, want %v", got, want)
	}
}

func TestTransformPaletteNearest(t *testing.T) {
	src := rowImage(t, 0, 1)
	if err := src.SetPalette([]color.RGBA{{R: 255, A: 255}, {B: 255, A: 255}}); err != nil {
		t.Fatalf("SetPalette() error = %v", err)
	}
	dst, err := Transform(src, 4, 1, NewMatrix().Scale(2, 1, Append), nil)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got, want := row(dst, 0), []float64{0, 0, 1, 1}; !equalRow(got, want) {
		t.Errorf("palette row = %v, want %v", got, want)
	}
	if p := dst.Palette(); p[1] != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("palette not carried over: %v", p[:2])
	}
}

func TestTransformErrors(t *testing.T) {
	src := gridImage(t, 4, 4)
	if _, err := Transform(src, 4, 4, NewMatrix().Scale(0, 0, Append), nil); !errors.Is(err, ErrSingularMatrix) {
		t.Errorf("singular Transform() error = %v, want ErrSingularMatrix", err)
	}
	if _, err := Transform(src, 0, 4, NewMatrix(), nil); !errors.Is(err, bitmap.ErrAllocation) {
		t.Errorf("zero width Transform() error = %v, want ErrAllocation", err)
	}
	src.Release()
	if _, err := Transform(src, 4, 4, NewMatrix(), nil); !errors.Is(err, bitmap.ErrReleased) {
		t.Errorf("released Transform() error = %v, want ErrReleased", err)
	}
}

func TestDrawImageToDst(t *testing.T) {
	src := gridImage(t, 4, 4)
	dst, err := bitmap.Allocate(8, 8, 8)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := dst.Fill(200); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}

	if err := DrawImageToDst(dst, src, NewMatrix(), geometry.RectWH(2, 3, 4, 4), nil); err != nil {
		t.Fatalf("DrawImageToDst() error = %v", err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := 200.0
			if x >= 2 && x < 6 && y >= 3 && y < 7 {
				want = float64((y-3)*4 + x - 2)
			}
			if got := dst.Sample(x, y, 0); got != want {
				t.Fatalf("dst(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestDrawImageFromSrcToDstRotated(t *testing.T) {
	src := gridImage(t, 4, 4)
	dst, err := bitmap.Allocate(6, 6, 8)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	m := NewMatrix().RotateAt(math.Pi, 2, 2, Append)
	if err := DrawImageFromSrcToDst(dst, src, m, geometry.RectWH(1, 1, 4, 4), src.Bounds(), nil); err != nil {
		t.Fatalf("DrawImageFromSrcToDst() error = %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := float64((3-y)*4 + 3 - x)
			if got := dst.Sample(x+1, y+1, 0); got != want {
				t.Errorf("dst(%d,%d) = %v, want %v", x+1, y+1, got, want)
			}
		}
	}
	if got := dst.Sample(0, 0, 0); got != 0 {
		t.Errorf("pixel outside dstRect written: %v", got)
	}
}

func TestDrawImageFromSrcToDstSubRect(t *testing.T) {
	src := gridImage(t, 4, 4)
	dst, err := bitmap.Allocate(2, 2, 8)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := DrawImageFromSrcToDst(dst, src, NewMatrix(), dst.Bounds(), geometry.NewRect(1, 2, 3, 4), nil); err != nil {
		t.Fatalf("DrawImageFromSrcToDst() error = %v", err)
	}
	want := [][]float64{{9, 10}, {13, 14}}
	for y, w := range want {
		if got := row(dst, y); !equalRow(got, w) {
			t.Errorf("row %d = %v, want %v", y, got, w)
		}
	}
}

func TestDrawImageFromSrcToDstFill(t *testing.T) {
	src := gridImage(t, 4, 4)
	dst, err := bitmap.Allocate(4, 4, 8)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := dst.Fill(7); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	m := NewMatrix().Translate(2, 0, Append)

	if err := DrawImageToDst(dst, src, m, dst.Bounds(), nil); err != nil {
		t.Fatalf("DrawImageToDst() error = %v", err)
	}
	if got, want := row(dst, 1), []float64{7, 7, 4, 5}; !equalRow(got, want) {
		t.Errorf("nil fill row = %v, want %v", got, want)
	}

	if err := DrawImageToDst(dst, src, m, dst.Bounds(), color.White); err != nil {
		t.Fatalf("DrawImageToDst() error = %v", err)
	}
	if got, want := row(dst, 1), []float64{255, 255, 4, 5}; !equalRow(got, want) {
		t.Errorf("white fill row = %v, want %v", got, want)
	}
}

func TestDrawImageFromSrcToDstErrors(t *testing.T) {
	src := gridImage(t, 4, 4)
	colour, err := bitmap.Allocate(4, 4, 24)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	tests := []struct {
		name    string
		dst     *bitmap.Bitmap
		m       *Matrix
		dstRect geometry.Rect
		srcRect geometry.Rect
		want    error
	}{
		{"format mismatch", colour, NewMatrix(), colour.Bounds(), src.Bounds(), bitmap.ErrUnsupportedType},
		{"source outside", gridImage(t, 4, 4), NewMatrix(), geometry.RectWH(0, 0, 4, 4), geometry.RectWH(2, 2, 4, 4), bitmap.ErrBounds},
		{"destination outside", gridImage(t, 4, 4), NewMatrix(), geometry.RectWH(-1, 0, 4, 4), src.Bounds(), bitmap.ErrBounds},
		{"empty source", gridImage(t, 4, 4), NewMatrix(), geometry.RectWH(0, 0, 4, 4), geometry.RectWH(1, 1, 0, 2), bitmap.ErrBounds},
		{"singular", gridImage(t, 4, 4), NewMatrix().Scale(1, 0, Append), geometry.RectWH(0, 0, 4, 4), src.Bounds(), ErrSingularMatrix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := tt.dst.Clone()
			if err != nil {
				t.Fatalf("Clone() error = %v", err)
			}
			err = DrawImageFromSrcToDst(tt.dst, src, tt.m, tt.dstRect, tt.srcRect, color.White)
			if !errors.Is(err, tt.want) {
				t.Fatalf("DrawImageFromSrcToDst() error = %v, want %v", err, tt.want)
			}
			if string(tt.dst.Bits()) != string(before.Bits()) {
				t.Error("destination modified on error")
			}
		})
	}
}
