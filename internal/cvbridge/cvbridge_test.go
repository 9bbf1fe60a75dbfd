package cvbridge

import (
	"errors"
	"image/color"
	"math/rand"
	"testing"

	"gocv.io/x/gocv"

	"imgkit/internal/affine"
	"imgkit/internal/bitmap"
	"imgkit/internal/correlate"
	"imgkit/pkg/geometry"
)

func noise(t *testing.T, w, h, bpp int, seed int64) *bitmap.Bitmap {
	t.Helper()
	b, err := bitmap.Allocate(w, h, bpp)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	rng := rand.New(rand.NewSource(seed))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < b.Channels(); ch++ {
				b.SetSample(x, y, ch, float64(rng.Intn(256)))
			}
		}
	}
	return b
}

func sameBitmap(t *testing.T, got, want *bitmap.Bitmap) {
	t.Helper()
	if !got.SameFormat(want) || got.Width() != want.Width() || got.Height() != want.Height() {
		t.Fatalf("got %s, want %s", got, want)
	}
	for y := 0; y < want.Height(); y++ {
		for x := 0; x < want.Width(); x++ {
			for ch := 0; ch < want.Channels(); ch++ {
				if g, w := got.Sample(x, y, ch), want.Sample(x, y, ch); g != w {
					t.Fatalf("sample (%d,%d,%d) = %v, want %v", x, y, ch, g, w)
				}
			}
		}
	}
}

func TestMatRoundTrip(t *testing.T) {
	uint16Img, err := bitmap.AllocateT(bitmap.TypeUint16, 5, 3, 0)
	if err != nil {
		t.Fatalf("AllocateT() error = %v", err)
	}
	uint16Img.SetSample(4, 2, 0, 60000)

	tests := []struct {
		name string
		img  *bitmap.Bitmap
	}{
		{"grey", noise(t, 7, 5, 8, 1)},
		{"rgb", noise(t, 7, 5, 24, 2)},
		{"rgba", noise(t, 5, 4, 32, 3)},
		{"uint16", uint16Img},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mat, err := ToMat(tt.img)
			if err != nil {
				t.Fatalf("ToMat() error = %v", err)
			}
			defer mat.Close()
			if mat.Rows() != tt.img.Height() || mat.Cols() != tt.img.Width() {
				t.Fatalf("Mat is %dx%d", mat.Cols(), mat.Rows())
			}
			back, err := FromMat(mat)
			if err != nil {
				t.Fatalf("FromMat() error = %v", err)
			}
			sameBitmap(t, back, tt.img)
		})
	}
}

func TestToMatChannelOrder(t *testing.T) {
	b, err := bitmap.Allocate(1, 1, 24)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := b.SetPixel(0, 0, 10, 20, 30); err != nil {
		t.Fatalf("SetPixel() error = %v", err)
	}
	mat, err := ToMat(b)
	if err != nil {
		t.Fatalf("ToMat() error = %v", err)
	}
	defer mat.Close()
	if got := mat.GetVecbAt(0, 0); got[0] != 30 || got[2] != 10 {
		t.Errorf("Mat pixel = %v, want BGR order", got)
	}
}

func TestToMatErrors(t *testing.T) {
	u32, err := bitmap.AllocateT(bitmap.TypeUint32, 2, 2, 0)
	if err != nil {
		t.Fatalf("AllocateT() error = %v", err)
	}
	if _, err := ToMat(u32); !errors.Is(err, bitmap.ErrUnsupportedType) {
		t.Errorf("ToMat(uint32) error = %v, want ErrUnsupportedType", err)
	}
	u32.Release()
	if _, err := ToMat(u32); !errors.Is(err, bitmap.ErrReleased) {
		t.Errorf("ToMat(released) error = %v, want ErrReleased", err)
	}
	if _, err := FromMat(gocv.NewMat()); !errors.Is(err, bitmap.ErrInvalidArgument) {
		t.Errorf("FromMat(empty) error = %v, want ErrInvalidArgument", err)
	}
}

func TestMatcherAgreesWithNative(t *testing.T) {
	scene := noise(t, 60, 50, 8, 4)
	b, err := scene.Copy(geometry.NewRect(17, 9, 60, 50))
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	rectB := geometry.NewRect(2, 3, 12, 15)

	native, nativeScore, err := correlate.Regions(scene, scene.Bounds(), b, rectB)
	if err != nil {
		t.Fatalf("native Regions() error = %v", err)
	}
	cv, cvScore, err := correlate.New(Matcher{}).Regions(scene, scene.Bounds(), b, rectB)
	if err != nil {
		t.Fatalf("OpenCV Regions() error = %v", err)
	}
	if cv != native || cv != geometry.Pt(17, 9) {
		t.Errorf("OpenCV offset = %v, native = %v, want (17,9)", cv, native)
	}
	if cvScore < 0.999 || nativeScore < 0.999 {
		t.Errorf("scores = %v (OpenCV), %v (native), want ~1", cvScore, nativeScore)
	}
}

func TestWarpAffineAgreesWithTransform(t *testing.T) {
	src := noise(t, 16, 12, 8, 5)
	m := affine.NewMatrix().Translate(3, 2, affine.Append)

	cv, err := WarpAffine(src, m, 16, 12, color.Black)
	if err != nil {
		t.Fatalf("WarpAffine() error = %v", err)
	}
	native, err := affine.Transform(src, 16, 12, m, color.Black)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	sameBitmap(t, cv, native)

	if _, err := WarpAffine(src, affine.NewMatrix().Scale(0, 1, affine.Append), 4, 4, nil); !errors.Is(err, affine.ErrSingularMatrix) {
		t.Errorf("singular WarpAffine() error = %v, want ErrSingularMatrix", err)
	}
}
