package bitmap

import (
	"errors"
	"testing"
)

func TestGreyscale(t *testing.T) {
	b := mustAllocate(t, TypeBitmap, 3, 1, 24)
	b.SetPixel(0, 0, 255, 0, 0)
	b.SetPixel(1, 0, 255, 255, 255)
	b.SetPixel(2, 0, 0, 0, 0)

	g, err := Greyscale(b)
	if err != nil {
		t.Fatalf("Greyscale() error = %v", err)
	}
	if g.BPP() != 8 || !g.IsGreyScale() {
		t.Fatalf("Greyscale() = %v, want 8-bit grey", g)
	}
	want := []float64{54, 255, 0}
	for x, w := range want {
		if got := g.Sample(x, 0, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
	if b.BPP() != 24 {
		t.Error("Greyscale() must not modify its source")
	}
}

func TestStandardType(t *testing.T) {
	src := greyFrom(t, TypeUint16, [][]float64{{0, 100, 300, 816, 2040}})

	tests := []struct {
		name        string
		scaleLinear bool
		want        []float64
	}{
		{"rounding", false, []float64{0, 100, 255, 255, 255}},
		{"linear", true, []float64{0, 13, 38, 102, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst, err := StandardType(src, tt.scaleLinear)
			if err != nil {
				t.Fatalf("StandardType() error = %v", err)
			}
			if dst.Type() != TypeBitmap || dst.BPP() != 8 {
				t.Fatalf("StandardType() = %v", dst)
			}
			for x, w := range tt.want {
				if got := dst.Sample(x, 0, 0); got != w {
					t.Errorf("pixel %d = %v, want %v", x, got, w)
				}
			}
		})
	}
}

func TestConvertToType(t *testing.T) {
	src := greyFrom(t, TypeBitmap, [][]float64{{0, 200, 255}})

	tests := []struct {
		typ  Type
		want []float64
	}{
		{TypeUint16, []float64{0, 200, 255}},
		{TypeInt32, []float64{0, 200, 255}},
		{TypeDouble, []float64{0, 200, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			dst, err := ConvertToType(src, tt.typ, false)
			if err != nil {
				t.Fatalf("ConvertToType() error = %v", err)
			}
			if dst.Type() != tt.typ {
				t.Errorf("Type() = %v, want %v", dst.Type(), tt.typ)
			}
			for x, w := range tt.want {
				if got := dst.Sample(x, 0, 0); got != w {
					t.Errorf("pixel %d = %v, want %v", x, got, w)
				}
			}
		})
	}

	if _, err := ConvertToType(src, Type(42), false); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("ConvertToType(invalid) error = %v, want ErrUnsupportedType", err)
	}
}

func TestTo8Bits(t *testing.T) {
	src := greyFrom(t, TypeUint16, [][]float64{{0x1234, 0xff00, 0x00ff}})
	dst, err := To8Bits(src)
	if err != nil {
		t.Fatalf("To8Bits() error = %v", err)
	}
	want := []float64{0x12, 0xff, 0x00}
	for x, w := range want {
		if got := dst.Sample(x, 0, 0); got != w {
			t.Errorf("pixel %d = %#x, want %#x", x, int(got), int(w))
		}
	}

	if _, err := To8Bits(mustAllocate(t, TypeDouble, 1, 1, 0)); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("To8Bits(double) error = %v, want ErrUnsupportedType", err)
	}
}

func TestTo24And32Bits(t *testing.T) {
	src := greyFrom(t, TypeBitmap, [][]float64{{77}})

	rgb, err := To24Bits(src)
	if err != nil {
		t.Fatalf("To24Bits() error = %v", err)
	}
	px, _ := rgb.Pixel(0, 0)
	if rgb.BPP() != 24 || px[0] != 77 || px[1] != 77 || px[2] != 77 {
		t.Errorf("To24Bits() = %v %v", rgb, px)
	}

	if err := rgb.ConvertTo32Bits(); err != nil {
		t.Fatalf("ConvertTo32Bits() error = %v", err)
	}
	px, _ = rgb.Pixel(0, 0)
	if rgb.BPP() != 32 || px[3] != 255 {
		t.Errorf("ConvertTo32Bits() = %v %v", rgb, px)
	}

	if _, err := To24Bits(mustAllocate(t, TypeFloat, 1, 1, 0)); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("To24Bits(float) error = %v, want ErrUnsupportedType", err)
	}
}

func TestInt16ToUint16(t *testing.T) {
	src := greyFrom(t, TypeInt16, [][]float64{{-32768, 0, 32767}})
	if err := src.ConvertInt16ToUint16(); err != nil {
		t.Fatalf("ConvertInt16ToUint16() error = %v", err)
	}
	if src.Type() != TypeUint16 {
		t.Fatalf("Type() = %v, want uint16", src.Type())
	}
	want := []float64{0, 32768, 65535}
	for x, w := range want {
		if got := src.Sample(x, 0, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}

	if err := src.ConvertInt16ToUint16(); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("second conversion error = %v, want ErrUnsupportedType", err)
	}
	if src.Type() != TypeUint16 {
		t.Error("failed conversion must leave the bitmap unchanged")
	}
}
