package bitmap

import (
	"errors"
	"testing"
)

func sum(h []uint64) uint64 {
	var n uint64
	for _, v := range h {
		n += v
	}
	return n
}

func TestHistogram(t *testing.T) {
	src := ramp8(t)

	t.Run("one bin per level", func(t *testing.T) {
		h, err := src.Histogram(0, 255, 256)
		if err != nil {
			t.Fatalf("Histogram() error = %v", err)
		}
		for i, n := range h {
			if n != 1 {
				t.Fatalf("bin %d = %d, want 1", i, n)
			}
		}
	})

	t.Run("partial range", func(t *testing.T) {
		h, err := src.Histogram(100, 199, 10)
		if err != nil {
			t.Fatalf("Histogram() error = %v", err)
		}
		if got := sum(h); got != 100 {
			t.Errorf("sum = %d, want 100 pixels scanned", got)
		}
		if h[9] == 0 {
			t.Error("value equal to max should land in the last bin")
		}
	})

	tests := []struct {
		name    string
		b       *Bitmap
		lo, hi  float64
		bins    int
		wantErr error
	}{
		{"zero bins", src, 0, 255, 0, ErrInvalidArgument},
		{"empty range", src, 10, 10, 4, ErrInvalidArgument},
		{"colour", mustAllocate(t, TypeBitmap, 2, 2, 24), 0, 255, 4, ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Histogram(tt.lo, tt.hi, tt.bins); !errors.Is(err, tt.wantErr) {
				t.Errorf("Histogram() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGreyLevelHistogram(t *testing.T) {
	tests := []struct {
		name string
		b    *Bitmap
		want []uint64
	}{
		{"uint16", greyFrom(t, TypeUint16, [][]float64{{0, 65535, 30000}}), []uint64{1, 1, 0, 1}},
		{"int16", greyFrom(t, TypeInt16, [][]float64{{-32768, 0, 32767}}), []uint64{1, 0, 1, 1}},
		{"float", greyFrom(t, TypeFloat, [][]float64{{-2, 0, 2}}), []uint64{1, 0, 1, 1}},
		{"flat float", greyFrom(t, TypeDouble, [][]float64{{5, 5}}), []uint64{2, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := tt.b.GreyLevelHistogram(4)
			if err != nil {
				t.Fatalf("GreyLevelHistogram() error = %v", err)
			}
			for i := range tt.want {
				if h[i] != tt.want[i] {
					t.Fatalf("GreyLevelHistogram() = %v, want %v", h, tt.want)
				}
			}
		})
	}
}

func TestRGBHistogram(t *testing.T) {
	b := mustAllocate(t, TypeBitmap, 2, 1, 24)
	b.SetPixel(0, 0, 1, 2, 3)
	b.SetPixel(1, 0, 1, 5, 3)

	r, g, bl, err := b.RGBHistogram(256)
	if err != nil {
		t.Fatalf("RGBHistogram() error = %v", err)
	}
	if r[1] != 2 || g[2] != 1 || g[5] != 1 || bl[3] != 2 {
		t.Errorf("RGBHistogram() r[1]=%d g[2]=%d g[5]=%d b[3]=%d", r[1], g[2], g[5], bl[3])
	}

	if _, _, _, err := ramp8(t).RGBHistogram(256); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("grey RGBHistogram() error = %v, want ErrUnsupportedType", err)
	}
}
