package mosaic

import (
	"errors"
	"testing"

	"imgkit/internal/affine"
	"imgkit/internal/bitmap"
	"imgkit/pkg/geometry"
)

func TestRegisterTranslation(t *testing.T) {
	scene := noise(t, 120, 100, 21)
	defer scene.Release()
	moving := crop(t, scene, geometry.NewRect(13, 7, 120, 100))
	defer moving.Release()

	// a featureless patch cannot be matched and is dropped
	for y := 38; y < 54; y++ {
		for x := 45; x < 61; x++ {
			moving.SetSample(x, y, 0, 90)
		}
	}

	opts := DefaultRegisterOptions()
	opts.Grid, opts.Patch, opts.Search = 3, 16, 8
	opts.Initial = geometry.Pt(10, 5)
	m, ties, err := Register(scene, moving, opts)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if len(ties) != 8 {
		t.Errorf("tie points = %d, want 8", len(ties))
	}
	for _, tp := range ties {
		if !tp.Inlier {
			t.Errorf("tie point %+v rejected", tp)
		}
	}
	want := affine.NewMatrix().Translate(13, 7, affine.Append)
	if !m.Equal(want, 1e-9) {
		t.Errorf("Register() = %v, want %v", m, want)
	}
}

func TestRegisterErrors(t *testing.T) {
	scene := noise(t, 60, 60, 22)
	defer scene.Release()

	opts := DefaultRegisterOptions()
	opts.Grid = 1
	if _, _, err := Register(scene, scene, opts); !errors.Is(err, bitmap.ErrInvalidArgument) {
		t.Errorf("Register(grid 1) error = %v, want ErrInvalidArgument", err)
	}

	opts = DefaultRegisterOptions()
	opts.Patch = 56
	if _, _, err := Register(scene, scene, opts); !errors.Is(err, bitmap.ErrInvalidArgument) {
		t.Errorf("Register(large patch) error = %v, want ErrInvalidArgument", err)
	}

	released := noise(t, 60, 60, 23)
	released.Release()
	if _, _, err := Register(scene, released, DefaultRegisterOptions()); !errors.Is(err, bitmap.ErrReleased) {
		t.Errorf("Register(released) error = %v, want ErrReleased", err)
	}
}
