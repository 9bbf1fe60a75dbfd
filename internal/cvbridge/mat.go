// Package cvbridge moves bitmaps in and out of OpenCV and offers OpenCV
// backed alternatives to the native correlator and affine warp.
package cvbridge

import (
	"fmt"

	"gocv.io/x/gocv"

	"imgkit/internal/bitmap"
)

// Version reports the OpenCV library version gocv is linked against.
func Version() string {
	return gocv.OpenCVVersion()
}

// matType returns the OpenCV type for a bitmap's pixel layout.
func matType(b *bitmap.Bitmap) (gocv.MatType, error) {
	switch b.Type() {
	case bitmap.TypeBitmap:
		switch b.BPP() {
		case 8:
			return gocv.MatTypeCV8UC1, nil
		case 24:
			return gocv.MatTypeCV8UC3, nil
		case 32:
			return gocv.MatTypeCV8UC4, nil
		}
	case bitmap.TypeUint16:
		return gocv.MatTypeCV16UC1, nil
	case bitmap.TypeInt16:
		return gocv.MatTypeCV16SC1, nil
	case bitmap.TypeInt32:
		return gocv.MatTypeCV32SC1, nil
	case bitmap.TypeFloat:
		return gocv.MatTypeCV32FC1, nil
	case bitmap.TypeDouble:
		return gocv.MatTypeCV64FC1, nil
	}
	return 0, fmt.Errorf("%w: no OpenCV type for %s", bitmap.ErrUnsupportedType, b)
}

// bitmapType is the inverse of matType.
func bitmapType(mt gocv.MatType) (bitmap.Type, int, error) {
	switch mt {
	case gocv.MatTypeCV8UC1:
		return bitmap.TypeBitmap, 8, nil
	case gocv.MatTypeCV8UC3:
		return bitmap.TypeBitmap, 24, nil
	case gocv.MatTypeCV8UC4:
		return bitmap.TypeBitmap, 32, nil
	case gocv.MatTypeCV16UC1:
		return bitmap.TypeUint16, 16, nil
	case gocv.MatTypeCV16SC1:
		return bitmap.TypeInt16, 16, nil
	case gocv.MatTypeCV32SC1:
		return bitmap.TypeInt32, 32, nil
	case gocv.MatTypeCV32FC1:
		return bitmap.TypeFloat, 32, nil
	case gocv.MatTypeCV64FC1:
		return bitmap.TypeDouble, 64, nil
	}
	return bitmap.TypeUnknown, 0, fmt.Errorf("%w: unsupported Mat type %v", bitmap.ErrUnsupportedType, mt)
}

// ToMat copies b into a new Mat. Colour bitmaps become BGR(A) Mats, the
// channel order OpenCV expects; 8-bit images with a colour palette are
// expanded to BGR first. The caller must Close the Mat.
func ToMat(b *bitmap.Bitmap) (gocv.Mat, error) {
	if err := b.Validate(); err != nil {
		return gocv.Mat{}, err
	}
	if b.Type() == bitmap.TypeBitmap && b.BPP() == 8 && !b.IsGreyScale() {
		rgb, err := bitmap.To24Bits(b)
		if err != nil {
			return gocv.Mat{}, err
		}
		defer rgb.Release()
		b = rgb
	}
	mt, err := matType(b)
	if err != nil {
		return gocv.Mat{}, err
	}

	// Mats are unpadded; bitmap rows are padded to the pitch.
	line := b.Width() * (b.BPP() / 8)
	data := make([]byte, line*b.Height())
	for y := 0; y < b.Height(); y++ {
		copy(data[y*line:(y+1)*line], b.ScanLine(y))
	}
	mat, err := gocv.NewMatFromBytes(b.Height(), b.Width(), mt, data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("create Mat: %w", err)
	}

	switch b.Channels() {
	case 3:
		gocv.CvtColor(mat, &mat, gocv.ColorRGBToBGR)
	case 4:
		gocv.CvtColor(mat, &mat, gocv.ColorRGBAToBGRA)
	}
	return mat, nil
}

// FromMat copies a Mat into a new bitmap, converting BGR(A) to RGB(A).
func FromMat(m gocv.Mat) (*bitmap.Bitmap, error) {
	if m.Empty() {
		return nil, fmt.Errorf("%w: empty Mat", bitmap.ErrInvalidArgument)
	}
	typ, bpp, err := bitmapType(m.Type())
	if err != nil {
		return nil, err
	}

	src := m.Clone()
	defer src.Close()
	switch src.Channels() {
	case 3:
		gocv.CvtColor(src, &src, gocv.ColorBGRToRGB)
	case 4:
		gocv.CvtColor(src, &src, gocv.ColorBGRAToRGBA)
	}

	b, err := bitmap.AllocateT(typ, src.Cols(), src.Rows(), bpp)
	if err != nil {
		return nil, err
	}
	data := src.ToBytes()
	line := b.Width() * (bpp / 8)
	for y := 0; y < b.Height(); y++ {
		copy(b.ScanLine(y), data[y*line:(y+1)*line])
	}
	return b, nil
}
