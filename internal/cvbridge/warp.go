package cvbridge

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"imgkit/internal/affine"
	"imgkit/internal/bitmap"
)

// WarpAffine is affine.Transform run through OpenCV's warpAffine with
// bilinear interpolation. Pixel centres follow the same convention as
// affine.Transform, so both agree away from the image border. fill is
// honoured for 8-bit images; other types are filled with zero. Images with
// a colour palette come back as 24-bit RGB.
func WarpAffine(src *bitmap.Bitmap, m *affine.Matrix, dstW, dstH int, fill color.Color) (*bitmap.Bitmap, error) {
	if _, err := m.Inverse(); err != nil {
		return nil, err
	}
	mat, err := ToMat(src)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	// OpenCV puts pixel centres on integer coordinates.
	cv := affine.NewMatrix().
		Translate(0.5, 0.5, affine.Append).
		Multiply(m, affine.Append).
		Translate(-0.5, -0.5, affine.Append)
	a, b, tx, c, d, ty := cv.Elements()

	transformMat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer transformMat.Close()
	transformMat.SetDoubleAt(0, 0, a)
	transformMat.SetDoubleAt(0, 1, b)
	transformMat.SetDoubleAt(0, 2, tx)
	transformMat.SetDoubleAt(1, 0, c)
	transformMat.SetDoubleAt(1, 1, d)
	transformMat.SetDoubleAt(1, 2, ty)

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffineWithParams(mat, &dst, transformMat, image.Point{X: dstW, Y: dstH},
		gocv.InterpolationLinear, gocv.BorderConstant, borderValue(src, fill))

	out, err := FromMat(dst)
	if err != nil {
		return nil, err
	}
	out.DPI = src.DPI
	return out, nil
}

// borderValue converts fill for a Mat made from b. Grey Mats read only the
// first scalar component, which gocv takes from the blue channel.
func borderValue(b *bitmap.Bitmap, fill color.Color) color.RGBA {
	if fill == nil || b.Type() != bitmap.TypeBitmap {
		return color.RGBA{}
	}
	n := color.NRGBAModel.Convert(fill).(color.NRGBA)
	if b.IsGreyScale() {
		v := uint8(b.FillValues(fill)[0])
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}
	return color.RGBA{R: n.R, G: n.G, B: n.B, A: n.A}
}
