package bitmap

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KernelType selects the shape of a smoothing kernel.
type KernelType int

const (
	KernelSquare KernelType = iota
	KernelCircular
	KernelGaussian
)

func (k KernelType) String() string {
	switch k {
	case KernelSquare:
		return "square"
	case KernelCircular:
		return "circular"
	case KernelGaussian:
		return "gaussian"
	default:
		return fmt.Sprintf("KernelType(%d)", int(k))
	}
}

// ParseKernelType parses square, circular or gaussian.
func ParseKernelType(s string) (KernelType, error) {
	for _, k := range []KernelType{KernelSquare, KernelCircular, KernelGaussian} {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: kernel %q", ErrInvalidArgument, s)
}

// Kernel returns the (2r+1)×(2r+1) weights of a smoothing kernel. Square
// kernels are all ones; circular kernels are one within radius of the centre
// and zero outside; Gaussian weights are exp(−d²/(r/2)²). A normalised
// kernel sums to one.
func Kernel(kt KernelType, radius int, normalise bool) (*mat.Dense, error) {
	if radius < 1 {
		return nil, fmt.Errorf("%w: kernel radius %d", ErrInvalidArgument, radius)
	}
	size := 2*radius + 1
	k := mat.NewDense(size, size, nil)
	sigmaSq := math.Pow(float64(radius)/2, 2)
	for j := 0; j < size; j++ {
		for i := 0; i < size; i++ {
			dx, dy := float64(i-radius), float64(j-radius)
			dsq := dx*dx + dy*dy
			switch kt {
			case KernelSquare:
				k.Set(j, i, 1)
			case KernelCircular:
				if dsq <= float64(radius*radius) {
					k.Set(j, i, 1)
				}
			case KernelGaussian:
				k.Set(j, i, math.Exp(-dsq/sigmaSq))
			default:
				return nil, fmt.Errorf("%w: kernel %v", ErrInvalidArgument, kt)
			}
		}
	}
	if normalise {
		k.Scale(1/mat.Sum(k), k)
	}
	return k, nil
}

// Convolve correlates a grey image with k, replicating edge pixels, and
// returns a TypeDouble image of the same size. k must have odd dimensions;
// its centre weight lands on the output pixel.
func Convolve(src *Bitmap, k *mat.Dense) (*Bitmap, error) {
	if err := checkGrey(src, "convolve"); err != nil {
		return nil, err
	}
	if err := checkKernel(k); err != nil {
		return nil, err
	}
	dst, err := newLike(src, TypeDouble, 64)
	if err != nil {
		return nil, err
	}
	dst.setPlane(0, convolvePlane(src.plane(0), src.width, src.height, k))
	return dst, nil
}

// Sobel returns the TypeDouble gradient magnitude of a grey image.
func Sobel(src *Bitmap) (*Bitmap, error) {
	vertical, horizontal, err := SobelComponents(src)
	if err != nil {
		return nil, err
	}
	defer horizontal.Release()
	for y := 0; y < vertical.height; y++ {
		for x := 0; x < vertical.width; x++ {
			vertical.SetSample(x, y, 0, math.Hypot(vertical.Sample(x, y, 0), horizontal.Sample(x, y, 0)))
		}
	}
	return vertical, nil
}

var (
	sobelVertical   = mat.NewDense(3, 3, []float64{-1, 0, 1, -2, 0, 2, -1, 0, 1})
	sobelHorizontal = mat.NewDense(3, 3, []float64{1, 2, 1, 0, 0, 0, -1, -2, -1})
)

// SobelComponents returns the responses to vertical edges (x gradient) and
// horizontal edges (y gradient, positive where intensity falls downwards).
func SobelComponents(src *Bitmap) (vertical, horizontal *Bitmap, err error) {
	if vertical, err = Convolve(src, sobelVertical); err != nil {
		return nil, nil, err
	}
	if horizontal, err = Convolve(src, sobelHorizontal); err != nil {
		vertical.Release()
		return nil, nil, err
	}
	return vertical, horizontal, nil
}

// Binning sums each pixel's neighbourhood under an unnormalised kernel and
// returns a TypeDouble image.
func Binning(src *Bitmap, kt KernelType, radius int) (*Bitmap, error) {
	k, err := Kernel(kt, radius, false)
	if err != nil {
		return nil, err
	}
	return Convolve(src, k)
}

// Blur smooths every colour channel with a normalised kernel and returns an
// image of the source format. Alpha is copied unchanged.
func Blur(src *Bitmap, kt KernelType, radius int) (*Bitmap, error) {
	if err := checkFilterable(src, "blur"); err != nil {
		return nil, err
	}
	k, err := Kernel(kt, radius, true)
	if err != nil {
		return nil, err
	}
	return src.mapChannels(func(pix []float64) []float64 {
		return convolvePlane(pix, src.width, src.height, k)
	})
}

// UnsharpMask sharpens src by adding amount times its difference from a
// Gaussian blur of the given radius. Differences smaller than threshold/2
// are ignored. Integer results clamp to the type range and float results to
// the source's own extrema.
func UnsharpMask(src *Bitmap, radius int, amount, threshold float64) (*Bitmap, error) {
	blurred, err := Blur(src, KernelGaussian, radius)
	if err != nil {
		return nil, err
	}
	defer blurred.Release()

	lo, hi := math.Inf(-1), math.Inf(1)
	if src.typ.IsFloat() {
		if lo, hi, err = src.FindMinMax(); err != nil {
			return nil, err
		}
	}
	dst, err := src.Clone()
	if err != nil {
		return nil, err
	}
	for ch := 0; ch < src.colourChannels(); ch++ {
		for y := 0; y < src.height; y++ {
			for x := 0; x < src.width; x++ {
				v := src.Sample(x, y, ch)
				diff := v - blurred.Sample(x, y, ch)
				if math.Abs(2*diff) < threshold {
					continue
				}
				dst.SetSample(x, y, ch, clamp(v+diff*amount, lo, hi))
			}
		}
	}
	return dst, nil
}

// MedianFilter replaces every sample with the median of the
// (2rx+1)×(2ry+1) neighbourhood around it, replicating edge pixels. The
// result has the source format; alpha is copied unchanged.
func MedianFilter(src *Bitmap, rx, ry int) (*Bitmap, error) {
	if err := checkFilterable(src, "median filter"); err != nil {
		return nil, err
	}
	if rx < 0 || ry < 0 {
		return nil, fmt.Errorf("%w: median radius %dx%d", ErrInvalidArgument, rx, ry)
	}
	w, h := src.width, src.height
	window := make([]float64, 0, (2*rx+1)*(2*ry+1))
	return src.mapChannels(func(pix []float64) []float64 {
		out := make([]float64, len(pix))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				window = window[:0]
				for j := y - ry; j <= y+ry; j++ {
					row := clampIndex(j, h) * w
					for i := x - rx; i <= x+rx; i++ {
						window = append(window, pix[row+clampIndex(i, w)])
					}
				}
				sort.Float64s(window)
				out[y*w+x] = window[len(window)/2]
			}
		}
		return out
	})
}

// convolvePlane correlates a w×h plane with k, replicating edge samples.
func convolvePlane(pix []float64, w, h int, k *mat.Dense) []float64 {
	kh, kw := k.Dims()
	rx, ry := kw/2, kh/2
	pw, ph := w+2*rx, h+2*ry
	padded := make([]float64, pw*ph)
	for y := 0; y < ph; y++ {
		row := clampIndex(y-ry, h) * w
		for x := 0; x < pw; x++ {
			padded[y*pw+x] = pix[row+clampIndex(x-rx, w)]
		}
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var s float64
			for j := 0; j < kh; j++ {
				start := (y+j)*pw + x
				s += floats.Dot(k.RawRowView(j), padded[start:start+kw])
			}
			out[y*w+x] = s
		}
	}
	return out
}

// plane returns channel ch as a dense row-major slice.
func (b *Bitmap) plane(ch int) []float64 {
	pix := make([]float64, b.width*b.height)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			pix[y*b.width+x] = b.Sample(x, y, ch)
		}
	}
	return pix
}

func (b *Bitmap) setPlane(ch int, pix []float64) {
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			b.SetSample(x, y, ch, pix[y*b.width+x])
		}
	}
}

// colourChannels is the number of channels filters touch: RGB for colour
// bitmaps, one otherwise.
func (b *Bitmap) colourChannels() int {
	if b.IsColour() {
		return 3
	}
	return 1
}

// mapChannels clones b and replaces each colour channel with f of it.
func (b *Bitmap) mapChannels(f func(pix []float64) []float64) (*Bitmap, error) {
	dst, err := b.Clone()
	if err != nil {
		return nil, err
	}
	for ch := 0; ch < b.colourChannels(); ch++ {
		dst.setPlane(ch, f(b.plane(ch)))
	}
	return dst, nil
}

func checkGrey(b *Bitmap, op string) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if !b.IsGreyScale() {
		return fmt.Errorf("%w: %s needs a grey image, got %s", ErrUnsupportedType, op, b)
	}
	return nil
}

// checkFilterable accepts grey and colour images but not palette indices.
func checkFilterable(b *Bitmap, op string) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if !b.IsGreyScale() && !b.IsColour() {
		return fmt.Errorf("%w: %s on palette indices of %s", ErrUnsupportedType, op, b)
	}
	return nil
}

func checkKernel(k *mat.Dense) error {
	if k == nil {
		return fmt.Errorf("%w: nil kernel", ErrInvalidArgument)
	}
	r, c := k.Dims()
	if r%2 == 0 || c%2 == 0 {
		return fmt.Errorf("%w: kernel %dx%d must have odd dimensions", ErrInvalidArgument, c, r)
	}
	return nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
