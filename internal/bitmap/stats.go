package bitmap

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"imgkit/pkg/geometry"
)

// StatisticReport summarises the intensity distribution of an image or a
// masked part of it.
type StatisticReport struct {
	Area           int
	Min            float64
	Max            float64
	Mean           float64
	StdDev         float64
	Skewness       float64
	ExcessKurtosis float64
}

func (r StatisticReport) String() string {
	return fmt.Sprintf("area=%d min=%g max=%g mean=%.4f stddev=%.4f skew=%.4f kurtosis=%.4f",
		r.Area, r.Min, r.Max, r.Mean, r.StdDev, r.Skewness, r.ExcessKurtosis)
}

// StatisticReport computes intensity statistics over the whole image.
// StdDev is the sample standard deviation.
func (b *Bitmap) StatisticReport() (StatisticReport, error) {
	return b.StatisticReportWithMask(nil)
}

// StatisticReportWithMask computes intensity statistics over the pixels
// where mask is non-zero. mask must have the same dimensions as b; a nil
// mask selects every pixel.
func (b *Bitmap) StatisticReportWithMask(mask *Bitmap) (StatisticReport, error) {
	values, err := b.greyValues(mask)
	if err != nil {
		return StatisticReport{}, err
	}
	mean, std := stat.MeanStdDev(values, nil)
	return StatisticReport{
		Area:           len(values),
		Min:            floats.Min(values),
		Max:            floats.Max(values),
		Mean:           mean,
		StdDev:         std,
		Skewness:       stat.Skew(values, nil),
		ExcessKurtosis: stat.ExKurtosis(values, nil),
	}, nil
}

// GreyLevelAverage returns the mean intensity.
func (b *Bitmap) GreyLevelAverage() (float64, error) {
	values, err := b.greyValues(nil)
	if err != nil {
		return 0, err
	}
	return stat.Mean(values, nil), nil
}

// Median returns the median intensity.
func (b *Bitmap) Median() (float64, error) {
	p, err := b.Percentiles(50)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// Percentiles returns the empirical intensity quantile for each percentage
// in ps (0-100).
func (b *Bitmap) Percentiles(ps ...float64) ([]float64, error) {
	for _, p := range ps {
		if p < 0 || p > 100 || math.IsNaN(p) {
			return nil, fmt.Errorf("%w: percentile %g", ErrInvalidArgument, p)
		}
	}
	values, err := b.greyValues(nil)
	if err != nil {
		return nil, err
	}
	sort.Float64s(values)

	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = stat.Quantile(p/100, stat.Empirical, values, nil)
	}
	return out, nil
}

// Centroid returns the intensity-weighted centre of the image. A completely
// black image reports its geometric centre.
func (b *Bitmap) Centroid() (geometry.Point2D, error) {
	if err := b.Validate(); err != nil {
		return geometry.Point2D{}, err
	}
	var sum, sx, sy float64
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			v := b.Grey(x, y)
			sum += v
			sx += v * float64(x)
			sy += v * float64(y)
		}
	}
	if sum == 0 {
		return geometry.Point2D{X: float64(b.width-1) / 2, Y: float64(b.height-1) / 2}, nil
	}
	return geometry.Point2D{X: sx / sum, Y: sy / sum}, nil
}

// HistogramEqualise returns a copy of an 8-bit grey image whose levels are
// remapped through the normalised cumulative histogram.
func HistogramEqualise(src *Bitmap) (*Bitmap, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.typ != TypeBitmap || src.bpp != 8 || !src.IsGreyScale() {
		return nil, fmt.Errorf("%w: histogram equalisation needs 8-bit grey, got %s", ErrUnsupportedType, src)
	}

	var hist [256]int
	for y := 0; y < src.height; y++ {
		for _, v := range src.ScanLine(y) {
			hist[v]++
		}
	}
	total := float64(src.width * src.height)
	var lut [256]uint8
	cum := 0
	for i, n := range hist {
		cum += n
		lut[i] = uint8(math.Min(float64(cum)*255/total+0.5, 255))
	}

	dst, err := src.Clone()
	if err != nil {
		return nil, err
	}
	for y := 0; y < dst.height; y++ {
		row := dst.ScanLine(y)
		for x, v := range row {
			row[x] = lut[v]
		}
	}
	return dst, nil
}

// EqualiseHistogram replaces the buffer with its HistogramEqualise result.
func (b *Bitmap) EqualiseHistogram() error {
	return b.apply(HistogramEqualise)
}

func (b *Bitmap) greyValues(mask *Bitmap) ([]float64, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if mask != nil {
		if err := mask.Validate(); err != nil {
			return nil, err
		}
		if mask.width != b.width || mask.height != b.height {
			return nil, fmt.Errorf("%w: mask %dx%d for image %dx%d",
				ErrBounds, mask.width, mask.height, b.width, b.height)
		}
	}

	values := make([]float64, 0, b.width*b.height)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if mask != nil && mask.Grey(x, y) == 0 {
				continue
			}
			values = append(values, b.Grey(x, y))
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: mask selects no pixels", ErrInvalidArgument)
	}
	return values, nil
}
