package bitmap

import (
	"errors"
	"math"
	"testing"
)

func TestStatisticReport(t *testing.T) {
	b := greyFrom(t, TypeBitmap, [][]float64{{1, 2, 3, 4}})
	r, err := b.StatisticReport()
	if err != nil {
		t.Fatalf("StatisticReport() error = %v", err)
	}
	if r.Area != 4 || r.Min != 1 || r.Max != 4 || r.Mean != 2.5 {
		t.Errorf("StatisticReport() = %v", r)
	}
	if math.Abs(r.StdDev-math.Sqrt(5.0/3)) > 1e-12 {
		t.Errorf("StdDev = %v, want %v", r.StdDev, math.Sqrt(5.0/3))
	}
	if math.Abs(r.Skewness) > 1e-12 {
		t.Errorf("Skewness = %v, want 0 for a symmetric sample", r.Skewness)
	}
}

func TestStatisticReportWithMask(t *testing.T) {
	b := greyFrom(t, TypeUint16, [][]float64{{10, 20}, {30, 1000}})
	mask := greyFrom(t, TypeBitmap, [][]float64{{255, 0}, {255, 0}})

	r, err := b.StatisticReportWithMask(mask)
	if err != nil {
		t.Fatalf("StatisticReportWithMask() error = %v", err)
	}
	if r.Area != 2 || r.Min != 10 || r.Max != 30 || r.Mean != 20 {
		t.Errorf("StatisticReportWithMask() = %v", r)
	}

	if _, err := b.StatisticReportWithMask(mustAllocate(t, TypeBitmap, 2, 2, 8)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty mask error = %v, want ErrInvalidArgument", err)
	}
	if _, err := b.StatisticReportWithMask(mustAllocate(t, TypeBitmap, 3, 2, 8)); !errors.Is(err, ErrBounds) {
		t.Errorf("mismatched mask error = %v, want ErrBounds", err)
	}
}

func TestPercentiles(t *testing.T) {
	b := greyFrom(t, TypeDouble, [][]float64{{5, 1, 4, 2, 3}})

	med, err := b.Median()
	if err != nil || med != 3 {
		t.Errorf("Median() = %v, %v, want 3", med, err)
	}
	p, err := b.Percentiles(0, 100)
	if err != nil || p[0] != 1 || p[1] != 5 {
		t.Errorf("Percentiles(0, 100) = %v, %v, want [1 5]", p, err)
	}
	if _, err := b.Percentiles(101); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Percentiles(101) error = %v, want ErrInvalidArgument", err)
	}
}

func TestGreyLevelAverage(t *testing.T) {
	b := greyFrom(t, TypeInt32, [][]float64{{-10, 10}, {20, 40}})
	avg, err := b.GreyLevelAverage()
	if err != nil || avg != 15 {
		t.Errorf("GreyLevelAverage() = %v, %v, want 15", avg, err)
	}
}

func TestCentroid(t *testing.T) {
	b := greyFrom(t, TypeBitmap, [][]float64{{0, 0, 255}, {0, 0, 255}})
	c, err := b.Centroid()
	if err != nil {
		t.Fatalf("Centroid() error = %v", err)
	}
	if c.X != 2 || c.Y != 0.5 {
		t.Errorf("Centroid() = %v, want (2, 0.5)", c)
	}

	black := mustAllocate(t, TypeBitmap, 3, 1, 8)
	if c, _ := black.Centroid(); c.X != 1 || c.Y != 0 {
		t.Errorf("black Centroid() = %v, want geometric centre (1, 0)", c)
	}
}

func TestHistogramEqualise(t *testing.T) {
	b := greyFrom(t, TypeBitmap, [][]float64{{10, 20}})
	if err := b.EqualiseHistogram(); err != nil {
		t.Fatalf("EqualiseHistogram() error = %v", err)
	}
	if b.Sample(0, 0, 0) != 128 || b.Sample(1, 0, 0) != 255 {
		t.Errorf("equalised = %v, %v, want 128, 255", b.Sample(0, 0, 0), b.Sample(1, 0, 0))
	}

	if _, err := HistogramEqualise(mustAllocate(t, TypeUint16, 2, 2, 16)); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("uint16 error = %v, want ErrUnsupportedType", err)
	}
}
