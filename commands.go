package main

import (
	"fmt"
	"image/color"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"imgkit/internal/affine"
	"imgkit/internal/bitmap"
	"imgkit/internal/config"
	"imgkit/internal/cvbridge"
	"imgkit/internal/mosaic"
	"imgkit/internal/version"
	"imgkit/pkg/geometry"
)

func runInfo(conf *config.Config, args []string) error {
	fs := newFlagSet("info", "<image>...")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}
	for _, path := range fs.Args() {
		b, err := bitmap.Load(path)
		if err != nil {
			return err
		}
		lo, hi, err := b.FindMinMax()
		if err != nil {
			b.Release()
			return err
		}
		fmt.Printf("%s: %dx%d %s %d bpp, pitch %d, %d bytes\n",
			path, b.Width(), b.Height(), b.Type(), b.BPP(), b.Pitch(), b.MemorySizeInBytes())
		fmt.Printf("  greyscale=%v dpi=%g range=[%g, %g] max possible=%g\n",
			b.IsGreyScale(), b.DPI, lo, hi, b.MaxPossibleValue())
		if b.Type() == bitmap.TypeUint16 {
			if twelve, err := b.Is16BitReally12Bit(); err == nil && twelve {
				fmt.Println("  data fits in 12 bits")
			}
		}
		b.Release()
	}
	return nil
}

func runConvert(conf *config.Config, args []string) error {
	fs := newFlagSet("convert", "<in> <out>")
	depth := fs.Int("depth", conf.SaveDepth, "Save depth: 8, 16, 24, 32 (0 follows the image)")
	typeName := fs.String("type", "", "Convert to pixel type (bitmap, uint16, int16, uint32, int32, float, double)")
	linear := fs.Bool("linear", false, "Scale linearly when converting type")
	grey := fs.Bool("grey", false, "Convert to greyscale")
	standard := fs.Bool("standard", false, "Convert to a standard 8-bit bitmap")
	scale := fs.String("scale", "", "Linear scale window lo:hi to 8 bits")
	threshold := fs.Float64("threshold", math.NaN(), "Threshold at value")
	stretch := fs.Float64("stretch", 0, "Stretch to the type's range with this limit")
	equalise := fs.Bool("equalise", false, "Equalise the histogram")
	palette := fs.String("palette", "", "Palette for an 8-bit result: "+strings.Join(bitmap.PaletteNames(), ", "))
	wavelength := fs.Float64("wavelength", 0, "False colour palette for light of this wavelength in nm")
	if err := parseFlags(fs, args, 2); err != nil {
		return err
	}

	b, err := bitmap.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	defer b.Release()

	if *grey {
		if err := b.ConvertToGreyscale(); err != nil {
			return err
		}
	}
	if *typeName != "" {
		typ, err := bitmap.ParseType(*typeName)
		if err != nil {
			return err
		}
		if err := b.ConvertToType(typ, *linear); err != nil {
			return err
		}
	}
	if *stretch > 0 {
		if err := b.StretchToType(b.Type(), *stretch); err != nil {
			return err
		}
	}
	if *scale != "" {
		lo, hi, err := parseRange(*scale)
		if err != nil {
			return err
		}
		minFound, maxFound, err := b.LinearScaleToStandardType(lo, hi)
		if err != nil {
			return err
		}
		fmt.Printf("scaled [%g, %g], image range [%g, %g]\n", lo, hi, minFound, maxFound)
	}
	if *standard {
		if err := b.ConvertToStandardType(*linear); err != nil {
			return err
		}
	}
	if !math.IsNaN(*threshold) {
		if err := b.Threshold(*threshold); err != nil {
			return err
		}
	}
	if *equalise {
		if err := b.EqualiseHistogram(); err != nil {
			return err
		}
	}
	if err := applyPalette(b, *palette, *wavelength); err != nil {
		return err
	}
	return save(b, fs.Arg(1), *depth)
}

// filterOptions selects one filter for applyFilter.
type filterOptions struct {
	op        string
	kernel    string
	radius    int
	amount    float64
	threshold float64
}

// applyFilter runs the filter named by opts.op and returns a new bitmap.
func applyFilter(b *bitmap.Bitmap, opts filterOptions) (*bitmap.Bitmap, error) {
	kt, err := bitmap.ParseKernelType(opts.kernel)
	if err != nil {
		return nil, err
	}
	switch opts.op {
	case "blur":
		return bitmap.Blur(b, kt, opts.radius)
	case "binning":
		return bitmap.Binning(b, kt, opts.radius)
	case "sobel":
		return bitmap.Sobel(b)
	case "unsharp":
		return bitmap.UnsharpMask(b, opts.radius, opts.amount, opts.threshold)
	case "median":
		return bitmap.MedianFilter(b, opts.radius, opts.radius)
	case "log":
		return bitmap.Log(b)
	case "transpose":
		return bitmap.Transpose(b)
	}
	return nil, fmt.Errorf("%w: filter %q", bitmap.ErrInvalidArgument, opts.op)
}

func runFilter(conf *config.Config, args []string) error {
	fs := newFlagSet("filter", "<in> <out>")
	var opts filterOptions
	fs.StringVar(&opts.op, "op", "blur", "Filter: blur, binning, sobel, unsharp, median, log, transpose")
	fs.StringVar(&opts.kernel, "kernel", "gaussian", "Kernel for blur and binning: square, circular, gaussian")
	fs.IntVar(&opts.radius, "radius", 2, "Kernel or median radius in pixels")
	fs.Float64Var(&opts.amount, "amount", 1, "Unsharp mask strength")
	fs.Float64Var(&opts.threshold, "threshold", 0, "Unsharp mask threshold")
	depth := fs.Int("depth", conf.SaveDepth, "Save depth: 8, 16, 24, 32 (0 follows the image)")
	if err := parseFlags(fs, args, 2); err != nil {
		return err
	}

	b, err := bitmap.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	defer b.Release()

	out, err := applyFilter(b, opts)
	if err != nil {
		return err
	}
	defer out.Release()
	if conf.Debug {
		log.Printf("filter %s: %s -> %s", opts.op, b, out)
	}
	return save(out, fs.Arg(1), *depth)
}

func runHistogram(conf *config.Config, args []string) error {
	fs := newFlagSet("histogram", "<image>")
	bins := fs.Int("bins", 256, "Number of bins")
	rgb := fs.Bool("rgb", false, "Per-channel histogram of a colour image")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}
	b, err := bitmap.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	defer b.Release()

	if *rgb {
		r, g, bl, err := b.RGBHistogram(*bins)
		if err != nil {
			return err
		}
		fmt.Println("bin\tred\tgreen\tblue")
		for i := range r {
			fmt.Printf("%d\t%d\t%d\t%d\n", i, r[i], g[i], bl[i])
		}
		return nil
	}
	hist, err := b.GreyLevelHistogram(*bins)
	if err != nil {
		return err
	}
	fmt.Println("bin\tcount")
	for i, n := range hist {
		fmt.Printf("%d\t%d\n", i, n)
	}
	return nil
}

func runStats(conf *config.Config, args []string) error {
	fs := newFlagSet("stats", "<image>")
	maskPath := fs.String("mask", "", "Only count pixels where this image is non-zero")
	percentiles := fs.String("p", "", "Comma separated percentiles in [0, 100]")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}
	b, err := bitmap.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	defer b.Release()

	var mask *bitmap.Bitmap
	if *maskPath != "" {
		if mask, err = bitmap.Load(*maskPath); err != nil {
			return err
		}
		defer mask.Release()
	}
	report, err := b.StatisticReportWithMask(mask)
	if err != nil {
		return err
	}
	fmt.Println(report)

	centroid, err := b.Centroid()
	if err != nil {
		return err
	}
	fmt.Printf("centroid=(%.2f, %.2f)\n", centroid.X, centroid.Y)
	if b.IsGreyScale() {
		sum, err := b.SumOfAllPixels(mask)
		if err != nil {
			return err
		}
		fmt.Printf("sum=%g\n", sum)
	}

	if *percentiles != "" {
		return writePercentiles(os.Stdout, b, *percentiles)
	}
	return nil
}

func runCorrelate(conf *config.Config, args []string) error {
	fs := newFlagSet("correlate", "<a> <b>")
	edge := fs.String("edge", "", "Correlate along the right or bottom edge of a")
	thickness := fs.Int("thickness", conf.EdgeThickness, "Edge strip thickness")
	rectA := fs.String("ra", "", "Search window in a as x,y,w,h (default whole image)")
	rectB := fs.String("rb", "", "Template in b as x,y,w,h (default whole image)")
	if err := parseFlags(fs, args, 2); err != nil {
		return err
	}
	a, err := bitmap.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	defer a.Release()
	b, err := bitmap.Load(fs.Arg(1))
	if err != nil {
		return err
	}
	defer b.Release()

	c := correlator(conf)
	var off geometry.Point
	var score float64
	switch *edge {
	case "right":
		off, score, err = c.AlongRightEdge(a, b, *thickness)
	case "bottom":
		off, score, err = c.AlongBottomEdge(a, b, *thickness)
	case "":
		ra, rb := a.Bounds(), b.Bounds()
		if *rectA != "" {
			if ra, err = parseRect(*rectA); err != nil {
				return err
			}
		}
		if *rectB != "" {
			if rb, err = parseRect(*rectB); err != nil {
				return err
			}
		}
		off, score, err = c.Regions(a, ra, b, rb)
	default:
		return fmt.Errorf("unknown edge %q", *edge)
	}
	if err != nil {
		return err
	}
	fmt.Printf("offset=(%d, %d) score=%.6f\n", off.X, off.Y, score)
	return nil
}

func runStitch(conf *config.Config, args []string) error {
	fs := newFlagSet("stitch", "<tile>...")
	column := fs.Bool("column", false, "Tiles run top to bottom instead of left to right")
	out := fs.String("o", "mosaic.png", "Output image")
	layoutPath := fs.String("layout", "", "Also write a layout file")
	thickness := fs.Int("thickness", conf.EdgeThickness, "Edge strip thickness")
	minScore := fs.Float64("min-score", -1, "Reject seams scoring below this")
	if err := parseFlags(fs, args, 2); err != nil {
		return err
	}
	mode, err := conf.BlendMode()
	if err != nil {
		return err
	}

	images := make([]*bitmap.Bitmap, 0, fs.NArg())
	defer func() {
		for _, img := range images {
			img.Release()
		}
	}()
	for _, path := range fs.Args() {
		img, err := bitmap.Load(path)
		if err != nil {
			return err
		}
		images = append(images, img)
	}

	opts := mosaic.DefaultOptions()
	opts.Thickness = *thickness
	opts.MinScore = *minScore
	opts.Mode = mode
	opts.Correlator = correlator(conf)
	opts.Debug = conf.Debug

	stitchFn := mosaic.StitchRow
	if *column {
		stitchFn = mosaic.StitchColumn
	}
	offsets, seams, err := stitchFn(images, opts)
	if err != nil {
		return err
	}
	for i, s := range seams {
		fmt.Printf("seam %d-%d: offset=(%d, %d) score=%.4f\n", i, i+1, s.Offset.X, s.Offset.Y, s.Score)
	}

	m, err := mosaic.Arrange(images, offsets, opts.Mode)
	if err != nil {
		return err
	}
	canvas, err := m.Render()
	if err != nil {
		return err
	}
	defer canvas.Release()
	if err := save(canvas, *out, conf.SaveDepth); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%dx%d)\n", *out, canvas.Width(), canvas.Height())

	if *layoutPath != "" {
		l := mosaic.NewLayout(*out)
		for i, t := range m.Tiles {
			l.AddTile(*layoutPath, fs.Arg(i), t.Offset.X, t.Offset.Y, t.Mode)
		}
		if err := l.Save(*layoutPath); err != nil {
			return err
		}
	}
	return nil
}

func runTransform(conf *config.Config, args []string) error {
	fs := newFlagSet("transform", "<in> <out>")
	rotate := fs.Float64("rotate", 0, "Rotation in degrees about the image centre, clockwise")
	scale := fs.Float64("scale", 1, "Uniform scale")
	tx := fs.Float64("tx", 0, "Horizontal translation")
	ty := fs.Float64("ty", 0, "Vertical translation")
	width := fs.Int("w", 0, "Output width (default input width)")
	height := fs.Int("h", 0, "Output height (default input height)")
	fillFlag := fs.String("fill", conf.FillColour, "Fill colour #rrggbb[aa]")
	if err := parseFlags(fs, args, 2); err != nil {
		return err
	}
	fill, err := config.ParseColour(*fillFlag)
	if err != nil {
		return err
	}
	src, err := bitmap.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	defer src.Release()

	w, h := *width, *height
	if w == 0 {
		w = src.Width()
	}
	if h == 0 {
		h = src.Height()
	}
	c := src.Bounds().Center()
	m := affine.NewMatrix().
		RotateAt(*rotate*math.Pi/180, c.X, c.Y, affine.Append).
		Scale(*scale, *scale, affine.Append).
		Translate(*tx, *ty, affine.Append)
	if conf.Debug {
		log.Printf("transform: matrix %v, output %dx%d", m, w, h)
	}

	var dst *bitmap.Bitmap
	if conf.Engine == config.EngineOpenCV {
		dst, err = cvbridge.WarpAffine(src, m, w, h, fill)
	} else {
		dst, err = affine.Transform(src, w, h, m, fill)
	}
	if err != nil {
		return err
	}
	defer dst.Release()
	return save(dst, fs.Arg(1), conf.SaveDepth)
}

func runRegister(conf *config.Config, args []string) error {
	fs := newFlagSet("register", "<reference> <moving>")
	initial := fs.String("initial", "0,0", "Guessed x,y of the moving image origin in the reference")
	grid := fs.Int("grid", 4, "Patches per side")
	patch := fs.Int("patch", 32, "Patch size in pixels")
	search := fs.Int("search", 16, "Search margin in pixels")
	minScore := fs.Float64("min-score", 0.5, "Drop tie points scoring below this")
	out := fs.String("o", "", "Write the moving image resampled into the reference frame")
	if err := parseFlags(fs, args, 2); err != nil {
		return err
	}
	guess, err := parseInts(*initial, 2)
	if err != nil {
		return fmt.Errorf("-initial: %w", err)
	}
	ref, err := bitmap.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	defer ref.Release()
	moving, err := bitmap.Load(fs.Arg(1))
	if err != nil {
		return err
	}
	defer moving.Release()

	opts := mosaic.DefaultRegisterOptions()
	opts.Grid, opts.Patch, opts.Search = *grid, *patch, *search
	opts.Initial = geometry.Pt(guess[0], guess[1])
	opts.MinScore = *minScore
	opts.Correlator = correlator(conf)
	opts.Debug = conf.Debug
	m, ties, err := mosaic.Register(ref, moving, opts)
	if err != nil {
		return err
	}

	var from, to []geometry.Point2D
	for _, tp := range ties {
		if tp.Inlier {
			from = append(from, tp.Moving)
			to = append(to, tp.Reference)
		}
	}
	fmt.Printf("matrix=%v\ntie points=%d inliers=%d rms=%.3f\n", m, len(ties), len(from), affine.RMSError(m, from, to))

	if *out == "" {
		return nil
	}
	fill, err := conf.Fill()
	if err != nil {
		return err
	}
	warped, err := affine.Transform(moving, ref.Width(), ref.Height(), m, fill)
	if err != nil {
		return err
	}
	defer warped.Release()
	return save(warped, *out, conf.SaveDepth)
}

func runBlend(conf *config.Config, args []string) error {
	fs := newFlagSet("blend", "<layout.json>")
	out := fs.String("o", "mosaic.png", "Output image")
	bg := fs.String("background", "#000000", "Background colour")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}
	background, err := config.ParseColour(*bg)
	if err != nil {
		return err
	}
	l, err := mosaic.LoadLayout(fs.Arg(0))
	if err != nil {
		return err
	}
	m, err := l.Build(fs.Arg(0))
	if err != nil {
		return err
	}
	defer m.Release()
	m.Background = background

	canvas, err := m.Render()
	if err != nil {
		return err
	}
	defer canvas.Release()
	if err := save(canvas, *out, conf.SaveDepth); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%dx%d, %d tiles)\n", *out, canvas.Width(), canvas.Height(), len(m.Tiles))
	return nil
}

func runVersion(conf *config.Config, args []string) error {
	fmt.Printf("%s %s\n", appTitle, version.String())
	fmt.Printf("opencv: %s\n", cvbridge.Version())
	fmt.Printf("formats: %s\n", strings.Join(bitmap.SupportedFormats(), " "))
	return nil
}

// writePercentiles prints one pN=value line per percentage in list.
func writePercentiles(w io.Writer, b *bitmap.Bitmap, list string) error {
	ps, err := parseFloats(list)
	if err != nil {
		return err
	}
	values, err := b.Percentiles(ps...)
	if err != nil {
		return err
	}
	for i, p := range ps {
		fmt.Fprintf(w, "p%g=%g\n", p, values[i])
	}
	return nil
}

// applyPalette installs a named palette, or a false colour palette when
// wavelength is set, on an 8-bit bitmap.
func applyPalette(b *bitmap.Bitmap, name string, wavelength float64) error {
	var (
		p   []color.RGBA
		err error
	)
	switch {
	case wavelength != 0:
		p, err = bitmap.FalseColourPalette(wavelength)
	case name != "":
		p, err = bitmap.NamedPalette(name)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	return b.SetPalette(p)
}

// save writes b at the given depth, or at a depth chosen from the image when
// depth is 0.
func save(b *bitmap.Bitmap, path string, depth int) error {
	if depth == 0 {
		return b.SaveToFile(path)
	}
	d, err := bitmap.ParseSaveBitDepth(depth)
	if err != nil {
		return err
	}
	return b.Save(path, d)
}

func parseRect(s string) (geometry.Rect, error) {
	v, err := parseInts(s, 4)
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("rect %q: %w", s, err)
	}
	return geometry.RectWH(v[0], v[1], v[2], v[3]), nil
}

func parseRange(s string) (lo, hi float64, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range %q: want lo:hi", s)
	}
	if lo, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return 0, 0, err
	}
	if hi, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma separated values", n)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
