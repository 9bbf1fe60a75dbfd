// Command stitchtest correlates two overlapping images along an edge and
// prints the seam offset, optionally writing the stitched result.
package main

import (
	"flag"
	"fmt"
	"os"

	"imgkit/internal/bitmap"
	"imgkit/internal/correlate"
	"imgkit/internal/cvbridge"
	"imgkit/internal/mosaic"
)

func main() {
	first := flag.String("a", "", "Path to the first image")
	second := flag.String("b", "", "Path to the second image")
	edge := flag.String("edge", "right", "Edge of the first image the second continues: right or bottom")
	thickness := flag.Int("t", 40, "Edge strip thickness in pixels")
	useCV := flag.Bool("cv", false, "Also correlate with OpenCV and compare")
	out := flag.String("o", "", "Write the stitched image here")
	flag.Parse()

	if *first == "" || *second == "" {
		fmt.Println("Usage: stitchtest -a <first> -b <second> [-edge right|bottom] [-t 40] [-cv] [-o out.png]")
		os.Exit(1)
	}

	a, err := bitmap.Load(*first)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load first image: %v\n", err)
		os.Exit(1)
	}
	defer a.Release()
	b, err := bitmap.Load(*second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load second image: %v\n", err)
		os.Exit(1)
	}
	defer b.Release()

	fmt.Printf("=== %s: %dx%d %s %d bpp ===\n", *first, a.Width(), a.Height(), a.Type(), a.BPP())
	fmt.Printf("=== %s: %dx%d %s %d bpp ===\n", *second, b.Width(), b.Height(), b.Type(), b.BPP())

	correlators := []struct {
		name string
		c    *correlate.Correlator
	}{{"native", correlate.Default}}
	if *useCV {
		correlators = append(correlators, struct {
			name string
			c    *correlate.Correlator
		}{"opencv", correlate.New(cvbridge.Matcher{})})
	}

	for _, cr := range correlators {
		opts := mosaic.DefaultOptions()
		opts.Thickness = *thickness
		opts.Correlator = cr.c
		opts.Mode = mosaic.BlendGradient

		stitch := mosaic.StitchRow
		if *edge == "bottom" {
			stitch = mosaic.StitchColumn
		}
		offsets, seams, err := stitch([]*bitmap.Bitmap{a, b}, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s correlation failed: %v\n", cr.name, err)
			os.Exit(1)
		}
		fmt.Printf("\n=== %s ===\n", cr.name)
		fmt.Printf("Offset: (%d, %d)\n", seams[0].Offset.X, seams[0].Offset.Y)
		fmt.Printf("Score: %.6f\n", seams[0].Score)

		if *out == "" || cr.name != "native" {
			continue
		}
		m, err := mosaic.Arrange([]*bitmap.Bitmap{a, b}, offsets, opts.Mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Arrange failed: %v\n", err)
			os.Exit(1)
		}
		canvas, err := m.Render()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Render failed: %v\n", err)
			os.Exit(1)
		}
		if err := canvas.SaveToFile(*out); err != nil {
			fmt.Fprintf(os.Stderr, "Save failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s (%dx%d)\n", *out, canvas.Width(), canvas.Height())
		canvas.Release()
	}
}
