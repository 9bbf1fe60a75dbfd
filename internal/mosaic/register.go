package mosaic

import (
	"fmt"
	"log"

	"imgkit/internal/affine"
	"imgkit/internal/bitmap"
	"imgkit/internal/correlate"
	"imgkit/pkg/geometry"
)

// RegisterOptions configures Register.
type RegisterOptions struct {
	Grid       int                   // Patches per side of the moving image
	Patch      int                   // Patch edge length in pixels
	Search     int                   // Margin searched around the initial guess
	Initial    geometry.Point        // Guessed position of the moving origin in the reference
	MinScore   float64               // Drop tie points scoring below this
	RANSAC     affine.RANSACOptions  // Outlier rejection
	Correlator *correlate.Correlator // nil uses correlate.Default
	Debug      bool                  // Log each tie point
}

// DefaultRegisterOptions returns a 4×4 grid of 32 pixel patches searched
// 16 pixels around the initial guess.
func DefaultRegisterOptions() RegisterOptions {
	return RegisterOptions{
		Grid:     4,
		Patch:    32,
		Search:   16,
		MinScore: 0.5,
		RANSAC:   affine.DefaultRANSACOptions(),
	}
}

// TiePoint pairs a patch centre in the moving image with the centre of its
// best match in the reference.
type TiePoint struct {
	Moving    geometry.Point2D
	Reference geometry.Point2D
	Score     float64
	Inlier    bool
}

// Register finds the affine matrix mapping moving-image coordinates onto
// reference coordinates. Patches on a regular grid of the moving image are
// correlated against the reference near Initial; the matches are fitted
// with RANSAC. Patches whose search window leaves the reference are skipped.
func Register(ref, moving *bitmap.Bitmap, opts RegisterOptions) (*affine.Matrix, []TiePoint, error) {
	if err := ref.Validate(); err != nil {
		return nil, nil, err
	}
	if err := moving.Validate(); err != nil {
		return nil, nil, err
	}
	if opts.Grid < 2 || opts.Patch < 4 || opts.Search < 0 {
		return nil, nil, fmt.Errorf("%w: grid %d, patch %d, search %d",
			bitmap.ErrInvalidArgument, opts.Grid, opts.Patch, opts.Search)
	}
	c := opts.Correlator
	if c == nil {
		c = correlate.Default
	}

	var ties []TiePoint
	for gy := 0; gy < opts.Grid; gy++ {
		for gx := 0; gx < opts.Grid; gx++ {
			cx := (2*gx + 1) * moving.Width() / (2 * opts.Grid)
			cy := (2*gy + 1) * moving.Height() / (2 * opts.Grid)
			patch := geometry.RectWH(cx-opts.Patch/2, cy-opts.Patch/2, opts.Patch, opts.Patch)
			if !patch.In(moving.Bounds()) {
				continue
			}
			guess := patch.Translate(opts.Initial.X, opts.Initial.Y)
			window := geometry.NewRect(guess.Left-opts.Search, guess.Top-opts.Search,
				guess.Right+opts.Search, guess.Bottom+opts.Search).Intersect(ref.Bounds())
			if window.Width() < opts.Patch || window.Height() < opts.Patch {
				continue
			}

			off, score, err := c.Regions(ref, window, moving, patch)
			if err != nil {
				return nil, nil, err
			}
			if opts.Debug {
				log.Printf("register: patch %v offset=%v score=%.4f", patch, off, score)
			}
			if score < opts.MinScore {
				continue
			}
			centre := patch.Center()
			ties = append(ties, TiePoint{
				Moving:    centre,
				Reference: centre.Add(off.ToFloat()),
				Score:     score,
			})
		}
	}
	if len(ties) < 3 {
		return nil, nil, fmt.Errorf("%w: %d tie points, need 3", bitmap.ErrInvalidArgument, len(ties))
	}

	from := make([]geometry.Point2D, len(ties))
	to := make([]geometry.Point2D, len(ties))
	for i, tp := range ties {
		from[i], to[i] = tp.Moving, tp.Reference
	}
	m, inliers, err := affine.EstimateRANSAC(from, to, opts.RANSAC)
	if err != nil {
		return nil, ties, err
	}
	for _, i := range inliers {
		ties[i].Inlier = true
	}
	if opts.Debug {
		log.Printf("register: %d of %d tie points agree, rms %.3f px", len(inliers), len(ties), affine.RMSError(m, from, to))
	}
	return m, ties, nil
}
