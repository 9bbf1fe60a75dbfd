package geometry

import "math"

// Corners returns the four corners of r as a clockwise polygon in image
// coordinates, starting at the top-left.
func (r Rect) Corners() []Point2D {
	l, t := float64(r.Left), float64(r.Top)
	rt, b := float64(r.Right), float64(r.Bottom)
	return []Point2D{{X: l, Y: t}, {X: rt, Y: t}, {X: rt, Y: b}, {X: l, Y: b}}
}

// ClipToRect clips a convex polygon to r with Sutherland-Hodgman.
// It returns nil when fewer than three vertices survive.
func ClipToRect(polygon []Point2D, r Rect) []Point2D {
	if len(polygon) < 3 {
		return nil
	}
	out := append([]Point2D(nil), polygon...)
	edges := []struct {
		inside func(Point2D) bool
		cross  func(a, b Point2D) Point2D
	}{
		{func(p Point2D) bool { return p.X >= float64(r.Left) }, func(a, b Point2D) Point2D { return atX(a, b, float64(r.Left)) }},
		{func(p Point2D) bool { return p.X <= float64(r.Right) }, func(a, b Point2D) Point2D { return atX(a, b, float64(r.Right)) }},
		{func(p Point2D) bool { return p.Y >= float64(r.Top) }, func(a, b Point2D) Point2D { return atY(a, b, float64(r.Top)) }},
		{func(p Point2D) bool { return p.Y <= float64(r.Bottom) }, func(a, b Point2D) Point2D { return atY(a, b, float64(r.Bottom)) }},
	}
	for _, e := range edges {
		if len(out) == 0 {
			return nil
		}
		in := out
		out = nil
		for i, cur := range in {
			next := in[(i+1)%len(in)]
			curIn, nextIn := e.inside(cur), e.inside(next)
			if curIn {
				out = append(out, cur)
			}
			if curIn != nextIn {
				out = append(out, e.cross(cur, next))
			}
		}
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

func atX(a, b Point2D, x float64) Point2D {
	t := (x - a.X) / (b.X - a.X)
	return Point2D{X: x, Y: a.Y + t*(b.Y-a.Y)}
}

func atY(a, b Point2D, y float64) Point2D {
	t := (y - a.Y) / (b.Y - a.Y)
	return Point2D{X: a.X + t*(b.X-a.X), Y: y}
}

// PolygonArea returns the unsigned area of a simple polygon.
func PolygonArea(polygon []Point2D) float64 {
	var twice float64
	for i, p := range polygon {
		q := polygon[(i+1)%len(polygon)]
		twice += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(twice) / 2
}

// PolygonBounds returns the smallest integer rectangle containing every
// vertex, or the zero Rect for an empty polygon.
func PolygonBounds(polygon []Point2D) Rect {
	if len(polygon) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range polygon {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return NewRect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}
