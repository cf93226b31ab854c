package geom

import "math"

// SegmentDistance returns the distance from p to the segment ab.
func SegmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// SegmentsDistance returns the minimum distance between segments a1a2 and b1b2.
func SegmentsDistance(a1, a2, b1, b2 Point) float64 {
	if segmentsCross(a1, a2, b1, b2) {
		return 0
	}
	return math.Min(
		math.Min(SegmentDistance(a1, b1, b2), SegmentDistance(a2, b1, b2)),
		math.Min(SegmentDistance(b1, a1, a2), SegmentDistance(b2, a1, a2)),
	)
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// segmentsCross reports a proper or touching intersection.
func segmentsCross(a1, a2, b1, b2 Point) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	// Collinear and touching cases fall through to the endpoint distances,
	// which are exactly 0 there.
	return false
}

// PolylineDistance returns the distance from p to the nearest segment of poly.
// A single point polyline is treated as a zero-length segment; an empty one
// is infinitely far away.
func PolylineDistance(p Point, poly []Point) float64 {
	switch len(poly) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Dist(poly[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(poly); i++ {
		if d := SegmentDistance(p, poly[i-1], poly[i]); d < best {
			best = d
		}
	}
	return best
}

// StrokeBounds returns the bounding box of a point path expanded by half the
// stroke width plus a style-specific overshoot.
func StrokeBounds(points []Point, width, overshoot float64) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	return BoundsOf(points).Expand(width/2 + overshoot)
}

// segments yields each segment of a polyline, or one degenerate segment for
// a single point.
func segments(poly []Point, fn func(a, b Point) bool) {
	if len(poly) == 1 {
		fn(poly[0], poly[0])
		return
	}
	for i := 1; i < len(poly); i++ {
		if !fn(poly[i-1], poly[i]) {
			return
		}
	}
}

// StrokeIntersects reports whether any segment of a passes within
// (widthA+widthB)/2 of any segment of b.
func StrokeIntersects(a []Point, widthA float64, b []Point, widthB float64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	reach := (widthA + widthB) / 2
	if !StrokeBounds(a, widthA, 0).Intersects(StrokeBounds(b, widthB, 0)) {
		return false
	}

	hit := false
	segments(a, func(a1, a2 Point) bool {
		segA := RectFromPoints(a1, a2).Expand(reach)
		segments(b, func(b1, b2 Point) bool {
			if !segA.Intersects(RectFromPoints(b1, b2)) {
				return true
			}
			if SegmentsDistance(a1, a2, b1, b2) <= reach {
				hit = true
				return false
			}
			return true
		})
		return !hit
	})
	return hit
}

// ErasedMask marks every point lying within radius of the eraser path.
// The second result reports whether anything was marked.
func ErasedMask(points, eraser []Point, radius float64) ([]bool, bool) {
	mask := make([]bool, len(points))
	if len(eraser) == 0 {
		return mask, false
	}
	area := StrokeBounds(eraser, 0, radius)
	marked := false
	for i, p := range points {
		if !area.Contains(p.X, p.Y) {
			continue
		}
		if PolylineDistance(p, eraser) <= radius {
			mask[i] = true
			marked = true
		}
	}
	return mask, marked
}

// Centroid returns the arithmetic mean of the points.
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var c Point
	for _, p := range points {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(points))
	return Point{c.X / n, c.Y / n}, true
}
