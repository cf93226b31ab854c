package geom

const edgeEpsilon = 1e-9

// PointInPolygon reports whether (x, y) lies inside poly using ray casting
// with the even-odd rule. The polygon is closed implicitly and may
// self-intersect. Fewer than three vertices never contain anything, and a
// point on an edge or vertex is outside.
func PointInPolygon(x, y float64, poly []Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	p := Point{X: x, Y: y}
	for i := range poly {
		if SegmentDistance(p, poly[i], poly[(i+1)%n]) <= edgeEpsilon {
			return false
		}
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// AllInPolygon reports whether every point lies inside poly.
func AllInPolygon(points []Point, poly []Point) bool {
	if len(points) == 0 {
		return false
	}
	for _, p := range points {
		if !PointInPolygon(p.X, p.Y, poly) {
			return false
		}
	}
	return true
}
