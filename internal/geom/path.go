package geom

import "math"

// PathOp is a path segment verb, matching Canvas2D naming.
type PathOp string

const (
	OpMove  PathOp = "M"
	OpLine  PathOp = "L"
	OpQuad  PathOp = "Q"
	OpCubic PathOp = "C"
	OpClose PathOp = "Z"
)

// PathCommand is a single path segment. Pts holds the control points
// followed by the end point: one for M/L, two for Q, three for C, none for Z.
type PathCommand struct {
	Op  PathOp  `json:"op"`
	Pts []Point `json:"pts,omitempty"`
}

// maxSubdivisions bounds curve flattening so a bad tolerance cannot explode.
const maxSubdivisions = 64

// Flatten converts a path to a polyline. Curves are split into enough line
// segments that the control polygon deviates from the chord by at most
// tolerance. Subpaths are concatenated; Z closes back to the subpath start.
func Flatten(cmds []PathCommand, tolerance float64) []Point {
	if tolerance <= 0 {
		tolerance = 0.25
	}
	var out []Point
	var cur, start Point
	for _, c := range cmds {
		switch c.Op {
		case OpMove:
			if len(c.Pts) < 1 {
				continue
			}
			cur, start = c.Pts[0], c.Pts[0]
			out = append(out, cur)
		case OpLine:
			if len(c.Pts) < 1 {
				continue
			}
			cur = c.Pts[0]
			out = append(out, cur)
		case OpQuad:
			if len(c.Pts) < 2 {
				continue
			}
			p1, p2 := c.Pts[0], c.Pts[1]
			n := subdivisions(SegmentDistance(p1, cur, p2), tolerance)
			for i := 1; i <= n; i++ {
				t := float64(i) / float64(n)
				mt := 1 - t
				out = append(out, Point{
					X: mt*mt*cur.X + 2*mt*t*p1.X + t*t*p2.X,
					Y: mt*mt*cur.Y + 2*mt*t*p1.Y + t*t*p2.Y,
				})
			}
			cur = p2
		case OpCubic:
			if len(c.Pts) < 3 {
				continue
			}
			p1, p2, p3 := c.Pts[0], c.Pts[1], c.Pts[2]
			dev := math.Max(SegmentDistance(p1, cur, p3), SegmentDistance(p2, cur, p3))
			n := subdivisions(dev, tolerance)
			for i := 1; i <= n; i++ {
				t := float64(i) / float64(n)
				mt := 1 - t
				a, b, cc, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
				out = append(out, Point{
					X: a*cur.X + b*p1.X + cc*p2.X + d*p3.X,
					Y: a*cur.Y + b*p1.Y + cc*p2.Y + d*p3.Y,
				})
			}
			cur = p3
		case OpClose:
			if cur != start {
				out = append(out, start)
			}
			cur = start
		}
	}
	return out
}

func subdivisions(deviation, tolerance float64) int {
	n := int(math.Ceil(math.Sqrt(deviation / tolerance)))
	return max(1, min(n, maxSubdivisions))
}

// Simplify reduces a polyline with the Douglas-Peucker algorithm, keeping
// every point farther than tolerance from the simplified line. Endpoints
// are always kept.
func Simplify(points []Point, tolerance float64) []Point {
	if len(points) < 3 || tolerance <= 0 {
		return append([]Point(nil), points...)
	}
	keep := make([]bool, len(points))
	keep[0], keep[len(points)-1] = true, true

	// Iterative to avoid deep recursion on long pen strokes.
	type span struct{ lo, hi int }
	stack := []span{{0, len(points) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}
		idx, best := -1, tolerance
		for i := s.lo + 1; i < s.hi; i++ {
			if d := SegmentDistance(points[i], points[s.lo], points[s.hi]); d > best {
				idx, best = i, d
			}
		}
		if idx < 0 {
			continue
		}
		keep[idx] = true
		stack = append(stack, span{s.lo, idx}, span{idx, s.hi})
	}

	out := make([]Point, 0, len(points))
	for i, p := range points {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// SmoothPath builds a quadratic path through the midpoints of consecutive
// samples, the usual way live pen input is rendered.
func SmoothPath(points []Point) []PathCommand {
	switch len(points) {
	case 0:
		return nil
	case 1, 2:
		cmds := []PathCommand{{Op: OpMove, Pts: []Point{points[0]}}}
		for _, p := range points[1:] {
			cmds = append(cmds, PathCommand{Op: OpLine, Pts: []Point{p}})
		}
		return cmds
	}
	cmds := make([]PathCommand, 0, len(points)+1)
	cmds = append(cmds, PathCommand{Op: OpMove, Pts: []Point{points[0]}})
	for i := 1; i < len(points)-1; i++ {
		mid := Point{(points[i].X + points[i+1].X) / 2, (points[i].Y + points[i+1].Y) / 2}
		cmds = append(cmds, PathCommand{Op: OpQuad, Pts: []Point{points[i], mid}})
	}
	cmds = append(cmds, PathCommand{Op: OpLine, Pts: []Point{points[len(points)-1]}})
	return cmds
}

// LassoPolygon turns a free-hand lasso path into a simplified closed polygon.
func LassoPolygon(cmds []PathCommand, tolerance float64) []Point {
	poly := Simplify(Flatten(cmds, tolerance), tolerance)
	if n := len(poly); n > 1 && poly[0] == poly[n-1] {
		poly = poly[:n-1]
	}
	return poly
}
