package geom

import "math"

// Point is a position in world coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints returns the rect spanned by two opposite corners.
func RectFromPoints(a, b Point) Rect {
	minX, maxX := min(a.X, b.X), max(a.X, b.X)
	minY, maxY := min(a.Y, b.Y), max(a.Y, b.Y)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// BoundsOf returns the bounding box of a point set. An empty set yields the zero Rect.
func BoundsOf(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// ContainsRect reports whether other lies entirely inside r.
func (r Rect) ContainsRect(other Rect) bool {
	return other.X >= r.X && other.MaxX() <= r.MaxX() &&
		other.Y >= r.Y && other.MaxY() <= r.MaxY()
}

// Intersects reports whether the two rects overlap. Touching edges count,
// so degenerate (zero-width) rects such as a horizontal stroke still hit.
func (r Rect) Intersects(other Rect) bool {
	return !(other.X > r.MaxX() || other.MaxX() < r.X ||
		other.Y > r.MaxY() || other.MaxY() < r.Y)
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects. Unlike a pure
// area union, zero-area rects still contribute their extent; a zero Rect
// is treated as "nothing" only by UnionAll's ok flag.
func (r Rect) Union(other Rect) Rect {
	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.MaxX(), other.MaxX())
	maxY := max(r.MaxY(), other.MaxY())

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Expand grows the rect by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Corners returns the four corners clockwise from the origin corner.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{r.X, r.Y},
		{r.MaxX(), r.Y},
		{r.MaxX(), r.MaxY()},
		{r.X, r.MaxY()},
	}
}

// TouchesEdgeOf reports whether r reaches any edge of outer, within a
// rounding slack. Content bounds only need recomputing when a removed item
// did; a false positive merely costs a recompute.
func (r Rect) TouchesEdgeOf(outer Rect) bool {
	eps := edgeSlack * max(1, math.Abs(outer.X), math.Abs(outer.Y), math.Abs(outer.MaxX()), math.Abs(outer.MaxY()))
	return r.X <= outer.X+eps || r.Y <= outer.Y+eps ||
		r.MaxX() >= outer.MaxX()-eps || r.MaxY() >= outer.MaxY()-eps
}

const edgeSlack = 1e-9

// Accumulator folds rects into a running union.
type Accumulator struct {
	r  Rect
	ok bool
}

// Add extends the union with r.
func (a *Accumulator) Add(r Rect) {
	if !a.ok {
		a.r, a.ok = r, true
		return
	}
	a.r = a.r.Union(r)
}

// Rect returns the union so far, and false if nothing was added.
func (a Accumulator) Rect() (Rect, bool) { return a.r, a.ok }
