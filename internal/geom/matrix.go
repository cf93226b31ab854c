package geom

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Matrix2D represents a 2D affine transformation matrix.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

// Scale returns a scale matrix.
func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Rotate returns a rotation matrix (angle in radians).
func Rotate(radians float64) Matrix2D {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// RotateDegrees returns a rotation matrix (angle in degrees).
func RotateDegrees(degrees float64) Matrix2D {
	return Rotate(degrees * math.Pi / 180.0)
}

// RotateAbout returns a rotation by degrees around (cx, cy).
func RotateAbout(degrees, cx, cy float64) Matrix2D {
	return Translate(cx, cy).Multiply(RotateDegrees(degrees)).Multiply(Translate(-cx, -cy))
}

// Multiply multiplies this matrix by another: result = m * other
// This applies 'other' first, then 'm'.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],        // a
		m[1]*other[0] + m[3]*other[1],        // b
		m[0]*other[2] + m[2]*other[3],        // c
		m[1]*other[2] + m[3]*other[3],        // d
		m[0]*other[4] + m[2]*other[5] + m[4], // e
		m[1]*other[4] + m[3]*other[5] + m[5], // f
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TransformRect transforms a rectangle and returns its axis-aligned bounding box.
func (m Matrix2D) TransformRect(r Rect) Rect {
	var pts [4]Point
	for i, c := range r.Corners() {
		pts[i].X, pts[i].Y = m.TransformPoint(c.X, c.Y)
	}
	return BoundsOf(pts[:])
}

func (m Matrix2D) det() float64 { return m[0]*m[3] - m[1]*m[2] }

// Inverse maps points back through m. ok is false when m collapses the
// plane onto a line or point.
func (m Matrix2D) Inverse() (inv Matrix2D, ok bool) {
	d := m.det()
	if math.Abs(d) < 1e-12 {
		return Identity(), false
	}
	return Matrix2D{
		m[3] / d, -m[1] / d,
		-m[2] / d, m[0] / d,
		(m[2]*m[5] - m[3]*m[4]) / d,
		(m[1]*m[4] - m[0]*m[5]) / d,
	}, true
}

// ScaleFactor is the uniform zoom equivalent of m: the square root of the
// area scale.
func (m Matrix2D) ScaleFactor() float64 {
	return math.Sqrt(math.Abs(m.det()))
}

// IsIdentity reports whether m leaves every point in place, up to rounding.
func (m Matrix2D) IsIdentity() bool {
	id := Identity()
	for i := range m {
		if math.Abs(m[i]-id[i]) > 1e-10 {
			return false
		}
	}
	return true
}

// ToAff3 converts to the row-major x/image representation.
func (m Matrix2D) ToAff3() f64.Aff3 {
	return f64.Aff3{
		m[0], m[2], m[4],
		m[1], m[3], m[5],
	}
}

// FromAff3 converts a row-major x/image affine matrix.
func FromAff3(a f64.Aff3) Matrix2D {
	return Matrix2D{a[0], a[3], a[1], a[4], a[2], a[5]}
}

// RotatedBounds returns the AABB of the logical box rotated by degrees
// around its own center.
func RotatedBounds(logical Rect, degrees float64) Rect {
	if degrees == 0 {
		return logical
	}
	cx, cy := logical.Center()
	return RotateAbout(degrees, cx, cy).TransformRect(logical)
}

// RotatedCorners returns the logical box's corners after rotation around its center.
func RotatedCorners(logical Rect, degrees float64) [4]Point {
	corners := logical.Corners()
	if degrees == 0 {
		return corners
	}
	cx, cy := logical.Center()
	m := RotateAbout(degrees, cx, cy)
	for i, c := range corners {
		corners[i].X, corners[i].Y = m.TransformPoint(c.X, c.Y)
	}
	return corners
}
