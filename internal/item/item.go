// Package item defines everything that can be drawn on a canvas.
//
// Items form a closed set: Stroke, Image, Text and Link. Every variant is
// immutable once committed to a canvas; edits produce new items. The order
// field is the stable identity, assigned exactly once by the canvas model.
package item

import (
	"math"
	"slices"

	"github.com/inkslate/inkslate/backend-go/internal/geom"
)

// Kind identifies an item variant.
type Kind string

const (
	KindStroke Kind = "stroke"
	KindImage  Kind = "image"
	KindText   Kind = "text"
	KindLink   Kind = "link"
)

// Item is the shape contract shared by all drawable variants.
type Item interface {
	Kind() Kind
	// Bounds fully encloses the rendered shape, rotation included.
	Bounds() geom.Rect
	ZIndex() float64
	// Order is the insertion sequence number; 0 means not yet committed.
	Order() uint64
	// DistanceToPoint is 0 inside the visual shape and positive outside.
	DistanceToPoint(x, y float64) float64
	// WithOrder returns a copy carrying the given order.
	WithOrder(order uint64) Item

	sealed()
}

// Color is a packed 0xAARRGGBB value.
type Color uint32

const (
	Black Color = 0xFF000000
	White Color = 0xFFFFFFFF
)

type base struct {
	bounds geom.Rect
	zIndex float64
	order  uint64
}

func (b *base) Bounds() geom.Rect { return b.bounds }
func (b *base) ZIndex() float64   { return b.zIndex }
func (b *base) Order() uint64     { return b.order }
func (b *base) sealed()           {}

// Same reports whether a and b are the same logical entity: equal nonzero
// orders, or, while either is still uncommitted, structural equality.
func Same(a, b Item) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Order() != 0 && b.Order() != 0 {
		return a.Order() == b.Order()
	}
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() || a.Order() != b.Order() {
		return false
	}
	switch x := a.(type) {
	case *Stroke:
		y := b.(*Stroke)
		return x.base == y.base && x.Color == y.Color && x.Width == y.Width &&
			x.Style == y.Style && slices.Equal(x.Points, y.Points)
	case *Image:
		return x.base == b.(*Image).base && x.imageFields == b.(*Image).imageFields
	case *Text:
		return x.base == b.(*Text).base && x.textFields == b.(*Text).textFields
	case *Link:
		return x.base == b.(*Link).base && x.linkFields == b.(*Link).linkFields
	}
	return false
}

// DefiningPoints returns the points that must all lie inside a lasso for the
// item to count as enclosed: sample points for strokes, rotated corners for
// box-shaped items.
func DefiningPoints(it Item) []geom.Point {
	switch v := it.(type) {
	case *Stroke:
		return v.PathPoints()
	case *Image:
		c := geom.RotatedCorners(v.Rect, v.Rotation)
		return c[:]
	case *Text:
		c := geom.RotatedCorners(v.Rect, v.Rotation)
		return c[:]
	case *Link:
		c := geom.RotatedCorners(v.Rect, v.Rotation)
		return c[:]
	}
	return nil
}

// boxDistance measures from (x, y) to a logical box rotated around its center.
func boxDistance(logical geom.Rect, rotation, x, y float64) float64 {
	if rotation != 0 {
		cx, cy := logical.Center()
		toBox, _ := geom.RotateAbout(rotation, cx, cy).Inverse()
		x, y = toBox.TransformPoint(x, y)
	}
	dx := math.Max(math.Max(logical.X-x, 0), x-logical.MaxX())
	dy := math.Max(math.Max(logical.Y-y, 0), y-logical.MaxY())
	return math.Hypot(dx, dy)
}
