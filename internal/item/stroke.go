package item

import (
	"math"
	"sync"

	"github.com/inkslate/inkslate/backend-go/internal/geom"
)

// StrokeStyle selects the pen model used to render a stroke.
type StrokeStyle string

const (
	StylePen         StrokeStyle = "pen"
	StylePencil      StrokeStyle = "pencil"
	StyleMarker      StrokeStyle = "marker"
	StyleHighlighter StrokeStyle = "highlighter"
	StyleBrush       StrokeStyle = "brush"
	StyleCharcoal    StrokeStyle = "charcoal"
)

// Overshoot is how far past width/2 the style paints.
func (s StrokeStyle) Overshoot(width float64) float64 {
	switch s {
	case StyleBrush:
		return 0.25 * width
	case StyleCharcoal:
		return 0.5 * width
	default:
		return 0
	}
}

// Sample is one pen input sample.
type Sample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Pressure  float64 `json:"p"`
	Size      float64 `json:"s"`
	TiltX     float64 `json:"tx"`
	TiltY     float64 `json:"ty"`
	Timestamp int64   `json:"t"`
}

// Stroke is a free-hand pen stroke.
type Stroke struct {
	base
	Points []Sample
	Color  Color
	Width  float64
	Style  StrokeStyle

	// render cache; shared between copies that differ only by order
	cache *strokeCache
}

type strokeCache struct {
	once    sync.Once
	path    []geom.PathCommand
	outline []geom.Point
}

// NewStroke builds an uncommitted stroke and computes its bounds.
func NewStroke(points []Sample, color Color, width float64, style StrokeStyle) *Stroke {
	s := &Stroke{
		Points: points,
		Color:  color,
		Width:  width,
		Style:  style,
		cache:  &strokeCache{},
	}
	s.bounds = geom.StrokeBounds(s.PathPoints(), width, style.Overshoot(width))
	return s
}

// SetZIndex sets the paint-order hint. Only valid before the stroke is committed.
func (s *Stroke) SetZIndex(z float64) *Stroke {
	s.zIndex = z
	return s
}

func (s *Stroke) Kind() Kind { return KindStroke }

func (s *Stroke) WithOrder(order uint64) Item {
	c := *s
	c.order = order
	return &c
}

// PathPoints returns the sample positions.
func (s *Stroke) PathPoints() []geom.Point {
	pts := make([]geom.Point, len(s.Points))
	for i, p := range s.Points {
		pts[i] = geom.Point{X: p.X, Y: p.Y}
	}
	return pts
}

func (s *Stroke) DistanceToPoint(x, y float64) float64 {
	if len(s.Points) == 0 {
		return math.Inf(1)
	}
	d := geom.PolylineDistance(geom.Point{X: x, Y: y}, s.PathPoints()) - s.Width/2
	return math.Max(0, d)
}

// RenderPath returns the smoothed path the renderer strokes.
func (s *Stroke) RenderPath() []geom.PathCommand {
	s.fill()
	return s.cache.path
}

// Outline returns the flattened render path.
func (s *Stroke) Outline() []geom.Point {
	s.fill()
	return s.cache.outline
}

func (s *Stroke) fill() {
	if s.cache == nil {
		// zero-value strokes built outside NewStroke
		s.cache = &strokeCache{}
	}
	s.cache.once.Do(func() {
		s.cache.path = geom.SmoothPath(s.PathPoints())
		s.cache.outline = geom.Flatten(s.cache.path, 0.25)
	})
}

// Polyline returns the raw sample path as straight path commands.
func (s *Stroke) Polyline() []geom.PathCommand {
	pts := s.PathPoints()
	if len(pts) == 0 {
		return nil
	}
	cmds := make([]geom.PathCommand, 0, len(pts))
	cmds = append(cmds, geom.PathCommand{Op: geom.OpMove, Pts: []geom.Point{pts[0]}})
	for _, p := range pts[1:] {
		cmds = append(cmds, geom.PathCommand{Op: geom.OpLine, Pts: []geom.Point{p}})
	}
	return cmds
}

// Intersects reports whether the two strokes' painted paths touch.
func (s *Stroke) Intersects(other *Stroke) bool {
	if !s.bounds.Intersects(other.bounds) {
		return false
	}
	return geom.StrokeIntersects(s.PathPoints(), s.Width, other.PathPoints(), other.Width)
}

// LassoPolygon interprets the stroke as a closed lasso.
func (s *Stroke) LassoPolygon() []geom.Point {
	return geom.LassoPolygon(s.Polyline(), 0.5)
}
