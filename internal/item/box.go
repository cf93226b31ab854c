package item

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/typeid"
)

// Image is a placed raster image.
type Image struct {
	base
	imageFields
}

type imageFields struct {
	URI      string
	Rect     geom.Rect // logical, unrotated
	Rotation float64   // degrees around the box center
	Opacity  float64
}

// NewImage builds an uncommitted image.
func NewImage(uri string, logical geom.Rect, rotation, opacity float64) *Image {
	img := &Image{imageFields: imageFields{URI: uri, Rect: logical, Rotation: rotation, Opacity: opacity}}
	img.bounds = geom.RotatedBounds(logical, rotation)
	return img
}

func (i *Image) SetZIndex(z float64) *Image {
	i.zIndex = z
	return i
}

func (i *Image) Kind() Kind { return KindImage }

func (i *Image) WithOrder(order uint64) Item {
	c := *i
	c.order = order
	return &c
}

func (i *Image) DistanceToPoint(x, y float64) float64 {
	return boxDistance(i.Rect, i.Rotation, x, y)
}

// Align is horizontal text alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Text is a typed text block.
type Text struct {
	base
	textFields

	layout *textLayout
}

type textFields struct {
	Content  string
	FontSize float64
	Color    Color
	Rect     geom.Rect
	Align    Align
	Rotation float64
	Opacity  float64
}

type textLayout struct {
	once  sync.Once
	lines []string
}

// NewText builds an uncommitted text block.
func NewText(content string, fontSize float64, color Color, logical geom.Rect, align Align, rotation, opacity float64) *Text {
	t := &Text{
		textFields: textFields{
			Content:  content,
			FontSize: fontSize,
			Color:    color,
			Rect:     logical,
			Align:    align,
			Rotation: rotation,
			Opacity:  opacity,
		},
		layout: &textLayout{},
	}
	t.bounds = geom.RotatedBounds(logical, rotation)
	return t
}

func (t *Text) SetZIndex(z float64) *Text {
	t.zIndex = z
	return t
}

func (t *Text) Kind() Kind { return KindText }

func (t *Text) WithOrder(order uint64) Item {
	c := *t
	c.order = order
	return &c
}

func (t *Text) DistanceToPoint(x, y float64) float64 {
	return boxDistance(t.Rect, t.Rotation, x, y)
}

// avgGlyphWidth approximates an average advance as a fraction of the font
// size. Real shaping belongs to the renderer.
const avgGlyphWidth = 0.55

// Lines returns the content word-wrapped to the logical width.
func (t *Text) Lines() []string {
	if t.layout == nil {
		t.layout = &textLayout{}
	}
	t.layout.once.Do(func() {
		t.layout.lines = wrapText(t.Content, t.FontSize, t.Rect.Width)
	})
	return t.layout.lines
}

func wrapText(content string, fontSize, width float64) []string {
	perLine := 0
	if fontSize > 0 && width > 0 {
		perLine = int(width / (fontSize * avgGlyphWidth))
	}
	var lines []string
	for _, para := range strings.Split(content, "\n") {
		if perLine <= 0 {
			lines = append(lines, para)
			continue
		}
		var cur strings.Builder
		for _, word := range strings.Fields(para) {
			if cur.Len() > 0 && cur.Len()+1+len(word) > perLine {
				lines = append(lines, cur.String())
				cur.Reset()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(word)
		}
		lines = append(lines, cur.String())
	}
	return lines
}

// LinkKind says what a link points at.
type LinkKind string

const (
	LinkInternal LinkKind = "note"
	LinkExternal LinkKind = "url"
)

// Link is a tappable reference to another note or a URL.
type Link struct {
	base
	linkFields
}

type linkFields struct {
	Label    string
	Target   string
	LinkKind LinkKind
	Rect     geom.Rect
	Rotation float64
}

// NewLink builds an uncommitted link.
func NewLink(label, target string, kind LinkKind, logical geom.Rect, rotation float64) *Link {
	l := &Link{linkFields: linkFields{Label: label, Target: target, LinkKind: kind, Rect: logical, Rotation: rotation}}
	l.bounds = geom.RotatedBounds(logical, rotation)
	return l
}

func (l *Link) SetZIndex(z float64) *Link {
	l.zIndex = z
	return l
}

func (l *Link) Kind() Kind { return KindLink }

func (l *Link) WithOrder(order uint64) Item {
	c := *l
	c.order = order
	return &c
}

func (l *Link) DistanceToPoint(x, y float64) float64 {
	return boxDistance(l.Rect, l.Rotation, x, y)
}

var ErrInvalidTarget = errors.New("invalid link target")

// Validate checks that the target matches the link kind.
func (l *Link) Validate() error {
	switch l.LinkKind {
	case LinkInternal:
		if err := typeid.Validate(l.Target, typeid.PrefixNote); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
	case LinkExternal:
		u, err := url.Parse(l.Target)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
		if !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("%w: %q is not an absolute url", ErrInvalidTarget, l.Target)
		}
	default:
		return fmt.Errorf("%w: unknown link kind %q", ErrInvalidTarget, l.LinkKind)
	}
	return nil
}
