// Package document is the on-disk format of a canvas: a versioned JSON
// envelope holding the canvas settings and its items tagged by type.
package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/image/math/f64"

	"github.com/inkslate/inkslate/backend-go/internal/canvas"
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// Version is the current envelope version written by Encode.
const Version = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported document version")
	ErrUnknownItemType    = errors.New("unknown item type")
)

type Document struct {
	Version        int        `json:"version"`
	Canvas         Settings   `json:"canvas"`
	OrderHighWater uint64     `json:"orderHighWater"`
	Items          []ItemNode `json:"items"`
}

type Settings struct {
	Kind       canvas.Kind       `json:"kind"`
	PageWidth  float64           `json:"pageWidth"`
	PageHeight float64           `json:"pageHeight"`
	Background canvas.Background `json:"background"`
	Viewport   [6]float64        `json:"viewport"`
}

// ItemNode is one item with its variant payload kept raw until the type is
// known.
type ItemNode struct {
	Type   item.Kind       `json:"type"`
	Order  uint64          `json:"order"`
	ZIndex float64         `json:"z,omitempty"`
	Data   json.RawMessage `json:"data"`
}

type StrokeData struct {
	Points []item.Sample    `json:"points"`
	Color  item.Color       `json:"color"`
	Width  float64          `json:"width"`
	Style  item.StrokeStyle `json:"style"`
}

type ImageData struct {
	URI      string    `json:"uri"`
	Rect     geom.Rect `json:"rect"`
	Rotation float64   `json:"rotation,omitempty"`
	Opacity  float64   `json:"opacity"`
}

type TextData struct {
	Content  string     `json:"content"`
	FontSize float64    `json:"fontSize"`
	Color    item.Color `json:"color"`
	Rect     geom.Rect  `json:"rect"`
	Align    item.Align `json:"align"`
	Rotation float64    `json:"rotation,omitempty"`
	Opacity  float64    `json:"opacity"`
}

type LinkData struct {
	Label    string        `json:"label"`
	Target   string        `json:"target"`
	Kind     item.LinkKind `json:"kind"`
	Rect     geom.Rect     `json:"rect"`
	Rotation float64       `json:"rotation,omitempty"`
}

// Encode serializes a snapshot. Render and layout caches are never written.
func Encode(s canvas.Snapshot) ([]byte, error) {
	doc := Document{
		Version: Version,
		Canvas: Settings{
			Kind:       s.Kind,
			PageWidth:  s.PageWidth,
			PageHeight: s.PageHeight,
			Background: s.Background,
			Viewport:   s.Viewport,
		},
		OrderHighWater: s.OrderHighWater,
		Items:          make([]ItemNode, 0, len(s.Items)),
	}
	for _, it := range s.Items {
		node, err := EncodeItem(it)
		if err != nil {
			return nil, err
		}
		doc.Items = append(doc.Items, node)
	}
	return json.Marshal(doc)
}

// EncodeItem wraps a single item in its tagged node.
func EncodeItem(it item.Item) (ItemNode, error) {
	var data any
	switch v := it.(type) {
	case *item.Stroke:
		data = StrokeData{Points: v.Points, Color: v.Color, Width: v.Width, Style: v.Style}
	case *item.Image:
		data = ImageData{URI: v.URI, Rect: v.Rect, Rotation: v.Rotation, Opacity: v.Opacity}
	case *item.Text:
		data = TextData{
			Content:  v.Content,
			FontSize: v.FontSize,
			Color:    v.Color,
			Rect:     v.Rect,
			Align:    v.Align,
			Rotation: v.Rotation,
			Opacity:  v.Opacity,
		}
	case *item.Link:
		data = LinkData{Label: v.Label, Target: v.Target, Kind: v.LinkKind, Rect: v.Rect, Rotation: v.Rotation}
	default:
		return ItemNode{}, fmt.Errorf("encode %T: %w", it, ErrUnknownItemType)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ItemNode{}, fmt.Errorf("encode %s %d: %w", it.Kind(), it.Order(), err)
	}
	return ItemNode{Type: it.Kind(), Order: it.Order(), ZIndex: it.ZIndex(), Data: raw}, nil
}

// Decode parses an encoded snapshot. Items are rebuilt through their
// constructors so bounds are recomputed rather than trusted.
func Decode(data []byte) (canvas.Snapshot, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return canvas.Snapshot{}, fmt.Errorf("decode document: %w", err)
	}
	if doc.Version != Version {
		return canvas.Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	s := canvas.Snapshot{
		Kind:           doc.Canvas.Kind,
		PageWidth:      doc.Canvas.PageWidth,
		PageHeight:     doc.Canvas.PageHeight,
		Background:     doc.Canvas.Background,
		Viewport:       f64.Aff3(doc.Canvas.Viewport),
		OrderHighWater: doc.OrderHighWater,
		Items:          make([]item.Item, 0, len(doc.Items)),
	}
	for i, node := range doc.Items {
		it, err := DecodeItem(node)
		if err != nil {
			return canvas.Snapshot{}, fmt.Errorf("item %d: %w", i, err)
		}
		s.Items = append(s.Items, it)
	}
	return s, nil
}

// DecodeItem rebuilds an item from its node, keeping the stored order.
func DecodeItem(node ItemNode) (item.Item, error) {
	var it item.Item
	switch node.Type {
	case item.KindStroke:
		var d StrokeData
		if err := json.Unmarshal(node.Data, &d); err != nil {
			return nil, fmt.Errorf("decode stroke: %w", err)
		}
		it = item.NewStroke(d.Points, d.Color, d.Width, d.Style).SetZIndex(node.ZIndex)
	case item.KindImage:
		var d ImageData
		if err := json.Unmarshal(node.Data, &d); err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		it = item.NewImage(d.URI, d.Rect, d.Rotation, d.Opacity).SetZIndex(node.ZIndex)
	case item.KindText:
		var d TextData
		if err := json.Unmarshal(node.Data, &d); err != nil {
			return nil, fmt.Errorf("decode text: %w", err)
		}
		it = item.NewText(d.Content, d.FontSize, d.Color, d.Rect, d.Align, d.Rotation, d.Opacity).SetZIndex(node.ZIndex)
	case item.KindLink:
		var d LinkData
		if err := json.Unmarshal(node.Data, &d); err != nil {
			return nil, fmt.Errorf("decode link: %w", err)
		}
		it = item.NewLink(d.Label, d.Target, d.Kind, d.Rect, d.Rotation).SetZIndex(node.ZIndex)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, node.Type)
	}
	if node.Order == 0 {
		return it, nil
	}
	return it.WithOrder(node.Order), nil
}
