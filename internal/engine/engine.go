// Package engine drives one canvas from a JSON string boundary, the shape
// the js/wasm bridge needs. Every method takes and returns plain strings so
// the bridge stays a thin argument shuffle.
package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/inkslate/inkslate/backend-go/internal/canvas"
	"github.com/inkslate/inkslate/backend-go/internal/document"
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// pendingLimit bounds the change notifications kept between two ticks.
const pendingLimit = 256

// Engine owns a canvas model and the renderer's view of its changes.
type Engine struct {
	model *canvas.Model
	sub   *canvas.Subscription
	opts  []canvas.Option
}

// Change is one dirty region reported to the renderer.
type Change struct {
	Kind    canvas.EventKind `json:"kind"`
	Bounds  *geom.Rect       `json:"bounds,omitempty"`
	Added   []uint64         `json:"added,omitempty"`
	Removed []uint64         `json:"removed,omitempty"`
}

type result struct {
	OK      bool       `json:"ok"`
	Error   string     `json:"error,omitempty"`
	Changed bool       `json:"changed,omitempty"`
	Bounds  *geom.Rect `json:"bounds,omitempty"`
}

// strokeInput is the pen or eraser gesture sent by the frontend.
type strokeInput struct {
	Points []item.Sample     `json:"points"`
	Color  item.Color        `json:"color"`
	Width  float64           `json:"width"`
	Style  item.StrokeStyle  `json:"style"`
	Kind   canvas.EraserKind `json:"kind,omitempty"`
}

func NewEngine(opts ...canvas.Option) *Engine {
	e := &Engine{opts: opts}
	e.reset(canvas.New(opts...))
	return e
}

func (e *Engine) reset(m *canvas.Model) {
	if e.sub != nil {
		e.sub.Close()
	}
	e.model = m
	e.sub = m.Subscribe(pendingLimit)
}

// Model exposes the underlying canvas.
func (e *Engine) Model() *canvas.Model { return e.model }

// --- Commands (frontend → engine) ---

// LoadDocument replaces the canvas with an encoded document. The document
// gets a fresh model built from the engine's options, so no history, open
// batch or undelivered change of the previous note carries over. A document
// that fails to decode leaves the current canvas untouched.
func (e *Engine) LoadDocument(jsonData string) error {
	snap, err := document.Decode([]byte(jsonData))
	if err != nil {
		return err
	}
	e.load(snap)
	return nil
}

// LoadSampleDocument loads the built-in starter content.
func (e *Engine) LoadSampleDocument() {
	e.load(document.NewSampleSnapshot(e.model.Config()))
}

func (e *Engine) load(snap canvas.Snapshot) {
	m := canvas.New(e.opts...)
	e.reset(m)
	m.SetLoadedState(snap)
}

// AddStroke commits a pen stroke and returns the committed item node.
func (e *Engine) AddStroke(jsonData string) string {
	var in strokeInput
	if err := json.Unmarshal([]byte(jsonData), &in); err != nil {
		return failure(fmt.Errorf("invalid stroke: %w", err))
	}
	if len(in.Points) == 0 {
		return failure(fmt.Errorf("stroke has no points"))
	}
	if in.Style == "" {
		in.Style = item.StylePen
	}
	if in.Color == 0 {
		in.Color = item.Black
	}

	committed, ok := e.model.AddItem(item.NewStroke(in.Points, in.Color, in.Width, in.Style))
	if !ok {
		return failure(fmt.Errorf("stroke rejected"))
	}
	node, err := document.EncodeItem(committed)
	if err != nil {
		return failure(err)
	}
	return encode(node)
}

// AddItem commits any uncommitted item node.
func (e *Engine) AddItem(jsonData string) string {
	var node document.ItemNode
	if err := json.Unmarshal([]byte(jsonData), &node); err != nil {
		return failure(fmt.Errorf("invalid item: %w", err))
	}
	if node.Order != 0 {
		return failure(fmt.Errorf("item already has an order"))
	}
	it, err := document.DecodeItem(node)
	if err != nil {
		return failure(err)
	}
	committed, ok := e.model.AddItem(it)
	if !ok {
		return failure(fmt.Errorf("item rejected"))
	}
	out, err := document.EncodeItem(committed)
	if err != nil {
		return failure(err)
	}
	return encode(out)
}

// Erase applies an eraser gesture. The kind field selects the eraser and
// defaults to the stroke eraser.
func (e *Engine) Erase(jsonData string) string {
	var in strokeInput
	if err := json.Unmarshal([]byte(jsonData), &in); err != nil {
		return failure(fmt.Errorf("invalid eraser: %w", err))
	}
	if in.Kind == "" {
		in.Kind = canvas.EraserStroke
	}
	return changed(e.model.Erase(item.NewStroke(in.Points, item.Black, in.Width, item.StylePen), in.Kind))
}

func (e *Engine) Undo() string { return changed(e.model.Undo()) }

func (e *Engine) Redo() string { return changed(e.model.Redo()) }

func (e *Engine) StartBatch() { e.model.StartBatch() }

func (e *Engine) EndBatch() { e.model.EndBatch() }

// DeleteItems removes the items with the given orders as one step.
func (e *Engine) DeleteItems(orders []uint64) string {
	var items []item.Item
	for _, o := range orders {
		if it, ok := e.model.Get(o); ok {
			items = append(items, it)
		}
	}
	return changed(e.model.DeleteItems(items))
}

func (e *Engine) Clear() { e.model.Clear() }

// SetViewport records the view transform [a, b, c, d, e, f].
func (e *Engine) SetViewport(m [6]float64) {
	e.model.SetViewport(geom.Matrix2D(m))
}

// Tick drains the change notifications since the last tick. The renderer
// repaints the returned regions; an empty array means nothing changed.
func (e *Engine) Tick() string {
	changes := []Change{}
	for {
		select {
		case ev, ok := <-e.sub.C():
			if !ok {
				return encode(changes)
			}
			changes = append(changes, toChange(ev))
		default:
			if n := e.sub.Dropped(); n > 0 {
				slog.Debug("renderer missed changes", "dropped", n)
			}
			return encode(changes)
		}
	}
}

// --- Queries (frontend ← engine) ---

// QueryRect returns the item nodes intersecting the rect in paint order.
func (e *Engine) QueryRect(x, y, w, h float64) string {
	items := e.model.QueryRect(geom.Rect{X: x, Y: y, Width: w, Height: h})
	nodes := make([]document.ItemNode, 0, len(items))
	for _, it := range items {
		node, err := document.EncodeItem(it)
		if err != nil {
			return failure(err)
		}
		nodes = append(nodes, node)
	}
	return encode(nodes)
}

// HitTest returns the topmost item near the point, or "null".
func (e *Engine) HitTest(x, y, tolerance float64) string {
	it, ok := e.model.HitTest(x, y, tolerance)
	if !ok {
		return "null"
	}
	node, err := document.EncodeItem(it)
	if err != nil {
		return failure(err)
	}
	return encode(node)
}

// HitTestScreen is HitTest for a screen-space point, mapped through the
// current viewport.
func (e *Engine) HitTestScreen(sx, sy, tolerance float64) string {
	it, ok := e.model.HitTestScreen(sx, sy, tolerance)
	if !ok {
		return "null"
	}
	node, err := document.EncodeItem(it)
	if err != nil {
		return failure(err)
	}
	return encode(node)
}

// ContentBounds returns the rect around all content, or "null".
func (e *Engine) ContentBounds() string {
	b, ok := e.model.ContentBounds()
	if !ok {
		return "null"
	}
	return encode(b)
}

// GetDocument returns the canvas in its stored document format.
func (e *Engine) GetDocument() string {
	data, err := document.Encode(e.model.ToSnapshot())
	if err != nil {
		return failure(err)
	}
	return string(data)
}

func (e *Engine) CanUndo() bool { return e.model.CanUndo() }

func (e *Engine) CanRedo() bool { return e.model.CanRedo() }

func toChange(ev canvas.Event) Change {
	c := Change{Kind: ev.Kind}
	if ev.HasBounds {
		b := ev.Bounds
		c.Bounds = &b
	}
	for _, it := range ev.Added {
		c.Added = append(c.Added, it.Order())
	}
	for _, it := range ev.Removed {
		c.Removed = append(c.Removed, it.Order())
	}
	return c
}

func changed(b geom.Rect, ok bool) string {
	if !ok {
		return encode(result{OK: true})
	}
	return encode(result{OK: true, Changed: true, Bounds: &b})
}

func failure(err error) string {
	return encode(result{Error: err.Error()})
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"encode failed"}`
	}
	return string(data)
}
