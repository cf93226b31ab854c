package session

import (
	"encoding/json"

	"github.com/inkslate/inkslate/backend-go/internal/canvas"
	"github.com/inkslate/inkslate/backend-go/internal/document"
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

type Message struct {
	Type     string          `json:"type"`
	CanvasID string          `json:"canvasId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	// Server to client
	TypeCanvasSync    = "canvas.sync"
	TypeCanvasChanged = "canvas.changed"
	TypeError         = "error"

	// Client to server
	TypeItemAdd = "item.add"
	TypeErase   = "canvas.erase"
	TypeUndo    = "canvas.undo"
	TypeRedo    = "canvas.redo"

	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceLeave  = "presence.leave"
)

// SyncPayload carries the whole canvas as an encoded document.
type SyncPayload struct {
	Document json.RawMessage `json:"document"`
}

// ChangedPayload tells clients which region to re-query. Added items are
// included so simple clients can patch without a round trip.
type ChangedPayload struct {
	Kind    canvas.EventKind    `json:"kind"`
	Added   []document.ItemNode `json:"added,omitempty"`
	Removed []uint64            `json:"removed,omitempty"`
	Bounds  *geom.Rect          `json:"bounds,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ItemAddPayload submits one uncommitted item.
type ItemAddPayload struct {
	Item document.ItemNode `json:"item"`
}

// ErasePayload is an eraser gesture.
type ErasePayload struct {
	Kind   canvas.EraserKind `json:"kind"`
	Points []item.Sample     `json:"points"`
	Width  float64           `json:"width"`
}

// Stroke builds the eraser stroke the gesture describes.
func (p ErasePayload) Stroke() *item.Stroke {
	return item.NewStroke(p.Points, item.Black, p.Width, item.StylePen)
}

type PresencePayload struct {
	Cursor *geom.Point `json:"cursor,omitempty"`
	Tool   string      `json:"tool,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

func changedPayload(ev canvas.Event) (ChangedPayload, error) {
	p := ChangedPayload{Kind: ev.Kind}
	if ev.HasBounds {
		b := ev.Bounds
		p.Bounds = &b
	}
	for _, it := range ev.Added {
		node, err := document.EncodeItem(it)
		if err != nil {
			return ChangedPayload{}, err
		}
		p.Added = append(p.Added, node)
	}
	for _, it := range ev.Removed {
		p.Removed = append(p.Removed, it.Order())
	}
	return p, nil
}

func newMessage(typ, canvasID string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, CanvasID: canvasID, Payload: raw}, nil
}
