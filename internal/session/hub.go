// Package session hosts live canvases. A Hub loads each canvas on first use,
// fans its change notifications out to connected websocket clients and
// saves it back periodically and on shutdown.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inkslate/inkslate/backend-go/internal/canvas"
	"github.com/inkslate/inkslate/backend-go/internal/document"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

var (
	ErrUnknownCanvas = errors.New("unknown canvas")
	ErrStopped       = errors.New("hub stopped")
)

// Loader fetches the stored state of a canvas. It returns ErrUnknownCanvas
// when the canvas does not exist.
type Loader func(ctx context.Context, canvasID string) (canvas.Snapshot, error)

// Saver persists a canvas state.
type Saver func(ctx context.Context, canvasID string, snap canvas.Snapshot) error

const saveTimeout = 10 * time.Second

// Room is one live canvas and the clients watching it.
type Room struct {
	canvasID string
	ready    chan struct{}
	err      error

	model *canvas.Model
	sub   *canvas.Subscription
	seq   atomic.Int64

	mu       sync.Mutex
	clients  map[string]*Client // clientID -> client
	presence *presenceSet

	saveMu sync.Mutex
	saved  uint64 // model revision last persisted
}

func (r *Room) Model() *canvas.Model { return r.model }

type Hub struct {
	mu      sync.Mutex
	rooms   map[string]*Room // canvasID -> room
	stopped bool

	load        Loader
	save        Saver
	canvasOpts  []canvas.Option
	eventBuffer int
	interval    time.Duration
	logger      *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	pumps    sync.WaitGroup
}

type Option func(*Hub)

func WithCanvasOptions(opts ...canvas.Option) Option {
	return func(h *Hub) { h.canvasOpts = append(h.canvasOpts, opts...) }
}

func WithEventBuffer(n int) Option {
	return func(h *Hub) { h.eventBuffer = n }
}

func WithAutosaveInterval(d time.Duration) Option {
	return func(h *Hub) { h.interval = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

func NewHub(load Loader, save Saver, opts ...Option) *Hub {
	h := &Hub{
		rooms:       make(map[string]*Room),
		load:        load,
		save:        save,
		eventBuffer: 64,
		interval:    30 * time.Second,
		logger:      slog.Default(),
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run saves changed canvases every autosave interval until Stop is called.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.saveAll()
		case <-h.stop:
			return
		}
	}
}

// Stop refuses new rooms, saves every changed canvas and disconnects the
// change pumps. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)

		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()

		h.saveAll()

		for _, r := range h.liveRooms() {
			r.sub.Close()
		}
		h.pumps.Wait()
	})
}

// Open returns the live room for a canvas, loading it on first use.
func (h *Hub) Open(ctx context.Context, canvasID string) (*Room, error) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, ErrStopped
	}
	r, ok := h.rooms[canvasID]
	if !ok {
		r = &Room{
			canvasID: canvasID,
			ready:    make(chan struct{}),
			clients:  make(map[string]*Client),
			presence: newPresenceSet(),
		}
		h.rooms[canvasID] = r
		h.mu.Unlock()

		r.err = h.start(ctx, r)
		close(r.ready)
		if r.err != nil {
			h.mu.Lock()
			delete(h.rooms, canvasID)
			h.mu.Unlock()
			return nil, r.err
		}
		return r, nil
	}
	h.mu.Unlock()

	select {
	case <-r.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return r, nil
}

func (h *Hub) start(ctx context.Context, r *Room) error {
	snap, err := h.load(ctx, r.canvasID)
	if err != nil {
		return fmt.Errorf("load canvas %s: %w", r.canvasID, err)
	}

	opts := append([]canvas.Option{canvas.WithLogger(h.logger.With("canvas", r.canvasID))}, h.canvasOpts...)
	r.model = canvas.New(opts...)
	r.model.SetLoadedState(snap)
	r.saved = r.model.Revision()

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrStopped
	}
	r.sub = r.model.Subscribe(h.eventBuffer)
	h.pumps.Add(1)
	h.mu.Unlock()
	go h.pump(r)

	h.logger.Info("canvas opened", "canvas", r.canvasID, "items", r.model.Len())
	return nil
}

// pump forwards change notifications to the room's clients.
func (h *Hub) pump(r *Room) {
	defer h.pumps.Done()

	for ev := range r.sub.C() {
		payload, err := changedPayload(ev)
		if err != nil {
			h.logger.Error("encode change", "error", err, "canvas", r.canvasID)
			continue
		}
		msg, err := newMessage(TypeCanvasChanged, r.canvasID, payload)
		if err != nil {
			h.logger.Error("marshal change", "error", err, "canvas", r.canvasID)
			continue
		}
		msg.Seq = r.seq.Add(1)
		r.broadcast(msg, "")
	}
	if n := r.sub.Dropped(); n > 0 {
		h.logger.Warn("change notifications dropped", "canvas", r.canvasID, "count", n)
	}
}

func (h *Hub) liveRooms() []*Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		select {
		case <-r.ready:
			if r.err == nil {
				out = append(out, r)
			}
		default:
		}
	}
	return out
}

func (h *Hub) saveAll() {
	for _, r := range h.liveRooms() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := h.saveRoom(ctx, r); err != nil {
			h.logger.Error("save canvas", "error", err, "canvas", r.canvasID)
		}
		cancel()
	}
}

// saveRoom persists the room if it changed since the last save.
func (h *Hub) saveRoom(ctx context.Context, r *Room) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	rev := r.model.Revision()
	if rev == r.saved {
		return nil
	}
	if err := h.save(ctx, r.canvasID, r.model.ToSnapshot()); err != nil {
		return err
	}
	r.saved = rev
	h.logger.Info("canvas saved", "canvas", r.canvasID, "revision", rev)
	return nil
}

// Save persists one canvas now if it is live and changed.
func (h *Hub) Save(ctx context.Context, canvasID string) error {
	h.mu.Lock()
	r, ok := h.rooms[canvasID]
	h.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-r.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	if r.err != nil {
		return nil
	}
	return h.saveRoom(ctx, r)
}

// Register joins a client to its canvas room and sends it the current
// state. The snapshot is taken under the room lock so every change after it
// reaches the client through the pump.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	r, err := h.Open(ctx, c.CanvasID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := document.Encode(r.model.ToSnapshot())
	if err != nil {
		return fmt.Errorf("encode canvas: %w", err)
	}
	syncMsg, err := newMessage(TypeCanvasSync, r.canvasID, SyncPayload{Document: data})
	if err != nil {
		return err
	}
	state, err := newMessage(TypePresenceState, r.canvasID, r.presence.snapshot())
	if err != nil {
		return err
	}
	syncMsg.Seq = r.seq.Load()

	c.room = r
	r.clients[c.ClientID] = c
	c.Send(syncMsg)
	c.Send(state)

	h.logger.Info("client joined", "client", c.ClientID, "subject", c.Subject, "canvas", c.CanvasID)
	return nil
}

// Unregister removes a client and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	r := c.room
	if r == nil {
		return
	}
	r.mu.Lock()
	if _, ok := r.clients[c.ClientID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.clients, c.ClientID)
	c.close()
	r.mu.Unlock()

	r.presence.remove(c.ClientID)
	if msg, err := newMessage(TypePresenceLeave, r.canvasID, PresenceLeavePayload{ClientID: c.ClientID}); err == nil {
		r.broadcast(msg, "")
	}
	h.logger.Info("client left", "client", c.ClientID, "canvas", c.CanvasID)
}

func (r *Room) broadcast(msg *Message, excludeClientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.clients {
		if id != excludeClientID {
			c.Send(msg)
		}
	}
}

// handleMessage applies a client request to the room's canvas. Resulting
// changes reach every client, the sender included, through the pump.
func (h *Hub) handleMessage(sender *Client, msg *Message) {
	r := sender.room
	if r == nil {
		return
	}
	m := r.model

	switch msg.Type {
	case TypeItemAdd:
		var p ItemAddPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sender.sendError("invalid item payload")
			return
		}
		it, err := NewItem(p.Item)
		if err != nil {
			sender.sendError(err.Error())
			return
		}
		if _, ok := m.AddItem(it); !ok {
			sender.sendError("item rejected")
		}

	case TypeErase:
		var p ErasePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || len(p.Points) == 0 {
			sender.sendError("invalid erase payload")
			return
		}
		m.Erase(p.Stroke(), p.Kind)

	case TypeUndo:
		m.Undo()

	case TypeRedo:
		m.Redo()

	case TypePresenceUpdate:
		var p PresencePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.logger.Warn("invalid presence payload", "error", err)
			return
		}
		r.presence.update(sender.ClientID, &p)
		out, err := newMessage(TypePresenceUpdate, r.canvasID, p)
		if err != nil {
			return
		}
		out.ClientID = sender.ClientID
		r.broadcast(out, sender.ClientID)

	default:
		h.logger.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
	}
}

var ErrCommittedItem = errors.New("item already has an order")

// NewItem decodes an item submitted by a client. Clients may only submit
// uncommitted items; the canvas assigns orders.
func NewItem(node document.ItemNode) (item.Item, error) {
	if node.Order != 0 {
		return nil, ErrCommittedItem
	}
	return document.DecodeItem(node)
}
