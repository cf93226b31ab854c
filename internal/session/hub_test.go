package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/inkslate/inkslate/backend-go/internal/canvas"
	"github.com/inkslate/inkslate/backend-go/internal/document"
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// memStore is an in-memory Loader/Saver pair.
type memStore struct {
	mu    sync.Mutex
	snaps map[string]canvas.Snapshot
	loads atomic.Int32
	saves atomic.Int32
}

func newMemStore(ids ...string) *memStore {
	s := &memStore{snaps: make(map[string]canvas.Snapshot)}
	for _, id := range ids {
		s.snaps[id] = canvas.Snapshot{}
	}
	return s
}

func (s *memStore) load(_ context.Context, id string) (canvas.Snapshot, error) {
	s.loads.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[id]
	if !ok {
		return canvas.Snapshot{}, ErrUnknownCanvas
	}
	return snap, nil
}

func (s *memStore) save(_ context.Context, id string, snap canvas.Snapshot) error {
	s.saves.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[id] = snap
	return nil
}

func newTestHub(t *testing.T, st *memStore) *Hub {
	t.Helper()
	h := NewHub(st.load, st.save,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAutosaveInterval(time.Hour))
	t.Cleanup(h.Stop)
	return h
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("send queue closed")
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return Message{}
}

func addPayload(t *testing.T, it item.Item) json.RawMessage {
	t.Helper()
	node, err := document.EncodeItem(it)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(ItemAddPayload{Item: node})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestOpenLoadsOnce(t *testing.T) {
	st := newMemStore("canvas_a")
	h := newTestHub(t, st)

	var wg sync.WaitGroup
	rooms := make([]*Room, 8)
	for i := range rooms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := h.Open(context.Background(), "canvas_a")
			if err != nil {
				t.Error(err)
			}
			rooms[i] = r
		}()
	}
	wg.Wait()
	if n := st.loads.Load(); n != 1 {
		t.Fatalf("loader called %d times", n)
	}
	for _, r := range rooms[1:] {
		if r != rooms[0] {
			t.Fatal("Open returned different rooms for one canvas")
		}
	}
}

func TestOpenUnknownCanvas(t *testing.T) {
	h := newTestHub(t, newMemStore())
	if _, err := h.Open(context.Background(), "canvas_missing"); !errors.Is(err, ErrUnknownCanvas) {
		t.Fatalf("Open error = %v", err)
	}
	// a failed load is not cached
	if _, err := h.Open(context.Background(), "canvas_missing"); !errors.Is(err, ErrUnknownCanvas) {
		t.Fatalf("second Open error = %v", err)
	}
}

func TestRegisterSyncsThenStreamsChanges(t *testing.T) {
	st := newMemStore("canvas_a")
	h := newTestHub(t, st)
	c := NewClient(h, nil, "tester", "canvas_a")
	if err := h.Register(context.Background(), c); err != nil {
		t.Fatal(err)
	}

	if msg := recv(t, c); msg.Type != TypeCanvasSync {
		t.Fatalf("first message = %s", msg.Type)
	}
	if msg := recv(t, c); msg.Type != TypePresenceState {
		t.Fatalf("second message = %s", msg.Type)
	}

	h.handleMessage(c, &Message{Type: TypeItemAdd, Payload: addPayload(t,
		item.NewImage("asset://a", geom.Rect{Width: 10, Height: 10}, 0, 1))})

	msg := recv(t, c)
	if msg.Type != TypeCanvasChanged || msg.Seq != 1 {
		t.Fatalf("message = %s seq %d", msg.Type, msg.Seq)
	}
	var p ChangedPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Kind != canvas.EventAdded || len(p.Added) != 1 || p.Added[0].Order != 1 || p.Bounds == nil {
		t.Fatalf("payload = %+v", p)
	}

	h.handleMessage(c, &Message{Type: TypeUndo})
	msg = recv(t, c)
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Kind != canvas.EventRemoved || len(p.Removed) != 1 || p.Removed[0] != 1 {
		t.Fatalf("undo payload = %+v", p)
	}
}

func TestHandleMessageRejections(t *testing.T) {
	h := newTestHub(t, newMemStore("canvas_a"))
	c := NewClient(h, nil, "tester", "canvas_a")
	if err := h.Register(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	recv(t, c)
	recv(t, c)

	committed, _ := document.EncodeItem(item.NewImage("x", geom.Rect{Width: 1, Height: 1}, 0, 1).WithOrder(7))
	raw, _ := json.Marshal(ItemAddPayload{Item: committed})
	cases := []struct {
		name string
		msg  Message
	}{
		{"bad json", Message{Type: TypeItemAdd, Payload: json.RawMessage(`"nope"`)}},
		{"committed item", Message{Type: TypeItemAdd, Payload: raw}},
		{"empty erase", Message{Type: TypeErase, Payload: json.RawMessage(`{"kind":"stroke","points":[]}`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h.handleMessage(c, &tc.msg)
			if msg := recv(t, c); msg.Type != TypeError {
				t.Fatalf("reply = %s, want error", msg.Type)
			}
		})
	}
}

func TestEraseOverSocketMessage(t *testing.T) {
	h := newTestHub(t, newMemStore("canvas_a"))
	r, err := h.Open(context.Background(), "canvas_a")
	if err != nil {
		t.Fatal(err)
	}
	r.Model().AddItem(item.NewStroke([]item.Sample{{X: 0, Y: 0}, {X: 100, Y: 0}}, item.Black, 2, item.StylePen))

	c := NewClient(h, nil, "tester", "canvas_a")
	if err := h.Register(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	raw, _ := json.Marshal(ErasePayload{
		Kind:   canvas.EraserStroke,
		Points: []item.Sample{{X: 50, Y: -10}, {X: 50, Y: 10}},
		Width:  4,
	})
	h.handleMessage(c, &Message{Type: TypeErase, Payload: raw})
	if r.Model().Len() != 0 {
		t.Fatal("erase message did not erase")
	}
}

func TestSaveOnlyWhenChanged(t *testing.T) {
	st := newMemStore("canvas_a")
	h := newTestHub(t, st)
	r, err := h.Open(context.Background(), "canvas_a")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := h.Save(ctx, "canvas_a"); err != nil || st.saves.Load() != 0 {
		t.Fatalf("unchanged canvas saved: %v / %d", err, st.saves.Load())
	}
	r.Model().AddItem(item.NewImage("a", geom.Rect{Width: 1, Height: 1}, 0, 1))
	if err := h.Save(ctx, "canvas_a"); err != nil || st.saves.Load() != 1 {
		t.Fatalf("changed canvas not saved: %v / %d", err, st.saves.Load())
	}
	if err := h.Save(ctx, "canvas_a"); err != nil || st.saves.Load() != 1 {
		t.Fatal("saved twice without a change")
	}
	if err := h.Save(ctx, "canvas_other"); err != nil {
		t.Fatalf("Save of a closed canvas = %v", err)
	}
}

func TestStopSavesDirtyCanvases(t *testing.T) {
	st := newMemStore("canvas_a")
	h := NewHub(st.load, st.save, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	go h.Run()

	r, err := h.Open(context.Background(), "canvas_a")
	if err != nil {
		t.Fatal(err)
	}
	r.Model().AddItem(item.NewImage("a", geom.Rect{Width: 1, Height: 1}, 0, 1))
	h.Stop()
	h.Stop()

	if st.saves.Load() != 1 || len(st.snaps["canvas_a"].Items) != 1 {
		t.Fatalf("saves = %d, items = %d", st.saves.Load(), len(st.snaps["canvas_a"].Items))
	}
	if _, err := h.Open(context.Background(), "canvas_a"); !errors.Is(err, ErrStopped) {
		t.Fatalf("Open after Stop = %v", err)
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	h := newTestHub(t, newMemStore("canvas_a"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(h, conn, "tester", "canvas_a")
		if err := h.Register(r.Context(), c); err != nil {
			conn.Close(websocket.StatusInternalError, err.Error())
			return
		}
		go c.WritePump(r.Context())
		c.ReadPump(r.Context())
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatal(err)
		}
		return msg
	}

	if msg := read(); msg.Type != TypeCanvasSync {
		t.Fatalf("first message = %s", msg.Type)
	}
	read() // presence state

	out, _ := json.Marshal(Message{Type: TypeItemAdd, Payload: addPayload(t,
		item.NewText("hi", 12, item.Black, geom.Rect{Width: 40, Height: 20}, item.AlignLeft, 0, 1))})
	if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if msg := read(); msg.Type != TypeCanvasChanged {
		t.Fatalf("reply = %s, want %s", msg.Type, TypeCanvasChanged)
	}
}
