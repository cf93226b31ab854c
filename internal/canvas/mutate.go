package canvas

import (
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/history"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// AddItem commits an uncommitted item. It assigns the item its order,
// indexes it, records an Add step and returns the committed copy.
//
// The item is rejected (nil, false) when it already carries an order, when
// it is a stroke without samples, when the canvas uses fixed pages and the
// item lies entirely left or right of the page, or when a link's target is
// malformed. Rejection is a normal outcome; callers should not retry the
// same item.
func (m *Model) AddItem(it item.Item) (item.Item, bool) {
	if it == nil || it.Order() != 0 {
		return nil, false
	}
	switch v := it.(type) {
	case *item.Stroke:
		if len(v.Points) == 0 {
			return nil, false
		}
	case *item.Link:
		if err := v.Validate(); err != nil {
			m.logger.Debug("rejected link", "error", err)
			return nil, false
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.outsidePage(it.Bounds()) {
		return nil, false
	}
	committed := it.WithOrder(m.nextOrder())
	m.commit(history.Add{Items: []item.Item{committed}})
	return committed, true
}

func (m *Model) outsidePage(b geom.Rect) bool {
	if m.cfg.Kind != KindPages {
		return false
	}
	return b.MaxX() < 0 || b.X > m.cfg.PageWidth
}

// commit applies a freshly built action, records it and notifies
// subscribers. Caller must hold the write lock.
func (m *Model) commit(a history.Action) (geom.Rect, bool) {
	m.execute(a)
	m.history.Record(a)
	return m.publish(a)
}

func (m *Model) publish(a history.Action) (geom.Rect, bool) {
	m.revision++
	ev := eventFor(a)
	if ev.Bounds, ev.HasBounds = history.Bounds(a); !ev.HasBounds {
		return geom.Rect{}, false
	}
	m.events.Publish(ev)
	return ev.Bounds, true
}

// DeleteItems removes the given committed items as one undo step. Items
// that are not (or no longer) on the canvas are ignored. It returns the
// region that changed.
func (m *Model) DeleteItems(items []item.Item) (geom.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var present []item.Item
	seen := make(map[uint64]bool, len(items))
	for _, it := range items {
		if it == nil || it.Order() == 0 || seen[it.Order()] {
			continue
		}
		if stored, ok := m.items[it.Order()]; ok {
			present = append(present, stored)
			seen[it.Order()] = true
		}
	}
	if len(present) == 0 {
		return geom.Rect{}, false
	}
	return m.commit(history.Remove{Items: present})
}

// StartBatch groups every following mutation into a single undo step until
// the matching EndBatch.
func (m *Model) StartBatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history.StartBatch()
}

// EndBatch closes the batch opened by StartBatch.
func (m *Model) EndBatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.history.EndBatch(); ok {
		m.logger.Debug("batch committed", "items", history.Size(a))
	}
}

// Undo reverts the most recent step and returns the region it touched.
func (m *Model) Undo() (geom.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.history.Undo(applier{m})
	if !ok {
		return geom.Rect{}, false
	}
	return m.publish(history.Invert(a))
}

// Redo re-applies the most recently undone step.
func (m *Model) Redo() (geom.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.history.Redo(applier{m})
	if !ok {
		return geom.Rect{}, false
	}
	return m.publish(a)
}

// CanUndo reports whether Undo would change anything.
func (m *Model) CanUndo() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.CanUndo()
}

// CanRedo reports whether Redo would change anything.
func (m *Model) CanRedo() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.CanRedo()
}

// Clear empties the canvas and its history and resets the order counter.
// It is not undoable.
func (m *Model) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, had := m.content, m.hasContent
	clear(m.items)
	m.index.Reset()
	m.history.Clear()
	m.lastOrder = 0
	m.content, m.hasContent, m.contentStale = geom.Rect{}, false, false
	m.revision++

	m.events.Publish(Event{Kind: EventCleared, Bounds: prev, HasBounds: had})
}
