package canvas

import (
	"cmp"
	"slices"

	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// paintOrder sorts back to front: by z-index, then by insertion order.
func paintOrder(a, b item.Item) int {
	if c := cmp.Compare(a.ZIndex(), b.ZIndex()); c != 0 {
		return c
	}
	return cmp.Compare(a.Order(), b.Order())
}

// QueryRect returns every item whose bounds intersect rect, in paint order.
func (m *Model) QueryRect(rect geom.Rect) []item.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.index.Retrieve(nil, rect)
	slices.SortFunc(out, paintOrder)
	return out
}

// HitTest returns the item nearest to (x, y) within tolerance, preferring
// the most recently added one on ties.
func (m *Model) HitTest(x, y, tolerance float64) (item.Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.HitTest(x, y, tolerance)
}

// HitTestScreen is HitTest for a point in screen space. The point and the
// tolerance are mapped into the canvas through the inverse of the stored
// viewport. A singular viewport hits nothing.
func (m *Model) HitTestScreen(sx, sy, tolerance float64) (item.Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vp := m.cfg.Viewport
	if vp.IsIdentity() {
		return m.index.HitTest(sx, sy, tolerance)
	}
	toWorld, ok := vp.Inverse()
	if !ok {
		return nil, false
	}
	x, y := toWorld.TransformPoint(sx, sy)
	return m.index.HitTest(x, y, tolerance/vp.ScaleFactor())
}

// ContentBounds returns the union of all item bounds, and false on an
// empty canvas.
func (m *Model) ContentBounds() (geom.Rect, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.content, m.hasContent
}

// Len returns the number of items on the canvas.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Get returns the committed item with the given order.
func (m *Model) Get(order uint64) (item.Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[order]
	return it, ok
}

// Items returns every item sorted by order.
func (m *Model) Items() []item.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedItems()
}

func (m *Model) sortedItems() []item.Item {
	out := make([]item.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b item.Item) int { return cmp.Compare(a.Order(), b.Order()) })
	return out
}

// LastOrder returns the highest order ever assigned since the last Clear.
func (m *Model) LastOrder() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastOrder
}
