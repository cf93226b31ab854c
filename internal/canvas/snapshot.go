package canvas

import (
	"golang.org/x/image/math/f64"

	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// Snapshot is the plain value exchanged with persistence. It carries no
// history; a loaded canvas starts with empty undo and redo stacks.
type Snapshot struct {
	Kind       Kind
	PageWidth  float64
	PageHeight float64
	Background Background
	Viewport   f64.Aff3
	Items      []item.Item // sorted by order
	// OrderHighWater is the last order handed out, so a reloaded canvas
	// never reuses an order even if the newest items were erased.
	OrderHighWater uint64
}

// ToSnapshot captures the current content and configuration under the
// shared lock.
func (m *Model) ToSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Kind:           m.cfg.Kind,
		PageWidth:      m.cfg.PageWidth,
		PageHeight:     m.cfg.PageHeight,
		Background:     m.cfg.Background,
		Viewport:       m.cfg.Viewport.ToAff3(),
		Items:          m.sortedItems(),
		OrderHighWater: m.lastOrder,
	}
}

// SetLoadedState replaces the whole canvas with a snapshot. The index is
// rebuilt from scratch and history is cleared. Uncommitted items, and
// duplicates of an order already loaded, are given fresh orders above the
// high-water mark.
func (m *Model) SetLoadedState(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg = Config{
		Kind:       s.Kind,
		PageWidth:  s.PageWidth,
		PageHeight: s.PageHeight,
		Background: s.Background,
		Viewport:   geom.FromAff3(s.Viewport),
	}
	if m.cfg.Kind == "" {
		m.cfg.Kind = KindInfinite
	}
	if m.cfg.Background == "" {
		m.cfg.Background = BackgroundBlank
	}
	if s.Viewport == (f64.Aff3{}) {
		m.cfg.Viewport = geom.Identity()
	}

	clear(m.items)
	m.lastOrder = s.OrderHighWater
	var pending []item.Item
	for _, it := range s.Items {
		if it == nil {
			continue
		}
		o := it.Order()
		if _, dup := m.items[o]; o == 0 || dup {
			pending = append(pending, it)
			continue
		}
		m.items[o] = it
		m.lastOrder = max(m.lastOrder, o)
	}
	for _, it := range pending {
		it = it.WithOrder(m.nextOrder())
		m.items[it.Order()] = it
	}
	if len(pending) > 0 {
		m.logger.Warn("reassigned orders on load", "count", len(pending))
	}

	loaded := m.sortedItems()
	m.index.Build(loaded)
	m.history.Clear()
	m.recomputeContent()
	m.revision++

	m.events.Publish(Event{Kind: EventLoaded, Added: loaded, Bounds: m.content, HasBounds: m.hasContent})
}
