package canvas

import (
	"fmt"

	"github.com/inkslate/inkslate/backend-go/internal/history"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// applier is the history.Executor handed to the history manager. Kept
// unexported so nothing outside the model can apply actions without the lock.
type applier struct{ m *Model }

func (a applier) Execute(act history.Action) { a.m.execute(act) }
func (a applier) Revert(act history.Action)  { a.m.execute(history.Invert(act)) }

// execute interprets an action against the store and index. Content bounds
// are refreshed once, after the outermost action. Caller must hold the
// write lock.
func (m *Model) execute(a history.Action) {
	m.applying++
	switch a := a.(type) {
	case history.Add:
		for _, it := range a.Items {
			m.insert(it)
		}
	case history.Remove:
		for _, it := range a.Items {
			m.remove(it)
		}
	case history.Replace:
		for _, it := range a.Removed {
			m.remove(it)
		}
		for _, it := range a.Added {
			m.insert(it)
		}
	case history.Batch:
		for _, child := range a.Actions {
			m.execute(child)
		}
	default:
		panic(fmt.Sprintf("canvas: unknown action %T", a))
	}
	m.applying--
	if m.applying == 0 && m.contentStale {
		m.recomputeContent()
	}
}

func (m *Model) insert(it item.Item) {
	o := it.Order()
	if o == 0 {
		panic("canvas: inserting uncommitted item")
	}
	if existing, ok := m.items[o]; ok {
		panic(fmt.Sprintf("canvas: order collision on %d (%s over %s)", o, it.Kind(), existing.Kind()))
	}
	m.items[o] = it
	m.index.Insert(it)
	if o > m.lastOrder {
		m.lastOrder = o
	}

	b := it.Bounds()
	if !m.hasContent {
		m.content, m.hasContent = b, true
		return
	}
	m.content = m.content.Union(b)
}

func (m *Model) remove(it item.Item) {
	o := it.Order()
	stored, ok := m.items[o]
	if !ok {
		panic(fmt.Sprintf("canvas: removing unknown item %d", o))
	}
	delete(m.items, o)
	if !m.index.Remove(stored) {
		panic(fmt.Sprintf("canvas: item %d missing from index", o))
	}
	if m.hasContent && stored.Bounds().TouchesEdgeOf(m.content) {
		m.contentStale = true
	}
}

func (m *Model) recomputeContent() {
	m.contentStale = false
	m.hasContent = false
	first := true
	for _, it := range m.items {
		if first {
			m.content, first = it.Bounds(), false
			continue
		}
		m.content = m.content.Union(it.Bounds())
	}
	m.hasContent = !first
}
