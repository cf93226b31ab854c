// Package history records reversible canvas edits and manages the
// undo/redo stacks. It never touches canvas state itself: applying an
// action is delegated to an Executor supplied by the caller.
package history

import (
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// Action is a reversible unit of change: Add, Remove, Replace or Batch.
type Action interface {
	isAction()
}

// Add inserts Items.
type Add struct {
	Items []item.Item
}

// Remove deletes Items.
type Remove struct {
	Items []item.Item
}

// Replace deletes Removed and inserts Added in one step, as a point eraser
// does when it cuts a stroke into pieces.
type Replace struct {
	Removed []item.Item
	Added   []item.Item
}

// Batch applies Actions in order as one undo step.
type Batch struct {
	Actions []Action
}

func (Add) isAction()     {}
func (Remove) isAction()  {}
func (Replace) isAction() {}
func (Batch) isAction()   {}

// NewReplace builds a Replace action. Replacing nothing is a programming error.
func NewReplace(removed, added []item.Item) Replace {
	if len(removed) == 0 {
		panic("history: replace with no removed items")
	}
	return Replace{Removed: removed, Added: added}
}

// Invert returns the structural inverse of a.
func Invert(a Action) Action {
	switch a := a.(type) {
	case Add:
		return Remove{Items: a.Items}
	case Remove:
		return Add{Items: a.Items}
	case Replace:
		return Replace{Removed: a.Added, Added: a.Removed}
	case Batch:
		inv := make([]Action, len(a.Actions))
		for i, child := range a.Actions {
			inv[len(a.Actions)-1-i] = Invert(child)
		}
		return Batch{Actions: inv}
	}
	panic("history: unknown action type")
}

// Bounds returns the union of every item bound the action touches, and
// false when it touches nothing.
func Bounds(a Action) (geom.Rect, bool) {
	var acc geom.Accumulator
	Walk(a, func(it item.Item) { acc.Add(it.Bounds()) })
	return acc.Rect()
}

// Walk calls fn for every item an action adds or removes, depth first.
func Walk(a Action, fn func(item.Item)) {
	each := func(items []item.Item) {
		for _, it := range items {
			fn(it)
		}
	}
	switch a := a.(type) {
	case Add:
		each(a.Items)
	case Remove:
		each(a.Items)
	case Replace:
		each(a.Removed)
		each(a.Added)
	case Batch:
		for _, child := range a.Actions {
			Walk(child, fn)
		}
	}
}

// Size counts the items an action touches.
func Size(a Action) int {
	n := 0
	Walk(a, func(item.Item) { n++ })
	return n
}

// Flatten collapses an action list into a single action: nothing for an
// empty list, the element itself for one, a Batch otherwise.
func Flatten(actions []Action) (Action, bool) {
	switch len(actions) {
	case 0:
		return nil, false
	case 1:
		return actions[0], true
	}
	return Batch{Actions: actions}, true
}
