// Package quadtree is the spatial index over canvas items.
//
// Nodes live in a flat arena and refer to their children by index, so the
// whole tree can be copied with two slice copies. The root is always slot 0.
// A node holds up to MaxItems items; past that it splits into four quadrants
// and pushes down every item that fits entirely inside one of them. Items
// straddling a quadrant boundary stay with the parent, and items outside the
// world rectangle stay at the root. Removal never merges nodes back.
package quadtree

import (
	"slices"

	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

const (
	DefaultMaxItems    = 16
	DefaultMaxDepth    = 12
	DefaultWorldExtent = 1e6
)

// World returns the square world rectangle centered on the origin.
func World(extent float64) geom.Rect {
	return geom.Rect{X: -extent, Y: -extent, Width: 2 * extent, Height: 2 * extent}
}

const leaf = -1

type node struct {
	bounds   geom.Rect
	depth    int
	items    []item.Item
	children int // arena index of the first of four children, or leaf
}

// Tree is an arena-backed quadtree. It is not safe for concurrent mutation;
// the canvas model guards it.
type Tree struct {
	nodes    []node
	maxItems int
	maxDepth int
	count    int
}

type Option func(*Tree)

// WithMaxItems sets the per-node capacity before a split.
func WithMaxItems(n int) Option {
	return func(t *Tree) {
		if n > 0 {
			t.maxItems = n
		}
	}
}

// WithMaxDepth caps subdivision depth; nodes at the cap grow without splitting.
func WithMaxDepth(d int) Option {
	return func(t *Tree) {
		if d >= 0 {
			t.maxDepth = d
		}
	}
}

// New creates an empty tree covering world.
func New(world geom.Rect, opts ...Option) *Tree {
	t := &Tree{maxItems: DefaultMaxItems, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(t)
	}
	t.nodes = []node{{bounds: world, children: leaf}}
	return t
}

// Bounds returns the world rectangle.
func (t *Tree) Bounds() geom.Rect { return t.nodes[0].bounds }

// Len returns the number of indexed items.
func (t *Tree) Len() int { return t.count }

// NodeCount returns the number of arena slots in use.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// Reset drops every item and node except an empty root.
func (t *Tree) Reset() {
	t.nodes = []node{{bounds: t.nodes[0].bounds, children: leaf}}
	t.count = 0
}

// Build replaces the whole index with items.
func (t *Tree) Build(items []item.Item) {
	t.Reset()
	for _, it := range items {
		t.Insert(it)
	}
}

// Insert adds it to the index.
func (t *Tree) Insert(it item.Item) {
	b := it.Bounds()
	idx := 0
	for {
		if t.nodes[idx].children != leaf {
			if c := t.childFor(idx, b); c != leaf {
				idx = c
				continue
			}
			t.nodes[idx].items = append(t.nodes[idx].items, it)
			break
		}
		t.nodes[idx].items = append(t.nodes[idx].items, it)
		t.maybeSplit(idx)
		break
	}
	t.count++
}

// childFor returns the child of idx that fully contains b, or leaf.
func (t *Tree) childFor(idx int, b geom.Rect) int {
	first := t.nodes[idx].children
	for c := first; c < first+4; c++ {
		if t.nodes[c].bounds.ContainsRect(b) {
			return c
		}
	}
	return leaf
}

func (t *Tree) maybeSplit(idx int) {
	n := t.nodes[idx]
	if n.children != leaf || len(n.items) <= t.maxItems || n.depth >= t.maxDepth {
		return
	}

	hw, hh := n.bounds.Width/2, n.bounds.Height/2
	first := len(t.nodes)
	for _, q := range [4]geom.Rect{
		{X: n.bounds.X, Y: n.bounds.Y, Width: hw, Height: hh},
		{X: n.bounds.X + hw, Y: n.bounds.Y, Width: n.bounds.Width - hw, Height: hh},
		{X: n.bounds.X, Y: n.bounds.Y + hh, Width: hw, Height: n.bounds.Height - hh},
		{X: n.bounds.X + hw, Y: n.bounds.Y + hh, Width: n.bounds.Width - hw, Height: n.bounds.Height - hh},
	} {
		t.nodes = append(t.nodes, node{bounds: q, depth: n.depth + 1, children: leaf})
	}
	t.nodes[idx].children = first

	kept := make([]item.Item, 0, len(n.items))
	for _, it := range n.items {
		if c := t.childFor(idx, it.Bounds()); c != leaf {
			t.nodes[c].items = append(t.nodes[c].items, it)
			continue
		}
		kept = append(kept, it)
	}
	t.nodes[idx].items = kept

	for c := first; c < first+4; c++ {
		t.maybeSplit(c)
	}
}

// Remove deletes the entry that is the same logical item as it. Only nodes
// whose bounds intersect the item are visited.
func (t *Tree) Remove(it item.Item) bool {
	b := it.Bounds()
	stack := []int{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[idx]
		for i, cand := range n.items {
			if item.Same(cand, it) {
				n.items = slices.Delete(n.items, i, i+1)
				t.count--
				return true
			}
		}
		if n.children == leaf {
			continue
		}
		for c := n.children; c < n.children+4; c++ {
			if t.nodes[c].bounds.Intersects(b) {
				stack = append(stack, c)
			}
		}
	}
	return false
}

// Retrieve appends to out every item whose bounds intersect query.
func (t *Tree) Retrieve(out []item.Item, query geom.Rect) []item.Item {
	stack := []int{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[idx]
		for _, it := range n.items {
			if it.Bounds().Intersects(query) {
				out = append(out, it)
			}
		}
		if n.children == leaf {
			continue
		}
		for c := n.children; c < n.children+4; c++ {
			if t.nodes[c].bounds.Intersects(query) {
				stack = append(stack, c)
			}
		}
	}
	return out
}

// All appends every indexed item to out.
func (t *Tree) All(out []item.Item) []item.Item {
	for i := range t.nodes {
		out = append(out, t.nodes[i].items...)
	}
	return out
}

// HitTest returns the item nearest to (x, y) within tolerance. Equal
// distances go to the highest order, i.e. the most recently added item.
func (t *Tree) HitTest(x, y, tolerance float64) (item.Item, bool) {
	box := geom.Rect{X: x - tolerance, Y: y - tolerance, Width: 2 * tolerance, Height: 2 * tolerance}
	var (
		best     item.Item
		bestDist float64
	)
	for _, cand := range t.Retrieve(nil, box) {
		d := cand.DistanceToPoint(x, y)
		if d > tolerance {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && cand.Order() > best.Order()) {
			best, bestDist = cand, d
		}
	}
	return best, best != nil
}
