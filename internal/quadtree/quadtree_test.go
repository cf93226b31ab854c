package quadtree

import (
	"cmp"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

func box(order uint64, x, y, w, h float64) item.Item {
	return item.NewImage("asset://test", geom.Rect{X: x, Y: y, Width: w, Height: h}, 0, 1).WithOrder(order)
}

func orders(items []item.Item) []uint64 {
	out := make([]uint64, len(items))
	for i, it := range items {
		out[i] = it.Order()
	}
	slices.Sort(out)
	return out
}

func bruteForce(items []item.Item, q geom.Rect) []uint64 {
	var hits []item.Item
	for _, it := range items {
		if it.Bounds().Intersects(q) {
			hits = append(hits, it)
		}
	}
	return orders(hits)
}

func TestSubdivides(t *testing.T) {
	tr := New(World(1000), WithMaxItems(4))
	for i := range 20 {
		tr.Insert(box(uint64(i+1), float64(i*40)-400, float64(i*40)-400, 5, 5))
	}
	if tr.Len() != 20 {
		t.Fatalf("Len = %d, want 20", tr.Len())
	}
	if tr.NodeCount() <= 1 {
		t.Fatal("tree never subdivided")
	}
}

func TestStraddlerStaysAtParent(t *testing.T) {
	tr := New(World(100), WithMaxItems(1))
	across := box(1, -5, -5, 10, 10) // straddles the root center
	tr.Insert(across)
	tr.Insert(box(2, 50, 50, 1, 1))
	tr.Insert(box(3, -50, -50, 1, 1))

	if got := tr.nodes[0].items; len(got) != 1 || got[0].Order() != 1 {
		t.Fatalf("root items = %v, want only the straddler", orders(got))
	}
	if !tr.Remove(across) {
		t.Fatal("Remove(straddler) = false")
	}
}

func TestOutOfWorldItemsStayQueryable(t *testing.T) {
	tr := New(World(100), WithMaxItems(1))
	far := box(1, 5000, 5000, 10, 10)
	tr.Insert(far)
	tr.Insert(box(2, 1, 1, 1, 1))
	tr.Insert(box(3, -2, -2, 1, 1))

	got := tr.Retrieve(nil, geom.Rect{X: 4990, Y: 4990, Width: 30, Height: 30})
	if len(got) != 1 || got[0].Order() != 1 {
		t.Fatalf("Retrieve far = %v", orders(got))
	}
	if !tr.Remove(far) {
		t.Fatal("Remove(far) = false")
	}
}

func TestRemoveByIdentity(t *testing.T) {
	tr := New(World(100))
	a := box(1, 0, 0, 10, 10)
	tr.Insert(a)
	tr.Insert(box(2, 0, 0, 10, 10))

	if !tr.Remove(box(1, 0, 0, 10, 10)) {
		t.Fatal("removal by order failed")
	}
	if tr.Remove(a) {
		t.Fatal("second removal succeeded")
	}
	if got := orders(tr.All(nil)); !slices.Equal(got, []uint64{2}) {
		t.Fatalf("remaining = %v", got)
	}
}

func TestRemoveUncommittedStructural(t *testing.T) {
	tr := New(World(100))
	tr.Insert(item.NewImage("a", geom.Rect{Width: 1, Height: 1}, 0, 1))
	if !tr.Remove(item.NewImage("a", geom.Rect{Width: 1, Height: 1}, 0, 1)) {
		t.Fatal("structural removal failed")
	}
	if tr.Len() != 0 {
		t.Fatalf("Len = %d", tr.Len())
	}
}

func TestHitTestPrefersNewest(t *testing.T) {
	tr := New(World(100))
	tr.Insert(box(1, 0, 0, 10, 10))
	tr.Insert(box(5, 0, 0, 10, 10))
	tr.Insert(box(3, 0, 0, 10, 10))

	got, ok := tr.HitTest(5, 5, 1)
	if !ok || got.Order() != 5 {
		t.Fatalf("HitTest = %v, %v; want order 5", got, ok)
	}
	if _, ok := tr.HitTest(50, 50, 1); ok {
		t.Fatal("HitTest on empty area returned an item")
	}
}

func TestHitTestPrefersNearest(t *testing.T) {
	tr := New(World(100))
	near := item.NewStroke([]item.Sample{{X: 0, Y: 0}, {X: 10, Y: 0}}, item.Black, 1, item.StylePen).WithOrder(1)
	far := item.NewStroke([]item.Sample{{X: 0, Y: 3}, {X: 10, Y: 3}}, item.Black, 1, item.StylePen).WithOrder(2)
	tr.Insert(near)
	tr.Insert(far)

	got, ok := tr.HitTest(5, 1, 4)
	if !ok || got.Order() != 1 {
		t.Fatalf("HitTest = %v; want the nearer stroke", got)
	}
}

func genRect(t *rapid.T, label string) geom.Rect {
	return geom.Rect{
		X:      rapid.Float64Range(-1200, 1200).Draw(t, label+".x"),
		Y:      rapid.Float64Range(-1200, 1200).Draw(t, label+".y"),
		Width:  rapid.Float64Range(0, 300).Draw(t, label+".w"),
		Height: rapid.Float64Range(0, 300).Draw(t, label+".h"),
	}
}

// Retrieve must agree with a linear scan for any query, including empty
// and whole-world rectangles.
func TestRetrieveMatchesBruteForce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := New(World(1000),
			WithMaxItems(rapid.IntRange(1, 8).Draw(t, "maxItems")),
			WithMaxDepth(rapid.IntRange(1, 8).Draw(t, "maxDepth")))

		n := rapid.IntRange(0, 200).Draw(t, "n")
		items := make([]item.Item, 0, n)
		for i := range n {
			r := genRect(t, "item")
			it := box(uint64(i+1), r.X, r.Y, r.Width, r.Height)
			items = append(items, it)
			tr.Insert(it)
		}

		// remove a random subset
		kept := items[:0:0]
		for _, it := range items {
			if rapid.Bool().Draw(t, "remove") {
				if !tr.Remove(it) {
					t.Fatalf("Remove(%d) = false", it.Order())
				}
				continue
			}
			kept = append(kept, it)
		}

		queries := []geom.Rect{
			{},
			tr.Bounds(),
			World(5000),
			genRect(t, "query"),
		}
		for _, q := range queries {
			got := orders(tr.Retrieve(nil, q))
			want := bruteForce(kept, q)
			if !slices.Equal(got, want) {
				t.Fatalf("Retrieve(%v) = %v, want %v", q, got, want)
			}
		}
		if tr.Len() != len(kept) {
			t.Fatalf("Len = %d, want %d", tr.Len(), len(kept))
		}
	})
}

func TestBuildReplacesContent(t *testing.T) {
	tr := New(World(100))
	tr.Insert(box(9, 0, 0, 1, 1))
	tr.Build([]item.Item{box(1, 0, 0, 1, 1), box(2, 5, 5, 1, 1)})
	got := tr.All(nil)
	slices.SortFunc(got, func(a, b item.Item) int { return cmp.Compare(a.Order(), b.Order()) })
	if len(got) != 2 || got[0].Order() != 1 || got[1].Order() != 2 {
		t.Fatalf("All after Build = %v", orders(got))
	}
}
