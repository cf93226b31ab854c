package item

import (
	"testing"

	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/typeid"
)

func line(xy ...float64) []Sample {
	out := make([]Sample, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, Sample{X: xy[i], Y: xy[i+1], Pressure: 1})
	}
	return out
}

func hline(x0, x1, step, y float64) []Sample {
	var out []Sample
	for x := x0; x <= x1; x += step {
		out = append(out, Sample{X: x, Y: y})
	}
	return out
}

func TestStrokeBoundsIncludeStyleOvershoot(t *testing.T) {
	pen := NewStroke(line(0, 0, 10, 0), Black, 2, StylePen)
	if got, want := pen.Bounds(), (geom.Rect{X: -1, Y: -1, Width: 12, Height: 2}); got != want {
		t.Fatalf("pen bounds = %v, want %v", got, want)
	}
	charcoal := NewStroke(line(0, 0, 10, 0), Black, 2, StyleCharcoal)
	if !charcoal.Bounds().ContainsRect(pen.Bounds()) || charcoal.Bounds() == pen.Bounds() {
		t.Fatalf("charcoal bounds %v should strictly enclose pen bounds %v", charcoal.Bounds(), pen.Bounds())
	}
}

func TestDistanceToPoint(t *testing.T) {
	s := NewStroke(line(0, 0, 10, 0), Black, 2, StylePen)
	img := NewImage("asset://a", geom.Rect{X: 0, Y: 0, Width: 10, Height: 10}, 45, 1)
	cases := []struct {
		name string
		it   Item
		x, y float64
		want float64
	}{
		{"on stroke", s, 5, 0.5, 0},
		{"beside stroke", s, 5, 4, 3},
		{"image center", img, 5, 5, 0},
		// rotated 45°, the unrotated corner (0.5,0.5) falls outside the diamond
		{"rotated corner", img, 0.5, 0.5, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.it.DistanceToPoint(tc.x, tc.y)
			if tc.want < 0 {
				if got <= 0 {
					t.Errorf("DistanceToPoint = %v, want > 0", got)
				}
				return
			}
			if got != tc.want {
				t.Errorf("DistanceToPoint = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSame(t *testing.T) {
	a := NewStroke(line(0, 0, 1, 1), Black, 1, StylePen)
	b := NewStroke(line(0, 0, 1, 1), Black, 1, StylePen)
	c := NewStroke(line(0, 0, 2, 2), Black, 1, StylePen)

	if !Same(a, b) {
		t.Error("structurally equal uncommitted strokes should be the same")
	}
	if Same(a, c) {
		t.Error("different uncommitted strokes reported the same")
	}
	ca, cc := a.WithOrder(7), c.WithOrder(7)
	if !Same(ca, cc) {
		t.Error("equal orders must mean the same entity")
	}
	if Same(ca, a) {
		t.Error("committed and uncommitted copies must differ")
	}
	if Same(a, NewImage("x", geom.Rect{}, 0, 1)) {
		t.Error("different kinds reported the same")
	}
}

func TestWithOrderCopies(t *testing.T) {
	s := NewStroke(line(0, 0, 1, 1), Black, 1, StylePen)
	c := s.WithOrder(3)
	if s.Order() != 0 || c.Order() != 3 {
		t.Fatalf("orders = %d, %d", s.Order(), c.Order())
	}
	if c.Bounds() != s.Bounds() {
		t.Fatal("copy lost bounds")
	}
}

func TestSplitStrokeNoOp(t *testing.T) {
	target := NewStroke(hline(0, 100, 10, 0), Black, 2, StylePen)
	eraser := NewStroke(line(0, 50, 100, 50), Black, 4, StylePen)
	got := SplitStroke(target, eraser)
	if len(got) != 1 || got[0] != target {
		t.Fatalf("SplitStroke with distant eraser = %v, want identity", got)
	}
}

func TestSplitStrokeCutsMiddle(t *testing.T) {
	target := NewStroke(hline(0, 100, 10, 0), Black, 2, StylePen)
	eraser := NewStroke(line(50, -20, 50, 20), Black, 4, StylePen)

	got := SplitStroke(target, eraser)
	if len(got) != 2 {
		t.Fatalf("got %d pieces, want 2", len(got))
	}
	if n := len(got[0].Points); n != 5 || got[0].Points[n-1].X != 40 {
		t.Errorf("left piece = %v", got[0].Points)
	}
	if got[1].Points[0].X != 60 || len(got[1].Points) != 5 {
		t.Errorf("right piece = %v", got[1].Points)
	}
	for _, p := range got {
		if p.Order() != 0 {
			t.Error("pieces must be uncommitted")
		}
		if p.Width != target.Width || p.Style != target.Style {
			t.Error("pieces must keep the pen")
		}
	}
}

func TestSplitStrokeDropsShortRuns(t *testing.T) {
	// Erasing everything but the first point leaves a single-point run.
	target := NewStroke(hline(0, 30, 10, 0), Black, 1, StylePen)
	eraser := NewStroke(line(8, 0, 40, 0), Black, 4, StylePen)
	if got := SplitStroke(target, eraser); len(got) != 0 {
		t.Fatalf("got %d pieces, want none", len(got))
	}
}

func TestDefiningPoints(t *testing.T) {
	txt := NewText("hello", 12, Black, geom.Rect{X: 0, Y: 0, Width: 10, Height: 5}, AlignLeft, 0, 1)
	if pts := DefiningPoints(txt); len(pts) != 4 {
		t.Fatalf("text defining points = %v", pts)
	}
	s := NewStroke(line(0, 0, 1, 1, 2, 2), Black, 1, StylePen)
	if pts := DefiningPoints(s); len(pts) != 3 {
		t.Fatalf("stroke defining points = %v", pts)
	}
}

func TestTextLines(t *testing.T) {
	// 10 glyphs fit per line at 10pt in 60 units.
	txt := NewText("the quick brown fox\njumps", 10, Black, geom.Rect{Width: 60, Height: 40}, AlignLeft, 0, 1)
	got := txt.Lines()
	want := []string{"the quick", "brown fox", "jumps"}
	if len(got) != len(want) {
		t.Fatalf("Lines() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Lines() = %q, want %q", got, want)
		}
	}
}

func TestLinkValidate(t *testing.T) {
	r := geom.Rect{Width: 10, Height: 10}
	cases := []struct {
		name string
		link *Link
		ok   bool
	}{
		{"internal note", NewLink("n", typeid.NewNoteID(), LinkInternal, r, 0), true},
		{"internal bad prefix", NewLink("n", typeid.NewCanvasID(), LinkInternal, r, 0), false},
		{"external", NewLink("u", "https://example.com/page", LinkExternal, r, 0), true},
		{"external relative", NewLink("u", "/page", LinkExternal, r, 0), false},
		{"unknown kind", NewLink("u", "x", LinkKind("ftp"), r, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.link.Validate()
			if (err == nil) != tc.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestRenderPathCached(t *testing.T) {
	s := NewStroke(line(0, 0, 10, 10, 20, 0, 30, 10), Black, 1, StylePen)
	first := s.Outline()
	if len(first) < 4 {
		t.Fatalf("outline too short: %v", first)
	}
	c := s.WithOrder(1).(*Stroke)
	if &c.Outline()[0] != &first[0] {
		t.Error("committed copy should share the render cache")
	}
}
