package document

import (
	"math"

	"github.com/inkslate/inkslate/backend-go/internal/canvas"
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// NewSampleSnapshot returns the starter content shown in a freshly created
// canvas when the client asks for one: a heading, an underline stroke and a
// link to the help page.
func NewSampleSnapshot(cfg canvas.Config) canvas.Snapshot {
	heading := item.NewText("Untitled note", 48, item.Black,
		geom.Rect{X: 80, Y: 80, Width: 900, Height: 64}, item.AlignLeft, 0, 1)

	// a loose hand-drawn underline
	var wave []item.Sample
	for i := range 40 {
		x := 80 + float64(i)*20
		wave = append(wave, item.Sample{
			X:         x,
			Y:         160 + 4*math.Sin(float64(i)/3),
			Pressure:  0.6 + 0.3*math.Sin(float64(i)/7),
			Timestamp: int64(i) * 8,
		})
	}
	underline := item.NewStroke(wave, item.Black, 3, item.StylePen)

	help := item.NewLink("How to use the eraser", "https://example.com/inkslate/help",
		item.LinkExternal, geom.Rect{X: 80, Y: 200, Width: 400, Height: 40}, 0)

	items := []item.Item{heading, underline, help}
	for i, it := range items {
		items[i] = it.WithOrder(uint64(i + 1))
	}
	return canvas.Snapshot{
		Kind:           cfg.Kind,
		PageWidth:      cfg.PageWidth,
		PageHeight:     cfg.PageHeight,
		Background:     cfg.Background,
		Viewport:       cfg.Viewport.ToAff3(),
		Items:          items,
		OrderHighWater: uint64(len(items)),
	}
}
