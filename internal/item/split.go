package item

import "github.com/inkslate/inkslate/backend-go/internal/geom"

// SplitStroke cuts target where the eraser passes over it. A point is erased
// when it lies within the combined half-widths of the two strokes. The
// surviving runs become new uncommitted strokes; runs shorter than two points
// are dropped. If nothing is erased the result is exactly []*Stroke{target},
// so callers can detect a no-op by pointer.
func SplitStroke(target, eraser *Stroke) []*Stroke {
	if !target.Bounds().Intersects(eraser.Bounds()) {
		return []*Stroke{target}
	}
	radius := (eraser.Width + target.Width) / 2
	mask, erased := geom.ErasedMask(target.PathPoints(), eraser.PathPoints(), radius)
	if !erased {
		return []*Stroke{target}
	}

	var pieces []*Stroke
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= 2 {
			run := make([]Sample, end-start)
			copy(run, target.Points[start:end])
			pieces = append(pieces, NewStroke(run, target.Color, target.Width, target.Style).SetZIndex(target.zIndex))
		}
		start = -1
	}
	for i, gone := range mask {
		if gone {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(mask))
	return pieces
}
