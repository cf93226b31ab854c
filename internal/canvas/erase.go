package canvas

import (
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/history"
	"github.com/inkslate/inkslate/backend-go/internal/item"
)

// EraserKind selects how an eraser stroke affects content.
type EraserKind string

const (
	// EraserStroke deletes every item the eraser path touches.
	EraserStroke EraserKind = "stroke"
	// EraserLasso deletes items entirely enclosed by the eraser path.
	EraserLasso EraserKind = "lasso"
	// EraserStandard cuts strokes where the eraser passes, leaving the rest.
	EraserStandard EraserKind = "standard"
)

// erasePlan is one prospective change computed under the shared lock.
// pieces is nil for whole-item deletion; for a cut it holds the surviving
// uncommitted pieces, possibly none.
type erasePlan struct {
	target item.Item
	cut    bool
	pieces []*item.Stroke
}

// Erase applies an eraser stroke and returns the region that changed, or
// false when nothing did.
//
// It runs in two phases. First, under the shared lock, it queries the index
// and works out what would change without touching any state. Then, under
// the exclusive lock, it applies that plan: targets removed by a concurrent
// writer in between are skipped, and cut pieces receive their orders only
// now, so a no-op erase never consumes orders. The exclusive hold therefore
// scales with the number of changed items, not with the number of
// candidates scanned.
func (m *Model) Erase(eraser *item.Stroke, kind EraserKind) (geom.Rect, bool) {
	if eraser == nil || len(eraser.Points) == 0 {
		return geom.Rect{}, false
	}

	m.mu.RLock()
	plans := m.planErase(eraser, kind)
	m.mu.RUnlock()

	if len(plans) == 0 {
		return geom.Rect{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyErase(plans)
}

// applyErase commits a plan made under an earlier shared lock. Caller must
// hold the write lock. A target counts as present only if the very item
// planned against is still stored: orders restart after Clear and may be
// reused by SetLoadedState, so an order match alone proves nothing.
func (m *Model) applyErase(plans []erasePlan) (geom.Rect, bool) {
	var (
		actions []history.Action
		removed []item.Item
		skipped int
	)
	for _, p := range plans {
		if stored, ok := m.items[p.target.Order()]; !ok || stored != p.target {
			skipped++
			continue
		}
		if !p.cut {
			removed = append(removed, p.target)
			continue
		}
		added := make([]item.Item, len(p.pieces))
		for i, piece := range p.pieces {
			added[i] = piece.WithOrder(m.nextOrder())
		}
		actions = append(actions, history.NewReplace([]item.Item{p.target}, added))
	}
	if len(removed) > 0 {
		actions = append(actions, history.Remove{Items: removed})
	}
	if skipped > 0 {
		m.logger.Debug("erase skipped stale targets", "skipped", skipped)
	}

	a, ok := history.Flatten(actions)
	if !ok {
		return geom.Rect{}, false
	}
	return m.commit(a)
}

// planErase computes the prospective changes. Caller must hold at least
// the shared lock; nothing is mutated.
func (m *Model) planErase(eraser *item.Stroke, kind EraserKind) []erasePlan {
	candidates := m.index.Retrieve(nil, eraser.Bounds())
	if len(candidates) == 0 {
		return nil
	}

	var plans []erasePlan
	switch kind {
	case EraserStroke:
		path := eraser.PathPoints()
		centroid, _ := geom.Centroid(path)
		for _, cand := range candidates {
			if touchedByEraser(cand, eraser, path, centroid) {
				plans = append(plans, erasePlan{target: cand})
			}
		}

	case EraserLasso:
		poly := eraser.LassoPolygon()
		if len(poly) < 3 {
			return nil
		}
		for _, cand := range candidates {
			if geom.AllInPolygon(item.DefiningPoints(cand), poly) {
				plans = append(plans, erasePlan{target: cand})
			}
		}

	case EraserStandard:
		for _, cand := range candidates {
			s, ok := cand.(*item.Stroke)
			if !ok {
				continue
			}
			pieces := item.SplitStroke(s, eraser)
			if len(pieces) == 1 && pieces[0] == s {
				continue
			}
			plans = append(plans, erasePlan{target: cand, cut: true, pieces: pieces})
		}

	default:
		m.logger.Warn("unknown eraser kind", "kind", kind)
	}
	return plans
}

// touchedByEraser decides whole-item deletion for the stroke eraser.
// Images only test whether the eraser's centroid falls on them.
func touchedByEraser(cand item.Item, eraser *item.Stroke, path []geom.Point, centroid geom.Point) bool {
	switch v := cand.(type) {
	case *item.Stroke:
		return eraser.Intersects(v)
	case *item.Image:
		return v.DistanceToPoint(centroid.X, centroid.Y) == 0
	default:
		reach := eraser.Width / 2
		for _, p := range path {
			if cand.DistanceToPoint(p.X, p.Y) <= reach {
				return true
			}
		}
		return false
	}
}
