package engine

import (
	"github.com/piwi3910/uldpack/internal/model"
)

// projectBox returns the coordinate box would settle at when moved towards
// the origin along axis: the largest far face among the items of container c
// that lie entirely behind box and share footprint area with it. It returns
// -1 when nothing is behind, in which case the box stays where it is.
func projectBox(plan *model.Plan, c int, box model.Box, axis model.Axis, skip int) float64 {
	best := -1.0
	fp := box.Footprint(axis)
	for _, k := range plan.Containers[c].Items {
		if k == skip {
			continue
		}
		other := plan.Items[k].Box()
		far := other.Min[axis] + other.Size[axis]
		if box.Min[axis] < far-model.Eps {
			continue
		}
		if model.RectOverlapArea(fp, other.Footprint(axis)) <= 0 {
			continue
		}
		if far > best {
			best = far
		}
	}
	return best
}

// Project moves placed item i towards the origin along axis until it rests on
// a blocker. An item with nothing behind it is left alone. It reports whether
// the item moved.
func Project(plan *model.Plan, i int, axis model.Axis) bool {
	it := &plan.Items[i]
	if it.Slot == nil {
		return false
	}
	to := projectBox(plan, it.Slot.Container, it.Box(), axis, i)
	if to < 0 || model.Approx(to, it.Slot.Position[axis]) {
		return false
	}
	it.Slot.Position[axis] = to
	return true
}

// Settle projects every item of container c down, then inwards along y and x,
// in list order. It returns the number of moves.
func Settle(plan *model.Plan, c int) int {
	moves := 0
	for _, i := range plan.Containers[c].Items {
		for _, axis := range model.SettleOrder {
			if Project(plan, i, axis) {
				moves++
			}
		}
	}
	return moves
}

// SettleAll settles every container of the plan.
func SettleAll(plan *model.Plan) int {
	moves := 0
	for c := range plan.Containers {
		moves += Settle(plan, c)
	}
	return moves
}
