package engine

import (
	"sort"

	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/model"
)

// maxRenormalizeRounds bounds the renormalize fixpoint loop.
const maxRenormalizeRounds = 1000

// PushLimits maps an item index to how far it can move away from the origin
// on each axis, together with everything in front of it, without leaving
// the container.
type PushLimits map[int]model.Vec3

// pushEvent is one end of an item's interval on an axis.
type pushEvent struct {
	pos   float64
	start bool
	item  int
}

// CalculatePushLimits sweeps every axis of container c from the far wall
// towards the origin. A running ceiling starts at the container extent; each
// start event lowers it to the item's own pushed start, each end event gives
// the item a limit of ceiling minus its end. At equal coordinates start
// events come first so that touching neighbours bound one another.
func CalculatePushLimits(plan *model.Plan, c int) PushLimits {
	cont := &plan.Containers[c]
	limits := make(PushLimits, len(cont.Items))
	for _, axis := range model.Axes {
		events := make([]pushEvent, 0, 2*len(cont.Items))
		for _, i := range cont.Items {
			b := plan.Items[i].Box()
			events = append(events,
				pushEvent{pos: b.Min[axis], start: true, item: i},
				pushEvent{pos: b.Min[axis] + b.Size[axis], item: i},
			)
		}
		sort.SliceStable(events, func(a, b int) bool {
			if events[a].pos != events[b].pos {
				return events[a].pos > events[b].pos
			}
			return events[a].start && !events[b].start
		})

		ceiling := cont.Size[axis]
		done := make(map[int]bool, len(cont.Items))
		for _, ev := range events {
			lim := limits[ev.item]
			if !ev.start {
				lim[axis] = ceiling - ev.pos
				limits[ev.item] = lim
				done[ev.item] = true
				continue
			}
			if !done[ev.item] {
				// zero extent: the end event sorts after the start
				lim[axis] = ceiling - ev.pos
				limits[ev.item] = lim
				done[ev.item] = true
			}
			if v := ev.pos + lim[axis]; v < ceiling {
				ceiling = v
			}
		}
	}
	return limits
}

// pushed returns box moved away from the origin by lim on every axis where
// its minimum is at or past pivot.
func pushed(box model.Box, lim, pivot model.Vec3) model.Box {
	for _, axis := range model.Axes {
		if box.Min[axis] >= pivot[axis]-model.Eps {
			box.Min[axis] += lim[axis]
		}
	}
	return box
}

// PushOut moves every item of container c by its push limit on each axis
// where it starts at or beyond pivot.
func PushOut(plan *model.Plan, c int, pivot model.Vec3, limits PushLimits) {
	for _, i := range plan.Containers[c].Items {
		s := plan.Items[i].Slot
		s.Position = pushed(plan.Items[i].Box(), limits[i], pivot).Min
	}
}

// PushOutAndInsert tries to make room for item i at pivot by virtually
// pushing everything at or beyond pivot outwards. If the item fits in some
// orientation against the pushed layout, the push is committed, the item
// placed and the container renormalized. Otherwise nothing changes.
func PushOutAndInsert(plan *model.Plan, c, i int, pivot model.Vec3, limits PushLimits) bool {
	it := &plan.Items[i]
	if it.Placed() || pivot.Negative() {
		return false
	}
	if !fitsWeight(plan, i, c) {
		return false
	}
	limit := plan.Containers[c].Size
	for _, o := range model.Orientations {
		box := model.Box{Min: pivot, Size: o.Apply(it.Dims)}
		if !box.Within(limit) {
			continue
		}
		valid := true
		for _, k := range plan.Containers[c].Items {
			if model.Intersects(box, pushed(plan.Items[k].Box(), limits[k], pivot)) {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}
		PushOut(plan, c, pivot, limits)
		plan.Place(i, model.Slot{Container: c, Position: pivot, Orientation: o})
		Renormalize(plan, c)
		return true
	}
	return false
}

// Renormalize compacts container c towards the origin. Per axis, items are
// visited in position order and slid back to the largest far face of the
// already visited items whose footprint overlaps theirs. Rounds repeat until
// nothing moves. It returns the number of moves made.
func Renormalize(plan *model.Plan, c int) int {
	order := append([]int(nil), plan.Containers[c].Items...)
	moves := 0
	for round := 0; round < maxRenormalizeRounds; round++ {
		moved := false
		for _, axis := range model.Axes {
			sort.SliceStable(order, func(a, b int) bool {
				return plan.Items[order[a]].Slot.Position[axis] < plan.Items[order[b]].Slot.Position[axis]
			})
			a1, a2 := axis.Others()
			for n, i := range order {
				box := plan.Items[i].Box()
				floor := 0.0
				for _, k := range order[:n] {
					other := plan.Items[k].Box()
					if !model.OverlapsOn(box, other, a1) || !model.OverlapsOn(box, other, a2) {
						continue
					}
					if far := other.Min[axis] + other.Size[axis]; far > floor {
						floor = far
					}
				}
				if box.Min[axis] > floor+model.Eps {
					plan.Items[i].Slot.Position[axis] = floor
					moved = true
					moves++
				}
			}
		}
		if !moved {
			return moves
		}
	}
	glog.Warningf("renormalize: container %s did not settle after %d rounds", plan.Containers[c].ID, maxRenormalizeRounds)
	return moves
}

// InflateAndReplace swaps the unplaced item newItem in for the placed item
// incumbent of container c. Both must share the priority class and newItem
// must cost at least as much; in greedy mode it must also be at least as
// large. The incumbent is taken out, push limits are recomputed and newItem
// is push-inserted at the incumbent's position. On success the incumbent is
// left unplaced and newItem takes its slot in the container list; on failure
// the container is restored exactly.
func InflateAndReplace(plan *model.Plan, c, newItem, incumbent int, greedy bool) bool {
	nw, inc := &plan.Items[newItem], &plan.Items[incumbent]
	if nw.Placed() || inc.Slot == nil || inc.Slot.Container != c {
		return false
	}
	if nw.Priority != inc.Priority || nw.Cost < inc.Cost {
		return false
	}
	if greedy && nw.Volume() < inc.Volume() {
		return false
	}

	saved := append([]int(nil), plan.Containers[c].Items...)
	slots := make(map[int]model.Slot, len(saved))
	at := -1
	for n, k := range saved {
		slots[k] = *plan.Items[k].Slot
		if k == incumbent {
			at = n
		}
	}
	pivot := inc.Slot.Position

	plan.Unplace(incumbent)
	limits := CalculatePushLimits(plan, c)
	if PushOutAndInsert(plan, c, newItem, pivot, limits) {
		list := append([]int(nil), saved...)
		list[at] = newItem
		plan.Containers[c].Items = list
		glog.V(3).Infof("inflate: %s replaced %s in %s", nw.ID, inc.ID, plan.Containers[c].ID)
		return true
	}

	for k, s := range slots {
		s := s
		plan.Items[k].Slot = &s
	}
	plan.Containers[c].Items = saved
	return false
}
