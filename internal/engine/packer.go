package engine

import (
	"github.com/piwi3910/uldpack/internal/model"
)

// Packer runs the extreme-point greedy packer over a shared plan. It keeps
// the candidate corner set of every container between calls.
type Packer struct {
	Settings model.Settings

	corners map[int][]model.Vec3
	prefs   map[int]model.Orientation // first orientation to try per item
}

func New(settings model.Settings) *Packer {
	return &Packer{
		Settings: settings,
		corners:  make(map[int][]model.Vec3),
	}
}

// Corners returns the current candidate points of container c.
func (pk *Packer) Corners(c int) []model.Vec3 {
	return pk.corners[c]
}

// Refresh rebuilds the corners of the given containers, or of every
// container when none is given. Call it after the plan was changed outside
// the packer.
func (pk *Packer) Refresh(plan *model.Plan, containers ...int) {
	if len(containers) == 0 {
		containers = allContainers(plan)
	}
	for _, c := range containers {
		pk.corners[c] = RecalculateCorners(plan, c)
	}
}

// fitsWeight reports whether item i fits in the remaining weight budget of c.
func fitsWeight(plan *model.Plan, i, c int) bool {
	return plan.Load(c)+plan.Items[i].Weight <= plan.Containers[c].MaxWeight+model.Eps
}

// collides reports whether box intersects any item of container c other than skip.
func collides(plan *model.Plan, c int, box model.Box, skip int) bool {
	for _, k := range plan.Containers[c].Items {
		if k == skip {
			continue
		}
		if model.Intersects(box, plan.Items[k].Box()) {
			return true
		}
	}
	return false
}

// orientationsFrom returns all orientations with first moved to the front.
func orientationsFrom(first model.Orientation) []model.Orientation {
	out := make([]model.Orientation, 0, len(model.Orientations))
	out = append(out, first)
	for _, o := range model.Orientations {
		if o != first {
			out = append(out, o)
		}
	}
	return out
}

// TryPlace attempts to put item i into container c with its minimum corner at
// point. Orientations are tried in enum order; the first one that stays in
// bounds without touching another item wins. When ProjectOnPlace is set the
// item is then settled down and inwards. On success the item is placed and
// appended to the container list.
func (pk *Packer) TryPlace(plan *model.Plan, i, c int, point model.Vec3) bool {
	it := &plan.Items[i]
	if it.Placed() || point.Negative() {
		return false
	}
	if !fitsWeight(plan, i, c) {
		return false
	}

	first := model.OrientLWH
	if o, ok := pk.prefs[i]; ok {
		first = o
	}
	limit := plan.Containers[c].Size
	for _, o := range orientationsFrom(first) {
		box := model.Box{Min: point, Size: o.Apply(it.Dims)}
		if !box.Within(limit) {
			continue
		}
		if collides(plan, c, box, -1) {
			continue
		}
		if pk.Settings.ProjectOnPlace {
			for _, axis := range model.SettleOrder {
				if to := projectBox(plan, c, box, axis, -1); to >= 0 {
					box.Min[axis] = to
				}
			}
		}
		plan.Place(i, model.Slot{Container: c, Position: box.Min, Orientation: o})
		return true
	}
	return false
}
