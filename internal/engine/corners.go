package engine

import (
	"sort"

	"github.com/piwi3910/uldpack/internal/model"
)

var origin = model.Vec3{}

// slide moves point p towards the origin along axis and returns where it
// stops: the largest far face of an item of container c whose cross-section
// contains p and which lies behind p. It returns 0 when nothing blocks.
func slide(plan *model.Plan, c int, axis model.Axis, p model.Vec3) float64 {
	a1, a2 := axis.Others()
	best := 0.0
	for _, k := range plan.Containers[c].Items {
		b := plan.Items[k].Box()
		max := b.Max()
		if p[a1] < b.Min[a1] || p[a1] >= max[a1] {
			continue
		}
		if p[a2] < b.Min[a2] || p[a2] >= max[a2] {
			continue
		}
		if max[axis] <= p[axis] && max[axis] > best {
			best = max[axis]
		}
	}
	return best
}

// NewCorners returns the extreme points created by placed item i: its three
// far corners adjacent to the minimum corner, plus six projections of those
// corners back onto the current occupancy.
func NewCorners(plan *model.Plan, i int) []model.Vec3 {
	it := &plan.Items[i]
	if it.Slot == nil {
		return nil
	}
	c := it.Slot.Container
	p := it.Slot.Position
	d := it.Size()
	x, y, z := p[0], p[1], p[2]
	dx, dy, dz := d[0], d[1], d[2]

	return []model.Vec3{
		{slide(plan, c, model.AxisX, model.Vec3{x, y + dy, z}), y + dy, z},
		{x, y + dy, slide(plan, c, model.AxisZ, model.Vec3{x, y + dy, z})},
		{slide(plan, c, model.AxisX, model.Vec3{x, y, z + dz}), y, z + dz},
		{x, slide(plan, c, model.AxisY, model.Vec3{x, y, z + dz}), z + dz},
		{x + dx, slide(plan, c, model.AxisY, model.Vec3{x + dx, y, z}), z},
		{x + dx, y, slide(plan, c, model.AxisZ, model.Vec3{x + dx, y, z})},
		{x + dx, y, z},
		{x, y + dy, z},
		{x, y, z + dz},
	}
}

// RecalculateCorners rebuilds the corner set of container c from scratch:
// the origin plus the extreme points of every item.
func RecalculateCorners(plan *model.Plan, c int) []model.Vec3 {
	corners := []model.Vec3{origin}
	for _, i := range plan.Containers[c].Items {
		corners = append(corners, NewCorners(plan, i)...)
	}
	return tidyCorners(plan.Containers[c].Size, corners)
}

// tidyCorners drops duplicates and points on or beyond the far walls, then
// orders the rest nearest to the origin first.
func tidyCorners(limit model.Vec3, corners []model.Vec3) []model.Vec3 {
	seen := make(map[model.Vec3]bool, len(corners))
	out := corners[:0]
	for _, p := range corners {
		p = p.Snap()
		if seen[p] || p.Negative() {
			continue
		}
		if p[0] >= limit[0]-model.Eps || p[1] >= limit[1]-model.Eps || p[2] >= limit[2]-model.Eps {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sortCorners(out)
	return out
}

// sortCorners orders points by Euclidean distance to the origin, ties broken
// by height then width.
func sortCorners(corners []model.Vec3) {
	sort.SliceStable(corners, func(a, b int) bool {
		da, db := corners[a].Norm(), corners[b].Norm()
		if da != db {
			return da < db
		}
		if corners[a][2] != corners[b][2] {
			return corners[a][2] < corners[b][2]
		}
		return corners[a][1] < corners[b][1]
	})
}
