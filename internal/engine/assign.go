package engine

import (
	"context"
	"math"
	"sort"

	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/model"
)

// Pack fills the plan from its current state using the configured algorithm.
// Items already placed keep their container unless a costlier item
// displaces them.
func (pk *Packer) Pack(ctx context.Context, plan *model.Plan) {
	if pk.Settings.Algorithm == model.AlgorithmGenetic {
		best := OptimizeGenetic(ctx, pk.Settings, DefaultGeneticConfig(), plan)
		*plan = *best
		return
	}
	pk.AssignBatch(ctx, plan, plan.Unplaced(), allContainers(plan))
}

func allContainers(plan *model.Plan) []int {
	cs := make([]int, len(plan.Containers))
	for c := range cs {
		cs[c] = c
	}
	return cs
}

// AssignBatch packs the given unplaced items into the given containers.
// Items are ordered priority first (by volume) then by cost density, and
// containers by the configured order. An item that fits nowhere stays
// unplaced.
func (pk *Packer) AssignBatch(ctx context.Context, plan *model.Plan, items, containers []int) {
	order := append([]int(nil), items...)
	SortForAssignment(plan, order)
	cs := OrderContainers(plan, containers, pk.Settings.ContainerOrder)
	pk.assignOrdered(ctx, plan, order, cs)
}

// assignOrdered runs the phased fill on an already ordered item list:
// an assignment sweep over the priority containers, a fitting pass of the
// swept items over all containers, the same for the remaining containers,
// a final pass over whatever is still unplaced, then a settle.
func (pk *Packer) assignOrdered(ctx context.Context, plan *model.Plan, order, cs []int) {
	for _, c := range cs {
		pk.corners[c] = RecalculateCorners(plan, c)
	}

	np := pk.Settings.PriorityContainers
	if np > len(cs) {
		np = len(cs)
	}
	if np < 0 {
		np = 0
	}

	phases := []struct {
		name  string
		sweep []int
	}{
		{"priority", cs[:np]},
		{"normal", cs[np:]},
	}
	for _, ph := range phases {
		if len(ph.sweep) == 0 {
			continue
		}
		taken := pk.sweep(ctx, plan, order, ph.sweep)
		SortForFitting(plan, taken)
		placed := pk.fitContainers(ctx, plan, taken, cs)
		glog.V(1).Infof("assign: %s sweep took %d items, %d placed", ph.name, len(taken), placed)
	}

	var rest []int
	for _, i := range order {
		if !plan.Items[i].Placed() {
			rest = append(rest, i)
		}
	}
	SortForFitting(plan, rest)
	placed := pk.fitContainers(ctx, plan, rest, cs)
	glog.V(1).Infof("assign: remaining pass placed %d of %d items", placed, len(rest))

	for _, c := range cs {
		Settle(plan, c)
	}
}

// sweep runs a trial fill of containers on a scratch copy of the plan and
// returns the items it managed to place. The plan itself is left untouched.
func (pk *Packer) sweep(ctx context.Context, plan *model.Plan, order, containers []int) []int {
	scratch := plan.Clone()
	var taken []int
	for _, c := range containers {
		corners := append([]model.Vec3(nil), pk.corners[c]...)
		_, got := pk.fit(ctx, scratch, order, c, corners)
		taken = append(taken, got...)
	}
	return taken
}

// fit places as many of items as possible into container c, trying the
// corners nearest the origin first. Each placement consumes its corner and
// adds the item's extreme points. It returns the updated corners and the
// placed items.
func (pk *Packer) fit(ctx context.Context, plan *model.Plan, items []int, c int, corners []model.Vec3) ([]model.Vec3, []int) {
	var taken []int
	limit := plan.Containers[c].Size
	for _, i := range items {
		if ctx.Err() != nil {
			break
		}
		if plan.Items[i].Placed() {
			continue
		}
		for k, p := range corners {
			if !pk.TryPlace(plan, i, c, p) {
				continue
			}
			corners = append(corners[:k:k], corners[k+1:]...)
			corners = tidyCorners(limit, append(corners, NewCorners(plan, i)...))
			taken = append(taken, i)
			break
		}
	}
	return corners, taken
}

// fitContainers fits items into each container in turn. After each container
// the still unplaced items may displace a cheaper, smaller item of any
// container filled so far. It returns the number of items placed by the
// corner fit.
func (pk *Packer) fitContainers(ctx context.Context, plan *model.Plan, items, cs []int) int {
	placed := 0
	for ii, c := range cs {
		if ctx.Err() != nil {
			glog.V(1).Infof("assign: stopping early: %v", ctx.Err())
			break
		}
		var got []int
		pk.corners[c], got = pk.fit(ctx, plan, items, c, pk.corners[c])
		placed += len(got)

		for _, i := range items {
			if plan.Items[i].Placed() {
				continue
			}
			for _, cj := range cs[:ii+1] {
				if replaceAny(plan, cj, i, true) {
					pk.corners[cj] = RecalculateCorners(plan, cj)
					break
				}
			}
		}
	}
	return placed
}

// replaceAny tries InflateAndReplace of item i against every item of c.
func replaceAny(plan *model.Plan, c, i int, greedy bool) bool {
	incumbents := append([]int(nil), plan.Containers[c].Items...)
	for _, k := range incumbents {
		if InflateAndReplace(plan, c, i, k, greedy) {
			return true
		}
	}
	return false
}

// Reinsert offers every unplaced item to every container through
// inflate-and-replace without the volume rule, then settles the plan.
// It returns the number of successful replacements.
func (pk *Packer) Reinsert(ctx context.Context, plan *model.Plan) int {
	n := 0
	for _, i := range plan.Unplaced() {
		if ctx.Err() != nil {
			break
		}
		for c := range plan.Containers {
			if replaceAny(plan, c, i, false) {
				pk.corners[c] = RecalculateCorners(plan, c)
				n++
				break
			}
		}
	}
	SettleAll(plan)
	return n
}

// assignmentScore ranks economy items: expensive, small and light first.
func assignmentScore(it *model.Item) float64 {
	v := it.Volume()
	den := v*v + it.Weight*it.Weight
	if den == 0 {
		return math.Inf(1)
	}
	return it.Cost * it.Cost * it.Cost / den
}

// SortForAssignment orders items priority first by volume descending, then
// economy items by cost^3 / (volume^2 + weight^2) descending.
func SortForAssignment(plan *model.Plan, items []int) {
	sort.SliceStable(items, func(a, b int) bool {
		ia, ib := &plan.Items[items[a]], &plan.Items[items[b]]
		if ia.Priority != ib.Priority {
			return ia.Priority
		}
		if ia.Priority {
			return ia.Volume() > ib.Volume()
		}
		return assignmentScore(ia) > assignmentScore(ib)
	})
}

// SortForFitting orders items by height band (longest side in steps of 10)
// then by base area, both descending.
func SortForFitting(plan *model.Plan, items []int) {
	key := func(i int) (float64, float64) {
		it := &plan.Items[i]
		h := it.Dims[2]
		if h <= 0 {
			return 0, 0
		}
		return math.Floor(h / 10), it.Volume() / h
	}
	sort.SliceStable(items, func(a, b int) bool {
		ba, aa := key(items[a])
		bb, ab := key(items[b])
		if ba != bb {
			return ba > bb
		}
		return aa > ab
	})
}

// OrderContainers returns the given containers in fill order.
func OrderContainers(plan *model.Plan, containers []int, order model.ContainerOrder) []int {
	cs := append([]int(nil), containers...)
	switch order {
	case model.OrderWeight:
		sort.SliceStable(cs, func(a, b int) bool {
			return plan.Containers[cs[a]].MaxWeight > plan.Containers[cs[b]].MaxWeight
		})
	case model.OrderVolume:
		sort.SliceStable(cs, func(a, b int) bool {
			return plan.Containers[cs[a]].Volume() > plan.Containers[cs[b]].Volume()
		})
	}
	return cs
}
