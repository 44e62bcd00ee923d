package refine

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/engine"
	"github.com/piwi3910/uldpack/internal/mip"
	"github.com/piwi3910/uldpack/internal/model"
)

// RefineOrder returns every container in the order the per-container stage
// visits them.
func RefineOrder(plan *model.Plan, order model.RefineOrder) []int {
	if order == model.RefineFreeVolume {
		return ByFreeVolume(plan)
	}
	cs := make([]int, len(plan.Containers))
	for c := range cs {
		cs[c] = c
	}
	sort.SliceStable(cs, func(a, b int) bool {
		return plan.PlacedCost(cs[a]) > plan.PlacedCost(cs[b])
	})
	return cs
}

// Subset returns up to n unplaced items that could join container c,
// ranked by cost^2 / volume.
func Subset(plan *model.Plan, c, n int) []int {
	size := plan.Containers[c].Size
	var out []int
	for _, i := range plan.Unplaced() {
		if model.FitsSomeOrientation(plan.Items[i].Dims, size) {
			out = append(out, i)
		}
	}
	score := func(i int) float64 {
		it := &plan.Items[i]
		v := it.Volume()
		if v <= 0 {
			return math.Inf(1)
		}
		return it.Cost * it.Cost / v
	}
	sort.SliceStable(out, func(a, b int) bool {
		return score(out[a]) > score(out[b])
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// perContainer re-solves containers one at a time with their contents plus
// the best unplaced candidates. Failed or worse models leave the container
// as it was.
func (r *Refiner) perContainer(ctx context.Context, plan *model.Plan) error {
	sur := r.Settings.PrioritySurcharge
	order := RefineOrder(plan, r.Settings.RefineOrder)
	if n := r.Settings.RefineContainers; n > 0 && n < len(order) {
		order = order[:n]
	}
	for _, c := range order {
		if ctx.Err() != nil {
			break
		}
		id := plan.Containers[c].ID
		subset := Subset(plan, c, r.Settings.SubsetLimit)
		if len(subset) == 0 {
			glog.V(2).Infof("refine: no candidates for container %s", id)
			continue
		}
		before := plan.Cost(sur)
		out, err := r.solveContainer(ctx, plan, c, subset, 1, r.Driver.Options)
		if err != nil {
			glog.V(1).Infof("refine: skipping container %s: %v", id, err)
			continue
		}
		if after := out.Cost(sur); after > before+model.Eps {
			glog.V(1).Infof("refine: container %s model is worse (%.0f > %.0f)", id, after, before)
			continue
		}
		*plan = *out
		engine.Settle(plan, c)
		r.Packer.Refresh(plan, c)
		glog.V(1).Infof("refine: container %s re-solved: cost %.0f -> %.0f", id, before, plan.Cost(sur))
	}
	return nil
}

// solveContainer re-solves container c with cands and returns the new plan.
// Models the engine cannot hold are shrunk until one fits: the candidate
// list is halved down to minCands, then the container is re-solved in
// windows of WindowSize items, and the window size is halved in turn.
func (r *Refiner) solveContainer(ctx context.Context, plan *model.Plan, c int, cands []int, minCands int, opts mip.Options) (*model.Plan, error) {
	out, err := shrink(cands, minCands, func(k []int) (*model.Plan, error) {
		out, _, err := r.Driver.SolveWith(ctx, plan, k, []int{c}, opts)
		return out, err
	})
	if !errors.Is(err, mip.ErrTooLarge) {
		return out, err
	}
	for size := max(r.Settings.WindowSize, 1); size > 0; size /= 2 {
		glog.V(1).Infof("refine: container %s is too large to model whole, trying windows of %d items",
			plan.Containers[c].ID, size)
		out, err = shrink(cands, minCands, func(k []int) (*model.Plan, error) {
			return r.solveWindows(ctx, plan, c, k, size, opts)
		})
		if !errors.Is(err, mip.ErrTooLarge) {
			return out, err
		}
	}
	return nil, err
}

// shrink calls solve with a candidate list halved on every mip.ErrTooLarge
// until it holds minCands.
func shrink(cands []int, minCands int, solve func([]int) (*model.Plan, error)) (*model.Plan, error) {
	k := len(cands)
	for {
		out, err := solve(cands[:k])
		if !errors.Is(err, mip.ErrTooLarge) || k <= minCands {
			return out, err
		}
		k = max(k/2, minCands)
	}
}

// solveWindows re-solves container c one window at a time, keeping each
// window model that does not raise the cost. Candidates placed by one
// window are fixed for the next. It stops once every candidate is placed.
func (r *Refiner) solveWindows(ctx context.Context, plan *model.Plan, c int, cands []int, size int, opts mip.Options) (*model.Plan, error) {
	sur := r.Settings.PrioritySurcharge
	cur := plan
	solved := 0
	lastErr := mip.ErrInfeasible
	for _, w := range Windows(plan, c, size) {
		if ctx.Err() != nil {
			break
		}
		var pending []int
		for _, i := range cands {
			if cur.Items[i].Slot == nil {
				pending = append(pending, i)
			}
		}
		if len(pending) == 0 {
			break
		}
		o := opts
		o.Window = &w
		out, _, err := r.Driver.SolveWith(ctx, cur, pending, []int{c}, o)
		switch {
		case errors.Is(err, mip.ErrTooLarge):
			return nil, err
		case err != nil:
			lastErr = err
			glog.V(2).Infof("refine: window of %d items in %s skipped: %v", len(w.Items), plan.Containers[c].ID, err)
			continue
		case out.Cost(sur) > cur.Cost(sur)+model.Eps:
			continue
		}
		cur = out
		solved++
	}
	if solved == 0 {
		return nil, lastErr
	}
	return cur, nil
}

// Windows splits the items of container c into groups of up to size items,
// highest top face first. Each region spans the group's footprint from its
// lowest item to the ceiling. An empty container yields one window over
// the whole container.
func Windows(plan *model.Plan, c, size int) []mip.Window {
	cont := &plan.Containers[c]
	if len(cont.Items) == 0 {
		return []mip.Window{{Region: model.Box{Size: cont.Size}}}
	}
	items := append([]int(nil), cont.Items...)
	z := model.AxisZ
	sort.SliceStable(items, func(a, b int) bool {
		return plan.Items[items[a]].Box().Max()[z] > plan.Items[items[b]].Box().Max()[z]
	})

	var out []mip.Window
	for start := 0; start < len(items); start += size {
		group := items[start:min(start+size, len(items))]
		lo := plan.Items[group[0]].Box().Min
		hi := plan.Items[group[0]].Box().Max()
		for _, i := range group[1:] {
			b := plan.Items[i].Box()
			for _, a := range model.Axes {
				lo[a] = math.Min(lo[a], b.Min[a])
				hi[a] = math.Max(hi[a], b.Max()[a])
			}
		}
		hi[z] = cont.Size[z]
		var ext model.Vec3
		for _, a := range model.Axes {
			ext[a] = hi[a] - lo[a]
		}
		out = append(out, mip.Window{
			Items:  append([]int(nil), group...),
			Region: model.Box{Min: lo, Size: ext},
		})
	}
	return out
}
