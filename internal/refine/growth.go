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

// GrowthCandidates returns up to n unplaced items not in skip, smallest
// first: by volume in steps of 100, then shortest side, weight and cost.
func GrowthCandidates(plan *model.Plan, skip map[int]bool, n int) []int {
	var out []int
	for _, i := range plan.Unplaced() {
		if !skip[i] {
			out = append(out, i)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		ia, ib := &plan.Items[out[a]], &plan.Items[out[b]]
		va, vb := math.Floor(ia.Volume()/100), math.Floor(ib.Volume()/100)
		switch {
		case va != vb:
			return va < vb
		case ia.Dims[0] != ib.Dims[0]:
			return ia.Dims[0] < ib.Dims[0]
		case ia.Weight != ib.Weight:
			return ia.Weight < ib.Weight
		default:
			return ia.Cost < ib.Cost
		}
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ByFreeVolume returns every container, emptiest first.
func ByFreeVolume(plan *model.Plan) []int {
	cs := make([]int, len(plan.Containers))
	for c := range cs {
		cs[c] = c
	}
	sort.SliceStable(cs, func(a, b int) bool {
		return plan.FreeVolume(cs[a]) > plan.FreeVolume(cs[b])
	})
	return cs
}

// canHold is a cheap necessary test for item i joining container c.
func canHold(plan *model.Plan, i, c int) bool {
	it := &plan.Items[i]
	cont := &plan.Containers[c]
	return plan.Load(c)+it.Weight <= cont.MaxWeight+model.Eps &&
		plan.FreeVolume(c) >= it.Volume()-model.Eps &&
		model.FitsSomeOrientation(it.Dims, cont.Size)
}

// grow inserts batches of small unplaced items until GrowthPatience batches
// in a row place nothing or the budget runs out.
func (r *Refiner) grow(ctx context.Context, plan *model.Plan) error {
	tried := map[int]bool{}
	failures := 0
	for failures < max(r.Settings.GrowthPatience, 1) && ctx.Err() == nil {
		batch := GrowthCandidates(plan, tried, r.Settings.GrowthBatch)
		if len(batch) == 0 {
			break
		}
		placed := 0
		for _, i := range batch {
			if ctx.Err() != nil {
				break
			}
			tried[i] = true
			if r.insert(ctx, plan, i) {
				placed++
			}
		}
		if placed == 0 {
			failures++
		} else {
			failures = 0
		}
		glog.V(1).Infof("refine: growth batch placed %d of %d items", placed, len(batch))
	}
	return nil
}

// insert places item i in the emptiest container that takes it: at a free
// corner if one fits, otherwise by re-solving the container with i forced in.
func (r *Refiner) insert(ctx context.Context, plan *model.Plan, i int) bool {
	cs := ByFreeVolume(plan)
	for _, c := range cs {
		if !canHold(plan, i, c) {
			continue
		}
		for _, p := range r.Packer.Corners(c) {
			if r.Packer.TryPlace(plan, i, c, p) {
				r.Packer.Refresh(plan, c)
				glog.V(2).Infof("refine: growth placed %s in %s at a corner", plan.Items[i].ID, plan.Containers[c].ID)
				return true
			}
		}
	}

	sur := r.Settings.PrioritySurcharge
	opts := r.Driver.Options
	opts.MustPlace = true
	for _, c := range cs {
		if ctx.Err() != nil {
			return false
		}
		if !canHold(plan, i, c) {
			continue
		}
		out, err := r.solveContainer(ctx, plan, c, []int{i}, 1, opts)
		if err != nil {
			if errors.Is(err, mip.ErrInfeasible) {
				glog.V(2).Infof("refine: %s does not fit %s: %v", plan.Items[i].ID, plan.Containers[c].ID, err)
			} else {
				glog.V(1).Infof("refine: growth model for %s skipped: %v", plan.Containers[c].ID, err)
			}
			continue
		}
		if out.Items[i].Slot == nil || out.Cost(sur) > plan.Cost(sur)+model.Eps {
			continue
		}
		*plan = *out
		engine.Settle(plan, c)
		r.Packer.Refresh(plan, c)
		glog.V(2).Infof("refine: growth placed %s in %s by re-solving it", plan.Items[i].ID, plan.Containers[c].ID)
		return true
	}
	return false
}
