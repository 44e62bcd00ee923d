package mip

import (
	"fmt"
	"math"

	"github.com/piwi3910/uldpack/internal/model"
)

// WarmStart seeds every variable it can derive from the current plan.
// Support indicators are left open for an item that rests on nothing the
// model would accept; the engine completes them.
func (f *Formulation) WarmStart(plan *model.Plan) {
	p := f.Problem
	slot := make([]int, len(f.Items)) // scope container index or -1
	boxes := make([]model.Box, len(f.Items))

	for t, i := range f.Items {
		it := &plan.Items[i]
		v := &f.vars[t]
		slot[t] = -1
		if it.Slot != nil {
			for jj, c := range f.Containers {
				if it.Slot.Container == c {
					slot[t] = jj
				}
			}
		}
		for jj, s := range v.assign {
			p.Hint(s, b2f(jj == slot[t]))
		}

		var pos model.Vec3
		orient := model.OrientLWH
		if slot[t] >= 0 {
			pos = it.Slot.Position
			orient = it.Slot.Orientation
			boxes[t] = it.Box()
		}
		perm := orient.Perm()
		for _, a := range model.Axes {
			p.Hint(v.pos[a], pos[a])
			for d := 0; d < 3; d++ {
				p.Hint(v.orient[d][a], b2f(perm[a] == d))
			}
		}
	}

	n := len(f.Items)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			k := f.pairs.at(a, b)
			together := slot[a] >= 0 && slot[a] == slot[b]
			side := -1
			if together {
				side = separation(boxes[a], boxes[b])
			}
			for r, rv := range f.rel[k] {
				if together && side < 0 {
					continue // overlapping input; let the engine decide
				}
				p.Hint(rv, b2f(r == side))
			}
			if f.opts.Stability {
				for jj, both := range f.shared[k] {
					p.Hint(both, b2f(together && slot[a] == jj))
				}
			}
		}
	}

	for t := range f.sides {
		for o, fi := range f.fixed {
			if !fi.blocks {
				continue
			}
			side := -1
			if slot[t] >= 0 {
				if side = separation(boxes[t], fi.box); side < 0 {
					continue
				}
			}
			for r, sv := range f.sides[t][o] {
				p.Hint(sv, b2f(r == side))
			}
		}
	}

	if f.opts.Stability {
		f.hintSupport(slot, boxes)
	}

	for jj, pv := range f.priority {
		prio := f.pinned
		for t, i := range f.Items {
			if slot[t] == jj && plan.Items[i].Priority {
				prio = true
			}
		}
		p.Hint(pv, b2f(prio))
	}
}

// separation returns the first relative position indicator that holds for
// two disjoint boxes, or -1.
func separation(a, b model.Box) int {
	for _, axis := range model.Axes {
		if a.Max()[axis] <= b.Min[axis]+model.Eps {
			return 2 * int(axis)
		}
		if b.Max()[axis] <= a.Min[axis]+model.Eps {
			return 2*int(axis) + 1
		}
	}
	return -1
}

func (f *Formulation) hintSupport(slot []int, boxes []model.Box) {
	p := f.Problem
	theta := f.opts.StabilityThreshold
	n := len(f.Items)
	for t := 0; t < n; t++ {
		holder, fixedHolder := -1, -1
		onFloor := slot[t] < 0 || boxes[t].Min[model.AxisZ] <= model.Eps
		if !onFloor {
			for k := 0; k < n && holder < 0; k++ {
				if k != t && slot[k] == slot[t] && holds(boxes[k], boxes[t], theta) {
					holder = k
				}
			}
			for o, fi := range f.fixed {
				if holder < 0 && fixedHolder < 0 && f.restsOn[t][o] >= 0 && holds(fi.box, boxes[t], theta) {
					fixedHolder = o
				}
			}
			if holder < 0 && fixedHolder < 0 {
				continue
			}
		}
		p.Hint(f.vars[t].ground, b2f(onFloor))
		for k := 0; k < n; k++ {
			if k != t {
				p.Hint(f.supportVar(t, k), b2f(k == holder))
			}
		}
		for o := range f.fixed {
			if on := f.restsOn[t][o]; on >= 0 {
				p.Hint(on, b2f(o == fixedHolder))
			}
		}
	}
}

// holds reports whether top rests on the top face of base within the
// overhang allowance and reaches over base's near face far enough.
func holds(base, top model.Box, theta float64) bool {
	z := model.AxisZ
	if !model.Approx(base.Max()[z], top.Min[z]) {
		return false
	}
	for _, a := range []model.Axis{model.AxisX, model.AxisY} {
		if top.Max()[a] > base.Max()[a]+theta*base.Size[a]+model.Eps {
			return false
		}
		if top.Min[a] > base.Min[a]+theta*base.Size[a]+model.Eps {
			return false
		}
		if top.Min[a]+theta*top.Size[a] < base.Min[a]-model.Eps {
			return false
		}
	}
	return true
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Placement is one placed item read back from a solution.
type Placement struct {
	Item        int // plan item index
	Container   int // plan container index
	Position    model.Vec3
	Orientation model.Orientation
}

// Solution is the plan-level reading of an engine result. Scope items not
// listed in Placements are unplaced.
type Solution struct {
	Status     Status
	Objective  float64
	Placements []Placement
	Unplaced   []int
}

// Extract reads placements from engine values. Coordinates are snapped to
// the model.Eps grid.
func (f *Formulation) Extract(res Result) (Solution, error) {
	if !res.HasValues() {
		return Solution{}, ErrInfeasible
	}
	if len(res.Values) != len(f.Problem.Vars) {
		return Solution{}, fmt.Errorf("expected %d values, got %d", len(f.Problem.Vars), len(res.Values))
	}
	val := func(v Var) float64 { return res.Values[v] }

	sol := Solution{Status: res.Status, Objective: res.Objective}
	for t, i := range f.Items {
		v := &f.vars[t]
		jj := -1
		for k, s := range v.assign {
			if val(s) > 0.5 {
				jj = k
				break
			}
		}
		if jj < 0 {
			sol.Unplaced = append(sol.Unplaced, i)
			continue
		}

		var perm [3]int
		for _, a := range model.Axes {
			best, bestVal := 0, math.Inf(-1)
			for d := 0; d < 3; d++ {
				if x := val(v.orient[d][a]); x > bestVal {
					best, bestVal = d, x
				}
			}
			perm[a] = best
		}
		orient, ok := model.OrientationFromPerm(perm)
		if !ok {
			return Solution{}, fmt.Errorf("item %d: orientation indicators %v are not a permutation", i, perm)
		}

		var pos model.Vec3
		for _, a := range model.Axes {
			pos[a] = math.Max(0, val(v.pos[a]))
		}
		sol.Placements = append(sol.Placements, Placement{
			Item:        i,
			Container:   f.Containers[jj],
			Position:    pos.Snap(),
			Orientation: orient,
		})
	}
	return sol, nil
}

// Apply writes a solution into plan: every scope item is unplaced, then the
// placements are recorded.
func (f *Formulation) Apply(plan *model.Plan, sol Solution) {
	for _, i := range f.Items {
		plan.Unplace(i)
	}
	for _, pl := range sol.Placements {
		plan.Place(pl.Item, model.Slot{Container: pl.Container, Position: pl.Position, Orientation: pl.Orientation})
	}
}
