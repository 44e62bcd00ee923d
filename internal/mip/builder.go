package mip

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/model"
)

// Options configures one model build.
type Options struct {
	Stability          bool            // Ground or single-supporter constraints
	Priority           bool            // Per-container priority indicators with a penalty
	MustPlace          bool            // Assignment rows are == 1 instead of <= 1
	Objective          model.Objective // Objective strategy
	BigM               float64
	StabilityThreshold float64 // Fraction of the supporter extent an item may overhang
	PriorityPenalty    float64 // Objective penalty per priority container
	MinSupport         float64 // Supported base share used when checking window solutions
	Window             *Window // Re-solve part of a single container
}

// Window restricts a model to some of the items of one container. The
// window items and the candidates must lie inside Region; every other item
// of the container stays where it is and is modeled as a fixed obstacle or
// a fixed supporter.
type Window struct {
	Items  []int
	Region model.Box
}

// errWindowScope is returned when a window is combined with more or less
// than one container.
var errWindowScope = errors.New("mip: a window needs exactly one container")

// OptionsFromSettings maps solve settings onto model options.
func OptionsFromSettings(s model.Settings) Options {
	return Options{
		Stability:          s.Stability,
		Priority:           s.PrioritySurcharge > 0,
		Objective:          s.Objective,
		BigM:               s.BigM,
		StabilityThreshold: s.StabilityThreshold,
		PriorityPenalty:    s.PrioritySurcharge,
		MinSupport:         s.MinSupport,
	}
}

// pairIndex numbers the unordered pairs of n elements in a triangular array.
type pairIndex struct {
	n int
}

func (pi pairIndex) len() int {
	return pi.n * (pi.n - 1) / 2
}

func (pi pairIndex) at(a, b int) int {
	if a > b {
		a, b = b, a
	}
	return a*(2*pi.n-a-1)/2 + b - a - 1
}

type itemVars struct {
	assign []Var      // one per scope container
	pos    [3]Var     // minimum corner
	orient [3][3]Var  // [sorted dimension][axis]
	ground Var        // stability only
	dims   model.Vec3 // sorted dimensions
}

// Formulation is a built model together with the variable layout needed to
// seed it from a plan and read a solution back.
type Formulation struct {
	Problem    *Problem
	Items      []int // plan item indices; position t in this slice is the model index
	Containers []int // plan container indices

	opts     Options
	bigM     float64
	maxExt   float64
	vars     []itemVars
	pairs    pairIndex
	rel      [][6]Var // 2*axis: lower index first on axis, 2*axis+1: the reverse
	support  [][2]Var // [0]: lower index rests on higher, [1]: the reverse
	shared   [][]Var  // per pair, per container: both items in that container
	priority []Var    // per container
	local    map[int]int

	// window models only
	fixed   []fixedItem
	load    float64    // weight of the fixed items
	pinned  bool       // a fixed item is a priority item
	sides   [][][6]Var // per scope item, per fixed item: 2*axis scope item first, 2*axis+1 the reverse
	restsOn [][]Var    // per scope item, per fixed item: scope item rests on it
}

// fixedItem is an item of a window's container that the model keeps in place.
type fixedItem struct {
	item   int
	box    model.Box
	blocks bool // intersects the region
	holds  bool // its top face lies in the region and may carry scope items
}

// Build constructs the model for the given items and containers. Every item
// already placed in one of the containers joins the scope, so the model
// always sees the full contents of the containers it rearranges. With a
// window only the window items join; the rest of the container is fixed.
func Build(plan *model.Plan, items, containers []int, opts Options) (*Formulation, error) {
	if len(containers) == 0 {
		return nil, ErrNoVariables
	}
	f := &Formulation{
		Problem:    NewProblem(),
		Containers: append([]int(nil), containers...),
		opts:       opts,
		local:      map[int]int{},
	}
	add := func(i int) {
		if _, ok := f.local[i]; ok {
			return
		}
		f.local[i] = len(f.Items)
		f.Items = append(f.Items, i)
	}
	if w := opts.Window; w != nil {
		if len(containers) != 1 {
			return nil, errWindowScope
		}
		for _, i := range w.Items {
			if s := plan.Items[i].Slot; s == nil || s.Container != containers[0] {
				return nil, fmt.Errorf("window item %s is not in container %s", plan.Items[i].ID, plan.Containers[containers[0]].ID)
			}
			add(i)
		}
	} else {
		for _, c := range containers {
			for _, i := range plan.Containers[c].Items {
				add(i)
			}
		}
	}
	for _, i := range items {
		add(i)
	}
	if len(f.Items) == 0 {
		return nil, ErrNoVariables
	}
	if opts.Window != nil {
		f.collectFixed(plan)
	}

	f.bigM = f.checkBigM(plan)
	f.buildVars(plan)
	f.buildConstraints(plan)
	f.buildObjective(plan)
	glog.V(2).Infof("mip: built model with %d items, %d containers, %d vars, %d rows",
		len(f.Items), len(f.Containers), len(f.Problem.Vars), len(f.Problem.Rows))
	return f, nil
}

// collectFixed lists the container items outside the window that the scope
// items must avoid or may rest on.
func (f *Formulation) collectFixed(plan *model.Plan) {
	region := f.opts.Window.Region
	z := model.AxisZ
	for _, i := range plan.Containers[f.Containers[0]].Items {
		if _, ok := f.local[i]; ok {
			continue
		}
		it := &plan.Items[i]
		f.load += it.Weight
		f.pinned = f.pinned || it.Priority
		box := it.Box()
		top := box.Max()[z]
		fi := fixedItem{
			item:   i,
			box:    box,
			blocks: model.Intersects(box, region),
			holds: top >= region.Min[z]-model.Eps && top < region.Max()[z]-model.Eps &&
				model.RectOverlapArea(box.Base(), region.Base()) > 0,
		}
		if fi.blocks || fi.holds {
			f.fixed = append(f.fixed, fi)
		}
	}
}

// BigM returns the constant used by the model, after any automatic raise.
func (f *Formulation) BigM() float64 {
	return f.bigM
}

// checkBigM returns the configured big-M, raised when it cannot dominate
// every coordinate plus dimension sum in scope.
func (f *Formulation) checkBigM(plan *model.Plan) float64 {
	var maxDim float64
	for _, i := range f.Items {
		maxDim = math.Max(maxDim, plan.Items[i].Dims[2])
	}
	for _, c := range f.Containers {
		s := plan.Containers[c].Size
		f.maxExt = math.Max(f.maxExt, math.Max(s[0], math.Max(s[1], s[2])))
	}
	need := 2 * (f.maxExt + maxDim)
	m := f.opts.BigM
	if m < need {
		if m > 0 {
			glog.Warningf("mip: big-M %g is below %g for this scope, raising it", m, need)
		}
		m = need
	}
	return m
}

func (f *Formulation) buildVars(plan *model.Plan) {
	p := f.Problem
	f.vars = make([]itemVars, len(f.Items))
	for t, i := range f.Items {
		it := &plan.Items[i]
		v := &f.vars[t]
		v.dims = it.Dims
		v.assign = make([]Var, len(f.Containers))
		for jj, c := range f.Containers {
			v.assign[jj] = p.NewBool(fmt.Sprintf("s_%s_%s", it.ID, plan.Containers[c].ID))
		}
		for _, a := range model.Axes {
			v.pos[a] = p.NewFloat(fmt.Sprintf("%s_%s", a, it.ID), 0, f.maxExt)
		}
		for d := 0; d < 3; d++ {
			for _, a := range model.Axes {
				v.orient[d][a] = p.NewBool(fmt.Sprintf("o%d%s_%s", d, a, it.ID))
			}
		}
		if f.opts.Stability {
			v.ground = p.NewBool(fmt.Sprintf("ground_%s", it.ID))
		}
	}

	n := len(f.Items)
	f.pairs = pairIndex{n: n}
	f.rel = make([][6]Var, f.pairs.len())
	if f.opts.Stability {
		f.support = make([][2]Var, f.pairs.len())
		f.shared = make([][]Var, f.pairs.len())
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			k := f.pairs.at(a, b)
			ida, idb := plan.Items[f.Items[a]].ID, plan.Items[f.Items[b]].ID
			for r := range f.rel[k] {
				f.rel[k][r] = p.NewBool(fmt.Sprintf("rel%d_%s_%s", r, ida, idb))
			}
			if !f.opts.Stability {
				continue
			}
			f.support[k][0] = p.NewBool(fmt.Sprintf("sup_%s_%s", ida, idb))
			f.support[k][1] = p.NewBool(fmt.Sprintf("sup_%s_%s", idb, ida))
			f.shared[k] = make([]Var, len(f.Containers))
			for jj, c := range f.Containers {
				f.shared[k][jj] = p.NewBool(fmt.Sprintf("both_%s_%s_%s", ida, idb, plan.Containers[c].ID))
			}
		}
	}

	if f.opts.Priority {
		f.priority = make([]Var, len(f.Containers))
		for jj, c := range f.Containers {
			f.priority[jj] = p.NewBool(fmt.Sprintf("prio_%s", plan.Containers[c].ID))
		}
	}

	if len(f.fixed) == 0 {
		return
	}
	f.sides = make([][][6]Var, n)
	f.restsOn = make([][]Var, n)
	for t, i := range f.Items {
		f.sides[t] = make([][6]Var, len(f.fixed))
		f.restsOn[t] = make([]Var, len(f.fixed))
		for o, fi := range f.fixed {
			name := plan.Items[i].ID + "_" + plan.Items[fi.item].ID
			f.sides[t][o] = [6]Var{-1, -1, -1, -1, -1, -1}
			f.restsOn[t][o] = -1
			if fi.blocks {
				for r := range f.sides[t][o] {
					f.sides[t][o][r] = p.NewBool(fmt.Sprintf("side%d_%s", r, name))
				}
			}
			if fi.holds && f.opts.Stability {
				f.restsOn[t][o] = p.NewBool(fmt.Sprintf("on_%s", name))
			}
		}
	}
}

// supportVar returns the indicator "a rests on b".
func (f *Formulation) supportVar(a, b int) Var {
	k := f.pairs.at(a, b)
	if a < b {
		return f.support[k][0]
	}
	return f.support[k][1]
}

// extent appends scale times the effective extent of item t on axis.
func (f *Formulation) extent(r *Row, t int, axis model.Axis, scale float64) {
	v := &f.vars[t]
	for d := 0; d < 3; d++ {
		r.NewTerm(scale*v.dims[d], v.orient[d][axis])
	}
}

func (f *Formulation) buildConstraints(plan *model.Plan) {
	p := f.Problem
	m := f.bigM

	for t, i := range f.Items {
		v := &f.vars[t]
		id := plan.Items[i].ID

		sense := LessThanOrEqual
		if f.opts.MustPlace {
			sense = Equal
		}
		r := p.NewConstraint("assign_"+id, sense, 1)
		for _, s := range v.assign {
			r.NewTerm(1, s)
		}

		for d := 0; d < 3; d++ {
			r := p.NewConstraint(fmt.Sprintf("dim%d_%s", d, id), Equal, 1)
			for _, a := range model.Axes {
				r.NewTerm(1, v.orient[d][a])
			}
		}
		for _, a := range model.Axes {
			r := p.NewConstraint(fmt.Sprintf("axis_%s_%s", a, id), Equal, 1)
			for d := 0; d < 3; d++ {
				r.NewTerm(1, v.orient[d][a])
			}
		}

		// pos + extent <= size + M(1 - s)
		for jj, c := range f.Containers {
			limit := plan.Containers[c].Size
			var floor model.Vec3
			if w := f.opts.Window; w != nil {
				limit, floor = w.Region.Max(), w.Region.Min
			}
			for _, a := range model.Axes {
				r := p.NewConstraint(fmt.Sprintf("fit_%s_%s_%s", a, id, plan.Containers[c].ID), LessThanOrEqual, limit[a]+m)
				r.NewTerm(1, v.pos[a])
				f.extent(r, t, a, 1)
				r.NewTerm(m, v.assign[jj])
				if floor[a] > 0 {
					// pos >= floor - M(1 - s)
					p.NewConstraint(fmt.Sprintf("floor_%s_%s_%s", a, id, plan.Containers[c].ID), GreaterThanOrEqual, floor[a]-m).
						NewTerm(1, v.pos[a]).
						NewTerm(-m, v.assign[jj])
				}
			}
		}
	}

	for jj, c := range f.Containers {
		r := p.NewConstraint("weight_"+plan.Containers[c].ID, LessThanOrEqual, plan.Containers[c].MaxWeight-f.load)
		for t, i := range f.Items {
			r.NewTerm(plan.Items[i].Weight, f.vars[t].assign[jj])
		}
	}

	n := len(f.Items)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			f.separate(plan, a, b)
		}
	}
	for t := range f.sides {
		for o, fi := range f.fixed {
			if fi.blocks {
				f.avoid(plan, t, o)
			}
		}
	}

	if f.opts.Stability {
		f.buildStability(plan)
	}

	if f.opts.Priority {
		for jj, c := range f.Containers {
			for t, i := range f.Items {
				if !plan.Items[i].Priority {
					continue
				}
				p.NewConstraint(fmt.Sprintf("prio_%s_%s", plan.Items[i].ID, plan.Containers[c].ID), LessThanOrEqual, 0).
					NewTerm(1, f.vars[t].assign[jj]).
					NewTerm(-1, f.priority[jj])
			}
			if f.pinned {
				p.NewConstraint("prio_fixed_"+plan.Containers[c].ID, GreaterThanOrEqual, 1).
					NewTerm(1, f.priority[jj])
			}
		}
	}
}

// separate adds the non-overlap disjunction of the pair (a, b).
func (f *Formulation) separate(plan *model.Plan, a, b int) {
	p := f.Problem
	m := f.bigM
	k := f.pairs.at(a, b)
	va, vb := &f.vars[a], &f.vars[b]
	ida, idb := plan.Items[f.Items[a]].ID, plan.Items[f.Items[b]].ID

	// sum(rel) >= s_a + s_b - 1 in every container
	for jj := range f.Containers {
		r := p.NewConstraint(fmt.Sprintf("apart_%s_%s_%d", ida, idb, jj), GreaterThanOrEqual, -1)
		for _, rv := range f.rel[k] {
			r.NewTerm(1, rv)
		}
		r.NewTerm(-1, va.assign[jj])
		r.NewTerm(-1, vb.assign[jj])
	}

	// first + extent <= second + M(1 - rel)
	for _, axis := range model.Axes {
		for dir := 0; dir < 2; dir++ {
			first, second := a, b
			if dir == 1 {
				first, second = b, a
			}
			r := p.NewConstraint(fmt.Sprintf("sep%d%s_%s_%s", dir, axis, ida, idb), LessThanOrEqual, m)
			r.NewTerm(1, f.vars[first].pos[axis])
			f.extent(r, first, axis, 1)
			r.NewTerm(-1, f.vars[second].pos[axis])
			r.NewTerm(m, f.rel[k][2*int(axis)+dir])
		}
	}
}

// avoid keeps scope item t clear of fixed item o whenever t is placed.
func (f *Formulation) avoid(plan *model.Plan, t, o int) {
	p := f.Problem
	m := f.bigM
	v := &f.vars[t]
	fi := f.fixed[o]
	name := plan.Items[f.Items[t]].ID + "_" + plan.Items[fi.item].ID
	hi := fi.box.Max()

	// sum(sides) >= s_t
	r := p.NewConstraint("clear_"+name, GreaterThanOrEqual, 0)
	for _, sv := range f.sides[t][o] {
		r.NewTerm(1, sv)
	}
	r.NewTerm(-1, v.assign[0])

	for _, a := range model.Axes {
		// before: pos + extent <= min + M(1 - side)
		r := p.NewConstraint(fmt.Sprintf("before%s_%s", a, name), LessThanOrEqual, fi.box.Min[a]+m)
		r.NewTerm(1, v.pos[a]).NewTerm(m, f.sides[t][o][2*int(a)])
		f.extent(r, t, a, 1)

		// after: pos >= max - M(1 - side)
		p.NewConstraint(fmt.Sprintf("after%s_%s", a, name), GreaterThanOrEqual, hi[a]-m).
			NewTerm(1, v.pos[a]).
			NewTerm(-m, f.sides[t][o][2*int(a)+1])
	}
}

func (f *Formulation) buildStability(plan *model.Plan) {
	p := f.Problem
	m := f.bigM
	theta := f.opts.StabilityThreshold
	n := len(f.Items)

	for t, i := range f.Items {
		v := &f.vars[t]
		id := plan.Items[i].ID

		// z <= M(1 - ground)
		p.NewConstraint("ground_"+id, LessThanOrEqual, m).
			NewTerm(1, v.pos[model.AxisZ]).
			NewTerm(m, v.ground)

		// exactly one of ground or a single supporter
		r := p.NewConstraint("rest_"+id, Equal, 1)
		r.NewTerm(1, v.ground)
		for k := 0; k < n; k++ {
			if k != t {
				r.NewTerm(1, f.supportVar(t, k))
			}
		}
		for o := range f.fixed {
			if on := f.restsOn[t][o]; on >= 0 {
				r.NewTerm(1, on)
				f.restsOnFixed(plan, t, o, theta)
			}
		}

		for k := 0; k < n; k++ {
			if k == t {
				continue
			}
			f.supportedBy(plan, t, k, theta)
		}
	}

	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			k := f.pairs.at(a, b)
			ida, idb := plan.Items[f.Items[a]].ID, plan.Items[f.Items[b]].ID
			for jj := range f.Containers {
				both := f.shared[k][jj]
				p.NewConstraint(fmt.Sprintf("both_a_%s_%s_%d", ida, idb, jj), LessThanOrEqual, 0).
					NewTerm(1, both).NewTerm(-1, f.vars[a].assign[jj])
				p.NewConstraint(fmt.Sprintf("both_b_%s_%s_%d", ida, idb, jj), LessThanOrEqual, 0).
					NewTerm(1, both).NewTerm(-1, f.vars[b].assign[jj])
			}
			// a supporter shares the container of the item it holds
			for _, sup := range f.support[k] {
				r := p.NewConstraint(fmt.Sprintf("share_%s_%s_%d", ida, idb, sup), GreaterThanOrEqual, 0)
				for _, both := range f.shared[k] {
					r.NewTerm(1, both)
				}
				r.NewTerm(-1, sup)
			}
		}
	}
}

// supportedBy adds the rows tying "t rests on k" to the geometry: t sits on
// the top face of k, overhangs it by at most theta of k's extent, and
// reaches back over k's near face by at least (1 - theta) of its own
// extent. The last rows bound the contact from below; without them an item
// could rest on a neighbor it only touches along an edge.
func (f *Formulation) supportedBy(plan *model.Plan, t, k int, theta float64) {
	p := f.Problem
	m := f.bigM
	sup := f.supportVar(t, k)
	vt, vk := &f.vars[t], &f.vars[k]
	name := plan.Items[f.Items[t]].ID + "_" + plan.Items[f.Items[k]].ID
	z := model.AxisZ

	// z_t <= z_k + ez_k + M(1 - sup)
	r := p.NewConstraint("top_le_"+name, LessThanOrEqual, m)
	r.NewTerm(1, vt.pos[z]).NewTerm(-1, vk.pos[z]).NewTerm(m, sup)
	f.extent(r, k, z, -1)

	// z_t >= z_k + ez_k - M(1 - sup)
	r = p.NewConstraint("top_ge_"+name, GreaterThanOrEqual, -m)
	r.NewTerm(1, vt.pos[z]).NewTerm(-1, vk.pos[z]).NewTerm(-m, sup)
	f.extent(r, k, z, -1)

	for _, a := range []model.Axis{model.AxisX, model.AxisY} {
		// far face: p_t + e_t <= p_k + (1+theta) e_k + M(1 - sup)
		r := p.NewConstraint(fmt.Sprintf("over_far_%s_%s", a, name), LessThanOrEqual, m)
		r.NewTerm(1, vt.pos[a]).NewTerm(-1, vk.pos[a]).NewTerm(m, sup)
		f.extent(r, t, a, 1)
		f.extent(r, k, a, -(1 + theta))

		// near face: p_t <= p_k + theta e_k + M(1 - sup)
		r = p.NewConstraint(fmt.Sprintf("over_near_%s_%s", a, name), LessThanOrEqual, m)
		r.NewTerm(1, vt.pos[a]).NewTerm(-1, vk.pos[a]).NewTerm(m, sup)
		f.extent(r, k, a, -theta)

		// reach: p_t + theta e_t >= p_k - M(1 - sup)
		r = p.NewConstraint(fmt.Sprintf("reach_%s_%s", a, name), GreaterThanOrEqual, -m)
		r.NewTerm(1, vt.pos[a]).NewTerm(-1, vk.pos[a]).NewTerm(-m, sup)
		f.extent(r, t, a, theta)
	}
}

// restsOnFixed is supportedBy against a fixed item of a window's container.
func (f *Formulation) restsOnFixed(plan *model.Plan, t, o int, theta float64) {
	p := f.Problem
	m := f.bigM
	v := &f.vars[t]
	fi := f.fixed[o]
	on := f.restsOn[t][o]
	name := plan.Items[f.Items[t]].ID + "_" + plan.Items[fi.item].ID
	hi := fi.box.Max()
	z := model.AxisZ

	// a fixed supporter only carries items of its own container
	p.NewConstraint("on_in_"+name, LessThanOrEqual, 0).NewTerm(1, on).NewTerm(-1, v.assign[0])

	p.NewConstraint("on_le_"+name, LessThanOrEqual, hi[z]+m).NewTerm(1, v.pos[z]).NewTerm(m, on)
	p.NewConstraint("on_ge_"+name, GreaterThanOrEqual, hi[z]-m).NewTerm(1, v.pos[z]).NewTerm(-m, on)

	for _, a := range []model.Axis{model.AxisX, model.AxisY} {
		r := p.NewConstraint(fmt.Sprintf("on_far_%s_%s", a, name), LessThanOrEqual, hi[a]+theta*fi.box.Size[a]+m)
		r.NewTerm(1, v.pos[a]).NewTerm(m, on)
		f.extent(r, t, a, 1)

		p.NewConstraint(fmt.Sprintf("on_near_%s_%s", a, name), LessThanOrEqual, fi.box.Min[a]+theta*fi.box.Size[a]+m).
			NewTerm(1, v.pos[a]).
			NewTerm(m, on)

		r = p.NewConstraint(fmt.Sprintf("on_reach_%s_%s", a, name), GreaterThanOrEqual, fi.box.Min[a]-m)
		r.NewTerm(1, v.pos[a]).NewTerm(-m, on)
		f.extent(r, t, a, theta)
	}
}

func (f *Formulation) buildObjective(plan *model.Plan) {
	obj := &f.Problem.Objective
	switch f.opts.Objective {
	case model.ObjectiveMaxVolume:
		obj.Maximize = true
		for t, i := range f.Items {
			vol := plan.Items[i].Volume()
			for _, s := range f.vars[t].assign {
				obj.NewTerm(vol, s)
			}
		}
		for _, pv := range f.priority {
			obj.NewTerm(-f.opts.PriorityPenalty, pv)
		}
	default:
		// sum of unassigned costs: sum(cost) - sum(cost * s)
		for t, i := range f.Items {
			cost := plan.Items[i].Cost
			obj.Offset += cost
			for _, s := range f.vars[t].assign {
				obj.NewTerm(-cost, s)
			}
		}
		for _, pv := range f.priority {
			obj.NewTerm(f.opts.PriorityPenalty, pv)
		}
	}
}
