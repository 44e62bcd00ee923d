// Package bnb is a self-contained MIP engine: depth-first branch and bound
// over dense simplex relaxations.
//
// The search seeds its incumbent from the problem hints, so a feasible warm
// start is returned even when the time limit expires at the root. Branching
// is deterministic: the most fractional integer variable, rounding direction
// first, lowest index on ties.
package bnb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/mip"
)

// ErrTooLarge is returned when the dense tableau would exceed MaxCells. It
// matches mip.ErrTooLarge.
var ErrTooLarge = fmt.Errorf("bnb: problem too large for the dense tableau: %w", mip.ErrTooLarge)

const intTol = 1e-6

// Options bounds the search.
type Options struct {
	MaxNodes    int     // 0 = unlimited
	MaxCells    int     // rows * columns of the tableau
	HintNodes   int     // node budget for completing a partial warm start
	AbsoluteGap float64 // prune nodes that cannot improve by more than this
	CheckEvery  int     // nodes between deadline checks
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MaxNodes:    0,
		MaxCells:    4_000_000,
		HintNodes:   200,
		AbsoluteGap: 1e-6,
		CheckEvery:  1,
	}
}

// Solver implements mip.Engine.
type Solver struct {
	Options Options
}

// New returns a solver with default options.
func New() *Solver {
	return &Solver{Options: DefaultOptions()}
}

// Name returns the engine name.
func (s *Solver) Name() string {
	return "bnb"
}

// bbEngine holds the state of one search.
type bbEngine struct {
	p    *mip.Problem
	opts Options
	cost []float64 // minimization costs
	sign float64   // +1 minimize, -1 maximize

	ctx         context.Context
	useDeadline bool
	deadline    time.Time
	steps       int
	stopped     bool // time, context or node limit hit
	incomplete  bool // a node was dropped without being resolved

	nodes    int
	best     []float64
	bestCost float64
	foundAny bool
}

// Solve runs the search within limit.
func (s *Solver) Solve(ctx context.Context, p *mip.Problem, limit time.Duration) (mip.Result, error) {
	start := time.Now()
	if len(p.Vars) == 0 {
		return mip.Result{Status: mip.StatusNoSolution}, mip.ErrNoVariables
	}
	m := len(p.Rows)
	if cells := m * (len(p.Vars) + 2*m); s.Options.MaxCells > 0 && cells > s.Options.MaxCells {
		return mip.Result{Status: mip.StatusNoSolution}, fmt.Errorf("%w: %d cells", ErrTooLarge, cells)
	}

	e := &bbEngine{
		p:        p,
		opts:     s.Options,
		sign:     1,
		ctx:      ctx,
		bestCost: math.Inf(1),
	}
	if p.Objective.Maximize {
		e.sign = -1
	}
	e.cost = make([]float64, len(p.Vars))
	for _, t := range p.Objective.Terms {
		e.cost[t.Var] += e.sign * t.Coef
	}
	if limit > 0 {
		e.useDeadline = true
		e.deadline = start.Add(limit)
	}
	if e.opts.CheckEvery <= 0 {
		e.opts.CheckEvery = 1
	}

	lo, up := make([]float64, len(p.Vars)), make([]float64, len(p.Vars))
	for j, d := range p.Vars {
		lo[j], up[j] = d.Lower, d.Upper
		if d.Integral() {
			lo[j], up[j] = math.Ceil(d.Lower-intTol), math.Floor(d.Upper+intTol)
		}
	}

	e.seedIncumbent(lo, up)
	if !e.stopped {
		e.dfs(lo, up)
	}

	res := mip.Result{Nodes: e.nodes, RunTime: time.Since(start)}
	switch {
	case e.foundAny && !e.stopped && !e.incomplete:
		res.Status = mip.StatusOptimal
	case e.foundAny:
		res.Status = mip.StatusFeasible
	case !e.stopped && !e.incomplete:
		res.Status = mip.StatusInfeasible
		return res, mip.ErrInfeasible
	default:
		res.Status = mip.StatusNoSolution
		return res, mip.ErrInfeasible
	}
	res.Values = e.best
	res.Objective = p.Evaluate(e.best)
	glog.V(3).Infof("bnb: %s after %d nodes, objective %g", res.Status, e.nodes, res.Objective)
	return res, nil
}

// deadlineCheck reports whether the search must stop.
func (e *bbEngine) deadlineCheck() bool {
	if e.stopped {
		return true
	}
	e.steps++
	if e.opts.MaxNodes > 0 && e.nodes >= e.opts.MaxNodes {
		e.stopped = true
	}
	if e.steps%e.opts.CheckEvery == 0 {
		if e.ctx.Err() != nil || (e.useDeadline && time.Now().After(e.deadline)) {
			e.stopped = true
		}
	}
	return e.stopped
}

// recordUB commits a new incumbent.
func (e *bbEngine) recordUB(x []float64, cost float64) {
	e.best = x
	e.bestCost = cost
	e.foundAny = true
}

// seedIncumbent takes the hints as the first incumbent. A complete feasible
// hint is used as is; otherwise the hinted integer variables are fixed and
// a short search completes the rest.
func (e *bbEngine) seedIncumbent(lo, up []float64) {
	p := e.p
	if len(p.Hints) == 0 {
		return
	}
	if len(p.Hints) == len(p.Vars) {
		x := make([]float64, len(p.Vars))
		for v, val := range p.Hints {
			x[v] = val
		}
		err := p.Check(x, 1e-6)
		if err == nil {
			e.recordUB(x, e.minCost(x))
			glog.V(3).Infof("bnb: warm start accepted with objective %g", p.Evaluate(x))
			return
		}
		glog.V(3).Infof("bnb: warm start rejected: %v", err)
	}

	flo := append([]float64(nil), lo...)
	fup := append([]float64(nil), up...)
	for v, val := range p.Hints {
		if !p.Vars[v].Integral() {
			continue
		}
		r := math.Max(lo[v], math.Min(up[v], math.Round(val)))
		flo[v], fup[v] = r, r
	}
	budget, incomplete := e.opts.MaxNodes, e.incomplete
	e.opts.MaxNodes = e.nodes + e.opts.HintNodes
	e.dfs(flo, fup)
	e.opts.MaxNodes, e.incomplete = budget, incomplete
	if e.stopped && e.ctx.Err() == nil && (!e.useDeadline || time.Now().Before(e.deadline)) {
		// Only the hint budget ran out.
		e.stopped = false
	}
}

func (e *bbEngine) minCost(x []float64) float64 {
	var s float64
	for j, c := range e.cost {
		s += c * x[j]
	}
	return s
}

// dfs solves the relaxation under the node bounds, then branches.
func (e *bbEngine) dfs(lo, up []float64) {
	if e.deadlineCheck() {
		return
	}
	e.nodes++

	t := newTableau(e.p, lo, up)
	switch err := t.solve(e.cost); {
	case errors.Is(err, errLPInfeasible):
		return
	case err != nil:
		e.incomplete = true
		glog.V(3).Infof("bnb: dropping node %d: %v", e.nodes, err)
		return
	}
	bound := t.objective(e.cost)
	if bound >= e.bestCost-e.opts.AbsoluteGap {
		return
	}

	x := t.values()
	branch, frac := -1, 0.0
	for j, d := range e.p.Vars {
		if !d.Integral() {
			continue
		}
		f := x[j] - math.Floor(x[j])
		if f < intTol || f > 1-intTol {
			continue
		}
		if dist := math.Min(f, 1-f); dist > frac+intTol {
			branch, frac = j, dist
		}
	}

	if branch < 0 {
		for j, d := range e.p.Vars {
			if d.Integral() {
				x[j] = math.Round(x[j])
			}
		}
		if err := e.p.Check(x, 1e-5); err != nil {
			e.incomplete = true
			glog.V(3).Infof("bnb: integral relaxation failed the check: %v", err)
			return
		}
		e.recordUB(x, e.minCost(x))
		return
	}

	down := math.Floor(x[branch])
	children := [2]bool{false, true} // false: x <= down, true: x >= down+1
	if x[branch]-down > 0.5 {
		children = [2]bool{true, false}
	}
	for _, upward := range children {
		clo := append([]float64(nil), lo...)
		cup := append([]float64(nil), up...)
		if upward {
			clo[branch] = down + 1
		} else {
			cup[branch] = down
		}
		if clo[branch] > cup[branch] {
			continue
		}
		e.dfs(clo, cup)
		if e.stopped {
			return
		}
	}
}
