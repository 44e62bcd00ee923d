// Package highs solves mip.Problem models with the HiGHS provider of the
// nextmv sdk.
package highs

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"
	sdkmip "github.com/nextmv-io/sdk/mip"

	"github.com/piwi3910/uldpack/internal/mip"
)

// Solver implements mip.Engine on top of the sdk model and solver.
type Solver struct {
	GapRelative float64
}

// New returns a solver that closes the relative gap completely.
func New() *Solver {
	return &Solver{}
}

// Name returns the engine name.
func (s *Solver) Name() string {
	return "highs"
}

func sense(s mip.Sense) sdkmip.Sense {
	switch s {
	case mip.LessThanOrEqual:
		return sdkmip.LessThanOrEqual
	case mip.GreaterThanOrEqual:
		return sdkmip.GreaterThanOrEqual
	default:
		return sdkmip.Equal
	}
}

// Solve translates p into an sdk model and solves it. The sdk takes no
// initial solution, so hints are not passed on.
func (s *Solver) Solve(ctx context.Context, p *mip.Problem, limit time.Duration) (mip.Result, error) {
	if len(p.Vars) == 0 {
		return mip.Result{Status: mip.StatusNoSolution}, mip.ErrNoVariables
	}
	if err := ctx.Err(); err != nil {
		return mip.Result{Status: mip.StatusNoSolution}, err
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); limit <= 0 || left < limit {
			limit = left
		}
	}

	m := sdkmip.NewModel()
	vars := make([]sdkmip.Var, len(p.Vars))
	for j, d := range p.Vars {
		switch d.Kind {
		case mip.Binary:
			vars[j] = m.NewBool()
		case mip.Integer:
			vars[j] = m.NewInt(int64(math.Ceil(d.Lower)), int64(math.Floor(d.Upper)))
		default:
			vars[j] = m.NewFloat(d.Lower, d.Upper)
		}
	}
	for _, r := range p.Rows {
		c := m.NewConstraint(sense(r.Sense), r.RHS)
		for _, t := range r.Terms {
			c.NewTerm(t.Coef, vars[t.Var])
		}
	}
	if p.Objective.Maximize {
		m.Objective().SetMaximize()
	} else {
		m.Objective().SetMinimize()
	}
	for _, t := range p.Objective.Terms {
		m.Objective().NewTerm(t.Coef, vars[t.Var])
	}
	if note := droppedHints(p); note != "" {
		glog.V(1).Info(note)
	}

	solver, err := sdkmip.NewSolver("highs", m)
	if err != nil {
		return mip.Result{Status: mip.StatusNoSolution}, fmt.Errorf("failed to create highs solver: %w", err)
	}
	opts := sdkmip.NewSolveOptions()
	if limit > 0 {
		if err := opts.SetMaximumDuration(limit); err != nil {
			return mip.Result{Status: mip.StatusNoSolution}, fmt.Errorf("failed to set time limit: %w", err)
		}
	}
	if err := opts.SetMIPGapRelative(s.GapRelative); err != nil {
		return mip.Result{Status: mip.StatusNoSolution}, fmt.Errorf("failed to set gap: %w", err)
	}
	opts.SetVerbosity(sdkmip.Off)

	solution, err := solver.Solve(opts)
	if err != nil {
		return mip.Result{Status: mip.StatusNoSolution}, fmt.Errorf("failed to run highs: %w", err)
	}
	if solution == nil || !solution.HasValues() {
		return mip.Result{Status: mip.StatusNoSolution}, mip.ErrInfeasible
	}

	res := mip.Result{
		Status:    mip.StatusFeasible,
		Values:    make([]float64, len(vars)),
		Objective: solution.ObjectiveValue() + p.Objective.Offset,
		RunTime:   solution.RunTime(),
	}
	if solution.IsOptimal() {
		res.Status = mip.StatusOptimal
	}
	for j, v := range vars {
		res.Values[j] = solution.Value(v)
	}
	return res, nil
}

// droppedHints describes the warm start the adapter cannot hand to the
// solver, or returns "" when there is none.
func droppedHints(p *mip.Problem) string {
	if len(p.Hints) == 0 {
		return ""
	}
	return fmt.Sprintf("highs: dropping warm start for %d of %d variables, the search starts cold",
		len(p.Hints), len(p.Vars))
}
