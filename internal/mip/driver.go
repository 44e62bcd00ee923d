package mip

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/inspect"
	"github.com/piwi3910/uldpack/internal/model"
)

// Driver runs one model per call: build, warm start, solve, extract.
type Driver struct {
	Engine    Engine
	Options   Options
	TimeLimit time.Duration
}

// NewDriver creates a driver configured from settings.
func NewDriver(engine Engine, settings model.Settings) *Driver {
	return &Driver{
		Engine:    engine,
		Options:   OptionsFromSettings(settings),
		TimeLimit: settings.MIPTimeLimit,
	}
}

// Solve re-solves items and the current contents of containers with the
// driver's options. It returns a copy of plan with the solution applied;
// plan itself is never modified. The copy passes inspect.Verify.
func (d *Driver) Solve(ctx context.Context, plan *model.Plan, items, containers []int) (*model.Plan, Solution, error) {
	return d.SolveWith(ctx, plan, items, containers, d.Options)
}

// SolveWith is Solve with explicit model options.
func (d *Driver) SolveWith(ctx context.Context, plan *model.Plan, items, containers []int, opts Options) (*model.Plan, Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, Solution{}, err
	}
	f, err := Build(plan, items, containers, opts)
	if err != nil {
		return nil, Solution{}, fmt.Errorf("failed to build model: %w", err)
	}
	f.WarmStart(plan)

	start := time.Now()
	res, err := d.Engine.Solve(ctx, f.Problem, d.TimeLimit)
	if err != nil {
		return nil, Solution{}, fmt.Errorf("failed to solve %d items with %s: %w", len(f.Items), d.Engine.Name(), err)
	}
	glog.V(2).Infof("mip: %s finished %s in %v: objective %g after %d nodes",
		d.Engine.Name(), res.Status, time.Since(start).Round(time.Millisecond), res.Objective, res.Nodes)

	sol, err := f.Extract(res)
	if err != nil {
		return nil, Solution{}, fmt.Errorf("failed to extract solution: %w", err)
	}

	out := plan.Clone()
	f.Apply(out, sol)
	if violations := inspect.Verify(out); len(violations) > 0 {
		for _, v := range violations {
			glog.Errorf("mip: rejected solution: %s", v)
		}
		return nil, Solution{}, fmt.Errorf("solution breaks %d plan invariants", len(violations))
	}
	if opts.Window != nil && opts.Stability {
		// Fixed items may have rested on window items that moved away.
		c := containers[0]
		if before, after := unsupported(plan, c, opts.MinSupport), unsupported(out, c, opts.MinSupport); after > before {
			return nil, Solution{}, fmt.Errorf("window solution leaves %d items of %s unsupported, was %d",
				after, plan.Containers[c].ID, before)
		}
	}
	return out, sol, nil
}

// unsupported counts the items of container c that are not stable.
func unsupported(plan *model.Plan, c int, minOverlap float64) int {
	n := 0
	for _, i := range plan.Containers[c].Items {
		if inspect.ItemStability(plan, i, minOverlap) != inspect.Stable {
			n++
		}
	}
	return n
}
