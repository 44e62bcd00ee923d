// Package refine drives a plan through the refinement stages: greedy
// initialization, cost settling, growth by small must-place models,
// per-container re-solves and a final reinsert pass. Every stage runs
// against a snapshot and is rolled back when it raises the cost or breaks
// a plan invariant.
package refine

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/engine"
	"github.com/piwi3910/uldpack/internal/history"
	"github.com/piwi3910/uldpack/internal/inspect"
	"github.com/piwi3910/uldpack/internal/mip"
	"github.com/piwi3910/uldpack/internal/model"
)

// Stage names, in run order.
const (
	StageGreedyInit   = "greedy-init"
	StageCostSettle   = "cost-settle"
	StageGrowth       = "growth"
	StagePerContainer = "per-container"
	StageReinsert     = "reinsert"
)

// Refiner owns the collaborators of one refinement run.
type Refiner struct {
	Settings model.Settings
	Packer   *engine.Packer
	Driver   *mip.Driver
	History  *history.History
	Run      *history.Run // stage records are appended when set
}

// New creates a refiner solving its models with eng.
func New(settings model.Settings, eng mip.Engine) *Refiner {
	return &Refiner{
		Settings: settings,
		Packer:   engine.New(settings),
		Driver:   mip.NewDriver(eng, settings),
		History:  history.NewHistory(),
	}
}

type stage struct {
	name string
	run  func(ctx context.Context, plan *model.Plan) error
	// free of the cost check; the initial fill may open priority containers
	costExempt bool
}

func (r *Refiner) stages() []stage {
	return []stage{
		{name: StageGreedyInit, run: r.greedyInit, costExempt: true},
		{name: StageCostSettle, run: r.costSettle},
		{name: StageGrowth, run: r.grow},
		{name: StagePerContainer, run: r.perContainer},
		{name: StageReinsert, run: r.reinsert},
	}
}

// Refine runs every stage on a copy of plan within Settings.TimeLimit and
// returns the best plan found. When the budget runs out the remaining
// stages are skipped.
func (r *Refiner) Refine(ctx context.Context, plan *model.Plan) (*model.Plan, error) {
	if violations := inspect.Verify(plan); len(violations) > 0 {
		for _, v := range violations {
			glog.Errorf("refine: input plan: %s", v)
		}
		return nil, fmt.Errorf("input plan breaks %d invariants", len(violations))
	}
	if r.Settings.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Settings.TimeLimit)
		defer cancel()
	}

	cur := plan.Clone()
	r.Packer.Refresh(cur)
	r.History.Clear()
	for _, st := range r.stages() {
		if err := ctx.Err(); err != nil {
			glog.Warningf("refine: skipping %s: %v", st.name, err)
			break
		}
		if _, err := r.runStage(ctx, cur, st); err != nil {
			return nil, err
		}
	}
	glog.V(1).Infof("refine: done, %s", cur.Summarize(r.Settings.PrioritySurcharge))
	return cur, nil
}

// runStage snapshots plan, runs the stage and rolls it back on failure.
// It reports whether the stage was kept. The error is set only when a
// rollback finds no snapshot to restore.
func (r *Refiner) runStage(ctx context.Context, plan *model.Plan, st stage) (bool, error) {
	sur := r.Settings.PrioritySurcharge
	start := time.Now()
	before := history.MakeSnapshot(plan, sur, st.name)
	r.History.Push(before)
	glog.V(1).Infof("refine: %s starting at cost %.0f", st.name, before.Cost)

	err := st.run(ctx, plan)
	after := plan.Cost(sur)

	var reason string
	switch {
	case err != nil:
		reason = err.Error()
	case !st.costExempt && after > before.Cost+model.Eps:
		reason = fmt.Sprintf("cost rose from %.0f to %.0f", before.Cost, after)
	default:
		if violations := inspect.Verify(plan); len(violations) > 0 {
			for _, v := range violations {
				glog.Errorf("refine: %s: %s", st.name, v)
			}
			reason = fmt.Sprintf("%d invariant violations", len(violations))
		}
	}

	kept := reason == ""
	if !kept {
		restored, ok := r.History.Undo()
		if !ok {
			return false, fmt.Errorf("cannot roll back %s: no snapshot", st.name)
		}
		*plan = *restored.Plan
		after = restored.Cost
		glog.Warningf("refine: rolled back %s: %s", st.name, reason)
	}
	r.Packer.Refresh(plan)

	if r.Run != nil {
		r.Run.AddStage(history.StageRecord{
			Stage:      st.name,
			Cost:       after,
			Summary:    plan.Summarize(sur),
			RolledBack: !kept,
			Elapsed:    time.Since(start),
		})
	}
	glog.V(1).Infof("refine: %s finished at cost %.0f in %v", st.name, after, time.Since(start).Round(time.Millisecond))
	return kept, nil
}

func (r *Refiner) greedyInit(ctx context.Context, plan *model.Plan) error {
	r.Packer.Pack(ctx, plan)
	return nil
}

// costSettle reconciles the container lists, settles every container and
// refills it until the cost stops changing.
func (r *Refiner) costSettle(ctx context.Context, plan *model.Plan) error {
	sur := r.Settings.PrioritySurcharge
	all := make([]int, len(plan.Containers))
	for c := range all {
		all[c] = c
	}
	prev := plan.Cost(sur)
	for it := 0; it < r.Settings.SettleIterations && ctx.Err() == nil; it++ {
		plan.Reconcile()
		moves := engine.SettleAll(plan)
		r.Packer.Refresh(plan)
		if unplaced := plan.Unplaced(); len(unplaced) > 0 {
			r.Packer.AssignBatch(ctx, plan, unplaced, all)
		}
		cost := plan.Cost(sur)
		glog.V(2).Infof("refine: settle iteration %d: %d moves, cost %.0f", it, moves, cost)
		if moves == 0 && model.Approx(cost, prev) {
			break
		}
		prev = cost
	}
	return nil
}

func (r *Refiner) reinsert(ctx context.Context, plan *model.Plan) error {
	n := r.Packer.Reinsert(ctx, plan)
	glog.V(1).Infof("refine: reinsert replaced %d items", n)
	return nil
}
