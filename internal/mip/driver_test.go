package mip_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/uldpack/internal/engine"
	"github.com/piwi3910/uldpack/internal/inspect"
	"github.com/piwi3910/uldpack/internal/mip"
	"github.com/piwi3910/uldpack/internal/mip/bnb"
	"github.com/piwi3910/uldpack/internal/model"
)

// echo returns the warm start as its answer.
type echo struct{}

func (echo) Name() string { return "echo" }

func (echo) Solve(_ context.Context, p *mip.Problem, _ time.Duration) (mip.Result, error) {
	values := make([]float64, len(p.Vars))
	for v, x := range p.Hints {
		values[v] = x
	}
	return mip.Result{Status: mip.StatusFeasible, Values: values, Objective: p.Evaluate(values)}, nil
}

func testSettings() model.Settings {
	s := model.DefaultSettings()
	s.BigM = 0 // tightest value for the scope
	s.MIPTimeLimit = 10 * time.Second
	return s
}

func TestDriver_PlacesTwoCubes(t *testing.T) {
	plan := model.NewPlan([]model.Item{
		model.NewItem("A", 10, 10, 10, 1, 10, false),
		model.NewItem("B", 10, 10, 10, 1, 10, false),
	}, []model.Container{model.NewContainer("U1", 10, 20, 10, 100)})

	s := testSettings()
	s.Stability = false
	d := mip.NewDriver(bnb.New(), s)
	out, sol, err := d.Solve(context.Background(), plan, []int{0, 1}, []int{0})
	require.NoError(t, err)

	assert.Empty(t, sol.Unplaced)
	assert.Len(t, sol.Placements, 2)
	assert.Zero(t, out.Cost(s.PrioritySurcharge))
	assert.Empty(t, inspect.Verify(out))
	assert.Len(t, plan.Unplaced(), 2, "input plan is untouched")
}

func TestDriver_NeverWorseThanGreedy(t *testing.T) {
	plan := model.NewPlan([]model.Item{
		model.NewItem("cube1", 10, 10, 10, 1, 5, false),
		model.NewItem("cube2", 10, 10, 10, 1, 5, false),
		model.NewItem("long", 10, 10, 20, 1, 50, false),
	}, []model.Container{model.NewContainer("U1", 20, 10, 10, 100)})

	s := testSettings()
	engine.New(s).Pack(context.Background(), plan)
	greedy := plan.Cost(s.PrioritySurcharge)

	d := mip.NewDriver(bnb.New(), s)
	out, _, err := d.Solve(context.Background(), plan, plan.Unplaced(), []int{0})
	require.NoError(t, err)
	assert.LessOrEqual(t, out.Cost(s.PrioritySurcharge), greedy)
	assert.Empty(t, inspect.Verify(out))
}

func TestDriver_MustPlaceOversized(t *testing.T) {
	plan := model.NewPlan([]model.Item{
		model.NewItem("big", 30, 30, 30, 1, 10, false),
	}, []model.Container{model.NewContainer("U1", 10, 10, 10, 100)})

	d := mip.NewDriver(bnb.New(), testSettings())
	opts := d.Options
	opts.MustPlace = true
	_, _, err := d.SolveWith(context.Background(), plan, []int{0}, []int{0}, opts)
	assert.True(t, errors.Is(err, mip.ErrInfeasible))
}

func TestDriver_VerifiesEngineOutput(t *testing.T) {
	items := []model.Item{
		model.NewItem("A", 10, 10, 10, 1, 10, false),
		model.NewItem("B", 10, 10, 10, 1, 10, false),
	}
	containers := []model.Container{model.NewContainer("U1", 20, 10, 10, 100)}
	d := mip.NewDriver(echo{}, testSettings())

	t.Run("valid plan round trips", func(t *testing.T) {
		plan := model.NewPlan(append([]model.Item(nil), items...), append([]model.Container(nil), containers...))
		plan.Place(0, model.Slot{Container: 0})
		plan.Place(1, model.Slot{Container: 0, Position: model.Vec3{10, 0, 0}})

		out, sol, err := d.Solve(context.Background(), plan, nil, []int{0})
		require.NoError(t, err)
		assert.Equal(t, mip.StatusFeasible, sol.Status)
		assert.ElementsMatch(t, []int{0, 1}, out.Containers[0].Items)
	})

	t.Run("overlap is rejected", func(t *testing.T) {
		plan := model.NewPlan(append([]model.Item(nil), items...), append([]model.Container(nil), containers...))
		plan.Place(0, model.Slot{Container: 0})
		plan.Place(1, model.Slot{Container: 0, Position: model.Vec3{5, 0, 0}})

		_, _, err := d.Solve(context.Background(), plan, nil, []int{0})
		assert.Error(t, err)
	})
}

// shift returns the warm start with one variable overridden.
type shift struct {
	name string
	to   float64
}

func (shift) Name() string { return "shift" }

func (e shift) Solve(_ context.Context, p *mip.Problem, _ time.Duration) (mip.Result, error) {
	values := make([]float64, len(p.Vars))
	for v, x := range p.Hints {
		values[v] = x
	}
	for v, d := range p.Vars {
		if d.Name == e.name {
			values[v] = e.to
		}
	}
	return mip.Result{Status: mip.StatusFeasible, Values: values, Objective: p.Evaluate(values)}, nil
}

func TestDriver_WindowKeepsFixedItemsSupported(t *testing.T) {
	plan := model.NewPlan([]model.Item{
		model.NewItem("A", 10, 10, 10, 1, 10, false),
		model.NewItem("B", 10, 10, 10, 1, 10, false),
		model.NewItem("D", 10, 10, 10, 1, 10, false),
	}, []model.Container{model.NewContainer("U1", 30, 10, 20, 100)})
	plan.Place(0, model.Slot{Container: 0})
	plan.Place(1, model.Slot{Container: 0, Position: model.Vec3{10, 0, 0}})
	plan.Place(2, model.Slot{Container: 0, Position: model.Vec3{0, 0, 10}})

	s := testSettings()
	opts := mip.OptionsFromSettings(s)
	opts.Window = &mip.Window{Items: []int{0}, Region: model.Box{Size: model.Vec3{30, 10, 20}}}

	out, _, err := mip.NewDriver(echo{}, s).SolveWith(context.Background(), plan, nil, []int{0}, opts)
	require.NoError(t, err)
	assert.Equal(t, plan.Items[0].Slot.Position, out.Items[0].Slot.Position)

	// A moves to the free end and leaves D in the air
	_, _, err = mip.NewDriver(shift{name: "x_A", to: 20}, s).SolveWith(context.Background(), plan, nil, []int{0}, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
