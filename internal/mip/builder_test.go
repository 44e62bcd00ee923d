package mip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/uldpack/internal/model"
)

func testOptions() Options {
	return OptionsFromSettings(model.DefaultSettings())
}

// stackedPlan holds A and B side by side on the floor and C on top of A.
func stackedPlan() *model.Plan {
	items := []model.Item{
		model.NewItem("A", 10, 10, 10, 5, 100, false),
		model.NewItem("B", 10, 10, 10, 5, 100, true),
		model.NewItem("C", 10, 10, 10, 5, 100, false),
		model.NewItem("D", 5, 5, 5, 1, 7, false),
	}
	plan := model.NewPlan(items, []model.Container{model.NewContainer("U1", 20, 10, 20, 100)})
	plan.Place(0, model.Slot{Container: 0, Position: model.Vec3{0, 0, 0}})
	plan.Place(1, model.Slot{Container: 0, Position: model.Vec3{10, 0, 0}})
	plan.Place(2, model.Slot{Container: 0, Position: model.Vec3{0, 0, 10}})
	return plan
}

func TestPairIndex(t *testing.T) {
	pi := pairIndex{n: 5}
	seen := map[int]bool{}
	for a := 0; a < 5; a++ {
		for b := a + 1; b < 5; b++ {
			k := pi.at(a, b)
			assert.Equal(t, k, pi.at(b, a), "symmetric")
			assert.GreaterOrEqual(t, k, 0)
			assert.Less(t, k, pi.len())
			seen[k] = true
		}
	}
	assert.Len(t, seen, pi.len())
}

func TestBuild_Counts(t *testing.T) {
	plan := model.NewPlan([]model.Item{
		model.NewItem("A", 1, 2, 3, 1, 1, false),
		model.NewItem("B", 1, 2, 3, 1, 1, false),
	}, []model.Container{model.NewContainer("U", 10, 10, 10, 10)})

	opts := testOptions()
	opts.Stability = false
	opts.Priority = false
	f, err := Build(plan, []int{0, 1}, []int{0}, opts)
	require.NoError(t, err)

	// per item: 1 assignment, 3 coordinates, 9 orientation; 6 per pair
	assert.Len(t, f.Problem.Vars, 2*13+6)
	// per item: assignment, 6 one-hot, 3 fit; 1 weight; 1 disjunction and 6 separations
	assert.Len(t, f.Problem.Rows, 2*10+1+7)
	assert.Equal(t, LessThanOrEqual, f.Problem.Rows[0].Sense)
}

func TestBuild_Options(t *testing.T) {
	plan := stackedPlan()

	t.Run("scope includes container contents", func(t *testing.T) {
		f, err := Build(plan, []int{3}, []int{0}, testOptions())
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3}, f.Items)
	})

	t.Run("must place", func(t *testing.T) {
		opts := testOptions()
		opts.MustPlace = true
		f, err := Build(plan, nil, []int{0}, opts)
		require.NoError(t, err)
		assert.Equal(t, Equal, f.Problem.Rows[0].Sense)
	})

	t.Run("max volume", func(t *testing.T) {
		opts := testOptions()
		opts.Objective = model.ObjectiveMaxVolume
		f, err := Build(plan, nil, []int{0}, opts)
		require.NoError(t, err)
		assert.True(t, f.Problem.Objective.Maximize)
		assert.Zero(t, f.Problem.Objective.Offset)
	})

	t.Run("big-M is raised", func(t *testing.T) {
		opts := testOptions()
		opts.BigM = 10
		f, err := Build(plan, nil, []int{0}, opts)
		require.NoError(t, err)
		assert.Equal(t, 2*(20.0+10.0), f.BigM())
	})

	t.Run("empty scope", func(t *testing.T) {
		_, err := Build(plan, []int{3}, nil, testOptions())
		assert.True(t, errors.Is(err, ErrNoVariables))

		empty := model.NewPlan(nil, []model.Container{model.NewContainer("E", 1, 1, 1, 1)})
		_, err = Build(empty, nil, []int{0}, testOptions())
		assert.True(t, errors.Is(err, ErrNoVariables))
	})
}

func TestWarmStart_IsFeasible(t *testing.T) {
	plan := stackedPlan()
	f, err := Build(plan, []int{3}, []int{0}, testOptions())
	require.NoError(t, err)
	f.WarmStart(plan)

	p := f.Problem
	require.Len(t, p.Hints, len(p.Vars), "every variable is seeded")
	values := make([]float64, len(p.Vars))
	for v, x := range p.Hints {
		values[v] = x
	}
	require.NoError(t, p.Check(values, 1e-9))

	// D is unplaced, B is a priority item in the only container
	assert.InDelta(t, 7+5000, p.Evaluate(values), 1e-9)
	assert.InDelta(t, plan.Cost(5000), p.Evaluate(values), 1e-9)
}

func TestWarmStart_SkipsUnsupportedItem(t *testing.T) {
	plan := stackedPlan()
	// C floats above the gap next to A
	plan.Items[2].Slot.Position = model.Vec3{15, 0, 12}

	f, err := Build(plan, nil, []int{0}, testOptions())
	require.NoError(t, err)
	f.WarmStart(plan)
	assert.Less(t, len(f.Problem.Hints), len(f.Problem.Vars))
	_, hinted := f.Problem.Hints[f.vars[2].ground]
	assert.False(t, hinted)
}

func TestExtract_RoundTrip(t *testing.T) {
	plan := stackedPlan()
	plan.Items[1].Slot.Orientation = model.OrientHWL
	f, err := Build(plan, []int{3}, []int{0}, testOptions())
	require.NoError(t, err)
	f.WarmStart(plan)

	values := make([]float64, len(f.Problem.Vars))
	for v, x := range f.Problem.Hints {
		values[v] = x
	}
	sol, err := f.Extract(Result{Status: StatusFeasible, Values: values})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, sol.Unplaced)
	require.Len(t, sol.Placements, 3)
	for _, pl := range sol.Placements {
		want := plan.Items[pl.Item].Slot
		assert.Equal(t, want.Container, pl.Container)
		assert.Equal(t, want.Orientation, pl.Orientation)
		for _, a := range model.Axes {
			assert.InDelta(t, want.Position[a], pl.Position[a], 1e-9)
		}
	}

	out := plan.Clone()
	f.Apply(out, sol)
	assert.ElementsMatch(t, plan.Containers[0].Items, out.Containers[0].Items)
	assert.Equal(t, plan.Cost(5000), out.Cost(5000))

	_, err = f.Extract(Result{Status: StatusNoSolution})
	assert.True(t, errors.Is(err, ErrInfeasible))
}

func hintValues(p *Problem) []float64 {
	values := make([]float64, len(p.Vars))
	for v, x := range p.Hints {
		values[v] = x
	}
	return values
}

func TestSupport_NeedsContact(t *testing.T) {
	newPlan := func(topX float64) *model.Plan {
		plan := model.NewPlan([]model.Item{
			model.NewItem("A", 10, 10, 10, 1, 1, false),
			model.NewItem("C", 10, 10, 10, 1, 1, false),
		}, []model.Container{model.NewContainer("U1", 30, 10, 20, 100)})
		plan.Place(0, model.Slot{Container: 0, Position: model.Vec3{10, 0, 0}})
		plan.Place(1, model.Slot{Container: 0, Position: model.Vec3{topX, 0, 10}})
		return plan
	}

	t.Run("half on the base", func(t *testing.T) {
		plan := newPlan(5)
		f, err := Build(plan, nil, []int{0}, testOptions())
		require.NoError(t, err)
		f.WarmStart(plan)
		require.Len(t, f.Problem.Hints, len(f.Problem.Vars))
		assert.NoError(t, f.Problem.Check(hintValues(f.Problem), 1e-9))
	})

	t.Run("touching an edge only", func(t *testing.T) {
		plan := newPlan(0)
		a, c := plan.Items[0].Box(), plan.Items[1].Box()
		assert.False(t, holds(a, c, 0.6))

		f, err := Build(plan, nil, []int{0}, testOptions())
		require.NoError(t, err)
		f.WarmStart(plan)
		values := hintValues(f.Problem)
		values[f.vars[1].ground] = 0
		values[f.supportVar(1, 0)] = 1

		err = f.Problem.Check(values, 1e-9)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reach_x")
	})
}

// windowPlan holds A, B and C side by side on the floor and D on top of A;
// E is unplaced.
func windowPlan() *model.Plan {
	items := []model.Item{
		model.NewItem("A", 10, 10, 10, 5, 100, false),
		model.NewItem("B", 10, 10, 10, 5, 100, true),
		model.NewItem("C", 10, 10, 10, 5, 100, false),
		model.NewItem("D", 10, 10, 10, 5, 100, false),
		model.NewItem("E", 5, 5, 5, 1, 7, false),
	}
	plan := model.NewPlan(items, []model.Container{model.NewContainer("U1", 30, 10, 20, 100)})
	plan.Place(0, model.Slot{Container: 0, Position: model.Vec3{0, 0, 0}})
	plan.Place(1, model.Slot{Container: 0, Position: model.Vec3{10, 0, 0}})
	plan.Place(2, model.Slot{Container: 0, Position: model.Vec3{20, 0, 0}})
	plan.Place(3, model.Slot{Container: 0, Position: model.Vec3{0, 0, 10}})
	return plan
}

func TestBuild_Window(t *testing.T) {
	plan := windowPlan()

	t.Run("top item rests on a fixed item", func(t *testing.T) {
		opts := testOptions()
		opts.Window = &Window{Items: []int{3}, Region: model.Box{Min: model.Vec3{0, 0, 10}, Size: model.Vec3{10, 10, 10}}}
		f, err := Build(plan, []int{4}, []int{0}, opts)
		require.NoError(t, err)

		assert.Equal(t, []int{3, 4}, f.Items)
		require.Len(t, f.fixed, 1)
		assert.Equal(t, 0, f.fixed[0].item)
		assert.True(t, f.fixed[0].holds)
		assert.False(t, f.fixed[0].blocks)
		assert.Equal(t, 15.0, f.load)
		assert.True(t, f.pinned, "B stays in the container")

		f.WarmStart(plan)
		p := f.Problem
		require.Len(t, p.Hints, len(p.Vars))
		values := hintValues(p)
		require.NoError(t, p.Check(values, 1e-9))
		assert.Equal(t, 1.0, values[f.restsOn[0][0]])
		// E is unplaced; the container already pays the priority surcharge
		assert.InDelta(t, 7+5000, p.Evaluate(values), 1e-9)
	})

	t.Run("fixed item above is an obstacle", func(t *testing.T) {
		opts := testOptions()
		opts.Window = &Window{Items: []int{0}, Region: model.Box{Size: model.Vec3{10, 10, 20}}}
		f, err := Build(plan, nil, []int{0}, opts)
		require.NoError(t, err)

		require.Len(t, f.fixed, 1)
		assert.Equal(t, 3, f.fixed[0].item)
		assert.True(t, f.fixed[0].blocks)
		assert.False(t, f.fixed[0].holds)

		f.WarmStart(plan)
		values := hintValues(f.Problem)
		require.NoError(t, f.Problem.Check(values, 1e-9))
		// A lies below D
		assert.Equal(t, 1.0, values[f.sides[0][0][2*int(model.AxisZ)]])
	})

	t.Run("scope errors", func(t *testing.T) {
		two := windowPlan()
		two.Containers = append(two.Containers, model.NewContainer("U2", 10, 10, 10, 10))
		opts := testOptions()
		opts.Window = &Window{Items: []int{3}}
		_, err := Build(two, nil, []int{0, 1}, opts)
		assert.True(t, errors.Is(err, errWindowScope))

		opts.Window = &Window{Items: []int{4}}
		_, err = Build(plan, nil, []int{0}, opts)
		assert.Error(t, err, "E is not in the container")
	})
}

func TestProblemCheck(t *testing.T) {
	p := NewProblem()
	a := p.NewBool("a")
	x := p.NewFloat("x", 0, 4)
	p.NewConstraint("r", LessThanOrEqual, 3).NewTerm(1, x).NewTerm(2, a)

	assert.NoError(t, p.Check([]float64{1, 1}, 1e-9))
	assert.Error(t, p.Check([]float64{1, 2}, 1e-9), "row violated")
	assert.Error(t, p.Check([]float64{0.5, 0}, 1e-9), "not integral")
	assert.Error(t, p.Check([]float64{0, 5}, 1e-9), "out of bounds")
	assert.Error(t, p.Check([]float64{0}, 1e-9), "wrong length")
}
