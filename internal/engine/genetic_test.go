package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/uldpack/internal/model"
)

func makeTestSettings() model.Settings {
	s := defaultTestSettings()
	s.Algorithm = model.AlgorithmGenetic
	s.GeneticPopulation = 6
	s.GeneticGenerations = 4
	return s
}

func TestGeneticOptimizerNotWorseThanGreedy(t *testing.T) {
	base := randomPlan(5, 30, 2)

	greedy := base.Clone()
	New(defaultTestSettings()).Pack(context.Background(), greedy)

	best := OptimizeGenetic(context.Background(), makeTestSettings(), DefaultGeneticConfig(), base)
	requireValid(t, best)
	assert.LessOrEqual(t, best.Cost(5000), greedy.Cost(5000))

	// The base plan is left untouched
	assert.Empty(t, base.Containers[0].Items)
	assert.Empty(t, base.Containers[1].Items)
}

func TestGeneticOptimizerDeterministic(t *testing.T) {
	base := randomPlan(9, 20, 2)
	a := OptimizeGenetic(context.Background(), makeTestSettings(), DefaultGeneticConfig(), base)
	b := OptimizeGenetic(context.Background(), makeTestSettings(), DefaultGeneticConfig(), base)
	assert.Equal(t, a.Cost(5000), b.Cost(5000))
	assert.Equal(t, a.Containers[0].Items, b.Containers[0].Items)
}

func TestGeneticOptimizerEmptyInput(t *testing.T) {
	plan := model.NewPlan(nil, []model.Container{model.NewContainer("U", 10, 10, 10, 10)})
	best := OptimizeGenetic(context.Background(), makeTestSettings(), DefaultGeneticConfig(), plan)
	require.NotNil(t, best)
	assert.Empty(t, best.Items)
}

func TestOrderCrossoverKeepsPermutation(t *testing.T) {
	base := randomPlan(1, 12, 1)
	g := newGeneticOptimizer(makeTestSettings(), DefaultGeneticConfig(), base, 1)
	pop := g.initPopulation()
	for k := 0; k < 20; k++ {
		child := g.orderCrossover(pop[0], pop[1])
		g.mutate(&child)
		seen := map[int]bool{}
		for _, gn := range child.genes {
			seen[gn.item] = true
			assert.True(t, gn.orient.Valid())
		}
		assert.Len(t, seen, 12)
	}
}

func TestPackUsesGeneticWhenConfigured(t *testing.T) {
	plan := randomPlan(2, 15, 1)
	New(makeTestSettings()).Pack(context.Background(), plan)
	requireValid(t, plan)
	assert.Greater(t, plan.Summarize(5000).Placed, 0)
}

func TestBuildDefaultScenarios(t *testing.T) {
	base := defaultTestSettings()
	scenarios := BuildDefaultScenarios(base)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, "Current Settings", names[0])
	assert.Contains(t, names, "Genetic Ordering")
	assert.Contains(t, names, "Containers by weight")
	assert.Contains(t, names, "Containers by volume")
	assert.NotContains(t, names, "Containers by given")
	assert.Contains(t, names, "No Projection")
}

func TestCompareScenarios(t *testing.T) {
	plan := randomPlan(4, 25, 2)
	scenarios := []ComparisonScenario{
		{Name: "given", Settings: defaultTestSettings()},
		{Name: "genetic", Settings: makeTestSettings()},
	}
	results := CompareScenarios(context.Background(), scenarios, plan)
	require.Len(t, results, 2)
	for _, r := range results {
		requireValid(t, r.Plan)
		assert.Equal(t, r.Plan.Cost(5000), r.Summary.Cost)
	}
	best := Best(results)
	assert.LessOrEqual(t, results[best].Summary.Cost, results[1-best].Summary.Cost)
	assert.Equal(t, -1, Best(nil))
	assert.Empty(t, plan.Containers[0].Items, "input plan is not modified")
}
