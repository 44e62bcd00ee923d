package engine

import (
	"context"
	"fmt"

	"github.com/piwi3910/uldpack/internal/model"
)

// ComparisonScenario defines a named set of settings to compare.
type ComparisonScenario struct {
	Name     string
	Settings model.Settings
}

// ComparisonResult holds the packed plan and summary for a single scenario.
type ComparisonResult struct {
	Scenario ComparisonScenario
	Plan     *model.Plan
	Summary  model.Summary
}

// CompareScenarios packs a copy of plan under each scenario and returns the
// results in scenario order.
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, plan *model.Plan) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		p := plan.Clone()
		New(scenario.Settings).Pack(ctx, p)
		results = append(results, ComparisonResult{
			Scenario: scenario,
			Plan:     p,
			Summary:  p.Summarize(scenario.Settings.PrioritySurcharge),
		})
	}
	return results
}

// Best returns the index of the cheapest result, or -1 if there are none.
func Best(results []ComparisonResult) int {
	best := -1
	for i, r := range results {
		if best < 0 || r.Summary.Cost < results[best].Summary.Cost {
			best = i
		}
	}
	return best
}

// BuildDefaultScenarios varies the key packing parameters around the
// current settings.
func BuildDefaultScenarios(baseSettings model.Settings) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{
			Name:     "Current Settings",
			Settings: baseSettings,
		},
	}

	altAlgo := baseSettings
	if baseSettings.Algorithm == model.AlgorithmGreedy {
		altAlgo.Algorithm = model.AlgorithmGenetic
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "Genetic Ordering",
			Settings: altAlgo,
		})
	} else {
		altAlgo.Algorithm = model.AlgorithmGreedy
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "Greedy Ordering",
			Settings: altAlgo,
		})
	}

	for _, order := range []model.ContainerOrder{model.OrderWeight, model.OrderVolume, model.OrderGiven} {
		if order == baseSettings.ContainerOrder {
			continue
		}
		s := baseSettings
		s.ContainerOrder = order
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("Containers by %s", order),
			Settings: s,
		})
	}

	if baseSettings.PriorityContainers > 1 {
		s := baseSettings
		s.PriorityContainers = baseSettings.PriorityContainers - 1
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("%d priority containers", s.PriorityContainers),
			Settings: s,
		})
	}

	if baseSettings.ProjectOnPlace {
		s := baseSettings
		s.ProjectOnPlace = false
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "No Projection",
			Settings: s,
		})
	}

	return scenarios
}
