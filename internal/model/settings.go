package model

import "time"

// Algorithm selects how the initial plan is built.
type Algorithm string

const (
	AlgorithmGreedy  Algorithm = "greedy"  // Single extreme-point pass
	AlgorithmGenetic Algorithm = "genetic" // Ordering search around the greedy packer
)

// ContainerOrder selects the order in which containers are filled.
type ContainerOrder string

const (
	OrderWeight ContainerOrder = "weight" // Weight limit descending
	OrderVolume ContainerOrder = "volume" // Inner volume descending
	OrderGiven  ContainerOrder = "given"  // Input order
)

// RefineOrder selects which containers are re-solved first.
type RefineOrder string

const (
	RefineRichest    RefineOrder = "richest"     // Placed cost descending
	RefineFreeVolume RefineOrder = "free-volume" // Free volume descending
)

// Objective selects the MIP objective.
type Objective string

const (
	ObjectiveUnplacedCost Objective = "unplaced-cost"
	ObjectiveMaxVolume    Objective = "max-volume"
)

// Settings holds every tunable of a solve.
type Settings struct {
	Algorithm          Algorithm      `json:"algorithm" mapstructure:"algorithm"`
	ContainerOrder     ContainerOrder `json:"container_order" mapstructure:"container_order"`
	PriorityContainers int            `json:"priority_containers" mapstructure:"priority_containers"` // containers reserved for priority items in the first pass
	PrioritySurcharge  float64        `json:"priority_surcharge" mapstructure:"priority_surcharge"`   // cost per container holding a priority item
	ProjectOnPlace     bool           `json:"project_on_place" mapstructure:"project_on_place"`

	// Stability
	MinSupport      float64 `json:"min_support" mapstructure:"min_support"`
	AllowedUnstable int     `json:"allowed_unstable" mapstructure:"allowed_unstable"`

	// Exact model
	Engine             string        `json:"engine" mapstructure:"engine"` // "bnb" or "highs"
	Objective          Objective     `json:"objective" mapstructure:"objective"`
	Stability          bool          `json:"stability" mapstructure:"stability"`
	StabilityThreshold float64       `json:"stability_threshold" mapstructure:"stability_threshold"`
	BigM               float64       `json:"big_m" mapstructure:"big_m"`
	MIPTimeLimit       time.Duration `json:"mip_time_limit" mapstructure:"mip_time_limit"`

	// Refinement
	TimeLimit        time.Duration `json:"time_limit" mapstructure:"time_limit"`
	SettleIterations int           `json:"settle_iterations" mapstructure:"settle_iterations"`
	GrowthBatch      int           `json:"growth_batch" mapstructure:"growth_batch"`
	GrowthPatience   int           `json:"growth_patience" mapstructure:"growth_patience"`
	RefineOrder      RefineOrder   `json:"refine_order" mapstructure:"refine_order"`
	RefineContainers int           `json:"refine_containers" mapstructure:"refine_containers"` // 0 = all
	SubsetLimit      int           `json:"subset_limit" mapstructure:"subset_limit"`
	WindowSize       int           `json:"window_size" mapstructure:"window_size"` // container items per window when a whole container is too big to model

	// Genetic ordering search
	GeneticPopulation  int   `json:"genetic_population" mapstructure:"genetic_population"`
	GeneticGenerations int   `json:"genetic_generations" mapstructure:"genetic_generations"`
	Seed               int64 `json:"seed" mapstructure:"seed"`
}

func DefaultSettings() Settings {
	return Settings{
		Algorithm:          AlgorithmGreedy,
		ContainerOrder:     OrderWeight,
		PriorityContainers: 3,
		PrioritySurcharge:  5000,
		ProjectOnPlace:     true,
		MinSupport:         0.5,
		AllowedUnstable:    0,
		Engine:             "bnb",
		Objective:          ObjectiveUnplacedCost,
		Stability:          true,
		StabilityThreshold: 0.6,
		BigM:               100000,
		MIPTimeLimit:       20 * time.Second,
		TimeLimit:          5 * time.Minute,
		SettleIterations:   10,
		GrowthBatch:        10,
		GrowthPatience:     3,
		RefineOrder:        RefineRichest,
		RefineContainers:   0,
		SubsetLimit:        6,
		WindowSize:         6,
		GeneticPopulation:  30,
		GeneticGenerations: 40,
		Seed:               42,
	}
}
