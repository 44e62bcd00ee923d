package engine

import (
	"context"
	"math/rand"
	"sort"

	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/model"
)

// GeneticConfig holds parameters for the ordering search.
type GeneticConfig struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	TournamentSize int
	EliteCount     int
	Seed           int64
}

// DefaultGeneticConfig returns sensible default parameters.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 30,
		Generations:    40,
		MutationRate:   0.15,
		TournamentSize: 3,
		EliteCount:     2,
		Seed:           42,
	}
}

// gene is one item in the packing sequence.
type gene struct {
	item   int               // Index into Plan.Items
	orient model.Orientation // Orientation tried first
}

// chromosome is a candidate packing sequence.
type chromosome struct {
	genes   []gene
	fitness float64
}

// geneticOptimizer searches over item sequences fed to the greedy packer.
type geneticOptimizer struct {
	settings model.Settings
	config   GeneticConfig
	base     *model.Plan
	items    []int
	cs       []int
	rng      *rand.Rand
}

func newGeneticOptimizer(settings model.Settings, config GeneticConfig, base *model.Plan, seed int64) *geneticOptimizer {
	return &geneticOptimizer{
		settings: settings,
		config:   config,
		base:     base,
		items:    base.Unplaced(),
		cs:       OrderContainers(base, allContainers(base), settings.ContainerOrder),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// optimize runs the search and returns the best plan found. The base plan
// is never modified.
func (g *geneticOptimizer) optimize(ctx context.Context) *model.Plan {
	if len(g.items) == 0 || len(g.cs) == 0 {
		return g.base.Clone()
	}

	population := g.initPopulation()
	for i := range population {
		population[i].fitness = g.evaluate(ctx, population[i])
	}

	for gen := 0; gen < g.config.Generations; gen++ {
		if ctx.Err() != nil {
			glog.V(1).Infof("genetic: stopping at generation %d: %v", gen, ctx.Err())
			break
		}
		sort.Slice(population, func(i, j int) bool {
			return population[i].fitness > population[j].fitness
		})

		newPop := make([]chromosome, 0, g.config.PopulationSize)

		eliteCount := g.config.EliteCount
		if eliteCount > len(population) {
			eliteCount = len(population)
		}
		for i := 0; i < eliteCount; i++ {
			newPop = append(newPop, g.copyChromosome(population[i]))
		}

		for len(newPop) < g.config.PopulationSize {
			parent1 := g.tournamentSelect(population)
			parent2 := g.tournamentSelect(population)

			child := g.orderCrossover(parent1, parent2)
			g.mutate(&child)

			child.fitness = g.evaluate(ctx, child)
			newPop = append(newPop, child)
		}

		population = newPop
		glog.V(2).Infof("genetic: generation %d best fitness %.2f", gen, population[0].fitness)
	}

	sort.Slice(population, func(i, j int) bool {
		return population[i].fitness > population[j].fitness
	})

	// Decode without a deadline so the returned plan is complete.
	return g.decode(context.WithoutCancel(ctx), population[0])
}

// initPopulation creates random sequences plus the greedy one.
func (g *geneticOptimizer) initPopulation() []chromosome {
	n := len(g.items)
	population := make([]chromosome, g.config.PopulationSize)

	for i := range population {
		genes := make([]gene, n)
		perm := g.rng.Perm(n)
		for j := 0; j < n; j++ {
			genes[j] = gene{
				item:   g.items[perm[j]],
				orient: model.Orientations[g.rng.Intn(len(model.Orientations))],
			}
		}
		population[i] = chromosome{genes: genes}
	}

	if g.config.PopulationSize > 0 {
		population[0] = g.createGreedyChromosome()
	}
	return population
}

// createGreedyChromosome uses the assignment order of the plain packer.
func (g *geneticOptimizer) createGreedyChromosome() chromosome {
	order := append([]int(nil), g.items...)
	SortForAssignment(g.base, order)
	genes := make([]gene, len(order))
	for i, idx := range order {
		genes[i] = gene{item: idx, orient: model.OrientLWH}
	}
	return chromosome{genes: genes}
}

// evaluate scores a sequence: lower plan cost is better, utilization breaks ties.
func (g *geneticOptimizer) evaluate(ctx context.Context, c chromosome) float64 {
	plan := g.decode(ctx, c)
	s := plan.Summarize(g.settings.PrioritySurcharge)
	return -s.Cost + s.Utilization
}

// decode packs a copy of the base plan in chromosome order.
func (g *geneticOptimizer) decode(ctx context.Context, c chromosome) *model.Plan {
	plan := g.base.Clone()
	pk := New(g.settings)
	pk.prefs = make(map[int]model.Orientation, len(c.genes))
	order := make([]int, len(c.genes))
	for i, gn := range c.genes {
		order[i] = gn.item
		pk.prefs[gn.item] = gn.orient
	}
	pk.assignOrdered(ctx, plan, order, g.cs)
	return plan
}

// tournamentSelect picks the best individual from a random tournament.
func (g *geneticOptimizer) tournamentSelect(population []chromosome) chromosome {
	best := population[g.rng.Intn(len(population))]
	for i := 1; i < g.config.TournamentSize; i++ {
		candidate := population[g.rng.Intn(len(population))]
		if candidate.fitness > best.fitness {
			best = candidate
		}
	}
	return g.copyChromosome(best)
}

// orderCrossover implements Order Crossover (OX1), preserving the relative
// order of genes from both parents.
func (g *geneticOptimizer) orderCrossover(parent1, parent2 chromosome) chromosome {
	n := len(parent1.genes)
	if n <= 2 {
		return g.copyChromosome(parent1)
	}

	point1 := g.rng.Intn(n)
	point2 := g.rng.Intn(n)
	if point1 > point2 {
		point1, point2 = point2, point1
	}

	child := chromosome{genes: make([]gene, n)}
	inSegment := make(map[int]bool)
	for i := point1; i <= point2; i++ {
		child.genes[i] = parent1.genes[i]
		inSegment[parent1.genes[i].item] = true
	}

	childIdx := (point2 + 1) % n
	for _, pg := range parent2.genes {
		if !inSegment[pg.item] {
			child.genes[childIdx] = pg
			childIdx = (childIdx + 1) % n
		}
	}
	return child
}

// mutate applies swap, re-orientation and inversion mutations.
func (g *geneticOptimizer) mutate(c *chromosome) {
	n := len(c.genes)
	if n < 2 {
		return
	}

	if g.rng.Float64() < g.config.MutationRate {
		i := g.rng.Intn(n)
		j := g.rng.Intn(n)
		c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
	}

	if g.rng.Float64() < g.config.MutationRate {
		i := g.rng.Intn(n)
		c.genes[i].orient = model.Orientations[g.rng.Intn(len(model.Orientations))]
	}

	if g.rng.Float64() < g.config.MutationRate*0.5 {
		i := g.rng.Intn(n)
		j := g.rng.Intn(n)
		if i > j {
			i, j = j, i
		}
		for i < j {
			c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
			i++
			j--
		}
	}
}

func (g *geneticOptimizer) copyChromosome(c chromosome) chromosome {
	genes := make([]gene, len(c.genes))
	copy(genes, c.genes)
	return chromosome{genes: genes, fitness: c.fitness}
}

// OptimizeGenetic searches item sequences for the greedy packer and returns
// the best plan found. Population and generation counts from settings
// override the config when set.
func OptimizeGenetic(ctx context.Context, settings model.Settings, config GeneticConfig, plan *model.Plan) *model.Plan {
	if settings.GeneticPopulation > 0 {
		config.PopulationSize = settings.GeneticPopulation
	}
	if settings.GeneticGenerations > 0 {
		config.Generations = settings.GeneticGenerations
	}
	if settings.Seed != 0 {
		config.Seed = settings.Seed
	}
	ga := newGeneticOptimizer(settings, config, plan, config.Seed)
	return ga.optimize(ctx)
}
