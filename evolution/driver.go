// Package evolution implements the generational loop driving ULTRA's
// layered population forward: one worker goroutine per layer per
// generation, joined at the generation boundary, where reseeding,
// migration, parameter reload, and stop-condition checks all happen.
package evolution

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/morinim/ultra/alps"
	"github.com/morinim/ultra/config"
	"github.com/morinim/ultra/evaluator"
	"github.com/morinim/ultra/individual"
	"github.com/morinim/ultra/population"
	"github.com/morinim/ultra/recombination"
	"github.com/morinim/ultra/replacement"
	"github.com/morinim/ultra/selection"
	"github.com/morinim/ultra/status"
)

// SeedFunc produces a brand-new random individual, used both to fill the
// initial population and to reseed the bottom layer every generation.
type SeedFunc func(rng *rand.Rand) individual.Individual

// Strategy bundles the representation-specific operators a Driver
// orchestrates. Exactly one of the GA pair (Crossover+Mutator) or the DE
// Combiner must be set, selecting the recombination scheme used for every
// layer.
type Strategy struct {
	Crossover recombination.Crossover
	Mutator   recombination.Mutator

	Combiner recombination.Combiner
	DEParams recombination.DEParameters
}

func (s Strategy) isDE() bool {
	return s.Combiner != nil
}

// Driver runs the generational loop over a layered population.
type Driver struct {
	pop        *population.Layered
	proxy      *evaluator.Proxy
	strategy   Strategy
	alpsParams alps.Parameters
	params     *config.Shared
	status     *status.Status
	generation atomic.Uint64
	seed       SeedFunc
	logger     *log.Logger
	rngSeed    uint64
}

// New builds a Driver over a fresh layered population, sized and aged
// according to params and alpsParams. logger may be nil.
func New(proxy *evaluator.Proxy, strategy Strategy, params *config.Shared, alpsParams alps.Parameters, seed SeedFunc, logger *log.Logger, rngSeed uint64) *Driver {
	p := params.Get()
	layerSize := alps.LayerCapacity(p.PopulationSize, p.NumLayers)

	pop := population.NewLayered(p.NumLayers, layerSize, func(layer int) uint {
		return alpsParams.MaxAge(layer, p.NumLayers)
	})

	d := &Driver{
		pop:        pop,
		proxy:      proxy,
		strategy:   strategy,
		alpsParams: alpsParams,
		params:     params,
		seed:       seed,
		logger:     logger,
		rngSeed:    rngSeed,
	}
	d.status = status.New(&d.generation)
	d.seedInitialPopulation()

	return d
}

// seedInitialPopulation fills every layer with freshly seeded, evaluated
// individuals. Evaluation is the expensive part for any realistic fitness
// function, so every seed/evaluate pair runs as its own errgroup task,
// capped at NumCPU concurrent goroutines, instead of sequentially.
func (d *Driver) seedInitialPopulation() {
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	var mu sync.Mutex

	task := uint64(0)
	for _, l := range d.pop.Layers() {
		l := l
		for i := 0; i < l.AllowedSize(); i++ {
			task++
			seedIdx := task
			g.Go(func() error {
				rng := rand.New(rand.NewPCG(d.rngSeed, seedIdx))
				ind := d.seed(rng)
				f, err := d.proxy.Evaluate(ind)
				if err != nil {
					return nil // seeding is best-effort; a failed seed is simply skipped
				}

				scored := individual.Scored{Ind: ind, Fit: f}
				mu.Lock()
				l.PushBack(scored)
				d.status.UpdateIfBetter(scored)
				mu.Unlock()
				return nil
			})
		}
	}

	g.Wait()
}

// Population exposes the underlying layered population, mainly for tests
// and for Search to reuse a Driver's final state as a warm start.
func (d *Driver) Population() *population.Layered { return d.pop }

// Status exposes the run's live best-so-far tracker.
func (d *Driver) Status() *status.Status { return d.status }

func (d *Driver) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

// Run executes the generational loop until a stop condition is met or ctx
// is canceled.
func (d *Driver) Run(ctx context.Context) Summary {
	start := time.Now()

	for {
		p := d.params.Get()

		if err := ctx.Err(); err != nil {
			return d.summarize(start, StatusStoppedByUser, nil)
		}
		if p.MaxGenerations > 0 && d.generation.Load() >= p.MaxGenerations {
			return d.summarize(start, StatusOK, nil)
		}
		if p.Threshold != nil {
			if best := d.status.Best(); !best.Empty() && best.Fit.Value() >= *p.Threshold {
				return d.summarize(start, StatusStoppedByThreshold, nil)
			}
		}
		if p.MaxStuckGenerations > 0 && d.generation.Load()-d.status.LastImprovement() >= p.MaxStuckGenerations {
			return d.summarize(start, StatusStoppedStuck, nil)
		}

		if err := d.runGeneration(ctx, p); err != nil {
			return d.summarize(start, StatusFailedEvaluator, err)
		}

		d.afterGeneration(p)
		d.generation.Add(1)
		d.logf("generation %d: best=%.6f crossovers=%d mutations=%d",
			d.generation.Load(), d.status.Best().Fit.Value(), d.status.Crossovers(), d.status.Mutations())
	}
}

// runGeneration dispatches one worker per layer, each performing the
// layer's full quota of select/recombine/replace iterations.
func (d *Driver) runGeneration(ctx context.Context, p config.Parameters) error {
	g, gctx := errgroup.WithContext(ctx)

	for layerIdx, l := range d.pop.Layers() {
		layerIdx, l := layerIdx, l
		quota := l.AllowedSize()

		g.Go(func() error {
			if l.Size() < p.MinIndividuals {
				return nil // too thin to evolve this round; reseeding/migration will refill it
			}

			rng := rand.New(rand.NewPCG(d.rngSeed+uint64(layerIdx), d.generation.Load()+1))

			for i := 0; i < quota; i++ {
				if err := gctx.Err(); err != nil {
					return nil // cooperative cancellation, not a failure
				}

				child, err := d.produceOffspring(layerIdx, p, rng)
				if err != nil {
					return fmt.Errorf("layer %d: %w", layerIdx, err)
				}
				if child.Ind == nil {
					continue // layer too small to recombine this round
				}

				d.status.UpdateIfBetter(child)
				replacement.ALPS(d.pop, layerIdx, child, p.TournamentSize, p.Elitism, rng)
			}
			return nil
		})
	}

	return g.Wait()
}

func (d *Driver) produceOffspring(layerIdx int, p config.Parameters, rng *rand.Rand) (individual.Scored, error) {
	if d.strategy.isDE() {
		target, a, b, c := selection.DEQuad(d.pop.Layer(layerIdx), rng)
		if target.Empty() {
			return individual.Scored{}, nil
		}
		child := recombination.DE(target.Ind, a.Ind, b.Ind, c.Ind, d.strategy.Combiner, d.strategy.DEParams, rng)
		d.status.IncCrossovers()
		d.status.IncMutations()

		f, err := d.proxy.Evaluate(child)
		if err != nil {
			return individual.Scored{}, err
		}
		return individual.Scored{Ind: child, Fit: f}, nil
	}

	a, b := selection.ALPSPair(d.pop, layerIdx, d.alpsParams, p.TournamentSize, p.MateZone, rng)
	if a.Empty() || b.Empty() {
		return individual.Scored{}, nil
	}

	// Brood recombination: produce BroodRecombination offspring from the
	// same pair and keep only the fittest, rather than the usual single
	// offspring per mating.
	brood := p.BroodRecombination
	if brood < 1 {
		brood = 1
	}

	var best individual.Scored
	for i := 0; i < brood; i++ {
		child := recombination.Base(a.Ind, b.Ind, d.strategy.Crossover, d.strategy.Mutator, p.CrossoverRate, p.MutationRate, rng)
		d.status.IncCrossovers()
		d.status.IncMutations()

		f, err := d.proxy.Evaluate(child)
		if err != nil {
			return individual.Scored{}, err
		}

		scored := individual.Scored{Ind: child, Fit: f}
		if scored.Better(best) {
			best = scored
		}
	}
	return best, nil
}

// afterGeneration runs the end-of-generation housekeeping: age advance,
// bottom-layer reseeding, and top-down migration of individuals that have
// outgrown their layer.
func (d *Driver) afterGeneration(p config.Parameters) {
	d.pop.IncAge()

	bottom := d.pop.Layer(0)
	rng := rand.New(rand.NewPCG(d.rngSeed, d.generation.Load()))
	for bottom.Size() < bottom.AllowedSize() {
		ind := d.seed(rng)
		f, err := d.proxy.Evaluate(ind)
		if err != nil {
			break
		}
		bottom.PushBack(individual.Scored{Ind: ind, Fit: f})
	}

	for layerIdx := d.pop.NumLayers() - 2; layerIdx >= 0; layerIdx-- {
		l := d.pop.Layer(layerIdx)
		for i := l.Size() - 1; i >= 0; i-- {
			replacement.TryMoveUpLayer(d.pop, layerIdx, i)
		}
	}
}

func (d *Driver) summarize(start time.Time, s Status, err error) Summary {
	return Summary{
		Best:            d.status.Best(),
		Generations:     d.generation.Load(),
		LastImprovement: d.status.LastImprovement(),
		Crossovers:      d.status.Crossovers(),
		Mutations:       d.status.Mutations(),
		Elapsed:         time.Since(start),
		Status:          s,
		Err:             err,
	}
}
