// Package recombination implements ULTRA's offspring-production step:
// crossover+mutation for GA/GP representations, and differential
// evolution's trial-vector construction for real-valued representations.
// Both leave the representation-specific genome operations to injected
// interfaces and only own the age-assignment rule and, for DE, the F
// dither.
package recombination

import (
	"math/rand/v2"

	"github.com/morinim/ultra/individual"
)

// Crossover combines two parents into one offspring. Representations
// implement this over their own genome type.
type Crossover interface {
	Cross(a, b individual.Individual, rng *rand.Rand) individual.Individual
}

// Mutator perturbs an individual, each locus changing independently with
// probability rate, and returns the (possibly same, mutated in place)
// individual.
type Mutator interface {
	Mutate(ind individual.Individual, rate float64, rng *rand.Rand) individual.Individual
}

// Combiner builds a trial vector out of a target and three donors, given a
// dithered scale factor f and a crossover rate cr. Representations
// implement this over their own real-valued genome.
type Combiner interface {
	Combine(target, a, b, c individual.Individual, f, cr float64, rng *rand.Rand) individual.Individual
}

// Base recombines two parents via crossover then mutation, the way GA and
// GP representations recombine in ULTRA. With probability crossoverRate an
// offspring is produced by crossing a and b; otherwise a is copied
// verbatim and only mutation is given a chance to alter it. The
// offspring's age is set to the oldest of its two parents: recombination
// is not a rejuvenating event, it carries the lineage's age forward.
func Base(a, b individual.Individual, x Crossover, m Mutator, crossoverRate, mutationRate float64, rng *rand.Rand) individual.Individual {
	var child individual.Individual
	if rng.Float64() < crossoverRate {
		child = x.Cross(a, b, rng)
	} else {
		child = a
	}

	child = m.Mutate(child, mutationRate, rng)
	child.SetAgeAtLeast(individual.MaxAge(a, b))
	return child
}

// DEParameters configures differential-evolution recombination.
type DEParameters struct {
	// WeightLow and WeightHigh bound the dithered scale factor F, redrawn
	// uniformly for every trial vector rather than fixed, which tends to
	// improve convergence over a single fixed F.
	WeightLow, WeightHigh float64

	// CrossoverRate is the per-component probability a trial vector
	// inherits from the mutant (a + F*(b-c)) rather than from the target.
	CrossoverRate float64
}

// DefaultDEParameters matches the values commonly recommended for
// DE/rand/1/bin.
func DefaultDEParameters() DEParameters {
	return DEParameters{WeightLow: 0.5, WeightHigh: 1.0, CrossoverRate: 0.5}
}

// DE builds a trial vector from target and donors a, b, c using combiner,
// with F dithered uniformly in [WeightLow, WeightHigh] for each call. The
// offspring's age is the oldest of all four individuals involved.
func DE(target, a, b, c individual.Individual, combiner Combiner, params DEParameters, rng *rand.Rand) individual.Individual {
	f := params.WeightLow + rng.Float64()*(params.WeightHigh-params.WeightLow)

	child := combiner.Combine(target, a, b, c, f, params.CrossoverRate, rng)
	child.SetAgeAtLeast(individual.MaxAge(target, a, b, c))
	return child
}
