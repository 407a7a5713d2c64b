// Package selection implements the parent-selection strategies the
// evolutionary driver uses to pick mates for recombination: a plain
// tournament, an ALPS-aware tournament that can reach into the layer
// below, and a four-way draw for differential evolution.
package selection

import (
	"math/rand/v2"

	"github.com/morinim/ultra/alps"
	"github.com/morinim/ultra/individual"
	"github.com/morinim/ultra/population"
)

// Tournament runs a tournament of the given size over a single layer and
// returns the fittest contestant. It returns the empty Scored if the layer
// has no members.
func Tournament(l *population.Layer, size int, rng *rand.Rand) individual.Scored {
	return l.Tournament(size, rng)
}

// ALPS runs a tournament whose contestant pool is drawn from layerIdx with
// probability params.PMainLayer, and from layerIdx-1 otherwise — the
// mechanism that lets new genetic material age its way up through the
// layers instead of only ever competing against its own cohort.
func ALPS(pop *population.Layered, layerIdx int, params alps.Parameters, tournamentSize int, rng *rand.Rand) individual.Scored {
	candidates := alps.SelectionLayers(layerIdx)

	chosen := layerIdx
	if len(candidates) > 1 && rng.Float64() >= params.PMainLayer {
		chosen = candidates[0] // the layer below
	}

	return Tournament(pop.Layer(chosen), tournamentSize, rng)
}

// ALPSPair draws two parents for recombination in layerIdx: the first via
// the usual ALPS tournament (reaching into the layer below with
// probability 1-params.PMainLayer), the second restricted to a mate-zone
// ring of radius mateZone around the first's position, when both land in
// the same layer — the reference kernel's neighbor-restricted mating
// (population::coord). Outside that case (the first parent came from the
// layer below, or mateZone is 0) the second parent is drawn the same
// unrestricted way as the first.
func ALPSPair(pop *population.Layered, layerIdx int, params alps.Parameters, tournamentSize int, mateZone uint, rng *rand.Rand) (a, b individual.Scored) {
	candidates := alps.SelectionLayers(layerIdx)

	chosen := layerIdx
	if len(candidates) > 1 && rng.Float64() >= params.PMainLayer {
		chosen = candidates[0] // the layer below
	}

	l := pop.Layer(chosen)
	first, idx := l.TournamentIndexed(tournamentSize, rng)

	if mateZone == 0 || chosen != layerIdx || idx < 0 {
		return first, ALPS(pop, layerIdx, params, tournamentSize, rng)
	}

	return first, pop.RandomIndividualInMateZone(chosen, idx, mateZone, rng)
}

// DEQuad picks four mutually distinct individuals from l: a target plus
// three donors a, b, c, the standard DE/rand/1 mating pool. It returns the
// empty Scored for every slot if l does not have at least 4 members.
func DEQuad(l *population.Layer, rng *rand.Rand) (target, a, b, c individual.Scored) {
	return l.DEQuad(rng)
}
