// Package replacement implements ULTRA's survivor-selection step: a plain
// kill tournament, and the ALPS-aware variant that respects per-layer age
// ceilings and the upward migration of individuals that have outgrown
// their layer.
package replacement

import (
	"math/rand/v2"

	"github.com/morinim/ultra/individual"
	"github.com/morinim/ultra/population"
)

// Tournament replaces the loser of a kill tournament of the given size
// with candidate, if candidate is fitter than that loser or the elitism
// roll fails (see population.Layer.KillTournament). It reports whether a
// replacement happened.
func Tournament(l *population.Layer, candidate individual.Scored, size int, elitism float64, rng *rand.Rand) bool {
	return l.KillTournament(candidate, size, elitism, rng)
}

// Layers returns the layer indices a newly produced individual for layer l
// may displace a member of: l itself, and l+1 if it exists. Replacement
// targets upward, the opposite direction from selection's mate pool,
// since an offspring that has outgrown l's age ceiling belongs at least
// one layer up, never back down into l-1.
func Layers(layer int, numLayers int) []int {
	if layer+1 >= numLayers {
		return []int{layer}
	}
	return []int{layer, layer + 1}
}

// ALPS replaces a member of layerIdx (or layerIdx+1) with candidate,
// honoring the age ceiling: a candidate whose age exceeds a layer's
// ceiling is never placed there, since it belongs at least one layer up.
// It reports whether candidate was placed anywhere.
func ALPS(pop *population.Layered, layerIdx int, candidate individual.Scored, tournamentSize int, elitism float64, rng *rand.Rand) bool {
	for _, idx := range Layers(layerIdx, pop.NumLayers()) {
		l := pop.Layer(idx)
		if candidate.Ind.Age() > l.MaxAge() {
			continue
		}
		if Tournament(l, candidate, tournamentSize, elitism, rng) {
			return true
		}
	}
	return false
}

// TryMoveUpLayer moves the individual at index i of layerIdx into the next
// layer up if it has outgrown its current layer's age ceiling. It reports
// whether a move happened.
func TryMoveUpLayer(pop *population.Layered, layerIdx, i int) bool {
	if layerIdx+1 >= pop.NumLayers() {
		return false
	}

	from := pop.Layer(layerIdx)
	to := pop.Layer(layerIdx + 1)

	s, ok := from.RemoveIfAged(i)
	if !ok {
		return false
	}

	to.PushBack(s)
	return true
}
