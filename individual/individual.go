// Package individual defines the capability surface a representation must
// implement to be evolved by ULTRA's core, and the Scored pair the core
// passes around internally.
package individual

import (
	"github.com/morinim/ultra/fitness"
	"github.com/morinim/ultra/hash"
)

// Individual is the only thing the evolutionary core assumes about a
// candidate solution: it can be fingerprinted for caching, and it carries
// an age the ALPS age policy can read and advance. Everything about its
// actual genome (genes, trees, real vectors) is representation-specific
// and invisible to the core.
type Individual interface {
	// Fingerprint returns a stable identity for this individual's content,
	// used as the fitness cache key and for duplicate detection.
	Fingerprint() hash.Hash

	// Age is the number of generations this individual (or its oldest
	// ancestor material) has survived.
	Age() uint

	// SetAgeAtLeast raises the individual's age to a, if a is greater than
	// its current age; it never moves age backward. Recombination
	// operators call this on freshly built offspring to carry a lineage's
	// age forward, but a representation is free to call it too (e.g. to
	// fold in the age of genetic material it tracks itself), so the
	// contract itself — not just every current caller's behavior — must
	// guard against rejuvenating an individual by accident.
	SetAgeAtLeast(a uint)
}

// Scored pairs an Individual with its evaluated Fitness. The zero value
// represents "no individual" and is reported by Empty.
type Scored struct {
	Ind Individual
	Fit fitness.Fitness
}

// Empty reports whether s holds no individual.
func (s Scored) Empty() bool {
	return s.Ind == nil
}

// Better reports whether s is strictly fitter than other. An empty s is
// never better than anything; a non-empty s is always better than an
// empty other.
func (s Scored) Better(other Scored) bool {
	if s.Empty() {
		return false
	}
	if other.Empty() {
		return true
	}
	return s.Fit.Compare(other.Fit) > 0
}

// MaxAge returns the oldest age among the given individuals, the age
// assignment rule ULTRA uses for every recombination operator.
func MaxAge(individuals ...Individual) uint {
	var max uint
	for _, ind := range individuals {
		if ind.Age() > max {
			max = ind.Age()
		}
	}
	return max
}
