// Package demo provides a minimal GA representation (OneMax: maximize the
// number of set bits in a fixed-length bit string) so cmd/ultra has
// something concrete to run end to end. Real representations live outside
// this module entirely; this one exists purely to exercise the CLI.
package demo

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/morinim/ultra/fitness"
	"github.com/morinim/ultra/hash"
	"github.com/morinim/ultra/individual"
)

// BitString is a fixed-length bit-vector individual.
type BitString struct {
	Bits []bool
	age  uint
}

func (b *BitString) Fingerprint() hash.Hash {
	buf := make([]byte, len(b.Bits))
	for i, v := range b.Bits {
		if v {
			buf[i] = 1
		}
	}
	return hash.New(buf)
}

func (b *BitString) Age() uint { return b.age }
func (b *BitString) SetAgeAtLeast(age uint) {
	if age > b.age {
		b.age = age
	}
}

func (b *BitString) String() string {
	var sb strings.Builder
	for _, v := range b.Bits {
		if v {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Seed returns a SeedFunc producing random bit strings of the given
// length.
func Seed(length int) func(rng *rand.Rand) individual.Individual {
	return func(rng *rand.Rand) individual.Individual {
		bits := make([]bool, length)
		for i := range bits {
			bits[i] = rng.Float64() < 0.5
		}
		return &BitString{Bits: bits}
	}
}

// Evaluate scores a BitString by its number of set bits.
func Evaluate(ind individual.Individual) (fitness.Fitness, error) {
	b, ok := ind.(*BitString)
	if !ok {
		return nil, fmt.Errorf("demo: unexpected individual type %T", ind)
	}

	var ones float64
	for _, v := range b.Bits {
		if v {
			ones++
		}
	}
	return fitness.Scalar(ones), nil
}

// Crossover implements one-point crossover for BitString.
type Crossover struct{}

func (Crossover) Cross(a, b individual.Individual, rng *rand.Rand) individual.Individual {
	ga, gb := a.(*BitString), b.(*BitString)
	cut := rng.IntN(len(ga.Bits))

	child := make([]bool, len(ga.Bits))
	copy(child, ga.Bits[:cut])
	copy(child[cut:], gb.Bits[cut:])
	return &BitString{Bits: child}
}

// Mutator flips each bit independently with the given rate.
type Mutator struct{}

func (Mutator) Mutate(ind individual.Individual, rate float64, rng *rand.Rand) individual.Individual {
	b := ind.(*BitString)
	for i := range b.Bits {
		if rng.Float64() < rate {
			b.Bits[i] = !b.Bits[i]
		}
	}
	return b
}
